package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID          int       `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `bun:",nullzero" json:"name"`
	Description *string   `json:"description"`

	Books []*Book `bun:"m2m:book_category_link,join:Category=Book" json:"books,omitempty"`
}

type BookCategoryLink struct {
	bun.BaseModel `bun:"table:book_category_link,alias:bcl"`

	BookID     int       `bun:",pk" json:"book_id"`
	Book       *Book     `bun:"rel:belongs-to,join:book_id=id" json:"-"`
	CategoryID int       `bun:",pk" json:"category_id"`
	Category   *Category `bun:"rel:belongs-to,join:category_id=id" json:"-"`
}
