package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID              int       `bun:",pk,nullzero" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Title           string    `bun:",nullzero" json:"title"`
	PublicationYear int       `json:"publication_year"`
	ISBN            string    `bun:"isbn,nullzero" json:"isbn"`
	// Quantity is the total number of copies the library owns. Available
	// copies are derived from it by subtracting unreturned borrows.
	Quantity int `json:"quantity"`

	Authors    []*Author   `bun:"m2m:book_author_link,join:Book=Author" json:"authors,omitempty"`
	Categories []*Category `bun:"m2m:book_category_link,join:Book=Category" json:"categories,omitempty"`
}
