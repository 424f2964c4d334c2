package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID               int       `bun:",pk,nullzero" json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	FirstName        string    `bun:",nullzero" json:"first_name"`
	LastName         string    `bun:",nullzero" json:"last_name"`
	Email            string    `bun:",nullzero" json:"email"`
	RegistrationDate time.Time `json:"registration_date"`
	IsActive         bool      `json:"is_active"`

	BorrowedBooks []*BorrowedBook `bun:"rel:has-many,join:id=user_id" json:"borrowed_books,omitempty"`
}
