package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	BorrowStatusActive   = "active"
	BorrowStatusReturned = "returned"
	BorrowStatusOverdue  = "overdue"
)

type BorrowedBook struct {
	bun.BaseModel `bun:"table:borrowed_books,alias:bb"`

	ID         int        `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	BookID     int        `bun:",nullzero" json:"book_id"`
	Book       *Book      `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	UserID     int        `bun:",nullzero" json:"user_id"`
	User       *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     string     `bun:",nullzero" json:"status"`
}

// Unreturned reports whether the borrow still holds a copy, i.e. the status
// is active or overdue.
func (bb *BorrowedBook) Unreturned() bool {
	return bb.Status == BorrowStatusActive || bb.Status == BorrowStatusOverdue
}
