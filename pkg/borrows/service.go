package borrows

import (
	"context"
	"database/sql"
	"time"

	"github.com/bibliodesk/bibliodesk/pkg/config"
	"github.com/bibliodesk/bibliodesk/pkg/errcodes"
	"github.com/bibliodesk/bibliodesk/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveBorrowOptions struct {
	ID *int
}

type ListBorrowsOptions struct {
	Limit  *int
	Offset *int
	UserID *int
	BookID *int
	Status *string

	includeTotal bool
}

type Service struct {
	db  *bun.DB
	cfg *config.Config
}

func NewService(db *bun.DB, cfg *config.Config) *Service {
	return &Service{db, cfg}
}

// BorrowBook checks out one copy of a book to a user. The checks and the
// insert run in a single transaction so two concurrent requests cannot both
// claim the last copy.
func (svc *Service) BorrowBook(ctx context.Context, bookID, userID int) (*models.BorrowedBook, error) {
	borrow := &models.BorrowedBook{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book := &models.Book{}
		err := tx.NewSelect().
			Model(book).
			Where("id = ?", bookID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		exists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("id = ?", userID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("User")
		}

		unreturned, err := tx.NewSelect().
			Model((*models.BorrowedBook)(nil)).
			Where("book_id = ?", bookID).
			Where("return_date IS NULL").
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if book.Quantity-unreturned <= 0 {
			return errcodes.BookUnavailable(bookID)
		}

		userUnreturned, err := tx.NewSelect().
			Model((*models.BorrowedBook)(nil)).
			Where("user_id = ?", userID).
			Where("return_date IS NULL").
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if userUnreturned >= svc.cfg.MaxBorrowsPerUser {
			return errcodes.BorrowLimitReached(svc.cfg.MaxBorrowsPerUser)
		}

		now := time.Now()
		borrow.BookID = bookID
		borrow.UserID = userID
		borrow.BorrowDate = now
		borrow.DueDate = now.AddDate(0, 0, svc.cfg.BorrowDurationDays)
		borrow.Status = models.BorrowStatusActive
		borrow.CreatedAt = now
		borrow.UpdatedAt = now

		_, err = tx.NewInsert().
			Model(borrow).
			Returning("*").
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveBorrow(ctx, RetrieveBorrowOptions{ID: &borrow.ID})
}

// ReturnBook marks a borrow as returned and reports the fine owed for a
// late return. The status check and the update share a transaction so two
// returns of the same record cannot both succeed. Fines are computed at
// return time from the configured daily rate and count only whole elapsed
// days; they are reported to the caller, not stored.
func (svc *Service) ReturnBook(ctx context.Context, borrowID int) (*models.BorrowedBook, float64, error) {
	var fine float64

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		borrow := &models.BorrowedBook{}
		err := tx.NewSelect().
			Model(borrow).
			Where("bb.id = ?", borrowID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Borrow record")
			}
			return errors.WithStack(err)
		}
		if !borrow.Unreturned() {
			return errcodes.AlreadyReturned()
		}

		now := time.Now()
		borrow.Status = models.BorrowStatusReturned
		borrow.ReturnDate = &now
		borrow.UpdatedAt = now

		_, err = tx.NewUpdate().
			Model(borrow).
			Column("status", "return_date", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if now.After(borrow.DueDate) {
			daysLate := int(now.Sub(borrow.DueDate).Hours() / 24)
			fine = float64(daysLate) * svc.cfg.OverdueFineRate
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	borrow, err := svc.RetrieveBorrow(ctx, RetrieveBorrowOptions{ID: &borrowID})
	if err != nil {
		return nil, 0, err
	}
	return borrow, fine, nil
}

func (svc *Service) RetrieveBorrow(ctx context.Context, opts RetrieveBorrowOptions) (*models.BorrowedBook, error) {
	borrow := &models.BorrowedBook{}

	q := svc.db.
		NewSelect().
		Model(borrow).
		Relation("Book").
		Relation("User")

	if opts.ID != nil {
		q = q.Where("bb.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Borrow record")
		}
		return nil, errors.WithStack(err)
	}

	return borrow, nil
}

func (svc *Service) ListBorrows(ctx context.Context, opts ListBorrowsOptions) ([]*models.BorrowedBook, error) {
	b, _, err := svc.listBorrowsWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBorrowsWithTotal(ctx context.Context, opts ListBorrowsOptions) ([]*models.BorrowedBook, int, error) {
	opts.includeTotal = true
	return svc.listBorrowsWithTotal(ctx, opts)
}

func (svc *Service) listBorrowsWithTotal(ctx context.Context, opts ListBorrowsOptions) ([]*models.BorrowedBook, int, error) {
	borrows := []*models.BorrowedBook{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&borrows).
		Relation("Book").
		Relation("User").
		Order("bb.borrow_date DESC")

	if opts.UserID != nil {
		q = q.Where("bb.user_id = ?", *opts.UserID)
	}
	if opts.BookID != nil {
		q = q.Where("bb.book_id = ?", *opts.BookID)
	}
	if opts.Status != nil {
		q = q.Where("bb.status = ?", *opts.Status)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return borrows, total, nil
}

// SweepOverdue flips every active borrow whose due date has passed to
// overdue, then returns all overdue borrows. Already-overdue rows are left
// alone, so running the sweep repeatedly is harmless.
func (svc *Service) SweepOverdue(ctx context.Context) ([]*models.BorrowedBook, error) {
	now := time.Now()

	_, err := svc.db.NewUpdate().
		Model((*models.BorrowedBook)(nil)).
		Set("status = ?", models.BorrowStatusOverdue).
		Set("updated_at = ?", now).
		Where("status = ?", models.BorrowStatusActive).
		Where("due_date < ?", now).
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	status := models.BorrowStatusOverdue
	return svc.ListBorrows(ctx, ListBorrowsOptions{Status: &status})
}

// DeleteBorrow removes a borrow record. Availability is derived from
// unreturned rows, so deleting one implicitly frees the copy it held.
func (svc *Service) DeleteBorrow(ctx context.Context, borrowID int) error {
	res, err := svc.db.NewDelete().
		Model((*models.BorrowedBook)(nil)).
		Where("id = ?", borrowID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if affected == 0 {
		return errcodes.NotFound("Borrow record")
	}
	return nil
}
