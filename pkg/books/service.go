package books

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bibliodesk/bibliodesk/pkg/database"
	"github.com/bibliodesk/bibliodesk/pkg/errcodes"
	"github.com/bibliodesk/bibliodesk/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID *int
}

type ListBooksOptions struct {
	Limit      *int
	Offset     *int
	Title      *string
	AuthorID   *int
	CategoryID *int

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns []string

	// AuthorIDs/CategoryIDs fully replace the book's link set when the
	// corresponding Update flag is set. An unset flag leaves the relation
	// untouched; a set flag with an empty slice clears all links.
	AuthorIDs        []int
	UpdateAuthors    bool
	CategoryIDs      []int
	UpdateCategories bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateBook inserts the book and its author/category links in one
// transaction. The book's relations are loaded on return.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book, authorIDs, categoryIDs []int) error {
	if err := svc.checkISBNAvailable(ctx, book.ISBN, 0); err != nil {
		return err
	}

	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(book).
			Returning("*").
			Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return errcodes.Conflict(fmt.Sprintf("Book with ISBN %s already exists.", book.ISBN))
			}
			return errors.WithStack(err)
		}

		if err := svc.syncAuthors(ctx, tx, book.ID, authorIDs); err != nil {
			return err
		}
		return svc.syncCategories(ctx, tx, book.ID, categoryIDs)
	})
	if err != nil {
		return err
	}

	loaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	if err != nil {
		return err
	}
	*book = *loaded
	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("a.last_name ASC")
		}).
		Relation("Categories", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("c.name ASC")
		})

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("Authors").
		Relation("Categories").
		Order("b.title ASC")

	if opts.Title != nil && *opts.Title != "" {
		q = q.Where("b.title LIKE ? COLLATE NOCASE", "%"+*opts.Title+"%")
	}
	if opts.AuthorID != nil {
		q = q.Where("b.id IN (SELECT book_id FROM book_author_link WHERE author_id = ?)", *opts.AuthorID)
	}
	if opts.CategoryID != nil {
		q = q.Where("b.id IN (SELECT book_id FROM book_category_link WHERE category_id = ?)", *opts.CategoryID)
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

	return books, total, nil
}

// UpdateBook applies scalar column changes and relation resyncs in one
// transaction, then reloads the book with its relations.
func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 && !opts.UpdateAuthors && !opts.UpdateCategories {
		return nil
	}

	for _, col := range opts.Columns {
		if col == "isbn" {
			if err := svc.checkISBNAvailable(ctx, book.ISBN, book.ID); err != nil {
				return err
			}
		}
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if len(opts.Columns) > 0 {
			book.UpdatedAt = time.Now()
			columns := append(opts.Columns, "updated_at")

			_, err := tx.
				NewUpdate().
				Model(book).
				Column(columns...).
				WherePK().
				Exec(ctx)
			if err != nil {
				if database.IsUniqueViolation(err) {
					return errcodes.Conflict(fmt.Sprintf("Book with ISBN %s already exists.", book.ISBN))
				}
				return errors.WithStack(err)
			}
		}

		if opts.UpdateAuthors {
			if err := svc.syncAuthors(ctx, tx, book.ID, opts.AuthorIDs); err != nil {
				return err
			}
		}
		if opts.UpdateCategories {
			if err := svc.syncCategories(ctx, tx, book.ID, opts.CategoryIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	loaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	if err != nil {
		return err
	}
	*book = *loaded
	return nil
}

// DeleteBook deletes a book and its link rows. It fails while any
// unreturned borrow still references the book, so borrow history always
// points at a real record.
func (svc *Service) DeleteBook(ctx context.Context, bookID int) error {
	unreturned, err := svc.db.NewSelect().
		Model((*models.BorrowedBook)(nil)).
		Where("book_id = ?", bookID).
		Where("return_date IS NULL").
		Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if unreturned > 0 {
		return errcodes.DeleteBlocked(fmt.Sprintf("Cannot delete book with ID %d because it has %d unreturned borrows.", bookID, unreturned))
	}

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.BookAuthorLink)(nil)).
			Where("book_id = ?", bookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.BookCategoryLink)(nil)).
			Where("book_id = ?", bookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Book)(nil)).
			Where("id = ?", bookID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// AvailableCopies returns how many copies of the book can currently be
// borrowed: the owned quantity minus unreturned borrows, floored at zero.
func (svc *Service) AvailableCopies(ctx context.Context, bookID int) (int, error) {
	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &bookID})
	if err != nil {
		return 0, err
	}

	unreturned, err := svc.db.NewSelect().
		Model((*models.BorrowedBook)(nil)).
		Where("book_id = ?", bookID).
		Where("status IN (?)", bun.In([]string{models.BorrowStatusActive, models.BorrowStatusOverdue})).
		Count(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	available := book.Quantity - unreturned
	if available < 0 {
		available = 0
	}
	return available, nil
}

// syncAuthors makes the persisted author links match exactly the requested
// set: delete everything, verify each requested author exists, insert fresh
// rows. No diffing; the full replace is always consistent with the request.
func (svc *Service) syncAuthors(ctx context.Context, tx bun.Tx, bookID int, authorIDs []int) error {
	_, err := tx.NewDelete().
		Model((*models.BookAuthorLink)(nil)).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	links := make([]*models.BookAuthorLink, 0, len(authorIDs))
	for _, authorID := range authorIDs {
		exists, err := tx.NewSelect().
			Model((*models.Author)(nil)).
			Where("id = ?", authorID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound(fmt.Sprintf("Author with ID %d", authorID))
		}
		links = append(links, &models.BookAuthorLink{BookID: bookID, AuthorID: authorID})
	}

	if len(links) > 0 {
		_, err = tx.NewInsert().
			Model(&links).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (svc *Service) syncCategories(ctx context.Context, tx bun.Tx, bookID int, categoryIDs []int) error {
	_, err := tx.NewDelete().
		Model((*models.BookCategoryLink)(nil)).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	links := make([]*models.BookCategoryLink, 0, len(categoryIDs))
	for _, categoryID := range categoryIDs {
		exists, err := tx.NewSelect().
			Model((*models.Category)(nil)).
			Where("id = ?", categoryID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound(fmt.Sprintf("Category with ID %d", categoryID))
		}
		links = append(links, &models.BookCategoryLink{BookID: bookID, CategoryID: categoryID})
	}

	if len(links) > 0 {
		_, err = tx.NewInsert().
			Model(&links).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (svc *Service) checkISBNAvailable(ctx context.Context, isbn string, excludeID int) error {
	q := svc.db.NewSelect().
		Model((*models.Book)(nil)).
		Where("isbn = ?", isbn)
	if excludeID != 0 {
		q = q.Where("id != ?", excludeID)
	}

	exists, err := q.Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.Conflict(fmt.Sprintf("Book with ISBN %s already exists.", isbn))
	}
	return nil
}
