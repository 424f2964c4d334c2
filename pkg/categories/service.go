package categories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bibliodesk/bibliodesk/pkg/errcodes"
	"github.com/bibliodesk/bibliodesk/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveCategoryOptions struct {
	ID   *int
	Name *string
}

type ListCategoriesOptions struct {
	Limit  *int
	Offset *int

	includeTotal bool
}

type UpdateCategoryOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateCategory(ctx context.Context, category *models.Category) error {
	now := time.Now()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = category.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(category).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrieveCategory(ctx context.Context, opts RetrieveCategoryOptions) (*models.Category, error) {
	category := &models.Category{}

	q := svc.db.
		NewSelect().
		Model(category)

	if opts.ID != nil {
		q = q.Where("c.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		// Case-insensitive match
		q = q.Where("LOWER(c.name) = LOWER(?)", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Category")
		}
		return nil, errors.WithStack(err)
	}

	return category, nil
}

func (svc *Service) ListCategories(ctx context.Context, opts ListCategoriesOptions) ([]*models.Category, error) {
	c, _, err := svc.listCategoriesWithTotal(ctx, opts)
	return c, errors.WithStack(err)
}

func (svc *Service) ListCategoriesWithTotal(ctx context.Context, opts ListCategoriesOptions) ([]*models.Category, int, error) {
	opts.includeTotal = true
	return svc.listCategoriesWithTotal(ctx, opts)
}

func (svc *Service) listCategoriesWithTotal(ctx context.Context, opts ListCategoriesOptions) ([]*models.Category, int, error) {
	var categories []*models.Category
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&categories).
		Order("c.name ASC")

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

	return categories, total, nil
}

func (svc *Service) UpdateCategory(ctx context.Context, category *models.Category, opts UpdateCategoryOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	category.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(category).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Category")
		}
		return errors.WithStack(err)
	}
	return nil
}

// DeleteCategory deletes a category. It fails while any book still links to
// the category.
func (svc *Service) DeleteCategory(ctx context.Context, categoryID int) error {
	bookCount, err := svc.GetBookCount(ctx, categoryID)
	if err != nil {
		return err
	}
	if bookCount > 0 {
		return errcodes.DeleteBlocked(fmt.Sprintf("Cannot delete category with ID %d because %d books reference it.", categoryID, bookCount))
	}

	_, err = svc.db.
		NewDelete().
		Model((*models.Category)(nil)).
		Where("id = ?", categoryID).
		Exec(ctx)
	return errors.WithStack(err)
}

// GetBookCount returns the count of books linked to this category.
func (svc *Service) GetBookCount(ctx context.Context, categoryID int) (int, error) {
	count, err := svc.db.NewSelect().
		Model((*models.BookCategoryLink)(nil)).
		Where("category_id = ?", categoryID).
		Count(ctx)
	return count, errors.WithStack(err)
}

// GetBooks returns all books linked to this category.
func (svc *Service) GetBooks(ctx context.Context, categoryID int) ([]*models.Book, error) {
	var books []*models.Book

	err := svc.db.NewSelect().
		Model(&books).
		Join("INNER JOIN book_category_link bcl ON bcl.book_id = b.id").
		Where("bcl.category_id = ?", categoryID).
		Order("b.title ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}
