package users

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

type RetrieveUserOptions struct {
	ID *int
}

type ListUsersOptions struct {
	Limit  *int
	Offset *int

	includeTotal bool
}

type UpdateUserOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateUser(ctx context.Context, user *models.User) error {
	// Pre-check so the common case gets a friendly conflict instead of a
	// storage error. A race still hits the unique index; that's mapped below.
	exists, err := svc.db.NewSelect().
		Model((*models.User)(nil)).
		Where("email = ? COLLATE NOCASE", user.Email).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.Conflict(fmt.Sprintf("User with email %s already exists.", user.Email))
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt
	if user.RegistrationDate.IsZero() {
		user.RegistrationDate = now
	}
	user.IsActive = true

	_, err = svc.db.
		NewInsert().
		Model(user).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return errcodes.Conflict(fmt.Sprintf("User with email %s already exists.", user.Email))
		}
		return errors.WithStack(err)
	}
	return nil
}

func (svc *Service) RetrieveUser(ctx context.Context, opts RetrieveUserOptions) (*models.User, error) {
	user := &models.User{}

	q := svc.db.
		NewSelect().
		Model(user)

	if opts.ID != nil {
		q = q.Where("u.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}

	return user, nil
}

func (svc *Service) ListUsers(ctx context.Context, opts ListUsersOptions) ([]*models.User, error) {
	u, _, err := svc.listUsersWithTotal(ctx, opts)
	return u, errors.WithStack(err)
}

func (svc *Service) ListUsersWithTotal(ctx context.Context, opts ListUsersOptions) ([]*models.User, int, error) {
	opts.includeTotal = true
	return svc.listUsersWithTotal(ctx, opts)
}

func (svc *Service) listUsersWithTotal(ctx context.Context, opts ListUsersOptions) ([]*models.User, int, error) {
	var users []*models.User
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&users).
		Order("u.id ASC")

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

	return users, total, nil
}

func (svc *Service) UpdateUser(ctx context.Context, user *models.User, opts UpdateUserOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, col := range opts.Columns {
		if col != "email" {
			continue
		}
		exists, err := svc.db.NewSelect().
			Model((*models.User)(nil)).
			Where("email = ? COLLATE NOCASE", user.Email).
			Where("id != ?", user.ID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if exists {
			return errcodes.Conflict(fmt.Sprintf("User with email %s already exists.", user.Email))
		}
	}

	user.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(user).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("User")
		}
		if database.IsUniqueViolation(err) {
			return errcodes.Conflict(fmt.Sprintf("User with email %s already exists.", user.Email))
		}
		return errors.WithStack(err)
	}
	return nil
}

// DeleteUser deletes a user. It fails while the user holds any borrow
// without a return date.
func (svc *Service) DeleteUser(ctx context.Context, userID int) error {
	unreturned, err := svc.db.NewSelect().
		Model((*models.BorrowedBook)(nil)).
		Where("user_id = ?", userID).
		Where("return_date IS NULL").
		Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if unreturned > 0 {
		return errcodes.DeleteBlocked(fmt.Sprintf("Cannot delete user with ID %d because they have %d unreturned borrows.", userID, unreturned))
	}

	_, err = svc.db.
		NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", userID).
		Exec(ctx)
	return errors.WithStack(err)
}
