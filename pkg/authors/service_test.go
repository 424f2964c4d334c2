package authors

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/bibliodesk/bibliodesk/pkg/database"
	"github.com/bibliodesk/bibliodesk/pkg/errcodes"
	"github.com/bibliodesk/bibliodesk/pkg/migrations"
	"github.com/bibliodesk/bibliodesk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	database.RegisterModels(db)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func seedBook(ctx context.Context, t *testing.T, db *bun.DB, title, isbn string, authorIDs ...int) *models.Book {
	t.Helper()

	now := time.Now()
	book := &models.Book{
		Title:     title,
		ISBN:      isbn,
		Quantity:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)

	for _, authorID := range authorIDs {
		link := &models.BookAuthorLink{BookID: book.ID, AuthorID: authorID}
		_, err := db.NewInsert().Model(link).Exec(ctx)
		require.NoError(t, err)
	}

	return book
}

func TestServiceCreateAuthor(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	bio := "Wrote mostly about whales."
	author := &models.Author{FirstName: "Herman", LastName: "Melville", Biography: &bio}
	err := svc.CreateAuthor(ctx, author)
	require.NoError(t, err)

	assert.NotZero(t, author.ID)
	assert.False(t, author.CreatedAt.IsZero())

	retrieved, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &author.ID})
	require.NoError(t, err)
	assert.Equal(t, "Melville", retrieved.LastName)
	require.NotNil(t, retrieved.Biography)
	assert.Equal(t, bio, *retrieved.Biography)
}

func TestServiceRetrieveAuthor_NotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	id := 9999
	_, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &id})
	require.Error(t, err)

	cerr := &errcodes.Error{}
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 404, cerr.HTTPCode)
}

func TestServiceUpdateAuthor_PartialColumns(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := &models.Author{FirstName: "Emly", LastName: "Dickinson"}
	require.NoError(t, svc.CreateAuthor(ctx, author))

	author.FirstName = "Emily"
	author.LastName = "should not persist"
	err := svc.UpdateAuthor(ctx, author, UpdateAuthorOptions{Columns: []string{"first_name"}})
	require.NoError(t, err)

	retrieved, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &author.ID})
	require.NoError(t, err)
	assert.Equal(t, "Emily", retrieved.FirstName)
	assert.Equal(t, "Dickinson", retrieved.LastName)
}

func TestServiceListAuthorsWithTotal(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	for _, name := range []string{"Adams", "Baldwin", "Carver"} {
		require.NoError(t, svc.CreateAuthor(ctx, &models.Author{FirstName: "Test", LastName: name}))
	}

	limit := 2
	offset := 0
	authors, total, err := svc.ListAuthorsWithTotal(ctx, ListAuthorsOptions{Limit: &limit, Offset: &offset})
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	assert.Len(t, authors, 2)
}

func TestServiceDeleteAuthor_BlockedByBooks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := &models.Author{FirstName: "Ursula", LastName: "Le Guin"}
	require.NoError(t, svc.CreateAuthor(ctx, author))
	seedBook(ctx, t, db, "The Dispossessed", "9780061054884", author.ID)

	err := svc.DeleteAuthor(ctx, author.ID)
	require.Error(t, err)

	cerr := &errcodes.Error{}
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 409, cerr.HTTPCode)
	assert.Equal(t, "delete_blocked", cerr.Code)

	// Still there.
	_, err = svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &author.ID})
	require.NoError(t, err)
}

func TestServiceDeleteAuthor_NoBooks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := &models.Author{FirstName: "No", LastName: "Books"}
	require.NoError(t, svc.CreateAuthor(ctx, author))

	require.NoError(t, svc.DeleteAuthor(ctx, author.ID))

	_, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &author.ID})
	require.Error(t, err)
}

func TestServiceGetBooks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := &models.Author{FirstName: "James", LastName: "Baldwin"}
	require.NoError(t, svc.CreateAuthor(ctx, author))
	other := &models.Author{FirstName: "Toni", LastName: "Morrison"}
	require.NoError(t, svc.CreateAuthor(ctx, other))

	seedBook(ctx, t, db, "Giovanni's Room", "9780345806567", author.ID)
	seedBook(ctx, t, db, "Beloved", "9781400033416", other.ID)

	books, err := svc.GetBooks(ctx, author.ID)
	require.NoError(t, err)

	require.Len(t, books, 1)
	assert.Equal(t, "Giovanni's Room", books[0].Title)
}
