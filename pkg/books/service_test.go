package books

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

func seedAuthor(ctx context.Context, t *testing.T, db *bun.DB, firstName, lastName string) *models.Author {
	t.Helper()

	now := time.Now()
	author := &models.Author{FirstName: firstName, LastName: lastName, CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(author).Exec(ctx)
	require.NoError(t, err)
	return author
}

func seedCategory(ctx context.Context, t *testing.T, db *bun.DB, name string) *models.Category {
	t.Helper()

	now := time.Now()
	category := &models.Category{Name: name, CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(category).Exec(ctx)
	require.NoError(t, err)
	return category
}

func seedUser(ctx context.Context, t *testing.T, db *bun.DB, email string) *models.User {
	t.Helper()

	now := time.Now()
	user := &models.User{
		FirstName:        "Test",
		LastName:         "Reader",
		Email:            email,
		RegistrationDate: now,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)
	return user
}

func linkedAuthorIDs(book *models.Book) []int {
	ids := make([]int, 0, len(book.Authors))
	for _, a := range book.Authors {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestServiceCreateBook_SyncsRelations(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := seedAuthor(ctx, t, db, "Octavia", "Butler")
	category := seedCategory(ctx, t, db, "Science Fiction")

	book := &models.Book{Title: "Kindred", PublicationYear: 1979, ISBN: "9780807083697", Quantity: 1}
	err := svc.CreateBook(ctx, book, []int{author.ID}, []int{category.ID})
	require.NoError(t, err)

	assert.NotZero(t, book.ID)
	assert.Equal(t, 1, book.Quantity)
	require.Len(t, book.Authors, 1)
	assert.Equal(t, "Butler", book.Authors[0].LastName)
	require.Len(t, book.Categories, 1)
	assert.Equal(t, "Science Fiction", book.Categories[0].Name)
}

func TestServiceCreateBook_MissingAuthorRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	book := &models.Book{Title: "Orphaned", ISBN: "9780000000010"}
	err := svc.CreateBook(ctx, book, []int{424242}, nil)
	require.Error(t, err)

	cerr := &errcodes.Error{}
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 404, cerr.HTTPCode)
	assert.Contains(t, cerr.Message, "Author with ID 424242")

	// The failed sync must not leave the book behind.
	count, err := db.NewSelect().Model((*models.Book)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestServiceCreateBook_DuplicateISBN(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := seedAuthor(ctx, t, db, "N.K.", "Jemisin")

	first := &models.Book{Title: "The Fifth Season", ISBN: "9780316229296"}
	require.NoError(t, svc.CreateBook(ctx, first, []int{author.ID}, nil))

	second := &models.Book{Title: "Different Title", ISBN: "9780316229296"}
	err := svc.CreateBook(ctx, second, []int{author.ID}, nil)
	require.Error(t, err)

	cerr := &errcodes.Error{}
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 409, cerr.HTTPCode)
	assert.Equal(t, "conflict", cerr.Code)
}

func TestServiceUpdateBook_ReplacesAuthors(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	original := seedAuthor(ctx, t, db, "First", "Author")
	replacement := seedAuthor(ctx, t, db, "Second", "Author")
	third := seedAuthor(ctx, t, db, "Third", "Author")

	book := &models.Book{Title: "Anthology", ISBN: "9780000000011"}
	require.NoError(t, svc.CreateBook(ctx, book, []int{original.ID}, nil))

	err := svc.UpdateBook(ctx, book, UpdateBookOptions{
		AuthorIDs:     []int{replacement.ID, third.ID},
		UpdateAuthors: true,
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{replacement.ID, third.ID}, linkedAuthorIDs(book))

	links, err := db.NewSelect().Model((*models.BookAuthorLink)(nil)).Where("book_id = ?", book.ID).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, links)
}

func TestServiceUpdateBook_EmptySliceClearsCategories(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := seedAuthor(ctx, t, db, "Solo", "Writer")
	category := seedCategory(ctx, t, db, "History")

	book := &models.Book{Title: "Cleared", ISBN: "9780000000012"}
	require.NoError(t, svc.CreateBook(ctx, book, []int{author.ID}, []int{category.ID}))
	require.Len(t, book.Categories, 1)

	err := svc.UpdateBook(ctx, book, UpdateBookOptions{
		CategoryIDs:      []int{},
		UpdateCategories: true,
	})
	require.NoError(t, err)

	assert.Empty(t, book.Categories)
	// Authors stay untouched.
	require.Len(t, book.Authors, 1)
}

func TestServiceUpdateBook_MissingCategoryRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := seedAuthor(ctx, t, db, "Solo", "Writer")
	category := seedCategory(ctx, t, db, "Kept")

	book := &models.Book{Title: "Stable", ISBN: "9780000000013"}
	require.NoError(t, svc.CreateBook(ctx, book, []int{author.ID}, []int{category.ID}))

	err := svc.UpdateBook(ctx, book, UpdateBookOptions{
		CategoryIDs:      []int{category.ID, 888888},
		UpdateCategories: true,
	})
	require.Error(t, err)

	cerr := &errcodes.Error{}
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Message, "Category with ID 888888")

	// The rolled-back sync keeps the previous link set.
	reloaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	require.Len(t, reloaded.Categories, 1)
	assert.Equal(t, "Kept", reloaded.Categories[0].Name)
}

func TestServiceUpdateBook_ScalarColumns(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := seedAuthor(ctx, t, db, "Solo", "Writer")

	book := &models.Book{Title: "Old Title", PublicationYear: 1990, ISBN: "9780000000014"}
	require.NoError(t, svc.CreateBook(ctx, book, []int{author.ID}, nil))

	book.Title = "New Title"
	book.Quantity = 7
	err := svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"title", "quantity"}})
	require.NoError(t, err)

	reloaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "New Title", reloaded.Title)
	assert.Equal(t, 7, reloaded.Quantity)
	assert.Equal(t, 1990, reloaded.PublicationYear)
}

func TestServiceListBooks_Filters(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	butler := seedAuthor(ctx, t, db, "Octavia", "Butler")
	jemisin := seedAuthor(ctx, t, db, "N.K.", "Jemisin")
	scifi := seedCategory(ctx, t, db, "Science Fiction")

	kindred := &models.Book{Title: "Kindred", ISBN: "9780807083697"}
	require.NoError(t, svc.CreateBook(ctx, kindred, []int{butler.ID}, []int{scifi.ID}))
	fifth := &models.Book{Title: "The Fifth Season", ISBN: "9780316229296"}
	require.NoError(t, svc.CreateBook(ctx, fifth, []int{jemisin.ID}, nil))

	title := "fifth"
	books, err := svc.ListBooks(ctx, ListBooksOptions{Title: &title})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "The Fifth Season", books[0].Title)

	books, err = svc.ListBooks(ctx, ListBooksOptions{AuthorID: &butler.ID})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Kindred", books[0].Title)

	books, total, err := svc.ListBooksWithTotal(ctx, ListBooksOptions{CategoryID: &scifi.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, books, 1)
	assert.Equal(t, "Kindred", books[0].Title)
}

func TestServiceDeleteBook_RemovesLinks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := seedAuthor(ctx, t, db, "Solo", "Writer")
	category := seedCategory(ctx, t, db, "Linked")

	book := &models.Book{Title: "Doomed", ISBN: "9780000000015"}
	require.NoError(t, svc.CreateBook(ctx, book, []int{author.ID}, []int{category.ID}))

	require.NoError(t, svc.DeleteBook(ctx, book.ID))

	_, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.Error(t, err)

	links, err := db.NewSelect().Model((*models.BookAuthorLink)(nil)).Where("book_id = ?", book.ID).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, links)
}

func TestServiceDeleteBook_BlockedByUnreturnedBorrow(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := seedAuthor(ctx, t, db, "Solo", "Writer")
	user := seedUser(ctx, t, db, "reader@example.com")

	book := &models.Book{Title: "Checked Out", ISBN: "9780000000016"}
	require.NoError(t, svc.CreateBook(ctx, book, []int{author.ID}, nil))

	now := time.Now()
	borrow := &models.BorrowedBook{
		BookID:     book.ID,
		UserID:     user.ID,
		BorrowDate: now,
		DueDate:    now.AddDate(0, 0, 14),
		Status:     models.BorrowStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := db.NewInsert().Model(borrow).Exec(ctx)
	require.NoError(t, err)

	err = svc.DeleteBook(ctx, book.ID)
	require.Error(t, err)

	cerr := &errcodes.Error{}
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "delete_blocked", cerr.Code)
}

func TestServiceAvailableCopies(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := seedAuthor(ctx, t, db, "Solo", "Writer")
	user := seedUser(ctx, t, db, "reader@example.com")

	quantity := 2
	book := &models.Book{Title: "Popular", ISBN: "9780000000017", Quantity: quantity}
	require.NoError(t, svc.CreateBook(ctx, book, []int{author.ID}, nil))

	available, err := svc.AvailableCopies(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, available)

	now := time.Now()
	for _, status := range []string{models.BorrowStatusActive, models.BorrowStatusOverdue} {
		borrow := &models.BorrowedBook{
			BookID:     book.ID,
			UserID:     user.ID,
			BorrowDate: now,
			DueDate:    now.AddDate(0, 0, 14),
			Status:     status,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		_, err := db.NewInsert().Model(borrow).Exec(ctx)
		require.NoError(t, err)
	}

	// Both active and overdue borrows hold a copy.
	available, err = svc.AvailableCopies(ctx, book.ID)
	require.NoError(t, err)
	assert.Zero(t, available)
}
