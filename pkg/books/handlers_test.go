package books

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/bibliodesk/bibliodesk/pkg/binder"
	"github.com/bibliodesk/bibliodesk/pkg/errcodes"
	"github.com/bibliodesk/bibliodesk/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooksTestContext(t *testing.T, method, path, payload string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	if payload != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr), rr
}

func TestHandlerCreate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	h := &handler{bookService: NewService(db)}
	ctx := context.Background()

	author := seedAuthor(ctx, t, db, "Octavia", "Butler")

	payload := `{"title":"Kindred","publication_year":1979,"isbn":"9780807083697","quantity":3,"author_ids":[` + strconv.Itoa(author.ID) + `]}`
	c, rr := newBooksTestContext(t, http.MethodPost, "/books", payload)

	err := h.create(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rr.Code)

	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Kindred", body["title"])
	assert.Equal(t, float64(3), body["quantity"])
}

func TestHandlerCreate_MissingAuthors(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	h := &handler{bookService: NewService(db)}

	payload := `{"title":"No Authors","isbn":"9780000000020"}`
	c, _ := newBooksTestContext(t, http.MethodPost, "/books", payload)

	err := h.create(c)
	require.Error(t, err)

	cerr := &errcodes.Error{}
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusUnprocessableEntity, cerr.HTTPCode)
}

func TestHandlerUpdate_OmittedRelationsUntouched(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	h := &handler{bookService: NewService(db)}
	ctx := context.Background()

	author := seedAuthor(ctx, t, db, "Kept", "Author")
	category := seedCategory(ctx, t, db, "Kept Category")

	book := &models.Book{Title: "Before", ISBN: "9780000000021"}
	require.NoError(t, h.bookService.CreateBook(ctx, book, []int{author.ID}, []int{category.ID}))

	c, rr := newBooksTestContext(t, http.MethodPatch, "/books/"+strconv.Itoa(book.ID), `{"title":"After"}`)
	c.SetPath("/books/:id")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(book.ID))

	require.NoError(t, h.update(c))
	assert.Equal(t, http.StatusOK, rr.Code)

	reloaded, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "After", reloaded.Title)
	assert.Len(t, reloaded.Authors, 1)
	assert.Len(t, reloaded.Categories, 1)
}

func TestHandlerUpdate_EmptyArrayClearsRelations(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	h := &handler{bookService: NewService(db)}
	ctx := context.Background()

	author := seedAuthor(ctx, t, db, "Dropped", "Author")
	category := seedCategory(ctx, t, db, "Dropped Category")

	book := &models.Book{Title: "Linked", ISBN: "9780000000022"}
	require.NoError(t, h.bookService.CreateBook(ctx, book, []int{author.ID}, []int{category.ID}))

	c, rr := newBooksTestContext(t, http.MethodPatch, "/books/"+strconv.Itoa(book.ID), `{"category_ids":[]}`)
	c.SetPath("/books/:id")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(book.ID))

	require.NoError(t, h.update(c))
	assert.Equal(t, http.StatusOK, rr.Code)

	reloaded, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Len(t, reloaded.Authors, 1)
	assert.Empty(t, reloaded.Categories)
}

func TestHandlerAvailability(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	h := &handler{bookService: NewService(db)}
	ctx := context.Background()

	author := seedAuthor(ctx, t, db, "Solo", "Writer")

	book := &models.Book{Title: "On Shelf", ISBN: "9780000000023", Quantity: 2}
	require.NoError(t, h.bookService.CreateBook(ctx, book, []int{author.ID}, nil))

	c, rr := newBooksTestContext(t, http.MethodGet, "/books/"+strconv.Itoa(book.ID)+"/availability", "")
	c.SetPath("/books/:id/availability")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(book.ID))

	require.NoError(t, h.availability(c))
	assert.Equal(t, http.StatusOK, rr.Code)

	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["available_copies"])
	assert.Equal(t, true, body["is_available"])
}
