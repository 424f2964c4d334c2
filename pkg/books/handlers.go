package books

import (
	"net/http"
	"strconv"

	"github.com/bibliodesk/bibliodesk/pkg/errcodes"
	"github.com/bibliodesk/bibliodesk/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	bookService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		Title:           params.Title,
		PublicationYear: params.PublicationYear,
		ISBN:            params.ISBN,
	}
	if params.Quantity != nil {
		book.Quantity = *params.Quantity
	}

	if err := h.bookService.CreateBook(ctx, book, params.AuthorIDs, params.CategoryIDs); err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:      &params.Limit,
		Offset:     &params.Offset,
		Title:      params.Title,
		AuthorID:   params.AuthorID,
		CategoryID: params.CategoryID,
	})
	if err != nil {
		return err
	}

	response := map[string]any{
		"books": books,
		"total": total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return err
	}

	opts := UpdateBookOptions{}
	if params.Title != nil {
		book.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.PublicationYear != nil {
		book.PublicationYear = *params.PublicationYear
		opts.Columns = append(opts.Columns, "publication_year")
	}
	if params.ISBN != nil {
		book.ISBN = *params.ISBN
		opts.Columns = append(opts.Columns, "isbn")
	}
	if params.Quantity != nil {
		book.Quantity = *params.Quantity
		opts.Columns = append(opts.Columns, "quantity")
	}
	if params.AuthorIDs != nil {
		opts.AuthorIDs = params.AuthorIDs
		opts.UpdateAuthors = true
	}
	if params.CategoryIDs != nil {
		opts.CategoryIDs = params.CategoryIDs
		opts.UpdateCategories = true
	}

	if err := h.bookService.UpdateBook(ctx, book, opts); err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) deleteBook(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	if _, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id}); err != nil {
		return err
	}

	if err := h.bookService.DeleteBook(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *handler) availability(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return err
	}

	available, err := h.bookService.AvailableCopies(ctx, book.ID)
	if err != nil {
		return err
	}

	response := map[string]any{
		"book_id":          book.ID,
		"total_copies":     book.Quantity,
		"available_copies": available,
		"is_available":     available > 0,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}
