package borrows

import (
	"net/http"
	"strconv"

	"github.com/bibliodesk/bibliodesk/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	borrowService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := BorrowBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	borrow, err := h.borrowService.BorrowBook(ctx, params.BookID, params.UserID)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusCreated, borrow))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBorrowsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	borrows, total, err := h.borrowService.ListBorrowsWithTotal(ctx, ListBorrowsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		UserID: params.UserID,
		BookID: params.BookID,
		Status: params.Status,
	})
	if err != nil {
		return err
	}

	response := map[string]any{
		"borrows": borrows,
		"total":   total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Borrow record")
	}

	borrow, err := h.borrowService.RetrieveBorrow(ctx, RetrieveBorrowOptions{ID: &id})
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, borrow))
}

func (h *handler) returnBook(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Borrow record")
	}

	borrow, fine, err := h.borrowService.ReturnBook(ctx, id)
	if err != nil {
		return err
	}

	response := map[string]any{
		"borrow": borrow,
		"fine":   fine,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) overdue(c echo.Context) error {
	ctx := c.Request().Context()

	borrows, err := h.borrowService.SweepOverdue(ctx)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, borrows))
}

func (h *handler) deleteBorrow(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Borrow record")
	}

	if err := h.borrowService.DeleteBorrow(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
