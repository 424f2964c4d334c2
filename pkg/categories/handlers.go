package categories

import (
	"net/http"
	"strconv"

	"github.com/bibliodesk/bibliodesk/pkg/errcodes"
	"github.com/bibliodesk/bibliodesk/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	categoryService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateCategoryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	category := &models.Category{
		Name:        params.Name,
		Description: params.Description,
	}
	if err := h.categoryService.CreateCategory(ctx, category); err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusCreated, category))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListCategoriesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	categories, total, err := h.categoryService.ListCategoriesWithTotal(ctx, ListCategoriesOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return err
	}

	response := map[string]any{
		"categories": categories,
		"total":      total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Category")
	}

	category, err := h.categoryService.RetrieveCategory(ctx, RetrieveCategoryOptions{ID: &id})
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, category))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Category")
	}

	params := UpdateCategoryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	category, err := h.categoryService.RetrieveCategory(ctx, RetrieveCategoryOptions{ID: &id})
	if err != nil {
		return err
	}

	columns := []string{}
	if params.Name != nil {
		category.Name = *params.Name
		columns = append(columns, "name")
	}
	if params.Description != nil {
		category.Description = params.Description
		columns = append(columns, "description")
	}

	if err := h.categoryService.UpdateCategory(ctx, category, UpdateCategoryOptions{Columns: columns}); err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, category))
}

func (h *handler) deleteCategory(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Category")
	}

	if _, err := h.categoryService.RetrieveCategory(ctx, RetrieveCategoryOptions{ID: &id}); err != nil {
		return err
	}

	if err := h.categoryService.DeleteCategory(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *handler) books(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Category")
	}

	if _, err := h.categoryService.RetrieveCategory(ctx, RetrieveCategoryOptions{ID: &id}); err != nil {
		return err
	}

	books, err := h.categoryService.GetBooks(ctx, id)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, books))
}
