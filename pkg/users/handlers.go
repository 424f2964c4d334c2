package users

import (
	"net/http"
	"strconv"

	"github.com/bibliodesk/bibliodesk/pkg/errcodes"
	"github.com/bibliodesk/bibliodesk/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	userService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user := &models.User{
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Email:     params.Email,
	}
	if err := h.userService.CreateUser(ctx, user); err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusCreated, user))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListUsersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	users, total, err := h.userService.ListUsersWithTotal(ctx, ListUsersOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return err
	}

	response := map[string]any{
		"users": users,
		"total": total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	user, err := h.userService.RetrieveUser(ctx, RetrieveUserOptions{ID: &id})
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := UpdateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.RetrieveUser(ctx, RetrieveUserOptions{ID: &id})
	if err != nil {
		return err
	}

	columns := []string{}
	if params.FirstName != nil {
		user.FirstName = *params.FirstName
		columns = append(columns, "first_name")
	}
	if params.LastName != nil {
		user.LastName = *params.LastName
		columns = append(columns, "last_name")
	}
	if params.Email != nil {
		user.Email = *params.Email
		columns = append(columns, "email")
	}
	if params.IsActive != nil {
		user.IsActive = *params.IsActive
		columns = append(columns, "is_active")
	}

	if err := h.userService.UpdateUser(ctx, user, UpdateUserOptions{Columns: columns}); err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) deleteUser(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	if _, err := h.userService.RetrieveUser(ctx, RetrieveUserOptions{ID: &id}); err != nil {
		return err
	}

	if err := h.userService.DeleteUser(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
