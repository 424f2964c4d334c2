package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bibliodesk/bibliodesk/pkg/authors"
	"github.com/bibliodesk/bibliodesk/pkg/binder"
	"github.com/bibliodesk/bibliodesk/pkg/books"
	"github.com/bibliodesk/bibliodesk/pkg/borrows"
	"github.com/bibliodesk/bibliodesk/pkg/categories"
	"github.com/bibliodesk/bibliodesk/pkg/config"
	"github.com/bibliodesk/bibliodesk/pkg/errcodes"
	"github.com/bibliodesk/bibliodesk/pkg/users"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	authors.RegisterRoutesWithGroup(e.Group("/authors"), db)
	categories.RegisterRoutesWithGroup(e.Group("/categories"), db)
	users.RegisterRoutesWithGroup(e.Group("/users"), db)
	books.RegisterRoutesWithGroup(e.Group("/books"), db)
	borrows.RegisterRoutesWithGroup(e.Group("/borrows"), db, cfg)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
