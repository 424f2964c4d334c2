package borrows

import (
	"github.com/bibliodesk/bibliodesk/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers borrow routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config) {
	h := &handler{borrowService: NewService(db, cfg)}

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/overdue", h.overdue)
	g.GET("/:id", h.retrieve)
	g.POST("/:id/return", h.returnBook)
	g.DELETE("/:id", h.deleteBorrow)
}
