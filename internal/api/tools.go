package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/toolkitvision/toolcheck-go/internal/catalog"
)

// ListTools returns the fixed tool catalog.
func (c *Controller) ListTools(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"tools": catalog.Tools(),
		"count": catalog.Size(),
	})
}

// DescribeDetector reports which detection backend is active and how
// it is configured.
func (c *Controller) DescribeDetector(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Backend.Describe())
}
