package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// initAdminRoutes registers admin-only endpoints.
func (c *Controller) initAdminRoutes() {
	admin := c.Group.Group("/admin", c.RequireAuth, c.RequireAdmin)
	admin.GET("/sessions", c.ListSessions)
	admin.GET("/dashboard", c.DashboardOverview)
}

// ListSessions returns all sessions, newest first.
func (c *Controller) ListSessions(ctx echo.Context) error {
	sessions, err := c.Sessions.List()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list sessions", 0)
	}

	out := make([]sessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionResponse(&sessions[i]))
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"sessions": out,
		"count":    len(out),
	})
}

// DashboardOverview returns aggregate session activity.
func (c *Controller) DashboardOverview(ctx echo.Context) error {
	overview, err := c.Dashboard.Build()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to build dashboard", 0)
	}
	return ctx.JSON(http.StatusOK, overview)
}
