package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/toolkitvision/toolcheck-go/internal/datastore"
	"github.com/toolkitvision/toolcheck-go/internal/errors"
	"github.com/toolkitvision/toolcheck-go/internal/security"
)

const engineerContextKey = "engineer"

// initAuthRoutes registers login/logout/identity endpoints.
func (c *Controller) initAuthRoutes() {
	auth := c.Group.Group("/auth")
	auth.POST("/login", c.Login)
	auth.POST("/logout", c.Logout, c.RequireAuth)
	auth.GET("/me", c.CurrentEngineer, c.RequireAuth)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	Engineer    engineerResponse `json:"engineer"`
}

type engineerResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func toEngineerResponse(e *datastore.Engineer) engineerResponse {
	return engineerResponse{ID: e.ID, Username: e.Username, Role: e.Role}
}

// Login exchanges credentials for a bearer token.
func (c *Controller) Login(ctx echo.Context) error {
	var req loginRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid login payload", http.StatusBadRequest)
	}

	token, engineer, err := c.Auth.Authenticate(req.Username, req.Password)
	if err != nil {
		return c.HandleError(ctx, err, "Login failed", 0)
	}

	return ctx.JSON(http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Engineer:    toEngineerResponse(&engineer),
	})
}

// Logout revokes the presented bearer token.
func (c *Controller) Logout(ctx echo.Context) error {
	token := bearerToken(ctx)
	if err := c.Auth.RevokeToken(token); err != nil {
		return c.HandleError(ctx, err, "Logout failed", 0)
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "logged_out"})
}

// CurrentEngineer returns the account behind the bearer token.
func (c *Controller) CurrentEngineer(ctx echo.Context) error {
	engineer, ok := ctx.Get(engineerContextKey).(datastore.Engineer)
	if !ok {
		return c.HandleError(ctx, errors.NewStd("no engineer in context"), "Not authenticated", http.StatusUnauthorized)
	}
	return ctx.JSON(http.StatusOK, toEngineerResponse(&engineer))
}

// RequireAuth rejects requests without a valid bearer token.
func (c *Controller) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token := bearerToken(ctx)
		engineer, err := c.Auth.EngineerByToken(token)
		if err != nil {
			return c.HandleError(ctx, err, "Authentication required", http.StatusUnauthorized)
		}
		ctx.Set(engineerContextKey, engineer)
		return next(ctx)
	}
}

// RequireAdmin rejects authenticated requests from non-admin accounts.
func (c *Controller) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		engineer, ok := ctx.Get(engineerContextKey).(datastore.Engineer)
		if !ok || engineer.Role != security.RoleAdmin {
			return c.HandleError(ctx, errors.NewStd("admin role required"), "Forbidden", http.StatusForbidden)
		}
		return next(ctx)
	}
}

// OptionalAuth attaches the engineer to the context when a valid token
// is present, and lets anonymous requests through.
func (c *Controller) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if token := bearerToken(ctx); token != "" {
			if engineer, err := c.Auth.EngineerByToken(token); err == nil {
				ctx.Set(engineerContextKey, engineer)
			}
		}
		return next(ctx)
	}
}

func bearerToken(ctx echo.Context) string {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// engineerID returns the id of the authenticated engineer, or nil.
func engineerID(ctx echo.Context) *uint {
	engineer, ok := ctx.Get(engineerContextKey).(datastore.Engineer)
	if !ok {
		return nil
	}
	id := engineer.ID
	return &id
}
