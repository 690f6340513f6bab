package admin

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mist/datasteward/internal/domain/identity"
	"github.com/mist/datasteward/internal/platform/auth"
	"github.com/mist/datasteward/pkg/pagination"
)

// UserDirectory resolves the authenticated principal to a user record.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*identity.User, error)
}

type Handler struct {
	svc   *Service
	users UserDirectory
}

func NewHandler(svc *Service, users UserDirectory) *Handler {
	return &Handler{svc: svc, users: users}
}

// RegisterRoutes attaches the dashboard endpoint to the authenticated group
// and the admin endpoints behind a role check.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard/stats", h.Dashboard)

	adm := api.Group("/admin", auth.RequireRole(identity.RoleAdmin))
	adm.GET("/users", h.Users)
	adm.GET("/stats", h.PlatformStats)
}

func (h *Handler) currentUser(c echo.Context) (*identity.User, error) {
	email := auth.EmailFromContext(c.Request().Context())
	u, err := h.users.GetByEmail(c.Request().Context(), email)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	return u, nil
}

func (h *Handler) Dashboard(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.svc.Dashboard(c.Request().Context(), u)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) Users(c echo.Context) error {
	pg := pagination.FromContext(c)
	users, total, err := h.svc.ListUsers(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, pg.Limit, pg.Offset))
}

func (h *Handler) PlatformStats(c echo.Context) error {
	stats, err := h.svc.PlatformStats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
