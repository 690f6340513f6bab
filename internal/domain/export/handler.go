package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
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

// RegisterRoutes attaches export endpoints to an authenticated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/exports", h.Create)
	api.GET("/exports", h.List)
	api.GET("/exports/:id/download", h.Download)
}

func (h *Handler) currentUser(c echo.Context) (*identity.User, error) {
	email := auth.EmailFromContext(c.Request().Context())
	u, err := h.users.GetByEmail(c.Request().Context(), email)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	return u, nil
}

func (h *Handler) Create(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.Create(c.Request().Context(), u.ID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotNormalized), errors.Is(err, ErrUnsupportedFormat):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) List(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	exports, total, err := h.svc.List(c.Request().Context(), u.ID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(exports, total, pg.Limit, pg.Offset))
}

func (h *Handler) Download(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	rc, e, err := h.svc.Download(c.Request().Context(), u.ID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrExpired):
			return echo.NewHTTPError(http.StatusGone, err.Error())
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "export not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, e.FileName))
	return c.Stream(http.StatusOK, echo.MIMEOctetStream, rc)
}
