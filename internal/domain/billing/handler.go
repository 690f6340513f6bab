package billing

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

// RegisterRoutes attaches billing endpoints to an authenticated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/billing/transactions", h.ListTransactions)
	api.GET("/billing/earnings", h.Earnings)
	api.GET("/billing/invoices", h.ListInvoices)
}

func (h *Handler) currentUser(c echo.Context) (*identity.User, error) {
	email := auth.EmailFromContext(c.Request().Context())
	u, err := h.users.GetByEmail(c.Request().Context(), email)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	return u, nil
}

func (h *Handler) ListTransactions(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	records, total, err := h.svc.ListTransactions(c.Request().Context(), u.ID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(records, total, pg.Limit, pg.Offset))
}

func (h *Handler) Earnings(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	summary, err := h.svc.Earnings(c.Request().Context(), u)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	invoices, total, err := h.svc.ListInvoices(c.Request().Context(), u.ID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(invoices, total, pg.Limit, pg.Offset))
}
