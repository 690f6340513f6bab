package marketplace

import (
	"context"
	"errors"
	"net/http"
	"strconv"

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

// RegisterRoutes attaches marketplace endpoints to an authenticated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/marketplace/listings", h.Listings)
	api.GET("/marketplace/search", h.Search)
	api.GET("/marketplace/recommendations", h.Recommendations)
	api.GET("/marketplace/stats", h.Stats)
	api.GET("/marketplace/fees", h.Fees)
	api.POST("/marketplace/validate", h.Validate)
	api.POST("/marketplace/purchase", h.Purchase)
}

func (h *Handler) currentUser(c echo.Context) (*identity.User, error) {
	email := auth.EmailFromContext(c.Request().Context())
	u, err := h.users.GetByEmail(c.Request().Context(), email)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	return u, nil
}

func (h *Handler) Listings(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	listings, total, err := h.svc.ListListings(c.Request().Context(), u.ID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(listings, total, pg.Limit, pg.Offset))
}

func (h *Handler) Search(c echo.Context) error {
	if _, err := h.currentUser(c); err != nil {
		return err
	}

	params := SearchParams{
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
	}
	if v := c.QueryParam("min_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid min_price")
		}
		params.MinPrice = &p
	}
	if v := c.QueryParam("max_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid max_price")
		}
		params.MaxPrice = &p
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		params.Limit = n
	}

	listings, err := h.svc.Search(c.Request().Context(), params)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, listings)
}

func (h *Handler) Recommendations(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	limit := 10
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	results, err := h.svc.Recommend(c.Request().Context(), u, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) Stats(c echo.Context) error {
	if _, err := h.currentUser(c); err != nil {
		return err
	}
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) Fees(c echo.Context) error {
	if _, err := h.currentUser(c); err != nil {
		return err
	}
	price, err := strconv.ParseFloat(c.QueryParam("price"), 64)
	if err != nil || price < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid price")
	}
	return c.JSON(http.StatusOK, h.svc.Fees(price))
}

func (h *Handler) Validate(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	var req PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.svc.Validate(c.Request().Context(), u, req.DatasetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Purchase(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	var req PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.Purchase(c.Request().Context(), u, req.DatasetID)
	if err != nil {
		var pe *PurchaseError
		switch {
		case errors.Is(err, ErrListingNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.As(err, &pe):
			return echo.NewHTTPError(http.StatusBadRequest, pe.Errors)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
