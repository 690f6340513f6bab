package dataset

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mist/datasteward/internal/domain/identity"
	"github.com/mist/datasteward/internal/platform/auth"
	"github.com/mist/datasteward/internal/platform/blobstore"
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

// RegisterRoutes attaches dataset endpoints to an authenticated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/datasets/upload", h.Upload)
	api.GET("/datasets", h.List)
	api.GET("/datasets/:id", h.Get)
	api.PUT("/datasets/:id", h.Update)
	api.DELETE("/datasets/:id", h.Delete)
	api.GET("/datasets/:id/mappings", h.Mappings)
	api.POST("/consent", h.Consent)
}

func (h *Handler) currentUser(c echo.Context) (*identity.User, error) {
	email := auth.EmailFromContext(c.Request().Context())
	u, err := h.users.GetByEmail(c.Request().Context(), email)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	return u, nil
}

func (h *Handler) Upload(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer src.Close()

	d, err := h.svc.Upload(c.Request().Context(), u.ID, fh.Filename, src)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrFileTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, ErrUnsupportedFormat):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, UploadResponse{
		DatasetID: d.ID,
		FileName:  d.FileName,
		FileSize:  d.FileSize,
		Status:    d.Status,
		Message:   "File uploaded successfully. Processing will begin shortly.",
	})
}

func (h *Handler) List(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	datasets, total, err := h.svc.List(c.Request().Context(), u.ID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(datasets, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), u.ID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "dataset not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Update(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.Update(c.Request().Context(), u.ID, id, &req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "dataset not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Delete(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), u.ID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "dataset not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Dataset deleted successfully"})
}

func (h *Handler) Mappings(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	mappings, err := h.svc.Mappings(c.Request().Context(), u.ID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "dataset not found")
	}
	return c.JSON(http.StatusOK, mappings)
}

func (h *Handler) Consent(c echo.Context) error {
	u, err := h.currentUser(c)
	if err != nil {
		return err
	}
	var req ConsentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp, err := h.svc.Consent(c.Request().Context(), u.ID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "dataset not found")
		case errors.Is(err, ErrConsentNotAgreed):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}
