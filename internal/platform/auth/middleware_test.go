package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newAuthedContext(t *testing.T, iss *TokenIssuer, email, role string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	token, err := iss.Issue(email, role)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	iss := NewTokenIssuer("test-secret", 30)
	c, _ := newAuthedContext(t, iss, "alice@example.com", "buyer")

	var gotEmail, gotRole string
	handler := JWTMiddleware(iss)(func(c echo.Context) error {
		gotEmail = EmailFromContext(c.Request().Context())
		gotRole = RoleFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if gotEmail != "alice@example.com" {
		t.Errorf("email = %q", gotEmail)
	}
	if gotRole != "buyer" {
		t.Errorf("role = %q", gotRole)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	iss := NewTokenIssuer("test-secret", 30)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	handler := JWTMiddleware(iss)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	err := handler(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_BadScheme(t *testing.T) {
	iss := NewTokenIssuer("test-secret", 30)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	c := e.NewContext(req, httptest.NewRecorder())

	handler := JWTMiddleware(iss)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	err := handler(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		userRole string
		required []string
		allow    bool
	}{
		{"matching role", "buyer", []string{"buyer"}, true},
		{"one of several", "patient", []string{"patient", "buyer"}, true},
		{"admin bypasses", "admin", []string{"buyer"}, true},
		{"wrong role", "patient", []string{"buyer"}, false},
		{"no role", "", []string{"buyer"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			ctx := context.WithValue(req.Context(), UserRoleKey, tt.userRole)
			req = req.WithContext(ctx)
			c := e.NewContext(req, httptest.NewRecorder())

			handler := RequireRole(tt.required...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})

			err := handler(c)
			if tt.allow && err != nil {
				t.Errorf("expected allow, got %v", err)
			}
			if !tt.allow {
				he, ok := err.(*echo.HTTPError)
				if !ok || he.Code != http.StatusForbidden {
					t.Errorf("expected 403, got %v", err)
				}
			}
		})
	}
}
