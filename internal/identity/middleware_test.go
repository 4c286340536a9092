package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

func TestBearer_ValidToken(t *testing.T) {
	svc := newTestService()
	_ = svc.Seed(context.Background(), DefaultSeeds())
	token, _, err := svc.Login(context.Background(), "chofer@chofer.com", "123456cho")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Bearer(svc)(func(c echo.Context) error {
		called = true
		if c.Get(ctxRole) != domain.RoleChofer {
			t.Fatalf("role not set")
		}
		acc, err := accountFrom(c)
		if err != nil || acc.Email != "chofer@chofer.com" {
			t.Fatalf("account not set: %v", err)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
}

func TestBearer_Rejects(t *testing.T) {
	svc := newTestService()
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Token abc",
		"empty token":    "Bearer ",
		"invalid token":  "Bearer not-a-token",
	}

	for name, header := range cases {
		e := echo.New()
		e.HTTPErrorHandler = NewErrorHandler(zerolog.Nop())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := Bearer(svc)(func(c echo.Context) error {
			t.Fatalf("%s: should not reach next", name)
			return nil
		})
		if err := handler(c); err != nil {
			e.HTTPErrorHandler(err, c)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestRBAC_Allows(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.Set(ctxRole, domain.RoleAdmin)

	called := false
	handler := RBAC(domain.RoleAdmin)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}

func TestRBAC_Forbids(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.Set(ctxRole, domain.RoleChofer)

	handler := RBAC(domain.RoleAdmin)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	_ = handler(c)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
