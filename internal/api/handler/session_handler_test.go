package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/api/middleware"
	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
	"github.com/shuttlepass/ticket-portal/internal/core/service"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/memory"
)

type stubIdentity struct {
	me func(ctx context.Context, token string) (*domain.User, error)
}

func (s stubIdentity) Login(context.Context, string, string) (*ports.LoginResult, error) {
	return nil, domain.ErrInvalidCredentials
}

func (s stubIdentity) Register(context.Context, ports.RegisterInput) error { return nil }

func (s stubIdentity) Me(ctx context.Context, token string) (*domain.User, error) {
	return s.me(ctx, token)
}

type fixedOpener struct {
	sess *service.Session
}

func (o fixedOpener) Open(string, string) (*service.Session, error) { return o.sess, nil }

func (o fixedOpener) Close(string, string) error { return nil }

func storedSession(t *testing.T, api ports.IdentityAPI, token string) *service.Session {
	t.Helper()
	provider := memory.NewProvider(zerolog.Nop())
	err := provider.Store("p").Set(context.Background(), map[string]string{domain.KeyAccessToken: token})
	if err != nil {
		t.Fatalf("seed token: %v", err)
	}
	return service.NewSession("p", "main", service.SessionDeps{
		Store:    service.NewTokenStore(provider.Store("p"), provider.Bus("p"), "main", zerolog.Nop()),
		Resolver: service.NewResolver(api, zerolog.Nop(), service.WithRetryInterval(time.Millisecond)),
		Identity: api,
		Audit:    service.NopRecorder{},
		Log:      zerolog.Nop(),
	})
}

func TestSessionHandler_Refresh_SurvivesClientHangUp(t *testing.T) {
	api := stubIdentity{me: func(context.Context, string) (*domain.User, error) {
		time.Sleep(20 * time.Millisecond)
		return &domain.User{ID: "7", FirstName: "Ana", Role: domain.RoleUsuario}, nil
	}}
	sess := storedSession(t, api, "tok123")
	opener := fixedOpener{sess: sess}
	h := NewSessionHandler(opener)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/session/refresh", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := middleware.Tab(opener, false)(h.Refresh)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["state"] != "authenticated" {
		t.Fatalf("expected authenticated after refresh, got %v", resp)
	}
	if _, ok := sess.State().(domain.Authenticated); !ok {
		t.Fatalf("session left in %T", sess.State())
	}
}

func TestSessionHandler_Refresh_ExpiredToken(t *testing.T) {
	api := stubIdentity{me: func(context.Context, string) (*domain.User, error) {
		return nil, domain.ErrSessionExpired
	}}
	opener := fixedOpener{sess: storedSession(t, api, "stale")}
	h := NewSessionHandler(opener)

	req := httptest.NewRequest(http.MethodPost, "/session/refresh", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := middleware.Tab(opener, false)(h.Refresh)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["state"] != "unauthenticated" || resp["reason"] != "expired" {
		t.Fatalf("unexpected response: %v", resp)
	}
}
