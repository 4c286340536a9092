package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
	"github.com/shuttlepass/ticket-portal/internal/infrastructure/memory"
)

// stubIdentity is a hand-rolled IdentityAPI that counts identity checks.
type stubIdentity struct {
	mu      sync.Mutex
	meCalls int

	loginFn    func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	registerFn func(ctx context.Context, in ports.RegisterInput) error
	meFn       func(ctx context.Context, token string) (*domain.User, error)
}

func (s *stubIdentity) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubIdentity) Register(ctx context.Context, in ports.RegisterInput) error {
	return s.registerFn(ctx, in)
}

func (s *stubIdentity) Me(ctx context.Context, token string) (*domain.User, error) {
	s.mu.Lock()
	s.meCalls++
	s.mu.Unlock()
	return s.meFn(ctx, token)
}

func (s *stubIdentity) MeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meCalls
}

// accounts maps tokens to users for stubIdentity.Me and emails to tokens for Login.
type accounts map[string]domain.User

func (a accounts) identity() *stubIdentity {
	return &stubIdentity{
		loginFn: func(_ context.Context, email, _ string) (*ports.LoginResult, error) {
			for tok, u := range a {
				if u.Email == email {
					return &ports.LoginResult{Token: tok, User: u}, nil
				}
			}
			return nil, domain.ErrInvalidCredentials
		},
		meFn: func(_ context.Context, token string) (*domain.User, error) {
			u, ok := a[token]
			if !ok {
				return nil, domain.ErrSessionExpired
			}
			return &u, nil
		},
		registerFn: func(context.Context, ports.RegisterInput) error { return nil },
	}
}

var (
	ana   = domain.User{ID: "7", FirstName: "Ana", LastName: "Diaz", Email: "user@user.com", Role: domain.RoleUsuario}
	root  = domain.User{ID: "1", FirstName: "Root", LastName: "Admin", Email: "admin@admin.com", Role: domain.RoleAdmin}
	pedro = domain.User{ID: "3", FirstName: "Pedro", LastName: "Paz", Email: "chofer@chofer.com", Role: domain.RoleChofer}
)

func newResolver(api ports.IdentityAPI, opts ...ResolverOption) *Resolver {
	opts = append([]ResolverOption{WithRetryInterval(time.Millisecond)}, opts...)
	return NewResolver(api, zerolog.Nop(), opts...)
}

func newTestSession(provider *memory.Provider, profile, tab string, api ports.IdentityAPI) *Session {
	return NewSession(profile, tab, SessionDeps{
		Store:    NewTokenStore(provider.Store(profile), provider.Bus(profile), tab, zerolog.Nop()),
		Resolver: newResolver(api),
		Identity: api,
		Audit:    NopRecorder{},
		Log:      zerolog.Nop(),
	})
}

func stored(t *testing.T, provider *memory.Provider, profile string) map[string]string {
	t.Helper()
	vals, err := provider.Store(profile).Get(context.Background(), domain.KeyAccessToken, domain.KeyUser)
	require.NoError(t, err)
	return vals
}

func seedToken(t *testing.T, provider *memory.Provider, profile, token string, u domain.User) {
	t.Helper()
	require.NoError(t, provider.Store(profile).Set(context.Background(), map[string]string{
		domain.KeyAccessToken: token,
		domain.KeyUser:        u.Summary().Encode(),
	}))
}
