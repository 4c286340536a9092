package ports

import (
	"context"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

// LoginResult is a successful login: a bearer token and its user.
type LoginResult struct {
	Token string
	User  domain.User
}

// RegisterInput carries a new account's details.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// IdentityAPI is the backend's identity surface.
type IdentityAPI interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Register(ctx context.Context, in RegisterInput) error
	// Me validates token and returns its user. A rejected token yields
	// domain.ErrSessionExpired.
	Me(ctx context.Context, token string) (*domain.User, error)
}
