// Package identity is a small stand-in for the ticketing backend's identity
// API: login, registration, the current-user endpoint and an admin-only probe.
// It exists for local development and end-to-end tests of the portal.
package identity

import (
	"time"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

// Account is a stored user with its credentials.
type Account struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         domain.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User returns the public view of the account.
func (a *Account) User() domain.User {
	return domain.User{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Role:      a.Role,
	}
}

// SeedAccount is a plain-text account created at startup.
type SeedAccount struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      domain.Role
}

// DefaultSeeds are the demo accounts, one per role.
func DefaultSeeds() []SeedAccount {
	return []SeedAccount{
		{FirstName: "Root", LastName: "Admin", Email: "admin@admin.com", Password: "123456adm", Role: domain.RoleAdmin},
		{FirstName: "Pedro", LastName: "Paz", Email: "chofer@chofer.com", Password: "123456cho", Role: domain.RoleChofer},
		{FirstName: "Ana", LastName: "Diaz", Email: "user@user.com", Password: "123456san", Role: domain.RoleUsuario},
	}
}
