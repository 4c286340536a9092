package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

const defaultTokenTTL = 24 * time.Hour

// RegisterInput is a self-service registration. New accounts are always
// plain users.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Service implements registration, login and token verification.
type Service struct {
	repo     UserRepository
	secret   []byte
	tokenTTL time.Duration
	log      zerolog.Logger
}

// NewService returns a Service signing HS256 tokens with secret.
func NewService(repo UserRepository, secret string, tokenTTL time.Duration, log zerolog.Logger) *Service {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &Service{repo: repo, secret: []byte(secret), tokenTTL: tokenTTL, log: log}
}

// Register creates a usuario account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	return s.create(ctx, in.FirstName, in.LastName, in.Email, in.Password, domain.RoleUsuario)
}

// Seed creates the given accounts, skipping those whose email is taken.
func (s *Service) Seed(ctx context.Context, seeds []SeedAccount) error {
	for _, sd := range seeds {
		_, err := s.create(ctx, sd.FirstName, sd.LastName, sd.Email, sd.Password, sd.Role)
		switch {
		case errors.Is(err, domain.ErrUserExists):
			continue
		case err != nil:
			return fmt.Errorf("seed %s: %w", sd.Email, err)
		}
		s.log.Info().Str("email", sd.Email).Str("role", string(sd.Role)).Msg("seeded account")
	}
	return nil
}

func (s *Service) create(ctx context.Context, first, last, email, password string, role domain.Role) (*Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	return s.repo.Create(ctx, &Account{
		FirstName:    first,
		LastName:     last,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Login checks credentials and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *Account, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	acc, err := s.repo.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.issue(acc)
	if err != nil {
		return "", nil, err
	}
	return token, acc, nil
}

// Identify verifies token and loads its account. Any failure, including a
// deleted account, is domain.ErrSessionExpired.
func (s *Service) Identify(ctx context.Context, token string) (*Account, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, domain.ErrSessionExpired
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, domain.ErrSessionExpired
	}

	acc, err := s.repo.FindByID(ctx, sub)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrSessionExpired
		}
		return nil, err
	}
	return acc, nil
}

func (s *Service) issue(acc *Account) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": acc.ID,
		"rol": string(acc.Role),
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
