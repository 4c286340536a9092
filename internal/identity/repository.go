package identity

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	// Create stores a new account and returns it with its ID assigned.
	// A taken email yields domain.ErrUserExists.
	Create(ctx context.Context, a *Account) (*Account, error)
}

// MemoryRepository keeps accounts in process memory with numeric IDs.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int
	byID    map[string]*Account
	byEmail map[string]string
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:  1,
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepository) Create(_ context.Context, a *Account) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(a.Email)
	if _, exists := r.byEmail[email]; exists {
		return nil, domain.ErrUserExists
	}

	stored := clone(a)
	stored.ID = strconv.Itoa(r.nextID)
	r.nextID++
	r.byID[stored.ID] = stored
	r.byEmail[email] = stored.ID
	return clone(stored), nil
}

func clone(a *Account) *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
