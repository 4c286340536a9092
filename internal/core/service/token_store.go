package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
)

// Stored is whatever the token store currently holds. It does not imply the
// token is valid.
type Stored struct {
	Token   string
	Summary *domain.Summary
}

// Empty reports whether no session is stored.
func (s Stored) Empty() bool {
	return s.Token == ""
}

// TokenStore is one tab's handle on its profile's persisted session. Writes
// are announced to the profile's other tabs; storage failures are logged and
// read back as "no session".
type TokenStore struct {
	kv        ports.KeyValueStore
	bus       ports.Broadcaster
	contextID string
	log       zerolog.Logger
}

// NewTokenStore returns a TokenStore writing on behalf of contextID.
func NewTokenStore(kv ports.KeyValueStore, bus ports.Broadcaster, contextID string, log zerolog.Logger) *TokenStore {
	return &TokenStore{kv: kv, bus: bus, contextID: contextID, log: log}
}

var storedKeys = []string{domain.KeyAccessToken, domain.KeyUser}

// Read returns the persisted token and user summary. A summary that does not
// parse is dropped, leaving a token-only read.
func (s *TokenStore) Read(ctx context.Context) Stored {
	vals, err := s.kv.Get(ctx, storedKeys...)
	if err != nil {
		s.log.Warn().Err(err).Msg("token store unavailable, treating as no session")
		return Stored{}
	}

	token := vals[domain.KeyAccessToken]
	if token == "" {
		return Stored{}
	}

	out := Stored{Token: token}
	if raw := vals[domain.KeyUser]; raw != "" {
		sum, err := domain.ParseSummary(raw)
		if err != nil {
			s.log.Warn().Err(err).Msg("discarding unreadable user summary")
		} else {
			out.Summary = &sum
		}
	}
	return out
}

// Write persists token and summary together. On error nothing was announced
// and the caller must not consider the session persisted.
func (s *TokenStore) Write(ctx context.Context, token string, summary domain.Summary) error {
	raw := summary.Encode()
	prev := s.snapshot(ctx)

	if err := s.kv.Set(ctx, map[string]string{
		domain.KeyAccessToken: token,
		domain.KeyUser:        raw,
	}); err != nil {
		s.log.Error().Err(err).Msg("token store write failed")
		return fmt.Errorf("write session: %w", err)
	}

	// user first: listeners adopt the role before they re-validate the token.
	s.announce(ctx, prev, domain.KeyUser, raw)
	s.announce(ctx, prev, domain.KeyAccessToken, token)
	return nil
}

// Clear removes both entries.
func (s *TokenStore) Clear(ctx context.Context) {
	prev := s.snapshot(ctx)

	if err := s.kv.Delete(ctx, storedKeys...); err != nil {
		s.log.Error().Err(err).Msg("token store clear failed")
		return
	}

	s.announce(ctx, prev, domain.KeyUser, "")
	s.announce(ctx, prev, domain.KeyAccessToken, "")
}

func (s *TokenStore) snapshot(ctx context.Context) map[string]string {
	vals, err := s.kv.Get(ctx, storedKeys...)
	if err != nil {
		return nil
	}
	return vals
}

// announce publishes key's new value unless it is unchanged.
func (s *TokenStore) announce(ctx context.Context, prev map[string]string, key, value string) {
	if prev[key] == value {
		return
	}
	change := domain.StorageChange{Key: key, NewValue: value, Source: s.contextID}
	if err := s.bus.Publish(ctx, change); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("storage change not broadcast")
	}
}
