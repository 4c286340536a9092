package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
	"github.com/shuttlepass/ticket-portal/internal/pkg/metrics"
)

const (
	msgExpired     = "Your session has expired. Please sign in again."
	msgUnavailable = "We could not verify your session. Check your connection and retry."
	msgUnexpected  = "Something went wrong while verifying your session. Please retry."

	watcherBuffer = 8
)

// SessionDeps are the collaborators of a Session.
type SessionDeps struct {
	Store    *TokenStore
	Resolver *Resolver
	Identity ports.IdentityAPI
	Audit    ports.AuditRecorder
	Log      zerolog.Logger
}

// Session is the session context of one tab. It owns the tab's state and is
// the only writer of the token store on the tab's behalf.
//
// Every transition that supersedes an in-flight resolution (login, logout,
// remote logout, a newer resolution) bumps a generation counter; a
// resolution whose generation is stale is discarded when it lands.
type Session struct {
	profileID string
	tabID     string

	store    *TokenStore
	resolver *Resolver
	identity ports.IdentityAPI
	audit    ports.AuditRecorder
	log      zerolog.Logger

	mu       sync.Mutex
	state    domain.State
	gen      uint64
	settled  chan struct{}
	watchers map[int]chan domain.Navigation
	nextID   int
	closed   bool
}

// NewSession returns an unauthenticated session for one tab. Call Start to
// pick up a persisted token.
func NewSession(profileID, tabID string, deps SessionDeps) *Session {
	settled := make(chan struct{})
	close(settled)
	return &Session{
		profileID: profileID,
		tabID:     tabID,
		store:     deps.Store,
		resolver:  deps.Resolver,
		identity:  deps.Identity,
		audit:     deps.Audit,
		log:       deps.Log.With().Str("profile", profileID).Str("tab", tabID).Logger(),
		state:     domain.Unauthenticated{},
		settled:   settled,
		watchers:  make(map[int]chan domain.Navigation),
	}
}

// ProfileID returns the browser profile the tab belongs to.
func (s *Session) ProfileID() string { return s.profileID }

// TabID returns the tab's context ID.
func (s *Session) TabID() string { return s.tabID }

// State returns the current state.
func (s *Session) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token returns the persisted bearer token, if any.
func (s *Session) Token(ctx context.Context) string {
	return s.store.Read(ctx).Token
}

// Start performs the load-time resolution. Without a stored token the tab is
// unauthenticated immediately and no request is made; otherwise the tab is
// Resolving when Start returns and resolution continues in the background.
func (s *Session) Start(ctx context.Context) {
	if s.store.Read(ctx).Empty() {
		metrics.ResolutionsTotal.WithLabelValues("no_token").Inc()
		return
	}

	s.mu.Lock()
	s.setState(domain.Resolving{})
	s.mu.Unlock()

	go func() {
		s.Resolve(ctx)
		s.notify(domain.Navigation{Reason: "resolved"})
	}()
}

// Resolve validates the stored token and settles the state.
//
// An Authenticated tab stays Authenticated while it re-validates, so a
// cross-tab identity change does not flash the loading view.
func (s *Session) Resolve(ctx context.Context) domain.State {
	stored := s.store.Read(ctx)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if stored.Empty() {
		s.setState(domain.Unauthenticated{})
		s.mu.Unlock()
		metrics.ResolutionsTotal.WithLabelValues("no_token").Inc()
		return domain.Unauthenticated{}
	}
	if _, ok := s.state.(domain.Authenticated); !ok {
		s.setState(domain.Resolving{})
	}
	s.mu.Unlock()

	started := time.Now()
	user, err := s.resolver.Resolve(ctx, stored.Token)
	metrics.ResolutionDuration.Observe(time.Since(started).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		metrics.ResolutionsTotal.WithLabelValues("superseded").Inc()
		return s.state
	}

	// refresh the cache unless another tab replaced the token meanwhile
	if err == nil && s.store.Read(ctx).Token == stored.Token {
		if werr := s.store.Write(ctx, stored.Token, user.Summary()); werr != nil {
			err = fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, werr)
		}
	}

	switch {
	case err == nil:
		s.setState(domain.Authenticated{User: user})
		metrics.ResolutionsTotal.WithLabelValues("authenticated").Inc()
		s.log.Debug().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("session resolved")

	case errors.Is(err, domain.ErrSessionExpired):
		userID, role := s.identityLocked()
		s.store.Clear(ctx)
		s.setState(domain.Unauthenticated{Reason: domain.ReasonExpired, Message: msgExpired})
		metrics.ResolutionsTotal.WithLabelValues("expired").Inc()
		s.record(domain.EventExpired, userID, role, "identity check returned 401")
		s.log.Info().Msg("stored token expired")

	default:
		userID, role := s.identityLocked()
		msg := msgUnexpected
		if errors.Is(err, domain.ErrBackendUnavailable) {
			msg = msgUnavailable
		}
		s.setState(domain.Unauthenticated{Reason: domain.ReasonError, Message: msg})
		metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		s.record(domain.EventResolveFailed, userID, role, err.Error())
		s.log.Warn().Err(err).Msg("session resolution failed, token kept")
	}
	return s.state
}

// Login authenticates against the backend and persists the new session.
// The backend's error is returned untouched and the state is left as is; a
// session that cannot be persisted is reported as ErrBackendUnavailable and
// not adopted.
func (s *Session) Login(ctx context.Context, email, password string) (domain.User, error) {
	res, err := s.identity.Login(ctx, email, password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return domain.User{}, err
	}

	user := res.User
	user.Role = domain.ParseRole(string(user.Role))

	s.mu.Lock()
	if err := s.store.Write(ctx, res.Token, user.Summary()); err != nil {
		s.mu.Unlock()
		metrics.LoginsTotal.WithLabelValues("storage_error").Inc()
		return domain.User{}, fmt.Errorf("login: %w: %w", domain.ErrBackendUnavailable, err)
	}
	s.gen++
	s.setState(domain.Authenticated{User: user})
	s.mu.Unlock()

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	s.record(domain.EventLogin, user.ID, user.Role, "")
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user logged in")
	return user, nil
}

// Register creates an account. It never creates a session.
func (s *Session) Register(ctx context.Context, in ports.RegisterInput) error {
	return s.identity.Register(ctx, in)
}

// Logout clears the stored session and the in-memory state. Logging out an
// unauthenticated tab is a no-op that still leaves it Unauthenticated.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	userID, role := s.identityLocked()
	s.store.Clear(ctx)
	s.setState(domain.Unauthenticated{Reason: domain.ReasonLoggedOut})
	s.mu.Unlock()

	if userID != "" {
		s.record(domain.EventLogout, userID, role, "")
		s.log.Info().Str("user_id", userID).Msg("user logged out")
	}
}

// Invalidate reacts to the error of an authenticated backend call. Only an
// expired credential ends the session; it reports whether it did.
func (s *Session) Invalidate(ctx context.Context, err error) bool {
	if !errors.Is(err, domain.ErrSessionExpired) {
		return false
	}

	s.mu.Lock()
	s.gen++
	userID, role := s.identityLocked()
	s.store.Clear(ctx)
	s.setState(domain.Unauthenticated{Reason: domain.ReasonExpired, Message: msgExpired})
	s.mu.Unlock()

	s.record(domain.EventExpired, userID, role, "authenticated call returned 401")
	s.notify(domain.Navigation{Path: domain.PathLogin, Reason: string(domain.ReasonExpired)})
	return true
}

// ExpireRemote handles a logout performed by another tab. The shared store
// is already empty, so nothing is written and no request is made.
func (s *Session) ExpireRemote() {
	s.mu.Lock()
	s.gen++
	userID, role := s.identityLocked()
	s.setState(domain.Unauthenticated{Reason: domain.ReasonRemoteLogout})
	s.mu.Unlock()

	s.record(domain.EventRemoteLogout, userID, role, "")
	s.notify(domain.Navigation{Path: domain.PathLogin, Reason: string(domain.ReasonRemoteLogout)})
}

// AdoptSummary applies a user summary written by another tab, ahead of
// validation, so routing follows the new role at once. It reports whether the
// routed role changed. Summaries without a stored token are ignored.
func (s *Session) AdoptSummary(ctx context.Context, sum domain.Summary) bool {
	if s.store.Read(ctx).Empty() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var prev domain.Role
	if auth, ok := s.state.(domain.Authenticated); ok {
		prev = auth.User.Role
		if auth.User.ID == sum.ID && auth.User.Role == sum.Role {
			return false
		}
	}

	s.setState(domain.Authenticated{
		User:        domain.User{ID: sum.ID, FirstName: sum.Name, Role: sum.Role},
		Provisional: true,
	})
	s.record(domain.EventIdentityChanged, sum.ID, sum.Role, "adopted from another tab")
	return prev != sum.Role
}

// Wait blocks until the state is no longer Resolving or ctx ends.
func (s *Session) Wait(ctx context.Context) domain.State {
	s.mu.Lock()
	settled := s.settled
	s.mu.Unlock()

	select {
	case <-settled:
	case <-ctx.Done():
	}
	return s.State()
}

// Watch subscribes to navigations the tab did not initiate. The returned
// func unsubscribes.
func (s *Session) Watch() (<-chan domain.Navigation, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan domain.Navigation, watcherBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.watchers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
	}
}

// Watching reports whether anyone is subscribed to the tab's navigations.
func (s *Session) Watching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers) > 0
}

// Close ends every watch. The session keeps answering State afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
}

func (s *Session) notify(n domain.Navigation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- n:
		default:
			s.log.Warn().Str("path", n.Path).Msg("navigation dropped, watcher is behind")
		}
	}
}

// setState must be called with mu held.
func (s *Session) setState(next domain.State) {
	_, wasResolving := s.state.(domain.Resolving)
	_, isResolving := next.(domain.Resolving)
	switch {
	case isResolving && !wasResolving:
		s.settled = make(chan struct{})
	case wasResolving && !isResolving:
		close(s.settled)
	}
	s.state = next
}

// identityLocked must be called with mu held.
func (s *Session) identityLocked() (string, domain.Role) {
	if auth, ok := s.state.(domain.Authenticated); ok {
		return auth.User.ID, auth.User.Role
	}
	return "", ""
}

// record never takes mu; callers may hold it.
func (s *Session) record(kind domain.SessionEventKind, userID string, role domain.Role, detail string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(domain.SessionEvent{
		ProfileID: s.profileID,
		TabID:     s.tabID,
		UserID:    userID,
		Role:      role,
		Kind:      kind,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
