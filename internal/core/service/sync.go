package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
	"github.com/shuttlepass/ticket-portal/internal/pkg/metrics"
)

// CrossTabSync reconciles one tab's session with storage changes made by the
// profile's other tabs. Delivery is advisory: once closed, the tab catches up
// only on its next load.
type CrossTabSync struct {
	session *Session
	sub     ports.Subscription
	log     zerolog.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

// StartSync subscribes session's tab to bus and starts applying changes.
func StartSync(ctx context.Context, session *Session, bus ports.Broadcaster, log zerolog.Logger) (*CrossTabSync, error) {
	sub, err := bus.Subscribe(ctx, session.TabID())
	if err != nil {
		return nil, fmt.Errorf("subscribe to storage changes: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &CrossTabSync{
		session: session,
		sub:     sub,
		log:     log.With().Str("tab", session.TabID()).Logger(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s, nil
}

func (s *CrossTabSync) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-s.sub.Changes():
			if !ok {
				return
			}
			s.Apply(ctx, change)
		}
	}
}

// Apply reconciles the session with a single change.
//
//   - token removed: the tab becomes unauthenticated and is sent to login
//     without any backend request;
//   - token set: the tab re-validates and follows the resolved identity;
//   - user summary set: the role is adopted immediately for routing.
//
// Every other key is ignored.
func (s *CrossTabSync) Apply(ctx context.Context, change domain.StorageChange) {
	switch change.Key {
	case domain.KeyAccessToken:
		if change.Removed() {
			metrics.CrossTabEventsTotal.WithLabelValues(change.Key, "logout").Inc()
			s.log.Info().Msg("token removed by another tab")
			s.session.ExpireRemote()
			return
		}
		metrics.CrossTabEventsTotal.WithLabelValues(change.Key, "revalidate").Inc()
		st := s.session.Resolve(ctx)
		s.session.notify(navigationFor(st, "identity_changed"))

	case domain.KeyUser:
		if change.Removed() {
			// the token removal that accompanies it drives the logout
			metrics.CrossTabEventsTotal.WithLabelValues(change.Key, "ignored").Inc()
			return
		}
		sum, err := domain.ParseSummary(change.NewValue)
		if err != nil {
			metrics.CrossTabEventsTotal.WithLabelValues(change.Key, "ignored").Inc()
			s.log.Warn().Err(err).Msg("ignoring unreadable user summary from another tab")
			return
		}
		metrics.CrossTabEventsTotal.WithLabelValues(change.Key, "adopt").Inc()
		if s.session.AdoptSummary(ctx, sum) {
			s.session.notify(domain.Navigation{Path: sum.Role.HomePath(), Reason: "role_changed"})
		}

	default:
		metrics.CrossTabEventsTotal.WithLabelValues("other", "ignored").Inc()
	}
}

// Close stops listening. It waits for an in-progress Apply to finish.
func (s *CrossTabSync) Close() error {
	s.cancel()
	err := s.sub.Close()
	<-s.done
	return err
}

func navigationFor(st domain.State, reason string) domain.Navigation {
	if auth, ok := st.(domain.Authenticated); ok {
		return domain.Navigation{Path: auth.User.Role.HomePath(), Reason: reason}
	}
	return domain.Navigation{Path: domain.PathLogin, Reason: reason}
}
