package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
	"github.com/shuttlepass/ticket-portal/internal/pkg/metrics"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService. With a nil repo events are only
// logged.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Process stamps and persists a single session event.
func (s *auditService) Process(ctx context.Context, ev domain.SessionEvent) error {
	if ev.Kind == "" {
		return fmt.Errorf("process session event: missing kind")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	if s.repo != nil {
		if err := s.repo.InsertEvent(ctx, &ev); err != nil {
			metrics.AuditErrorsTotal.Inc()
			return fmt.Errorf("process session event: %w", err)
		}
	}
	metrics.AuditEventsTotal.WithLabelValues(string(ev.Kind)).Inc()

	s.log.Info().
		Str("event_id", ev.ID).
		Str("kind", string(ev.Kind)).
		Str("profile", ev.ProfileID).
		Str("tab", ev.TabID).
		Str("user_id", ev.UserID).
		Msg("session event")
	return nil
}

// NopRecorder discards session events.
type NopRecorder struct{}

// Record implements ports.AuditRecorder.
func (NopRecorder) Record(domain.SessionEvent) {}
