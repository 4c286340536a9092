package ports

import (
	"context"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

// AuditRepository persists session events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.SessionEvent) error
}

// AuditService processes a single session event.
type AuditService interface {
	Process(ctx context.Context, event domain.SessionEvent) error
}

// AuditRecorder accepts session events without blocking the caller.
type AuditRecorder interface {
	Record(event domain.SessionEvent)
}
