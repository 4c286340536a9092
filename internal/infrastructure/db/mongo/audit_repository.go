package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
)

const sessionEventsCollection = "session_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	coll *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) ports.AuditRepository {
	return &AuditRepository{coll: db.Collection(sessionEventsCollection)}
}

// InsertEvent appends a session lifecycle event to the session_events collection.
func (r *AuditRepository) InsertEvent(ctx context.Context, ev *domain.SessionEvent) error {
	doc := bson.M{
		"_id":          ev.ID,
		"profile_id":   ev.ProfileID,
		"tab_id":       ev.TabID,
		"kind":         string(ev.Kind),
		"timestamp":    ev.Timestamp.UTC(),
		"processed_at": time.Now().UTC(),
	}
	if ev.UserID != "" {
		doc["user_id"] = ev.UserID
		doc["rol"] = string(ev.Role)
	}
	if ev.Detail != "" {
		doc["detail"] = ev.Detail
	}

	_, err := r.coll.InsertOne(ctx, doc)
	return err
}
