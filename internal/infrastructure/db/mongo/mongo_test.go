package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/identity"
)

func connectForTest(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	client, db, err := Connect(context.Background(), Config{URI: uri, Database: "portal_test_" + uuid.NewString()[:8]})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	db := connectForTest(t)
	ctx := context.Background()
	repo := NewUserRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))

	now := time.Now().UTC().Truncate(time.Second)
	created, err := repo.Create(ctx, &identity.Account{
		FirstName: "Ana", LastName: "Diaz", Email: "user@user.com",
		PasswordHash: "hash", Role: domain.RoleUsuario, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	byEmail, err := repo.FindByEmail(ctx, "user@user.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, now, byEmail.CreatedAt)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUsuario, byID.Role)

	_, err = repo.Create(ctx, &identity.Account{Email: "user@user.com"})
	assert.True(t, errors.Is(err, domain.ErrUserExists), "got %v", err)

	_, err = repo.FindByID(ctx, "not-an-object-id")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAuditRepository_InsertEvent(t *testing.T) {
	db := connectForTest(t)
	ctx := context.Background()

	ev := &domain.SessionEvent{
		ID: uuid.NewString(), ProfileID: "p1", TabID: "main", UserID: "7",
		Role: domain.RoleUsuario, Kind: domain.EventLogin, Timestamp: time.Now().UTC(),
	}
	require.NoError(t, NewAuditRepository(db).InsertEvent(ctx, ev))

	var doc bson.M
	require.NoError(t, db.Collection(sessionEventsCollection).FindOne(ctx, bson.M{"_id": ev.ID}).Decode(&doc))
	assert.Equal(t, "login", doc["kind"])
	assert.Equal(t, "7", doc["user_id"])
}

func TestConnect_RequiresURI(t *testing.T) {
	_, _, err := Connect(context.Background(), Config{Database: "ticket_portal"})
	assert.ErrorContains(t, err, "URI is required")
}

func TestClientOptions(t *testing.T) {
	opts := clientOptions(Config{URI: "mongodb://localhost:27017"})
	require.NotNil(t, opts.AppName)
	assert.Equal(t, defaultAppName, *opts.AppName)
	require.NotNil(t, opts.ServerSelectionTimeout)
	assert.Equal(t, defaultTimeout, *opts.ServerSelectionTimeout)

	opts = clientOptions(Config{URI: "mongodb://localhost:27017", AppName: "identity-stub", Timeout: 2 * time.Second})
	assert.Equal(t, "identity-stub", *opts.AppName)
	assert.Equal(t, 2*time.Second, *opts.ServerSelectionTimeout)
}
