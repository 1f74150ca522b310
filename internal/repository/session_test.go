package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"clipfeed/internal/database"
	"clipfeed/internal/model"
	"clipfeed/internal/repository"
)

// setupTestPostgres migrates the database in TEST_POSTGRES_DSN and empties
// the session table when the test ends.
func setupTestPostgres(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set, skipping test")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Skipf("Postgres not available, skipping test: %v", err)
	}
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM refresh_tokens`)
		_ = db.Close()
	})
	return db
}

func newSession(userID, hash string, expiresAt time.Time) *model.Session {
	return &model.Session{UserID: userID, TokenHash: hash, ExpiresAt: expiresAt}
}

func TestSessionRepository_Rotate(t *testing.T) {
	db := setupTestPostgres(t)
	ctx := context.Background()
	sessions := repository.NewSessionRepository(db)
	userID := primitive.NewObjectID().Hex()
	expires := time.Now().Add(time.Hour)

	first := newSession(userID, "hash-"+primitive.NewObjectID().Hex(), expires)
	first.Device = "phone"
	require.NoError(t, sessions.Create(ctx, first))
	assert.NotEmpty(t, first.ID)

	next := newSession(userID, "hash-"+primitive.NewObjectID().Hex(), expires)
	require.NoError(t, sessions.Rotate(ctx, first.ID, next))

	old, err := sessions.ByTokenHash(ctx, first.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, "phone", old.Device)
	assert.Empty(t, old.IP)
	assert.Equal(t, model.SessionRevoked, old.State(time.Now()))
	require.NotNil(t, old.Successor)
	assert.Equal(t, next.ID, *old.Successor)

	// A second rotation of the same session writes nothing.
	again := newSession(userID, "hash-"+primitive.NewObjectID().Hex(), expires)
	assert.ErrorIs(t, sessions.Rotate(ctx, first.ID, again), model.ErrSessionReused)
	_, err = sessions.ByTokenHash(ctx, again.TokenHash)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestSessionRepository_RevokeAllAndPurge(t *testing.T) {
	db := setupTestPostgres(t)
	ctx := context.Background()
	sessions := repository.NewSessionRepository(db)
	userID := primitive.NewObjectID().Hex()
	now := time.Now()

	expired := newSession(userID, "hash-"+primitive.NewObjectID().Hex(), now.Add(-2*time.Hour))
	live := newSession(userID, "hash-"+primitive.NewObjectID().Hex(), now.Add(time.Hour))
	require.NoError(t, sessions.Create(ctx, expired))
	require.NoError(t, sessions.Create(ctx, live))

	n, err := sessions.RevokeAll(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	n, err = sessions.RevokeAll(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = sessions.Purge(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = sessions.ByTokenHash(ctx, expired.TokenHash)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
	_, err = sessions.ByTokenHash(ctx, live.TokenHash)
	assert.NoError(t, err)
}
