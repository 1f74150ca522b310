package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipfeed/internal/config"
	"clipfeed/internal/model"
	"clipfeed/internal/repository/repotest"
)

// =============================================================================
// Test Helpers
// =============================================================================

type authFixture struct {
	*fixture
	sessions *repotest.SessionRepo
	auth     *AuthService
	wall     time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	a := &authFixture{
		fixture:  newFixture(t),
		sessions: repotest.NewSessionRepo(),
		wall:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	a.sessions.Now = a.now
	a.auth = NewAuthService(a.sessions, a.store.Users(), &config.Config{
		JWTSecret:          "test-secret",
		AccessTokenMaxAge:  900,
		RefreshTokenMaxAge: 3600,
	})
	a.auth.now = a.now
	return a
}

func (a *authFixture) now() time.Time { return a.wall }

func (a *authFixture) session(t *testing.T, raw string) *model.Session {
	t.Helper()
	s, err := a.sessions.ByTokenHash(context.Background(), hashToken(raw))
	require.NoError(t, err)
	return s
}

// =============================================================================
// Rotation
// =============================================================================

func TestAuthService_Refresh_RotatesSession(t *testing.T) {
	a := newAuthFixture(t)
	alice := a.addUser(t, "alice")
	ctx := context.Background()

	first, err := a.auth.Issue(ctx, alice, "phone", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, first.AccessToken)
	assert.Equal(t, 900, first.ExpiresIn)

	second, err := a.auth.Refresh(ctx, first.RefreshToken, "phone", "10.0.0.2")
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	old := a.session(t, first.RefreshToken)
	next := a.session(t, second.RefreshToken)
	assert.Equal(t, model.SessionRevoked, old.State(a.wall))
	require.NotNil(t, old.Successor)
	assert.Equal(t, next.ID, *old.Successor)
	assert.Equal(t, "10.0.0.2", next.IP)
	assert.Equal(t, alice.ID.Hex(), next.UserID)
	assert.Equal(t, 1, a.sessions.Active())
}

func TestAuthService_Refresh_ReuseEndsEverySession(t *testing.T) {
	a := newAuthFixture(t)
	alice := a.addUser(t, "alice")
	ctx := context.Background()

	laptop, err := a.auth.Issue(ctx, alice, "laptop", "")
	require.NoError(t, err)
	phone, err := a.auth.Issue(ctx, alice, "phone", "")
	require.NoError(t, err)
	_, err = a.auth.Refresh(ctx, phone.RefreshToken, "phone", "")
	require.NoError(t, err)
	require.Equal(t, 2, a.sessions.Active())

	// ACT: replay the rotated-out token.
	_, err = a.auth.Refresh(ctx, phone.RefreshToken, "phone", "")

	// ASSERT
	assert.ErrorIs(t, err, model.ErrSessionReused)
	assert.Zero(t, a.sessions.Active())
	_, err = a.auth.Refresh(ctx, laptop.RefreshToken, "laptop", "")
	assert.ErrorIs(t, err, model.ErrSessionReused)
}

func TestAuthService_Refresh_LosingConcurrentRotation(t *testing.T) {
	a := newAuthFixture(t)
	alice := a.addUser(t, "alice")
	ctx := context.Background()

	pair, err := a.auth.Issue(ctx, alice, "", "")
	require.NoError(t, err)
	stale := a.session(t, pair.RefreshToken)

	// Another request rotates the session after this one has read it.
	_, err = a.auth.Refresh(ctx, pair.RefreshToken, "", "")
	require.NoError(t, err)
	_, next := a.auth.newSession(alice.ID, "", "")
	err = a.sessions.Rotate(ctx, stale.ID, next)

	assert.ErrorIs(t, err, model.ErrSessionReused)
	assert.Nil(t, a.sessions.Get(next.ID))
}

func TestAuthService_Refresh_Rejections(t *testing.T) {
	a := newAuthFixture(t)
	alice := a.addUser(t, "alice")
	ctx := context.Background()

	_, err := a.auth.Refresh(ctx, "not-issued", "", "")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	pair, err := a.auth.Issue(ctx, alice, "", "")
	require.NoError(t, err)
	a.wall = a.wall.Add(time.Hour)

	_, err = a.auth.Refresh(ctx, pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, model.ErrSessionExpired)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

// =============================================================================
// Revocation and Purge
// =============================================================================

func TestAuthService_Revoke(t *testing.T) {
	a := newAuthFixture(t)
	alice := a.addUser(t, "alice")
	bob := a.addUser(t, "bob")
	ctx := context.Background()

	one, err := a.auth.Issue(ctx, alice, "", "")
	require.NoError(t, err)
	_, err = a.auth.Issue(ctx, alice, "", "")
	require.NoError(t, err)
	_, err = a.auth.Issue(ctx, bob, "", "")
	require.NoError(t, err)

	require.NoError(t, a.auth.Revoke(ctx, one.RefreshToken))
	require.NoError(t, a.auth.Revoke(ctx, one.RefreshToken), "revoking twice is a no-op")
	assert.Equal(t, 2, a.sessions.Active())

	require.NoError(t, a.auth.RevokeAll(ctx, alice.ID))
	assert.Equal(t, 1, a.sessions.Active())

	assert.ErrorIs(t, a.auth.Revoke(ctx, "unknown"), model.ErrSessionNotFound)
}

func TestAuthService_PurgeExpiredSessions(t *testing.T) {
	a := newAuthFixture(t)
	alice := a.addUser(t, "alice")
	ctx := context.Background()

	old, err := a.auth.Issue(ctx, alice, "", "")
	require.NoError(t, err)
	a.wall = a.wall.Add(2 * time.Hour)
	fresh, err := a.auth.Issue(ctx, alice, "", "")
	require.NoError(t, err)
	oldID := a.session(t, old.RefreshToken).ID

	// old expired an hour ago, fresh has not expired.
	n, err := a.auth.PurgeExpiredSessions(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = a.auth.PurgeExpiredSessions(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Nil(t, a.sessions.Get(oldID))
	assert.Equal(t, model.SessionActive, a.session(t, fresh.RefreshToken).State(a.wall))
}
