package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"clipfeed/internal/model"
)

func TestFollowService_ToggleFollow_Symmetry(t *testing.T) {
	f := newFixture(t)
	a := f.addUser(t, "alice")
	b := f.addUser(t, "bob")
	ctx := context.Background()

	followed, err := f.follows.ToggleFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, followed)

	assert.Equal(t, []primitive.ObjectID{b.ID}, f.user(t, a.ID).Following)
	assert.Equal(t, []primitive.ObjectID{a.ID}, f.user(t, b.ID).Followers)
	assert.Equal(t, 1, countType(f.user(t, b.ID).Notifications, model.NotificationFollowed, a.ID))

	isFollowing, err := f.follows.IsFollowing(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, isFollowing)
	isFollowing, err = f.follows.IsFollowing(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.False(t, isFollowing)

	followed, err = f.follows.ToggleFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, followed)

	assert.Empty(t, f.user(t, a.ID).Following)
	assert.Empty(t, f.user(t, b.ID).Followers)
	assert.Zero(t, countType(f.user(t, b.ID).Notifications, model.NotificationFollowed, a.ID))
	assert.Empty(t, f.sink.Failures())
}

func TestFollowService_ToggleFollow_PoolKeepsOrder(t *testing.T) {
	f := newFixture(t)
	a := f.addUser(t, "alice")
	b := f.addUser(t, "bob")
	ctx := context.Background()

	pool, notifier := f.pooled()
	follows := NewFollowService(slowUsers{f.store.Users()}, notifier, pool, f.files, nil)

	// ACT: follow then unfollow before the slow writes land.
	followed, err := follows.ToggleFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.True(t, followed)
	followed, err = follows.ToggleFollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.False(t, followed)
	pool.Stop()

	// ASSERT
	assert.Empty(t, f.user(t, a.ID).Following)
	assert.Empty(t, f.user(t, b.ID).Followers)
	assert.Zero(t, countType(f.user(t, b.ID).Notifications, model.NotificationFollowed, a.ID))
	assert.Empty(t, f.sink.Failures())
}

func TestFollowService_ToggleFollow_Self(t *testing.T) {
	f := newFixture(t)
	a := f.addUser(t, "alice")

	_, err := f.follows.ToggleFollow(context.Background(), a.ID, a.ID)
	assert.ErrorIs(t, err, model.ErrCannotFollowSelf)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Empty(t, f.user(t, a.ID).Following)
	assert.Empty(t, f.user(t, a.ID).Notifications)
}

func TestFollowService_ToggleFollow_UnknownTarget(t *testing.T) {
	f := newFixture(t)
	a := f.addUser(t, "alice")

	_, err := f.follows.ToggleFollow(context.Background(), a.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, model.ErrUserNotFound)
	assert.Zero(t, f.store.Calls("Users.AddFollower"))
}

func TestFollowService_Lists_NewestFirst(t *testing.T) {
	f := newFixture(t)
	target := f.addUser(t, "target")
	first := f.addUser(t, "first")
	second := f.addUser(t, "second")
	viewer := f.addUser(t, "viewer")
	ctx := context.Background()

	_, err := f.follows.ToggleFollow(ctx, first.ID, target.ID)
	require.NoError(t, err)
	_, err = f.follows.ToggleFollow(ctx, second.ID, target.ID)
	require.NoError(t, err)
	_, err = f.follows.ToggleFollow(ctx, viewer.ID, second.ID)
	require.NoError(t, err)

	resp, err := f.follows.Followers(ctx, "target", &viewer.ID)
	require.NoError(t, err)
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, "second", resp.Users[0].Username)
	assert.True(t, resp.Users[0].IsFollowing)
	assert.Equal(t, "first", resp.Users[1].Username)
	assert.False(t, resp.Users[1].IsFollowing)

	resp, err = f.follows.Following(ctx, "second", nil)
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "target", resp.Users[0].Username)
	assert.False(t, resp.Users[0].IsFollowing)

	_, err = f.follows.Followers(ctx, "nobody", nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
