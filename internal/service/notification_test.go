package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"clipfeed/internal/model"
)

func TestNotificationService_Create_SuppressesSelf(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice")
	ctx := context.Background()

	err := f.notifications.Create(ctx, alice.ID, &model.Notification{
		Type:  model.NotificationFollowed,
		RefID: alice.ID,
		By:    alice.ID,
	})
	require.NoError(t, err)

	assert.Empty(t, f.user(t, alice.ID).Notifications)
	assert.Zero(t, f.store.Calls("Notifications.Push"))
}

func TestNotificationService_Create_AppendsUnread(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	err := f.notifications.Create(context.Background(), alice.ID, &model.Notification{
		Type:  model.NotificationFollowed,
		RefID: alice.ID,
		By:    bob.ID,
		Read:  true,
	})
	require.NoError(t, err)

	list := f.user(t, alice.ID).Notifications
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)
	assert.False(t, list[0].ID.IsZero())
	assert.False(t, list[0].CreatedAt.IsZero())
}

func TestNotificationService_HasUnread_LatestOnly(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	ctx := context.Background()

	hasNew, err := f.notifications.HasUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, hasNew, "empty inbox")

	require.NoError(t, f.notifications.NotifyFollowed(ctx, alice.ID, bob.ID))
	hasNew, err = f.notifications.HasUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, hasNew)

	require.NoError(t, f.notifications.MarkAllRead(ctx, alice.ID))
	hasNew, err = f.notifications.HasUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, hasNew)

	// An unread entry below a read newest entry is not reported.
	notifs := f.store.Notifications()
	require.NoError(t, notifs.Push(ctx, alice.ID, &model.Notification{Type: model.NotificationFollowed, By: bob.ID}))
	require.NoError(t, notifs.Push(ctx, alice.ID, &model.Notification{Type: model.NotificationFollowed, By: bob.ID, Read: true}))
	hasNew, err = f.notifications.HasUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, hasNew)

	count, err := f.notifications.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotificationService_MarkAllRead_LeavesLaterEntriesUnread(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	carol := f.addUser(t, "carol")
	ctx := context.Background()

	require.NoError(t, f.notifications.NotifyFollowed(ctx, alice.ID, bob.ID))
	require.NoError(t, f.notifications.MarkAllRead(ctx, alice.ID))
	require.NoError(t, f.notifications.NotifyFollowed(ctx, alice.ID, carol.ID))

	list := f.user(t, alice.ID).Notifications
	require.Len(t, list, 2)
	assert.True(t, list[0].Read)
	assert.False(t, list[1].Read)
}

func TestNotificationService_List_NewestFirstWithActors(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	carol := f.addUser(t, "carol")
	ctx := context.Background()

	require.NoError(t, f.notifications.NotifyFollowed(ctx, alice.ID, bob.ID))
	require.NoError(t, f.notifications.NotifyFollowed(ctx, alice.ID, carol.ID))

	resp, err := f.notifications.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 2)
	assert.Equal(t, 2, resp.UnreadCount)

	assert.Equal(t, carol.ID, resp.Notifications[0].By)
	require.NotNil(t, resp.Notifications[0].Actor)
	assert.Equal(t, "carol", resp.Notifications[0].Actor.Username)
	assert.Equal(t, "carol started following you.", resp.Notifications[0].Message)
	assert.Equal(t, bob.ID, resp.Notifications[1].By)
}

func TestNotificationService_Delete(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	ctx := context.Background()

	require.NoError(t, f.notifications.NotifyFollowed(ctx, alice.ID, bob.ID))
	entry := f.user(t, alice.ID).Notifications[0]

	t.Run("by id is idempotent", func(t *testing.T) {
		match := model.NotificationMatcher{ID: entry.ID}
		require.NoError(t, f.notifications.Delete(ctx, model.DeleteByID, alice.ID, match))
		require.NoError(t, f.notifications.Delete(ctx, model.DeleteByID, alice.ID, match))
		assert.Empty(t, f.user(t, alice.ID).Notifications)
	})

	t.Run("by reference matches type, ref and actor", func(t *testing.T) {
		require.NoError(t, f.notifications.NotifyFollowed(ctx, alice.ID, bob.ID))

		other := model.NotificationRef{Type: model.NotificationFollowed, RefID: alice.ID, By: primitive.NewObjectID()}
		require.NoError(t, f.notifications.Delete(ctx, model.DeleteByReference, alice.ID, model.NotificationMatcher{Ref: other}))
		assert.Len(t, f.user(t, alice.ID).Notifications, 1)

		ref := model.NotificationRef{Type: model.NotificationFollowed, RefID: alice.ID, By: bob.ID}
		require.NoError(t, f.notifications.Delete(ctx, model.DeleteByReference, alice.ID, model.NotificationMatcher{Ref: ref}))
		assert.Empty(t, f.user(t, alice.ID).Notifications)
	})

	t.Run("by reference skips self", func(t *testing.T) {
		ref := model.NotificationRef{Type: model.NotificationFollowed, RefID: alice.ID, By: alice.ID}
		require.NoError(t, f.notifications.Retract(ctx, alice.ID, ref))
		assert.Equal(t, 2, f.store.Calls("Notifications.PullByReference"))
	})
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", model.Preview("short"))

	exact := "123456789012345678901234567890"
	assert.Equal(t, exact, model.Preview(exact))
	assert.Equal(t, exact+"...", model.Preview(exact+"x"))

	assert.Equal(t, "bob liked your video: "+exact+"...", model.LikedVideoMessage("bob", exact+"tail"))
	assert.Equal(t, "bob liked your video.", model.LikedVideoMessage("bob", ""))
}
