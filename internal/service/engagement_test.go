package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"clipfeed/internal/model"
)

func TestEngagementService_ToggleVideoLike_EndToEnd(t *testing.T) {
	f := newFixture(t)
	u1 := f.addUser(t, "uploader")
	u2 := f.addUser(t, "liker")
	ctx := context.Background()
	videoID := f.upload(t, u1, "test", "a", "b")
	target := model.LikeTarget{Kind: model.LikeVideo, VideoID: videoID}

	// ACT: like
	liked, err := f.engagement.ToggleLike(ctx, u2.ID, target)
	require.NoError(t, err)
	assert.True(t, liked)

	video := f.video(t, videoID)
	assert.Equal(t, []primitive.ObjectID{u2.ID}, video.Likes)
	owner := f.user(t, u1.ID)
	assert.EqualValues(t, 1, owner.TotalLikes)
	require.Len(t, owner.Notifications, 1)
	assert.Equal(t, model.NotificationLikedVideo, owner.Notifications[0].Type)
	assert.Equal(t, u2.ID, owner.Notifications[0].By)
	assert.Equal(t, videoID, owner.Notifications[0].RefID)
	assert.Equal(t, "liker liked your video: test", owner.Notifications[0].Message)

	liker := f.user(t, u2.ID)
	assert.Equal(t, []primitive.ObjectID{videoID}, liker.Videos.Liked)
	assert.ElementsMatch(t, []string{"a", "b"}, liker.InterestedIn)

	// ACT: unlike
	liked, err = f.engagement.ToggleLike(ctx, u2.ID, target)
	require.NoError(t, err)
	assert.False(t, liked)

	assert.Empty(t, f.video(t, videoID).Likes)
	owner = f.user(t, u1.ID)
	assert.EqualValues(t, 0, owner.TotalLikes)
	assert.Empty(t, owner.Notifications)
	assert.Empty(t, f.user(t, u2.ID).Videos.Liked)
	assert.Empty(t, f.sink.Failures())
}

func TestEngagementService_ToggleVideoLike_SelfLikeHasNoNotification(t *testing.T) {
	f := newFixture(t)
	u1 := f.addUser(t, "uploader")
	videoID := f.upload(t, u1, "mine")

	liked, err := f.engagement.ToggleLike(context.Background(), u1.ID, model.LikeTarget{Kind: model.LikeVideo, VideoID: videoID})
	require.NoError(t, err)
	assert.True(t, liked)

	owner := f.user(t, u1.ID)
	assert.EqualValues(t, 1, owner.TotalLikes)
	assert.Empty(t, owner.Notifications)
}

func TestEngagementService_ToggleCommentLike_CreditsCommentPoster(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser(t, "uploader")
	poster := f.addUser(t, "poster")
	liker := f.addUser(t, "liker")
	ctx := context.Background()

	videoID := f.upload(t, uploader, "clip")
	commentID, err := f.comments.CreateComment(ctx, poster.ID, videoID, "nice")
	require.NoError(t, err)
	before := len(f.user(t, poster.ID).Notifications)

	target := model.LikeTarget{Kind: model.LikeComment, VideoID: videoID, CommentID: commentID}
	liked, err := f.engagement.ToggleLike(ctx, liker.ID, target)
	require.NoError(t, err)
	assert.True(t, liked)

	assert.EqualValues(t, 1, f.user(t, poster.ID).TotalLikes)
	assert.EqualValues(t, 0, f.user(t, uploader.ID).TotalLikes)
	assert.Len(t, f.user(t, poster.ID).Notifications, before, "comment likes do not notify")
	assert.Empty(t, f.user(t, liker.ID).Videos.Liked, "comment likes do not touch the liked list")
	assert.Equal(t, []primitive.ObjectID{liker.ID}, f.video(t, videoID).Comment(commentID).Likes)

	liked, err = f.engagement.ToggleLike(ctx, liker.ID, target)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.EqualValues(t, 0, f.user(t, poster.ID).TotalLikes)
	assert.Empty(t, f.video(t, videoID).Comment(commentID).Likes)
}

func TestEngagementService_ToggleReplyLike(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser(t, "uploader")
	poster := f.addUser(t, "poster")
	replier := f.addUser(t, "replier")
	liker := f.addUser(t, "liker")
	ctx := context.Background()

	videoID := f.upload(t, uploader, "clip")
	commentID, err := f.comments.CreateComment(ctx, poster.ID, videoID, "first")
	require.NoError(t, err)
	replyID, err := f.comments.CreateReply(ctx, replier.ID, videoID, commentID, "second")
	require.NoError(t, err)

	target := model.LikeTarget{Kind: model.LikeReply, VideoID: videoID, CommentID: commentID, ReplyID: replyID}
	liked, err := f.engagement.ToggleLike(ctx, liker.ID, target)
	require.NoError(t, err)
	assert.True(t, liked)

	assert.EqualValues(t, 1, f.user(t, replier.ID).TotalLikes)
	assert.EqualValues(t, 0, f.user(t, poster.ID).TotalLikes)
	reply := f.video(t, videoID).Comment(commentID).Reply(replyID)
	require.NotNil(t, reply)
	assert.Equal(t, []primitive.ObjectID{liker.ID}, reply.Likes)

	_, err = f.engagement.ToggleLike(ctx, liker.ID, model.LikeTarget{
		Kind: model.LikeReply, VideoID: videoID, CommentID: commentID, ReplyID: primitive.NewObjectID(),
	})
	assert.ErrorIs(t, err, model.ErrReplyNotFound)
}

func TestEngagementService_ToggleLike_NotFound(t *testing.T) {
	f := newFixture(t)
	liker := f.addUser(t, "liker")

	_, err := f.engagement.ToggleLike(context.Background(), liker.ID, model.LikeTarget{
		Kind:    model.LikeVideo,
		VideoID: primitive.NewObjectID(),
	})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.engagement.ToggleLike(context.Background(), liker.ID, model.LikeTarget{Kind: "story"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestEngagementService_SecondaryFailureIsNotSurfaced(t *testing.T) {
	f := newFixture(t)
	u1 := f.addUser(t, "uploader")
	u2 := f.addUser(t, "liker")
	videoID := f.upload(t, u1, "clip")
	f.store.Fail("Users.IncrementTotalLikes", errors.New("write timeout"))

	liked, err := f.engagement.ToggleLike(context.Background(), u2.ID, model.LikeTarget{Kind: model.LikeVideo, VideoID: videoID})
	require.NoError(t, err)
	assert.True(t, liked)

	// The primary write stands and nothing is rolled back.
	assert.Equal(t, []primitive.ObjectID{u2.ID}, f.video(t, videoID).Likes)
	assert.EqualValues(t, 0, f.user(t, u1.ID).TotalLikes)

	failures := f.sink.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "users.total_likes", failures[0].Task)
}

func TestEngagementService_PrimaryFailureIsSurfaced(t *testing.T) {
	f := newFixture(t)
	u1 := f.addUser(t, "uploader")
	u2 := f.addUser(t, "liker")
	videoID := f.upload(t, u1, "clip")
	boom := errors.New("primary down")
	f.store.Fail("Videos.AddLike", boom)

	_, err := f.engagement.ToggleLike(context.Background(), u2.ID, model.LikeTarget{Kind: model.LikeVideo, VideoID: videoID})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, f.store.Calls("Users.IncrementTotalLikes"))
	assert.Empty(t, f.user(t, u1.ID).Notifications)
}

func TestEngagementService_ToggleVideoLike_PoolKeepsOrder(t *testing.T) {
	f := newFixture(t)
	uploader := f.addUser(t, "uploader")
	liker := f.addUser(t, "liker")
	ctx := context.Background()
	videoID := f.upload(t, uploader, "test", "a")
	target := model.LikeTarget{Kind: model.LikeVideo, VideoID: videoID}

	pool, notifier := f.pooled()
	engagement := NewEngagementService(f.store.Videos(), slowUsers{f.store.Users()}, notifier, pool, nil)

	// ACT: like then unlike before the slow writes land.
	liked, err := engagement.ToggleLike(ctx, liker.ID, target)
	require.NoError(t, err)
	require.True(t, liked)
	liked, err = engagement.ToggleLike(ctx, liker.ID, target)
	require.NoError(t, err)
	require.False(t, liked)
	pool.Stop()

	// ASSERT
	assert.Empty(t, f.video(t, videoID).Likes)
	assert.Empty(t, f.user(t, liker.ID).Videos.Liked)
	owner := f.user(t, uploader.ID)
	assert.EqualValues(t, 0, owner.TotalLikes)
	assert.Zero(t, countType(owner.Notifications, model.NotificationLikedVideo, liker.ID))
	assert.Empty(t, f.sink.Failures())
}
