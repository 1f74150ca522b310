package service

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"clipfeed/internal/dispatch"
	"clipfeed/internal/media"
	"clipfeed/internal/media/mediatest"
	"clipfeed/internal/model"
	"clipfeed/internal/repository"
	"clipfeed/internal/repository/repotest"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================
//
// Every service runs against the same in-memory store. Secondary writes go
// through dispatch.Inline, so they have landed by the time a call returns
// and failures are captured by the Recorder.

type fixture struct {
	store *repotest.Store
	files *mediatest.Store
	sink  *dispatch.Recorder

	notifications *NotificationService
	engagement    *EngagementService
	comments      *CommentService
	follows       *FollowService
	feed          *FeedService
	videos        *VideoService
	users         *UserService

	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: repotest.NewStore(),
		files: mediatest.NewStore(),
		sink:  &dispatch.Recorder{},
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	d := dispatch.Inline{Sink: f.sink}
	users, videos, notifs := f.store.Users(), f.store.Videos(), f.store.Notifications()

	f.notifications = NewNotificationService(notifs, users, f.files)
	f.engagement = NewEngagementService(videos, users, f.notifications, d, nil)
	f.comments = NewCommentService(videos, users, f.notifications, d, f.files)
	f.follows = NewFollowService(users, f.notifications, d, f.files, nil)
	f.feed = NewFeedService(videos, users, f.files, d, nil, nil, FeedOptions{})
	f.feed.SetRand(rand.New(rand.NewPCG(7, 11)))
	f.videos = NewVideoService(videos, users, notifs, f.files, d, nil)
	f.users = NewUserService(users, f.files)

	f.notifications.now = f.tick
	f.comments.now = f.tick
	f.videos.now = f.tick
	f.users.now = f.tick
	return f
}

// tick is a clock that advances one second per reading.
func (f *fixture) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fixture) addUser(t *testing.T, username string) *model.User {
	t.Helper()

	user := &model.User{
		ID:            primitive.NewObjectID(),
		Username:      username,
		Name:          username,
		Email:         username + "@example.com",
		Bio:           model.DefaultBio,
		ProfilePhoto:  model.NoProfilePhoto,
		Following:     []primitive.ObjectID{},
		Followers:     []primitive.ObjectID{},
		Videos:        model.UserVideos{Uploaded: []primitive.ObjectID{}, Liked: []primitive.ObjectID{}},
		InterestedIn:  []string{},
		Notifications: []model.Notification{},
		CreatedAt:     f.tick(),
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}

func (f *fixture) upload(t *testing.T, uploader *model.User, caption string, tags ...string) primitive.ObjectID {
	t.Helper()

	id, err := f.videos.Upload(context.Background(), uploader.ID, model.CreateVideoInput{
		Caption: caption,
		Tags:    tags,
	}, videoUpload())
	require.NoError(t, err)
	return id
}

func (f *fixture) user(t *testing.T, id primitive.ObjectID) *model.User {
	t.Helper()
	u := f.store.User(id)
	require.NotNil(t, u)
	return u
}

func (f *fixture) video(t *testing.T, id primitive.ObjectID) *model.Video {
	t.Helper()
	v := f.store.Video(id)
	require.NotNil(t, v)
	return v
}

func videoUpload() *media.Upload {
	return &media.Upload{Data: []byte("fake mp4 bytes"), ContentType: model.ContentTypeMP4}
}

func countType(list []model.Notification, typ model.NotificationType, by primitive.ObjectID) int {
	n := 0
	for _, entry := range list {
		if entry.Type == typ && entry.By == by {
			n++
		}
	}
	return n
}

// =============================================================================
// SLOW REPOSITORIES
// =============================================================================
//
// Wrappers that hold the first write of a toggle long enough for the undo to
// reach a free worker when tasks run on a real Pool.

const slowWrite = 50 * time.Millisecond

type slowUsers struct {
	repository.UserRepository
}

func (r slowUsers) AddFollowing(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	time.Sleep(slowWrite)
	return r.UserRepository.AddFollowing(ctx, actorID, targetID)
}

func (r slowUsers) AddLikedVideo(ctx context.Context, userID, videoID primitive.ObjectID) error {
	time.Sleep(slowWrite)
	return r.UserRepository.AddLikedVideo(ctx, userID, videoID)
}

type slowNotifications struct {
	repository.NotificationRepository
}

func (r slowNotifications) Push(ctx context.Context, userID primitive.ObjectID, n *model.Notification) error {
	time.Sleep(slowWrite)
	return r.NotificationRepository.Push(ctx, userID, n)
}

// pooled returns a started Pool and a notifier whose writes are slow.
func (f *fixture) pooled() (*dispatch.Pool, *NotificationService) {
	pool := dispatch.NewPool(dispatch.PoolConfig{Workers: 4}, f.sink)
	pool.Start()
	notifier := NewNotificationService(slowNotifications{f.store.Notifications()}, f.store.Users(), f.files)
	return pool, notifier
}
