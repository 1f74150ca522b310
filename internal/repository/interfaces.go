package repository

import (
	"context"
	"time"

	"clipfeed/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository reads and writes user documents. List writes are
// idempotent: adding a present id or removing an absent one is a no-op.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update model.ProfileUpdate) error

	// Social graph
	IsFollower(ctx context.Context, targetID, actorID primitive.ObjectID) (bool, error)
	FollowedAmong(ctx context.Context, actorID primitive.ObjectID, targetIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error)
	AddFollower(ctx context.Context, targetID, actorID primitive.ObjectID) error
	RemoveFollower(ctx context.Context, targetID, actorID primitive.ObjectID) error
	AddFollowing(ctx context.Context, actorID, targetID primitive.ObjectID) error
	RemoveFollowing(ctx context.Context, actorID, targetID primitive.ObjectID) error

	// Engagement bookkeeping
	IncrementTotalLikes(ctx context.Context, userID primitive.ObjectID, delta int64) error
	AddUploadedVideo(ctx context.Context, userID, videoID primitive.ObjectID) error
	RemoveUploadedVideo(ctx context.Context, userID, videoID primitive.ObjectID) error
	AddLikedVideo(ctx context.Context, userID, videoID primitive.ObjectID) error
	RemoveLikedVideo(ctx context.Context, userID, videoID primitive.ObjectID) error
	RemoveLikedVideoFromAll(ctx context.Context, videoID primitive.ObjectID) (int64, error)
	AddInterests(ctx context.Context, userID primitive.ObjectID, tags []string) error

	// Discovery. limit 0 means no cap.
	Suggested(ctx context.Context, limit int) ([]model.User, error)
	Search(ctx context.Context, query string) ([]model.User, error)
}

// VideoRepository reads and writes video documents and their embedded
// comment threads.
type VideoRepository interface {
	Create(ctx context.Context, video *model.Video) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Video, error)
	// GetHeader loads a video without its likes and comments.
	GetHeader(ctx context.Context, id primitive.ObjectID) (*model.Video, error)
	// GetByIDs loads videos without their comments, in no particular order.
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Video, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Ranked(ctx context.Context, opts model.RankOptions) ([]model.Video, error)
	Search(ctx context.Context, query string) ([]model.Video, error)
	IncrementViews(ctx context.Context, ids []primitive.ObjectID) error
	IncrementShares(ctx context.Context, id primitive.ObjectID) error

	// Video likes
	HasLiked(ctx context.Context, videoID, userID primitive.ObjectID) (bool, error)
	LikedAmong(ctx context.Context, userID primitive.ObjectID, videoIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error)
	AddLike(ctx context.Context, videoID, userID primitive.ObjectID) error
	RemoveLike(ctx context.Context, videoID, userID primitive.ObjectID) error

	// Comments and replies
	GetComment(ctx context.Context, videoID, commentID primitive.ObjectID) (*model.Comment, error)
	PushComment(ctx context.Context, videoID primitive.ObjectID, comment *model.Comment) error
	// PullComment removes the comment, lowers totalComments by one plus its
	// replies at removal time and returns the removed comment.
	PullComment(ctx context.Context, videoID, commentID primitive.ObjectID) (*model.Comment, error)
	PushReply(ctx context.Context, videoID, commentID primitive.ObjectID, reply *model.Reply) error
	PullReply(ctx context.Context, videoID, commentID, replyID primitive.ObjectID) error
	CommentLikedBy(ctx context.Context, videoID, commentID, userID primitive.ObjectID) (bool, error)
	AddCommentLike(ctx context.Context, videoID, commentID, userID primitive.ObjectID) error
	RemoveCommentLike(ctx context.Context, videoID, commentID, userID primitive.ObjectID) error
	ReplyLikedBy(ctx context.Context, videoID, commentID, replyID, userID primitive.ObjectID) (bool, error)
	AddReplyLike(ctx context.Context, videoID, commentID, replyID, userID primitive.ObjectID) error
	RemoveReplyLike(ctx context.Context, videoID, commentID, replyID, userID primitive.ObjectID) error
}

// NotificationRepository manages the notification list embedded in a user.
type NotificationRepository interface {
	Push(ctx context.Context, userID primitive.ObjectID, n *model.Notification) error
	PullByID(ctx context.Context, userID, notificationID primitive.ObjectID) error
	PullByReference(ctx context.Context, userID primitive.ObjectID, ref model.NotificationRef) error
	// PullByVideo removes entries whose refId or meta.videoId is the video.
	PullByVideo(ctx context.Context, userID, videoID primitive.ObjectID) error
	// Latest returns the newest entry, or nil when the list is empty.
	Latest(ctx context.Context, userID primitive.ObjectID) (*model.Notification, error)
	// List returns entries oldest first.
	List(ctx context.Context, userID primitive.ObjectID) ([]model.Notification, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) error
}

// SessionRepository stores refresh-token sessions in Postgres.
type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	ByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error)
	Rotate(ctx context.Context, oldID string, next *model.Session) error
	Revoke(ctx context.Context, id string) error
	RevokeAll(ctx context.Context, userID string) (int64, error)
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}
