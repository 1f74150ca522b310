package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType is the event a notification records.
type NotificationType string

const (
	NotificationFollowed   NotificationType = "followed"
	NotificationLikedVideo NotificationType = "likedVideo"
	NotificationCommented  NotificationType = "commented"
	NotificationReplied    NotificationType = "replied"
)

// PreviewLength is how many characters of a caption or comment a
// notification message quotes.
const PreviewLength = 30

// Notification is embedded in the recipient's User document, oldest first.
//
// RefID depends on Type: the followed user for followed, the video for
// likedVideo, the comment for commented and the reply for replied.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Type      NotificationType   `bson:"type" json:"type"`
	RefID     primitive.ObjectID `bson:"refId" json:"ref_id"`
	By        primitive.ObjectID `bson:"by" json:"by"`
	Message   string             `bson:"message" json:"message"`
	Meta      NotificationMeta   `bson:"meta,omitempty" json:"meta"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
}

// NotificationMeta carries the ids needed to navigate to the source.
type NotificationMeta struct {
	VideoID   *primitive.ObjectID `bson:"videoId,omitempty" json:"video_id,omitempty"`
	CommentID *primitive.ObjectID `bson:"commentId,omitempty" json:"comment_id,omitempty"`
}

// NotificationRef identifies the notification created for one event.
type NotificationRef struct {
	Type  NotificationType
	RefID primitive.ObjectID
	By    primitive.ObjectID
}

// NotificationDeleteMode selects how Delete matches entries.
type NotificationDeleteMode int

const (
	DeleteByID NotificationDeleteMode = iota
	DeleteByReference
)

// NotificationView is a notification with its actor resolved.
type NotificationView struct {
	Notification
	Actor *UserSummary `json:"actor,omitempty"`
}

// NotificationListResponse is the notification inbox response.
type NotificationListResponse struct {
	Notifications []NotificationView `json:"notifications"`
	UnreadCount   int                `json:"unread_count"`
}

// Preview cuts text to PreviewLength characters, appending "..." when cut.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + "..."
}

func FollowedMessage(username string) string {
	return username + " started following you."
}

func LikedVideoMessage(username, caption string) string {
	if caption == "" {
		return username + " liked your video."
	}
	return username + " liked your video: " + Preview(caption)
}

func CommentedMessage(username, text string) string {
	return username + " commented: " + Preview(text)
}

func RepliedMessage(username, text string) string {
	return username + " replied to your comment: " + Preview(text)
}

// NotificationMatcher selects entries for Delete. ID is used with
// DeleteByID, Ref with DeleteByReference.
type NotificationMatcher struct {
	ID  primitive.ObjectID
	Ref NotificationRef
}
