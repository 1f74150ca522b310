package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment constraints
const (
	MaxCommentLength = 300
)

// Comment is embedded in a Video. Replies are one level deep.
type Comment struct {
	ID        primitive.ObjectID   `bson:"_id" json:"id"`
	PostedBy  primitive.ObjectID   `bson:"postedBy" json:"posted_by"`
	Comment   string               `bson:"comment" json:"comment"`
	Likes     []primitive.ObjectID `bson:"likes" json:"-"`
	Replies   []Reply              `bson:"replies" json:"-"`
	CreatedAt time.Time            `bson:"createdAt" json:"created_at"`
}

// Reply is embedded in a Comment.
type Reply struct {
	ID        primitive.ObjectID   `bson:"_id" json:"id"`
	PostedBy  primitive.ObjectID   `bson:"postedBy" json:"posted_by"`
	Comment   string               `bson:"comment" json:"comment"`
	Likes     []primitive.ObjectID `bson:"likes" json:"-"`
	CreatedAt time.Time            `bson:"createdAt" json:"created_at"`
}

// Reply finds a reply by id.
func (c *Comment) Reply(id primitive.ObjectID) *Reply {
	for i := range c.Replies {
		if c.Replies[i].ID == id {
			return &c.Replies[i]
		}
	}
	return nil
}

// CommentView is a comment prepared for display.
type CommentView struct {
	ID        string      `json:"id"`
	Comment   string      `json:"comment"`
	PostedBy  UserSummary `json:"posted_by"`
	LikeCount int         `json:"like_count"`
	HasLiked  bool        `json:"has_liked"`
	Replies   []ReplyView `json:"replies"`
	CreatedAt time.Time   `json:"created_at"`
}

// ReplyView is a reply prepared for display.
type ReplyView struct {
	ID        string      `json:"id"`
	Comment   string      `json:"comment"`
	PostedBy  UserSummary `json:"posted_by"`
	LikeCount int         `json:"like_count"`
	HasLiked  bool        `json:"has_liked"`
	CreatedAt time.Time   `json:"created_at"`
}

// CreateCommentRequest is the request body for creating a comment or reply.
type CreateCommentRequest struct {
	Comment string `json:"comment" validate:"required,max=300"`
}

var (
	ErrContentRequired = newError(ErrInvalidInput, "comment content is required")
	ErrContentTooLong  = newError(ErrInvalidInput, "comment content too long")
)

// LikeTargetKind is the kind of entity a like toggles on.
type LikeTargetKind string

const (
	LikeVideo   LikeTargetKind = "video"
	LikeComment LikeTargetKind = "comment"
	LikeReply   LikeTargetKind = "reply"
)

// LikeTarget identifies a likeable entity. CommentID is set for comments
// and replies, ReplyID only for replies.
type LikeTarget struct {
	Kind      LikeTargetKind
	VideoID   primitive.ObjectID
	CommentID primitive.ObjectID
	ReplyID   primitive.ObjectID
}
