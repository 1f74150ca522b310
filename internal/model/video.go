package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Video constraints
const (
	CaptionMaxLength = 150
	MusicMaxLength   = 30
	TagsMaxLength    = 200
)

// Video is the video document with its comment thread embedded.
type Video struct {
	ID            primitive.ObjectID   `bson:"_id" json:"id"`
	Uploader      primitive.ObjectID   `bson:"uploader" json:"uploader_id"`
	File          string               `bson:"video" json:"-"`
	Caption       string               `bson:"caption" json:"caption"`
	Music         string               `bson:"music" json:"music"`
	Tags          []string             `bson:"tags" json:"tags"`
	Likes         []primitive.ObjectID `bson:"likes" json:"-"`
	Comments      []Comment            `bson:"comments" json:"-"`
	TotalComments int64                `bson:"totalComments" json:"total_comments"`
	Shares        int64                `bson:"shares" json:"shares"`
	Views         int64                `bson:"views" json:"views"`
	CreatedAt     time.Time            `bson:"createdAt" json:"created_at"`
}

// Comment finds an embedded comment by id.
func (v *Video) Comment(id primitive.ObjectID) *Comment {
	for i := range v.Comments {
		if v.Comments[i].ID == id {
			return &v.Comments[i]
		}
	}
	return nil
}

// CreateVideoInput is the metadata sent alongside an upload.
type CreateVideoInput struct {
	Caption string   `validate:"max=150"`
	Music   string   `validate:"max=30"`
	Tags    []string `validate:"tagslen"`
}

// ParseTags splits a comma or space separated tag string.
func ParseTags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '#'
	})
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		tags = append(tags, strings.ToLower(f))
	}
	return tags
}

// TagsLength is the length of the tags when joined with single spaces.
func TagsLength(tags []string) int {
	return len(strings.Join(tags, " "))
}

// FeedVideo is a video prepared for display in a feed.
type FeedVideo struct {
	ID            string      `json:"id"`
	URL           string      `json:"url"`
	Caption       string      `json:"caption"`
	Music         string      `json:"music"`
	Tags          []string    `json:"tags"`
	LikeCount     int         `json:"like_count"`
	TotalComments int64       `json:"total_comments"`
	Shares        int64       `json:"shares"`
	Views         int64       `json:"views"`
	Uploader      UserSummary `json:"uploader"`
	HasLiked      bool        `json:"has_liked"`
	IsFollowing   bool        `json:"is_following"`
	CreatedAt     time.Time   `json:"created_at"`
}

// FeedOrder selects the home feed ranking.
type FeedOrder string

const (
	// FeedOrderRecent ranks newest uploads first.
	FeedOrderRecent FeedOrder = "recent"
	// FeedOrderPopular ranks by views, then likes, then oldest first.
	FeedOrderPopular FeedOrder = "popular"
)

// ParseFeedOrder falls back to FeedOrderRecent for unknown values.
func ParseFeedOrder(s string) FeedOrder {
	if FeedOrder(s) == FeedOrderPopular {
		return FeedOrderPopular
	}
	return FeedOrderRecent
}

// RankOptions selects one page of the ranked video list.
type RankOptions struct {
	Order FeedOrder
	Skip  int
	Limit int
}

// SearchMode selects what a search query matches.
type SearchMode string

const (
	SearchAccounts SearchMode = "accounts"
	SearchVideos   SearchMode = "videos"
)

// SearchResult holds whichever list the mode produced.
type SearchResult struct {
	Accounts []UserSummary `json:"accounts,omitempty"`
	Videos   []FeedVideo   `json:"videos,omitempty"`
}

// VideoListKind selects which per-user list to read.
type VideoListKind string

const (
	VideoListUploaded VideoListKind = "uploaded"
	VideoListLiked    VideoListKind = "liked"
)
