package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoProfilePhoto marks a user who never uploaded a profile photo.
const NoProfilePhoto = "default"

const DefaultBio = "No bio yet."

// Account constraints
const (
	UsernameMinLength = 4
	UsernameMaxLength = 15
	PasswordMinLength = 6
	NameMaxLength     = 30
	BioMaxLength      = 300
)

// User is the account document. Notifications are embedded and kept out of
// every projection except the notification repository's.
type User struct {
	ID            primitive.ObjectID   `bson:"_id" json:"id"`
	Username      string               `bson:"username" json:"username"`
	Name          string               `bson:"name" json:"name"`
	Email         string               `bson:"email" json:"-"`
	Password      string               `bson:"password" json:"-"`
	Bio           string               `bson:"bio" json:"bio"`
	ProfilePhoto  string               `bson:"profilePhoto" json:"-"`
	TotalLikes    int64                `bson:"totalLikes" json:"total_likes"`
	Following     []primitive.ObjectID `bson:"following" json:"-"`
	Followers     []primitive.ObjectID `bson:"followers" json:"-"`
	Videos        UserVideos           `bson:"videos" json:"-"`
	InterestedIn  []string             `bson:"interestedIn" json:"-"`
	Notifications []Notification       `bson:"notifications" json:"-"`
	CreatedAt     time.Time            `bson:"createdAt" json:"created_at"`
}

// UserVideos holds the uploaded and liked lists, oldest first.
type UserVideos struct {
	Uploaded []primitive.ObjectID `bson:"uploaded" json:"uploaded"`
	Liked    []primitive.ObjectID `bson:"liked" json:"liked"`
}

// HasProfilePhoto reports whether ProfilePhoto points at a stored file.
func (u *User) HasProfilePhoto() bool {
	return u.ProfilePhoto != "" && u.ProfilePhoto != NoProfilePhoto
}

// UserSummary is the compact user shape embedded in feeds and lists.
type UserSummary struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfilePhotoURL string `json:"profile_photo_url,omitempty"`
	TotalLikes      int64  `json:"total_likes"`
	FollowerCount   int    `json:"follower_count"`
	IsFollowing     bool   `json:"is_following"`
}

// Profile is the public account view.
type Profile struct {
	UserSummary
	Bio            string    `json:"bio"`
	FollowingCount int       `json:"following_count"`
	UploadCount    int       `json:"upload_count"`
	LikedCount     int       `json:"liked_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// SignupRequest represents the data needed to create an account
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=4,max=15,username"`
	Name     string `json:"name" validate:"required,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate carries the editable profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=30"`
	Bio          *string `json:"bio,omitempty" validate:"omitempty,max=300"`
	ProfilePhoto *string `json:"-"`
}

// IsEmpty reports whether the update changes nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Bio == nil && p.ProfilePhoto == nil
}

var (
	ErrUsernameExists     = newError(ErrConflict, "username already exists")
	ErrEmailExists        = newError(ErrConflict, "email already registered")
	ErrInvalidCredentials = newError(ErrInvalidInput, "invalid credentials")
)
