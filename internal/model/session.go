package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is one issued refresh token. Only the SHA-256 digest of the token
// is kept. Rotating a session revokes it and records its successor.
type Session struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	Device    string     `db:"device_info"`
	IP        string     `db:"ip_address"`
	ExpiresAt time.Time  `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	Successor *string    `db:"replaced_by"`
}

type SessionState int

const (
	SessionActive SessionState = iota
	SessionExpired
	SessionRevoked
)

// State reports where the session stands at now. A revoked session stays
// revoked after it expires.
func (s *Session) State(now time.Time) SessionState {
	switch {
	case s.RevokedAt != nil:
		return SessionRevoked
	case !now.Before(s.ExpiresAt):
		return SessionExpired
	default:
		return SessionActive
	}
}

// Owner returns the id of the user the session was issued to.
func (s *Session) Owner() (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(s.UserID)
}

var (
	ErrSessionNotFound = newError(ErrNotFound, "session not found")
	ErrSessionExpired  = newError(ErrInvalidInput, "session expired")
	ErrSessionReused   = newError(ErrInvalidInput, "refresh token reuse detected")
)
