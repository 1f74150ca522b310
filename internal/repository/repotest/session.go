package repotest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipfeed/internal/model"
)

// SessionRepo implements repository.SessionRepository in memory. Now drives
// creation and revocation times and defaults to time.Now.
type SessionRepo struct {
	Now func() time.Time

	mu       sync.Mutex
	sessions map[string]*model.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{Now: time.Now, sessions: make(map[string]*model.Session)}
}

func (r *SessionRepo) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insert(s)
	return nil
}

func (r *SessionRepo) insert(s *model.Session) {
	s.ID = uuid.NewString()
	s.CreatedAt = r.Now()
	stored := *s
	r.sessions[s.ID] = &stored
}

func (r *SessionRepo) ByTokenHash(_ context.Context, tokenHash string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.TokenHash == tokenHash {
			found := *s
			return &found, nil
		}
	}
	return nil, model.ErrSessionNotFound
}

func (r *SessionRepo) Rotate(_ context.Context, oldID string, next *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.sessions[oldID]
	if !ok || old.RevokedAt != nil {
		return model.ErrSessionReused
	}
	r.insert(next)
	now := r.Now()
	old.RevokedAt = &now
	successor := next.ID
	old.Successor = &successor
	return nil
}

func (r *SessionRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok && s.RevokedAt == nil {
		now := r.Now()
		s.RevokedAt = &now
	}
	return nil
}

func (r *SessionRepo) RevokeAll(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.Now()
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

func (r *SessionRepo) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// Active counts sessions that are neither revoked nor expired.
func (r *SessionRepo) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.Now()
	n := 0
	for _, s := range r.sessions {
		if s.State(now) == model.SessionActive {
			n++
		}
	}
	return n
}

// Get returns a copy of the session with id, or nil.
func (r *SessionRepo) Get(id string) *model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	out := *s
	return &out
}
