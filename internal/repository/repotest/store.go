// Package repotest provides in-memory repositories with the same list and
// counter semantics as the Mongo implementations, for service tests.
package repotest

import (
	"sort"
	"strings"
	"sync"

	"clipfeed/internal/model"
	"clipfeed/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repository.UserRepository         = (*UserRepo)(nil)
	_ repository.VideoRepository        = (*VideoRepo)(nil)
	_ repository.NotificationRepository = (*NotificationRepo)(nil)
)

// Store holds users and videos shared by the three repository views.
type Store struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]*model.User
	videos   map[primitive.ObjectID]*model.Video
	failures map[string]error
	calls    map[string]int
}

func NewStore() *Store {
	return &Store{
		users:    make(map[primitive.ObjectID]*model.User),
		videos:   make(map[primitive.ObjectID]*model.Video),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (s *Store) Users() *UserRepo                 { return &UserRepo{s: s} }
func (s *Store) Videos() *VideoRepo               { return &VideoRepo{s: s} }
func (s *Store) Notifications() *NotificationRepo { return &NotificationRepo{s: s} }

// Fail makes every later call to the named repository method return err.
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// Calls reports how many times the named method ran.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// User returns a copy of the stored user, or nil.
func (s *Store) User(id primitive.ObjectID) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	return cloneUser(u, true)
}

// Video returns a copy of the stored video, or nil.
func (s *Store) Video(id primitive.ObjectID) *model.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil
	}
	return cloneVideo(v, true)
}

// hit records a call and returns the failure injected for method, if any.
// The caller holds s.mu.
func (s *Store) hit(method string) error {
	s.calls[method]++
	return s.failures[method]
}

func contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func addToSet(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	if contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func pull(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func copyIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func cloneUser(u *model.User, withNotifications bool) *model.User {
	c := *u
	c.Following = copyIDs(u.Following)
	c.Followers = copyIDs(u.Followers)
	c.Videos.Uploaded = copyIDs(u.Videos.Uploaded)
	c.Videos.Liked = copyIDs(u.Videos.Liked)
	c.InterestedIn = append([]string{}, u.InterestedIn...)
	if withNotifications {
		c.Notifications = append([]model.Notification{}, u.Notifications...)
	} else {
		c.Notifications = nil
	}
	return &c
}

func cloneVideo(v *model.Video, withComments bool) *model.Video {
	c := *v
	c.Likes = copyIDs(v.Likes)
	c.Tags = append([]string{}, v.Tags...)
	c.Comments = nil
	if withComments {
		c.Comments = make([]model.Comment, len(v.Comments))
		for i := range v.Comments {
			c.Comments[i] = cloneComment(&v.Comments[i])
		}
	}
	return &c
}

func cloneComment(cm *model.Comment) model.Comment {
	c := *cm
	c.Likes = copyIDs(cm.Likes)
	c.Replies = make([]model.Reply, len(cm.Replies))
	for i, r := range cm.Replies {
		r.Likes = copyIDs(r.Likes)
		c.Replies[i] = r
	}
	return c
}

func matches(text, query string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(query))
}

func sortUsers(users []model.User, less func(a, b *model.User) bool) {
	sort.SliceStable(users, func(i, j int) bool { return less(&users[i], &users[j]) })
}
