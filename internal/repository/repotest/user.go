package repotest

import (
	"context"
	"strings"

	"clipfeed/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepo implements repository.UserRepository over a Store.
type UserRepo struct {
	s *Store
}

func (r *UserRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Users.Create"); err != nil {
		return err
	}

	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, user.Username) {
			return model.ErrUsernameExists
		}
		if user.Email != "" && u.Email == user.Email {
			return model.ErrEmailExists
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.s.users[user.ID] = cloneUser(user, true)
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Users.GetByID"); err != nil {
		return nil, err
	}

	u, ok := r.s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return cloneUser(u, false), nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Users.GetByUsername"); err != nil {
		return nil, err
	}

	for _, u := range r.s.users {
		if u.Username == username {
			return cloneUser(u, false), nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (r *UserRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Users.GetByIDs"); err != nil {
		return nil, err
	}

	out := []model.User{}
	seen := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, *cloneUser(u, false))
		}
	}
	return out, nil
}

func (r *UserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Users.ExistsByUsername"); err != nil {
		return false, err
	}

	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Users.ExistsByEmail"); err != nil {
		return false, err
	}

	for _, u := range r.s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepo) UpdateProfile(_ context.Context, id primitive.ObjectID, update model.ProfileUpdate) error {
	return r.mutate("Users.UpdateProfile", id, func(u *model.User) {
		if update.Name != nil {
			u.Name = *update.Name
		}
		if update.Bio != nil {
			u.Bio = *update.Bio
		}
		if update.ProfilePhoto != nil {
			u.ProfilePhoto = *update.ProfilePhoto
		}
	})
}

func (r *UserRepo) IsFollower(_ context.Context, targetID, actorID primitive.ObjectID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Users.IsFollower"); err != nil {
		return false, err
	}

	u, ok := r.s.users[targetID]
	return ok && contains(u.Followers, actorID), nil
}

func (r *UserRepo) FollowedAmong(_ context.Context, actorID primitive.ObjectID, targetIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Users.FollowedAmong"); err != nil {
		return nil, err
	}

	out := make(map[primitive.ObjectID]bool)
	for _, id := range targetIDs {
		if u, ok := r.s.users[id]; ok && contains(u.Followers, actorID) {
			out[id] = true
		}
	}
	return out, nil
}

func (r *UserRepo) AddFollower(_ context.Context, targetID, actorID primitive.ObjectID) error {
	return r.mutate("Users.AddFollower", targetID, func(u *model.User) {
		u.Followers = addToSet(u.Followers, actorID)
	})
}

func (r *UserRepo) RemoveFollower(_ context.Context, targetID, actorID primitive.ObjectID) error {
	return r.mutate("Users.RemoveFollower", targetID, func(u *model.User) {
		u.Followers = pull(u.Followers, actorID)
	})
}

func (r *UserRepo) AddFollowing(_ context.Context, actorID, targetID primitive.ObjectID) error {
	return r.mutate("Users.AddFollowing", actorID, func(u *model.User) {
		u.Following = addToSet(u.Following, targetID)
	})
}

func (r *UserRepo) RemoveFollowing(_ context.Context, actorID, targetID primitive.ObjectID) error {
	return r.mutate("Users.RemoveFollowing", actorID, func(u *model.User) {
		u.Following = pull(u.Following, targetID)
	})
}

func (r *UserRepo) IncrementTotalLikes(_ context.Context, userID primitive.ObjectID, delta int64) error {
	return r.mutate("Users.IncrementTotalLikes", userID, func(u *model.User) {
		u.TotalLikes += delta
	})
}

func (r *UserRepo) AddUploadedVideo(_ context.Context, userID, videoID primitive.ObjectID) error {
	return r.mutate("Users.AddUploadedVideo", userID, func(u *model.User) {
		u.Videos.Uploaded = addToSet(u.Videos.Uploaded, videoID)
	})
}

func (r *UserRepo) RemoveUploadedVideo(_ context.Context, userID, videoID primitive.ObjectID) error {
	return r.mutate("Users.RemoveUploadedVideo", userID, func(u *model.User) {
		u.Videos.Uploaded = pull(u.Videos.Uploaded, videoID)
	})
}

func (r *UserRepo) AddLikedVideo(_ context.Context, userID, videoID primitive.ObjectID) error {
	return r.mutate("Users.AddLikedVideo", userID, func(u *model.User) {
		u.Videos.Liked = addToSet(u.Videos.Liked, videoID)
	})
}

func (r *UserRepo) RemoveLikedVideo(_ context.Context, userID, videoID primitive.ObjectID) error {
	return r.mutate("Users.RemoveLikedVideo", userID, func(u *model.User) {
		u.Videos.Liked = pull(u.Videos.Liked, videoID)
	})
}

func (r *UserRepo) RemoveLikedVideoFromAll(_ context.Context, videoID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Users.RemoveLikedVideoFromAll"); err != nil {
		return 0, err
	}

	var n int64
	for _, u := range r.s.users {
		if contains(u.Videos.Liked, videoID) {
			u.Videos.Liked = pull(u.Videos.Liked, videoID)
			n++
		}
	}
	return n, nil
}

func (r *UserRepo) AddInterests(_ context.Context, userID primitive.ObjectID, tags []string) error {
	return r.mutate("Users.AddInterests", userID, func(u *model.User) {
		for _, tag := range tags {
			found := false
			for _, t := range u.InterestedIn {
				if t == tag {
					found = true
					break
				}
			}
			if !found {
				u.InterestedIn = append(u.InterestedIn, tag)
			}
		}
	})
}

func (r *UserRepo) Suggested(_ context.Context, limit int) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Users.Suggested"); err != nil {
		return nil, err
	}

	out := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, *cloneUser(u, false))
	}
	sortUsers(out, func(a, b *model.User) bool {
		if a.TotalLikes != b.TotalLikes {
			return a.TotalLikes > b.TotalLikes
		}
		if len(a.Followers) != len(b.Followers) {
			return len(a.Followers) > len(b.Followers)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *UserRepo) Search(_ context.Context, query string) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Users.Search"); err != nil {
		return nil, err
	}

	out := []model.User{}
	for _, u := range r.s.users {
		if matches(u.Username, query) || matches(u.Name, query) {
			out = append(out, *cloneUser(u, false))
		}
	}
	return out, nil
}

func (r *UserRepo) mutate(method string, id primitive.ObjectID, fn func(u *model.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit(method); err != nil {
		return err
	}

	u, ok := r.s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	fn(u)
	return nil
}
