package repotest

import (
	"context"

	"clipfeed/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationRepo implements repository.NotificationRepository over a Store.
type NotificationRepo struct {
	s *Store
}

func (r *NotificationRepo) Push(_ context.Context, userID primitive.ObjectID, n *model.Notification) error {
	return r.mutate("Notifications.Push", userID, func(u *model.User) {
		if n.ID.IsZero() {
			n.ID = primitive.NewObjectID()
		}
		u.Notifications = append(u.Notifications, *n)
	})
}

func (r *NotificationRepo) PullByID(_ context.Context, userID, notificationID primitive.ObjectID) error {
	return r.mutate("Notifications.PullByID", userID, func(u *model.User) {
		u.Notifications = filter(u.Notifications, func(n model.Notification) bool { return n.ID == notificationID })
	})
}

func (r *NotificationRepo) PullByReference(_ context.Context, userID primitive.ObjectID, ref model.NotificationRef) error {
	return r.mutate("Notifications.PullByReference", userID, func(u *model.User) {
		u.Notifications = filter(u.Notifications, func(n model.Notification) bool {
			return n.Type == ref.Type && n.RefID == ref.RefID && n.By == ref.By
		})
	})
}

func (r *NotificationRepo) PullByVideo(_ context.Context, userID, videoID primitive.ObjectID) error {
	return r.mutate("Notifications.PullByVideo", userID, func(u *model.User) {
		u.Notifications = filter(u.Notifications, func(n model.Notification) bool {
			return n.RefID == videoID || (n.Meta.VideoID != nil && *n.Meta.VideoID == videoID)
		})
	})
}

func (r *NotificationRepo) Latest(_ context.Context, userID primitive.ObjectID) (*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Notifications.Latest"); err != nil {
		return nil, err
	}

	u, ok := r.s.users[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	if len(u.Notifications) == 0 {
		return nil, nil
	}
	latest := u.Notifications[len(u.Notifications)-1]
	return &latest, nil
}

func (r *NotificationRepo) List(_ context.Context, userID primitive.ObjectID) ([]model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Notifications.List"); err != nil {
		return nil, err
	}

	u, ok := r.s.users[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return append([]model.Notification{}, u.Notifications...), nil
}

func (r *NotificationRepo) MarkAllRead(_ context.Context, userID primitive.ObjectID) error {
	return r.mutate("Notifications.MarkAllRead", userID, func(u *model.User) {
		for i := range u.Notifications {
			u.Notifications[i].Read = true
		}
	})
}

func (r *NotificationRepo) mutate(method string, userID primitive.ObjectID, fn func(u *model.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit(method); err != nil {
		return err
	}

	u, ok := r.s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	fn(u)
	return nil
}

// filter drops the entries drop matches.
func filter(list []model.Notification, drop func(n model.Notification) bool) []model.Notification {
	out := list[:0:0]
	for _, n := range list {
		if !drop(n) {
			out = append(out, n)
		}
	}
	return out
}
