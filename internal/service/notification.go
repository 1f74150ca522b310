package service

import (
	"context"
	"time"

	"clipfeed/internal/media"
	"clipfeed/internal/model"
	"clipfeed/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier records and retracts notifications on behalf of the
// engagement, comment and follow flows.
type Notifier interface {
	NotifyFollowed(ctx context.Context, targetID, actorID primitive.ObjectID) error
	NotifyLikedVideo(ctx context.Context, video *model.Video, actorID primitive.ObjectID) error
	NotifyCommented(ctx context.Context, video *model.Video, comment *model.Comment) error
	NotifyReplied(ctx context.Context, videoID primitive.ObjectID, comment *model.Comment, reply *model.Reply) error
	Retract(ctx context.Context, recipientID primitive.ObjectID, ref model.NotificationRef) error
}

// NotificationService manages the per-user notification inbox.
type NotificationService struct {
	notifRepo repository.NotificationRepository
	userRepo  repository.UserRepository
	files     media.Store
	now       func() time.Time
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	files media.Store,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		userRepo:  userRepo,
		files:     files,
		now:       time.Now,
	}
}

// Create appends n to the recipient's inbox. Events a user causes on their
// own content are dropped.
func (s *NotificationService) Create(ctx context.Context, recipientID primitive.ObjectID, n *model.Notification) error {
	if n.By == recipientID {
		return nil
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	n.Read = false
	return s.notifRepo.Push(ctx, recipientID, n)
}

// Delete removes entries from the recipient's inbox by id or by reference.
// Removing an absent entry is not an error. A reference whose actor is the
// recipient matches nothing, since such entries are never created.
func (s *NotificationService) Delete(ctx context.Context, mode model.NotificationDeleteMode, recipientID primitive.ObjectID, m model.NotificationMatcher) error {
	if mode == model.DeleteByReference {
		if m.Ref.By == recipientID {
			return nil
		}
		return s.notifRepo.PullByReference(ctx, recipientID, m.Ref)
	}
	return s.notifRepo.PullByID(ctx, recipientID, m.ID)
}

// Retract removes the notification an event created.
func (s *NotificationService) Retract(ctx context.Context, recipientID primitive.ObjectID, ref model.NotificationRef) error {
	return s.Delete(ctx, model.DeleteByReference, recipientID, model.NotificationMatcher{Ref: ref})
}

// HasUnread looks only at the newest entry.
func (s *NotificationService) HasUnread(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	latest, err := s.notifRepo.Latest(ctx, userID)
	if err != nil {
		return false, err
	}
	return latest != nil && !latest.Read, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	return s.notifRepo.MarkAllRead(ctx, userID)
}

// List returns the inbox newest first with each actor resolved.
func (s *NotificationService) List(ctx context.Context, userID primitive.ObjectID) (*model.NotificationListResponse, error) {
	entries, err := s.notifRepo.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	actorIDs := make([]primitive.ObjectID, len(entries))
	for i, n := range entries {
		actorIDs[i] = n.By
	}
	actors, err := summariesByID(ctx, s.userRepo, s.files, actorIDs)
	if err != nil {
		return nil, err
	}

	resp := &model.NotificationListResponse{
		Notifications: make([]model.NotificationView, 0, len(entries)),
	}
	for i := len(entries) - 1; i >= 0; i-- {
		view := model.NotificationView{Notification: entries[i]}
		if actor, ok := actors[entries[i].By]; ok {
			view.Actor = &actor
		}
		if !entries[i].Read {
			resp.UnreadCount++
		}
		resp.Notifications = append(resp.Notifications, view)
	}
	return resp, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int, error) {
	entries, err := s.notifRepo.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range entries {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *NotificationService) NotifyFollowed(ctx context.Context, targetID, actorID primitive.ObjectID) error {
	if targetID == actorID {
		return nil
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	return s.Create(ctx, targetID, &model.Notification{
		Type:    model.NotificationFollowed,
		RefID:   targetID,
		By:      actorID,
		Message: model.FollowedMessage(actor.Username),
	})
}

func (s *NotificationService) NotifyLikedVideo(ctx context.Context, video *model.Video, actorID primitive.ObjectID) error {
	if video.Uploader == actorID {
		return nil
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	videoID := video.ID
	return s.Create(ctx, video.Uploader, &model.Notification{
		Type:    model.NotificationLikedVideo,
		RefID:   video.ID,
		By:      actorID,
		Message: model.LikedVideoMessage(actor.Username, video.Caption),
		Meta:    model.NotificationMeta{VideoID: &videoID},
	})
}

func (s *NotificationService) NotifyCommented(ctx context.Context, video *model.Video, comment *model.Comment) error {
	if video.Uploader == comment.PostedBy {
		return nil
	}
	actor, err := s.userRepo.GetByID(ctx, comment.PostedBy)
	if err != nil {
		return err
	}
	videoID := video.ID
	return s.Create(ctx, video.Uploader, &model.Notification{
		Type:    model.NotificationCommented,
		RefID:   comment.ID,
		By:      comment.PostedBy,
		Message: model.CommentedMessage(actor.Username, comment.Comment),
		Meta:    model.NotificationMeta{VideoID: &videoID},
	})
}

func (s *NotificationService) NotifyReplied(ctx context.Context, videoID primitive.ObjectID, comment *model.Comment, reply *model.Reply) error {
	if comment.PostedBy == reply.PostedBy {
		return nil
	}
	actor, err := s.userRepo.GetByID(ctx, reply.PostedBy)
	if err != nil {
		return err
	}
	commentID := comment.ID
	return s.Create(ctx, comment.PostedBy, &model.Notification{
		Type:    model.NotificationReplied,
		RefID:   reply.ID,
		By:      reply.PostedBy,
		Message: model.RepliedMessage(actor.Username, reply.Comment),
		Meta:    model.NotificationMeta{VideoID: &videoID, CommentID: &commentID},
	})
}
