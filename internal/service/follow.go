package service

import (
	"context"

	"clipfeed/internal/dispatch"
	"clipfeed/internal/logger"
	"clipfeed/internal/media"
	"clipfeed/internal/metrics"
	"clipfeed/internal/model"
	"clipfeed/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type FollowService struct {
	userRepo   repository.UserRepository
	notifier   Notifier
	dispatcher dispatch.Dispatcher
	files      media.Store
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewFollowService(
	userRepo repository.UserRepository,
	notifier Notifier,
	dispatcher dispatch.Dispatcher,
	files media.Store,
	m *metrics.Metrics,
) *FollowService {
	return &FollowService{
		userRepo:   userRepo,
		notifier:   notifier,
		dispatcher: dispatcher,
		files:      files,
		metrics:    m,
		log:        logger.Named("follow"),
	}
}

// ToggleFollow follows the target when the actor is not yet a follower and
// unfollows otherwise, returning the new state. The target's followers list
// is written first and awaited; the actor's following list and the
// notification are dispatched.
func (s *FollowService) ToggleFollow(ctx context.Context, actorID, targetID primitive.ObjectID) (bool, error) {
	if actorID == targetID {
		return false, model.ErrCannotFollowSelf
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return false, err
	}

	following, err := s.userRepo.IsFollower(ctx, targetID, actorID)
	if err != nil {
		return false, err
	}

	if following {
		if err := s.userRepo.RemoveFollower(ctx, targetID, actorID); err != nil {
			return false, err
		}
		s.dispatcher.Dispatch(actorID.Hex(), "follow.following_remove", func(ctx context.Context) error {
			return s.userRepo.RemoveFollowing(ctx, actorID, targetID)
		})
		ref := model.NotificationRef{Type: model.NotificationFollowed, RefID: targetID, By: actorID}
		s.dispatcher.Dispatch(targetID.Hex(), "notifications.retract_followed", func(ctx context.Context) error {
			return s.notifier.Retract(ctx, targetID, ref)
		})
	} else {
		if err := s.userRepo.AddFollower(ctx, targetID, actorID); err != nil {
			return false, err
		}
		s.dispatcher.Dispatch(actorID.Hex(), "follow.following_add", func(ctx context.Context) error {
			return s.userRepo.AddFollowing(ctx, actorID, targetID)
		})
		s.dispatcher.Dispatch(targetID.Hex(), "notifications.followed", func(ctx context.Context) error {
			return s.notifier.NotifyFollowed(ctx, targetID, actorID)
		})
	}

	s.metrics.Toggle("follow", !following)
	s.log.Debug("follow toggled",
		logger.WithUserID(actorID.Hex()),
		zap.String("targetId", targetID.Hex()),
		zap.Bool("followed", !following))
	return !following, nil
}

// IsFollowing reports whether actor appears in target's followers list.
func (s *FollowService) IsFollowing(ctx context.Context, actorUsername, targetUsername string) (bool, error) {
	actor, err := s.userRepo.GetByUsername(ctx, actorUsername)
	if err != nil {
		return false, err
	}
	target, err := s.userRepo.GetByUsername(ctx, targetUsername)
	if err != nil {
		return false, err
	}
	return s.IsFollowingID(ctx, actor.ID, target.ID)
}

func (s *FollowService) IsFollowingID(ctx context.Context, actorID, targetID primitive.ObjectID) (bool, error) {
	return s.userRepo.IsFollower(ctx, targetID, actorID)
}

// Followers lists who follows username, newest first.
func (s *FollowService) Followers(ctx context.Context, username string, viewerID *primitive.ObjectID) (*model.FollowListResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, user.Followers, viewerID)
}

// Following lists who username follows, newest first.
func (s *FollowService) Following(ctx context.Context, username string, viewerID *primitive.ObjectID) (*model.FollowListResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, user.Following, viewerID)
}

func (s *FollowService) list(ctx context.Context, ids []primitive.ObjectID, viewerID *primitive.ObjectID) (*model.FollowListResponse, error) {
	ordered := newestFirst(ids)
	users, err := s.userRepo.GetByIDs(ctx, ordered)
	if err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	sorted := make([]model.User, 0, len(users))
	for _, id := range ordered {
		if u, ok := byID[id]; ok {
			sorted = append(sorted, u)
		}
	}

	summaries, err := summarize(ctx, s.userRepo, s.files, sorted, viewerID)
	if err != nil {
		return nil, err
	}
	return &model.FollowListResponse{Users: summaries, Total: len(summaries)}, nil
}
