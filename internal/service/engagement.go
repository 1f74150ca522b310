package service

import (
	"context"
	"fmt"

	"clipfeed/internal/dispatch"
	"clipfeed/internal/logger"
	"clipfeed/internal/metrics"
	"clipfeed/internal/model"
	"clipfeed/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EngagementService toggles likes on videos, comments and replies and keeps
// the owner's totalLikes in step.
type EngagementService struct {
	videoRepo  repository.VideoRepository
	userRepo   repository.UserRepository
	notifier   Notifier
	dispatcher dispatch.Dispatcher
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewEngagementService(
	videoRepo repository.VideoRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	dispatcher dispatch.Dispatcher,
	m *metrics.Metrics,
) *EngagementService {
	return &EngagementService{
		videoRepo:  videoRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		dispatcher: dispatcher,
		metrics:    m,
		log:        logger.Named("engagement"),
	}
}

// ToggleLike flips the actor's like on the target and returns the new state.
// The likes list write is awaited; counters, the liker's liked list and the
// notification are dispatched.
func (s *EngagementService) ToggleLike(ctx context.Context, actorID primitive.ObjectID, target model.LikeTarget) (bool, error) {
	var (
		liked bool
		err   error
	)
	switch target.Kind {
	case model.LikeVideo:
		liked, err = s.toggleVideoLike(ctx, actorID, target.VideoID)
	case model.LikeComment:
		liked, err = s.toggleCommentLike(ctx, actorID, target)
	case model.LikeReply:
		liked, err = s.toggleReplyLike(ctx, actorID, target)
	default:
		return false, model.InvalidInput(fmt.Sprintf("unknown like target %q", target.Kind))
	}
	if err != nil {
		return false, err
	}

	s.metrics.Toggle("like_"+string(target.Kind), liked)
	s.log.Debug("like toggled",
		logger.WithUserID(actorID.Hex()),
		logger.WithVideoID(target.VideoID.Hex()),
		zap.String("kind", string(target.Kind)),
		zap.Bool("liked", liked))
	return liked, nil
}

func (s *EngagementService) toggleVideoLike(ctx context.Context, actorID, videoID primitive.ObjectID) (bool, error) {
	video, err := s.videoRepo.GetHeader(ctx, videoID)
	if err != nil {
		return false, err
	}
	present, err := s.videoRepo.HasLiked(ctx, videoID, actorID)
	if err != nil {
		return false, err
	}

	if present {
		if err := s.videoRepo.RemoveLike(ctx, videoID, actorID); err != nil {
			return false, err
		}
		s.adjustOwnerLikes(video.Uploader, -1)
		s.dispatcher.Dispatch(actorID.Hex(), "likes.liked_list_remove", func(ctx context.Context) error {
			return s.userRepo.RemoveLikedVideo(ctx, actorID, videoID)
		})
		ref := model.NotificationRef{Type: model.NotificationLikedVideo, RefID: videoID, By: actorID}
		s.dispatcher.Dispatch(video.Uploader.Hex(), "notifications.retract_liked_video", func(ctx context.Context) error {
			return s.notifier.Retract(ctx, video.Uploader, ref)
		})
		return false, nil
	}

	if err := s.videoRepo.AddLike(ctx, videoID, actorID); err != nil {
		return false, err
	}
	s.adjustOwnerLikes(video.Uploader, 1)
	s.dispatcher.Dispatch(actorID.Hex(), "likes.liked_list_add", func(ctx context.Context) error {
		return s.userRepo.AddLikedVideo(ctx, actorID, videoID)
	})
	if len(video.Tags) > 0 {
		tags := append([]string{}, video.Tags...)
		s.dispatcher.Dispatch(actorID.Hex(), "users.interests", func(ctx context.Context) error {
			return s.userRepo.AddInterests(ctx, actorID, tags)
		})
	}
	s.dispatcher.Dispatch(video.Uploader.Hex(), "notifications.liked_video", func(ctx context.Context) error {
		return s.notifier.NotifyLikedVideo(ctx, video, actorID)
	})
	return true, nil
}

func (s *EngagementService) toggleCommentLike(ctx context.Context, actorID primitive.ObjectID, target model.LikeTarget) (bool, error) {
	comment, err := s.videoRepo.GetComment(ctx, target.VideoID, target.CommentID)
	if err != nil {
		return false, err
	}
	present, err := s.videoRepo.CommentLikedBy(ctx, target.VideoID, target.CommentID, actorID)
	if err != nil {
		return false, err
	}

	if present {
		if err := s.videoRepo.RemoveCommentLike(ctx, target.VideoID, target.CommentID, actorID); err != nil {
			return false, err
		}
		s.adjustOwnerLikes(comment.PostedBy, -1)
		return false, nil
	}

	if err := s.videoRepo.AddCommentLike(ctx, target.VideoID, target.CommentID, actorID); err != nil {
		return false, err
	}
	s.adjustOwnerLikes(comment.PostedBy, 1)
	return true, nil
}

func (s *EngagementService) toggleReplyLike(ctx context.Context, actorID primitive.ObjectID, target model.LikeTarget) (bool, error) {
	comment, err := s.videoRepo.GetComment(ctx, target.VideoID, target.CommentID)
	if err != nil {
		return false, err
	}
	reply := comment.Reply(target.ReplyID)
	if reply == nil {
		return false, model.ErrReplyNotFound
	}
	present, err := s.videoRepo.ReplyLikedBy(ctx, target.VideoID, target.CommentID, target.ReplyID, actorID)
	if err != nil {
		return false, err
	}

	if present {
		if err := s.videoRepo.RemoveReplyLike(ctx, target.VideoID, target.CommentID, target.ReplyID, actorID); err != nil {
			return false, err
		}
		s.adjustOwnerLikes(reply.PostedBy, -1)
		return false, nil
	}

	if err := s.videoRepo.AddReplyLike(ctx, target.VideoID, target.CommentID, target.ReplyID, actorID); err != nil {
		return false, err
	}
	s.adjustOwnerLikes(reply.PostedBy, 1)
	return true, nil
}

func (s *EngagementService) adjustOwnerLikes(ownerID primitive.ObjectID, delta int64) {
	s.dispatcher.Dispatch(ownerID.Hex(), "users.total_likes", func(ctx context.Context) error {
		return s.userRepo.IncrementTotalLikes(ctx, ownerID, delta)
	})
}

// LikedAmong reports which of the videos the user has liked.
func (s *EngagementService) LikedAmong(ctx context.Context, userID primitive.ObjectID, videoIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	if len(videoIDs) == 0 {
		return map[primitive.ObjectID]bool{}, nil
	}
	return s.videoRepo.LikedAmong(ctx, userID, videoIDs)
}
