package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"clipfeed/internal/dispatch"
	"clipfeed/internal/logger"
	"clipfeed/internal/media"
	"clipfeed/internal/model"
	"clipfeed/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CommentService manages the comment threads embedded in videos.
type CommentService struct {
	videoRepo  repository.VideoRepository
	userRepo   repository.UserRepository
	notifier   Notifier
	dispatcher dispatch.Dispatcher
	files      media.Store
	log        *zap.Logger
	now        func() time.Time
}

func NewCommentService(
	videoRepo repository.VideoRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	dispatcher dispatch.Dispatcher,
	files media.Store,
) *CommentService {
	return &CommentService{
		videoRepo:  videoRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		dispatcher: dispatcher,
		files:      files,
		log:        logger.Named("comments"),
		now:        time.Now,
	}
}

// CreateComment appends a comment and bumps totalComments by one.
func (s *CommentService) CreateComment(ctx context.Context, actorID, videoID primitive.ObjectID, text string) (primitive.ObjectID, error) {
	text, err := validateContent(text)
	if err != nil {
		return primitive.NilObjectID, err
	}

	video, err := s.videoRepo.GetHeader(ctx, videoID)
	if err != nil {
		return primitive.NilObjectID, err
	}

	comment := &model.Comment{
		ID:        primitive.NewObjectID(),
		PostedBy:  actorID,
		Comment:   text,
		Likes:     []primitive.ObjectID{},
		Replies:   []model.Reply{},
		CreatedAt: s.now(),
	}
	if err := s.videoRepo.PushComment(ctx, videoID, comment); err != nil {
		return primitive.NilObjectID, err
	}

	s.dispatcher.Dispatch(video.Uploader.Hex(), "notifications.commented", func(ctx context.Context) error {
		return s.notifier.NotifyCommented(ctx, video, comment)
	})

	s.log.Debug("comment created", logger.WithVideoID(videoID.Hex()), zap.String("commentId", comment.ID.Hex()))
	return comment.ID, nil
}

// DeleteComment removes a comment with its replies. Only the poster may
// delete it; totalComments drops by one plus the number of replies.
func (s *CommentService) DeleteComment(ctx context.Context, actorID, videoID, commentID primitive.ObjectID) error {
	comment, err := s.videoRepo.GetComment(ctx, videoID, commentID)
	if err != nil {
		return err
	}
	if comment.PostedBy != actorID {
		return model.ErrNotCommentOwner
	}

	video, err := s.videoRepo.GetHeader(ctx, videoID)
	if err != nil {
		return err
	}

	// Cleanup follows the thread as it was removed.
	comment, err = s.videoRepo.PullComment(ctx, videoID, commentID)
	if err != nil {
		return err
	}
	removed := int64(1 + len(comment.Replies))

	ref := model.NotificationRef{Type: model.NotificationCommented, RefID: comment.ID, By: comment.PostedBy}
	s.dispatcher.Dispatch(video.Uploader.Hex(), "notifications.retract_commented", func(ctx context.Context) error {
		return s.notifier.Retract(ctx, video.Uploader, ref)
	})
	s.releaseLikes(comment.PostedBy, len(comment.Likes))

	for _, reply := range comment.Replies {
		ref := model.NotificationRef{Type: model.NotificationReplied, RefID: reply.ID, By: reply.PostedBy}
		s.dispatcher.Dispatch(comment.PostedBy.Hex(), "notifications.retract_replied", func(ctx context.Context) error {
			return s.notifier.Retract(ctx, comment.PostedBy, ref)
		})
		s.releaseLikes(reply.PostedBy, len(reply.Likes))
	}

	s.log.Debug("comment deleted",
		logger.WithVideoID(videoID.Hex()),
		zap.String("commentId", commentID.Hex()),
		zap.Int64("removed", removed))
	return nil
}

// CreateReply appends a reply under a comment and bumps totalComments by one.
func (s *CommentService) CreateReply(ctx context.Context, actorID, videoID, commentID primitive.ObjectID, text string) (primitive.ObjectID, error) {
	text, err := validateContent(text)
	if err != nil {
		return primitive.NilObjectID, err
	}

	comment, err := s.videoRepo.GetComment(ctx, videoID, commentID)
	if err != nil {
		return primitive.NilObjectID, err
	}

	reply := &model.Reply{
		ID:        primitive.NewObjectID(),
		PostedBy:  actorID,
		Comment:   text,
		Likes:     []primitive.ObjectID{},
		CreatedAt: s.now(),
	}
	if err := s.videoRepo.PushReply(ctx, videoID, commentID, reply); err != nil {
		return primitive.NilObjectID, err
	}

	s.dispatcher.Dispatch(comment.PostedBy.Hex(), "notifications.replied", func(ctx context.Context) error {
		return s.notifier.NotifyReplied(ctx, videoID, comment, reply)
	})
	return reply.ID, nil
}

// DeleteReply removes one reply. Only its poster may delete it.
func (s *CommentService) DeleteReply(ctx context.Context, actorID, videoID, commentID, replyID primitive.ObjectID) error {
	comment, err := s.videoRepo.GetComment(ctx, videoID, commentID)
	if err != nil {
		return err
	}
	reply := comment.Reply(replyID)
	if reply == nil {
		return model.ErrReplyNotFound
	}
	if reply.PostedBy != actorID {
		return model.ErrNotReplyOwner
	}

	if err := s.videoRepo.PullReply(ctx, videoID, commentID, replyID); err != nil {
		return err
	}

	ref := model.NotificationRef{Type: model.NotificationReplied, RefID: reply.ID, By: reply.PostedBy}
	s.dispatcher.Dispatch(comment.PostedBy.Hex(), "notifications.retract_replied", func(ctx context.Context) error {
		return s.notifier.Retract(ctx, comment.PostedBy, ref)
	})
	s.releaseLikes(reply.PostedBy, len(reply.Likes))
	return nil
}

// ListComments returns the thread newest first, replies included.
func (s *CommentService) ListComments(ctx context.Context, videoID primitive.ObjectID, viewerID *primitive.ObjectID) ([]model.CommentView, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	var posterIDs []primitive.ObjectID
	for _, c := range video.Comments {
		posterIDs = append(posterIDs, c.PostedBy)
		for _, r := range c.Replies {
			posterIDs = append(posterIDs, r.PostedBy)
		}
	}
	posters, err := summariesByID(ctx, s.userRepo, s.files, posterIDs)
	if err != nil {
		return nil, err
	}

	views := make([]model.CommentView, 0, len(video.Comments))
	for i := len(video.Comments) - 1; i >= 0; i-- {
		c := &video.Comments[i]
		view := model.CommentView{
			ID:        c.ID.Hex(),
			Comment:   c.Comment,
			PostedBy:  posters[c.PostedBy],
			LikeCount: len(c.Likes),
			HasLiked:  viewerID != nil && containsID(c.Likes, *viewerID),
			Replies:   make([]model.ReplyView, 0, len(c.Replies)),
			CreatedAt: c.CreatedAt,
		}
		for j := len(c.Replies) - 1; j >= 0; j-- {
			r := &c.Replies[j]
			view.Replies = append(view.Replies, model.ReplyView{
				ID:        r.ID.Hex(),
				Comment:   r.Comment,
				PostedBy:  posters[r.PostedBy],
				LikeCount: len(r.Likes),
				HasLiked:  viewerID != nil && containsID(r.Likes, *viewerID),
				CreatedAt: r.CreatedAt,
			})
		}
		views = append(views, view)
	}
	return views, nil
}

// releaseLikes takes likes held by removed content off its poster's total.
func (s *CommentService) releaseLikes(posterID primitive.ObjectID, likes int) {
	if likes == 0 {
		return
	}
	delta := -int64(likes)
	s.dispatcher.Dispatch(posterID.Hex(), "users.total_likes", func(ctx context.Context) error {
		return s.userRepo.IncrementTotalLikes(ctx, posterID, delta)
	})
}

func validateContent(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", model.ErrContentRequired
	}
	if utf8.RuneCountInString(text) > model.MaxCommentLength {
		return "", model.ErrContentTooLong
	}
	return text, nil
}
