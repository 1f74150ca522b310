package worker

import (
	"context"
	"fmt"
	"time"

	"clipfeed/internal/logger"
	"clipfeed/internal/queue"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ViewCounter bumps the view counter of a batch of videos.
type ViewCounter interface {
	IncrementViews(ctx context.Context, ids []primitive.ObjectID) error
}

// LikedListCleaner removes a deleted video from every user's liked list.
type LikedListCleaner interface {
	RemoveLikedVideoFromAll(ctx context.Context, videoID primitive.ObjectID) (int64, error)
}

// Handler processes engagement events from the queue.
type Handler struct {
	views   ViewCounter
	cleaner LikedListCleaner
	log     *zap.Logger
}

// NewHandler creates a new event handler.
func NewHandler(views ViewCounter, cleaner LikedListCleaner) *Handler {
	return &Handler{
		views:   views,
		cleaner: cleaner,
		log:     logger.Named("worker"),
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.EngagementEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventVideosViewed:
		err = h.handleVideosViewed(ctx, event)
	case queue.EventVideoDeleted:
		err = h.handleVideoDeleted(ctx, event)
	default:
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		h.log.Error("handle event failed",
			zap.String("type", event.Type),
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err),
		)
		return err
	}

	h.log.Debug("handle event ok", zap.String("type", event.Type), zap.Duration("duration", time.Since(startTime)))
	return nil
}

func (h *Handler) handleVideosViewed(ctx context.Context, event queue.EngagementEvent) error {
	ids := make([]primitive.ObjectID, 0, len(event.VideoIDs))
	for _, hex := range event.VideoIDs {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			h.log.Warn("skipping malformed video id", zap.String("video_id", hex))
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := h.views.IncrementViews(ctx, ids); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

func (h *Handler) handleVideoDeleted(ctx context.Context, event queue.EngagementEvent) error {
	videoID, err := primitive.ObjectIDFromHex(event.VideoID)
	if err != nil {
		return fmt.Errorf("parse video id %q: %w", event.VideoID, err)
	}

	n, err := h.cleaner.RemoveLikedVideoFromAll(ctx, videoID)
	if err != nil {
		return fmt.Errorf("pull liked video: %w", err)
	}

	h.log.Info("deleted video removed from liked lists",
		logger.WithVideoID(event.VideoID),
		zap.Int64("users", n),
	)
	return nil
}
