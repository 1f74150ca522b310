package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clipfeed/internal/dispatch"
	"clipfeed/internal/logger"
	"clipfeed/internal/media"
	"clipfeed/internal/model"
	"clipfeed/internal/queue"
	"clipfeed/internal/repository"
	"clipfeed/internal/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// VideoService handles uploads, deletion and per-user video lists.
type VideoService struct {
	videoRepo  repository.VideoRepository
	userRepo   repository.UserRepository
	notifRepo  repository.NotificationRepository
	files      media.Store
	dispatcher dispatch.Dispatcher
	publisher  queue.Publisher
	log        *zap.Logger
	now        func() time.Time
}

// NewVideoService creates the video service. publisher may be nil, in which
// case liked-list cleanup runs through the dispatcher.
func NewVideoService(
	videoRepo repository.VideoRepository,
	userRepo repository.UserRepository,
	notifRepo repository.NotificationRepository,
	files media.Store,
	dispatcher dispatch.Dispatcher,
	publisher queue.Publisher,
) *VideoService {
	return &VideoService{
		videoRepo:  videoRepo,
		userRepo:   userRepo,
		notifRepo:  notifRepo,
		files:      files,
		dispatcher: dispatcher,
		publisher:  publisher,
		log:        logger.Named("videos"),
		now:        time.Now,
	}
}

// Upload stores the file, then the video document. The file is removed
// again if the metadata is rejected or the insert fails.
func (s *VideoService) Upload(ctx context.Context, uploaderID primitive.ObjectID, input model.CreateVideoInput, upload *media.Upload) (primitive.ObjectID, error) {
	if upload == nil || len(upload.Data) == 0 {
		return primitive.NilObjectID, model.ErrNoVideoFile
	}

	key, err := s.files.StoreVideo(ctx, upload)
	if err != nil {
		s.log.Error("store video failed", logger.WithUserID(uploaderID.Hex()), zap.Error(err))
		return primitive.NilObjectID, model.ErrNoVideoFile
	}

	input.Caption = strings.TrimSpace(input.Caption)
	input.Music = strings.TrimSpace(input.Music)
	if err := validation.Struct(input); err != nil {
		s.discardFile(ctx, key)
		return primitive.NilObjectID, err
	}

	uploader, err := s.userRepo.GetByID(ctx, uploaderID)
	if err != nil {
		s.discardFile(ctx, key)
		return primitive.NilObjectID, err
	}

	music := input.Music
	if music == "" {
		music = fmt.Sprintf("%s - Original audio", uploader.Username)
	}
	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}

	video := &model.Video{
		ID:        primitive.NewObjectID(),
		Uploader:  uploaderID,
		File:      key,
		Caption:   input.Caption,
		Music:     music,
		Tags:      tags,
		Likes:     []primitive.ObjectID{},
		Comments:  []model.Comment{},
		CreatedAt: s.now(),
	}
	if err := s.videoRepo.Create(ctx, video); err != nil {
		s.discardFile(ctx, key)
		return primitive.NilObjectID, err
	}

	s.dispatcher.Dispatch(uploaderID.Hex(), "users.uploaded_add", func(ctx context.Context) error {
		return s.userRepo.AddUploadedVideo(ctx, uploaderID, video.ID)
	})

	s.log.Info("video uploaded", logger.WithUserID(uploaderID.Hex()), logger.WithVideoID(video.ID.Hex()))
	return video.ID, nil
}

// Get loads one video annotated for the viewer.
func (s *VideoService) Get(ctx context.Context, videoID primitive.ObjectID, viewerID *primitive.ObjectID) (*model.FeedVideo, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	video.Comments = nil

	out, err := annotateVideos(ctx, s.videoRepo, s.userRepo, s.files, []model.Video{*video}, viewerID, false)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Delete removes a video. Only the uploader may delete it. The document
// delete is awaited; the file, list references, counters and notifications
// tied to it are cleaned up afterwards.
func (s *VideoService) Delete(ctx context.Context, actorID, videoID primitive.ObjectID) error {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return err
	}
	if video.Uploader != actorID {
		return model.ErrNotVideoOwner
	}

	if err := s.videoRepo.Delete(ctx, videoID); err != nil {
		return err
	}

	s.dispatcher.Dispatch("", "media.delete_video", func(ctx context.Context) error {
		return s.files.Delete(ctx, video.File)
	})
	s.dispatcher.Dispatch(video.Uploader.Hex(), "users.uploaded_remove", func(ctx context.Context) error {
		return s.userRepo.RemoveUploadedVideo(ctx, video.Uploader, videoID)
	})
	s.releaseLikes(video)
	s.cleanupLikedLists(video)
	s.dispatcher.Dispatch(video.Uploader.Hex(), "notifications.pull_video", func(ctx context.Context) error {
		return s.notifRepo.PullByVideo(ctx, video.Uploader, videoID)
	})
	for _, posterID := range commentPosters(video) {
		s.dispatcher.Dispatch(posterID.Hex(), "notifications.pull_video", func(ctx context.Context) error {
			return s.notifRepo.PullByVideo(ctx, posterID, videoID)
		})
	}

	s.log.Info("video deleted", logger.WithUserID(actorID.Hex()), logger.WithVideoID(videoID.Hex()))
	return nil
}

// releaseLikes takes the likes held by the video and its thread off the
// owners' totals.
func (s *VideoService) releaseLikes(video *model.Video) {
	deltas := map[primitive.ObjectID]int64{}
	deltas[video.Uploader] -= int64(len(video.Likes))
	for _, c := range video.Comments {
		deltas[c.PostedBy] -= int64(len(c.Likes))
		for _, r := range c.Replies {
			deltas[r.PostedBy] -= int64(len(r.Likes))
		}
	}
	for ownerID, delta := range deltas {
		if delta == 0 {
			continue
		}
		s.dispatcher.Dispatch(ownerID.Hex(), "users.total_likes", func(ctx context.Context) error {
			return s.userRepo.IncrementTotalLikes(ctx, ownerID, delta)
		})
	}
}

func (s *VideoService) cleanupLikedLists(video *model.Video) {
	if len(video.Likes) == 0 {
		return
	}
	videoID := video.ID
	s.dispatcher.Dispatch("", "users.liked_cleanup", func(ctx context.Context) error {
		if s.publisher != nil {
			event := queue.NewVideoDeletedEvent(videoID.Hex(), video.Uploader.Hex())
			_, err := s.publisher.Publish(ctx, queue.StreamEngagement, event)
			if err == nil {
				return nil
			}
			s.log.Warn("publish video deleted event failed, cleaning up directly", logger.WithVideoID(videoID.Hex()), zap.Error(err))
		}
		_, err := s.userRepo.RemoveLikedVideoFromAll(ctx, videoID)
		return err
	})
}

func commentPosters(video *model.Video) []primitive.ObjectID {
	var ids []primitive.ObjectID
	for _, c := range video.Comments {
		if c.PostedBy != video.Uploader {
			ids = append(ids, c.PostedBy)
		}
	}
	return uniqueIDs(ids)
}

// Share counts one share of the video.
func (s *VideoService) Share(ctx context.Context, videoID primitive.ObjectID) error {
	return s.videoRepo.IncrementShares(ctx, videoID)
}

// ListUserVideos returns the uploaded or liked videos of username, newest
// first.
func (s *VideoService) ListUserVideos(ctx context.Context, username string, kind model.VideoListKind, viewerID *primitive.ObjectID) ([]model.FeedVideo, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	var ids []primitive.ObjectID
	switch kind {
	case model.VideoListUploaded, "":
		ids = user.Videos.Uploaded
	case model.VideoListLiked:
		ids = user.Videos.Liked
	default:
		return nil, model.InvalidInput(fmt.Sprintf("unknown video list %q", kind))
	}
	if len(ids) == 0 {
		return []model.FeedVideo{}, nil
	}

	ordered := newestFirst(ids)
	videos, err := s.videoRepo.GetByIDs(ctx, ordered)
	if err != nil {
		return nil, err
	}
	return annotateVideos(ctx, s.videoRepo, s.userRepo, s.files, orderByIDs(videos, ordered), viewerID, false)
}

func (s *VideoService) discardFile(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		s.log.Warn("delete media failed", zap.String("key", key), zap.Error(err))
	}
}
