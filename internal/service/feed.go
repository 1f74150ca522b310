package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"clipfeed/internal/dispatch"
	"clipfeed/internal/logger"
	"clipfeed/internal/media"
	"clipfeed/internal/metrics"
	"clipfeed/internal/model"
	"clipfeed/internal/queue"
	"clipfeed/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	// FeedDefaultPageSize is the number of videos per home feed page
	FeedDefaultPageSize = 10

	// FollowingDefaultCap is how many recent uploads each followed user
	// contributes to the following feed
	FollowingDefaultCap = 5
)

// FeedOptions configures FeedService.
type FeedOptions struct {
	PageSize     int
	FollowingCap int
	Order        model.FeedOrder
}

type FeedService struct {
	videoRepo  repository.VideoRepository
	userRepo   repository.UserRepository
	files      media.Store
	dispatcher dispatch.Dispatcher
	publisher  queue.Publisher
	metrics    *metrics.Metrics
	opts       FeedOptions
	log        *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewFeedService creates the feed engine. publisher may be nil, in which
// case view counts are written through the dispatcher.
func NewFeedService(
	videoRepo repository.VideoRepository,
	userRepo repository.UserRepository,
	files media.Store,
	dispatcher dispatch.Dispatcher,
	publisher queue.Publisher,
	m *metrics.Metrics,
	opts FeedOptions,
) *FeedService {
	if opts.PageSize <= 0 {
		opts.PageSize = FeedDefaultPageSize
	}
	if opts.FollowingCap <= 0 {
		opts.FollowingCap = FollowingDefaultCap
	}
	if opts.Order == "" {
		opts.Order = model.FeedOrderRecent
	}
	return &FeedService{
		videoRepo:  videoRepo,
		userRepo:   userRepo,
		files:      files,
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    m,
		opts:       opts,
		log:        logger.Named("feed"),
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// SetRand replaces the shuffle source.
func (s *FeedService) SetRand(r *rand.Rand) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng = r
}

// HomeFeed selects one ranked page, shuffles it and annotates it for the
// viewer. viewerUsername may be empty.
func (s *FeedService) HomeFeed(ctx context.Context, viewerUsername string, skip int) ([]model.FeedVideo, error) {
	defer s.metrics.FeedBuild("home")()

	if skip < 0 {
		return nil, model.InvalidInput("skip must not be negative")
	}
	viewer, err := s.resolveViewer(ctx, viewerUsername)
	if err != nil {
		return nil, err
	}

	videos, err := s.videoRepo.Ranked(ctx, model.RankOptions{
		Order: s.opts.Order,
		Skip:  skip,
		Limit: s.opts.PageSize,
	})
	if err != nil {
		return nil, err
	}

	s.shuffle(videos)
	out, err := s.annotate(ctx, videos, viewer, false)
	if err != nil {
		return nil, err
	}
	s.recordViews(videos)
	return out, nil
}

// FollowingFeed gathers the most recent uploads of everyone the viewer
// follows, skipping the newest skip uploads of each, and shuffles them.
func (s *FeedService) FollowingFeed(ctx context.Context, viewerUsername string, skip int) ([]model.FeedVideo, error) {
	defer s.metrics.FeedBuild("following")()

	if skip < 0 {
		return nil, model.InvalidInput("skip must not be negative")
	}
	viewer, err := s.userRepo.GetByUsername(ctx, viewerUsername)
	if err != nil {
		return nil, err
	}
	if len(viewer.Following) == 0 {
		return []model.FeedVideo{}, nil
	}

	followed, err := s.userRepo.GetByIDs(ctx, viewer.Following)
	if err != nil {
		return nil, err
	}

	var candidates []primitive.ObjectID
	for _, u := range followed {
		candidates = append(candidates, recentWindow(u.Videos.Uploaded, skip, s.opts.FollowingCap)...)
	}
	if len(candidates) == 0 {
		return []model.FeedVideo{}, nil
	}

	videos, err := s.videoRepo.GetByIDs(ctx, candidates)
	if err != nil {
		return nil, err
	}

	s.shuffle(videos)
	out, err := s.annotate(ctx, videos, viewer, true)
	if err != nil {
		return nil, err
	}
	s.recordViews(videos)
	return out, nil
}

// recentWindow returns up to limit ids ending skip entries before the end
// of an oldest-first list.
func recentWindow(ids []primitive.ObjectID, skip, limit int) []primitive.ObjectID {
	end := len(ids) - skip
	if end <= 0 {
		return nil
	}
	start := max(end-limit, 0)
	return ids[start:end]
}

// Suggested ranks accounts by totalLikes, then followers, then age.
// A limit of 0 returns every account.
func (s *FeedService) Suggested(ctx context.Context, limit int, viewerID *primitive.ObjectID) ([]model.UserSummary, error) {
	if limit < 0 {
		return nil, model.ErrInvalidLimit
	}
	users, err := s.userRepo.Suggested(ctx, limit)
	if err != nil {
		return nil, err
	}
	return summarize(ctx, s.userRepo, s.files, users, viewerID)
}

// Search returns every account matching by username or name, or every
// video matching by caption or tags. Matching is case-insensitive and unranked.
func (s *FeedService) Search(ctx context.Context, query string, mode model.SearchMode, viewerUsername string) (*model.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.ErrEmptySearchQuery
	}
	viewer, err := s.resolveViewer(ctx, viewerUsername)
	if err != nil {
		return nil, err
	}

	switch mode {
	case model.SearchAccounts:
		users, err := s.userRepo.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		var viewerID *primitive.ObjectID
		if viewer != nil {
			viewerID = &viewer.ID
		}
		accounts, err := summarize(ctx, s.userRepo, s.files, users, viewerID)
		if err != nil {
			return nil, err
		}
		return &model.SearchResult{Accounts: accounts}, nil

	case model.SearchVideos:
		videos, err := s.videoRepo.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		out, err := s.annotate(ctx, videos, viewer, false)
		if err != nil {
			return nil, err
		}
		s.recordViews(videos)
		return &model.SearchResult{Videos: out}, nil

	default:
		return nil, model.InvalidInput(fmt.Sprintf("unknown search mode %q", mode))
	}
}

func (s *FeedService) resolveViewer(ctx context.Context, username string) (*model.User, error) {
	if username == "" {
		return nil, nil
	}
	return s.userRepo.GetByUsername(ctx, username)
}

func (s *FeedService) annotate(ctx context.Context, videos []model.Video, viewer *model.User, allFollowed bool) ([]model.FeedVideo, error) {
	var viewerID *primitive.ObjectID
	if viewer != nil {
		viewerID = &viewer.ID
	}
	return annotateVideos(ctx, s.videoRepo, s.userRepo, s.files, videos, viewerID, allFollowed)
}

func (s *FeedService) shuffle(videos []model.Video) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	Shuffle(s.rng, videos)
}

// Shuffle permutes items in place with Fisher-Yates.
func Shuffle[T any](r *rand.Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// recordViews bumps the view counter of every served video without
// holding up the response.
func (s *FeedService) recordViews(videos []model.Video) {
	if len(videos) == 0 {
		return
	}
	ids := make([]primitive.ObjectID, len(videos))
	hexIDs := make([]string, len(videos))
	for i := range videos {
		ids[i] = videos[i].ID
		hexIDs[i] = videos[i].ID.Hex()
	}

	s.dispatcher.Dispatch("", "videos.views", func(ctx context.Context) error {
		if s.publisher != nil {
			_, err := s.publisher.Publish(ctx, queue.StreamEngagement, queue.NewVideosViewedEvent(hexIDs))
			if err == nil {
				return nil
			}
			s.log.Warn("publish views event failed, writing directly", zap.Error(err), zap.Int("videos", len(ids)))
		}
		return s.videoRepo.IncrementViews(ctx, ids)
	})
}
