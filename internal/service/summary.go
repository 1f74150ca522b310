package service

import (
	"context"

	"clipfeed/internal/media"
	"clipfeed/internal/model"
	"clipfeed/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func toSummary(u *model.User, files media.Store) model.UserSummary {
	s := model.UserSummary{
		ID:            u.ID.Hex(),
		Username:      u.Username,
		Name:          u.Name,
		TotalLikes:    u.TotalLikes,
		FollowerCount: len(u.Followers),
	}
	if files != nil && u.HasProfilePhoto() {
		s.ProfilePhotoURL = files.URL(u.ProfilePhoto)
	}
	return s
}

// summarize builds display summaries in the order of users. When viewerID
// is set, IsFollowing is filled with one batched lookup.
func summarize(ctx context.Context, userRepo repository.UserRepository, files media.Store, users []model.User, viewerID *primitive.ObjectID) ([]model.UserSummary, error) {
	out := make([]model.UserSummary, len(users))
	ids := make([]primitive.ObjectID, len(users))
	for i := range users {
		out[i] = toSummary(&users[i], files)
		ids[i] = users[i].ID
	}
	if viewerID == nil || len(users) == 0 {
		return out, nil
	}

	followed, err := userRepo.FollowedAmong(ctx, *viewerID, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].IsFollowing = followed[ids[i]]
	}
	return out, nil
}

// summariesByID loads users and indexes their summaries by id.
func summariesByID(ctx context.Context, userRepo repository.UserRepository, files media.Store, ids []primitive.ObjectID) (map[primitive.ObjectID]model.UserSummary, error) {
	users, err := userRepo.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]model.UserSummary, len(users))
	for i := range users {
		out[users[i].ID] = toSummary(&users[i], files)
	}
	return out, nil
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// newestFirst returns a reversed copy of an oldest-first list.
func newestFirst(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// annotateVideos resolves uploaders and, for a viewer, the hasLiked and
// isFollowing flags with one batched query each. allFollowed skips the
// follow lookup when every uploader is known to be followed.
func annotateVideos(
	ctx context.Context,
	videoRepo repository.VideoRepository,
	userRepo repository.UserRepository,
	files media.Store,
	videos []model.Video,
	viewerID *primitive.ObjectID,
	allFollowed bool,
) ([]model.FeedVideo, error) {
	out := make([]model.FeedVideo, 0, len(videos))
	if len(videos) == 0 {
		return out, nil
	}

	videoIDs := make([]primitive.ObjectID, len(videos))
	uploaderIDs := make([]primitive.ObjectID, len(videos))
	for i := range videos {
		videoIDs[i] = videos[i].ID
		uploaderIDs[i] = videos[i].Uploader
	}

	uploaders, err := summariesByID(ctx, userRepo, files, uploaderIDs)
	if err != nil {
		return nil, err
	}

	var liked, followed map[primitive.ObjectID]bool
	if viewerID != nil {
		liked, err = videoRepo.LikedAmong(ctx, *viewerID, videoIDs)
		if err != nil {
			return nil, err
		}
		if !allFollowed {
			followed, err = userRepo.FollowedAmong(ctx, *viewerID, uniqueIDs(uploaderIDs))
			if err != nil {
				return nil, err
			}
		}
	}

	for i := range videos {
		v := &videos[i]
		isFollowing := viewerID != nil && (allFollowed || followed[v.Uploader])
		uploader := uploaders[v.Uploader]
		uploader.IsFollowing = isFollowing

		var url string
		if files != nil {
			url = files.URL(v.File)
		}
		out = append(out, model.FeedVideo{
			ID:            v.ID.Hex(),
			URL:           url,
			Caption:       v.Caption,
			Music:         v.Music,
			Tags:          v.Tags,
			LikeCount:     len(v.Likes),
			TotalComments: v.TotalComments,
			Shares:        v.Shares,
			Views:         v.Views,
			Uploader:      uploader,
			HasLiked:      liked[v.ID],
			IsFollowing:   isFollowing,
			CreatedAt:     v.CreatedAt,
		})
	}
	return out, nil
}

// orderByIDs arranges videos in the order of ids, dropping missing ones.
func orderByIDs(videos []model.Video, ids []primitive.ObjectID) []model.Video {
	byID := make(map[primitive.ObjectID]model.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	out := make([]model.Video, 0, len(videos))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
			delete(byID, id)
		}
	}
	return out
}
