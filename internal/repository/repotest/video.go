package repotest

import (
	"context"
	"sort"

	"clipfeed/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VideoRepo implements repository.VideoRepository over a Store.
type VideoRepo struct {
	s *Store
}

func (r *VideoRepo) Create(_ context.Context, video *model.Video) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Videos.Create"); err != nil {
		return err
	}

	if video.ID.IsZero() {
		video.ID = primitive.NewObjectID()
	}
	r.s.videos[video.ID] = cloneVideo(video, true)
	return nil
}

func (r *VideoRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.Video, error) {
	return r.read("Videos.GetByID", id, func(v *model.Video) *model.Video { return cloneVideo(v, true) })
}

func (r *VideoRepo) GetHeader(_ context.Context, id primitive.ObjectID) (*model.Video, error) {
	return r.read("Videos.GetHeader", id, func(v *model.Video) *model.Video {
		c := cloneVideo(v, false)
		c.Likes = nil
		return c
	})
}

func (r *VideoRepo) read(method string, id primitive.ObjectID, fn func(v *model.Video) *model.Video) (*model.Video, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit(method); err != nil {
		return nil, err
	}

	v, ok := r.s.videos[id]
	if !ok {
		return nil, model.ErrVideoNotFound
	}
	return fn(v), nil
}

func (r *VideoRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]model.Video, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Videos.GetByIDs"); err != nil {
		return nil, err
	}

	out := []model.Video{}
	seen := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		if v, ok := r.s.videos[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, *cloneVideo(v, false))
		}
	}
	return out, nil
}

func (r *VideoRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Videos.Delete"); err != nil {
		return err
	}

	if _, ok := r.s.videos[id]; !ok {
		return model.ErrVideoNotFound
	}
	delete(r.s.videos, id)
	return nil
}

func (r *VideoRepo) Ranked(_ context.Context, opts model.RankOptions) ([]model.Video, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Videos.Ranked"); err != nil {
		return nil, err
	}

	all := make([]model.Video, 0, len(r.s.videos))
	for _, v := range r.s.videos {
		all = append(all, *cloneVideo(v, false))
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := &all[i], &all[j]
		if opts.Order == model.FeedOrderPopular {
			if a.Views != b.Views {
				return a.Views > b.Views
			}
			if len(a.Likes) != len(b.Likes) {
				return len(a.Likes) > len(b.Likes)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.Hex() > b.ID.Hex()
	})

	if opts.Skip >= len(all) {
		return []model.Video{}, nil
	}
	all = all[opts.Skip:]
	if opts.Limit > 0 && len(all) > opts.Limit {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (r *VideoRepo) Search(_ context.Context, query string) ([]model.Video, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Videos.Search"); err != nil {
		return nil, err
	}

	out := []model.Video{}
	for _, v := range r.s.videos {
		hit := matches(v.Caption, query)
		for _, tag := range v.Tags {
			hit = hit || matches(tag, query)
		}
		if hit {
			out = append(out, *cloneVideo(v, false))
		}
	}
	return out, nil
}

func (r *VideoRepo) IncrementViews(_ context.Context, ids []primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Videos.IncrementViews"); err != nil {
		return err
	}

	for _, id := range ids {
		if v, ok := r.s.videos[id]; ok {
			v.Views++
		}
	}
	return nil
}

func (r *VideoRepo) IncrementShares(_ context.Context, id primitive.ObjectID) error {
	return r.mutate("Videos.IncrementShares", id, func(v *model.Video) error {
		v.Shares++
		return nil
	})
}

func (r *VideoRepo) HasLiked(_ context.Context, videoID, userID primitive.ObjectID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Videos.HasLiked"); err != nil {
		return false, err
	}

	v, ok := r.s.videos[videoID]
	return ok && contains(v.Likes, userID), nil
}

func (r *VideoRepo) LikedAmong(_ context.Context, userID primitive.ObjectID, videoIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Videos.LikedAmong"); err != nil {
		return nil, err
	}

	out := make(map[primitive.ObjectID]bool)
	for _, id := range videoIDs {
		if v, ok := r.s.videos[id]; ok && contains(v.Likes, userID) {
			out[id] = true
		}
	}
	return out, nil
}

func (r *VideoRepo) AddLike(_ context.Context, videoID, userID primitive.ObjectID) error {
	return r.mutate("Videos.AddLike", videoID, func(v *model.Video) error {
		v.Likes = addToSet(v.Likes, userID)
		return nil
	})
}

func (r *VideoRepo) RemoveLike(_ context.Context, videoID, userID primitive.ObjectID) error {
	return r.mutate("Videos.RemoveLike", videoID, func(v *model.Video) error {
		v.Likes = pull(v.Likes, userID)
		return nil
	})
}

func (r *VideoRepo) GetComment(_ context.Context, videoID, commentID primitive.ObjectID) (*model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Videos.GetComment"); err != nil {
		return nil, err
	}

	v, ok := r.s.videos[videoID]
	if !ok {
		return nil, model.ErrCommentNotFound
	}
	c := v.Comment(commentID)
	if c == nil {
		return nil, model.ErrCommentNotFound
	}
	out := cloneComment(c)
	return &out, nil
}

func (r *VideoRepo) PushComment(_ context.Context, videoID primitive.ObjectID, comment *model.Comment) error {
	return r.mutate("Videos.PushComment", videoID, func(v *model.Video) error {
		if comment.ID.IsZero() {
			comment.ID = primitive.NewObjectID()
		}
		v.Comments = append(v.Comments, cloneComment(comment))
		v.TotalComments++
		return nil
	})
}

func (r *VideoRepo) PullComment(_ context.Context, videoID, commentID primitive.ObjectID) (*model.Comment, error) {
	var removed model.Comment
	err := r.mutateComment("Videos.PullComment", videoID, commentID, func(v *model.Video, c *model.Comment) error {
		removed = cloneComment(c)
		kept := v.Comments[:0:0]
		for _, other := range v.Comments {
			if other.ID != commentID {
				kept = append(kept, other)
			}
		}
		v.Comments = kept
		v.TotalComments -= int64(1 + len(removed.Replies))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

func (r *VideoRepo) PushReply(_ context.Context, videoID, commentID primitive.ObjectID, reply *model.Reply) error {
	return r.mutateComment("Videos.PushReply", videoID, commentID, func(v *model.Video, c *model.Comment) error {
		if reply.ID.IsZero() {
			reply.ID = primitive.NewObjectID()
		}
		rc := *reply
		rc.Likes = copyIDs(reply.Likes)
		c.Replies = append(c.Replies, rc)
		v.TotalComments++
		return nil
	})
}

func (r *VideoRepo) PullReply(_ context.Context, videoID, commentID, replyID primitive.ObjectID) error {
	return r.mutateComment("Videos.PullReply", videoID, commentID, func(v *model.Video, c *model.Comment) error {
		if c.Reply(replyID) == nil {
			return model.ErrReplyNotFound
		}
		kept := c.Replies[:0:0]
		for _, rp := range c.Replies {
			if rp.ID != replyID {
				kept = append(kept, rp)
			}
		}
		c.Replies = kept
		v.TotalComments--
		return nil
	})
}

func (r *VideoRepo) CommentLikedBy(_ context.Context, videoID, commentID, userID primitive.ObjectID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Videos.CommentLikedBy"); err != nil {
		return false, err
	}

	v, ok := r.s.videos[videoID]
	if !ok {
		return false, nil
	}
	c := v.Comment(commentID)
	return c != nil && contains(c.Likes, userID), nil
}

func (r *VideoRepo) AddCommentLike(_ context.Context, videoID, commentID, userID primitive.ObjectID) error {
	return r.mutateComment("Videos.AddCommentLike", videoID, commentID, func(_ *model.Video, c *model.Comment) error {
		c.Likes = addToSet(c.Likes, userID)
		return nil
	})
}

func (r *VideoRepo) RemoveCommentLike(_ context.Context, videoID, commentID, userID primitive.ObjectID) error {
	return r.mutateComment("Videos.RemoveCommentLike", videoID, commentID, func(_ *model.Video, c *model.Comment) error {
		c.Likes = pull(c.Likes, userID)
		return nil
	})
}

func (r *VideoRepo) ReplyLikedBy(_ context.Context, videoID, commentID, replyID, userID primitive.ObjectID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("Videos.ReplyLikedBy"); err != nil {
		return false, err
	}

	v, ok := r.s.videos[videoID]
	if !ok {
		return false, nil
	}
	c := v.Comment(commentID)
	if c == nil {
		return false, nil
	}
	rp := c.Reply(replyID)
	return rp != nil && contains(rp.Likes, userID), nil
}

func (r *VideoRepo) AddReplyLike(_ context.Context, videoID, commentID, replyID, userID primitive.ObjectID) error {
	return r.mutateReply("Videos.AddReplyLike", videoID, commentID, replyID, func(rp *model.Reply) {
		rp.Likes = addToSet(rp.Likes, userID)
	})
}

func (r *VideoRepo) RemoveReplyLike(_ context.Context, videoID, commentID, replyID, userID primitive.ObjectID) error {
	return r.mutateReply("Videos.RemoveReplyLike", videoID, commentID, replyID, func(rp *model.Reply) {
		rp.Likes = pull(rp.Likes, userID)
	})
}

func (r *VideoRepo) mutate(method string, id primitive.ObjectID, fn func(v *model.Video) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit(method); err != nil {
		return err
	}

	v, ok := r.s.videos[id]
	if !ok {
		return model.ErrVideoNotFound
	}
	return fn(v)
}

func (r *VideoRepo) mutateComment(method string, videoID, commentID primitive.ObjectID, fn func(v *model.Video, c *model.Comment) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit(method); err != nil {
		return err
	}

	v, ok := r.s.videos[videoID]
	if !ok {
		return model.ErrCommentNotFound
	}
	c := v.Comment(commentID)
	if c == nil {
		return model.ErrCommentNotFound
	}
	return fn(v, c)
}

func (r *VideoRepo) mutateReply(method string, videoID, commentID, replyID primitive.ObjectID, fn func(rp *model.Reply)) error {
	return r.mutateComment(method, videoID, commentID, func(_ *model.Video, c *model.Comment) error {
		rp := c.Reply(replyID)
		if rp == nil {
			return model.ErrReplyNotFound
		}
		fn(rp)
		return nil
	})
}
