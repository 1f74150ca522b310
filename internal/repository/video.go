package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"clipfeed/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const VideosCollection = "videos"

var (
	// listProjection drops the comment thread from feed and list reads.
	listProjection = bson.M{"comments": 0}
	// headerProjection keeps only what ownership checks and notifications need.
	headerProjection = bson.M{"comments": 0, "likes": 0}
)

type videoRepository struct {
	coll *mongo.Collection
}

func NewVideoRepository(db *mongo.Database) VideoRepository {
	return &videoRepository{coll: db.Collection(VideosCollection)}
}

func (r *videoRepository) Create(ctx context.Context, video *model.Video) error {
	if video.ID.IsZero() {
		video.ID = primitive.NewObjectID()
	}
	if video.Likes == nil {
		video.Likes = []primitive.ObjectID{}
	}
	if video.Comments == nil {
		video.Comments = []model.Comment{}
	}
	if video.Tags == nil {
		video.Tags = []string{}
	}
	if _, err := r.coll.InsertOne(ctx, video); err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (r *videoRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Video, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

func (r *videoRepository) GetHeader(ctx context.Context, id primitive.ObjectID) (*model.Video, error) {
	return r.findOne(ctx, bson.M{"_id": id}, headerProjection)
}

func (r *videoRepository) findOne(ctx context.Context, filter bson.M, projection bson.M) (*model.Video, error) {
	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}
	var video model.Video
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&video); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

func (r *videoRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Video, error) {
	if len(ids) == 0 {
		return []model.Video{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(listProjection))
}

func (r *videoRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]model.Video, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	videos := []model.Video{}
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, fmt.Errorf("failed to decode videos: %w", err)
	}
	return videos, nil
}

func (r *videoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrVideoNotFound
	}
	return nil
}

// Ranked returns one page of the home feed ranking.
func (r *videoRepository) Ranked(ctx context.Context, opts model.RankOptions) ([]model.Video, error) {
	if opts.Order != model.FeedOrderPopular {
		find := options.Find().
			SetProjection(listProjection).
			SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
			SetSkip(int64(opts.Skip)).
			SetLimit(int64(opts.Limit))
		return r.find(ctx, bson.M{}, find)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$project", Value: listProjection}},
		{{Key: "$addFields", Value: bson.M{"likeCount": bson.M{"$size": bson.M{"$ifNull": bson.A{"$likes", bson.A{}}}}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "views", Value: -1},
			{Key: "likeCount", Value: -1},
			{Key: "createdAt", Value: 1},
		}}},
		{{Key: "$skip", Value: opts.Skip}},
		{{Key: "$limit", Value: opts.Limit}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to rank videos: %w", err)
	}
	videos := []model.Video{}
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, fmt.Errorf("failed to decode ranked videos: %w", err)
	}
	return videos, nil
}

// Search returns every video whose caption or one of whose tags contains
// query, case-insensitively. Results are unranked.
func (r *videoRepository) Search(ctx context.Context, query string) ([]model.Video, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"caption": pattern},
		bson.M{"tags": pattern},
	}}
	return r.find(ctx, filter, options.Find().SetProjection(listProjection))
}

func (r *videoRepository) IncrementViews(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

func (r *videoRepository) IncrementShares(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"shares": 1}}, nil, model.ErrVideoNotFound)
}

func (r *videoRepository) HasLiked(ctx context.Context, videoID, userID primitive.ObjectID) (bool, error) {
	return r.exists(ctx, bson.M{"_id": videoID, "likes": userID})
}

func (r *videoRepository) LikedAmong(ctx context.Context, userID primitive.ObjectID, videoIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	result := make(map[primitive.ObjectID]bool, len(videoIDs))
	if len(videoIDs) == 0 {
		return result, nil
	}
	cursor, err := r.coll.Find(ctx,
		bson.M{"_id": bson.M{"$in": videoIDs}, "likes": userID},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to check likes: %w", err)
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode likes: %w", err)
	}
	for _, row := range rows {
		result[row.ID] = true
	}
	return result, nil
}

func (r *videoRepository) AddLike(ctx context.Context, videoID, userID primitive.ObjectID) error {
	return r.updateOne(ctx, bson.M{"_id": videoID}, bson.M{"$addToSet": bson.M{"likes": userID}}, nil, model.ErrVideoNotFound)
}

func (r *videoRepository) RemoveLike(ctx context.Context, videoID, userID primitive.ObjectID) error {
	return r.updateOne(ctx, bson.M{"_id": videoID}, bson.M{"$pull": bson.M{"likes": userID}}, nil, model.ErrVideoNotFound)
}

// GetComment loads a single embedded comment through a positional
// projection so the rest of the thread stays on the server.
func (r *videoRepository) GetComment(ctx context.Context, videoID, commentID primitive.ObjectID) (*model.Comment, error) {
	var doc struct {
		Comments []model.Comment `bson:"comments"`
	}
	err := r.coll.FindOne(ctx,
		bson.M{"_id": videoID, "comments._id": commentID},
		options.FindOne().SetProjection(bson.M{"comments.$": 1}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	if len(doc.Comments) == 0 {
		return nil, model.ErrCommentNotFound
	}
	return &doc.Comments[0], nil
}

func (r *videoRepository) PushComment(ctx context.Context, videoID primitive.ObjectID, comment *model.Comment) error {
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	if comment.Likes == nil {
		comment.Likes = []primitive.ObjectID{}
	}
	if comment.Replies == nil {
		comment.Replies = []model.Reply{}
	}
	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$inc":  bson.M{"totalComments": 1},
	}
	return r.updateOne(ctx, bson.M{"_id": videoID}, update, nil, model.ErrVideoNotFound)
}

// PullComment removes the comment in a single pipeline update that lowers
// totalComments by one plus the replies present at removal, and returns the
// removed comment.
func (r *videoRepository) PullComment(ctx context.Context, videoID, commentID primitive.ObjectID) (*model.Comment, error) {
	isTarget := bson.M{"$eq": bson.A{"$$c._id", commentID}}
	target := bson.M{"$arrayElemAt": bson.A{
		bson.M{"$filter": bson.M{"input": "$comments", "as": "c", "cond": isTarget}},
		0,
	}}
	removed := bson.M{"$add": bson.A{1, bson.M{"$size": bson.M{"$ifNull": bson.A{
		bson.M{"$let": bson.M{"vars": bson.M{"t": target}, "in": "$$t.replies"}},
		bson.A{},
	}}}}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"totalComments": bson.M{"$subtract": bson.A{"$totalComments", removed}}}}},
		{{Key: "$set", Value: bson.M{"comments": bson.M{"$filter": bson.M{
			"input": "$comments",
			"as":    "c",
			"cond":  bson.M{"$ne": bson.A{"$$c._id", commentID}},
		}}}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"comments": bson.M{"$elemMatch": bson.M{"_id": commentID}}})

	var before model.Video
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": videoID, "comments._id": commentID}, pipeline, opts).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to pull comment: %w", err)
	}
	if len(before.Comments) == 0 {
		return nil, model.ErrCommentNotFound
	}
	return &before.Comments[0], nil
}

func (r *videoRepository) PushReply(ctx context.Context, videoID, commentID primitive.ObjectID, reply *model.Reply) error {
	if reply.ID.IsZero() {
		reply.ID = primitive.NewObjectID()
	}
	if reply.Likes == nil {
		reply.Likes = []primitive.ObjectID{}
	}
	update := bson.M{
		"$push": bson.M{"comments.$.replies": reply},
		"$inc":  bson.M{"totalComments": 1},
	}
	return r.updateOne(ctx, bson.M{"_id": videoID, "comments._id": commentID}, update, nil, model.ErrCommentNotFound)
}

func (r *videoRepository) PullReply(ctx context.Context, videoID, commentID, replyID primitive.ObjectID) error {
	filter := bson.M{
		"_id": videoID,
		"comments": bson.M{"$elemMatch": bson.M{"_id": commentID, "replies._id": replyID}},
	}
	update := bson.M{
		"$pull": bson.M{"comments.$.replies": bson.M{"_id": replyID}},
		"$inc":  bson.M{"totalComments": -1},
	}
	return r.updateOne(ctx, filter, update, nil, model.ErrReplyNotFound)
}

func (r *videoRepository) CommentLikedBy(ctx context.Context, videoID, commentID, userID primitive.ObjectID) (bool, error) {
	return r.exists(ctx, bson.M{
		"_id":      videoID,
		"comments": bson.M{"$elemMatch": bson.M{"_id": commentID, "likes": userID}},
	})
}

func (r *videoRepository) AddCommentLike(ctx context.Context, videoID, commentID, userID primitive.ObjectID) error {
	return r.updateOne(ctx,
		bson.M{"_id": videoID, "comments._id": commentID},
		bson.M{"$addToSet": bson.M{"comments.$.likes": userID}},
		nil, model.ErrCommentNotFound)
}

func (r *videoRepository) RemoveCommentLike(ctx context.Context, videoID, commentID, userID primitive.ObjectID) error {
	return r.updateOne(ctx,
		bson.M{"_id": videoID, "comments._id": commentID},
		bson.M{"$pull": bson.M{"comments.$.likes": userID}},
		nil, model.ErrCommentNotFound)
}

func (r *videoRepository) ReplyLikedBy(ctx context.Context, videoID, commentID, replyID, userID primitive.ObjectID) (bool, error) {
	return r.exists(ctx, bson.M{
		"_id": videoID,
		"comments": bson.M{"$elemMatch": bson.M{
			"_id":     commentID,
			"replies": bson.M{"$elemMatch": bson.M{"_id": replyID, "likes": userID}},
		}},
	})
}

func (r *videoRepository) AddReplyLike(ctx context.Context, videoID, commentID, replyID, userID primitive.ObjectID) error {
	return r.replyLikeUpdate(ctx, videoID, commentID, replyID, "$addToSet", userID)
}

func (r *videoRepository) RemoveReplyLike(ctx context.Context, videoID, commentID, replyID, userID primitive.ObjectID) error {
	return r.replyLikeUpdate(ctx, videoID, commentID, replyID, "$pull", userID)
}

// replyLikeUpdate addresses a reply two arrays deep with array filters,
// since the positional operator only resolves one level.
func (r *videoRepository) replyLikeUpdate(ctx context.Context, videoID, commentID, replyID primitive.ObjectID, op string, userID primitive.ObjectID) error {
	filter := bson.M{
		"_id": videoID,
		"comments": bson.M{"$elemMatch": bson.M{"_id": commentID, "replies._id": replyID}},
	}
	update := bson.M{op: bson.M{"comments.$[c].replies.$[r].likes": userID}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"c._id": commentID},
			bson.M{"r._id": replyID},
		},
	})
	return r.updateOne(ctx, filter, update, opts, model.ErrReplyNotFound)
}

func (r *videoRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check video membership: %w", err)
	}
	return n > 0, nil
}

func (r *videoRepository) updateOne(ctx context.Context, filter, update bson.M, opts *options.UpdateOptions, notFound error) error {
	var res *mongo.UpdateResult
	var err error
	if opts != nil {
		res, err = r.coll.UpdateOne(ctx, filter, update, opts)
	} else {
		res, err = r.coll.UpdateOne(ctx, filter, update)
	}
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}
	if res.MatchedCount == 0 {
		return notFound
	}
	return nil
}
