package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"clipfeed/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const UsersCollection = "users"

// userProjection keeps the embedded notification list out of user reads.
var userProjection = bson.M{"notifications": 0}

type userRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{coll: db.Collection(UsersCollection)}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	normalizeUser(user)
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "email") {
				return model.ErrEmailExists
			}
			return model.ErrUsernameExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	err := r.coll.FindOne(ctx, filter, options.FindOne().SetProjection(userProjection)).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(userProjection))
}

func (r *userRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]model.User, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	users := []model.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// ExistsByUsername matches case-insensitively so "Alice" and "alice"
// cannot both register.
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	pattern := primitive.Regex{Pattern: "^" + regexp.QuoteMeta(username) + "$", Options: "i"}
	return r.exists(ctx, bson.M{"username": pattern})
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *userRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return n > 0, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, update model.ProfileUpdate) error {
	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.ProfilePhoto != nil {
		set["profilePhoto"] = *update.ProfilePhoto
	}
	if len(set) == 0 {
		return nil
	}
	return r.updateOne(ctx, id, bson.M{"$set": set})
}

func (r *userRepository) IsFollower(ctx context.Context, targetID, actorID primitive.ObjectID) (bool, error) {
	return r.exists(ctx, bson.M{"_id": targetID, "followers": actorID})
}

// FollowedAmong answers IsFollower for a batch of targets in one query.
func (r *userRepository) FollowedAmong(ctx context.Context, actorID primitive.ObjectID, targetIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	result := make(map[primitive.ObjectID]bool, len(targetIDs))
	if len(targetIDs) == 0 {
		return result, nil
	}
	cursor, err := r.coll.Find(ctx,
		bson.M{"_id": bson.M{"$in": targetIDs}, "followers": actorID},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to check follows: %w", err)
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode follows: %w", err)
	}
	for _, row := range rows {
		result[row.ID] = true
	}
	return result, nil
}

func (r *userRepository) AddFollower(ctx context.Context, targetID, actorID primitive.ObjectID) error {
	return r.updateOne(ctx, targetID, bson.M{"$addToSet": bson.M{"followers": actorID}})
}

func (r *userRepository) RemoveFollower(ctx context.Context, targetID, actorID primitive.ObjectID) error {
	return r.updateOne(ctx, targetID, bson.M{"$pull": bson.M{"followers": actorID}})
}

func (r *userRepository) AddFollowing(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	return r.updateOne(ctx, actorID, bson.M{"$addToSet": bson.M{"following": targetID}})
}

func (r *userRepository) RemoveFollowing(ctx context.Context, actorID, targetID primitive.ObjectID) error {
	return r.updateOne(ctx, actorID, bson.M{"$pull": bson.M{"following": targetID}})
}

func (r *userRepository) IncrementTotalLikes(ctx context.Context, userID primitive.ObjectID, delta int64) error {
	if delta == 0 {
		return nil
	}
	return r.updateOne(ctx, userID, bson.M{"$inc": bson.M{"totalLikes": delta}})
}

func (r *userRepository) AddUploadedVideo(ctx context.Context, userID, videoID primitive.ObjectID) error {
	return r.updateOne(ctx, userID, bson.M{"$addToSet": bson.M{"videos.uploaded": videoID}})
}

func (r *userRepository) RemoveUploadedVideo(ctx context.Context, userID, videoID primitive.ObjectID) error {
	return r.updateOne(ctx, userID, bson.M{"$pull": bson.M{"videos.uploaded": videoID}})
}

func (r *userRepository) AddLikedVideo(ctx context.Context, userID, videoID primitive.ObjectID) error {
	return r.updateOne(ctx, userID, bson.M{"$addToSet": bson.M{"videos.liked": videoID}})
}

func (r *userRepository) RemoveLikedVideo(ctx context.Context, userID, videoID primitive.ObjectID) error {
	return r.updateOne(ctx, userID, bson.M{"$pull": bson.M{"videos.liked": videoID}})
}

// RemoveLikedVideoFromAll pulls the video from every user's liked list and
// returns how many users were touched.
func (r *userRepository) RemoveLikedVideoFromAll(ctx context.Context, videoID primitive.ObjectID) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"videos.liked": videoID},
		bson.M{"$pull": bson.M{"videos.liked": videoID}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to pull liked video: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *userRepository) AddInterests(ctx context.Context, userID primitive.ObjectID, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	return r.updateOne(ctx, userID, bson.M{"$addToSet": bson.M{"interestedIn": bson.M{"$each": tags}}})
}

// Suggested ranks accounts by total likes, then follower count, then age.
func (r *userRepository) Suggested(ctx context.Context, limit int) ([]model.User, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$project", Value: userProjection}},
		{{Key: "$addFields", Value: bson.M{"followerCount": bson.M{"$size": bson.M{"$ifNull": bson.A{"$followers", bson.A{}}}}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "totalLikes", Value: -1},
			{Key: "followerCount", Value: -1},
			{Key: "createdAt", Value: 1},
		}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to rank suggested users: %w", err)
	}
	users := []model.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode suggested users: %w", err)
	}
	return users, nil
}

// Search returns every user whose username or name contains query,
// case-insensitively. query is treated as literal text.
func (r *userRepository) Search(ctx context.Context, query string) ([]model.User, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"username": pattern},
		bson.M{"name": pattern},
	}}
	return r.find(ctx, filter, options.Find().SetProjection(userProjection))
}

func (r *userRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// normalizeUser replaces nil lists with empty ones so the document always
// carries arrays that $addToSet and $size accept.
func normalizeUser(u *model.User) {
	if u.Following == nil {
		u.Following = []primitive.ObjectID{}
	}
	if u.Followers == nil {
		u.Followers = []primitive.ObjectID{}
	}
	if u.Videos.Uploaded == nil {
		u.Videos.Uploaded = []primitive.ObjectID{}
	}
	if u.Videos.Liked == nil {
		u.Videos.Liked = []primitive.ObjectID{}
	}
	if u.InterestedIn == nil {
		u.InterestedIn = []string{}
	}
	if u.Notifications == nil {
		u.Notifications = []model.Notification{}
	}
}
