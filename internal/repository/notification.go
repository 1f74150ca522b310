package repository

import (
	"context"
	"errors"
	"fmt"

	"clipfeed/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type notificationRepository struct {
	coll *mongo.Collection
}

// NewNotificationRepository works on the notifications array embedded in
// each user document.
func NewNotificationRepository(db *mongo.Database) NotificationRepository {
	return &notificationRepository{coll: db.Collection(UsersCollection)}
}

type notificationDoc struct {
	Notifications []model.Notification `bson:"notifications"`
}

func (r *notificationRepository) Push(ctx context.Context, userID primitive.ObjectID, n *model.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	return r.update(ctx, userID, bson.M{"$push": bson.M{"notifications": n}}, nil)
}

func (r *notificationRepository) PullByID(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	return r.update(ctx, userID, bson.M{"$pull": bson.M{"notifications": bson.M{"_id": notificationID}}}, nil)
}

func (r *notificationRepository) PullByReference(ctx context.Context, userID primitive.ObjectID, ref model.NotificationRef) error {
	match := bson.M{"type": ref.Type, "refId": ref.RefID, "by": ref.By}
	return r.update(ctx, userID, bson.M{"$pull": bson.M{"notifications": match}}, nil)
}

func (r *notificationRepository) PullByVideo(ctx context.Context, userID, videoID primitive.ObjectID) error {
	match := bson.M{"$or": bson.A{
		bson.M{"refId": videoID},
		bson.M{"meta.videoId": videoID},
	}}
	return r.update(ctx, userID, bson.M{"$pull": bson.M{"notifications": match}}, nil)
}

func (r *notificationRepository) Latest(ctx context.Context, userID primitive.ObjectID) (*model.Notification, error) {
	doc, err := r.load(ctx, userID, bson.M{"notifications": bson.M{"$slice": -1}})
	if err != nil {
		return nil, err
	}
	if len(doc.Notifications) == 0 {
		return nil, nil
	}
	return &doc.Notifications[0], nil
}

func (r *notificationRepository) List(ctx context.Context, userID primitive.ObjectID) ([]model.Notification, error) {
	doc, err := r.load(ctx, userID, bson.M{"notifications": 1})
	if err != nil {
		return nil, err
	}
	if doc.Notifications == nil {
		return []model.Notification{}, nil
	}
	return doc.Notifications, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"n.read": false}},
	})
	return r.update(ctx, userID, bson.M{"$set": bson.M{"notifications.$[n].read": true}}, opts)
}

func (r *notificationRepository) load(ctx context.Context, userID primitive.ObjectID, projection bson.M) (*notificationDoc, error) {
	var doc notificationDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}, options.FindOne().SetProjection(projection)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	return &doc, nil
}

func (r *notificationRepository) update(ctx context.Context, userID primitive.ObjectID, update bson.M, opts *options.UpdateOptions) error {
	var res *mongo.UpdateResult
	var err error
	if opts != nil {
		res, err = r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update, opts)
	} else {
		res, err = r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	}
	if err != nil {
		return fmt.Errorf("failed to update notifications: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
