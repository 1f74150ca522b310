package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"clipfeed/internal/config"
	"clipfeed/internal/logger"
	"clipfeed/internal/repository"
)

const connectTimeout = 10 * time.Second

// ConnectMongo opens the single client shared by every repository and
// checks the primary is reachable.
func ConnectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Log.Info("Connected to mongo", zap.String("db", cfg.MongoDB))
	return client, nil
}

// DisconnectMongo closes the client, waiting at most five seconds.
func DisconnectMongo(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Log.Warn("mongo disconnect failed", zap.Error(err))
	}
}

// EnsureIndexes creates the indexes the repositories rely on. Existing
// indexes with the same keys are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	caseInsensitive := &options.Collation{Locale: "en", Strength: 2}
	indexes := map[string][]mongo.IndexModel{
		repository.UsersCollection: {
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true).SetCollation(caseInsensitive).SetName("username_unique"),
			},
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("email_unique"),
			},
			{
				Keys:    bson.D{{Key: "totalLikes", Value: -1}},
				Options: options.Index().SetName("total_likes_desc"),
			},
		},
		repository.VideosCollection: {
			{
				Keys:    bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
				Options: options.Index().SetName("created_at_desc"),
			},
			{
				Keys:    bson.D{{Key: "uploader", Value: 1}},
				Options: options.Index().SetName("uploader"),
			},
		},
	}

	for collection, models := range indexes {
		names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
		logger.Log.Debug("indexes ensured", zap.String("collection", collection), zap.Strings("names", names))
	}
	return nil
}
