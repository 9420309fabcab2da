package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		CollectionUsers: {
			{
				Keys:    bson.D{{Key: "auth_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_auth_id"),
			},
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_username"),
			},
			{
				Keys: bson.D{{Key: "created_at", Value: -1}},
			},
		},
		CollectionPosts: {
			{
				Keys:    bson.D{{Key: "parent", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("parent_created"),
			},
			{
				Keys:    bson.D{{Key: "ancestors", Value: 1}},
				Options: options.Index().SetName("ancestors"),
			},
			{
				Keys:    bson.D{{Key: "author", Value: 1}},
				Options: options.Index().SetName("author"),
			},
			{
				Keys:    bson.D{{Key: "community", Value: 1}},
				Options: options.Index().SetName("community"),
			},
		},
		CollectionCommunities: {
			{
				Keys:    bson.D{{Key: "slug", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_slug"),
			},
		},
	}

	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
