package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	CollectionUsers       = "users"
	CollectionPosts       = "posts"
	CollectionCommunities = "communities"
)

// MongoStore bundles the three repositories over one database and runs
// multi-document mutations in a session transaction when the deployment allows it.
type MongoStore struct {
	Client      *mongo.Client
	DB          *mongo.Database
	Posts       *PostRepository
	Users       *UserRepository
	Communities *CommunityRepository

	transactions bool
}

// NewMongoStore wires repositories for db. transactions must only be true on a
// replica set or sharded cluster.
func NewMongoStore(client *mongo.Client, db *mongo.Database, transactions bool) *MongoStore {
	return &MongoStore{
		Client:       client,
		DB:           db,
		Posts:        &PostRepository{col: db.Collection(CollectionPosts)},
		Users:        &UserRepository{col: db.Collection(CollectionUsers)},
		Communities:  &CommunityRepository{col: db.Collection(CollectionCommunities)},
		transactions: transactions,
	}
}

// Transactional reports whether WithTransaction gives all-or-nothing semantics.
func (s *MongoStore) Transactional() bool {
	return s.transactions
}

// WithTransaction runs fn inside a session transaction. Repository calls made
// with the ctx handed to fn join the transaction. Without transaction support
// fn simply runs against ctx.
func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}

	sess, err := s.Client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc context.Context) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// SupportsTransactions asks the server whether it is a replica set member or mongos.
func SupportsTransactions(ctx context.Context, client *mongo.Client) (bool, error) {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		return false, err
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid", nil
}
