package repository

import (
	"context"
	"time"

	"github.com/cppla/threads/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// PostRepository owns the posts collection.
type PostRepository struct {
	col *mongo.Collection
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// topLevel matches posts whose parent is null or missing.
var topLevel = bson.M{"parent": nil}

// Create inserts p, assigning an id and timestamp when they are unset.
func (r *PostRepository) Create(ctx context.Context, p *models.Post) error {
	if p.ID.IsZero() {
		p.ID = bson.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	// $push on a null field fails, so arrays are always stored non-nil.
	if p.Children == nil {
		p.Children = []bson.ObjectID{}
	}
	if p.Ancestors == nil {
		p.Ancestors = []bson.ObjectID{}
	}
	_, err := r.col.InsertOne(ctx, p)
	return translate(err)
}

func (r *PostRepository) GetByID(ctx context.Context, id bson.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// FindByIDs returns the posts among ids that exist, newest first.
func (r *PostRepository) FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]*models.Post, error) {
	if len(ids) == 0 {
		return []*models.Post{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(newestFirst))
}

// FindByIDsExcludingAuthor is FindByIDs without the posts written by author.
func (r *PostRepository) FindByIDsExcludingAuthor(ctx context.Context, ids []bson.ObjectID, author bson.ObjectID) ([]*models.Post, error) {
	if len(ids) == 0 {
		return []*models.Post{}, nil
	}
	filter := bson.M{
		"_id":    bson.M{"$in": ids},
		"author": bson.M{"$ne": author},
	}
	return r.find(ctx, filter, options.Find().SetSort(newestFirst))
}

// FindDescendants returns every post below rootID in its reply tree.
func (r *PostRepository) FindDescendants(ctx context.Context, rootID bson.ObjectID) ([]*models.Post, error) {
	return r.find(ctx, bson.M{"ancestors": rootID}, options.Find())
}

// FindByParent returns the direct replies of parentID, oldest first.
func (r *PostRepository) FindByParent(ctx context.Context, parentID bson.ObjectID) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, bson.M{"parent": parentID}, opts)
}

// FindByCommunity returns every post, reply or not, filed under communityID.
func (r *PostRepository) FindByCommunity(ctx context.Context, communityID bson.ObjectID) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, bson.M{"community": communityID}, opts)
}

func (r *PostRepository) FindByAuthor(ctx context.Context, author bson.ObjectID) ([]*models.Post, error) {
	return r.find(ctx, bson.M{"author": author}, options.Find().SetSort(newestFirst))
}

// ListTopLevel pages through threads, newest first.
func (r *PostRepository) ListTopLevel(ctx context.Context, skip, limit int64) ([]*models.Post, error) {
	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(skip).
		SetLimit(limit)
	return r.find(ctx, topLevel, opts)
}

func (r *PostRepository) CountTopLevel(ctx context.Context) (int64, error) {
	n, err := r.col.CountDocuments(ctx, topLevel)
	return n, translate(err)
}

// AppendChild pushes childID onto the children of parentID.
func (r *PostRepository) AppendChild(ctx context.Context, parentID, childID bson.ObjectID) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": parentID},
		bson.M{"$push": bson.M{"children": childID}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveChild pulls childID out of the children of parentID. A missing parent is not an error.
func (r *PostRepository) RemoveChild(ctx context.Context, parentID, childID bson.ObjectID) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": parentID},
		bson.M{"$pull": bson.M{"children": childID}},
	)
	return translate(err)
}

func (r *PostRepository) SetChildren(ctx context.Context, id bson.ObjectID, children []bson.ObjectID) error {
	if children == nil {
		children = []bson.ObjectID{}
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"children": children}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByIDs removes all posts in ids and reports how many were deleted.
func (r *PostRepository) DeleteByIDs(ctx context.Context, ids []bson.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}

// ForEach streams every post to fn, stopping at the first error.
func (r *PostRepository) ForEach(ctx context.Context, fn func(*models.Post) error) error {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return translate(err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var p models.Post
		if err := cur.Decode(&p); err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (r *PostRepository) find(ctx context.Context, filter any, opts *options.FindOptionsBuilder) ([]*models.Post, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)

	out := []*models.Post{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
