package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/cppla/threads/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UserRepository owns the users collection.
type UserRepository struct {
	col *mongo.Collection
}

// Upsert creates or updates the profile keyed by u.AuthID and returns the stored document.
func (r *UserRepository) Upsert(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"username":  u.Username,
			"name":      u.Name,
			"bio":       u.Bio,
			"image":     u.Image,
			"onboarded": u.Onboarded,
		},
		"$setOnInsert": bson.M{
			"created_at":  now,
			"posts":       bson.A{},
			"communities": bson.A{},
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"auth_id": u.AuthID}, update, opts).Decode(&out)
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetByAuthID(ctx context.Context, authID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"auth_id": authID})
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

// Search pages through users matching f ordered by created_at.
func (r *UserRepository) Search(ctx context.Context, f UserFilter, skip, limit int64) ([]*models.User, error) {
	dir := int(f.Sort)
	if dir == 0 {
		dir = int(SortDesc)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(skip).
		SetLimit(limit)
	return r.find(ctx, userQuery(f), opts)
}

func (r *UserRepository) Count(ctx context.Context, f UserFilter) (int64, error) {
	n, err := r.col.CountDocuments(ctx, userQuery(f))
	return n, translate(err)
}

// PushPost appends postID to the user's posts unless it is already listed.
func (r *UserRepository) PushPost(ctx context.Context, userID, postID bson.ObjectID) error {
	return r.updateOne(ctx, userID, bson.M{"$addToSet": bson.M{"posts": postID}})
}

// PullPosts removes postIDs from the posts list of every user in userIDs.
func (r *UserRepository) PullPosts(ctx context.Context, userIDs, postIDs []bson.ObjectID) error {
	if len(userIDs) == 0 || len(postIDs) == 0 {
		return nil
	}
	_, err := r.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": userIDs}},
		bson.M{"$pull": bson.M{"posts": bson.M{"$in": postIDs}}},
	)
	return translate(err)
}

func (r *UserRepository) AddCommunity(ctx context.Context, userID, communityID bson.ObjectID) error {
	return r.updateOne(ctx, userID, bson.M{"$addToSet": bson.M{"communities": communityID}})
}

func (r *UserRepository) RemoveCommunity(ctx context.Context, userID, communityID bson.ObjectID) error {
	return r.updateOne(ctx, userID, bson.M{"$pull": bson.M{"communities": communityID}})
}

func (r *UserRepository) ForEach(ctx context.Context, fn func(*models.User) error) error {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return translate(err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return err
		}
		if err := fn(&u); err != nil {
			return err
		}
	}
	return cur.Err()
}

func userQuery(f UserFilter) bson.M {
	q := bson.M{}
	if !f.ExcludeID.IsZero() {
		q["_id"] = bson.M{"$ne": f.ExcludeID}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		rx := bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"username": rx},
			bson.M{"name": rx},
		}
	}
	return q
}

func (r *UserRepository) updateOne(ctx context.Context, id bson.ObjectID, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*models.User, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)

	out := []*models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
