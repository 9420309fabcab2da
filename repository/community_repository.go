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

// CommunityRepository owns the communities collection.
type CommunityRepository struct {
	col *mongo.Collection
}

func (r *CommunityRepository) Create(ctx context.Context, c *models.Community) error {
	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Members == nil {
		c.Members = []bson.ObjectID{}
	}
	if c.Posts == nil {
		c.Posts = []bson.ObjectID{}
	}
	_, err := r.col.InsertOne(ctx, c)
	return translate(err)
}

func (r *CommunityRepository) GetByID(ctx context.Context, id bson.ObjectID) (*models.Community, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *CommunityRepository) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *CommunityRepository) FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]*models.Community, error) {
	if len(ids) == 0 {
		return []*models.Community{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

func (r *CommunityRepository) Search(ctx context.Context, f CommunityFilter, skip, limit int64) ([]*models.Community, error) {
	dir := int(f.Sort)
	if dir == 0 {
		dir = int(SortDesc)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(skip).
		SetLimit(limit)
	return r.find(ctx, communityQuery(f), opts)
}

func (r *CommunityRepository) Count(ctx context.Context, f CommunityFilter) (int64, error) {
	n, err := r.col.CountDocuments(ctx, communityQuery(f))
	return n, translate(err)
}

// PushPost appends postID to the community's posts unless it is already listed.
func (r *CommunityRepository) PushPost(ctx context.Context, communityID, postID bson.ObjectID) error {
	return r.updateOne(ctx, communityID, bson.M{"$addToSet": bson.M{"posts": postID}})
}

// PullPosts removes postIDs from the posts list of every community in communityIDs.
func (r *CommunityRepository) PullPosts(ctx context.Context, communityIDs, postIDs []bson.ObjectID) error {
	if len(communityIDs) == 0 || len(postIDs) == 0 {
		return nil
	}
	_, err := r.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": communityIDs}},
		bson.M{"$pull": bson.M{"posts": bson.M{"$in": postIDs}}},
	)
	return translate(err)
}

func (r *CommunityRepository) AddMember(ctx context.Context, communityID, userID bson.ObjectID) error {
	return r.updateOne(ctx, communityID, bson.M{"$addToSet": bson.M{"members": userID}})
}

func (r *CommunityRepository) RemoveMember(ctx context.Context, communityID, userID bson.ObjectID) error {
	return r.updateOne(ctx, communityID, bson.M{"$pull": bson.M{"members": userID}})
}

// Delete removes the community. A missing community is not an error.
func (r *CommunityRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return translate(err)
}

func (r *CommunityRepository) ForEach(ctx context.Context, fn func(*models.Community) error) error {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return translate(err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var c models.Community
		if err := cur.Decode(&c); err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}
	}
	return cur.Err()
}

func communityQuery(f CommunityFilter) bson.M {
	q := bson.M{}
	if s := strings.TrimSpace(f.Search); s != "" {
		rx := bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"slug": rx},
			bson.M{"name": rx},
		}
	}
	return q
}

func (r *CommunityRepository) updateOne(ctx context.Context, id bson.ObjectID, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CommunityRepository) findOne(ctx context.Context, filter bson.M) (*models.Community, error) {
	var c models.Community
	if err := r.col.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *CommunityRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*models.Community, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)

	out := []*models.Community{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
