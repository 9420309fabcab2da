package services

import (
	"context"

	"github.com/cppla/threads/models"
	"github.com/cppla/threads/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// PostRepository is the post collection as the services use it.
// repository.PostRepository and memory.PostRepository both satisfy it.
type PostRepository interface {
	Create(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, id bson.ObjectID) (*models.Post, error)
	FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]*models.Post, error)
	FindByIDsExcludingAuthor(ctx context.Context, ids []bson.ObjectID, author bson.ObjectID) ([]*models.Post, error)
	FindDescendants(ctx context.Context, rootID bson.ObjectID) ([]*models.Post, error)
	FindByParent(ctx context.Context, parentID bson.ObjectID) ([]*models.Post, error)
	FindByAuthor(ctx context.Context, author bson.ObjectID) ([]*models.Post, error)
	FindByCommunity(ctx context.Context, communityID bson.ObjectID) ([]*models.Post, error)
	ListTopLevel(ctx context.Context, skip, limit int64) ([]*models.Post, error)
	CountTopLevel(ctx context.Context) (int64, error)
	AppendChild(ctx context.Context, parentID, childID bson.ObjectID) error
	RemoveChild(ctx context.Context, parentID, childID bson.ObjectID) error
	SetChildren(ctx context.Context, id bson.ObjectID, children []bson.ObjectID) error
	DeleteByIDs(ctx context.Context, ids []bson.ObjectID) (int64, error)
	ForEach(ctx context.Context, fn func(*models.Post) error) error
}

type UserRepository interface {
	Upsert(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	GetByAuthID(ctx context.Context, authID string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]*models.User, error)
	Search(ctx context.Context, f repository.UserFilter, skip, limit int64) ([]*models.User, error)
	Count(ctx context.Context, f repository.UserFilter) (int64, error)
	PushPost(ctx context.Context, userID, postID bson.ObjectID) error
	PullPosts(ctx context.Context, userIDs, postIDs []bson.ObjectID) error
	AddCommunity(ctx context.Context, userID, communityID bson.ObjectID) error
	RemoveCommunity(ctx context.Context, userID, communityID bson.ObjectID) error
	ForEach(ctx context.Context, fn func(*models.User) error) error
}

type CommunityRepository interface {
	Create(ctx context.Context, c *models.Community) error
	GetByID(ctx context.Context, id bson.ObjectID) (*models.Community, error)
	GetBySlug(ctx context.Context, slug string) (*models.Community, error)
	FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]*models.Community, error)
	Search(ctx context.Context, f repository.CommunityFilter, skip, limit int64) ([]*models.Community, error)
	Count(ctx context.Context, f repository.CommunityFilter) (int64, error)
	PushPost(ctx context.Context, communityID, postID bson.ObjectID) error
	PullPosts(ctx context.Context, communityIDs, postIDs []bson.ObjectID) error
	AddMember(ctx context.Context, communityID, userID bson.ObjectID) error
	RemoveMember(ctx context.Context, communityID, userID bson.ObjectID) error
	Delete(ctx context.Context, id bson.ObjectID) error
	ForEach(ctx context.Context, fn func(*models.Community) error) error
}

// Transactor runs a group of repository calls atomically when Transactional
// reports true. Otherwise fn runs as plain sequential writes.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Transactional() bool
}

// Deps is the storage wiring shared by every service.
type Deps struct {
	Posts       PostRepository
	Users       UserRepository
	Communities CommunityRepository
	Tx          Transactor
}
