package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/cppla/threads/models"
	"github.com/cppla/threads/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type CommunityRepository struct {
	s *Store
}

func (r *CommunityRepository) Create(_ context.Context, c *models.Community) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault("communities.Create"); err != nil {
		return err
	}
	for _, cur := range r.s.communities {
		if cur.Slug == c.Slug {
			return repository.ErrDuplicate
		}
	}
	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	if c.Members == nil {
		c.Members = []bson.ObjectID{}
	}
	if c.Posts == nil {
		c.Posts = []bson.ObjectID{}
	}
	r.s.communities[c.ID] = c.Clone()
	return nil
}

func (r *CommunityRepository) GetByID(_ context.Context, id bson.ObjectID) (*models.Community, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.communities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CommunityRepository) GetBySlug(_ context.Context, slug string) (*models.Community, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.communities {
		if c.Slug == slug {
			return c.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *CommunityRepository) FindByIDs(_ context.Context, ids []bson.ObjectID) ([]*models.Community, error) {
	want := idSet(ids)
	return r.collect(func(c *models.Community) bool {
		_, ok := want[c.ID]
		return ok
	}, int(repository.SortDesc)), nil
}

func (r *CommunityRepository) Search(_ context.Context, f repository.CommunityFilter, skip, limit int64) ([]*models.Community, error) {
	return page(r.collect(communityMatcher(f), sortDir(f.Sort)), skip, limit), nil
}

func (r *CommunityRepository) Count(_ context.Context, f repository.CommunityFilter) (int64, error) {
	return int64(len(r.collect(communityMatcher(f), sortDir(f.Sort)))), nil
}

func (r *CommunityRepository) PushPost(_ context.Context, communityID, postID bson.ObjectID) error {
	return r.update("communities.PushPost", communityID, func(c *models.Community) {
		if !contains(c.Posts, postID) {
			c.Posts = append(c.Posts, postID)
		}
	})
}

func (r *CommunityRepository) PullPosts(_ context.Context, communityIDs, postIDs []bson.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault("communities.PullPosts"); err != nil {
		return err
	}
	drop := idSet(postIDs)
	for _, id := range communityIDs {
		if c, ok := r.s.communities[id]; ok {
			c.Posts = without(c.Posts, drop)
		}
	}
	return nil
}

func (r *CommunityRepository) AddMember(_ context.Context, communityID, userID bson.ObjectID) error {
	return r.update("communities.AddMember", communityID, func(c *models.Community) {
		if !contains(c.Members, userID) {
			c.Members = append(c.Members, userID)
		}
	})
}

func (r *CommunityRepository) RemoveMember(_ context.Context, communityID, userID bson.ObjectID) error {
	return r.update("communities.RemoveMember", communityID, func(c *models.Community) {
		c.Members = without(c.Members, idSet([]bson.ObjectID{userID}))
	})
}

// Delete removes the community. A missing community is not an error.
func (r *CommunityRepository) Delete(_ context.Context, id bson.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault("communities.Delete"); err != nil {
		return err
	}
	delete(r.s.communities, id)
	return nil
}

func (r *CommunityRepository) ForEach(ctx context.Context, fn func(*models.Community) error) error {
	for _, c := range r.collect(func(*models.Community) bool { return true }, int(repository.SortAsc)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *CommunityRepository) update(op string, id bson.ObjectID, fn func(*models.Community)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault(op); err != nil {
		return err
	}
	c, ok := r.s.communities[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(c)
	return nil
}

func (r *CommunityRepository) collect(match func(*models.Community) bool, dir int) []*models.Community {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.Community{}
	for _, c := range r.s.communities {
		if match(c) {
			out = append(out, c.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return byCreated(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID, dir)
	})
	return out
}

func communityMatcher(f repository.CommunityFilter) func(*models.Community) bool {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	return func(c *models.Community) bool {
		if q == "" {
			return true
		}
		return strings.Contains(strings.ToLower(c.Slug), q) ||
			strings.Contains(strings.ToLower(c.Name), q)
	}
}
