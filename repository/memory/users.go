package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/cppla/threads/models"
	"github.com/cppla/threads/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Upsert(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault("users.Upsert"); err != nil {
		return nil, err
	}
	var existing *models.User
	for _, cur := range r.s.users {
		if cur.AuthID == u.AuthID {
			existing = cur
			continue
		}
		if cur.Username == u.Username {
			return nil, repository.ErrDuplicate
		}
	}
	if existing == nil {
		existing = &models.User{
			ID:          bson.NewObjectID(),
			AuthID:      u.AuthID,
			Posts:       []bson.ObjectID{},
			Communities: []bson.ObjectID{},
			CreatedAt:   now(),
		}
		r.s.users[existing.ID] = existing
	}
	existing.Username = u.Username
	existing.Name = u.Name
	existing.Bio = u.Bio
	existing.Image = u.Image
	existing.Onboarded = u.Onboarded
	return existing.Clone(), nil
}

func (r *UserRepository) GetByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepository) GetByAuthID(_ context.Context, authID string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.AuthID == authID {
			return u.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) FindByIDs(_ context.Context, ids []bson.ObjectID) ([]*models.User, error) {
	want := idSet(ids)
	return r.collect(func(u *models.User) bool {
		_, ok := want[u.ID]
		return ok
	}, int(repository.SortDesc)), nil
}

func (r *UserRepository) Search(_ context.Context, f repository.UserFilter, skip, limit int64) ([]*models.User, error) {
	return page(r.collect(userMatcher(f), sortDir(f.Sort)), skip, limit), nil
}

func (r *UserRepository) Count(_ context.Context, f repository.UserFilter) (int64, error) {
	return int64(len(r.collect(userMatcher(f), sortDir(f.Sort)))), nil
}

func (r *UserRepository) PushPost(_ context.Context, userID, postID bson.ObjectID) error {
	return r.update("users.PushPost", userID, func(u *models.User) {
		if !contains(u.Posts, postID) {
			u.Posts = append(u.Posts, postID)
		}
	})
}

func (r *UserRepository) PullPosts(_ context.Context, userIDs, postIDs []bson.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault("users.PullPosts"); err != nil {
		return err
	}
	drop := idSet(postIDs)
	for _, id := range userIDs {
		if u, ok := r.s.users[id]; ok {
			u.Posts = without(u.Posts, drop)
		}
	}
	return nil
}

func (r *UserRepository) AddCommunity(_ context.Context, userID, communityID bson.ObjectID) error {
	return r.update("users.AddCommunity", userID, func(u *models.User) {
		if !contains(u.Communities, communityID) {
			u.Communities = append(u.Communities, communityID)
		}
	})
}

func (r *UserRepository) RemoveCommunity(_ context.Context, userID, communityID bson.ObjectID) error {
	return r.update("users.RemoveCommunity", userID, func(u *models.User) {
		u.Communities = without(u.Communities, idSet([]bson.ObjectID{communityID}))
	})
}

func (r *UserRepository) ForEach(ctx context.Context, fn func(*models.User) error) error {
	for _, u := range r.collect(func(*models.User) bool { return true }, int(repository.SortAsc)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRepository) update(op string, id bson.ObjectID, fn func(*models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault(op); err != nil {
		return err
	}
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	return nil
}

func (r *UserRepository) collect(match func(*models.User) bool, dir int) []*models.User {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.User{}
	for _, u := range r.s.users {
		if match(u) {
			out = append(out, u.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return byCreated(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID, dir)
	})
	return out
}

func userMatcher(f repository.UserFilter) func(*models.User) bool {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	return func(u *models.User) bool {
		if !f.ExcludeID.IsZero() && u.ID == f.ExcludeID {
			return false
		}
		if q == "" {
			return true
		}
		return strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.Name), q)
	}
}

func sortDir(o repository.SortOrder) int {
	if o == 0 {
		return int(repository.SortDesc)
	}
	return int(o)
}
