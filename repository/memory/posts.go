package memory

import (
	"context"

	"github.com/cppla/threads/models"
	"github.com/cppla/threads/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type PostRepository struct {
	s *Store
}

func (r *PostRepository) Create(_ context.Context, p *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault("posts.Create"); err != nil {
		return err
	}
	if p.ID.IsZero() {
		p.ID = bson.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	if p.Children == nil {
		p.Children = []bson.ObjectID{}
	}
	if p.Ancestors == nil {
		p.Ancestors = []bson.ObjectID{}
	}
	if _, ok := r.s.posts[p.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.posts[p.ID] = p.Clone()
	return nil
}

func (r *PostRepository) GetByID(_ context.Context, id bson.ObjectID) (*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PostRepository) FindByIDs(_ context.Context, ids []bson.ObjectID) ([]*models.Post, error) {
	want := idSet(ids)
	return r.collect(func(p *models.Post) bool {
		_, ok := want[p.ID]
		return ok
	}, -1), nil
}

func (r *PostRepository) FindByIDsExcludingAuthor(_ context.Context, ids []bson.ObjectID, author bson.ObjectID) ([]*models.Post, error) {
	want := idSet(ids)
	return r.collect(func(p *models.Post) bool {
		_, ok := want[p.ID]
		return ok && p.Author != author
	}, -1), nil
}

func (r *PostRepository) FindDescendants(_ context.Context, rootID bson.ObjectID) ([]*models.Post, error) {
	return r.collect(func(p *models.Post) bool {
		return contains(p.Ancestors, rootID)
	}, 1), nil
}

func (r *PostRepository) FindByParent(_ context.Context, parentID bson.ObjectID) ([]*models.Post, error) {
	return r.collect(func(p *models.Post) bool {
		return p.Parent != nil && *p.Parent == parentID
	}, 1), nil
}

func (r *PostRepository) FindByCommunity(_ context.Context, communityID bson.ObjectID) ([]*models.Post, error) {
	return r.collect(func(p *models.Post) bool {
		return p.Community != nil && *p.Community == communityID
	}, 1), nil
}

func (r *PostRepository) FindByAuthor(_ context.Context, author bson.ObjectID) ([]*models.Post, error) {
	return r.collect(func(p *models.Post) bool {
		return p.Author == author
	}, -1), nil
}

func (r *PostRepository) ListTopLevel(_ context.Context, skip, limit int64) ([]*models.Post, error) {
	all := r.collect(func(p *models.Post) bool { return !p.IsReply() }, -1)
	return page(all, skip, limit), nil
}

func (r *PostRepository) CountTopLevel(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, p := range r.s.posts {
		if !p.IsReply() {
			n++
		}
	}
	return n, nil
}

func (r *PostRepository) AppendChild(_ context.Context, parentID, childID bson.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault("posts.AppendChild"); err != nil {
		return err
	}
	p, ok := r.s.posts[parentID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Children = append(p.Children, childID)
	return nil
}

func (r *PostRepository) RemoveChild(_ context.Context, parentID, childID bson.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault("posts.RemoveChild"); err != nil {
		return err
	}
	if p, ok := r.s.posts[parentID]; ok {
		p.Children = without(p.Children, idSet([]bson.ObjectID{childID}))
	}
	return nil
}

func (r *PostRepository) SetChildren(_ context.Context, id bson.ObjectID, children []bson.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Children = append([]bson.ObjectID{}, children...)
	return nil
}

func (r *PostRepository) DeleteByIDs(_ context.Context, ids []bson.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fault("posts.DeleteByIDs"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		if _, ok := r.s.posts[id]; ok {
			delete(r.s.posts, id)
			n++
		}
	}
	return n, nil
}

// ForEach iterates over a copy, so fn may write to the store.
func (r *PostRepository) ForEach(ctx context.Context, fn func(*models.Post) error) error {
	for _, p := range r.collect(func(*models.Post) bool { return true }, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostRepository) collect(match func(*models.Post) bool, dir int) []*models.Post {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.Post{}
	for _, p := range r.s.posts {
		if match(p) {
			out = append(out, p.Clone())
		}
	}
	sortPosts(out, dir)
	return out
}
