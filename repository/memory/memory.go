// Package memory is an in-process store with the same behaviour as the Mongo
// repositories. It backs the test suites and the STORE_DRIVER=memory mode.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cppla/threads/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store holds all three collections. Writes made inside WithTransaction are
// rolled back when the callback fails.
type Store struct {
	Posts       *PostRepository
	Users       *UserRepository
	Communities *CommunityRepository

	mu   sync.RWMutex
	txMu sync.Mutex

	posts       map[bson.ObjectID]*models.Post
	users       map[bson.ObjectID]*models.User
	communities map[bson.ObjectID]*models.Community

	transactions bool
	faults       map[string]error
}

// Option configures a Store.
type Option func(*Store)

// WithTransactions toggles rollback on failed transactions. Disabling it
// mimics a standalone mongod.
func WithTransactions(enabled bool) Option {
	return func(s *Store) { s.transactions = enabled }
}

func New(opts ...Option) *Store {
	s := &Store{
		posts:        map[bson.ObjectID]*models.Post{},
		users:        map[bson.ObjectID]*models.User{},
		communities:  map[bson.ObjectID]*models.Community{},
		transactions: true,
		faults:       map[string]error{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Posts = &PostRepository{s: s}
	s.Users = &UserRepository{s: s}
	s.Communities = &CommunityRepository{s: s}
	return s
}

func (s *Store) Transactional() bool {
	return s.transactions
}

// WithTransaction serialises fn against other transactions and restores the
// previous state if fn returns an error.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if !s.transactions {
		return fn(ctx)
	}

	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// InjectFault makes the next call to op fail with err. op is "<collection>.<Method>",
// e.g. "users.PushPost".
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	s.faults[op] = err
	s.mu.Unlock()
}

// fault must be called with s.mu held for writing.
func (s *Store) fault(op string) error {
	err, ok := s.faults[op]
	if !ok {
		return nil
	}
	delete(s.faults, op)
	return err
}

type snapshot struct {
	posts       map[bson.ObjectID]*models.Post
	users       map[bson.ObjectID]*models.User
	communities map[bson.ObjectID]*models.Community
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		posts:       make(map[bson.ObjectID]*models.Post, len(s.posts)),
		users:       make(map[bson.ObjectID]*models.User, len(s.users)),
		communities: make(map[bson.ObjectID]*models.Community, len(s.communities)),
	}
	for id, p := range s.posts {
		snap.posts[id] = p.Clone()
	}
	for id, u := range s.users {
		snap.users[id] = u.Clone()
	}
	for id, c := range s.communities {
		snap.communities[id] = c.Clone()
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	s.posts = snap.posts
	s.users = snap.users
	s.communities = snap.communities
	s.mu.Unlock()
}

func now() time.Time {
	// Mongo keeps millisecond precision.
	return time.Now().UTC().Truncate(time.Millisecond)
}

func idSet(ids []bson.ObjectID) map[bson.ObjectID]struct{} {
	set := make(map[bson.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func without(list []bson.ObjectID, drop map[bson.ObjectID]struct{}) []bson.ObjectID {
	out := make([]bson.ObjectID, 0, len(list))
	for _, id := range list {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func contains(list []bson.ObjectID, id bson.ObjectID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// byCreated orders by created_at then _id, matching the Mongo sort keys.
func byCreated(a, b time.Time, aID, bID bson.ObjectID, dir int) bool {
	if !a.Equal(b) {
		if dir < 0 {
			return a.After(b)
		}
		return a.Before(b)
	}
	c := bytes.Compare(aID[:], bID[:])
	if dir < 0 {
		return c > 0
	}
	return c < 0
}

func page[T any](items []T, skip, limit int64) []T {
	if skip < 0 || skip >= int64(len(items)) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

func sortPosts(posts []*models.Post, dir int) {
	sort.SliceStable(posts, func(i, j int) bool {
		return byCreated(posts[i].CreatedAt, posts[j].CreatedAt, posts[i].ID, posts[j].ID, dir)
	})
}
