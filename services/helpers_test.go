package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cppla/threads/models"
	"github.com/cppla/threads/repository/memory"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []MutationEvent
}

func (r *eventRecorder) hook(_ context.Context, ev MutationEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) all() []MutationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MutationEvent(nil), r.events...)
}

type fixture struct {
	store  *memory.Store
	svc    *Services
	events *eventRecorder
}

func newFixture(t *testing.T, storeOpts []memory.Option, opts ...Option) *fixture {
	t.Helper()
	store := memory.New(storeOpts...)
	rec := &eventRecorder{}
	opts = append([]Option{WithMutationHook(rec.hook)}, opts...)
	svc := New(Deps{
		Posts:       store.Posts,
		Users:       store.Users,
		Communities: store.Communities,
		Tx:          store,
	}, opts...)
	return &fixture{store: store, svc: svc, events: rec}
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := f.store.Users.Upsert(context.Background(), &models.User{
		AuthID:    "auth|" + username,
		Username:  username,
		Name:      "Name " + username,
		Onboarded: true,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) community(t *testing.T, slug string, creator *models.User) *models.Community {
	t.Helper()
	v, err := f.svc.Communities.CreateCommunity(context.Background(), CreateCommunityParams{
		Slug:      slug,
		Name:      "Community " + slug,
		CreatorID: creator.ID.Hex(),
	})
	require.NoError(t, err)
	c, err := f.store.Communities.GetBySlug(context.Background(), v.Slug)
	require.NoError(t, err)
	return c
}

func (f *fixture) post(t *testing.T, author *models.User, community string) *models.Post {
	t.Helper()
	p, err := f.svc.Posts.CreatePost(context.Background(), CreatePostParams{
		Text:      fmt.Sprintf("post by %s", author.Username),
		AuthorID:  author.ID.Hex(),
		Community: community,
		Path:      "/",
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) reply(t *testing.T, parent *models.Post, author *models.User) *models.Post {
	t.Helper()
	p, err := f.svc.Posts.AddReply(context.Background(), ReplyParams{
		PostID:   parent.ID.Hex(),
		Text:     fmt.Sprintf("reply by %s", author.Username),
		AuthorID: author.ID.Hex(),
		Path:     "/thread/" + parent.ID.Hex(),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) postCount(t *testing.T) int {
	t.Helper()
	n := 0
	require.NoError(t, f.store.Posts.ForEach(context.Background(), func(*models.Post) error {
		n++
		return nil
	}))
	return n
}

// referencedAnywhere reports whether id appears in any user, community or
// children list.
func (f *fixture) referencedAnywhere(t *testing.T, id bson.ObjectID) bool {
	t.Helper()
	ctx := context.Background()
	found := false
	require.NoError(t, f.store.Users.ForEach(ctx, func(u *models.User) error {
		found = found || containsID(u.Posts, id)
		return nil
	}))
	require.NoError(t, f.store.Communities.ForEach(ctx, func(c *models.Community) error {
		found = found || containsID(c.Posts, id)
		return nil
	}))
	require.NoError(t, f.store.Posts.ForEach(ctx, func(p *models.Post) error {
		found = found || containsID(p.Children, id)
		return nil
	}))
	return found
}
