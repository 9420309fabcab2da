package services

import (
	"context"
	"testing"

	"github.com/cppla/threads/models"
	"github.com/cppla/threads/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestRebuildReferences(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.user(t, "alice")
	c := f.community(t, "golang", alice)
	p := f.post(t, alice, c.Slug)
	r1 := f.reply(t, p, alice)
	r2 := f.reply(t, p, alice)

	report, err := f.svc.Maintenance.RebuildReferences(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, RepairReport{}, *report)

	stale := bson.NewObjectID()
	require.NoError(t, f.store.Posts.SetChildren(ctx, p.ID, []bson.ObjectID{r2.ID, stale}))
	require.NoError(t, f.store.Users.PullPosts(ctx, []bson.ObjectID{alice.ID}, []bson.ObjectID{p.ID}))
	require.NoError(t, f.store.Communities.PushPost(ctx, c.ID, stale))

	report, err = f.svc.Maintenance.RebuildReferences(ctx, "/admin")
	require.NoError(t, err)
	assert.Equal(t, RepairReport{Posts: 1, Users: 1, Communities: 1}, *report)

	got, err := f.store.Posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []bson.ObjectID{r1.ID, r2.ID}, got.Children)

	u, err := f.store.Users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []bson.ObjectID{p.ID}, u.Posts)

	cc, err := f.store.Communities.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []bson.ObjectID{p.ID}, cc.Posts)

	events := f.events.all()
	assert.Equal(t, OpRepair, events[len(events)-1].Op)
}

func TestSameIDs(t *testing.T) {
	a, b := bson.NewObjectID(), bson.NewObjectID()
	tests := []struct {
		have, want []bson.ObjectID
		same       bool
	}{
		{nil, nil, true},
		{[]bson.ObjectID{a, b}, []bson.ObjectID{b, a}, true},
		{[]bson.ObjectID{a, a}, []bson.ObjectID{a, b}, false},
		{[]bson.ObjectID{a}, []bson.ObjectID{a, b}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.same, sameIDs(tt.have, tt.want))
	}
}

// racingPosts runs before ahead of the second ForEach, i.e. between the
// scan and the fix-up pass.
type racingPosts struct {
	PostRepository
	calls  int
	before func()
}

func (r *racingPosts) ForEach(ctx context.Context, fn func(*models.Post) error) error {
	r.calls++
	if r.calls == 2 && r.before != nil {
		r.before()
	}
	return r.PostRepository.ForEach(ctx, fn)
}

type racingUsers struct {
	UserRepository
	before func()
}

func (r *racingUsers) ForEach(ctx context.Context, fn func(*models.User) error) error {
	if r.before != nil {
		r.before()
		r.before = nil
	}
	return r.UserRepository.ForEach(ctx, fn)
}

func TestRebuildReferences_KeepsReplyAddedDuringPass(t *testing.T) {
	store := memory.New()
	posts := &racingPosts{PostRepository: store.Posts}
	svc := New(Deps{Posts: posts, Users: store.Users, Communities: store.Communities, Tx: store})
	f := &fixture{store: store, svc: svc, events: &eventRecorder{}}
	ctx := context.Background()
	alice := f.user(t, "alice")
	root := f.post(t, alice, "")
	r1 := f.reply(t, root, alice)

	stale := bson.NewObjectID()
	require.NoError(t, store.Posts.SetChildren(ctx, root.ID, []bson.ObjectID{r1.ID, stale}))

	var r2 *models.Post
	posts.before = func() { r2 = f.reply(t, root, alice) }

	report, err := svc.Maintenance.RebuildReferences(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Posts)
	require.NotNil(t, r2)

	got, err := store.Posts.GetByID(ctx, root.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []bson.ObjectID{r1.ID, r2.ID}, got.Children)
}

func TestRebuildReferences_KeepsPostCreatedDuringPass(t *testing.T) {
	store := memory.New()
	users := &racingUsers{UserRepository: store.Users}
	svc := New(Deps{Posts: store.Posts, Users: users, Communities: store.Communities, Tx: store})
	f := &fixture{store: store, svc: svc, events: &eventRecorder{}}
	ctx := context.Background()
	alice := f.user(t, "alice")
	c := f.community(t, "golang", alice)
	p1 := f.post(t, alice, c.Slug)

	require.NoError(t, store.Users.PullPosts(ctx, []bson.ObjectID{alice.ID}, []bson.ObjectID{p1.ID}))

	var p2 *models.Post
	users.before = func() { p2 = f.post(t, alice, c.Slug) }

	report, err := svc.Maintenance.RebuildReferences(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Users)
	require.NotNil(t, p2)

	u, err := store.Users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []bson.ObjectID{p1.ID, p2.ID}, u.Posts)

	cc, err := store.Communities.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []bson.ObjectID{p1.ID, p2.ID}, cc.Posts)
}

func TestDiffIDs(t *testing.T) {
	a, b, c := bson.NewObjectID(), bson.NewObjectID(), bson.NewObjectID()
	tests := []struct {
		name           string
		have, want     []bson.ObjectID
		missing, extra []bson.ObjectID
	}{
		{"equal", []bson.ObjectID{a, b}, []bson.ObjectID{b, a}, nil, nil},
		{"lacks one", []bson.ObjectID{a}, []bson.ObjectID{a, b}, []bson.ObjectID{b}, nil},
		{"stale entry", []bson.ObjectID{a, c}, []bson.ObjectID{a}, nil, []bson.ObjectID{c}},
		{"duplicate", []bson.ObjectID{a, a}, []bson.ObjectID{a}, []bson.ObjectID{a}, []bson.ObjectID{a}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing, extra := diffIDs(tt.have, tt.want)
			assert.ElementsMatch(t, tt.missing, missing)
			assert.ElementsMatch(t, tt.extra, extra)
		})
	}
}
