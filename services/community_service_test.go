package services

import (
	"context"
	"errors"
	"testing"

	"github.com/cppla/threads/repository"
	"github.com/cppla/threads/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestCreateCommunity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.user(t, "alice")

	v, err := f.svc.Communities.CreateCommunity(ctx, CreateCommunityParams{
		Name:      "Go Programming Language",
		CreatorID: alice.ID.Hex(),
	})
	require.NoError(t, err)
	assert.Equal(t, "go-programming-language", v.Slug)
	require.NotNil(t, v.CreatedBy)
	assert.Equal(t, "alice", v.CreatedBy.Username)
	require.Len(t, v.Members, 1)

	u, err := f.store.Users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, u.Communities, 1)

	_, err = f.svc.Communities.CreateCommunity(ctx, CreateCommunityParams{
		Slug:      "Go Programming Language",
		Name:      "dupe",
		CreatorID: alice.ID.Hex(),
	})
	assert.True(t, IsValidationError(err))

	u, err = f.store.Users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, u.Communities, 1)

	_, err = f.svc.Communities.CreateCommunity(ctx, CreateCommunityParams{Name: "!!!", CreatorID: alice.ID.Hex()})
	assert.True(t, IsValidationError(err))
	_, err = f.svc.Communities.CreateCommunity(ctx, CreateCommunityParams{Name: "ok", CreatorID: bson.NewObjectID().Hex()})
	assert.True(t, IsNotFound(err))
}

func TestMembership_UpdatesBothSides(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	c := f.community(t, "golang", alice)

	require.NoError(t, f.svc.Communities.AddMember(ctx, MembershipParams{Community: c.Slug, UserID: bob.ID.Hex()}))
	// Joining twice is a no-op.
	require.NoError(t, f.svc.Communities.AddMember(ctx, MembershipParams{Community: c.ID.Hex(), UserID: bob.ID.Hex()}))

	got, err := f.store.Communities.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []bson.ObjectID{alice.ID, bob.ID}, got.Members)
	u, err := f.store.Users.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []bson.ObjectID{c.ID}, u.Communities)

	require.NoError(t, f.svc.Communities.RemoveMember(ctx, MembershipParams{Community: c.Slug, UserID: bob.ID.Hex()}))
	got, err = f.store.Communities.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []bson.ObjectID{alice.ID}, got.Members)
	u, err = f.store.Users.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, u.Communities)

	err = f.svc.Communities.AddMember(ctx, MembershipParams{Community: "nope", UserID: bob.ID.Hex()})
	assert.True(t, IsNotFound(err))
}

func TestMembership_FailureLeavesNoHalfJoin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	c := f.community(t, "golang", alice)

	f.store.InjectFault("users.AddCommunity", errors.New("boom"))
	err := f.svc.Communities.AddMember(ctx, MembershipParams{Community: c.Slug, UserID: bob.ID.Hex()})
	assert.True(t, IsStoreError(err))

	got, err := f.store.Communities.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []bson.ObjectID{alice.ID}, got.Members)
}

func TestCreateCommunity_CompensatesWithoutTransactions(t *testing.T) {
	f := newFixture(t, []memory.Option{memory.WithTransactions(false)})
	ctx := context.Background()
	alice := f.user(t, "alice")

	f.store.InjectFault("users.AddCommunity", errors.New("boom"))
	_, err := f.svc.Communities.CreateCommunity(ctx, CreateCommunityParams{
		Slug:      "gophers",
		Name:      "Gophers",
		CreatorID: alice.ID.Hex(),
	})
	assert.True(t, IsStoreError(err))

	_, err = f.store.Communities.GetBySlug(ctx, "gophers")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	u, err := f.store.Users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, u.Communities)

	// The slug is free again once the failed create is undone.
	v, err := f.svc.Communities.CreateCommunity(ctx, CreateCommunityParams{
		Slug:      "gophers",
		Name:      "Gophers",
		CreatorID: alice.ID.Hex(),
	})
	require.NoError(t, err)
	assert.Equal(t, "gophers", v.Slug)
}

func TestFetchCommunityAndPosts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.user(t, "alice")
	c := f.community(t, "golang", alice)
	p := f.post(t, alice, c.Slug)
	f.post(t, alice, "")

	v, err := f.svc.Communities.FetchCommunity(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, 1, v.PostCount)

	posts, err := f.svc.Communities.FetchCommunityPosts(ctx, c.ID.Hex())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, p.ID.Hex(), posts[0].ID)

	_, err = f.svc.Communities.FetchCommunity(ctx, " ")
	assert.True(t, IsValidationError(err))
}

func TestSearchCommunities(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice")
	f.community(t, "golang", alice)
	f.community(t, "rust", alice)
	f.community(t, "go-kit", alice)

	got, err := f.svc.Communities.SearchCommunities(context.Background(), SearchCommunitiesParams{Query: "GO", Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "go-kit", got.Items[0].Slug)
	assert.True(t, got.HasNext)
}
