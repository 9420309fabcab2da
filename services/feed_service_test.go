package services

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchFeed_HasNext(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice")
	const total = 7
	for i := 0; i < total; i++ {
		p := f.post(t, alice, "")
		f.reply(t, p, alice)
	}

	for size := 1; size <= 8; size++ {
		for page := 1; page <= 9; page++ {
			got, err := f.svc.Feed.FetchFeed(context.Background(), page, size)
			require.NoError(t, err)
			skip := (page - 1) * size
			assert.LessOrEqual(t, len(got.Items), size)
			assert.Equal(t, int64(total), got.Total)
			assert.Equal(t, total > skip+len(got.Items), got.HasNext, "page=%d size=%d", page, size)
		}
	}
}

func TestFetchFeed_NewestFirstWithReplies(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	first := f.post(t, alice, "")
	second := f.post(t, bob, "")
	r := f.reply(t, first, bob)

	got, err := f.svc.Feed.FetchFeed(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, second.ID.Hex(), got.Items[0].ID)
	assert.Equal(t, first.ID.Hex(), got.Items[1].ID)
	require.Len(t, got.Items[1].Children, 1)
	assert.Equal(t, r.ID.Hex(), got.Items[1].Children[0].ID)
	assert.Equal(t, "bob", got.Items[1].Children[0].Author.Username)
	assert.False(t, got.HasNext)
}

func TestFetchFeed_PageValidation(t *testing.T) {
	f := newFixture(t, nil, WithMaxPageSize(5))
	alice := f.user(t, "alice")
	for i := 0; i < 8; i++ {
		f.post(t, alice, "")
	}
	ctx := context.Background()

	_, err := f.svc.Feed.FetchFeed(ctx, 0, 10)
	assert.True(t, IsValidationError(err))
	_, err = f.svc.Feed.FetchFeed(ctx, 1, 0)
	assert.True(t, IsValidationError(err))
	_, err = f.svc.Feed.FetchFeed(ctx, 1, -3)
	assert.True(t, IsValidationError(err))

	got, err := f.svc.Feed.FetchFeed(ctx, 1, 1000)
	require.NoError(t, err)
	assert.Len(t, got.Items, 5)
	assert.Equal(t, 5, got.PageSize)
	assert.True(t, got.HasNext)

	got, err = f.svc.Feed.FetchFeed(ctx, 50, 5)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.False(t, got.HasNext)
}

func TestLatest(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice")
	for i := 0; i < 3; i++ {
		f.post(t, alice, "")
	}
	got, err := f.svc.Feed.Latest(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFetchFeed_ExtremePages(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice")
	f.post(t, alice, "")
	ctx := context.Background()

	for _, page := range []int{math.MaxInt64 / 10, math.MaxInt64} {
		_, err := f.svc.Feed.FetchFeed(ctx, page, 20)
		assert.True(t, IsValidationError(err), "page %d", page)
	}

	// Far past the end but still addressable: an empty page, not an error.
	got, err := f.svc.Feed.FetchFeed(ctx, 1_000_000, 20)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.False(t, got.HasNext)

	got, err = f.svc.Feed.FetchFeed(ctx, 1, math.MaxInt)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, DefaultMaxPageSize, got.PageSize)
}
