package services

import (
	"context"
)

type FeedService struct {
	*base
}

// FetchFeed pages through top-level posts, newest first, with direct replies
// and their authors resolved.
func (s *FeedService) FetchFeed(ctx context.Context, page, size int) (*Page[*PostView], error) {
	skip, limit, err := s.pageWindow(page, size)
	if err != nil {
		return nil, err
	}
	total, err := s.posts.CountTopLevel(ctx)
	if err != nil {
		return nil, newStoreError("posts.CountTopLevel", "", err)
	}
	posts, err := s.posts.ListTopLevel(ctx, skip, limit)
	if err != nil {
		return nil, newStoreError("posts.ListTopLevel", "", err)
	}
	views, err := s.postViews(ctx, posts, 1)
	if err != nil {
		return nil, err
	}
	return newPage(views, page, limit, skip, total), nil
}

// Latest returns the newest n top-level posts without replies, for syndication.
func (s *FeedService) Latest(ctx context.Context, n int) ([]*PostView, error) {
	if n < 1 || n > s.maxPageSize {
		n = s.maxPageSize
	}
	posts, err := s.posts.ListTopLevel(ctx, 0, int64(n))
	if err != nil {
		return nil, newStoreError("posts.ListTopLevel", "", err)
	}
	return s.postViews(ctx, posts, 0)
}
