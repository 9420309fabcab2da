package services

import "math"

// pageWindow validates a 1-based page request and returns skip/limit.
// Oversized pages are clamped to the configured maximum.
func (b *base) pageWindow(page, size int) (skip, limit int64, err error) {
	if page < 1 {
		return 0, 0, NewValidationError("page", "must be at least 1")
	}
	if size < 1 {
		return 0, 0, NewValidationError("page_size", "must be at least 1")
	}
	if size > b.maxPageSize {
		size = b.maxPageSize
	}
	if int64(page-1) > (math.MaxInt64-int64(size))/int64(size) {
		return 0, 0, NewValidationError("page", "is out of range")
	}
	return int64(page-1) * int64(size), int64(size), nil
}

// Page is one window of a listing.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	HasNext  bool  `json:"has_next"`
}

func newPage[T any](items []T, page int, limit, skip, total int64) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:    items,
		Page:     page,
		PageSize: int(limit),
		Total:    total,
		HasNext:  total > skip+int64(len(items)),
	}
}
