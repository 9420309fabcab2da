package services

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultMaxPageSize caps page_size when no override is configured.
const DefaultMaxPageSize = 100

type Option func(*base)

func WithLogger(l *zap.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.log = l
		}
	}
}

func WithMaxPageSize(n int) Option {
	return func(b *base) {
		if n > 0 {
			b.maxPageSize = n
		}
	}
}

// WithMutationHook registers h. Hooks run in registration order.
func WithMutationHook(h MutationHook) Option {
	return func(b *base) {
		if h != nil {
			b.hooks = append(b.hooks, h)
		}
	}
}

// WithAdmins sets the usernames allowed to delete any post and run repairs.
func WithAdmins(usernames ...string) Option {
	return func(b *base) {
		for _, u := range usernames {
			u = strings.ToLower(strings.TrimSpace(u))
			if u != "" {
				b.admins[u] = struct{}{}
			}
		}
	}
}
