// Package services keeps users, posts and communities consistent on top of the
// repositories: back-references, reply trees and cascading deletes.
package services

import (
	"strings"

	"go.uber.org/zap"
)

type base struct {
	posts       PostRepository
	users       UserRepository
	communities CommunityRepository
	tx          Transactor

	log         *zap.Logger
	maxPageSize int
	hooks       []MutationHook
	admins      map[string]struct{}
	locks       *treeLocks
}

// Services is the full service layer over one store.
type Services struct {
	Posts       *PostService
	Feed        *FeedService
	Users       *UserService
	Communities *CommunityService
	Maintenance *MaintenanceService
}

func New(d Deps, opts ...Option) *Services {
	b := &base{
		posts:       d.Posts,
		users:       d.Users,
		communities: d.Communities,
		tx:          d.Tx,
		log:         zap.NewNop(),
		maxPageSize: DefaultMaxPageSize,
		admins:      map[string]struct{}{},
		locks:       newTreeLocks(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return &Services{
		Posts:       &PostService{b},
		Feed:        &FeedService{b},
		Users:       &UserService{b},
		Communities: &CommunityService{b},
		Maintenance: &MaintenanceService{b},
	}
}

// IsAdmin reports whether username is configured as an administrator.
func (s *Services) IsAdmin(username string) bool {
	return s.Posts.isAdmin(username)
}

func (b *base) isAdmin(username string) bool {
	_, ok := b.admins[strings.ToLower(strings.TrimSpace(username))]
	return ok
}
