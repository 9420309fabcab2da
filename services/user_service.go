package services

import (
	"context"
	"errors"
	"strings"

	"github.com/cppla/threads/models"
	"github.com/cppla/threads/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type UserService struct {
	*base
}

type UpdateUserParams struct {
	AuthID   string
	Username string
	Name     string
	Bio      string
	Image    string
	Path     string
}

// UpdateUser creates or updates the profile owned by in.AuthID and marks it onboarded.
func (s *UserService) UpdateUser(ctx context.Context, in UpdateUserParams) (*UserView, error) {
	authID := strings.TrimSpace(in.AuthID)
	if authID == "" {
		return nil, NewValidationError("auth_id", "is required")
	}
	username, err := cleanUsername(in.Username)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, NewValidationError("name", "is required")
	}

	var saved *models.User
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.users.Upsert(ctx, &models.User{
			AuthID:    authID,
			Username:  username,
			Name:      name,
			Bio:       strings.TrimSpace(in.Bio),
			Image:     strings.TrimSpace(in.Image),
			Onboarded: true,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewValidationError("username", "is already taken")
		}
		return nil, newStoreError("users.Upsert", authID, err)
	}

	s.notify(ctx, MutationEvent{
		Op:        OpUser,
		Path:      in.Path,
		AuthorIDs: []string{saved.ID.Hex()},
	})
	return s.userView(ctx, saved)
}

// FetchUser returns the user with joined communities resolved.
func (s *UserService) FetchUser(ctx context.Context, id string) (*UserView, error) {
	u, err := s.loadUser(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	return s.userView(ctx, u)
}

func (s *UserService) FetchUserByAuthID(ctx context.Context, authID string) (*UserView, error) {
	u, err := s.userByAuthID(ctx, authID)
	if err != nil {
		return nil, err
	}
	return s.userView(ctx, u)
}

// FetchUserPosts returns the user's own top-level posts, newest first.
func (s *UserService) FetchUserPosts(ctx context.Context, id string) ([]*PostView, error) {
	u, err := s.loadUser(ctx, "id", id)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.FindByIDs(ctx, u.Posts)
	if err != nil {
		return nil, newStoreError("posts.FindByIDs", id, err)
	}
	return s.postViews(ctx, posts, 1)
}

type SearchUsersParams struct {
	CallerID string
	Query    string
	Page     int
	PageSize int
	Sort     repository.SortOrder
}

// SearchUsers lists users other than the caller whose username or name
// contains Query, case-insensitively. A blank query lists everyone.
func (s *UserService) SearchUsers(ctx context.Context, in SearchUsersParams) (*Page[*UserSummary], error) {
	caller, err := parseID("caller_id", in.CallerID)
	if err != nil {
		return nil, err
	}
	skip, limit, err := s.pageWindow(in.Page, in.PageSize)
	if err != nil {
		return nil, err
	}
	if in.Sort == 0 {
		in.Sort = repository.SortDesc
	}
	filter := repository.UserFilter{
		ExcludeID: caller,
		Search:    in.Query,
		Sort:      in.Sort,
	}

	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, newStoreError("users.Count", "", err)
	}
	users, err := s.users.Search(ctx, filter, skip, limit)
	if err != nil {
		return nil, newStoreError("users.Search", "", err)
	}
	items := make([]*UserSummary, 0, len(users))
	for _, u := range users {
		items = append(items, summarizeUser(u))
	}
	return newPage(items, in.Page, limit, skip, total), nil
}

// GetActivity returns replies to the user's posts written by someone else,
// newest first.
func (s *UserService) GetActivity(ctx context.Context, userID string) ([]*PostView, error) {
	u, err := s.loadUser(ctx, "user_id", userID)
	if err != nil {
		return nil, err
	}
	own, err := s.posts.FindByAuthor(ctx, u.ID)
	if err != nil {
		return nil, newStoreError("posts.FindByAuthor", userID, err)
	}
	var replyIDs []bson.ObjectID
	for _, p := range own {
		replyIDs = append(replyIDs, p.Children...)
	}
	replies, err := s.posts.FindByIDsExcludingAuthor(ctx, uniqueIDs(replyIDs), u.ID)
	if err != nil {
		return nil, newStoreError("posts.FindByIDsExcludingAuthor", userID, err)
	}
	return s.postViews(ctx, replies, 0)
}

func (b *base) userByAuthID(ctx context.Context, authID string) (*models.User, error) {
	authID = strings.TrimSpace(authID)
	if authID == "" {
		return nil, NewValidationError("auth_id", "is required")
	}
	u, err := b.users.GetByAuthID(ctx, authID)
	if err != nil {
		if isMissing(err) {
			return nil, NewNotFoundError("user", authID)
		}
		return nil, newStoreError("users.GetByAuthID", authID, err)
	}
	return u, nil
}

func (b *base) userView(ctx context.Context, u *models.User) (*UserView, error) {
	communities, err := b.communities.FindByIDs(ctx, u.Communities)
	if err != nil {
		return nil, newStoreError("communities.FindByIDs", u.ID.Hex(), err)
	}
	v := &UserView{
		ID:          u.ID.Hex(),
		AuthID:      u.AuthID,
		Username:    u.Username,
		Name:        u.Name,
		Bio:         u.Bio,
		Image:       u.Image,
		Onboarded:   u.Onboarded,
		PostCount:   len(u.Posts),
		Communities: make([]*CommunitySummary, 0, len(communities)),
		CreatedAt:   u.CreatedAt,
	}
	for _, c := range communities {
		v.Communities = append(v.Communities, summarizeCommunity(c))
	}
	return v, nil
}
