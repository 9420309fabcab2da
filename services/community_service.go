package services

import (
	"context"
	"errors"
	"strings"

	"github.com/cppla/threads/models"
	"github.com/cppla/threads/repository"
	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type CommunityService struct {
	*base
}

type CreateCommunityParams struct {
	// Slug defaults to one derived from Name.
	Slug      string
	Name      string
	Username  string
	Image     string
	Bio       string
	CreatorID string
	Path      string
}

// CreateCommunity stores a community with its creator as first member.
func (s *CommunityService) CreateCommunity(ctx context.Context, in CreateCommunityParams) (*CommunityView, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, NewValidationError("name", "is required")
	}
	src := in.Slug
	if strings.TrimSpace(src) == "" {
		src = name
	}
	sl := slug.Make(src)
	if sl == "" {
		return nil, NewValidationError("slug", "must contain letters or digits")
	}
	creator, err := s.loadUser(ctx, "creator_id", in.CreatorID)
	if err != nil {
		return nil, err
	}

	c := &models.Community{
		ID:        bson.NewObjectID(),
		Slug:      sl,
		Name:      name,
		Username:  strings.TrimSpace(in.Username),
		Image:     strings.TrimSpace(in.Image),
		Bio:       strings.TrimSpace(in.Bio),
		CreatedBy: creator.ID,
		Members:   []bson.ObjectID{creator.ID},
	}
	if c.Username == "" {
		c.Username = sl
	}

	err = s.mutate(ctx, OpCommunity, func(ctx context.Context) error {
		if err := s.communities.Create(ctx, c); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return NewValidationError("slug", "is already taken")
			}
			return newStoreError("communities.Create", sl, err)
		}
		if err := s.users.AddCommunity(ctx, creator.ID, c.ID); err != nil {
			return newStoreError("users.AddCommunity", creator.ID.Hex(), err)
		}
		return nil
	}, func(ctx context.Context) error {
		if err := s.users.RemoveCommunity(ctx, creator.ID, c.ID); err != nil && !isMissing(err) {
			return err
		}
		return s.communities.Delete(ctx, c.ID)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, MutationEvent{
		Op:           OpCommunity,
		Path:         in.Path,
		AuthorIDs:    []string{creator.ID.Hex()},
		CommunityIDs: []string{c.ID.Hex()},
	})
	return s.communityView(ctx, c)
}

// FetchCommunity resolves ref as an id or a slug.
func (s *CommunityService) FetchCommunity(ctx context.Context, ref string) (*CommunityView, error) {
	c, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.communityView(ctx, c)
}

// FetchCommunityPosts returns the community's posts newest first with replies resolved.
func (s *CommunityService) FetchCommunityPosts(ctx context.Context, ref string) ([]*PostView, error) {
	c, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.FindByIDs(ctx, c.Posts)
	if err != nil {
		return nil, newStoreError("posts.FindByIDs", c.ID.Hex(), err)
	}
	return s.postViews(ctx, posts, 1)
}

type MembershipParams struct {
	Community string
	UserID    string
	Path      string
}

// AddMember records the membership on both the community and the user.
func (s *CommunityService) AddMember(ctx context.Context, in MembershipParams) error {
	return s.membership(ctx, in, true)
}

func (s *CommunityService) RemoveMember(ctx context.Context, in MembershipParams) error {
	return s.membership(ctx, in, false)
}

func (s *CommunityService) membership(ctx context.Context, in MembershipParams, join bool) error {
	c, err := s.lookup(ctx, in.Community)
	if err != nil {
		return err
	}
	u, err := s.loadUser(ctx, "user_id", in.UserID)
	if err != nil {
		return err
	}

	apply := func(ctx context.Context, join bool) error {
		if join {
			if err := s.communities.AddMember(ctx, c.ID, u.ID); err != nil {
				return newStoreError("communities.AddMember", c.ID.Hex(), err)
			}
			if err := s.users.AddCommunity(ctx, u.ID, c.ID); err != nil {
				return newStoreError("users.AddCommunity", u.ID.Hex(), err)
			}
			return nil
		}
		if err := s.communities.RemoveMember(ctx, c.ID, u.ID); err != nil {
			return newStoreError("communities.RemoveMember", c.ID.Hex(), err)
		}
		if err := s.users.RemoveCommunity(ctx, u.ID, c.ID); err != nil {
			return newStoreError("users.RemoveCommunity", u.ID.Hex(), err)
		}
		return nil
	}
	wasMember := containsID(c.Members, u.ID)
	err = s.mutate(ctx, OpMembership, func(ctx context.Context) error {
		return apply(ctx, join)
	}, func(ctx context.Context) error {
		return apply(ctx, wasMember)
	})
	if err != nil {
		return err
	}

	s.notify(ctx, MutationEvent{
		Op:           OpMembership,
		Path:         in.Path,
		AuthorIDs:    []string{u.ID.Hex()},
		CommunityIDs: []string{c.ID.Hex()},
	})
	return nil
}

type SearchCommunitiesParams struct {
	Query    string
	Page     int
	PageSize int
	Sort     repository.SortOrder
}

func (s *CommunityService) SearchCommunities(ctx context.Context, in SearchCommunitiesParams) (*Page[*CommunitySummary], error) {
	skip, limit, err := s.pageWindow(in.Page, in.PageSize)
	if err != nil {
		return nil, err
	}
	if in.Sort == 0 {
		in.Sort = repository.SortDesc
	}
	filter := repository.CommunityFilter{Search: in.Query, Sort: in.Sort}

	total, err := s.communities.Count(ctx, filter)
	if err != nil {
		return nil, newStoreError("communities.Count", "", err)
	}
	found, err := s.communities.Search(ctx, filter, skip, limit)
	if err != nil {
		return nil, newStoreError("communities.Search", "", err)
	}
	items := make([]*CommunitySummary, 0, len(found))
	for _, c := range found {
		items = append(items, summarizeCommunity(c))
	}
	return newPage(items, in.Page, limit, skip, total), nil
}

func (s *CommunityService) lookup(ctx context.Context, ref string) (*models.Community, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, NewValidationError("community", "is required")
	}
	return s.resolveCommunity(ctx, ref)
}

func (b *base) communityView(ctx context.Context, c *models.Community) (*CommunityView, error) {
	users, err := b.userMap(ctx, append([]bson.ObjectID{c.CreatedBy}, c.Members...))
	if err != nil {
		return nil, err
	}
	v := &CommunityView{
		ID:        c.ID.Hex(),
		Slug:      c.Slug,
		Name:      c.Name,
		Username:  c.Username,
		Image:     c.Image,
		Bio:       c.Bio,
		CreatedBy: summarizeUser(users[c.CreatedBy]),
		Members:   make([]*UserSummary, 0, len(c.Members)),
		PostCount: len(c.Posts),
		CreatedAt: c.CreatedAt,
	}
	for _, id := range c.Members {
		if u, ok := users[id]; ok {
			v.Members = append(v.Members, summarizeUser(u))
		}
	}
	return v, nil
}

func containsID(ids []bson.ObjectID, id bson.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
