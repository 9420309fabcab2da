package services

import (
	"context"
	"time"

	"github.com/cppla/threads/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserSummary is the author/member shape embedded in other views.
type UserSummary struct {
	ID       string `json:"id"`
	AuthID   string `json:"auth_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Image    string `json:"image"`
}

type CommunitySummary struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// PostView is a post with its references resolved.
type PostView struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Author     *UserSummary      `json:"author"`
	Community  *CommunitySummary `json:"community,omitempty"`
	ParentID   string            `json:"parent_id,omitempty"`
	ReplyCount int               `json:"reply_count"`
	Children   []*PostView       `json:"children"`
	CreatedAt  time.Time         `json:"created_at"`
}

type UserView struct {
	ID          string              `json:"id"`
	AuthID      string              `json:"auth_id"`
	Username    string              `json:"username"`
	Name        string              `json:"name"`
	Bio         string              `json:"bio"`
	Image       string              `json:"image"`
	Onboarded   bool                `json:"onboarded"`
	PostCount   int                 `json:"post_count"`
	Communities []*CommunitySummary `json:"communities"`
	CreatedAt   time.Time           `json:"created_at"`
}

type CommunityView struct {
	ID        string         `json:"id"`
	Slug      string         `json:"slug"`
	Name      string         `json:"name"`
	Username  string         `json:"username"`
	Image     string         `json:"image"`
	Bio       string         `json:"bio"`
	CreatedBy *UserSummary   `json:"created_by"`
	Members   []*UserSummary `json:"members"`
	PostCount int            `json:"post_count"`
	CreatedAt time.Time      `json:"created_at"`
}

func summarizeUser(u *models.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:       u.ID.Hex(),
		AuthID:   u.AuthID,
		Username: u.Username,
		Name:     u.Name,
		Image:    u.Image,
	}
}

func summarizeCommunity(c *models.Community) *CommunitySummary {
	if c == nil {
		return nil
	}
	return &CommunitySummary{
		ID:    c.ID.Hex(),
		Slug:  c.Slug,
		Name:  c.Name,
		Image: c.Image,
	}
}

func (b *base) userMap(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.User, error) {
	users, err := b.users.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, newStoreError("users.FindByIDs", "", err)
	}
	out := make(map[bson.ObjectID]*models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (b *base) communityMap(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.Community, error) {
	communities, err := b.communities.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, newStoreError("communities.FindByIDs", "", err)
	}
	out := make(map[bson.ObjectID]*models.Community, len(communities))
	for _, c := range communities {
		out[c.ID] = c
	}
	return out, nil
}

// postViews resolves authors and communities for posts and, for depth > 0,
// loads children that many levels down. Order of posts is preserved; children
// follow the parent's children list, skipping ids that no longer resolve.
func (b *base) postViews(ctx context.Context, posts []*models.Post, depth int) ([]*PostView, error) {
	var childViews map[bson.ObjectID]*PostView
	if depth > 0 {
		var childIDs []bson.ObjectID
		for _, p := range posts {
			childIDs = append(childIDs, p.Children...)
		}
		children, err := b.posts.FindByIDs(ctx, uniqueIDs(childIDs))
		if err != nil {
			return nil, newStoreError("posts.FindByIDs", "", err)
		}
		views, err := b.postViews(ctx, children, depth-1)
		if err != nil {
			return nil, err
		}
		childViews = make(map[bson.ObjectID]*PostView, len(views))
		for i, v := range views {
			childViews[children[i].ID] = v
		}
	}

	authorIDs := make([]bson.ObjectID, 0, len(posts))
	var communityIDs []bson.ObjectID
	for _, p := range posts {
		authorIDs = append(authorIDs, p.Author)
		if p.Community != nil {
			communityIDs = append(communityIDs, *p.Community)
		}
	}
	authors, err := b.userMap(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	communities, err := b.communityMap(ctx, communityIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*PostView, 0, len(posts))
	for _, p := range posts {
		v := &PostView{
			ID:         p.ID.Hex(),
			Text:       p.Text,
			Author:     summarizeUser(authors[p.Author]),
			Children:   []*PostView{},
			ReplyCount: len(p.Children),
			CreatedAt:  p.CreatedAt,
		}
		if p.Community != nil {
			v.Community = summarizeCommunity(communities[*p.Community])
		}
		if p.IsReply() {
			v.ParentID = p.Parent.Hex()
		}
		for _, id := range p.Children {
			if cv, ok := childViews[id]; ok {
				v.Children = append(v.Children, cv)
			}
		}
		out = append(out, v)
	}
	return out, nil
}
