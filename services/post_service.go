package services

import (
	"context"

	"github.com/cppla/threads/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// PostService owns the reply-tree mutations.
type PostService struct {
	*base
}

type CreatePostParams struct {
	Text     string
	AuthorID string
	// Community is an id or slug; empty posts outside any community.
	Community string
	Path      string
}

type ReplyParams struct {
	PostID   string
	Text     string
	AuthorID string
	Path     string
}

// CreatePost stores a top-level post and records it on its author and community.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostParams) (*models.Post, error) {
	text, err := cleanText("text", in.Text)
	if err != nil {
		return nil, err
	}
	author, err := s.loadUser(ctx, "author_id", in.AuthorID)
	if err != nil {
		return nil, err
	}

	var community *models.Community
	if in.Community != "" {
		if community, err = s.resolveCommunity(ctx, in.Community); err != nil {
			return nil, err
		}
	}

	post := &models.Post{
		ID:     bson.NewObjectID(),
		Text:   text,
		Author: author.ID,
	}
	if community != nil {
		post.Community = &community.ID
	}

	err = s.mutate(ctx, OpCreate, func(ctx context.Context) error {
		if err := s.posts.Create(ctx, post); err != nil {
			return newStoreError("posts.Create", post.ID.Hex(), err)
		}
		if err := s.users.PushPost(ctx, author.ID, post.ID); err != nil {
			return newStoreError("users.PushPost", author.ID.Hex(), err)
		}
		if community != nil {
			if err := s.communities.PushPost(ctx, community.ID, post.ID); err != nil {
				return newStoreError("communities.PushPost", community.ID.Hex(), err)
			}
		}
		return nil
	}, func(ctx context.Context) error {
		ids := []bson.ObjectID{post.ID}
		if _, err := s.posts.DeleteByIDs(ctx, ids); err != nil {
			return err
		}
		if err := s.users.PullPosts(ctx, []bson.ObjectID{author.ID}, ids); err != nil {
			return err
		}
		if community != nil {
			return s.communities.PullPosts(ctx, []bson.ObjectID{community.ID}, ids)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := MutationEvent{
		Op:        OpCreate,
		Path:      in.Path,
		PostIDs:   []string{post.ID.Hex()},
		AuthorIDs: []string{author.ID.Hex()},
	}
	if community != nil {
		ev.CommunityIDs = []string{community.ID.Hex()}
	}
	s.notify(ctx, ev)
	s.log.Debug("post created", zap.String("post_id", post.ID.Hex()), zap.String("author_id", author.ID.Hex()))
	return post, nil
}

// AddReply attaches a new reply under in.PostID.
func (s *PostService) AddReply(ctx context.Context, in ReplyParams) (*models.Post, error) {
	targetID, err := parseID("post_id", in.PostID)
	if err != nil {
		return nil, err
	}
	text, err := cleanText("text", in.Text)
	if err != nil {
		return nil, err
	}
	target, err := s.loadPost(ctx, targetID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, target.RootID())
	if err != nil {
		return nil, newStoreError("tree.Lock", target.RootID().Hex(), err)
	}
	defer unlock()

	// The tree may have been deleted while we waited.
	if target, err = s.loadPost(ctx, targetID); err != nil {
		return nil, err
	}
	author, err := s.loadUser(ctx, "author_id", in.AuthorID)
	if err != nil {
		return nil, err
	}

	ancestors := make([]bson.ObjectID, 0, len(target.Ancestors)+1)
	ancestors = append(ancestors, target.Ancestors...)
	ancestors = append(ancestors, target.ID)
	reply := &models.Post{
		ID:        bson.NewObjectID(),
		Text:      text,
		Author:    author.ID,
		Parent:    &target.ID,
		Ancestors: ancestors,
	}

	err = s.mutate(ctx, OpReply, func(ctx context.Context) error {
		if err := s.posts.Create(ctx, reply); err != nil {
			return newStoreError("posts.Create", reply.ID.Hex(), err)
		}
		if err := s.posts.AppendChild(ctx, target.ID, reply.ID); err != nil {
			if isMissing(err) {
				return NewNotFoundError("post", target.ID.Hex())
			}
			return newStoreError("posts.AppendChild", target.ID.Hex(), err)
		}
		return nil
	}, func(ctx context.Context) error {
		if _, err := s.posts.DeleteByIDs(ctx, []bson.ObjectID{reply.ID}); err != nil {
			return err
		}
		return s.posts.RemoveChild(ctx, target.ID, reply.ID)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, MutationEvent{
		Op:        OpReply,
		Path:      in.Path,
		PostIDs:   []string{reply.ID.Hex(), target.ID.Hex()},
		AuthorIDs: []string{author.ID.Hex()},
	})
	return reply, nil
}

// DeleteResult reports what a subtree delete removed.
type DeleteResult struct {
	PostIDs      []string `json:"post_ids"`
	AuthorIDs    []string `json:"author_ids"`
	CommunityIDs []string `json:"community_ids"`
}

// DeletePostTree removes the post id, every reply below it and all
// back-references to them.
func (s *PostService) DeletePostTree(ctx context.Context, id, path string) (*DeleteResult, error) {
	rootID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	return s.deleteTree(ctx, rootID, path, nil)
}

// DeletePostTreeAs is DeletePostTree restricted to the root's author or an admin.
func (s *PostService) DeletePostTreeAs(ctx context.Context, id, actorID, actorUsername, path string) (*DeleteResult, error) {
	rootID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	actor, err := parseID("actor_id", actorID)
	if err != nil {
		return nil, err
	}
	admin := s.isAdmin(actorUsername)
	return s.deleteTree(ctx, rootID, path, func(root *models.Post) error {
		if root.Author != actor && !admin {
			return ErrForbidden
		}
		return nil
	})
}

func (s *PostService) deleteTree(ctx context.Context, rootID bson.ObjectID, path string, authorize func(*models.Post) error) (*DeleteResult, error) {
	root, err := s.loadPost(ctx, rootID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, root.RootID())
	if err != nil {
		return nil, newStoreError("tree.Lock", root.RootID().Hex(), err)
	}
	defer unlock()

	if root, err = s.loadPost(ctx, rootID); err != nil {
		return nil, err
	}
	if authorize != nil {
		if err := authorize(root); err != nil {
			return nil, err
		}
	}

	descendants, err := s.posts.FindDescendants(ctx, root.ID)
	if err != nil {
		return nil, newStoreError("posts.FindDescendants", root.ID.Hex(), err)
	}

	all := append([]*models.Post{root}, descendants...)
	ids := make([]bson.ObjectID, 0, len(all))
	var authorIDs, communityIDs []bson.ObjectID
	for _, p := range all {
		ids = append(ids, p.ID)
		authorIDs = append(authorIDs, p.Author)
		if p.Community != nil {
			communityIDs = append(communityIDs, *p.Community)
		}
	}
	authorIDs = uniqueIDs(authorIDs)
	communityIDs = uniqueIDs(communityIDs)

	// Without transactions the steps run in order and a failure leaves the
	// earlier ones applied. RebuildReferences repairs the leftovers.
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.posts.DeleteByIDs(ctx, ids); err != nil {
			return newStoreError("posts.DeleteByIDs", root.ID.Hex(), err)
		}
		if err := s.users.PullPosts(ctx, authorIDs, ids); err != nil {
			return newStoreError("users.PullPosts", root.ID.Hex(), err)
		}
		if err := s.communities.PullPosts(ctx, communityIDs, ids); err != nil {
			return newStoreError("communities.PullPosts", root.ID.Hex(), err)
		}
		if root.IsReply() {
			if err := s.posts.RemoveChild(ctx, *root.Parent, root.ID); err != nil {
				return newStoreError("posts.RemoveChild", root.Parent.Hex(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &DeleteResult{
		PostIDs:      hexIDs(ids),
		AuthorIDs:    hexIDs(authorIDs),
		CommunityIDs: hexIDs(communityIDs),
	}
	s.notify(ctx, MutationEvent{
		Op:           OpDelete,
		Path:         path,
		PostIDs:      res.PostIDs,
		AuthorIDs:    res.AuthorIDs,
		CommunityIDs: res.CommunityIDs,
	})
	s.log.Info("post tree deleted",
		zap.String("root_id", root.ID.Hex()),
		zap.Int("posts", len(ids)),
	)
	return res, nil
}

// FetchPostByID returns the post with two levels of replies resolved.
func (s *PostService) FetchPostByID(ctx context.Context, id string) (*PostView, error) {
	postID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	views, err := s.postViews(ctx, []*models.Post{post}, 2)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (b *base) loadPost(ctx context.Context, id bson.ObjectID) (*models.Post, error) {
	p, err := b.posts.GetByID(ctx, id)
	if err != nil {
		if isMissing(err) {
			return nil, NewNotFoundError("post", id.Hex())
		}
		return nil, newStoreError("posts.GetByID", id.Hex(), err)
	}
	return p, nil
}

func (b *base) loadUser(ctx context.Context, field, id string) (*models.User, error) {
	userID, err := parseID(field, id)
	if err != nil {
		return nil, err
	}
	u, err := b.users.GetByID(ctx, userID)
	if err != nil {
		if isMissing(err) {
			return nil, NewNotFoundError("user", id)
		}
		return nil, newStoreError("users.GetByID", id, err)
	}
	return u, nil
}

// resolveCommunity accepts an ObjectID hex or a slug.
func (b *base) resolveCommunity(ctx context.Context, ref string) (*models.Community, error) {
	if id, err := bson.ObjectIDFromHex(ref); err == nil {
		c, err := b.communities.GetByID(ctx, id)
		if err == nil {
			return c, nil
		}
		if !isMissing(err) {
			return nil, newStoreError("communities.GetByID", ref, err)
		}
	}
	c, err := b.communities.GetBySlug(ctx, ref)
	if err != nil {
		if isMissing(err) {
			return nil, NewNotFoundError("community", ref)
		}
		return nil, newStoreError("communities.GetBySlug", ref, err)
	}
	return c, nil
}
