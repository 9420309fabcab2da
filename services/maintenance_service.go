package services

import (
	"context"

	"github.com/cppla/threads/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

type MaintenanceService struct {
	*base
}

// RepairReport counts the documents whose back-references were rewritten.
type RepairReport struct {
	Posts       int `json:"posts"`
	Users       int `json:"users"`
	Communities int `json:"communities"`
}

// RebuildReferences recomputes every derived id list from the posts
// collection: post children from parent, user posts from authored top-level
// posts, community posts from the community field. Lists whose members
// already match are left untouched so their order survives. Writes that
// commit while the pass runs are kept.
func (s *MaintenanceService) RebuildReferences(ctx context.Context, path string) (*RepairReport, error) {
	children := map[bson.ObjectID][]bson.ObjectID{}
	byAuthor := map[bson.ObjectID][]bson.ObjectID{}
	byCommunity := map[bson.ObjectID][]bson.ObjectID{}

	err := s.posts.ForEach(ctx, func(p *models.Post) error {
		if p.IsReply() {
			children[*p.Parent] = append(children[*p.Parent], p.ID)
		} else {
			byAuthor[p.Author] = append(byAuthor[p.Author], p.ID)
		}
		if p.Community != nil {
			byCommunity[*p.Community] = append(byCommunity[*p.Community], p.ID)
		}
		return nil
	})
	if err != nil {
		return nil, newStoreError("posts.ForEach", "", err)
	}

	report := &RepairReport{}

	// The scan above only flags candidates. Each candidate is re-read and
	// fixed against fresh state so writes made since the scan survive.
	err = s.posts.ForEach(ctx, func(p *models.Post) error {
		if sameIDs(p.Children, children[p.ID]) {
			return nil
		}
		fixed, err := s.repairChildren(ctx, p)
		if fixed {
			report.Posts++
		}
		return err
	})
	if err != nil {
		return nil, passStore("posts.ForEach", err)
	}

	err = s.users.ForEach(ctx, func(u *models.User) error {
		if sameIDs(u.Posts, byAuthor[u.ID]) {
			return nil
		}
		fixed, err := s.repairUserPosts(ctx, u.ID)
		if fixed {
			report.Users++
		}
		return err
	})
	if err != nil {
		return nil, passStore("users.ForEach", err)
	}

	err = s.communities.ForEach(ctx, func(c *models.Community) error {
		if sameIDs(c.Posts, byCommunity[c.ID]) {
			return nil
		}
		fixed, err := s.repairCommunityPosts(ctx, c.ID)
		if fixed {
			report.Communities++
		}
		return err
	})
	if err != nil {
		return nil, passStore("communities.ForEach", err)
	}

	s.log.Info("references rebuilt",
		zap.Int("posts", report.Posts),
		zap.Int("users", report.Users),
		zap.Int("communities", report.Communities),
	)
	if report.Posts+report.Users+report.Communities > 0 {
		s.notify(ctx, MutationEvent{Op: OpRepair, Path: path})
	}
	return report, nil
}

// repairChildren rewrites p.children from the replies that point at p. It
// holds the tree lock so no reply or delete interleaves with the rewrite.
func (s *MaintenanceService) repairChildren(ctx context.Context, p *models.Post) (bool, error) {
	unlock, err := s.locks.Lock(ctx, p.RootID())
	if err != nil {
		return false, newStoreError("tree.Lock", p.RootID().Hex(), err)
	}
	defer unlock()

	cur, err := s.posts.GetByID(ctx, p.ID)
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, newStoreError("posts.GetByID", p.ID.Hex(), err)
	}
	replies, err := s.posts.FindByParent(ctx, p.ID)
	if err != nil {
		return false, newStoreError("posts.FindByParent", p.ID.Hex(), err)
	}
	want := make([]bson.ObjectID, 0, len(replies))
	for _, r := range replies {
		want = append(want, r.ID)
	}
	if sameIDs(cur.Children, want) {
		return false, nil
	}
	if err := s.posts.SetChildren(ctx, p.ID, want); err != nil && !isMissing(err) {
		return false, newStoreError("posts.SetChildren", p.ID.Hex(), err)
	}
	return true, nil
}

// repairUserPosts adds the user's missing top-level posts and pulls ids of
// posts that are gone. The list is never overwritten, so a concurrent
// create keeps its entry.
func (s *MaintenanceService) repairUserPosts(ctx context.Context, userID bson.ObjectID) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, newStoreError("users.GetByID", userID.Hex(), err)
	}
	own, err := s.posts.FindByAuthor(ctx, userID)
	if err != nil {
		return false, newStoreError("posts.FindByAuthor", userID.Hex(), err)
	}
	var want []bson.ObjectID
	// FindByAuthor is newest first; append oldest first.
	for i := len(own) - 1; i >= 0; i-- {
		if !own[i].IsReply() {
			want = append(want, own[i].ID)
		}
	}
	missing, extra := diffIDs(u.Posts, want)
	if err := s.users.PullPosts(ctx, []bson.ObjectID{userID}, extra); err != nil {
		return false, newStoreError("users.PullPosts", userID.Hex(), err)
	}
	for _, id := range missing {
		if err := s.users.PushPost(ctx, userID, id); err != nil && !isMissing(err) {
			return false, newStoreError("users.PushPost", userID.Hex(), err)
		}
	}
	return len(missing)+len(extra) > 0, nil
}

// repairCommunityPosts is repairUserPosts for a community's posts.
func (s *MaintenanceService) repairCommunityPosts(ctx context.Context, communityID bson.ObjectID) (bool, error) {
	c, err := s.communities.GetByID(ctx, communityID)
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, newStoreError("communities.GetByID", communityID.Hex(), err)
	}
	filed, err := s.posts.FindByCommunity(ctx, communityID)
	if err != nil {
		return false, newStoreError("posts.FindByCommunity", communityID.Hex(), err)
	}
	want := make([]bson.ObjectID, 0, len(filed))
	for _, p := range filed {
		want = append(want, p.ID)
	}
	missing, extra := diffIDs(c.Posts, want)
	if err := s.communities.PullPosts(ctx, []bson.ObjectID{communityID}, extra); err != nil {
		return false, newStoreError("communities.PullPosts", communityID.Hex(), err)
	}
	for _, id := range missing {
		if err := s.communities.PushPost(ctx, communityID, id); err != nil && !isMissing(err) {
			return false, newStoreError("communities.PushPost", communityID.Hex(), err)
		}
	}
	return len(missing)+len(extra) > 0, nil
}

// diffIDs returns the ids of want that have lacks, in want order, and the
// ids of have that want lacks. An id listed more than once in have is
// reported in both so pulling extra then pushing missing leaves one copy.
func diffIDs(have, want []bson.ObjectID) (missing, extra []bson.ObjectID) {
	count := make(map[bson.ObjectID]int, len(have))
	for _, id := range have {
		count[id]++
	}
	wanted := make(map[bson.ObjectID]struct{}, len(want))
	for _, id := range want {
		wanted[id] = struct{}{}
		if count[id] != 1 {
			missing = append(missing, id)
		}
	}
	for id, n := range count {
		if _, ok := wanted[id]; !ok || n > 1 {
			extra = append(extra, id)
		}
	}
	return missing, extra
}

// passStore wraps err unless a callback already produced a StoreError.
func passStore(op string, err error) error {
	if IsStoreError(err) {
		return err
	}
	return newStoreError(op, "", err)
}

// sameIDs compares as sets; duplicates count as a mismatch.
func sameIDs(have, want []bson.ObjectID) bool {
	if len(have) != len(want) {
		return false
	}
	set := make(map[bson.ObjectID]struct{}, len(want))
	for _, id := range want {
		set[id] = struct{}{}
	}
	for _, id := range have {
		if _, ok := set[id]; !ok {
			return false
		}
		delete(set, id)
	}
	return len(set) == 0
}
