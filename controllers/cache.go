package controllers

import (
	"context"

	"go.uber.org/zap"

	"github.com/cppla/threads/services"
	"github.com/cppla/threads/utils"
)

// Cache key layout. Everything lives under cachePrefix so a repair can drop it all.
const (
	cachePrefix          = "cache:"
	cacheFeedPrefix      = "cache:feed:"
	cachePostPrefix      = "cache:post:"
	cacheUserPrefix      = "cache:user:"
	cacheCommunityPrefix = "cache:community:"
)

// CacheInvalidationHook drops cached reads made stale by a mutation and logs
// the view path the caller asked to refresh.
func CacheInvalidationHook(log *zap.Logger) services.MutationHook {
	if log == nil {
		log = zap.NewNop()
	}
	return func(_ context.Context, ev services.MutationEvent) {
		var prefixes []string
		switch ev.Op {
		case services.OpCreate:
			prefixes = append(prefixes, cacheFeedPrefix, cacheCommunityPrefix)
			for _, id := range ev.AuthorIDs {
				prefixes = append(prefixes, cacheUserPrefix+id+":")
			}
		case services.OpMembership, services.OpCommunity:
			prefixes = append(prefixes, cacheCommunityPrefix)
			for _, id := range ev.AuthorIDs {
				prefixes = append(prefixes, cacheUserPrefix+id+":")
			}
		default:
			// Replies, deletes, profile edits and repairs show up in nested
			// views of other documents.
			prefixes = append(prefixes, cachePrefix)
		}
		for _, p := range utils.UniqueStrings(prefixes) {
			utils.InvalidateByPrefix(p)
		}
		log.Info("mutation committed",
			zap.String("op", ev.Op),
			zap.String("path", ev.Path),
			zap.Strings("post_ids", ev.PostIDs),
		)
	}
}
