package services

import "context"

// Mutation kinds reported to hooks.
const (
	OpCreate     = "create"
	OpReply      = "reply"
	OpDelete     = "delete"
	OpUser       = "user"
	OpCommunity  = "community"
	OpMembership = "membership"
	OpRepair     = "repair"
)

// MutationEvent describes a committed write. Path is the caller-supplied view
// path whose cached rendering is now stale.
type MutationEvent struct {
	Op           string
	Path         string
	PostIDs      []string
	AuthorIDs    []string
	CommunityIDs []string
}

// MutationHook is called after a mutation succeeded. It is never called for a
// failed mutation.
type MutationHook func(ctx context.Context, ev MutationEvent)

func (b *base) notify(ctx context.Context, ev MutationEvent) {
	for _, h := range b.hooks {
		h(ctx, ev)
	}
}
