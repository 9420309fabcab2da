package services

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// treeLocks hands out one lock per reply tree, keyed by the root post id.
// Entries are dropped once no goroutine holds or waits on them.
type treeLocks struct {
	mu    sync.Mutex
	locks map[bson.ObjectID]*treeLock
}

// treeLock is held while its one-slot channel is full.
type treeLock struct {
	slot chan struct{}
	refs int
}

func newTreeLocks() *treeLocks {
	return &treeLocks{locks: map[bson.ObjectID]*treeLock{}}
}

// Lock waits until the tree rooted at root is free and returns its unlock
// func. It gives up with ctx.Err() when ctx ends first.
func (t *treeLocks) Lock(ctx context.Context, root bson.ObjectID) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[root]
	if !ok {
		l = &treeLock{slot: make(chan struct{}, 1)}
		t.locks[root] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		t.release(root, l)
		return nil, ctx.Err()
	}
	return func() {
		<-l.slot
		t.release(root, l)
	}, nil
}

func (t *treeLocks) release(root bson.ObjectID, l *treeLock) {
	t.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, root)
	}
	t.mu.Unlock()
}

func (t *treeLocks) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
