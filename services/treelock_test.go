package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestTreeLocks_SerialisesSameRoot(t *testing.T) {
	locks := newTreeLocks()
	ctx := context.Background()
	root := bson.NewObjectID()

	unlock, err := locks.Lock(ctx, root)
	require.NoError(t, err)
	acquired := make(chan struct{})
	go func() {
		u, err := locks.Lock(ctx, root)
		if err != nil {
			return
		}
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	<-acquired

	assert.Eventually(t, func() bool { return locks.size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTreeLocks_IndependentRoots(t *testing.T) {
	locks := newTreeLocks()
	ctx := context.Background()
	var wg sync.WaitGroup
	u1, err := locks.Lock(ctx, bson.NewObjectID())
	require.NoError(t, err)
	wg.Add(1)
	go func() {
		defer wg.Done()
		u2, err := locks.Lock(ctx, bson.NewObjectID())
		if err == nil {
			u2()
		}
	}()
	wg.Wait()
	u1()
	assert.Equal(t, 0, locks.size())
}

func TestTreeLocks_WaitEndsWithContext(t *testing.T) {
	locks := newTreeLocks()
	root := bson.NewObjectID()
	unlock, err := locks.Lock(context.Background(), root)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	u, err := locks.Lock(ctx, root)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, u)
	assert.Equal(t, 1, locks.size())

	unlock()
	assert.Equal(t, 0, locks.size())

	// The tree is still usable after a waiter gave up.
	unlock, err = locks.Lock(context.Background(), root)
	require.NoError(t, err)
	unlock()
}
