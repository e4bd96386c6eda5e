package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_PermitPool(t *testing.T) {
	g := NewGuard(map[string]int{"image": 2})

	p1, err := g.TryAcquirePermit("image")
	require.NoError(t, err)
	p2, err := g.TryAcquirePermit("image")
	require.NoError(t, err)

	_, err = g.TryAcquirePermit("image")
	assert.ErrorIs(t, err, ErrPermitExhausted)
	assert.Equal(t, 2, g.Held("image"))

	p1.Release()
	p1.Release()
	assert.Equal(t, 1, g.Held("image"), "double release returns one slot")

	p2.Release()
	assert.Equal(t, 0, g.Held("image"))
}

func TestGuard_UnboundedPool(t *testing.T) {
	g := NewGuard(map[string]int{"free": 0})
	for i := 0; i < 50; i++ {
		_, err := g.TryAcquirePermit("free")
		require.NoError(t, err)
	}
	assert.Equal(t, 50, g.Held("free"))
}

func TestGuard_Resize(t *testing.T) {
	g := NewGuard(map[string]int{"gif": 3})

	var permits []*Permit
	for i := 0; i < 3; i++ {
		p, err := g.TryAcquirePermit("gif")
		require.NoError(t, err)
		permits = append(permits, p)
	}

	g.Resize(map[string]int{"gif": 1})
	assert.Equal(t, PoolStats{Size: 1, Held: 3}, g.Stats().Pools["gif"])

	permits[0].Release()
	_, err := g.TryAcquirePermit("gif")
	assert.ErrorIs(t, err, ErrPermitExhausted, "still above the new size")

	permits[1].Release()
	permits[2].Release()
	p, err := g.TryAcquirePermit("gif")
	require.NoError(t, err)
	p.Release()

	assert.Equal(t, []string{"gif"}, g.Stats().Kinds())
}

func TestGuard_Exclusive(t *testing.T) {
	g := NewGuard(nil)
	ctx := context.Background()

	require.NoError(t, g.AcquireExclusive(ctx))
	assert.True(t, g.ExclusiveHeld())

	err := g.AcquireExclusiveTimeout(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err = g.AcquireExclusive(cctx)
	assert.ErrorIs(t, err, context.Canceled)

	g.ReleaseExclusive()
	assert.False(t, g.ExclusiveHeld())

	// Releasing a free lock is ignored.
	g.ReleaseExclusive()

	require.NoError(t, g.AcquireExclusiveTimeout(ctx, time.Second))
	g.ReleaseExclusive()
}

func TestGuard_ExclusiveWaiterEventuallyAcquires(t *testing.T) {
	g := NewGuard(nil)
	ctx := context.Background()
	require.NoError(t, g.AcquireExclusive(ctx))

	var wg sync.WaitGroup
	acquired := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := g.AcquireExclusive(ctx); err == nil {
			close(acquired)
			g.ReleaseExclusive()
		}
	}()

	require.Eventually(t, func() bool { return g.Stats().ExclusiveWaiting == 1 }, time.Second, time.Millisecond)
	g.ReleaseExclusive()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the released lock")
	}
	wg.Wait()
}
