package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"automata/internal/logging"

	"golang.org/x/sync/semaphore"
)

// =============================================================================
// CONCURRENCY GUARD
// =============================================================================
//
// Guard owns the only two shared coordination primitives:
//   - the exclusive lock, a single-holder FIFO lock used by exclusive kinds
//     for their whole life and by the tick loop while it rolls gates
//   - one bounded permit pool per non-exclusive kind

// Guard unifies the exclusive lock and the per-kind permit pools.
type Guard struct {
	exclusive *semaphore.Weighted
	held      atomic.Bool
	waiting   atomic.Int32

	mu    sync.Mutex
	pools map[string]*pool
}

type pool struct {
	size int // 0 = unbounded
	held int
}

// GuardStats is a point-in-time view of the guard.
type GuardStats struct {
	ExclusiveHeld    bool
	ExclusiveWaiting int
	Pools            map[string]PoolStats
}

// PoolStats describes one permit pool.
type PoolStats struct {
	Size int
	Held int
}

// NewGuard creates a guard with the given pool sizes.
func NewGuard(sizes map[string]int) *Guard {
	g := &Guard{
		exclusive: semaphore.NewWeighted(1),
		pools:     make(map[string]*pool),
	}
	g.Resize(sizes)
	return g
}

// -----------------------------------------------------------------------------
// Exclusive lock
// -----------------------------------------------------------------------------

// AcquireExclusive blocks until the exclusive lock is free or ctx is done.
// Waiters are served in arrival order.
func (g *Guard) AcquireExclusive(ctx context.Context) error {
	if g.exclusive.TryAcquire(1) {
		g.held.Store(true)
		return nil
	}

	g.waiting.Add(1)
	defer g.waiting.Add(-1)

	logging.GuardDebug("waiting for exclusive lock (waiters=%d)", g.waiting.Load())
	if err := g.exclusive.Acquire(ctx, 1); err != nil {
		return err
	}
	g.held.Store(true)
	return nil
}

// AcquireExclusiveTimeout is AcquireExclusive bounded by d.
func (g *Guard) AcquireExclusiveTimeout(ctx context.Context, d time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := g.AcquireExclusive(tctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w after %v", ErrLockTimeout, d)
	}
	return err
}

// ReleaseExclusive releases the exclusive lock. Releasing a free lock is
// logged and ignored.
func (g *Guard) ReleaseExclusive() {
	if !g.held.CompareAndSwap(true, false) {
		logging.GuardWarn("release of exclusive lock that is not held")
		return
	}
	g.exclusive.Release(1)
}

// ExclusiveHeld reports whether the exclusive lock is currently held.
func (g *Guard) ExclusiveHeld() bool {
	return g.held.Load()
}

// -----------------------------------------------------------------------------
// Permit pools
// -----------------------------------------------------------------------------

// Permit is one slot of a kind's pool. Release is safe to call repeatedly;
// only the first call returns the slot.
type Permit struct {
	guard *Guard
	kind  string
	once  sync.Once
}

// Kind returns the pool the permit belongs to.
func (p *Permit) Kind() string { return p.kind }

// Release returns the permit to its pool.
func (p *Permit) Release() {
	p.once.Do(func() {
		p.guard.release(p.kind)
	})
}

// TryAcquirePermit takes a slot from kind's pool without blocking. A full
// pool yields ErrPermitExhausted and leaves the guard unchanged.
func (g *Guard) TryAcquirePermit(kind string) (*Permit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.pools[kind]
	if !ok {
		p = &pool{}
		g.pools[kind] = p
	}
	if p.size > 0 && p.held >= p.size {
		return nil, fmt.Errorf("%w: %s (%d/%d)", ErrPermitExhausted, kind, p.held, p.size)
	}
	p.held++
	return &Permit{guard: g, kind: kind}, nil
}

func (g *Guard) release(kind string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.pools[kind]
	if !ok || p.held == 0 {
		logging.GuardWarn("permit release for %s with nothing held", kind)
		return
	}
	p.held--
}

// Resize sets pool sizes in place. Live permits stay counted; a shrunk pool
// refuses new permits until enough are released. Kinds missing from sizes
// keep their pool.
func (g *Guard) Resize(sizes map[string]int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for kind, size := range sizes {
		if size < 0 {
			size = 0
		}
		p, ok := g.pools[kind]
		if !ok {
			g.pools[kind] = &pool{size: size}
			continue
		}
		if p.size != size {
			logging.GuardDebug("resized %s pool %d -> %d (held=%d)", kind, p.size, size, p.held)
		}
		p.size = size
	}
}

// Held returns the number of live permits of kind.
func (g *Guard) Held(kind string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.pools[kind]; ok {
		return p.held
	}
	return 0
}

// Stats returns a snapshot of the guard.
func (g *Guard) Stats() GuardStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	stats := GuardStats{
		ExclusiveHeld:    g.held.Load(),
		ExclusiveWaiting: int(g.waiting.Load()),
		Pools:            make(map[string]PoolStats, len(g.pools)),
	}
	for kind, p := range g.pools {
		stats.Pools[kind] = PoolStats{Size: p.size, Held: p.held}
	}
	return stats
}

// Kinds returns the pool names in sorted order.
func (s GuardStats) Kinds() []string {
	kinds := make([]string, 0, len(s.Pools))
	for k := range s.Pools {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
