package hibernate

import (
	"context"
	"sync"
	"time"

	"automata/internal/logging"
	"automata/internal/types"
)

// Burst alternates runs of back-to-back ticks with rest periods.
//
//	Bursting(n>0) -> Bursting(n-1)                  no wait
//	Bursting(0)   -> Resting -> Bursting(resample)  timer sample
type Burst struct {
	timer    types.Range
	activity types.Range
	rnd      *types.Rand

	mu        sync.Mutex
	remaining int
}

// NewBurst returns a Burst strategy with its counter sampled from activity.
func NewBurst(timer, activity types.Range, rnd *types.Rand) Strategy {
	return &Burst{
		timer:     timer,
		activity:  activity,
		rnd:       rnd,
		remaining: activity.Sample(rnd),
	}
}

func (b *Burst) Name() string { return "burst" }

// Next consumes one burst tick, or returns a rest duration and resamples the
// counter once the burst is spent.
func (b *Burst) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.remaining > 0 {
		b.remaining--
		return 0
	}
	rest := b.timer.Seconds(b.rnd)
	b.remaining = b.activity.Sample(b.rnd)
	return rest
}

// Remaining returns the ticks left in the current burst.
func (b *Burst) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// WaitForNextTick sleeps for Next(), which is zero while bursting.
func (b *Burst) WaitForNextTick(ctx context.Context) error {
	d := b.Next()
	if d > 0 {
		logging.Hibernate("burst spent, resting %v (next burst: %d ticks)", d, b.Remaining())
	}
	return sleep(ctx, d)
}
