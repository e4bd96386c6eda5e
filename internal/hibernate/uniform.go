package hibernate

import (
	"context"
	"time"

	"automata/internal/logging"
	"automata/internal/types"
)

// Uniform rests for a fresh sample of the timer range before every tick.
// It keeps no state between calls.
type Uniform struct {
	timer types.Range
	rnd   *types.Rand
}

// NewUniform returns a Uniform strategy. The activity range is unused.
func NewUniform(timer, _ types.Range, rnd *types.Rand) Strategy {
	return &Uniform{timer: timer, rnd: rnd}
}

func (u *Uniform) Name() string { return "uniform" }

// Next samples the timer range.
func (u *Uniform) Next() time.Duration {
	return u.timer.Seconds(u.rnd)
}

// WaitForNextTick sleeps for one sample.
func (u *Uniform) WaitForNextTick(ctx context.Context) error {
	d := u.Next()
	logging.HibernateDebug("uniform: resting %v", d)
	return sleep(ctx, d)
}
