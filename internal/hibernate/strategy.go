// Package hibernate implements the pacing strategies that decide how long
// the scheduler rests between ticks.
package hibernate

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"automata/internal/config"
	"automata/internal/types"
)

// Strategy decides the delay before the next scheduler tick.
type Strategy interface {
	// Name is the canonical strategy name.
	Name() string

	// Next advances the strategy's state and returns the delay it decided.
	Next() time.Duration

	// WaitForNextTick blocks for Next() or until ctx is done.
	WaitForNextTick(ctx context.Context) error
}

// Constructor builds a strategy from its validated ranges.
type Constructor func(timer, activity types.Range, rnd *types.Rand) Strategy

// constructors maps every accepted name, aliases included, to its builder.
var constructors = map[string]Constructor{
	"uniform":  NewUniform,
	"default":  NewUniform,
	"burst":    NewBurst,
	"original": NewBurst,
}

// Names returns the accepted strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the strategy named in cfg. An unknown name or invalid range is
// a configuration error.
func New(cfg config.HibernateConfig, rnd *types.Rand) (Strategy, error) {
	ctor, ok := constructors[cfg.Strategy]
	if !ok {
		return nil, fmt.Errorf("%w: unknown hibernation strategy %q (valid: %v)",
			types.ErrConfiguration, cfg.Strategy, Names())
	}
	timer, err := cfg.Timer.Range()
	if err != nil {
		return nil, fmt.Errorf("hibernate.timer: %w", err)
	}
	activity, err := cfg.Activity.Range()
	if err != nil {
		return nil, fmt.Errorf("hibernate.activity: %w", err)
	}
	return ctor(timer, activity, rnd), nil
}

// IsKnown reports whether name selects a strategy.
func IsKnown(name string) bool {
	return slices.Contains(Names(), name)
}

// sleep waits for d or until ctx is done. A non-positive d returns at once
// unless ctx is already cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
