package config

import (
	"fmt"
	"slices"

	"automata/internal/types"
)

// ValidStrategies lists the hibernation strategy names.
var ValidStrategies = []string{"uniform", "default", "burst", "original"}

// HibernateConfig selects and tunes the pacing strategy.
type HibernateConfig struct {
	Strategy string `yaml:"strategy"`

	// Timer is the rest duration in seconds.
	Timer RangeConfig `yaml:"timer"`

	// Activity is the number of back-to-back ticks of a burst.
	Activity RangeConfig `yaml:"activity"`
}

// Validate checks the strategy name and both ranges.
func (h HibernateConfig) Validate() error {
	if !slices.Contains(ValidStrategies, h.Strategy) {
		return fmt.Errorf("%w: unknown strategy %q (valid: %v)", types.ErrConfiguration, h.Strategy, ValidStrategies)
	}
	return validateAll(map[string]func() error{
		"timer":    rangeCheck(h.Timer),
		"activity": rangeCheck(h.Activity),
	})
}

// TimerRange returns the validated rest range.
func (h HibernateConfig) TimerRange() types.Range {
	r, _ := h.Timer.Range()
	return r
}

// ActivityRange returns the validated burst-length range.
func (h HibernateConfig) ActivityRange() types.Range {
	r, _ := h.Activity.Range()
	return r
}
