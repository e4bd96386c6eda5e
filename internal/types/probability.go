package types

import (
	"fmt"
	"time"
)

// =============================================================================
// RANGE
// =============================================================================

// Range is an inclusive integer interval sampled uniformly.
type Range struct {
	Minimum int
	Maximum int
}

// NewRange validates 0 <= minimum <= maximum. Ranges count seconds or
// occurrences, so negative bounds are rejected.
func NewRange(minimum, maximum int) (Range, error) {
	if minimum < 0 {
		return Range{}, fmt.Errorf("%w: range minimum %d is negative", ErrConfiguration, minimum)
	}
	if minimum > maximum {
		return Range{}, fmt.Errorf("%w: range minimum %d exceeds maximum %d", ErrConfiguration, minimum, maximum)
	}
	return Range{Minimum: minimum, Maximum: maximum}, nil
}

// MustRange is NewRange for literals known to be valid.
func MustRange(minimum, maximum int) Range {
	r, err := NewRange(minimum, maximum)
	if err != nil {
		panic(err)
	}
	return r
}

// Sample returns a uniformly random integer in [Minimum, Maximum].
func (r Range) Sample(rnd *Rand) int {
	return rnd.Between(r.Minimum, r.Maximum)
}

// Seconds samples the range and interprets the value as seconds.
func (r Range) Seconds(rnd *Rand) time.Duration {
	return time.Duration(r.Sample(rnd)) * time.Second
}

// IsZero reports whether the range is unset. An unset range disables the
// feature it configures, such as a timeout or the auto-stop timer.
func (r Range) IsZero() bool {
	return r.Minimum == 0 && r.Maximum == 0
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.Minimum, r.Maximum)
}

// =============================================================================
// PROBABILITY GATE
// =============================================================================

// ProbabilityGate is a boolean switch that fires with a fixed probability.
type ProbabilityGate struct {
	Enabled     bool
	Probability float64
}

// NewProbabilityGate validates probability is within [0,1].
func NewProbabilityGate(enabled bool, probability float64) (ProbabilityGate, error) {
	if probability < 0 || probability > 1 {
		return ProbabilityGate{}, fmt.Errorf("%w: probability %v outside [0,1]", ErrConfiguration, probability)
	}
	return ProbabilityGate{Enabled: enabled, Probability: probability}, nil
}

// MustGate is NewProbabilityGate for literals known to be valid.
func MustGate(enabled bool, probability float64) ProbabilityGate {
	g, err := NewProbabilityGate(enabled, probability)
	if err != nil {
		panic(err)
	}
	return g
}

// Fires rolls the gate. A disabled gate never fires; p=0 never fires and
// p=1 always fires.
func (g ProbabilityGate) Fires(rnd *Rand) bool {
	if !g.Enabled || g.Probability <= 0 {
		return false
	}
	return rnd.Float64() <= g.Probability
}

// Weight is the gate's share in a weighted selection. Disabled gates weigh
// nothing.
func (g ProbabilityGate) Weight() float64 {
	if !g.Enabled {
		return 0
	}
	return g.Probability
}

// =============================================================================
// REPLICATION POLICY
// =============================================================================

// ReplicationPolicy decides whether an instance spawns copies of itself and
// how many.
type ReplicationPolicy struct {
	Gate  ProbabilityGate
	Count Range
}

// Decide returns 0 when the gate does not fire, else a sample of Count.
func (p ReplicationPolicy) Decide(rnd *Rand) int {
	if !p.Gate.Fires(rnd) {
		return 0
	}
	return p.Count.Sample(rnd)
}
