package types

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Rand is a goroutine-safe random source shared by the scheduler, the
// hibernation strategies and every running activity.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a source seeded with seed. A zero seed picks a random one.
func NewRand(seed uint64) *Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Rand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns a value in [0,1).
func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64()
}

// IntN returns a value in [0,n). n <= 0 yields 0.
func (r *Rand) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.IntN(n)
}

// Between returns a value in [lo,hi]. The span is computed unsigned so
// bounds far apart do not overflow.
func (r *Rand) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	span := uint64(hi) - uint64(lo)
	r.mu.Lock()
	defer r.mu.Unlock()
	if span == math.MaxUint64 {
		return lo + int(r.r.Uint64())
	}
	return lo + int(r.r.Uint64N(span+1))
}

// Weighted picks an index with probability proportional to its weight.
// Returns -1 when no weight is positive.
func (r *Rand) Weighted(weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}

	target := r.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if target < w {
			return i
		}
		target -= w
	}
	return last
}
