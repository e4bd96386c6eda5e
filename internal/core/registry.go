package core

import (
	"fmt"
	"sync"

	"automata/internal/types"
)

// PanicKind is the privileged kind name. It is never launchable at random.
const PanicKind = "panic"

// ActivityKind is the immutable descriptor of a launchable activity.
type ActivityKind struct {
	Name    string
	Factory Factory

	// Exclusive kinds hold the exclusive lock from before construction
	// until their instance stops.
	Exclusive bool

	// Gate is the per-tick fire probability; its probability doubles as the
	// weight for random launches.
	Gate types.ProbabilityGate

	// Content is the content category the kind draws from. Empty means the
	// kind needs no content.
	Content string

	// Concurrency is the permit pool size. Zero leaves the kind unbounded.
	Concurrency int

	Timeout     types.Range
	Replication types.ReplicationPolicy
	Denial      types.ProbabilityGate
}

// Weight is the kind's share in a random launch.
func (k ActivityKind) Weight() float64 {
	return k.Gate.Weight()
}

// Registry maps kind names to descriptors in registration order.
type Registry struct {
	mu      sync.RWMutex
	kinds   map[string]ActivityKind
	order   []string
	content Content
}

// NewRegistry creates an empty registry drawing availability from content.
func NewRegistry(content Content) *Registry {
	return &Registry{
		kinds:   make(map[string]ActivityKind),
		content: content,
	}
}

// Register adds a kind.
func (r *Registry) Register(kind ActivityKind) error {
	if kind.Name == "" || kind.Factory == nil {
		return fmt.Errorf("%w: kind needs a name and a factory", types.ErrConfiguration)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[kind.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, kind.Name)
	}
	r.kinds[kind.Name] = kind
	r.order = append(r.order, kind.Name)
	return nil
}

// Resolve returns the kind registered under name.
func (r *Registry) Resolve(name string) (ActivityKind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kind, ok := r.kinds[name]
	if !ok {
		return ActivityKind{}, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return kind, nil
}

// Names returns every registered name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Content returns the registry's content provider.
func (r *Registry) Content() Content {
	return r.content
}

// Launchable returns the non-exclusive kinds with content available, in
// registration order. The panic kind is excluded by name.
func (r *Registry) Launchable() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		kind := r.kinds[name]
		if kind.Exclusive || name == PanicKind {
			continue
		}
		if kind.Content != "" && !r.hasContent(kind.Content) {
			continue
		}
		names = append(names, name)
	}
	return names
}

func (r *Registry) hasContent(category string) bool {
	if r.content == nil {
		return false
	}
	return len(r.content.List(category)) > 0
}

// PoolSizes maps each kind to its permit pool size.
func (r *Registry) PoolSizes() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sizes := make(map[string]int, len(r.kinds))
	for name, kind := range r.kinds {
		if !kind.Exclusive {
			sizes[name] = kind.Concurrency
		}
	}
	return sizes
}
