package config

import (
	"fmt"
	"maps"
	"slices"

	"automata/internal/types"
)

// ActivityConfig defines per-kind configuration. Fields a kind does not use
// are left at their zero value.
type ActivityConfig struct {
	// Active is the per-tick fire gate; its probability is also the weight
	// used for on-demand random launches.
	Active ProbabilityConfig `yaml:"active"`

	// Timeout in seconds. A zero range means no timeout.
	Timeout RangeConfig `yaml:"timeout"`

	// Concurrency is the permit pool size for the kind.
	Concurrency int `yaml:"concurrency"`

	// Exclusive kinds hold the process-wide lock for their whole life.
	Exclusive bool `yaml:"exclusive,omitempty"`

	// Mitosis (replication) on dismiss.
	Mitosis      ProbabilityConfig `yaml:"mitosis"`
	MitosisCount RangeConfig       `yaml:"mitosis_count"`

	// Denial ignores a dismiss request outright.
	Denial ProbabilityConfig `yaml:"denial"`

	// Presentation hints forwarded to the display.
	Censor ProbabilityConfig `yaml:"censor"`
	Alpha  RangeConfig       `yaml:"alpha"`
	Button bool              `yaml:"button"`

	// Prompt: tolerated typing mistakes.
	Mistakes RangeConfig `yaml:"mistakes"`

	// Prompt: check every keystroke against the text instead of a submitted
	// answer. A mismatch wipes the input; an exact match completes.
	Track ProbabilityConfig `yaml:"track"`

	// Web: open in a private window.
	Private ProbabilityConfig `yaml:"private"`
}

// Validate checks every range and probability of the kind.
func (a ActivityConfig) Validate() error {
	if a.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency %d is negative", types.ErrConfiguration, a.Concurrency)
	}
	return validateAll(map[string]func() error{
		"active":        gateCheck(a.Active),
		"timeout":       rangeCheck(a.Timeout),
		"mitosis":       gateCheck(a.Mitosis),
		"mitosis_count": rangeCheck(a.MitosisCount),
		"denial":        gateCheck(a.Denial),
		"censor":        gateCheck(a.Censor),
		"alpha":         rangeCheck(a.Alpha),
		"mistakes":      rangeCheck(a.Mistakes),
		"private":       gateCheck(a.Private),
		"track":         gateCheck(a.Track),
	})
}

// ActiveGate returns the validated fire gate.
func (a ActivityConfig) ActiveGate() types.ProbabilityGate {
	g, _ := a.Active.Gate()
	return g
}

// TimeoutRange returns the validated timeout range in seconds.
func (a ActivityConfig) TimeoutRange() types.Range {
	r, _ := a.Timeout.Range()
	return r
}

// Replication returns the validated mitosis policy.
func (a ActivityConfig) Replication() types.ReplicationPolicy {
	g, _ := a.Mitosis.Gate()
	r, _ := a.MitosisCount.Range()
	return types.ReplicationPolicy{Gate: g, Count: r}
}

// DenialGate returns the validated denial gate.
func (a ActivityConfig) DenialGate() types.ProbabilityGate {
	g, _ := a.Denial.Gate()
	return g
}

// ActivitiesConfig groups the configurable activity kinds.
type ActivitiesConfig struct {
	Image         ActivityConfig `yaml:"image"`
	Gif           ActivityConfig `yaml:"gif"`
	Prompt        ActivityConfig `yaml:"prompt"`
	Wallpaper     ActivityConfig `yaml:"wallpaper"`
	Web           ActivityConfig `yaml:"web"`
	Configuration ActivityConfig `yaml:"configuration"`
}

// Names lists the configured kinds in a stable order.
func (a ActivitiesConfig) Names() []string {
	return []string{"image", "gif", "prompt", "wallpaper", "web", "configuration"}
}

// Get returns the configuration of a kind by name.
func (a ActivitiesConfig) Get(name string) (ActivityConfig, bool) {
	switch name {
	case "image":
		return a.Image, true
	case "gif":
		return a.Gif, true
	case "prompt":
		return a.Prompt, true
	case "wallpaper":
		return a.Wallpaper, true
	case "web":
		return a.Web, true
	case "configuration":
		return a.Configuration, true
	default:
		return ActivityConfig{}, false
	}
}

// PoolSizes maps each kind to its permit pool size.
func (a ActivitiesConfig) PoolSizes() map[string]int {
	sizes := make(map[string]int)
	for _, name := range a.Names() {
		cfg, _ := a.Get(name)
		sizes[name] = cfg.Concurrency
	}
	return sizes
}

// DefaultActivities returns the stock tuning for every kind.
func DefaultActivities() ActivitiesConfig {
	return ActivitiesConfig{
		Image: ActivityConfig{
			Active:       ProbabilityConfig{Enabled: true, Probability: 0.05},
			Timeout:      RangeConfig{Minimum: 5, Maximum: 30},
			Concurrency:  10,
			Mitosis:      ProbabilityConfig{Enabled: true, Probability: 0.5},
			MitosisCount: RangeConfig{Minimum: 2, Maximum: 5},
			Denial:       ProbabilityConfig{Enabled: true, Probability: 0.5},
			Censor:       ProbabilityConfig{Enabled: true, Probability: 0.5},
			Alpha:        RangeConfig{Minimum: 50, Maximum: 100},
			Button:       true,
		},
		Gif: ActivityConfig{
			Active:       ProbabilityConfig{Enabled: true, Probability: 0.05},
			Timeout:      RangeConfig{Minimum: 5, Maximum: 30},
			Concurrency:  5,
			Mitosis:      ProbabilityConfig{Enabled: true, Probability: 0.5},
			MitosisCount: RangeConfig{Minimum: 2, Maximum: 5},
			Denial:       ProbabilityConfig{Enabled: true, Probability: 0.5},
			Censor:       ProbabilityConfig{Enabled: true, Probability: 0.5},
			Alpha:        RangeConfig{Minimum: 50, Maximum: 100},
			Button:       true,
		},
		Prompt: ActivityConfig{
			Active:       ProbabilityConfig{Enabled: true, Probability: 0.05},
			Concurrency:  3,
			Mitosis:      ProbabilityConfig{Enabled: true, Probability: 0.3},
			MitosisCount: RangeConfig{Minimum: 1, Maximum: 2},
			Mistakes:     RangeConfig{Minimum: 0, Maximum: 3},
			Track:        ProbabilityConfig{Enabled: true, Probability: 0.25},
		},
		Wallpaper: ActivityConfig{
			Active:      ProbabilityConfig{Enabled: true, Probability: 0.05},
			Timeout:     RangeConfig{Minimum: 30, Maximum: 60},
			Concurrency: 1,
		},
		Web: ActivityConfig{
			Active:      ProbabilityConfig{Enabled: true, Probability: 0.02},
			Timeout:     RangeConfig{Minimum: 30, Maximum: 120},
			Concurrency: 2,
			Private:     ProbabilityConfig{Enabled: true, Probability: 0.5},
		},
		Configuration: ActivityConfig{
			Concurrency: 1,
			Exclusive:   true,
		},
	}
}

// PanicConfig configures the privileged panic activity.
type PanicConfig struct {
	Keychord     string `yaml:"keychord"`
	PasswordHash string `yaml:"password_hash"`

	// Timeout in seconds to enter the password.
	Timeout int `yaml:"timeout"`
}

// Validate checks the panic timeout.
func (p PanicConfig) Validate() error {
	if p.Timeout < 0 {
		return fmt.Errorf("%w: timeout %d is negative", types.ErrConfiguration, p.Timeout)
	}
	return nil
}

// TimeoutRange returns the panic timeout as a fixed range.
func (p PanicConfig) TimeoutRange() types.Range {
	return types.Range{Minimum: p.Timeout, Maximum: p.Timeout}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
