package config

import (
	"fmt"

	"automata/internal/types"
)

// RangeConfig is the YAML form of types.Range.
type RangeConfig struct {
	Minimum int `yaml:"minimum"`
	Maximum int `yaml:"maximum"`
}

// Range validates and converts to types.Range.
func (r RangeConfig) Range() (types.Range, error) {
	return types.NewRange(r.Minimum, r.Maximum)
}

// ProbabilityConfig is the YAML form of types.ProbabilityGate.
type ProbabilityConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Probability float64 `yaml:"probability"`
}

// Gate validates and converts to types.ProbabilityGate.
func (p ProbabilityConfig) Gate() (types.ProbabilityGate, error) {
	return types.NewProbabilityGate(p.Enabled, p.Probability)
}

func validateAll(checks map[string]func() error) error {
	for _, name := range sortedKeys(checks) {
		if err := checks[name](); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func rangeCheck(r RangeConfig) func() error {
	return func() error {
		_, err := r.Range()
		return err
	}
}

func gateCheck(p ProbabilityConfig) func() error {
	return func() error {
		_, err := p.Gate()
		return err
	}
}
