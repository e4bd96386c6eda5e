package pack

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrInvalidPack is returned for a missing or malformed manifest.
	ErrInvalidPack = errors.New("invalid pack")

	// ErrIncompatiblePack is returned when the manifest's requires
	// constraint rejects the running version.
	ErrIncompatiblePack = errors.New("pack is not compatible with this version")
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "automata://pack/schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Manifest is the decoded pack.json.
type Manifest struct {
	Name        string   `json:"name,omitempty"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description"`
	Requires    string   `json:"requires,omitempty"`
	Tags        []string `json:"tags"`
	Prompts     []string `json:"prompts"`
	Buttons     []string `json:"buttons"`
	Webs        []string `json:"webs"`
}

// ParseManifest validates raw against the embedded schema and decodes it.
func ParseManifest(raw []byte) (Manifest, error) {
	var m Manifest

	s, err := compiledSchema()
	if err != nil {
		return m, err
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return m, fmt.Errorf("%w: pack.json: %v", ErrInvalidPack, err)
	}
	if err := s.Validate(payload); err != nil {
		return m, fmt.Errorf("%w: pack.json: %v", ErrInvalidPack, err)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("%w: pack.json: %v", ErrInvalidPack, err)
	}
	return m, nil
}

// CheckCompatible reports whether appVersion satisfies the manifest's
// requires constraint. An empty constraint or app version always passes.
func (m Manifest) CheckCompatible(appVersion string) error {
	if m.Requires == "" || appVersion == "" {
		return nil
	}
	c, err := semver.NewConstraint(m.Requires)
	if err != nil {
		return fmt.Errorf("%w: requires %q: %v", ErrInvalidPack, m.Requires, err)
	}
	v, err := semver.NewVersion(appVersion)
	if err != nil {
		return fmt.Errorf("app version %q: %w", appVersion, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s requires %s, running %s", ErrIncompatiblePack, m.label(), m.Requires, appVersion)
	}
	return nil
}

func (m Manifest) label() string {
	if m.Name != "" {
		return m.Name
	}
	return "pack"
}
