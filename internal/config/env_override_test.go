package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("AUTOMATA_PACK selects the pack", func(t *testing.T) {
		t.Setenv("AUTOMATA_PACK", "night")

		cfg := &Config{Pack: "default"}
		cfg.applyEnvOverrides()

		assert.Equal(t, "night", cfg.Pack)
	})

	t.Run("AUTOMATA_DEBUG parses booleans", func(t *testing.T) {
		t.Setenv("AUTOMATA_DEBUG", "true")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Debug)
	})

	t.Run("AUTOMATA_DEBUG ignores garbage", func(t *testing.T) {
		t.Setenv("AUTOMATA_DEBUG", "maybe")

		cfg := &Config{Debug: true}
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Debug)
	})

	t.Run("AUTOMATA_HIBERNATE is lowercased", func(t *testing.T) {
		t.Setenv("AUTOMATA_HIBERNATE", "BURST")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "burst", cfg.Hibernate.Strategy)
	})

	t.Run("AUTOMATA_JOURNAL overrides the path", func(t *testing.T) {
		t.Setenv("AUTOMATA_JOURNAL", "/tmp/j.db")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/j.db", cfg.Journal.Path)
	})

	t.Run("AUTOMATA_HOME moves every default path", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("AUTOMATA_HOME", home)

		cfg := DefaultConfig()

		assert.Equal(t, filepath.Join(home, "packs"), cfg.PacksDir)
		assert.Equal(t, filepath.Join(home, "journal.db"), cfg.Journal.Path)
		assert.Equal(t, filepath.Join(home, "config.yaml"), DefaultPath())
	})
}
