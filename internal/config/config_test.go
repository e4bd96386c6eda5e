package config

import (
	"os"
	"path/filepath"
	"testing"

	"automata/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "default", cfg.Pack)
	assert.Equal(t, "uniform", cfg.Hibernate.Strategy)
	assert.Equal(t, 10, cfg.Activities.Image.Concurrency)
	assert.Equal(t, 1, cfg.Activities.Wallpaper.Concurrency)
	assert.True(t, cfg.Activities.Configuration.Exclusive)
	assert.True(t, cfg.Runtime.Minimum+cfg.Runtime.Maximum == 0, "runtime timer disabled by default")
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("AUTOMATA_PACK", "")
	t.Setenv("AUTOMATA_HIBERNATE", "")

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Pack = "night"
	cfg.Hibernate.Strategy = "burst"
	cfg.Activities.Image.Active.Probability = 0.25
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "night", loaded.Pack)
	assert.Equal(t, "burst", loaded.Hibernate.Strategy)
	assert.Equal(t, 0.25, loaded.Activities.Image.Active.Probability)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Activities, cfg.Activities)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
activities:
  image:
    active:
      enabled: true
      probability: 1
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Activities.Image.Active.Probability)
	// Untouched fields of the same kind keep their defaults.
	assert.Equal(t, 10, cfg.Activities.Image.Concurrency)
	assert.Equal(t, RangeConfig{Minimum: 5, Maximum: 30}, cfg.Activities.Image.Timeout)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("activities: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("inverted range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Activities.Gif.Timeout = RangeConfig{Minimum: 10, Maximum: 1}
		err := cfg.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrConfiguration)
		assert.Contains(t, err.Error(), "activities.gif")
	})

	t.Run("probability above one", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Activities.Web.Private.Probability = 1.5
		assert.ErrorIs(t, cfg.Validate(), types.ErrConfiguration)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Hibernate.Strategy = "sleepy"
		assert.ErrorIs(t, cfg.Validate(), types.ErrConfiguration)
	})

	t.Run("negative concurrency", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Activities.Prompt.Concurrency = -1
		assert.ErrorIs(t, cfg.Validate(), types.ErrConfiguration)
	})

	t.Run("negative ranges", func(t *testing.T) {
		cases := map[string]func(*Config){
			"hibernate: timer":              func(c *Config) { c.Hibernate.Timer = RangeConfig{Minimum: -10, Maximum: -1} },
			"hibernate: activity":           func(c *Config) { c.Hibernate.Activity = RangeConfig{Minimum: -2, Maximum: 3} },
			"runtime":                       func(c *Config) { c.Runtime = RangeConfig{Minimum: -60, Maximum: 60} },
			"activities.image: timeout":     func(c *Config) { c.Activities.Image.Timeout = RangeConfig{Minimum: -5, Maximum: 5} },
			"activities.gif: mitosis_count": func(c *Config) { c.Activities.Gif.MitosisCount = RangeConfig{Minimum: -1, Maximum: 2} },
			"activities.prompt: mistakes":   func(c *Config) { c.Activities.Prompt.Mistakes = RangeConfig{Minimum: -3, Maximum: 0} },
			"activities.web: timeout":       func(c *Config) { c.Activities.Web.Timeout = RangeConfig{Minimum: -1, Maximum: -1} },
		}
		for field, mutate := range cases {
			t.Run(field, func(t *testing.T) {
				cfg := DefaultConfig()
				mutate(cfg)
				err := cfg.Validate()
				require.ErrorIs(t, err, types.ErrConfiguration)
				assert.Contains(t, err.Error(), field)
			})
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Scheduler.ShutdownGrace = "soon"
		assert.Error(t, cfg.Validate())
	})
}

func TestActivityConfig_Accessors(t *testing.T) {
	a := DefaultActivities().Image

	assert.Equal(t, types.MustGate(true, 0.05), a.ActiveGate())
	assert.Equal(t, types.MustRange(5, 30), a.TimeoutRange())
	assert.Equal(t, types.ReplicationPolicy{
		Gate:  types.MustGate(true, 0.5),
		Count: types.MustRange(2, 5),
	}, a.Replication())
	assert.Equal(t, types.MustGate(true, 0.5), a.DenialGate())
}

func TestActivitiesConfig_GetAndPoolSizes(t *testing.T) {
	acts := DefaultActivities()
	for _, name := range acts.Names() {
		_, ok := acts.Get(name)
		assert.True(t, ok, name)
	}
	_, ok := acts.Get("panic")
	assert.False(t, ok)

	sizes := acts.PoolSizes()
	assert.Equal(t, 3, sizes["prompt"])
	assert.Len(t, sizes, len(acts.Names()))
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "1s", cfg.GetLaunchJitter().String())

	cfg.Scheduler.LaunchJitter = "garbage"
	assert.Equal(t, "1s", cfg.GetLaunchJitter().String())

	cfg.Scheduler.ShutdownGrace = "250ms"
	assert.Equal(t, "250ms", cfg.GetShutdownGrace().String())
}

func TestPackDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PacksDir = filepath.Join("var", "packs")
	cfg.Pack = "night"
	assert.Equal(t, filepath.Join("var", "packs", "night"), cfg.PackDir())

	abs := filepath.Join(t.TempDir(), "elsewhere")
	cfg.Pack = abs
	assert.Equal(t, abs, cfg.PackDir())
}
