package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all automata configuration.
type Config struct {
	// Debug exposes debug launches and forces debug logging.
	Debug bool `yaml:"debug"`

	// Pack selects the content pack by directory name under PacksDir.
	Pack     string `yaml:"pack"`
	PacksDir string `yaml:"packs_dir"`

	// Runtime stops the whole process after a sampled number of seconds.
	// A zero range disables the timer.
	Runtime RangeConfig `yaml:"runtime"`

	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Hibernate  HibernateConfig  `yaml:"hibernate"`
	Activities ActivitiesConfig `yaml:"activities"`
	Panic      PanicConfig      `yaml:"panic"`
	Logging    LoggingConfig    `yaml:"logging"`
	Journal    JournalConfig    `yaml:"journal"`
}

// SchedulerConfig tunes the tick loop and process teardown.
type SchedulerConfig struct {
	// LaunchJitter delays each dispatched launch by a random fraction of it.
	LaunchJitter string `yaml:"launch_jitter"`

	// ShutdownGrace bounds how long shutdown waits for instances to stop.
	ShutdownGrace string `yaml:"shutdown_grace"`

	// Seed fixes the random source; 0 seeds from the runtime.
	Seed uint64 `yaml:"seed"`
}

// JournalConfig configures the SQLite launch journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home := Home()
	return &Config{
		Debug:    false,
		Pack:     "default",
		PacksDir: filepath.Join(home, "packs"),

		Scheduler: SchedulerConfig{
			LaunchJitter:  "1s",
			ShutdownGrace: "5s",
		},

		Hibernate: HibernateConfig{
			Strategy: "uniform",
			Timer:    RangeConfig{Minimum: 30, Maximum: 60},
			Activity: RangeConfig{Minimum: 5, Maximum: 10},
		},

		Activities: DefaultActivities(),

		Panic: PanicConfig{
			Keychord: "shift+escape",
			Timeout:  30,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},

		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(home, "journal.db"),
		},
	}
}

// Home returns the automata state directory. AUTOMATA_HOME wins over the
// platform config directory.
func Home() string {
	if dir := os.Getenv("AUTOMATA_HOME"); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ".automata"
	}
	return filepath.Join(base, "automata")
}

// DefaultPath is the config file location under Home.
func DefaultPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if pack := os.Getenv("AUTOMATA_PACK"); pack != "" {
		c.Pack = pack
	}
	if v := os.Getenv("AUTOMATA_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Debug = debug
		}
	}
	if path := os.Getenv("AUTOMATA_JOURNAL"); path != "" {
		c.Journal.Path = path
	}
	if strategy := os.Getenv("AUTOMATA_HIBERNATE"); strategy != "" {
		c.Hibernate.Strategy = strings.ToLower(strategy)
	}
}

// GetLaunchJitter returns the launch jitter as a duration.
func (c *Config) GetLaunchJitter() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.LaunchJitter)
	if err != nil || d < 0 {
		return time.Second
	}
	return d
}

// GetShutdownGrace returns the shutdown grace period as a duration.
func (c *Config) GetShutdownGrace() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.ShutdownGrace)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// Validate validates the configuration. Every range and probability is
// constructed through internal/types so invalid bounds fail here, before
// anything starts.
func (c *Config) Validate() error {
	if _, err := c.Runtime.Range(); err != nil {
		return fmt.Errorf("runtime: %w", err)
	}
	if err := c.Hibernate.Validate(); err != nil {
		return fmt.Errorf("hibernate: %w", err)
	}
	for _, name := range c.Activities.Names() {
		a, _ := c.Activities.Get(name)
		if err := a.Validate(); err != nil {
			return fmt.Errorf("activities.%s: %w", name, err)
		}
	}
	if err := c.Panic.Validate(); err != nil {
		return fmt.Errorf("panic: %w", err)
	}
	if c.Scheduler.LaunchJitter != "" {
		if _, err := time.ParseDuration(c.Scheduler.LaunchJitter); err != nil {
			return fmt.Errorf("scheduler.launch_jitter: %w", err)
		}
	}
	if c.Scheduler.ShutdownGrace != "" {
		if _, err := time.ParseDuration(c.Scheduler.ShutdownGrace); err != nil {
			return fmt.Errorf("scheduler.shutdown_grace: %w", err)
		}
	}
	return nil
}

// PackDir returns the directory of the selected pack.
func (c *Config) PackDir() string {
	if filepath.IsAbs(c.Pack) {
		return c.Pack
	}
	return filepath.Join(c.PacksDir, c.Pack)
}
