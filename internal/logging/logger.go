// Package logging provides config-driven categorized logging for automata.
// Every category is a named child of one zap logger; categories can be
// switched off individually, in which case their logger is a no-op.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Boot/initialization
	CategoryScheduler Category = "scheduler" // Tick loop, launches, reload, shutdown
	CategoryActivity  Category = "activity"  // Instance lifecycle
	CategoryGuard     Category = "guard"     // Exclusive lock and permit pools
	CategoryHibernate Category = "hibernate" // Pacing strategies
	CategoryPack      Category = "pack"      // Content pack loading
	CategoryStore     Category = "store"     // Launch journal
	CategoryConfig    Category = "config"    // Config load and hot reload
	CategoryPlatform  Category = "platform"  // OS collaborators (wallpaper, browser)
	CategoryUI        Category = "ui"        // Terminal monitor
)

// Options mirrors config.LoggingConfig to avoid circular imports.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // optional extra output path
	DebugMode  bool            // forces debug level
	Categories map[string]bool // per-category toggles; missing = enabled
}

// Logger is a category logger with printf-style helpers.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu       sync.RWMutex
	root     = zap.NewNop()
	options  Options
	loggers  = make(map[Category]*Logger)
	nopSugar = zap.NewNop().Sugar()
)

// Initialize builds the root logger from opts. Safe to call again on reload.
func Initialize(opts Options) error {
	l, err := Build(opts)
	if err != nil {
		return err
	}

	mu.Lock()
	old := root
	root = l
	options = opts
	loggers = make(map[Category]*Logger)
	mu.Unlock()

	_ = old.Sync()
	Boot("logging initialized (level=%s format=%s debug=%v)", levelOf(opts), opts.Format, opts.DebugMode)
	return nil
}

// Build constructs a zap logger for opts without installing it.
func Build(opts Options) (*zap.Logger, error) {
	var zc zap.Config
	if strings.EqualFold(opts.Format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.Development = false
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(levelOf(opts))
	zc.DisableStacktrace = true
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if opts.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, opts.File)
	}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l, nil
}

func levelOf(opts Options) zapcore.Level {
	if opts.DebugMode {
		return zapcore.DebugLevel
	}
	lvl, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// SetLogger installs l as the root logger with every category enabled.
// Intended for tests and for the CLI, which builds its own logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	root = l
	options = Options{}
	loggers = make(map[Category]*Logger)
}

// Root returns the root zap logger.
func Root() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabled(category)
}

func categoryEnabled(category Category) bool {
	if options.Categories == nil {
		return true
	}
	enabled, exists := options.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	l := &Logger{category: category, sugar: nopSugar}
	if categoryEnabled(category) {
		l.sugar = root.Named(string(category)).Sugar()
	}
	loggers[category] = l
	return l
}

// Sync flushes buffered entries. Call at shutdown.
func Sync() {
	_ = Root().Sync()
}

// With returns a child logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sugar exposes the underlying zap logger.
func (l *Logger) Sugar() *zap.SugaredLogger { return l.sugar }

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

func Scheduler(format string, args ...interface{}) { Get(CategoryScheduler).Info(format, args...) }
func SchedulerDebug(format string, args ...interface{}) {
	Get(CategoryScheduler).Debug(format, args...)
}
func SchedulerWarn(format string, args ...interface{}) {
	Get(CategoryScheduler).Warn(format, args...)
}
func SchedulerError(format string, args ...interface{}) {
	Get(CategoryScheduler).Error(format, args...)
}

func Activity(format string, args ...interface{})      { Get(CategoryActivity).Info(format, args...) }
func ActivityDebug(format string, args ...interface{}) { Get(CategoryActivity).Debug(format, args...) }
func ActivityWarn(format string, args ...interface{})  { Get(CategoryActivity).Warn(format, args...) }
func ActivityError(format string, args ...interface{}) { Get(CategoryActivity).Error(format, args...) }

func GuardDebug(format string, args ...interface{}) { Get(CategoryGuard).Debug(format, args...) }
func GuardWarn(format string, args ...interface{})  { Get(CategoryGuard).Warn(format, args...) }

func Hibernate(format string, args ...interface{})      { Get(CategoryHibernate).Info(format, args...) }
func HibernateDebug(format string, args ...interface{}) { Get(CategoryHibernate).Debug(format, args...) }

func Pack(format string, args ...interface{})     { Get(CategoryPack).Info(format, args...) }
func PackWarn(format string, args ...interface{}) { Get(CategoryPack).Warn(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreWarn(format string, args ...interface{})  { Get(CategoryStore).Warn(format, args...) }

func Config(format string, args ...interface{})      { Get(CategoryConfig).Info(format, args...) }
func ConfigWarn(format string, args ...interface{})  { Get(CategoryConfig).Warn(format, args...) }
func ConfigError(format string, args ...interface{}) { Get(CategoryConfig).Error(format, args...) }

func Platform(format string, args ...interface{})     { Get(CategoryPlatform).Info(format, args...) }
func PlatformWarn(format string, args ...interface{}) { Get(CategoryPlatform).Warn(format, args...) }

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
