package system

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"automata/internal/activities"
	"automata/internal/config"
	"automata/internal/core"
	"automata/internal/pack"
	"automata/internal/platform"
	"automata/internal/store"
	"automata/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const manifest = `{
  "name": "default",
  "version": "1.0.0",
  "description": "test pack",
  "tags": [],
  "prompts": ["I will behave"],
  "buttons": ["ok"],
  "webs": []
}`

// setup writes a default pack and a config file under a fresh home.
func setup(t *testing.T) (string, *config.Config) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("AUTOMATA_HOME", home)

	packDir := filepath.Join(home, "packs", pack.DefaultName)
	require.NoError(t, os.MkdirAll(filepath.Join(packDir, pack.Images), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(packDir, pack.ManifestFile), []byte(manifest), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(packDir, pack.Images, "a.png"), []byte("x"), 0644))

	cfg := config.DefaultConfig()
	cfg.Scheduler.Seed = 7
	cfg.Scheduler.LaunchJitter = "0s"
	cfg.Scheduler.ShutdownGrace = "2s"

	path := filepath.Join(home, "config.yaml")
	require.NoError(t, cfg.Save(path))
	return path, cfg
}

func boot(t *testing.T, path string) *App {
	t.Helper()
	app, err := Boot(Options{
		ConfigPath: path,
		Display:    activities.LogDisplay{},
		Wallpaper:  platform.NewMemoryWallpaper(""),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Shutdown(ctx)
	})
	return app
}

func TestBoot(t *testing.T) {
	path, _ := setup(t)
	app := boot(t, path)

	assert.Equal(t, path, app.ConfigPath())
	assert.Equal(t, pack.DefaultName, app.Pack().Manifest.Name)
	assert.Len(t, app.Pack().List(pack.Images), 1)
	assert.NotNil(t, app.Journal())

	reg := app.Scheduler().Registry()
	assert.Contains(t, reg.Names(), "image")
	assert.Contains(t, reg.Names(), core.PanicKind)
	assert.NotContains(t, reg.Launchable(), "gif", "gif has no content in this pack")
	assert.Equal(t, "uniform", app.Scheduler().Strategy().Name())
}

func TestBoot_InvalidConfig(t *testing.T) {
	path, cfg := setup(t)
	cfg.Hibernate.Strategy = "sometimes"
	require.NoError(t, cfg.Save(path))

	_, err := Boot(Options{ConfigPath: path})
	assert.Error(t, err)
}

func TestBoot_JournalDisabled(t *testing.T) {
	path, cfg := setup(t)
	cfg.Journal.Enabled = false
	require.NoError(t, cfg.Save(path))

	app := boot(t, path)
	assert.Nil(t, app.Journal())
}

func TestLaunchIsJournaled(t *testing.T) {
	path, cfg := setup(t)
	app := boot(t, path)

	inst, err := app.Scheduler().Launch(context.Background(), "image", types.SourceManual)
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.True(t, inst.Stop(types.StopDismissed))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))

	j, err := store.Open(cfg.Journal.Path)
	require.NoError(t, err)
	defer j.Close()

	counts, err := j.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts["image"]["launched"])
	assert.Equal(t, 1, counts["image"]["stopped"])

	recent, err := j.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "dismissed", recent[0].Reason)
	assert.Equal(t, "manual", recent[0].Source)
}

func TestReloadConfig(t *testing.T) {
	path, cfg := setup(t)
	app := boot(t, path)

	cfg.Hibernate.Strategy = "burst"
	require.NoError(t, cfg.Save(path))
	require.NoError(t, app.ReloadConfig())
	assert.Equal(t, "burst", app.Scheduler().Strategy().Name())
	assert.Equal(t, "burst", app.Config().Hibernate.Strategy)

	cfg.Hibernate.Timer = config.RangeConfig{Minimum: 9, Maximum: 1}
	require.NoError(t, cfg.Save(path))
	assert.Error(t, app.ReloadConfig())
	assert.Equal(t, "burst", app.Scheduler().Strategy().Name(), "failed reload keeps the running config")
}

func TestReload_PicksUpNewContent(t *testing.T) {
	path, _ := setup(t)
	app := boot(t, path)
	assert.NotContains(t, app.Scheduler().Registry().Launchable(), "gif")

	gifs := filepath.Join(filepath.Dir(path), "packs", pack.DefaultName, pack.Gifs)
	require.NoError(t, os.MkdirAll(gifs, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(gifs, "a.gif"), []byte("x"), 0644))

	app.Reload()
	assert.Len(t, app.Pack().List(pack.Gifs), 1)
	assert.Contains(t, app.Scheduler().Registry().Launchable(), "gif")
}

func TestRequestShutdown(t *testing.T) {
	path, _ := setup(t)
	app := boot(t, path)

	select {
	case <-app.Done():
		t.Fatal("done before shutdown was requested")
	default:
	}

	app.Quit()
	app.RequestShutdown()
	select {
	case <-app.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed")
	}
}

func TestRuntimeLimit(t *testing.T) {
	path, cfg := setup(t)
	app := boot(t, path)
	assert.Zero(t, app.RuntimeLimit())

	cfg.Runtime = config.RangeConfig{Minimum: 60, Maximum: 60}
	require.NoError(t, cfg.Save(path))
	require.NoError(t, app.ReloadConfig())
	assert.Equal(t, time.Minute, app.RuntimeLimit())
}

func TestConfigWatcher(t *testing.T) {
	path, cfg := setup(t)

	var calls atomic.Int32
	w, err := NewConfigWatcher(path, 50*time.Millisecond, func() { calls.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// A burst of saves settles into one reload.
	for i := 0; i < 3; i++ {
		cfg.Debug = i%2 == 0
		require.NoError(t, cfg.Save(path))
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.GreaterOrEqual(t, w.Stats().Events, 1)

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x"), 0644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoggingOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Debug = true
	opts := LoggingOptions(cfg)
	assert.True(t, opts.DebugMode)
	assert.Equal(t, cfg.Logging.Level, opts.Level)
}
