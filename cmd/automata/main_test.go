package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"automata/internal/config"
	"automata/internal/pack"
	"automata/internal/platform"
	"automata/internal/store"
	"automata/internal/system"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `{
  "name": "default",
  "version": "1.0.0",
  "description": "# Default\nA test pack.",
  "tags": ["test"],
  "prompts": ["I will behave"],
  "buttons": ["ok"],
  "webs": ["https://example.com"]
}`

// newHome creates an AUTOMATA_HOME with a default pack and returns the
// config path inside it.
func newHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("AUTOMATA_HOME", home)

	dir := filepath.Join(home, "packs", pack.DefaultName)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, pack.Images), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, pack.ManifestFile), []byte(testManifest), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, pack.Images, "a.png"), []byte("x"), 0644))
	return filepath.Join(home, "config.yaml")
}

// execute runs the root command with fresh flag state.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	configPath, verbose = "", false
	configForce, hashSet = false, false
	historyLimit, historyPrune = 20, 0
	launchFor = 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigCommands(t *testing.T) {
	path := newHome(t)

	out, err := execute(t, "", "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	_, err = execute(t, "", "config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "", "config", "init", "--force", "--config", path)
	require.NoError(t, err)

	out, err = execute(t, "", "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "hibernate:")
	assert.Contains(t, out, "strategy: uniform")

	out, err = execute(t, "", "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	cfg := config.DefaultConfig()
	cfg.Hibernate.Strategy = "never"
	require.NoError(t, cfg.Save(path))
	_, err = execute(t, "", "config", "validate", "--config", path)
	assert.Error(t, err)
}

func TestHashCommand(t *testing.T) {
	path := newHome(t)

	out, err := execute(t, "", "hash", "hunter2", "--config", path)
	require.NoError(t, err)
	assert.True(t, platform.NewGuardian(strings.TrimSpace(out)).Verify("hunter2"))

	_, err = execute(t, "swordfish\n", "hash", "--set", "--config", path)
	require.NoError(t, err)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, platform.NewGuardian(cfg.Panic.PasswordHash).Verify("swordfish"))

	_, err = execute(t, "\n", "hash", "--config", path)
	assert.ErrorContains(t, err, "empty password")
}

func TestPackCommands(t *testing.T) {
	path := newHome(t)

	out, err := execute(t, "", "pack", "info", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "default 1.0.0")
	assert.Contains(t, out, "tags: test")
	assert.Contains(t, out, "images")

	out, err = execute(t, "", "pack", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, ": ok")

	_, err = execute(t, "", "pack", "validate", "missing", "--config", path)
	assert.Error(t, err)
}

func TestLaunchCommand(t *testing.T) {
	path := newHome(t)
	cfg := config.DefaultConfig()
	cfg.Scheduler.LaunchJitter = "0s"
	require.NoError(t, cfg.Save(path))

	out, err := execute(t, "", "launch", "image", "--for", "50ms", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "launched image")
	assert.Contains(t, out, "(cancelled)")

	_, err = execute(t, "", "launch", "nope", "--config", path)
	assert.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	path := newHome(t)
	cfg := config.DefaultConfig()

	out, err := execute(t, "", "history", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "no journal")

	j, err := store.Open(cfg.Journal.Path)
	require.NoError(t, err)
	require.NoError(t, j.Record(context.Background(), store.Entry{Type: "launched", Kind: "gif", Source: "tick", InstanceID: "0123456789"}))
	require.NoError(t, j.Record(context.Background(), store.Entry{Type: "stopped", Kind: "gif", Reason: "timeout"}))
	require.NoError(t, j.Close())

	out, err = execute(t, "", "history", "-n", "5", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Recent")
	assert.Contains(t, out, "01234567")
	assert.Contains(t, out, "timeout")
	assert.Contains(t, out, "Totals")
}

func TestVersionCommand(t *testing.T) {
	newHome(t)
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, system.Version+"\n", out)
}

func TestAcquireLock(t *testing.T) {
	home := t.TempDir()

	lock, err := acquireLock(home)
	require.NoError(t, err)

	_, err = acquireLock(home)
	assert.ErrorContains(t, err, "already running")

	require.NoError(t, lock.Unlock())
	again, err := acquireLock(home)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}

func TestWaitForShutdown(t *testing.T) {
	path := newHome(t)
	app, err := system.Boot(system.Options{ConfigPath: path})
	require.NoError(t, err)
	defer app.Shutdown(context.Background())

	t.Run("signal", func(t *testing.T) {
		sigCh := make(chan os.Signal, 1)
		sigCh <- syscall.SIGTERM
		done := make(chan struct{})
		go func() {
			waitForShutdown(context.Background(), app, sigCh)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("SIGTERM did not end the wait")
		}
	})

	t.Run("context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		waitForShutdown(ctx, app, make(chan os.Signal))
	})

	t.Run("app request", func(t *testing.T) {
		app.RequestShutdown()
		waitForShutdown(context.Background(), app, make(chan os.Signal))
	})
}
