package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"automata/internal/activities"
	"automata/internal/config"
	"automata/internal/platform"
	"automata/internal/system"
	"automata/internal/ui"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	runTUI     bool
	runNoWatch bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the scheduler",
	Long: `Starts the scheduler and keeps launching activities until shutdown.

Signals:
  SIGINT, SIGTERM  shut down
  SIGHUP           reload the configuration
  SIGUSR1          launch a random activity
  SIGUSR2          launch the panic activity

The config file is watched and reloaded on change unless --no-watch is set.
Only one "automata run" may hold the lock in $AUTOMATA_HOME at a time.`,
	Args: cobra.NoArgs,
	RunE: runScheduler,
}

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show the interactive monitor")
	runCmd.Flags().BoolVar(&runNoWatch, "no-watch", false, "Do not reload the config when the file changes")
}

type action int

const (
	actionShutdown action = iota
	actionReload
	actionLaunch
	actionPanic
)

func runScheduler(cmd *cobra.Command, args []string) error {
	lock, err := acquireLock(config.Home())
	if err != nil {
		return err
	}
	defer lock.Unlock()

	var monitor *ui.Monitor
	var display activities.Display = activities.LogDisplay{}
	if runTUI {
		monitor = ui.NewMonitor(nil)
		display = monitor
	}

	app, err := system.Boot(system.Options{
		ConfigPath:    configPath,
		Display:       display,
		ManageLogging: true,
		Verbose:       verbose,
	})
	if err != nil {
		return err
	}
	if monitor != nil {
		monitor.SetController(app)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	hotkeys := platform.NewHotkeys()
	defer hotkeys.Close()
	if err := hotkeys.Register(app.Config().Panic.Keychord, app.Panic); err != nil {
		logger.Warn("panic hotkey unavailable", zap.Error(err))
	}

	if !runNoWatch {
		watcher, err := system.NewConfigWatcher(app.ConfigPath(), 0, app.Reload)
		if err != nil {
			logger.Warn("config watcher unavailable", zap.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			logger.Warn("config watcher unavailable", zap.Error(err))
			watcher.Stop()
		} else {
			defer watcher.Stop()
		}
	}

	if limit := app.RuntimeLimit(); limit > 0 {
		logger.Info("runtime limit armed", zap.Duration("after", limit))
		t := time.AfterFunc(limit, app.RequestShutdown)
		defer t.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, runSignals()...)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Scheduler().Run(gctx)
	})
	if monitor != nil {
		g.Go(func() error {
			defer app.RequestShutdown()
			return monitor.Run(gctx)
		})
	}

	logger.Info("automata running",
		zap.String("config", app.ConfigPath()),
		zap.String("pack", app.Pack().Manifest.Name),
		zap.Bool("tui", runTUI))

	waitForShutdown(gctx, app, sigCh)
	cancel()

	grace := app.Config().GetShutdownGrace()
	hardExit := time.AfterFunc(2*grace+time.Second, func() {
		logger.Error("shutdown did not finish, exiting", zap.Duration("grace", grace))
		_ = logger.Sync()
		os.Exit(2)
	})
	defer hardExit.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), grace+time.Second)
	defer shutdownCancel()
	shutdownErr := app.Shutdown(shutdownCtx)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if shutdownErr != nil {
		logger.Warn("shutdown finished with errors", zap.Error(shutdownErr))
	}
	logger.Info("automata stopped")
	return nil
}

// waitForShutdown dispatches signals until one asks for shutdown, the app
// requests it, or a supervised goroutine fails.
func waitForShutdown(ctx context.Context, app *system.App, sigCh <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-app.Done():
			return
		case sig := <-sigCh:
			switch signalAction(sig) {
			case actionReload:
				logger.Info("reload signal", zap.Stringer("signal", sig))
				app.Reload()
			case actionLaunch:
				app.Launch("")
			case actionPanic:
				app.Panic()
			default:
				logger.Info("shutdown signal", zap.Stringer("signal", sig))
				return
			}
		}
	}
}

// acquireLock takes the single-instance lock in home.
func acquireLock(home string) (*flock.Flock, error) {
	if err := os.MkdirAll(home, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", home, err)
	}
	lock := flock.New(filepath.Join(home, "automata.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("automata is already running (lock held on %s)", lock.Path())
	}
	return lock, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
