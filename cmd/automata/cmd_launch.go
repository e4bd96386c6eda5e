package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"automata/internal/activities"
	"automata/internal/system"
	"automata/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var launchFor time.Duration

var launchCmd = &cobra.Command{
	Use:   "launch <kind>",
	Short: "Launch one activity and wait for it to stop",
	Long: `Boots headless, launches one instance of kind and waits until it stops
(timeout, completion) or until interrupted. "random" picks a weighted random
launchable kind. Useful to check a pack or a kind's settings.

Kinds: ` + fmt.Sprint(activities.Names()),
	Args: cobra.ExactArgs(1),
	RunE: runLaunch,
}

func init() {
	launchCmd.Flags().DurationVar(&launchFor, "for", 0, "Stop the instance after this long (0 waits for its own timeout)")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	kind := args[0]
	if kind == "random" {
		kind = ""
	}

	app, err := system.Boot(system.Options{ConfigPath: configPath})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.Config().GetShutdownGrace())
		defer shutdownCancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown finished with errors", zap.Error(err))
		}
	}()

	inst, err := app.Scheduler().Launch(ctx, kind, types.SourceManual)
	if err != nil {
		return err
	}
	if inst == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: pool full, nothing launched\n", args[0])
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "launched %s %s\n", inst.Kind().Name, inst.ID())

	var limit <-chan time.Time
	if launchFor > 0 {
		t := time.NewTimer(launchFor)
		defer t.Stop()
		limit = t.C
	}

	select {
	case <-inst.Done():
	case <-app.Done():
	case <-limit:
		inst.Stop(types.StopCancelled)
	case <-ctx.Done():
		inst.Stop(types.StopCancelled)
	}
	<-inst.Done()

	fmt.Fprintf(cmd.OutOrStdout(), "stopped %s %s (%s)\n", inst.Kind().Name, inst.ID(), inst.Reason())
	return nil
}
