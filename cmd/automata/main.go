package main

import (
	"fmt"
	"os"

	"automata/internal/config"
	"automata/internal/logging"
	"automata/internal/system"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "automata",
	Short: "automata - randomized activity scheduler (" + system.Version + ")",
	Long: `automata launches short-lived activities (images, gifs, prompts,
wallpaper changes, web pages) at random intervals, bounded by per-kind
concurrency limits and an exclusive lock for privileged activities.

Run "automata run" to start the scheduler, or "automata run --tui" for the
interactive monitor.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			configPath = config.DefaultPath()
		}

		opts := logging.Options{Level: "info", Format: "console", DebugMode: verbose}
		if cfg, err := config.Load(configPath); err == nil {
			opts = system.LoggingOptions(cfg)
			opts.DebugMode = opts.DebugMode || verbose
		}
		if err := logging.Initialize(opts); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logging.Root()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $AUTOMATA_HOME/config.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), system.Version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
