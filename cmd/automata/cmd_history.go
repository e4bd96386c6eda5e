package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"automata/internal/config"
	"automata/internal/store"
	"automata/internal/ui"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyPrune time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent launches from the journal",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "Delete entries older than this before showing")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Journal.Path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(cmd.OutOrStdout(), "no journal at %s\n", cfg.Journal.Path)
		return nil
	}

	j, err := store.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer j.Close()

	ctx, cancel := context.WithTimeout(commandContext(cmd), 30*time.Second)
	defer cancel()

	if historyPrune > 0 {
		n, err := j.Prune(ctx, time.Now().Add(-historyPrune))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d entries\n", n)
	}

	recent, err := j.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	counts, err := j.Counts(ctx)
	if err != nil {
		return err
	}

	styles := ui.DefaultStyles()
	out := cmd.OutOrStdout()
	fmt.Fprint(out, renderRecent(recent).View(styles))
	fmt.Fprintln(out)
	fmt.Fprint(out, renderCounts(counts).View(styles))
	return nil
}

func renderRecent(entries []store.Entry) *ui.Table {
	tbl := ui.NewTable("Recent", "time", "event", "kind", "instance", "source", "reason")
	for _, e := range entries {
		reason := e.Reason
		if reason == "" {
			reason = e.Detail
		}
		id := e.InstanceID
		if len(id) > 8 {
			id = id[:8]
		}
		tbl.AddRow(e.At.Format("2006-01-02 15:04:05"), e.Type, e.Kind, id, e.Source, reason)
	}
	return tbl
}

func renderCounts(counts map[string]map[string]int) *ui.Table {
	tbl := ui.NewTable("Totals", "kind", "launched", "skipped", "failed", "stopped")
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		c := counts[k]
		tbl.AddRow(k,
			fmt.Sprint(c["launched"]),
			fmt.Sprint(c["skipped"]),
			fmt.Sprint(c["failed"]),
			fmt.Sprint(c["stopped"]))
	}
	return tbl
}
