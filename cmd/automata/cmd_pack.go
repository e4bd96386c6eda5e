package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"automata/internal/config"
	"automata/internal/pack"
	"automata/internal/system"
	"automata/internal/ui"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Inspect content packs",
}

var packInfoCmd = &cobra.Command{
	Use:   "info [name|dir]",
	Short: "Describe a pack (default: the configured one)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPackInfo,
}

var packValidateCmd = &cobra.Command{
	Use:   "validate [name|dir]",
	Short: "Report every problem in a pack",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPackValidate,
}

func init() {
	packCmd.AddCommand(packInfoCmd)
	packCmd.AddCommand(packValidateCmd)
}

// packDir resolves a pack argument: an existing path, a name under the
// configured packs directory, or the configured pack.
func packDir(args []string) (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	if len(args) == 0 {
		return cfg.PackDir(), nil
	}
	if filepath.IsAbs(args[0]) || strings.ContainsRune(args[0], filepath.Separator) {
		return args[0], nil
	}
	return filepath.Join(cfg.PacksDir, args[0]), nil
}

func runPackInfo(cmd *cobra.Command, args []string) error {
	dir, err := packDir(args)
	if err != nil {
		return err
	}
	p, err := pack.Load(dir, system.Version)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	m := p.Manifest
	fmt.Fprintf(out, "%s %s  (%s)\n", m.Name, m.Version, p.Dir)
	if m.Requires != "" {
		fmt.Fprintf(out, "requires automata %s\n", m.Requires)
	}
	if len(m.Tags) > 0 {
		fmt.Fprintf(out, "tags: %s\n", strings.Join(m.Tags, ", "))
	}

	if strings.TrimSpace(m.Description) != "" {
		fmt.Fprintln(out, renderMarkdown(m.Description))
	}

	counts := p.Counts()
	tbl := ui.NewTable("Content", "category", "items")
	for _, c := range pack.Categories {
		tbl.AddRow(c, fmt.Sprint(counts[c]))
	}
	fmt.Fprint(out, tbl.View(ui.DefaultStyles()))
	return nil
}

// renderMarkdown renders a pack description, falling back to the raw text.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return md
	}
	rendered, err := r.Render(md)
	if err != nil {
		return md
	}
	return rendered
}

func runPackValidate(cmd *cobra.Command, args []string) error {
	dir, err := packDir(args)
	if err != nil {
		return err
	}
	problems := pack.Validate(dir, system.Version)
	if len(problems) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", dir)
		return nil
	}
	for _, p := range problems {
		fmt.Fprintf(cmd.OutOrStdout(), "  - %v\n", p)
	}
	return fmt.Errorf("%s: %d problem(s)", dir, len(problems))
}
