// Package pack loads content packs: a pack.json manifest plus directories of
// images, gifs and wallpapers that activities draw random content from.
package pack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"automata/internal/logging"
	"automata/internal/types"
)

// Content categories.
const (
	Images     = "images"
	Gifs       = "gifs"
	Wallpapers = "wallpapers"
	Prompts    = "prompts"
	Buttons    = "buttons"
	Webs       = "webs"
)

// Categories lists every category in display order.
var Categories = []string{Images, Gifs, Wallpapers, Prompts, Buttons, Webs}

// DefaultName is the pack used when the configured one is missing.
const DefaultName = "default"

// ManifestFile is the manifest's file name inside a pack directory.
const ManifestFile = "pack.json"

// Pack is a loaded content pack. Lists are read once at load and never
// change afterwards.
type Pack struct {
	Dir      string
	Manifest Manifest

	content map[string][]string
}

// Load reads the pack in dir and checks it against appVersion.
func Load(dir, appVersion string) (*Pack, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve pack dir: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(abs, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}
	m, err := ParseManifest(raw)
	if err != nil {
		return nil, err
	}
	if m.Name == "" {
		m.Name = filepath.Base(abs)
	}
	if err := m.CheckCompatible(appVersion); err != nil {
		return nil, err
	}

	p := &Pack{
		Dir:      abs,
		Manifest: m,
		content: map[string][]string{
			Prompts: nonEmpty(m.Prompts),
			Buttons: nonEmpty(m.Buttons),
			Webs:    nonEmpty(m.Webs),
		},
	}
	for _, category := range []string{Images, Gifs, Wallpapers} {
		files, err := listFiles(filepath.Join(abs, category))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPack, category, err)
		}
		p.content[category] = files
	}

	logging.Pack("loaded pack %s from %s (%s)", m.Name, abs, p.Summary())
	return p, nil
}

// LoadNamed loads packsDir/name, falling back to packsDir/default and then
// to an empty built-in pack when the named one does not exist.
func LoadNamed(packsDir, name, appVersion string) (*Pack, error) {
	dir := name
	if !filepath.IsAbs(name) {
		dir = filepath.Join(packsDir, name)
	}
	if exists(dir) {
		return Load(dir, appVersion)
	}

	logging.PackWarn("pack %q not found at %s, falling back to %s", name, dir, DefaultName)
	if fallback := filepath.Join(packsDir, DefaultName); name != DefaultName && exists(fallback) {
		return Load(fallback, appVersion)
	}
	return Empty(), nil
}

// Empty returns a pack with no content. Every kind that needs content is
// unlaunchable while it is active.
func Empty() *Pack {
	return &Pack{
		Manifest: Manifest{Name: DefaultName, Description: "empty built-in pack"},
		content:  make(map[string][]string),
	}
}

// List returns the references of a category. The slice must not be
// modified.
func (p *Pack) List(category string) []string {
	return p.content[category]
}

// Choose returns a random reference from category, or false when empty.
func (p *Pack) Choose(category string, rnd *types.Rand) (string, bool) {
	items := p.content[category]
	if len(items) == 0 {
		return "", false
	}
	return items[rnd.IntN(len(items))], true
}

// Counts returns the number of references per category.
func (p *Pack) Counts() map[string]int {
	counts := make(map[string]int, len(Categories))
	for _, c := range Categories {
		counts[c] = len(p.content[c])
	}
	return counts
}

// Summary renders the counts on one line.
func (p *Pack) Summary() string {
	parts := make([]string, 0, len(Categories))
	for _, c := range Categories {
		parts = append(parts, fmt.Sprintf("%s=%d", c, len(p.content[c])))
	}
	return strings.Join(parts, " ")
}

// Validate loads dir and returns every problem found instead of stopping at
// the first one. A nil slice means the pack is usable.
func Validate(dir, appVersion string) []error {
	var problems []error

	p, err := Load(dir, appVersion)
	if err != nil {
		return append(problems, err)
	}
	if len(p.List(Images)) == 0 && len(p.List(Gifs)) == 0 {
		problems = append(problems, errors.New("pack has neither images nor gifs"))
	}
	if len(p.List(Prompts)) > 0 && len(p.List(Images)) == 0 {
		problems = append(problems, errors.New("prompts need at least one image to draw on"))
	}
	return problems
}

// listFiles returns the regular, non-hidden files of dir sorted by name. A
// missing directory is an empty category.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
