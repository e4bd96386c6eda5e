package pack

import (
	"os"
	"path/filepath"
	"testing"

	"automata/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `{
  "name": "night",
  "version": "1.2.0",
  "description": "# Night\nDark things.",
  "requires": ">= 0.3.0",
  "tags": ["dark"],
  "prompts": ["I am awake", " "],
  "buttons": ["ok"],
  "webs": ["https://example.com/a", "https://example.com/b"]
}`

func writePack(t *testing.T, manifest string, files map[string][]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0644))
	for category, names := range files {
		sub := filepath.Join(dir, category)
		require.NoError(t, os.MkdirAll(sub, 0755))
		for _, name := range names {
			require.NoError(t, os.WriteFile(filepath.Join(sub, name), []byte("x"), 0644))
		}
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writePack(t, validManifest, map[string][]string{
		Images:     {"b.png", "a.png", ".hidden"},
		Wallpapers: {"w.jpg"},
	})

	p, err := Load(dir, "0.4.0")
	require.NoError(t, err)

	assert.Equal(t, "night", p.Manifest.Name)
	assert.Equal(t, []string{
		filepath.Join(dir, Images, "a.png"),
		filepath.Join(dir, Images, "b.png"),
	}, p.List(Images))
	assert.Empty(t, p.List(Gifs), "missing directory is an empty category")
	assert.Equal(t, []string{"I am awake"}, p.List(Prompts), "blank prompts dropped")
	assert.Len(t, p.List(Webs), 2)
	assert.Equal(t, 2, p.Counts()[Images])
	assert.Contains(t, p.Summary(), "wallpapers=1")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing manifest", func(t *testing.T) {
		_, err := Load(t.TempDir(), "")
		assert.ErrorIs(t, err, ErrInvalidPack)
	})

	t.Run("schema violation", func(t *testing.T) {
		dir := writePack(t, `{"description": "no lists"}`, nil)
		_, err := Load(dir, "")
		assert.ErrorIs(t, err, ErrInvalidPack)
	})

	t.Run("bad url", func(t *testing.T) {
		dir := writePack(t, `{"description":"","tags":[],"prompts":[],"buttons":[],"webs":["ftp://x"]}`, nil)
		_, err := Load(dir, "")
		assert.ErrorIs(t, err, ErrInvalidPack)
	})

	t.Run("incompatible version", func(t *testing.T) {
		dir := writePack(t, validManifest, nil)
		_, err := Load(dir, "0.2.9")
		assert.ErrorIs(t, err, ErrIncompatiblePack)
	})
}

func TestLoadNamed_Fallback(t *testing.T) {
	packs := t.TempDir()

	p, err := LoadNamed(packs, "missing", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, p.Manifest.Name)
	assert.Empty(t, p.List(Images))

	def := filepath.Join(packs, DefaultName)
	require.NoError(t, os.MkdirAll(filepath.Join(def, Images), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(def, ManifestFile), []byte(validManifest), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(def, Images, "x.png"), []byte("x"), 0644))

	p, err = LoadNamed(packs, "missing", "")
	require.NoError(t, err)
	assert.Len(t, p.List(Images), 1)
}

func TestChoose(t *testing.T) {
	dir := writePack(t, validManifest, nil)
	p, err := Load(dir, "")
	require.NoError(t, err)

	rnd := types.NewRand(9)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		url, ok := p.Choose(Webs, rnd)
		require.True(t, ok)
		seen[url] = true
	}
	assert.Len(t, seen, 2)

	_, ok := p.Choose(Gifs, rnd)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	good := writePack(t, validManifest, map[string][]string{Images: {"a.png"}})
	assert.Empty(t, Validate(good, "1.0.0"))

	noImages := writePack(t, validManifest, nil)
	problems := Validate(noImages, "1.0.0")
	assert.Len(t, problems, 2)
}

func TestCheckCompatible(t *testing.T) {
	m := Manifest{Requires: "~1.2"}
	assert.NoError(t, m.CheckCompatible("1.2.7"))
	assert.ErrorIs(t, m.CheckCompatible("1.3.0"), ErrIncompatiblePack)
	assert.NoError(t, m.CheckCompatible(""))

	bad := Manifest{Requires: "not a constraint"}
	assert.ErrorIs(t, bad.CheckCompatible("1.0.0"), ErrInvalidPack)
}
