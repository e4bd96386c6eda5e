package platform

import (
	"sync"

	"automata/internal/logging"
)

// Wallpaper reads and replaces the desktop wallpaper.
type Wallpaper interface {
	Get() (string, error)
	Set(path string) error
}

// memoryWallpaper tracks the wallpaper without touching the desktop. It is
// used where no OS implementation exists.
type memoryWallpaper struct {
	mu      sync.Mutex
	current string
}

// NewMemoryWallpaper returns a Wallpaper that only remembers the last path.
func NewMemoryWallpaper(initial string) Wallpaper {
	return &memoryWallpaper{current: initial}
}

func (w *memoryWallpaper) Get() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current, nil
}

func (w *memoryWallpaper) Set(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	logging.Platform("wallpaper -> %s (not applied on this platform)", path)
	w.current = path
	return nil
}
