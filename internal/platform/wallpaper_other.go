//go:build !windows

package platform

// NewWallpaper returns an in-memory wallpaper; there is no portable desktop
// API outside Windows.
func NewWallpaper() Wallpaper {
	return NewMemoryWallpaper("")
}
