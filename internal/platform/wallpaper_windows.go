//go:build windows

package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	spiGetDeskWallpaper = 0x0073
	spiSetDeskWallpaper = 0x0014
	spifUpdateIniFile   = 0x01
	spifSendChange      = 0x02
	maxPath             = 260
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	procSystemParametersInfo = user32.NewProc("SystemParametersInfoW")
)

type desktopWallpaper struct{}

// NewWallpaper returns the desktop wallpaper of the current user.
func NewWallpaper() Wallpaper {
	return desktopWallpaper{}
}

func (desktopWallpaper) Get() (string, error) {
	buf := make([]uint16, maxPath)
	r, _, err := procSystemParametersInfo.Call(
		spiGetDeskWallpaper,
		uintptr(len(buf)),
		uintptr(unsafe.Pointer(&buf[0])),
		0,
	)
	if r == 0 {
		return "", fmt.Errorf("SystemParametersInfoW(get): %w", err)
	}
	return windows.UTF16ToString(buf), nil
}

func (desktopWallpaper) Set(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	r, _, err := procSystemParametersInfo.Call(
		spiSetDeskWallpaper,
		0,
		uintptr(unsafe.Pointer(p)),
		spifUpdateIniFile|spifSendChange,
	)
	if r == 0 {
		return fmt.Errorf("SystemParametersInfoW(set %s): %w", path, err)
	}
	return nil
}
