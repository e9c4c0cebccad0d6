//go:build windows

package gui

import (
	"fmt"

	"fyne.io/fyne/v2/driver"
	"golang.org/x/sys/windows"
)

const (
	wdaExcludeFromCapture = 0x00000011

	gwlExStyle      = ^uintptr(19) // GWL_EXSTYLE (-20)
	wsExTopmost     = 0x00000008
	wsExToolWindow  = 0x00000080
	wsExNoActivate  = 0x08000000
	hwndTopmost     = ^uintptr(0) // HWND_TOPMOST (-1)
	swpNoSize       = 0x0001
	swpNoMove       = 0x0002
	swpNoActivate   = 0x0010
	swpFrameChanged = 0x0020
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procSetWindowDisplayAffinity = user32.NewProc("SetWindowDisplayAffinity")
	procGetWindowLongPtrW        = user32.NewProc("GetWindowLongPtrW")
	procSetWindowLongPtrW        = user32.NewProc("SetWindowLongPtrW")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
)

func applyNative(ctx any, caps Capabilities) error {
	wc, ok := ctx.(driver.WindowsWindowContext)
	if !ok {
		return fmt.Errorf("unexpected native context %T", ctx)
	}
	hwnd := wc.HWND

	if caps.ExcludedFromCapture {
		// Requires Windows 10 2004; older builds fail and the overlay stays capturable.
		if r, _, err := procSetWindowDisplayAffinity.Call(hwnd, wdaExcludeFromCapture); r == 0 {
			return fmt.Errorf("SetWindowDisplayAffinity: %w", err)
		}
	}

	if caps.NonActivating || caps.AlwaysOnTop {
		style, _, _ := procGetWindowLongPtrW.Call(hwnd, gwlExStyle)
		if caps.NonActivating {
			style |= wsExNoActivate | wsExToolWindow
		}
		if caps.AlwaysOnTop {
			style |= wsExTopmost
		}
		procSetWindowLongPtrW.Call(hwnd, gwlExStyle, style)
	}

	if caps.AlwaysOnTop {
		flags := uintptr(swpNoMove | swpNoSize | swpFrameChanged)
		if caps.NonActivating {
			flags |= swpNoActivate
		}
		if r, _, err := procSetWindowPos.Call(hwnd, hwndTopmost, 0, 0, 0, 0, flags); r == 0 {
			return fmt.Errorf("SetWindowPos: %w", err)
		}
	}
	return nil
}

// HideFromDock is a no-op on Windows; the tray icon is the only presence.
func HideFromDock() {}
