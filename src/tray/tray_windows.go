//go:build windows

package tray

import (
	"runtime"
	"syscall"
	"unsafe"

	"github.com/getlantern/systray"
	"golang.org/x/sys/windows"
)

const (
	aboutSupported = true

	mbOK              = 0x00000000
	mbIconInformation = 0x00000040
)

var (
	user32          = windows.NewLazySystemDLL("user32.dll")
	procMessageBoxW = user32.NewProc("MessageBoxW")
)

// Start runs the tray message loop on its own locked OS thread.
func Start(m Menu) {
	go func() {
		runtime.LockOSThread()
		systray.Run(onReady(m), nil)
	}()
}

func iconBytes() []byte { return wrapICO(IconPNG(), iconSize) }

func showAbout(message string) {
	titlePtr, _ := syscall.UTF16PtrFromString("About Screen Assistant")
	messagePtr, _ := syscall.UTF16PtrFromString(message)
	procMessageBoxW.Call(
		0,
		uintptr(unsafe.Pointer(messagePtr)),
		uintptr(unsafe.Pointer(titlePtr)),
		uintptr(mbOK|mbIconInformation),
	)
}
