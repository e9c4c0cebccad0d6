//go:build !darwin && !windows

package tray

import (
	"runtime"

	"github.com/getlantern/systray"
)

const aboutSupported = false

// Start runs the tray loop on its own locked OS thread so it does not
// compete with the GUI toolkit for the main thread.
func Start(m Menu) {
	go func() {
		runtime.LockOSThread()
		systray.Run(onReady(m), nil)
	}()
}

func iconBytes() []byte { return IconPNG() }

func showAbout(string) {}
