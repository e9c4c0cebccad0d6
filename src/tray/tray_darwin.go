//go:build darwin

package tray

import "github.com/getlantern/systray"

const aboutSupported = false

// Start registers the tray with the Cocoa run loop owned by the GUI toolkit.
// It must be called from the main thread after the toolkit has started.
func Start(m Menu) {
	systray.Register(onReady(m), nil)
}

func iconBytes() []byte { return IconPNG() }

func showAbout(string) {}
