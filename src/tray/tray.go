// Package tray shows the status-bar menu: capture, toggle overlay, copy the
// last answer and quit. Menu clicks only post events; they never do work.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
	"go.uber.org/zap"
)

const (
	DefaultTooltip = "Screen Assistant"
	BusyTooltip    = "Screen Assistant: analyzing..."
)

// Menu item titles are passed to the platform verbatim, so they carry no
// mnemonic escapes.
const (
	labelCapture = "Capture and Analyze"
	labelToggle  = "Show/Hide Overlay"
	labelCopy    = "Copy Last Answer"
	labelAbout   = "About"
	labelQuit    = "Quit"
)

// Menu describes the tray items and their actions.
type Menu struct {
	Title     string
	OnCapture func()
	OnToggle  func()
	OnCopy    func()
	OnQuit    func()
	Logger    *zap.Logger
}

var (
	mu         sync.Mutex
	ready      bool
	tooltip    = DefaultTooltip
	aboutExtra string
)

func onReady(m Menu) func() {
	return func() {
		systray.SetIcon(iconBytes())
		systray.SetTitle(m.Title)

		mu.Lock()
		ready = true
		systray.SetTooltip(tooltip)
		mu.Unlock()

		mCapture := systray.AddMenuItem(labelCapture, "Capture the screen and analyze it")
		mToggle := systray.AddMenuItem(labelToggle, "Toggle the answer overlay")
		mCopy := systray.AddMenuItem(labelCopy, "Copy the most recent answer to the clipboard")
		systray.AddSeparator()
		var aboutCh chan struct{}
		if aboutSupported {
			aboutCh = systray.AddMenuItem(labelAbout, "About Screen Assistant").ClickedCh
		}
		mQuit := systray.AddMenuItem(labelQuit, "Quit the application")

		logger := m.Logger
		if logger == nil {
			logger = zap.NewNop()
		}
		go func() {
			for {
				select {
				case <-mCapture.ClickedCh:
					logger.Debug("tray: capture clicked")
					call(m.OnCapture)
				case <-mToggle.ClickedCh:
					call(m.OnToggle)
				case <-mCopy.ClickedCh:
					call(m.OnCopy)
				case <-aboutCh:
					showAbout(aboutText())
				case <-mQuit.ClickedCh:
					logger.Info("tray: quit clicked")
					call(m.OnQuit)
					return
				}
			}
		}()
	}
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

// UpdateTooltip sets the tray tooltip. Safe to call before the tray is ready.
func UpdateTooltip(text string) {
	mu.Lock()
	defer mu.Unlock()
	tooltip = text
	if ready {
		systray.SetTooltip(text)
	}
}

// SetBusy switches between the idle and analyzing tooltips.
func SetBusy(busy bool) {
	if busy {
		UpdateTooltip(BusyTooltip)
	} else {
		UpdateTooltip(DefaultTooltip)
	}
}

// SetAboutExtra appends a line to the About text.
func SetAboutExtra(s string) {
	mu.Lock()
	defer mu.Unlock()
	aboutExtra = s
}

func aboutText() string {
	mu.Lock()
	defer mu.Unlock()
	text := "Screen Assistant\nCapture the screen and get an answer from a vision model."
	if aboutExtra != "" {
		text += "\n\n" + aboutExtra
	}
	return text
}

// Quit removes the tray icon.
func Quit() {
	mu.Lock()
	wasReady := ready
	ready = false
	mu.Unlock()
	if wasReady {
		systray.Quit()
	}
}
