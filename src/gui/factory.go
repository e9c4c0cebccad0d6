// Package gui builds the fyne windows used by the assistant: the answer
// overlay and the region selection surface.
package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver"
	"fyne.io/fyne/v2/driver/desktop"
	"go.uber.org/zap"

	"screen-assistant/src/render"
)

// Kind selects which window a factory builds.
type Kind int

const (
	KindOverlay Kind = iota
	KindSelectionSurface
)

func (k Kind) String() string {
	if k == KindSelectionSurface {
		return "selection-surface"
	}
	return "overlay"
}

// Capabilities are native window behaviours applied once the window exists.
type Capabilities struct {
	// NonActivating windows never take focus from the user's application.
	NonActivating bool
	// ExcludedFromCapture windows are invisible to screen sharing and recording.
	ExcludedFromCapture bool
	AlwaysOnTop         bool
}

// StealthCapabilities is the set used for the answer overlay.
var StealthCapabilities = Capabilities{NonActivating: true, ExcludedFromCapture: true, AlwaysOnTop: true}

// Factory creates borderless windows. All methods must run on the fyne
// main goroutine (inside fyne.Do or fyne.DoAndWait).
type Factory struct {
	app    fyne.App
	anchor fyne.Window
	logger *zap.Logger
}

func NewFactory(app fyne.App, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	app.Settings().SetTheme(newOverlayTheme(render.DefaultStyle))
	// The desktop driver quits when its last window closes; selection
	// surfaces are closed after every use, so keep one that never is.
	return &Factory{app: app, anchor: app.NewWindow(""), logger: logger}
}

// NewWindow returns a borderless window for kind. Capabilities are applied by
// Apply after the window has been shown, when its native handle exists.
func (f *Factory) NewWindow(kind Kind, title string) fyne.Window {
	var w fyne.Window
	if drv, ok := f.app.Driver().(desktop.Driver); ok {
		w = drv.CreateSplashWindow()
		w.SetTitle(title)
	} else {
		w = f.app.NewWindow(title)
	}
	w.SetPadded(false)
	if kind == KindSelectionSurface {
		w.SetFullScreen(true)
	}
	return w
}

// Apply sets native window flags. Unsupported capabilities are logged and skipped.
func (f *Factory) Apply(w fyne.Window, kind Kind, caps Capabilities) {
	nw, ok := w.(driver.NativeWindow)
	if !ok {
		f.logger.Debug("native window access unavailable", zap.Stringer("kind", kind))
		return
	}
	nw.RunNative(func(ctx any) {
		if err := applyNative(ctx, caps); err != nil {
			f.logger.Warn("failed to apply window capabilities", zap.Stringer("kind", kind), zap.Error(err))
		}
	})
}
