package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"screen-assistant/src/overlay"
	"screen-assistant/src/render"
)

const (
	overlayWidth  = 500
	overlayHeight = 400
	overlayRadius = 10
)

// OverlaySurface is the fyne implementation of overlay.Surface. Its methods
// may be called from any goroutine; UI work is marshalled onto the main one.
type OverlaySurface struct {
	factory *Factory
	w       fyne.Window
	text    *widget.RichText
	shown   bool
}

// NewOverlayFactory returns the lazy surface constructor used by the presenter.
func NewOverlayFactory(f *Factory) overlay.Factory {
	return func() (overlay.Surface, error) {
		s := &OverlaySurface{factory: f}
		fyne.DoAndWait(s.build)
		return s, nil
	}
}

func (s *OverlaySurface) build() {
	s.w = s.factory.NewWindow(KindOverlay, "Screen Assistant")

	s.text = widget.NewRichText()
	s.text.Wrapping = fyne.TextWrapWord

	bg := canvas.NewRectangle(render.DefaultStyle.Background)
	bg.CornerRadius = overlayRadius

	body := container.NewVScroll(s.text)
	s.w.SetContent(container.NewStack(bg, container.NewPadded(body)))
	s.w.Resize(fyne.NewSize(overlayWidth, overlayHeight))
	s.w.CenterOnScreen()
}

func (s *OverlaySurface) SetContent(doc render.Document) {
	segs := segments(doc)
	fyne.Do(func() {
		s.text.Segments = segs
		s.text.Refresh()
	})
}

func (s *OverlaySurface) Show() {
	fyne.Do(func() {
		s.w.Show()
		if !s.shown {
			s.factory.Apply(s.w, KindOverlay, StealthCapabilities)
			s.shown = true
		}
	})
}

// Hide waits for the window to disappear so a following capture cannot include it.
func (s *OverlaySurface) Hide() {
	fyne.DoAndWait(s.w.Hide)
}

func (s *OverlaySurface) Close() {
	fyne.Do(s.w.Close)
}
