package gui

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"screen-assistant/src/screenshot"
	"screen-assistant/src/selection"
)

var (
	dimColor       = color.NRGBA{A: 0x60}
	selectionFill  = color.NRGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0x30}
	selectionEdge  = color.NRGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	selectionWidth = float32(2)
)

// BackdropSource provides the frozen image shown behind the selection.
type BackdropSource interface {
	Capture(ctx context.Context, region screenshot.Region) (*image.RGBA, error)
	PrimaryBounds() (image.Rectangle, error)
}

// RegionSelector shows a fullscreen frozen copy of the primary display and
// lets the user drag out a rectangle over it.
type RegionSelector struct {
	factory  *Factory
	backdrop BackdropSource
	selector *selection.Selector
	logger   *zap.Logger
}

func NewRegionSelector(f *Factory, backdrop BackdropSource, logger *zap.Logger) *RegionSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegionSelector{factory: f, backdrop: backdrop, selector: selection.NewSelector(), logger: logger}
}

// Select opens the surface and returns a cancel func. Exactly one of cb's
// callbacks fires, after the surface has been closed.
func (r *RegionSelector) Select(ctx context.Context, cb selection.Callbacks) (func(), error) {
	if r.selector.Active() {
		return nil, selection.ErrBusy
	}
	bounds, err := r.backdrop.PrimaryBounds()
	if err != nil {
		return nil, err
	}
	img, err := r.backdrop.Capture(ctx, screenshot.Region{X: bounds.Min.X, Y: bounds.Min.Y, Width: bounds.Dx(), Height: bounds.Dy()})
	if err != nil {
		return nil, fmt.Errorf("capture backdrop: %w", err)
	}

	surface := &selectionSurface{factory: r.factory, origin: bounds.Min, pixels: bounds.Size(), main: mainGate{wait: fyne.DoAndWait}}
	handle, err := r.selector.Begin(surface, cb)
	if err != nil {
		return nil, err
	}
	fyne.DoAndWait(func() { surface.build(img, handle) })
	r.logger.Debug("selection surface opened", zap.Stringer("bounds", bounds))
	return handle.Cancel, nil
}

// selectionSurface implements selection.Surface on a fullscreen window.
type selectionSurface struct {
	factory *Factory
	origin  image.Point
	pixels  image.Point
	w       fyne.Window
	area    *dragArea
	rect    *canvas.Rectangle
	main    mainGate
}

func (s *selectionSurface) build(img *image.RGBA, h *selection.Handle) {
	s.w = s.factory.NewWindow(KindSelectionSurface, "Select Region")

	bg := canvas.NewImageFromImage(img)
	bg.FillMode = canvas.ImageFillStretch
	bg.ScaleMode = canvas.ImageScaleFastest

	s.rect = canvas.NewRectangle(selectionFill)
	s.rect.StrokeColor = selectionEdge
	s.rect.StrokeWidth = selectionWidth
	s.rect.Hide()

	s.area = newDragArea(s, h)
	s.w.SetContent(container.NewStack(bg, canvas.NewRectangle(dimColor), container.NewWithoutLayout(s.rect), s.area))
	s.w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			s.main.enter(h.Cancel)
		}
	})
	s.w.Show()
	s.factory.Apply(s.w, KindSelectionSurface, Capabilities{AlwaysOnTop: true})
	s.w.RequestFocus()
}

func (s *selectionSurface) Preview(r screenshot.Region) {
	fyne.Do(func() {
		if s.area == nil {
			return
		}
		pos, size := s.area.toDIP(r)
		s.rect.Move(pos)
		s.rect.Resize(size)
		s.rect.Show()
		s.rect.Refresh()
	})
}

// Close has returned only once the window is gone, so a capture started by
// the selection callback never sees the dimmed backdrop.
func (s *selectionSurface) Close() {
	s.main.run(func() {
		if s.w != nil {
			s.w.Hide()
			s.w.Close()
		}
	})
}

// Scale reports pixels per logical point of the surface.
func (s *selectionSurface) Scale() float64 {
	if s.area == nil {
		return 1
	}
	sx, sy := scaleFactors(s.area.Size(), s.pixels)
	return float64(max(sx, sy))
}

// mainGate runs work synchronously on the fyne main goroutine. Event
// handlers already run there and mark themselves with enter, so run calls
// straight through instead of waiting on a queue it would block.
type mainGate struct {
	depth atomic.Int32
	wait  func(func())
}

func (g *mainGate) enter(fn func()) {
	g.depth.Add(1)
	defer g.depth.Add(-1)
	fn()
}

func (g *mainGate) run(fn func()) {
	if g.depth.Load() > 0 {
		fn()
		return
	}
	g.wait(fn)
}

// dragArea receives pointer events and forwards them to the selection
// handle in absolute screen pixels.
type dragArea struct {
	widget.BaseWidget
	surface *selectionSurface
	handle  *selection.Handle
	last    selection.Point
}

var (
	_ desktop.Mouseable = (*dragArea)(nil)
	_ fyne.Draggable    = (*dragArea)(nil)
)

func newDragArea(s *selectionSurface, h *selection.Handle) *dragArea {
	a := &dragArea{surface: s, handle: h}
	a.ExtendBaseWidget(a)
	return a
}

func (a *dragArea) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}

func (a *dragArea) Cursor() desktop.Cursor { return desktop.CrosshairCursor }

func (a *dragArea) MouseDown(ev *desktop.MouseEvent) {
	a.last = a.toPixels(ev.Position)
	a.handle.Down(a.last)
}

func (a *dragArea) MouseUp(ev *desktop.MouseEvent) {
	p := a.toPixels(ev.Position)
	a.surface.main.enter(func() { a.handle.Up(p) })
}

func (a *dragArea) Dragged(ev *fyne.DragEvent) {
	a.last = a.toPixels(ev.Position)
	a.handle.Drag(a.last)
}

func (a *dragArea) DragEnd() {
	a.surface.main.enter(func() { a.handle.Up(a.last) })
}

func (a *dragArea) toPixels(p fyne.Position) selection.Point {
	return dipToPixels(p, a.Size(), a.surface.origin, a.surface.pixels)
}

func (a *dragArea) toDIP(r screenshot.Region) (fyne.Position, fyne.Size) {
	return pixelsToDIP(r, a.Size(), a.surface.origin, a.surface.pixels)
}

// dipToPixels maps a position on a widget of size area, which covers a
// display of the given pixel size at origin, to absolute screen pixels.
func dipToPixels(p fyne.Position, area fyne.Size, origin, pixels image.Point) selection.Point {
	sx, sy := scaleFactors(area, pixels)
	return selection.Point{
		X: origin.X + int(p.X*sx+0.5),
		Y: origin.Y + int(p.Y*sy+0.5),
	}
}

func pixelsToDIP(r screenshot.Region, area fyne.Size, origin, pixels image.Point) (fyne.Position, fyne.Size) {
	sx, sy := scaleFactors(area, pixels)
	return fyne.NewPos(float32(r.X-origin.X)/sx, float32(r.Y-origin.Y)/sy),
		fyne.NewSize(float32(r.Width)/sx, float32(r.Height)/sy)
}

func scaleFactors(area fyne.Size, pixels image.Point) (float32, float32) {
	sx, sy := float32(1), float32(1)
	if area.Width > 0 {
		sx = float32(pixels.X) / area.Width
	}
	if area.Height > 0 {
		sy = float32(pixels.Y) / area.Height
	}
	return sx, sy
}
