// Package selection implements the drag-to-select state machine that turns
// pointer events on a selection surface into a capture region.
package selection

import (
	"errors"
	"sync"

	"screen-assistant/src/screenshot"
)

// MinSpan is the largest width or height, in logical points, that still
// counts as "no selection".
const MinSpan = 10

var ErrBusy = errors.New("region selection already in progress")

type Point struct {
	X int
	Y int
}

// Surface is the on-screen area the user drags over.
type Surface interface {
	// Preview draws the live selection rectangle.
	Preview(r screenshot.Region)
	// Close removes the surface. It is called exactly once, before any callback.
	Close()
}

// Scaler is implemented by surfaces whose pixels are denser than logical
// points. Scale returns pixels per point.
type Scaler interface {
	Scale() float64
}

type Callbacks struct {
	OnSelected  func(screenshot.Region)
	OnCancelled func()
}

// Selector allows at most one active selection at a time.
type Selector struct {
	mu     sync.Mutex
	active *Handle
}

func NewSelector() *Selector { return &Selector{} }

// Begin starts a selection on surface. It fails with ErrBusy while another
// selection is still active.
func (s *Selector) Begin(surface Surface, cb Callbacks) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, ErrBusy
	}
	h := &Handle{owner: s, surface: surface, cb: cb}
	s.active = h
	return h, nil
}

// Active reports whether a selection is in progress.
func (s *Selector) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

func (s *Selector) release(h *Handle) {
	s.mu.Lock()
	if s.active == h {
		s.active = nil
	}
	s.mu.Unlock()
}

// Handle receives pointer events for one selection.
type Handle struct {
	owner   *Selector
	surface Surface
	cb      Callbacks

	mu       sync.Mutex
	start    Point
	current  Point
	dragging bool
	done     bool
}

// Down anchors the selection at p.
func (h *Handle) Down(p Point) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return
	}
	h.start, h.current = p, p
	h.dragging = true
}

// Drag updates the live preview.
func (h *Handle) Drag(p Point) {
	h.mu.Lock()
	if h.done || !h.dragging {
		h.mu.Unlock()
		return
	}
	h.current = p
	r := Normalize(h.start, h.current)
	h.mu.Unlock()

	h.surface.Preview(r)
}

// Up finalizes the selection. Regions with either side at most MinSpan
// points are treated as a cancel.
func (h *Handle) Up(p Point) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	if !h.dragging {
		h.start = p
	}
	h.current = p
	r := Normalize(h.start, h.current)
	h.mu.Unlock()

	span := h.minSpanPixels()
	if float64(r.Width) > span && float64(r.Height) > span {
		h.finish(func() {
			if h.cb.OnSelected != nil {
				h.cb.OnSelected(r)
			}
		})
		return
	}
	h.Cancel()
}

func (h *Handle) minSpanPixels() float64 {
	if sc, ok := h.surface.(Scaler); ok {
		if f := sc.Scale(); f > 0 {
			return MinSpan * f
		}
	}
	return MinSpan
}

// Cancel ends the selection without a region. Safe to call repeatedly.
func (h *Handle) Cancel() {
	h.finish(func() {
		if h.cb.OnCancelled != nil {
			h.cb.OnCancelled()
		}
	})
}

func (h *Handle) finish(notify func()) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.done = true
	h.dragging = false
	h.mu.Unlock()

	h.surface.Close()
	h.owner.release(h)
	notify()
}

// Normalize returns the rectangle spanned by two corners regardless of drag direction.
func Normalize(a, b Point) screenshot.Region {
	return screenshot.Region{
		X:      min(a.X, b.X),
		Y:      min(a.Y, b.Y),
		Width:  abs(b.X - a.X),
		Height: abs(b.Y - a.Y),
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
