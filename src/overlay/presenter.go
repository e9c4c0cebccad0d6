// Package overlay owns the lifecycle and content state of the answer
// overlay. The surface itself is created lazily through a factory and is
// reused for the life of the process.
package overlay

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"screen-assistant/src/render"
)

const AnalyzingMessage = "Analyzing..."

type Kind int

const (
	Hidden Kind = iota
	Placeholder
	Result
	Error
)

func (k Kind) String() string {
	switch k {
	case Placeholder:
		return "placeholder"
	case Result:
		return "result"
	case Error:
		return "error"
	default:
		return "hidden"
	}
}

// State is what the overlay currently displays.
type State struct {
	Kind Kind
	Text string
}

func PlaceholderState(msg string) State { return State{Kind: Placeholder, Text: msg} }
func ResultState(text string) State     { return State{Kind: Result, Text: text} }
func ErrorState(msg string) State       { return State{Kind: Error, Text: msg} }

// Surface is a native overlay window.
type Surface interface {
	SetContent(doc render.Document)
	Show()
	Hide()
	Close()
}

// Factory creates the overlay surface on first use.
type Factory func() (Surface, error)

type Option func(*Presenter)

// WithRenderer replaces the markup renderer used for result text.
func WithRenderer(fn func(string) render.Document) Option {
	return func(p *Presenter) { p.render = fn }
}

// Presenter is safe for concurrent use, but the event loop is expected to be
// its only caller.
type Presenter struct {
	mu      sync.Mutex
	factory Factory
	render  func(string) render.Document
	logger  *zap.Logger

	surface Surface
	content State
	visible bool
}

func New(factory Factory, logger *zap.Logger, opts ...Option) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Presenter{factory: factory, render: render.Render, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Show displays s. Showing the state that is already visible does nothing.
// Showing a Hidden state is the same as Hide.
func (p *Presenter) Show(s State) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Kind == Hidden {
		p.hideLocked()
		return nil
	}
	if p.visible && p.content == s {
		return nil
	}
	if err := p.ensureSurfaceLocked(); err != nil {
		return err
	}
	if p.content != s {
		p.surface.SetContent(p.documentFor(s))
		p.content = s
	}
	if !p.visible {
		p.surface.Show()
		p.visible = true
	}
	p.logger.Debug("overlay shown", zap.Stringer("kind", s.Kind))
	return nil
}

// Toggle flips visibility without changing content. It does nothing before
// the surface exists or when there is no content.
func (p *Presenter) Toggle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.surface == nil || p.content.Kind == Hidden {
		return
	}
	if p.visible {
		p.surface.Hide()
	} else {
		p.surface.Show()
	}
	p.visible = !p.visible
	p.logger.Debug("overlay toggled", zap.Bool("visible", p.visible))
}

// Hide hides the surface but keeps its content for a later Toggle.
func (p *Presenter) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hideLocked()
}

// Clear hides the surface and drops its content. The window is kept.
func (p *Presenter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hideLocked()
	p.content = State{}
}

// State reports what is currently visible.
func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.visible {
		return State{}
	}
	return p.content
}

// Shutdown closes the surface. The presenter may be reused afterwards; a new
// surface is created on the next Show.
func (p *Presenter) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.surface != nil {
		p.surface.Close()
		p.surface = nil
	}
	p.visible = false
	p.content = State{}
}

func (p *Presenter) hideLocked() {
	if p.surface != nil && p.visible {
		p.surface.Hide()
	}
	p.visible = false
}

func (p *Presenter) ensureSurfaceLocked() error {
	if p.surface != nil {
		return nil
	}
	if p.factory == nil {
		return fmt.Errorf("overlay: no surface factory")
	}
	s, err := p.factory()
	if err != nil {
		return fmt.Errorf("create overlay surface: %w", err)
	}
	p.surface = s
	p.logger.Info("overlay surface created")
	return nil
}

func (p *Presenter) documentFor(s State) render.Document {
	if s.Kind == Result {
		return p.render(s.Text)
	}
	return render.PlainDocument(s.Text)
}
