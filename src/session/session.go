// Package session tracks one capture attempt from trigger to terminal phase.
package session

import (
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"

	"screen-assistant/src/analysis"
	"screen-assistant/src/encoder"
	"screen-assistant/src/screenshot"
)

var ErrInvalidTransition = errors.New("invalid session phase transition")

type Phase int

const (
	Idle Phase = iota
	SelectingRegion
	Capturing
	Encoding
	Awaiting
	Done
	Cancelled
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case SelectingRegion:
		return "selecting-region"
	case Capturing:
		return "capturing"
	case Encoding:
		return "encoding"
	case Awaiting:
		return "awaiting"
	case Done:
		return "done"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further transitions are allowed.
func (p Phase) Terminal() bool {
	return p == Done || p == Cancelled || p == Failed
}

type ID string

// Session is owned by the event loop and is never shared across goroutines.
type Session struct {
	ID       ID
	Phase    Phase
	Region   screenshot.Region
	Bitmap   *image.RGBA
	Payload  encoder.Payload
	FailKind analysis.Kind
}

func New() *Session {
	return &Session{ID: ID(uuid.NewString()), Phase: Idle}
}

// Advance moves the session forward. Phases only increase, and Cancelled or
// Failed may be entered from any non-terminal phase after Idle.
func (s *Session) Advance(next Phase) error {
	if s.Phase.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, s.Phase)
	}
	switch next {
	case Cancelled, Failed:
		if s.Phase == Idle {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, next)
		}
	default:
		if next <= s.Phase {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, next)
		}
	}
	s.Phase = next
	return nil
}

// Fail records the failure kind and moves to Failed.
func (s *Session) Fail(kind analysis.Kind) error {
	if err := s.Advance(Failed); err != nil {
		return err
	}
	s.FailKind = kind
	return nil
}

// Release drops the heavy buffers once they are no longer needed.
func (s *Session) Release() {
	s.Bitmap = nil
	s.Payload = encoder.Payload{}
}
