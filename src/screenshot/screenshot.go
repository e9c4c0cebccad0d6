package screenshot

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

var (
	ErrPermissionDenied = errors.New("screen recording permission not granted")
	ErrCaptureFailed    = errors.New("screen capture failed")
)

// Region represents a screen region to capture, in absolute screen pixels.
// The zero Region with Full set means "entire primary display".
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Full   bool
}

// FullDisplay is the sentinel for capturing the whole primary display.
var FullDisplay = Region{Full: true}

// Rect returns the region as an image rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) String() string {
	if r.Full {
		return "full-display"
	}
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Permission abstracts the host's screen-recording authorization.
type Permission interface {
	// Granted reports whether capture is currently allowed.
	Granted() bool
	// Request asks the host for access. It may show an OS prompt and does not block on the answer.
	Request()
}

// Backend is the OS capture primitive.
type Backend interface {
	NumActiveDisplays() int
	DisplayBounds(index int) image.Rectangle
	CaptureRect(bounds image.Rectangle) (*image.RGBA, error)
}

// Capturer acquires still frames on demand.
type Capturer struct {
	perm    Permission
	backend Backend
	logger  *zap.Logger
}

// NewCapturer returns a capturer backed by the platform permission check and kbinani/screenshot.
func NewCapturer(logger *zap.Logger) *Capturer {
	return NewCapturerWith(platformPermission{}, kbinaniBackend{}, logger)
}

func NewCapturerWith(perm Permission, backend Backend, logger *zap.Logger) *Capturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capturer{perm: perm, backend: backend, logger: logger}
}

// Capture grabs the given region, or the primary display for FullDisplay.
// When permission is missing it requests it and returns ErrPermissionDenied
// without touching the capture primitive; callers should not retry on their own.
func (c *Capturer) Capture(ctx context.Context, region Region) (*image.RGBA, error) {
	if !c.perm.Granted() {
		c.logger.Warn("screen recording permission missing, requesting")
		c.perm.Request()
		return nil, ErrPermissionDenied
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := region.Rect()
	if region.Full {
		b, err := c.PrimaryBounds()
		if err != nil {
			return nil, err
		}
		bounds = b
	} else if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid region dimensions: width=%d, height=%d", ErrCaptureFailed, region.Width, region.Height)
	}

	img, err := c.backend.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	c.logger.Debug("captured frame", zap.Stringer("region", region), zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))
	return img, nil
}

// PrimaryBounds returns the bounds of the primary display: the one anchored
// at the origin, falling back to display 0.
func (c *Capturer) PrimaryBounds() (image.Rectangle, error) {
	n := c.backend.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: no active displays found", ErrCaptureFailed)
	}
	for i := 0; i < n; i++ {
		b := c.backend.DisplayBounds(i)
		if b.Min.X == 0 && b.Min.Y == 0 {
			return b, nil
		}
	}
	return c.backend.DisplayBounds(0), nil
}

type kbinaniBackend struct{}

func (kbinaniBackend) NumActiveDisplays() int { return screenshot.NumActiveDisplays() }

func (kbinaniBackend) DisplayBounds(index int) image.Rectangle {
	return screenshot.GetDisplayBounds(index)
}

func (kbinaniBackend) CaptureRect(bounds image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(bounds)
}
