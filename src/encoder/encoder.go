package encoder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	MIMEJPEG       = "image/jpeg"
	DefaultQuality = 80
)

var ErrEncodingFailed = errors.New("image encoding failed")

// Payload is an encoded image ready to be embedded in a request body.
type Payload struct {
	MIMEType string
	Data     string // base64, standard alphabet with padding
}

type Options struct {
	Quality int
	// MaxDimension bounds the longer side in pixels; 0 keeps the original size.
	MaxDimension int
}

type Encoder struct {
	opts Options
}

func New(opts Options) *Encoder {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	if opts.MaxDimension < 0 {
		opts.MaxDimension = 0
	}
	return &Encoder{opts: opts}
}

// Encode compresses img to JPEG and wraps it as base64 text.
func (e *Encoder) Encode(img image.Image) (Payload, error) {
	if img == nil {
		return Payload{}, fmt.Errorf("%w: nil image", ErrEncodingFailed)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Payload{}, fmt.Errorf("%w: empty image %dx%d", ErrEncodingFailed, b.Dx(), b.Dy())
	}

	src := Downscale(img, e.opts.MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: e.opts.Quality}); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return Payload{
		MIMEType: MIMEJPEG,
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Downscale shrinks img so its longer side is at most maxDim, keeping the
// aspect ratio. Images already within bounds are returned unchanged.
func Downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	nw, nh := maxDim, maxDim
	if w >= h {
		nh = max(1, h*maxDim/w)
	} else {
		nw = max(1, w*maxDim/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Decode reverses Encode. Only round-trip tests call it.
func Decode(p Payload) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return img, nil
}
