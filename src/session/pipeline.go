package session

import (
	"context"
	"image"

	"screen-assistant/src/analysis"
	"screen-assistant/src/encoder"
)

type Encoder interface {
	Encode(img image.Image) (encoder.Payload, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, p encoder.Payload) analysis.Result
}

// Analyze runs encode and inference synchronously for an already acquired
// image. The resident process splits these steps across the event loop and
// the worker pool; one-shot tools call this directly.
func Analyze(ctx context.Context, img image.Image, enc Encoder, an Analyzer) analysis.Result {
	p, err := enc.Encode(img)
	if err != nil {
		return analysis.Failure(analysis.EncodingFailed, err.Error(), err)
	}
	return an.Analyze(ctx, p)
}
