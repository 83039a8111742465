package types

import "errors"

// Pipeline error taxonomy. The model loader and inference runner surface
// these to their direct caller; the analyzer is the only place they are
// caught and converted into a degraded-but-valid result.
var (
	// ErrModelUnavailable means no registered model descriptor could be
	// loaded. The loader records this state terminally; it is not retried
	// automatically.
	ErrModelUnavailable = errors.New("model unavailable: no descriptor could be loaded")

	// ErrInvalidImage means the input image is zero-area or undecodable.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInference means the session is not ready or the input tensor does
	// not match the session's declared shape.
	ErrInference = errors.New("inference failed")

	// ErrDecode means the raw network output has an unexpected shape.
	ErrDecode = errors.New("output decode failed")
)
