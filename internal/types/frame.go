package types

import (
	"image"
	"time"
)

// Frame represents a single captured frame handed to the analysis pipeline.
type Frame struct {
	// Seq is the monotonic sequence number assigned by the source.
	Seq uint64
	// Timestamp is when the frame was captured/decoded.
	Timestamp time.Time
	// Image is the decoded RGB frame at its native resolution.
	Image image.Image
	// Source identifies the producing stream.
	Source string
	// TraceID is a unique identifier for tracing a frame across the pipeline.
	TraceID string
}

// Width returns the frame width in pixels, 0 when no image is attached.
func (f *Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels, 0 when no image is attached.
func (f *Frame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}
