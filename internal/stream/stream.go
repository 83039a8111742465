// Package stream defines the frame source boundary. Real capture (device
// camera, RTSP, app upload) lives in a collaborator process behind the
// Source interface; this package ships a synthetic source for the daemon's
// standalone mode and for tests.
package stream

import (
	"context"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

// Source produces captured frames.
type Source interface {
	// Start begins producing frames until the context is cancelled or
	// Stop is called.
	Start(ctx context.Context) error
	// Frames returns the frame channel. Closed on shutdown.
	Frames() <-chan types.Frame
	// Stop stops the source and closes the frame channel.
	Stop() error
	// Stats returns a snapshot of source statistics.
	Stats() Stats
}

// Stats contains frame source statistics.
type Stats struct {
	FramesEmitted uint64
	FPSTarget     int
	IsRunning     bool
}
