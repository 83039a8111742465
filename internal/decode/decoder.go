// Package decode parses raw pose-model output into a single best detection.
package decode

import (
	"fmt"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

// Layout describes the channel arrangement of the raw output tensor. The
// default matches the single-stage pose family this system ships with:
// C channels by N candidate slots, flattened channel-major, objectness in
// channel 4, then (x, y, confidence) triplets per keypoint with each value
// N slots apart. Models with a different head plug in their own Layout.
type Layout struct {
	// ConfidenceChannel holds per-candidate objectness.
	ConfidenceChannel int
	// KeypointStart is the first keypoint channel.
	KeypointStart int
	// NumKeypoints is the number of landmarks per candidate (K).
	NumKeypoints int
}

// Channels returns the total channel count C implied by the layout.
func (l Layout) Channels() int {
	return l.KeypointStart + 3*l.NumKeypoints
}

// DefaultLayout is the 17-landmark pose head: 4 box channels, 1 objectness,
// 51 keypoint channels.
func DefaultLayout() Layout {
	return Layout{
		ConfidenceChannel: 4,
		KeypointStart:     5,
		NumKeypoints:      int(types.NumLandmarks),
	}
}

// Decoder extracts the highest-confidence candidate from raw output.
type Decoder struct {
	layout Layout
}

// New creates a decoder for the given output layout.
func New(layout Layout) *Decoder {
	return &Decoder{layout: layout}
}

// Decode scans all candidate slots, selects the one with maximum objectness
// (first slot wins ties, so the scan is deterministic), and extracts its K
// keypoints with x/y normalized by inputSize. If no candidate reaches
// threshold the returned detection is empty.
//
// This is the numerically hot path: one linear pass, no per-candidate
// allocation.
func (d *Decoder) Decode(output []float32, inputSize int, threshold float64) (types.Detection, error) {
	channels := d.layout.Channels()
	if inputSize <= 0 {
		return types.Detection{}, fmt.Errorf("%w: input size %d", types.ErrDecode, inputSize)
	}
	if len(output) == 0 || len(output)%channels != 0 {
		return types.Detection{}, fmt.Errorf("%w: output length %d not divisible by %d channels",
			types.ErrDecode, len(output), channels)
	}
	n := len(output) / channels

	confRow := output[d.layout.ConfidenceChannel*n : (d.layout.ConfidenceChannel+1)*n]
	best := 0
	bestConf := confRow[0]
	for i := 1; i < n; i++ {
		if confRow[i] > bestConf {
			bestConf = confRow[i]
			best = i
		}
	}

	if float64(bestConf) < threshold {
		return types.Detection{}, nil
	}

	kps := make([]types.Keypoint, d.layout.NumKeypoints)
	size := float64(inputSize)
	for k := 0; k < d.layout.NumKeypoints; k++ {
		base := d.layout.KeypointStart + 3*k
		kps[k] = types.Keypoint{
			X:          float64(output[base*n+best]) / size,
			Y:          float64(output[(base+1)*n+best]) / size,
			Confidence: float64(output[(base+2)*n+best]),
			Name:       types.Landmark(k).String(),
		}
	}
	return types.Detection{Keypoints: kps}, nil
}
