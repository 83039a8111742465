// Package preprocess converts captured frames into the fixed-size tensors
// the pose models expect.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

// padGray is the neutral letterbox fill. The value matches what the pose
// models were trained against.
const padGray = 114

// Letterbox resizes img preserving aspect ratio, centers it on a square
// gray canvas of targetSize, and returns a channel-first float32 tensor
// normalized to [0,1]. Stretching is never applied: the downstream keypoint
// geometry assumes aspect-preserving placement.
func Letterbox(img image.Image, targetSize int) ([]float32, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", types.ErrInvalidImage)
	}
	if targetSize <= 0 {
		return nil, fmt.Errorf("%w: target size %d", types.ErrInvalidImage, targetSize)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: zero-area image %dx%d", types.ErrInvalidImage, w, h)
	}

	scale := min(float64(targetSize)/float64(w), float64(targetSize)/float64(h))
	scaledW := int(float64(w) * scale)
	scaledH := int(float64(h) * scale)
	if scaledW < 1 {
		scaledW = 1
	}
	if scaledH < 1 {
		scaledH = 1
	}

	scaled := resize.Resize(uint(scaledW), uint(scaledH), img, resize.Bilinear)

	canvas := image.NewRGBA(image.Rect(0, 0, targetSize, targetSize))
	draw.Draw(canvas, canvas.Bounds(),
		image.NewUniform(color.RGBA{padGray, padGray, padGray, 255}),
		image.Point{}, draw.Src)

	offX := (targetSize - scaledW) / 2
	offY := (targetSize - scaledH) / 2
	draw.Draw(canvas,
		image.Rect(offX, offY, offX+scaledW, offY+scaledH),
		scaled, scaled.Bounds().Min, draw.Src)

	// CHW packing: plane per channel, /255 scaling only.
	area := targetSize * targetSize
	tensor := make([]float32, 3*area)
	for y := 0; y < targetSize; y++ {
		row := y * targetSize
		for x := 0; x < targetSize; x++ {
			i := canvas.PixOffset(x, y)
			tensor[row+x] = float32(canvas.Pix[i]) / 255
			tensor[area+row+x] = float32(canvas.Pix[i+1]) / 255
			tensor[2*area+row+x] = float32(canvas.Pix[i+2]) / 255
		}
	}
	return tensor, nil
}
