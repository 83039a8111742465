package preprocess

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestLetterboxRejectsInvalidInput(t *testing.T) {
	if _, err := Letterbox(nil, 64); !errors.Is(err, types.ErrInvalidImage) {
		t.Errorf("nil image: expected ErrInvalidImage, got %v", err)
	}
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := Letterbox(empty, 64); !errors.Is(err, types.ErrInvalidImage) {
		t.Errorf("zero-area image: expected ErrInvalidImage, got %v", err)
	}
	if _, err := Letterbox(solidImage(10, 10, color.RGBA{A: 255}), 0); !errors.Is(err, types.ErrInvalidImage) {
		t.Errorf("zero target: expected ErrInvalidImage, got %v", err)
	}
}

func TestLetterboxTensorShape(t *testing.T) {
	tensor, err := Letterbox(solidImage(100, 50, color.RGBA{255, 0, 0, 255}), 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tensor) != 3*64*64 {
		t.Fatalf("expected tensor length %d, got %d", 3*64*64, len(tensor))
	}
	for i, v := range tensor {
		if v < 0 || v > 1 {
			t.Fatalf("tensor[%d] = %v outside [0,1]", i, v)
		}
	}
}

func TestLetterboxPadsWithGray(t *testing.T) {
	// A 100x50 source at target 64 scales to 64x32 and sits at rows
	// [16, 48): the first rows are pure padding.
	tensor, err := Letterbox(solidImage(100, 50, color.RGBA{255, 0, 0, 255}), 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	area := 64 * 64
	gray := float32(114) / 255
	for _, idx := range []int{0, area, 2 * area} {
		if tensor[idx] != gray {
			t.Errorf("corner channel value %v, want padding %v", tensor[idx], gray)
		}
	}

	// Center of the canvas lands inside the scaled red image.
	center := 32*64 + 32
	if tensor[center] != 1 {
		t.Errorf("center red channel %v, want 1", tensor[center])
	}
	if tensor[area+center] != 0 || tensor[2*area+center] != 0 {
		t.Errorf("center green/blue (%v, %v), want 0",
			tensor[area+center], tensor[2*area+center])
	}
}

func TestLetterboxSquareInputFillsCanvas(t *testing.T) {
	tensor, err := Letterbox(solidImage(128, 128, color.RGBA{0, 0, 255, 255}), 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	area := 64 * 64
	// No padding survives: every blue-channel value is the source color.
	for _, idx := range []int{0, 63, 32*64 + 32, area - 1} {
		if tensor[2*area+idx] != 1 {
			t.Errorf("blue channel at %d = %v, want 1", idx, tensor[2*area+idx])
		}
	}
}
