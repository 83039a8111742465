package model

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

type fakeSession struct {
	desc   Descriptor
	output []float32
	runs   atomic.Int64
	closed bool
}

func (s *fakeSession) Descriptor() Descriptor { return s.desc }

func (s *fakeSession) Run(input []float32) ([]float32, error) {
	s.runs.Add(1)
	return s.output, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry([]Descriptor{
		{ID: "pose-n", Path: "models/pose-n.onnx", InputSize: 64, Confidence: 0.5},
		{ID: "pose-s", Path: "models/pose-s.onnx", InputSize: 64, Confidence: 0.5},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

func TestRegistryValidation(t *testing.T) {
	cases := []struct {
		name string
		desc Descriptor
	}{
		{"missing id", Descriptor{Path: "x.onnx", InputSize: 64, Confidence: 0.5}},
		{"missing path", Descriptor{ID: "a", InputSize: 64, Confidence: 0.5}},
		{"bad input size", Descriptor{ID: "a", Path: "x.onnx", Confidence: 0.5}},
		{"confidence too high", Descriptor{ID: "a", Path: "x.onnx", InputSize: 64, Confidence: 1}},
	}
	for _, tc := range cases {
		if _, err := NewRegistry([]Descriptor{tc.desc}); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}

	dup := Descriptor{ID: "a", Path: "x.onnx", InputSize: 64, Confidence: 0.5}
	if _, err := NewRegistry([]Descriptor{dup, dup}); err == nil {
		t.Error("duplicate id: expected error")
	}
	if _, err := NewRegistry(nil); err == nil {
		t.Error("empty registry: expected error")
	}
}

func TestRegistryStartingAt(t *testing.T) {
	r := testRegistry(t)

	order := r.StartingAt("pose-s")
	if order[0].ID != "pose-s" || order[1].ID != "pose-n" {
		t.Errorf("expected rotation to pose-s first, got %v", order)
	}

	order = r.StartingAt("unknown")
	if order[0].ID != "pose-n" {
		t.Errorf("unknown preference must keep registry order, got %v", order)
	}
	order = r.StartingAt("")
	if order[0].ID != "pose-n" {
		t.Errorf("empty preference must keep registry order, got %v", order)
	}
}

func TestEnsureLoadedIsIdempotent(t *testing.T) {
	var attempts atomic.Int64
	loader := NewLoader(testRegistry(t), func(d Descriptor) (Session, error) {
		attempts.Add(1)
		return &fakeSession{desc: d}, nil
	})

	for i := 0; i < 3; i++ {
		if err := loader.EnsureLoaded(context.Background(), ""); err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("expected exactly one factory call, got %d", got)
	}
	if desc, ok := loader.Current(); !ok || desc.ID != "pose-n" {
		t.Errorf("expected pose-n loaded, got %v ok=%v", desc, ok)
	}
}

func TestEnsureLoadedFallsBackInOrder(t *testing.T) {
	loader := NewLoader(testRegistry(t), func(d Descriptor) (Session, error) {
		if d.ID == "pose-n" {
			return nil, errors.New("file not found")
		}
		return &fakeSession{desc: d}, nil
	})

	if err := loader.EnsureLoaded(context.Background(), ""); err != nil {
		t.Fatalf("expected fallback to succeed: %v", err)
	}
	if desc, _ := loader.Current(); desc.ID != "pose-s" {
		t.Errorf("expected fallback descriptor pose-s, got %q", desc.ID)
	}
}

func TestEnsureLoadedTerminalUnavailable(t *testing.T) {
	var attempts atomic.Int64
	loader := NewLoader(testRegistry(t), func(d Descriptor) (Session, error) {
		attempts.Add(1)
		return nil, errors.New("corrupt model")
	})

	if err := loader.EnsureLoaded(context.Background(), ""); !errors.Is(err, types.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	first := attempts.Load()

	// Terminal: further calls fail fast without new attempts.
	if err := loader.EnsureLoaded(context.Background(), ""); !errors.Is(err, types.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable again, got %v", err)
	}
	if attempts.Load() != first {
		t.Errorf("terminal state must not re-attempt: %d then %d", first, attempts.Load())
	}

	// Unload clears the state and re-attempting is allowed again.
	if err := loader.Unload(); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if err := loader.EnsureLoaded(context.Background(), ""); !errors.Is(err, types.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable after retry, got %v", err)
	}
	if attempts.Load() == first {
		t.Error("expected fresh attempts after Unload")
	}
}

func TestEnsureLoadedConcurrentCallersShareOneSession(t *testing.T) {
	var attempts atomic.Int64
	loader := NewLoader(testRegistry(t), func(d Descriptor) (Session, error) {
		attempts.Add(1)
		return &fakeSession{desc: d}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := loader.EnsureLoaded(context.Background(), ""); err != nil {
				t.Errorf("concurrent load: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := attempts.Load(); got != 1 {
		t.Errorf("expected a single shared load, got %d attempts", got)
	}
}

func TestRunValidation(t *testing.T) {
	loader := NewLoader(testRegistry(t), func(d Descriptor) (Session, error) {
		return &fakeSession{desc: d, output: make([]float32, 56)}, nil
	})

	// Not ready yet.
	if _, err := loader.Run(make([]float32, 3*64*64)); !errors.Is(err, types.ErrInference) {
		t.Errorf("run before load: expected ErrInference, got %v", err)
	}

	if err := loader.EnsureLoaded(context.Background(), ""); err != nil {
		t.Fatalf("load: %v", err)
	}

	// Wrong tensor length for the loaded descriptor.
	if _, err := loader.Run(make([]float32, 10)); !errors.Is(err, types.ErrInference) {
		t.Errorf("bad tensor length: expected ErrInference, got %v", err)
	}

	out, err := loader.Run(make([]float32, 3*64*64))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out) != 56 {
		t.Errorf("expected 56 output values, got %d", len(out))
	}
}

func TestUnloadClosesSession(t *testing.T) {
	sess := &fakeSession{desc: Descriptor{ID: "pose-n", Path: "x", InputSize: 64, Confidence: 0.5}}
	loader := NewLoader(testRegistry(t), func(d Descriptor) (Session, error) {
		return sess, nil
	})

	if err := loader.EnsureLoaded(context.Background(), ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := loader.Unload(); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if !sess.closed {
		t.Error("expected session closed on unload")
	}
	if loader.IsReady() {
		t.Error("expected loader not ready after unload")
	}
}
