package model

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

// Loader owns the single live inference session. It walks the registry in
// preference order on first load, keeps the first session that comes up,
// and records a terminal unavailable state when every descriptor fails.
//
// Concurrency: the load mutex guarantees at most one load attempt in
// flight; a concurrent EnsureLoaded caller blocks until the in-flight
// attempt resolves and then observes its outcome. Inference runs are
// serialized separately so a long forward pass never blocks readiness
// checks.
type Loader struct {
	registry *Registry
	factory  SessionFactory

	mu          sync.Mutex // guards session, unavailable
	session     Session
	unavailable bool

	inferMu sync.Mutex // serializes Run against the live session
}

// NewLoader creates a loader over the given registry. factory defaults to
// the ONNX runtime session factory when nil.
func NewLoader(registry *Registry, factory SessionFactory) *Loader {
	if factory == nil {
		factory = NewORTSession
	}
	return &Loader{registry: registry, factory: factory}
}

// EnsureLoaded makes sure a session exists, attempting descriptors in
// preference order starting at the named preference. It is idempotent: if
// a session already exists it returns immediately without touching it.
//
// When every descriptor fails the loader reports types.ErrModelUnavailable
// and will keep reporting it without re-attempting until Unload is called.
func (l *Loader) EnsureLoaded(ctx context.Context, preference string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session != nil {
		return nil
	}
	if l.unavailable {
		return types.ErrModelUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, desc := range l.registry.StartingAt(preference) {
		sess, err := l.factory(desc)
		if err != nil {
			slog.Warn("model load attempt failed",
				"model", desc.ID,
				"path", desc.Path,
				"error", err,
			)
			continue
		}
		l.session = sess
		slog.Info("model loaded",
			"model", desc.ID,
			"input_size", desc.InputSize,
			"confidence", desc.Confidence,
		)
		return nil
	}

	l.unavailable = true
	slog.Error("no pose model could be loaded", "descriptors", l.registry.Len())
	return types.ErrModelUnavailable
}

// IsReady reports whether a live session exists.
func (l *Loader) IsReady() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session != nil
}

// Current returns the descriptor of the live session, false when none.
func (l *Loader) Current() (Descriptor, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil {
		return Descriptor{}, false
	}
	return l.session.Descriptor(), true
}

// Run executes one forward pass against the live session. Runs are
// serialized; the tensor runtime is not assumed to support concurrent
// execution on a single session. There is no retry policy here.
func (l *Loader) Run(input []float32) ([]float32, error) {
	l.mu.Lock()
	sess := l.session
	l.mu.Unlock()

	if sess == nil {
		return nil, fmt.Errorf("%w: session not ready", types.ErrInference)
	}
	desc := sess.Descriptor()
	if want := 3 * desc.InputSize * desc.InputSize; len(input) != want {
		return nil, fmt.Errorf("%w: tensor length %d, %s expects %d",
			types.ErrInference, len(input), desc.ID, want)
	}

	l.inferMu.Lock()
	defer l.inferMu.Unlock()

	out, err := sess.Run(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrInference, desc.ID, err)
	}
	return out, nil
}

// Unload releases the live session, if any, and clears the terminal
// unavailable state so a later explicit EnsureLoaded may try again.
func (l *Loader) Unload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.unavailable = false
	if l.session == nil {
		return nil
	}
	desc := l.session.Descriptor()
	err := l.session.Close()
	l.session = nil
	if err != nil {
		return fmt.Errorf("close session %s: %w", desc.ID, err)
	}
	slog.Info("model unloaded", "model", desc.ID)
	return nil
}
