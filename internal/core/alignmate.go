// Package core wires the sensor together: frame source, frame bus,
// posture analyzer, result emitter and control plane.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/analyzer"
	"github.com/Dextarfinity/alignmate--commission-sub000/internal/config"
	"github.com/Dextarfinity/alignmate--commission-sub000/internal/control"
	"github.com/Dextarfinity/alignmate--commission-sub000/internal/emitter"
	"github.com/Dextarfinity/alignmate--commission-sub000/internal/framebus"
	"github.com/Dextarfinity/alignmate--commission-sub000/internal/model"
	"github.com/Dextarfinity/alignmate--commission-sub000/internal/remote"
	"github.com/Dextarfinity/alignmate--commission-sub000/internal/stream"
	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

const analysisSubscriberID = "posture-analyzer"

// Alignmate is the main service orchestrator.
type Alignmate struct {
	cfg *config.Config

	source   stream.Source
	frameBus *framebus.Bus
	loader   *model.Loader
	analyzer *analyzer.Analyzer
	emitter  *emitter.MQTTEmitter
	control  *control.Handler

	started   time.Time
	mu        sync.RWMutex
	wg        sync.WaitGroup
	isRunning bool

	discipline types.Discipline

	statsMu       sync.Mutex
	scansTotal    uint64
	scansFallback uint64
	lastScanAt    time.Time

	cancelRun context.CancelFunc // for the shutdown control command
}

// New creates the service from configuration. source may be nil, in which
// case a synthetic source at the configured stream shape is used.
func New(cfg *config.Config, source stream.Source) (*Alignmate, error) {
	descriptors := make([]model.Descriptor, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		descriptors = append(descriptors, model.Descriptor{
			ID:         m.ID,
			Path:       m.Path,
			InputSize:  m.InputSize,
			Confidence: m.Confidence,
		})
	}
	registry, err := model.NewRegistry(descriptors)
	if err != nil {
		return nil, fmt.Errorf("build model registry: %w", err)
	}

	loader := model.NewLoader(registry, nil)

	var opts []analyzer.Option
	if cfg.Remote.Host != "" {
		opts = append(opts, analyzer.WithRemote(remote.NewClient(remote.Config{
			Host:    cfg.Remote.Host,
			Timeout: time.Duration(cfg.Remote.TimeoutS) * time.Second,
		})))
		slog.Info("remote analyzer configured", "host", cfg.Remote.Host)
	}

	if source == nil {
		source = stream.NewSyntheticSource(cfg.Stream.Width, cfg.Stream.Height, cfg.Stream.FPS, "synthetic")
	}

	a := &Alignmate{
		cfg:        cfg,
		source:     source,
		frameBus:   framebus.New(),
		loader:     loader,
		analyzer:   analyzer.New(loader, cfg.Analyzer.Preference, opts...),
		emitter:    emitter.NewMQTTEmitter(cfg),
		discipline: types.Discipline(cfg.Analyzer.Discipline),
	}
	return a, nil
}

// Run starts the service and blocks until the context is cancelled or a
// shutdown command arrives.
func (a *Alignmate) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.isRunning {
		a.mu.Unlock()
		return fmt.Errorf("service is already running")
	}
	a.isRunning = true
	a.started = time.Now()
	a.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	a.cancelRun = cancel
	a.mu.Unlock()

	// Warm the model up front so the first scan is not penalized. Failure
	// is not fatal: the analyzer degrades per its own policy.
	if err := a.loader.EnsureLoaded(runCtx, a.cfg.Analyzer.Preference); err != nil {
		slog.Warn("model warm-up failed, scans will degrade", "error", err)
	}

	if err := a.emitter.Connect(runCtx); err != nil {
		return fmt.Errorf("emitter connect: %w", err)
	}

	a.control = control.NewHandler(a.cfg, a.emitter.Client, control.Callbacks{
		OnGetStatus:          a.statusSnapshot,
		OnPause:              func() error { return nil },
		OnResume:             func() error { return nil },
		OnSetModelPreference: a.setModelPreference,
		OnSetDiscipline:      a.setDiscipline,
		OnShutdown: func() error {
			slog.Info("shutdown requested via control plane")
			cancel()
			return nil
		},
	})
	if err := a.control.Start(runCtx); err != nil {
		return fmt.Errorf("control plane start: %w", err)
	}

	receiver, err := a.frameBus.SubscribeDropOld(analysisSubscriberID)
	if err != nil {
		return fmt.Errorf("subscribe analysis worker: %w", err)
	}

	if err := a.source.Start(runCtx); err != nil {
		return fmt.Errorf("start frame source: %w", err)
	}

	a.wg.Add(3)
	go a.consumeFrames(runCtx)
	go a.analysisLoop(runCtx, receiver)
	go a.healthLoop(runCtx)

	slog.Info("alignmate sensor running",
		"instance_id", a.cfg.InstanceID,
		"discipline", a.discipline,
		"scan_rate_hz", a.cfg.Analyzer.ScanRateHz,
	)

	<-runCtx.Done()
	return nil
}

// Shutdown releases all resources. Blocks until workers exit or the
// context expires.
func (a *Alignmate) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if !a.isRunning {
		a.mu.Unlock()
		return nil
	}
	a.isRunning = false
	cancel := a.cancelRun
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if err := a.source.Stop(); err != nil {
		slog.Warn("frame source stop", "error", err)
	}
	a.frameBus.Close()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}

	if a.control != nil {
		if err := a.control.Stop(); err != nil {
			slog.Warn("control plane stop", "error", err)
		}
	}
	if err := a.emitter.Disconnect(); err != nil {
		slog.Warn("emitter disconnect", "error", err)
	}
	if err := a.loader.Unload(); err != nil {
		slog.Warn("model unload", "error", err)
	}

	return nil
}

// ShutdownTimeout returns the configured graceful shutdown timeout.
func (a *Alignmate) ShutdownTimeout() time.Duration {
	return time.Duration(a.cfg.ShutdownTimeoutS) * time.Second
}

func (a *Alignmate) setModelPreference(id string) error {
	found := false
	for _, m := range a.cfg.Models {
		if m.ID == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("unknown model %q", id)
	}
	a.analyzer.SetPreference(id)
	slog.Info("model preference updated", "model", id)
	return nil
}

func (a *Alignmate) setDiscipline(d string) error {
	discipline := types.Discipline(d)
	if !discipline.Valid() {
		return fmt.Errorf("unknown discipline %q", d)
	}
	a.mu.Lock()
	a.discipline = discipline
	a.mu.Unlock()
	slog.Info("discipline updated", "discipline", discipline)
	return nil
}

func (a *Alignmate) currentDiscipline() types.Discipline {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.discipline
}

func (a *Alignmate) statusSnapshot() map[string]interface{} {
	health := a.HealthCheck()
	return map[string]interface{}{
		"status":         health.Status,
		"uptime_seconds": health.UptimeSeconds,
		"discipline":     string(a.currentDiscipline()),
		"model_ready":    health.ModelReady,
		"model":          health.Model,
		"scans_total":    health.ScansTotal,
		"scans_fallback": health.ScansFallback,
	}
}
