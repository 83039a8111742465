package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// HealthStatus represents the health state of the sensor.
type HealthStatus struct {
	Status        string    `json:"status"` // "healthy", "degraded"
	UptimeSeconds int64     `json:"uptime_seconds"`
	ModelReady    bool      `json:"model_ready"`
	Model         string    `json:"model,omitempty"`
	MQTTConnected bool      `json:"mqtt_connected"`
	SourceRunning bool      `json:"source_running"`
	ScansTotal    uint64    `json:"scans_total"`
	ScansFallback uint64    `json:"scans_fallback"`
	LastScanAt    time.Time `json:"last_scan_at,omitempty"`
}

// HealthCheck returns the current health status.
func (a *Alignmate) HealthCheck() HealthStatus {
	a.mu.RLock()
	started := a.started
	running := a.isRunning
	a.mu.RUnlock()

	status := HealthStatus{
		Status:        "healthy",
		SourceRunning: running && a.source.Stats().IsRunning,
	}
	if !started.IsZero() {
		status.UptimeSeconds = int64(time.Since(started).Seconds())
	}

	if desc, ok := a.loader.Current(); ok {
		status.ModelReady = true
		status.Model = desc.ID
	}
	if a.emitter != nil && a.emitter.Client != nil && a.emitter.Client.IsConnected() {
		status.MQTTConnected = true
	}

	a.statsMu.Lock()
	status.ScansTotal = a.scansTotal
	status.ScansFallback = a.scansFallback
	status.LastScanAt = a.lastScanAt
	a.statsMu.Unlock()

	// Degraded when local inference is unavailable: scans still flow but
	// they are synthetic.
	if !status.ModelReady || !status.MQTTConnected {
		status.Status = "degraded"
	}

	return status
}

// StartHealthServer exposes the health snapshot on an HTTP endpoint.
func (a *Alignmate) StartHealthServer(port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(a.HealthCheck()); err != nil {
			slog.Error("health encode failed", "error", err)
		}
	})

	server := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server failed", "error", err)
		}
	}()

	slog.Info("health server started", "port", port)
	return nil
}

// healthLoop periodically publishes the health snapshot over MQTT.
func (a *Alignmate) healthLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, err := json.Marshal(a.HealthCheck())
			if err != nil {
				slog.Error("health marshal failed", "error", err)
				continue
			}
			if err := a.emitter.PublishHealth(payload); err != nil {
				slog.Debug("health publish failed", "error", err)
			}
		}
	}
}
