package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/framebus"
	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

// consumeFrames moves frames from the source onto the bus. Publishing
// never blocks; the bus drop policies absorb a slow analyzer.
func (a *Alignmate) consumeFrames(ctx context.Context) {
	defer a.wg.Done()

	slog.Info("frame consumer started")

	frameCount := uint64(0)
	lastLog := time.Now()
	logInterval := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			slog.Info("frame consumer stopping", "total_frames", frameCount)
			return

		case frame, ok := <-a.source.Frames():
			if !ok {
				slog.Info("frame source channel closed", "total_frames", frameCount)
				return
			}
			frameCount++
			a.frameBus.Publish(frame)

			if time.Since(lastLog) >= logInterval {
				if stats, err := a.frameBus.Stats(analysisSubscriberID); err == nil {
					slog.Debug("pipeline stats",
						"frames_consumed", frameCount,
						"delivered", stats.Sent,
						"overwritten", stats.Dropped,
						"last_seq", frame.Seq,
					)
				}
				lastLog = time.Now()
			}
		}
	}
}

// analysisLoop runs posture scans at the configured rate against the
// latest available frame and publishes every result.
func (a *Alignmate) analysisLoop(ctx context.Context, receiver *framebus.FrameReceiver) {
	defer a.wg.Done()

	interval := time.Duration(float64(time.Second) / a.cfg.Analyzer.ScanRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("analysis worker started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("analysis worker stopping")
			return

		case <-ticker.C:
			if a.control != nil && a.control.IsPaused() {
				continue
			}

			frame, ok := receiver.TryReceive()
			if !ok {
				continue
			}

			result := a.analyzer.Analyze(ctx, frame.Image, a.currentDiscipline())
			a.recordScan(result)

			if err := a.emitter.PublishScan(result); err != nil {
				slog.Warn("scan publish failed",
					"scan_id", result.ScanID,
					"error", err,
				)
			}

			slog.Debug("scan completed",
				"scan_id", result.ScanID,
				"trace_id", frame.TraceID,
				"score", result.OverallScore,
				"status", result.PostureStatus,
				"source", result.Source,
			)
		}
	}
}

func (a *Alignmate) recordScan(result *types.AnalysisResult) {
	a.statsMu.Lock()
	a.scansTotal++
	if result.Source == types.SourceFallback {
		a.scansFallback++
	}
	a.lastScanAt = result.Timestamp
	a.statsMu.Unlock()
}
