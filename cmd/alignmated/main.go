package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/config"
	"github.com/Dextarfinity/alignmate--commission-sub000/internal/core"
)

const defaultConfigPath = "config/alignmate.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	healthPort := flag.String("health-port", "8080", "Health check HTTP port")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting alignmate sensor",
		"config", *configPath,
		"debug", *debug,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	service, err := core.New(cfg, nil)
	if err != nil {
		slog.Error("failed to create alignmate service", "error", err)
		os.Exit(1)
	}

	if err := service.StartHealthServer(*healthPort); err != nil {
		slog.Error("failed to start health server", "error", err)
		os.Exit(1)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- service.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			slog.Error("service error", "error", err)
		} else {
			slog.Info("service stopped (via control command)")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), service.ShutdownTimeout())
	defer shutdownCancel()

	if err := service.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("alignmate sensor stopped")
}
