package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/e7canasta/orion-playout/internal/config"
	"github.com/e7canasta/orion-playout/internal/core"
)

const defaultConfigPath = "config/playout.yaml"

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "config", *configPath, "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logLevel := slog.LevelInfo
	if *debug || cfg.Debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting playout service",
		"config", *configPath,
		"instance_id", cfg.InstanceID,
		"debug", logLevel == slog.LevelDebug,
	)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	server, err := core.NewServer(cfg, logger)
	if err != nil {
		slog.Error("failed to create playout server", "error", err)
		os.Exit(1)
	}

	// Start health check HTTP server (non-blocking)
	if err := server.StartHealthServer(cfg.HTTP.Addr); err != nil {
		slog.Error("failed to start health check server", "error", err)
		os.Exit(1)
	}

	// Run server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run(ctx) // Always send, even if nil
	}()

	// Wait for shutdown signal or error
	exitCode := 0
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			slog.Error("server error", "error", err)
			exitCode = 1
		}
	}

	// Graceful shutdown
	shutdownTimeout := server.ShutdownTimeout()
	slog.Info("shutting down gracefully", "timeout", shutdownTimeout)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
		exitCode = 1
	}

	slog.Info("playout service stopped")
	os.Exit(exitCode)
}
