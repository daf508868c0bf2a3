package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ThomasMiz/whereyoufrom/internal"
	"github.com/ThomasMiz/whereyoufrom/internal/cli"
	"github.com/ThomasMiz/whereyoufrom/internal/metrics"
	"github.com/ThomasMiz/whereyoufrom/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	settings, err := cli.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\nType '%s --help' for a help menu\n", err, internal.Name)
		return 1
	}

	logger := initLogger(settings)

	logger.Info("Service starting",
		slog.String("service", internal.Name),
		slog.String("version", internal.Version()),
		slog.Int("tcp_addresses", len(settings.TCP)),
		slog.Int("udp_addresses", len(settings.UDP)),
	)

	registry := prometheus.NewRegistry()
	appMetrics := metrics.New(registry)

	srv := server.New(server.Options{
		TCP: settings.TCP,
		UDP: settings.UDP,
	}, logger, appMetrics)

	var monitor *server.Monitor
	if settings.Monitoring.Enabled {
		monitor = server.NewMonitor(settings.Monitoring.Address, logger, srv, registry)
		monitor.Start()
	}

	err = srv.Run(ctx)

	if monitor != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if stopErr := monitor.Stop(shutdownCtx); stopErr != nil {
			logger.Error("Error stopping monitoring HTTP server", slog.String("error", stopErr.Error()))
		}
	}

	if err != nil {
		logger.Error("Server failed", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("Service stopped")
	return 0
}

// initLogger creates the structured logger from the logging configuration,
// with the verbose/silent flags adjusting the level. Warnings and errors are
// never suppressed: failures are always reported.
func initLogger(settings *cli.Settings) *slog.Logger {
	var level slog.Level
	switch settings.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if settings.Verbose {
		level = slog.LevelDebug
	}
	if settings.Silent && level < slog.LevelWarn {
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}

	var output *os.File
	switch settings.Logging.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		file, err := os.OpenFile(settings.Logging.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", settings.Logging.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch settings.Logging.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
