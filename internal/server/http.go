package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ThomasMiz/whereyoufrom/internal"
)

// Monitor is the optional HTTP server exposing health, stats, and Prometheus
// metrics endpoints. It observes the responder core but takes no part in
// answering clients.
type Monitor struct {
	server *http.Server
	logger *slog.Logger
	core   *Server
}

// NewMonitor creates a monitoring server listening on addr. The registry
// must be the one the responder's metrics are registered on.
func NewMonitor(addr string, logger *slog.Logger, core *Server, registry *prometheus.Registry) *Monitor {
	m := &Monitor{
		logger: logger,
		core:   core,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", m.handleHealth)
	mux.HandleFunc("/stats", m.handleStats)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	m.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return m
}

// Start begins serving in the background.
func (m *Monitor) Start() {
	m.logger.Info("Starting monitoring HTTP server", slog.String("address", m.server.Addr))

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Monitoring HTTP server error", slog.String("error", err.Error()))
		}
	}()
}

// Stop gracefully stops the monitoring server.
func (m *Monitor) Stop(ctx context.Context) error {
	m.logger.Debug("Stopping monitoring HTTP server")
	return m.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint.
func (m *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tcp, udp := m.core.BoundAddresses()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service": map[string]interface{}{
			"name":    internal.Name,
			"version": internal.Version(),
		},
		"listeners": map[string]interface{}{
			"tcp": tcp,
			"udp": udp,
		},
	}
	if start := m.core.StartTime(); !start.IsZero() {
		health["uptime"] = time.Since(start).String()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStats implements the /stats endpoint.
func (m *Monitor) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tcp, udp := m.core.BoundAddresses()

	stats := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"tcp": map[string]interface{}{
			"listeners": len(tcp),
			"addresses": tcp,
		},
		"udp": map[string]interface{}{
			"sockets":   len(udp),
			"addresses": udp,
		},
	}
	if start := m.core.StartTime(); !start.IsZero() {
		stats["uptime"] = time.Since(start).String()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
