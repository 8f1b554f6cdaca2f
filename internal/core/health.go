package core

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/e7canasta/orion-playout/internal/diagnostics"
	"github.com/e7canasta/orion-playout/internal/monitor"
	"github.com/e7canasta/orion-playout/modules/framebus"
)

// ChannelHealth contains output metrics for a channel with drop rate
type ChannelHealth struct {
	Format    string   `json:"format"`
	Consumers []string `json:"consumers"`
	Published uint64   `json:"published"`
	Dropped   uint64   `json:"dropped"`
	DropRate  float64  `json:"drop_rate"`
}

// HealthStatus represents the health state of the playout server
type HealthStatus struct {
	Status        string                 `json:"status"` // "healthy", "degraded", "unhealthy"
	UptimeSeconds int64                  `json:"uptime_seconds"`
	MQTTConnected bool                   `json:"mqtt_connected"`
	Monitor       *monitor.ExporterStats `json:"monitor,omitempty"`
	Channels      map[int]ChannelHealth  `json:"channels"`
}

// HealthCheck returns the current health status of the server
func (s *Server) HealthCheck() HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := HealthStatus{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Channels:      make(map[int]ChannelHealth, len(s.channels)),
	}

	if s.client != nil && s.client.IsConnected() {
		status.MQTTConnected = true
	}
	if s.exporter != nil {
		st := s.exporter.Stats()
		status.Monitor = &st
	}

	for _, c := range s.channels {
		stats := c.Output().Stats()
		status.Channels[c.Index()] = ChannelHealth{
			Format:    c.Format().Name,
			Consumers: c.Output().Consumers(),
			Published: stats.TotalPublished,
			Dropped:   stats.TotalDropped,
			DropRate:  framebus.CalculateDropRate(stats),
		}
	}

	// Determine overall health status
	if !s.isRunning {
		status.Status = "unhealthy"
	} else if !status.MQTTConnected {
		status.Status = "degraded"
	}

	return status
}

// LivenessHandler handles /health endpoint (simple liveness check)
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response := map[string]interface{}{
		"status": "alive",
		"uptime": int64(time.Since(s.started).Seconds()),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// ReadinessHandler handles /readiness endpoint (detailed readiness check)
// Returns 200 only if the server is ready to handle commands
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := s.HealthCheck()

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(health)
}

// DiagHandler handles /diag endpoint: the diagnostics graphs of every channel
func (s *Server) DiagHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response := struct {
		Graphs []diagnostics.Snapshot `json:"graphs"`
	}{Graphs: s.registry.Snapshot()}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// StartHealthServer starts the HTTP health check server on addr
// This runs in a separate goroutine and does not block
func (s *Server) StartHealthServer(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.LivenessHandler)
	mux.HandleFunc("/readiness", s.ReadinessHandler)
	mux.HandleFunc("/diag", s.DiagHandler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	go func() {
		slog.Info("health check server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health check server failed", "error", err)
		}
	}()

	return nil
}
