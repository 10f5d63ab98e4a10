package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	monitor *Monitor
	server  *http.Server
}

// NewServer creates a new health server.
func NewServer(monitor *Monitor, port int) *Server {
	s := &Server{
		monitor: monitor,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	s.server.Handler = s.Handler()
	return s
}

// Handler returns the mux serving /health, /health/detailed and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start starts the HTTP server. It returns nil after Stop.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// healthResponse is the short /health body.
type healthResponse struct {
	Status       SystemStatus `json:"status"`
	SuccessRatio float64      `json:"success_ratio"`
	LoopState    string       `json:"loop_state"`
	LastTickAt   *time.Time   `json:"last_tick_at,omitempty"`
}

// handleHealth answers 503 while the system is critical.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rep := s.monitor.CheckHealth()

	code := http.StatusOK
	if rep.SystemStatus == StatusCritical {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:       rep.SystemStatus,
		SuccessRatio: rep.SuccessRatio,
		LoopState:    rep.LoopState,
		LastTickAt:   rep.LastTickAt,
	})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.monitor.CheckHealth())
}
