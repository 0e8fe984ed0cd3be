// Package health serves liveness, readiness and Prometheus endpoints for the scheduler daemon.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/edge-backtester/internal/logger"
)

// Readiness states reported by /ready
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusNotReady = "not_ready"
)

const (
	defaultPort        = "8080"
	defaultMetricsPath = "/metrics"
	checkTimeout       = 3 * time.Second
)

var errNotStarted = errors.New("scheduler not started")

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// LastRunReporter exposes the outcome of the most recent scheduled run.
type LastRunReporter interface {
	LastRun() (time.Time, error)
}

// HealthResponse is the body of /health and /live.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse is the body of /ready. Checks maps each check name to "ok" or its failure.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks"`
	LastRun  string            `json:"last_run,omitempty"`
	Duration string            `json:"duration"`
}

// check is one readiness probe. A failing critical check makes the daemon not ready;
// any other failure only degrades it.
type check struct {
	name     string
	critical bool
	run      func(ctx context.Context) error
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        string
	Logger      *logrus.Logger
	DB          DatabasePinger
	Runs        LastRunReporter
	// Metrics is mounted at MetricsPath (default /metrics) when set.
	Metrics     http.Handler
	MetricsPath string
}

// Server answers probes for the scheduled backtest daemon.
type Server struct {
	cfg    Config
	checks []check
	server *http.Server
	logger *logrus.Entry

	mu    sync.RWMutex
	ready bool
}

// NewServer creates a health server. Readiness always includes the daemon state; the
// database and the last scheduled run are checked when configured.
func NewServer(cfg Config) *Server {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = defaultMetricsPath
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.OrDiscard(cfg.Logger).WithField("component", "health"),
	}
	s.checks = append(s.checks, check{name: "scheduler", critical: true, run: s.daemonCheck})
	if cfg.DB != nil {
		s.checks = append(s.checks, check{name: "database", critical: true, run: cfg.DB.Ping})
	}
	if cfg.Runs != nil {
		s.checks = append(s.checks, check{name: "last_run", run: s.lastRunCheck})
	}
	return s
}

// SetReady marks the daemon as started or stopping.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the daemon has been marked ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the routes served by the health server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/live", s.handleLive)
	mux.HandleFunc("/ready", s.handleReady)
	if s.cfg.Metrics != nil {
		mux.Handle(s.cfg.MetricsPath, s.cfg.Metrics)
	}
	return mux
}

// Start serves in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithFields(logrus.Fields{
			"port":    s.cfg.Port,
			"service": s.cfg.ServiceName,
			"metrics": s.cfg.Metrics != nil,
		}).Info("Health server starting")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Health server stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()
	return nil
}

// Shutdown stops the server, waiting up to five seconds for open requests.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Health server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) daemonCheck(context.Context) error {
	if !s.IsReady() {
		return errNotStarted
	}
	return nil
}

func (s *Server) lastRunCheck(context.Context) error {
	_, err := s.cfg.Runs.LastRun()
	return err
}

// Readiness evaluates every check and returns the overall status with per-check results.
func (s *Server) Readiness(ctx context.Context) ReadyResponse {
	start := time.Now()
	resp := ReadyResponse{
		Status:  StatusOK,
		Service: s.cfg.ServiceName,
		Checks:  make(map[string]string, len(s.checks)),
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	for _, c := range s.checks {
		err := c.run(ctx)
		if err == nil {
			resp.Checks[c.name] = StatusOK
			continue
		}
		resp.Checks[c.name] = fmt.Sprintf("failed: %v", err)
		switch {
		case c.critical:
			resp.Status = StatusNotReady
		case resp.Status == StatusOK:
			resp.Status = StatusDegraded
		}
	}

	if s.cfg.Runs != nil {
		resp.LastRun = "pending"
		if at, _ := s.cfg.Runs.LastRun(); !at.IsZero() {
			resp.LastRun = at.UTC().Format(time.RFC3339)
		}
	}
	resp.Duration = time.Since(start).String()
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    StatusOK,
		Service:   s.cfg.ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.cfg.Version,
		Commit:    s.cfg.Commit,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: StatusOK, Service: s.cfg.ServiceName})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := s.Readiness(r.Context())
	code := http.StatusOK
	if resp.Status == StatusNotReady {
		code = http.StatusServiceUnavailable
		s.logger.WithField("checks", resp.Checks).Warn("Readiness check failed")
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
