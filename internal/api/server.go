// Package api serves the ledger read endpoints used by the dashboard, a
// run trigger, health and prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/storage"
)

// Runner triggers and reports sync runs.
type Runner interface {
	Trigger(ctx context.Context, since *time.Time) *domain.RunReport
	LastReport(ctx context.Context) *domain.RunReport
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Server provides the HTTP endpoints.
type Server struct {
	runner Runner
	ledger storage.Ledger
	checks map[string]HealthCheck
	server *http.Server
	log    *slog.Logger
}

// NewServer creates a new server listening on port.
func NewServer(runner Runner, ledger storage.Ledger, port int) *Server {
	s := &Server{
		runner: runner,
		ledger: ledger,
		checks: make(map[string]HealthCheck),
		log:    slog.Default().With("component", "api"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// AddHealthCheck registers a dependency probe reported by /health.
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/ledger/{partition}", s.handleLedger)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/report/last", s.handleLastReport)
	mux.HandleFunc("POST /api/runs", s.handleRun)
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	details := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			details[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		details[name] = "ok"
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": details})
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	p, err := domain.ParsePartition(r.PathValue("partition"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var body any
	switch {
	case storage.IsTxPartition(p):
		body, err = s.ledger.Rows(r.Context(), p)
	case p == domain.PartitionRecycleBin:
		body, err = s.ledger.RecycleBin(r.Context())
	default:
		body, err = s.ledger.Statuses(r.Context())
	}
	if err != nil {
		s.log.Error("ledger read failed", "partition", p, "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.ledger.Statuses(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleLastReport(w http.ResponseWriter, r *http.Request) {
	report := s.runner.LastReport(r.Context())
	if report == nil {
		writeError(w, http.StatusNotFound, errors.New("no run yet"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var since *time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := ParseSince(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		since = &t
	}

	report := s.runner.Trigger(r.Context(), since)
	code := http.StatusOK
	switch {
	case report.Skipped:
		code = http.StatusConflict
	case !report.Success:
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, report)
}

// ParseSince accepts RFC 3339 timestamps and plain dates (UTC midnight).
func ParseSince(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid since %q: want RFC3339 or YYYY-MM-DD", v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
