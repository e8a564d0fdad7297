// Package httpserver exposes the attribution report over HTTP.
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/radiusdt/roas-attribution/internal/config"
	"github.com/radiusdt/roas-attribution/internal/metrics"
	"github.com/radiusdt/roas-attribution/internal/middleware"
	"github.com/radiusdt/roas-attribution/internal/report"
	"go.uber.org/zap"
)

// HealthChecker reports reachability of a backing store.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies wires the server's collaborators.
type Dependencies struct {
	Reports *report.Service
	Config  *config.Config
	Logger  *zap.Logger
	Health  map[string]HealthChecker
}

// NewServer builds the HTTP handler with middleware applied.
func NewServer(deps *Dependencies) http.Handler {
	s := &server{deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/report/range", s.handleRangeReport)
	mux.HandleFunc("/health", s.handleHealth)
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	var handler http.Handler = mux
	if deps.Config.RateLimit.Enabled {
		rl := middleware.NewRateLimitMiddleware(deps.Config.RateLimit.RPS, deps.Config.RateLimit.Burst, deps.Logger)
		handler = rl.Handler(handler)
	}
	handler = middleware.NewLoggingMiddleware(deps.Logger).Handler(handler)
	handler = middleware.NewRecoveryMiddleware(deps.Logger).Handler(handler)
	return handler
}

type server struct {
	deps *Dependencies
}

// handleReport runs a full attribution report for one user and date.
// GET /report?user_id=...&date=YYYY-MM-DD&ad_account_id=...
func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	q := r.URL.Query()
	req := report.Request{
		UserID:      q.Get("user_id"),
		Date:        q.Get("date"),
		AdAccountID: q.Get("ad_account_id"),
	}

	rep, err := s.deps.Reports.GetReport(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleRangeReport runs one report per day of an inclusive date span.
// GET /report/range?user_id=...&since=YYYY-MM-DD&until=YYYY-MM-DD&ad_account_id=...
func (s *server) handleRangeReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	q := r.URL.Query()
	req := report.RangeRequest{
		UserID:      q.Get("user_id"),
		Since:       q.Get("since"),
		Until:       q.Get("until"),
		AdAccountID: q.Get("ad_account_id"),
	}

	reps, err := s.deps.Reports.GetRangeReport(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reps)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.deps.Health))
	for name, hc := range s.deps.Health {
		if hc == nil {
			checks[name] = "disabled"
			continue
		}
		if err := hc.Health(r.Context()); err != nil {
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, checks)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
