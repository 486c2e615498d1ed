package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"combatsim/broker/internal/catalog"
	"combatsim/broker/internal/combat"
	"combatsim/broker/internal/logging"
	"combatsim/broker/internal/simulation"
)

// ReadinessProvider exposes service state required for readiness checks.
type ReadinessProvider interface {
	StartupError() error
	Uptime() time.Duration
}

// RateLimiter gates how frequently each client may start simulations.
type RateLimiter interface {
	Allow(client string) bool
}

// Options configures the HandlerSet.
type Options struct {
	Logger          *logging.Logger
	Readiness       ReadinessProvider
	Catalog         *catalog.Catalog
	Runner          *simulation.Runner
	RateLimiter     RateLimiter
	MaxPayloadBytes int64
	AllowedOrigins  []string
	PingInterval    time.Duration
	TimeSource      func() time.Time
}

// HandlerSet bundles the simulation API and operational handlers.
type HandlerSet struct {
	logger          *logging.Logger
	readiness       ReadinessProvider
	catalog         *catalog.Catalog
	runner          *simulation.Runner
	rateLimiter     RateLimiter
	maxPayloadBytes int64
	allowedOrigins  map[string]bool
	pingInterval    time.Duration
	now             func() time.Time
}

// NewHandlerSet constructs a HandlerSet using the provided options.
func NewHandlerSet(opts Options) *HandlerSet {
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}
	now := opts.TimeSource
	if now == nil {
		now = time.Now
	}
	runner := opts.Runner
	if runner == nil {
		runner = simulation.NewRunner(simulation.WithLogger(logger))
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	pingInterval := opts.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	origins := make(map[string]bool, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		origins[strings.TrimSpace(origin)] = true
	}
	return &HandlerSet{
		logger:          logger,
		readiness:       opts.Readiness,
		catalog:         cat,
		runner:          runner,
		rateLimiter:     opts.RateLimiter,
		maxPayloadBytes: opts.MaxPayloadBytes,
		allowedOrigins:  origins,
		pingInterval:    pingInterval,
		now:             now,
	}
}

// Register attaches all handlers to the provided mux.
func (h *HandlerSet) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/livez", h.LivenessHandler())
	mux.HandleFunc("/readyz", h.ReadinessHandler())
	mux.HandleFunc("/metrics", h.MetricsHandler())
	mux.HandleFunc("POST /simulate", h.SimulateHandler())
	mux.HandleFunc("GET /catalog/bots", h.BotsHandler())
	mux.HandleFunc("GET /catalog/bots/{name}", h.BotHandler())
	mux.HandleFunc("GET /catalog/weapons", h.WeaponsHandler())
	mux.HandleFunc("GET /simulations", h.RunsHandler())
	mux.HandleFunc("POST /simulations/{id}/cancel", h.CancelHandler())
	mux.HandleFunc("/ws/simulate", h.StreamHandler())
}

// LivenessHandler reports that the HTTP server is reachable.
func (h *HandlerSet) LivenessHandler() http.HandlerFunc {
	type response struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response{
			Status:    "alive",
			Timestamp: h.now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// ReadinessHandler reports whether the catalog loaded and how many runs are in flight.
func (h *HandlerSet) ReadinessHandler() http.HandlerFunc {
	type response struct {
		Status        string  `json:"status"`
		Message       string  `json:"message,omitempty"`
		UptimeSeconds float64 `json:"uptime_seconds"`
		ActiveRuns    int     `json:"active_runs"`
		Bots          int     `json:"bots"`
		Parts         int     `json:"parts"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		resp := response{Status: "ok", ActiveRuns: h.runner.Registry().Len()}
		resp.Parts, resp.Bots = h.catalog.Len()
		if h.readiness != nil {
			resp.UptimeSeconds = h.readiness.Uptime().Seconds()
			if err := h.readiness.StartupError(); err != nil {
				status = http.StatusServiceUnavailable
				resp.Status = "error"
				resp.Message = err.Error()
			}
		}
		writeJSON(w, status, resp)
	}
}

// MetricsHandler emits Prometheus compatible text metrics.
func (h *HandlerSet) MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := h.runner.Monitor().Snapshot()
		uptime := 0.0
		if h.readiness != nil {
			uptime = h.readiness.Uptime().Seconds()
		}

		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(w, "# HELP combatsim_uptime_seconds Service uptime in seconds.\n")
		fmt.Fprintf(w, "# TYPE combatsim_uptime_seconds gauge\n")
		fmt.Fprintf(w, "combatsim_uptime_seconds %.0f\n", uptime)

		fmt.Fprintf(w, "# HELP combatsim_active_runs Simulations currently in flight.\n")
		fmt.Fprintf(w, "# TYPE combatsim_active_runs gauge\n")
		fmt.Fprintf(w, "combatsim_active_runs %d\n", h.runner.Registry().Len())

		fmt.Fprintf(w, "# HELP combatsim_trials_total Trials simulated across all runs.\n")
		fmt.Fprintf(w, "# TYPE combatsim_trials_total counter\n")
		fmt.Fprintf(w, "combatsim_trials_total %d\n", snapshot.Trials)

		fmt.Fprintf(w, "# HELP combatsim_batch_seconds Trial batch durations.\n")
		fmt.Fprintf(w, "# TYPE combatsim_batch_seconds gauge\n")
		fmt.Fprintf(w, "combatsim_batch_seconds{stat=\"average\"} %.6f\n", snapshot.AverageBatch.Seconds())
		fmt.Fprintf(w, "combatsim_batch_seconds{stat=\"max\"} %.6f\n", snapshot.MaxBatch.Seconds())
		fmt.Fprintf(w, "combatsim_batch_seconds{stat=\"last\"} %.6f\n", snapshot.LastBatch.Seconds())

		fmt.Fprintf(w, "# HELP combatsim_trials_per_second Observed simulation throughput.\n")
		fmt.Fprintf(w, "# TYPE combatsim_trials_per_second gauge\n")
		fmt.Fprintf(w, "combatsim_trials_per_second %.2f\n", snapshot.TrialsPerSecond())

		statuses := make([]string, 0, len(snapshot.Runs))
		for status := range snapshot.Runs {
			statuses = append(statuses, string(status))
		}
		sort.Strings(statuses)
		fmt.Fprintf(w, "# HELP combatsim_runs_total Finished runs by terminal status.\n")
		fmt.Fprintf(w, "# TYPE combatsim_runs_total counter\n")
		for _, status := range statuses {
			fmt.Fprintf(w, "combatsim_runs_total{status=%q} %d\n", status, snapshot.Runs[simulation.Status(status)])
		}
	}
}

// RunsHandler lists the simulations currently in flight.
func (h *HandlerSet) RunsHandler() http.HandlerFunc {
	type response struct {
		Runs []simulation.RunInfo `json:"runs"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response{Runs: h.runner.Registry().List()})
	}
}

// CancelHandler requests cancellation of an in-flight simulation.
func (h *HandlerSet) CancelHandler() http.HandlerFunc {
	type response struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := h.runner.Registry().Cancel(id); err != nil {
			if errors.Is(err, simulation.ErrRunNotFound) {
				writeError(w, http.StatusNotFound, err.Error(), "")
				return
			}
			writeError(w, http.StatusInternalServerError, "unexpected error", "")
			return
		}
		logging.LoggerFromContext(r.Context()).Info("simulation cancel requested", logging.String("run_id", id))
		writeJSON(w, http.StatusAccepted, response{Status: "cancelling", ID: id})
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message, field string) {
	writeJSON(w, status, errorResponse{Error: message, Field: field})
}

// writeRunError maps simulation errors onto HTTP statuses. Configuration errors expose
// their reason; everything else collapses to a generic message.
func writeRunError(w http.ResponseWriter, err error) {
	var configErr *combat.ConfigError
	if errors.As(err, &configErr) {
		writeError(w, http.StatusBadRequest, configErr.Error(), configErr.Field)
		return
	}
	writeError(w, http.StatusInternalServerError, "unexpected error", "")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}
