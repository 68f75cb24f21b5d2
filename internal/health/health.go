// Package health provides the HTTP liveness and readiness probes of the
// Resonance server.
//
//   - /healthz — liveness; always 200 while the process serves HTTP.
//   - /readyz  — readiness; 200 only when every registered check passes.
//     The availability monitor's Ready method is the main check: the service
//     is ready after one completed model health check, or while offline mode
//     can serve draws locally.
//
// Responses are JSON objects with a top-level "status" field ("ok" or
// "fail") and a "checks" map with one entry per named check.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Check probes one dependency. It must respect context cancellation and
// return nil when the dependency can serve.
type Check func(ctx context.Context) error

type namedCheck struct {
	name  string
	check Check
}

// result is the JSON response body of both probes.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the /healthz and /readyz endpoints. Safe for concurrent
// use; checks are fixed once registered.
type Handler struct {
	checks []namedCheck
}

// New creates an empty Handler. Register checks with [Handler.AddCheck]
// before wiring the routes.
func New() *Handler {
	return &Handler{}
}

// AddCheck registers a named readiness check. Checks run sequentially in
// registration order on every /readyz request.
func (h *Handler) AddCheck(name string, check Check) *Handler {
	h.checks = append(h.checks, namedCheck{name: name, check: check})
	return h
}

// Healthz is the liveness probe. A process that can answer is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz is the readiness probe. It returns 200 only when every registered
// check passes, 503 otherwise, with per-check outcomes in the body.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checks))
	allOK := true

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.check(ctx)
		cancel()

		if err != nil {
			checks[c.name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
