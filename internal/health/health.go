// Package health implements the liveness and readiness endpoints.
//
// /healthz answers 200 whenever the process can serve HTTP. /readyz runs the
// registered [Checker] probes and answers 200 only when all of them pass.
// The interview server registers probes for its dependencies: question bank
// storage, the LLM backend, the TTS backend and, when configured, the audit
// Redis. Probes run concurrently because most of them are network round
// trips. Both endpoints respond with a JSON body carrying a "status" of "ok"
// or "fail" plus a per-probe "checks" map.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkTimeout bounds a single readiness probe.
const checkTimeout = 5 * time.Second

// Checker is one named readiness probe. Check returns nil while the
// dependency is usable and an error describing the problem otherwise; it
// must honour context cancellation.
type Checker struct {
	// Name keys the probe's result in the JSON response, e.g. "questions",
	// "llm", "redis".
	Name string

	Check func(ctx context.Context) error
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the two probe endpoints. The checker list is fixed at
// construction, which makes the handler safe for concurrent requests.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] that runs the given checkers on every /readyz hit.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz answers the liveness probe. Serving the request at all is the
// signal, so it unconditionally reports ok.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz answers the readiness probe. Checkers run concurrently, each under
// its own [checkTimeout] derived from the request context; the response is
// 503 when any probe fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	var mu sync.Mutex
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	g, gctx := errgroup.WithContext(r.Context())
	for _, c := range h.checkers {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(gctx, checkTimeout)
			err := c.Check(ctx)
			cancel()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[c.Name] = "fail: " + err.Error()
				allOK = false
			} else {
				checks[c.Name] = "ok"
			}
			// Failures are reported in the body, not propagated, so one bad
			// dependency does not cancel the remaining probes.
			return nil
		})
	}
	_ = g.Wait()

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register mounts /healthz and /readyz on mux.
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
