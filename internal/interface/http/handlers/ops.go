package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// MetricsSource returns a JSON-encodable snapshot.
type MetricsSource func() any

// OpsHandler serves liveness, readiness and metrics for the service.
type OpsHandler struct {
	checker HealthChecker
	started time.Time

	mu      sync.RWMutex
	sources map[string]MetricsSource
}

// NewOpsHandler creates the handler. A nil checker reports always ready.
func NewOpsHandler(checker HealthChecker) *OpsHandler {
	if checker == nil {
		checker = NewNoopHealthChecker()
	}
	return &OpsHandler{
		checker: checker,
		started: time.Now(),
		sources: make(map[string]MetricsSource),
	}
}

// AddMetrics publishes a named snapshot under /metrics.
func (h *OpsHandler) AddMetrics(name string, src MetricsSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sources[name] = src
}

// Live answers as long as the process serves HTTP.
func (h *OpsHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Ready runs every registered check; any failure yields 503.
func (h *OpsHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := h.checker.Check(r.Context())
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Metrics writes every registered snapshot keyed by name.
func (h *OpsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	names := make([]string, 0, len(h.sources))
	for name := range h.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(map[string]any, len(names))
	for _, name := range names {
		out[name] = h.sources[name]()
	}
	h.mu.RUnlock()

	writeJSON(w, http.StatusOK, out)
}

// Register mounts the ops routes on mux.
func (h *OpsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /livez", h.Live)
	mux.HandleFunc("GET /healthz", h.Ready)
	mux.HandleFunc("GET /readyz", h.Ready)
	mux.HandleFunc("GET /metrics", h.Metrics)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
