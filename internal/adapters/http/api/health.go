package api

import (
	"net/http"

	"github.com/okian/kartboard/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessProvider reports whether fresh data is being served.
type ReadinessProvider interface {
	Ready() bool
}

// HealthHandler handles health check and metrics requests.
type HealthHandler struct {
	readiness ReadinessProvider
	metrics   http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(readiness ReadinessProvider) *HealthHandler {
	return &HealthHandler{
		readiness: readiness,
		metrics:   promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

// HandleHealth handles GET /healthz. The process is healthy while it can
// answer; "degraded" means an older or seeded snapshot is being served.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	ready := h.readiness.Ready()
	status := "ok"
	if !ready {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: status, Ready: ready})
}

// HandleMetrics handles GET /metrics using our custom registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
