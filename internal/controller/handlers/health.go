package handlers

import (
	"net/http"

	"github.com/owid/owid-grapher-sub039/internal/store"
	"github.com/owid/owid-grapher-sub039/pkg/api"
)

// backlogSample caps how many queued refresh jobs readiness counts.
const backlogSample = 100

// Healthz reports that the controller process is serving.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, api.HealthResponse{Status: "alive"})
}

// Readyz reports whether explorer reads and publishes can be served. The store must
// answer and the refresh queue must be listable; the queued count is informational.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok", "queue": "ok", "catalog": "absent"}
	if h.catalog != nil {
		checks["catalog"] = "ok"
	}

	if err := h.store.Ping(r.Context()); err != nil {
		h.log.Warn("readiness: store unreachable", "error", err)
		checks["store"] = err.Error()
		checks["queue"] = "skipped"
		h.respondJson(w, http.StatusServiceUnavailable, api.HealthResponse{Status: "unavailable", Checks: checks})
		return
	}

	queued, err := h.store.ListJobs(r.Context(), store.JobFilter{
		State: store.JobStateQueued,
		Type:  store.JobTypeRefreshExplorerViews,
		Limit: backlogSample,
	})
	if err != nil {
		h.log.Warn("readiness: refresh queue unreadable", "error", err)
		checks["queue"] = err.Error()
		h.respondJson(w, http.StatusServiceUnavailable, api.HealthResponse{Status: "unavailable", Checks: checks})
		return
	}

	n := len(queued)
	h.respondJson(w, http.StatusOK, api.HealthResponse{Status: "ready", Checks: checks, QueuedJobs: &n})
}
