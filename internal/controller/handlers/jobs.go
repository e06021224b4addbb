package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/owid/owid-grapher-sub039/internal/logger"
	"github.com/owid/owid-grapher-sub039/internal/store"
	"github.com/owid/owid-grapher-sub039/pkg/api"
)

var jobStates = map[store.JobState]bool{
	store.JobStateQueued:     true,
	store.JobStateProcessing: true,
	store.JobStateDone:       true,
	store.JobStateFailed:     true,
}

// GetJob handles GET /jobs/{id}.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid job id", http.StatusBadRequest)
		return
	}

	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Failed to load job", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, toJobResponse(job))
}

// ListJobs handles GET /jobs?state=&type=&slug=&limit=.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.JobFilter{
		State: store.JobState(q.Get("state")),
		Type:  store.JobType(q.Get("type")),
		Slug:  q.Get("slug"),
	}
	if filter.State != "" && !jobStates[filter.State] {
		h.httpError(w, "Invalid state", http.StatusBadRequest)
		return
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > 1000 {
			h.httpError(w, "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	jobs, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.httpError(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}

	resp := make([]api.JobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, toJobResponse(&jobs[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// InternalProcessJob handles POST /internal/jobs/{type}/process.
// A scheduler calls it to run exactly one queued job of the type.
func (h *Handlers) InternalProcessJob(w http.ResponseWriter, r *http.Request) {
	if store.JobType(r.PathValue("type")) != store.JobTypeRefreshExplorerViews {
		h.httpError(w, "Unknown job type", http.StatusNotFound)
		return
	}

	processed, err := h.processor.ProcessNext(r.Context())
	if err != nil && !processed {
		logger.FromContext(r.Context(), h.log).Error("claim failed", "error", err)
		h.httpError(w, "Failed to claim job", http.StatusInternalServerError)
		return
	}

	resp := api.ProcessResponse{Processed: processed}
	if err != nil {
		// The job itself failed and is recorded as such.
		resp.Error = err.Error()
	}
	h.respondJson(w, http.StatusOK, resp)
}

func toJobResponse(j *store.Job) api.JobResponse {
	return api.JobResponse{
		ID:        j.ID.String(),
		Type:      string(j.Type),
		State:     string(j.State),
		Payload:   j.Payload,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
