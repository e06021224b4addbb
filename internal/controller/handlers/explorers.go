package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/owid/owid-grapher-sub039/internal/explorer"
	"github.com/owid/owid-grapher-sub039/internal/logger"
	"github.com/owid/owid-grapher-sub039/internal/slug"
	"github.com/owid/owid-grapher-sub039/internal/store"
	"github.com/owid/owid-grapher-sub039/pkg/api"
)

// Publish handles POST /explorers/{slug}/publish.
// It saves the program and, for published explorers, enqueues a view refresh. It does
// not wait for the refresh to run.
func (h *Handlers) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	explorerSlug := r.PathValue("slug")
	if explorerSlug == "" || slug.Slugify(explorerSlug) != explorerSlug {
		h.httpError(w, "Invalid explorer slug", http.StatusBadRequest)
		return
	}

	var req api.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TSV == "" {
		h.httpError(w, "tsv is required", http.StatusBadRequest)
		return
	}

	res, err := h.publisher.Publish(ctx, explorerSlug, req.TSV, req.CommitMessage)
	if errors.Is(err, explorer.ErrInvalidProgram) {
		h.httpErrorDetails(w, "Invalid explorer program", err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		logger.FromContext(ctx, h.log).Error("publish failed", "slug", explorerSlug, "error", err)
		h.httpError(w, "Failed to publish explorer", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.PublishResponse{
		Success: res.Success,
		Status:  string(res.Status),
		JobID:   res.JobID,
	})
}

// ListExplorers handles GET /explorers.
func (h *Handlers) ListExplorers(w http.ResponseWriter, r *http.Request) {
	explorers, err := h.store.ListExplorers(r.Context())
	if err != nil {
		h.httpError(w, "Failed to list explorers", http.StatusInternalServerError)
		return
	}

	resp := make([]api.ExplorerResponse, 0, len(explorers))
	for i := range explorers {
		e := toExplorerResponse(&explorers[i])
		e.TSV = ""
		resp = append(resp, e)
	}
	h.respondJson(w, http.StatusOK, resp)
}

// GetExplorer handles GET /explorers/{slug}.
func (h *Handlers) GetExplorer(w http.ResponseWriter, r *http.Request) {
	e, err := h.store.GetExplorer(r.Context(), r.PathValue("slug"))
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Explorer not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Failed to load explorer", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, toExplorerResponse(e))
}

// ListViews handles GET /explorers/{slug}/views.
func (h *Handlers) ListViews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	explorerSlug := r.PathValue("slug")

	if _, err := h.store.GetExplorer(ctx, explorerSlug); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Explorer not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to load explorer", http.StatusInternalServerError)
		return
	}

	views, err := h.store.ListViews(ctx, explorerSlug)
	if err != nil {
		h.httpError(w, "Failed to list views", http.StatusInternalServerError)
		return
	}

	resp := make([]api.ViewResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, api.ViewResponse{
			ID:            v.ID.String(),
			ViewID:        v.ViewID,
			Dimensions:    v.Dimensions,
			ChartConfigID: v.ChartConfigID.String(),
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}

// GetViewConfig handles GET /explorers/{slug}/views/{viewId}/config.
func (h *Handlers) GetViewConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := h.store.ListViews(ctx, r.PathValue("slug"))
	if err != nil {
		h.httpError(w, "Failed to list views", http.StatusInternalServerError)
		return
	}

	viewID := r.PathValue("viewId")
	for _, v := range views {
		if v.ViewID != viewID {
			continue
		}
		cc, err := h.store.GetChartConfig(ctx, v.ChartConfigID)
		if err != nil {
			h.httpError(w, "Failed to load chart config", http.StatusInternalServerError)
			return
		}
		h.respondJson(w, http.StatusOK, api.ChartConfigResponse{
			ID:         cc.ID.String(),
			ConfigHash: cc.ConfigHash,
			Config:     cc.Config,
		})
		return
	}
	h.httpError(w, "View not found", http.StatusNotFound)
}

func toExplorerResponse(e *store.Explorer) api.ExplorerResponse {
	return api.ExplorerResponse{
		Slug:               e.Slug,
		Title:              explorer.New(e.Slug, e.TSV).Title(),
		IsPublished:        e.IsPublished,
		ViewsRefreshStatus: string(e.ViewsRefreshStatus),
		LastCommitMessage:  e.LastCommitMessage,
		TSV:                e.TSV,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}
