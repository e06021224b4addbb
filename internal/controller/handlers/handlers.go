// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/owid/owid-grapher-sub039/internal/datasource"
	"github.com/owid/owid-grapher-sub039/internal/publish"
	"github.com/owid/owid-grapher-sub039/internal/store"
	"github.com/owid/owid-grapher-sub039/pkg/api"
)

// Store combines the read interfaces the controller needs.
type Store interface {
	store.ExplorerStore
	GetJob(ctx context.Context, id uuid.UUID) (*store.Job, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]store.Job, error)
	Ping(ctx context.Context) error
}

// Publisher saves explorer programs and schedules their refresh.
type Publisher interface {
	Publish(ctx context.Context, slug, tsv, commitMessage string) (publish.Result, error)
}

// Processor runs one queued job.
type Processor interface {
	ProcessNext(ctx context.Context) (bool, error)
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store     Store
	publisher Publisher
	processor Processor
	catalog   datasource.Catalog
	log       *slog.Logger
}

// New creates a new Handlers instance with the given dependencies.
func New(s Store, p Publisher, proc Processor, log *slog.Logger) *Handlers {
	return &Handlers{store: s, publisher: p, processor: proc, log: log}
}

// WithCatalog sets the data source catalog used by editor commands that read
// column metadata.
func (h *Handlers) WithCatalog(c datasource.Catalog) *Handlers {
	h.catalog = c
	return h
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

func (h *Handlers) httpErrorDetails(w http.ResponseWriter, message, details string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error:   message,
		Code:    strconv.Itoa(code),
		Details: details,
	})
}
