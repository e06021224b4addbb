package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"

	"github.com/owid/owid-grapher-sub039/internal/publish"
	"github.com/owid/owid-grapher-sub039/internal/store"
)

// mockStore implements Store for testing.
type mockStore struct {
	explorers []store.Explorer
	views     []store.ExplorerView
	configs   map[uuid.UUID]*store.ChartConfig
	jobs      []store.Job

	getErr   error
	listErr  error
	pingErr  error
	gotQuery store.JobFilter
}

func (m *mockStore) GetExplorer(ctx context.Context, slug string) (*store.Explorer, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.explorers {
		if m.explorers[i].Slug == slug {
			return &m.explorers[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) ListExplorers(ctx context.Context) ([]store.Explorer, error) {
	return m.explorers, m.listErr
}

func (m *mockStore) ListViews(ctx context.Context, slug string) ([]store.ExplorerView, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []store.ExplorerView
	for _, v := range m.views {
		if v.ExplorerSlug == slug {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockStore) GetChartConfig(ctx context.Context, id uuid.UUID) (*store.ChartConfig, error) {
	if cc, ok := m.configs[id]; ok {
		return cc, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) GetJob(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.jobs {
		if m.jobs[i].ID == id {
			return &m.jobs[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) ListJobs(ctx context.Context, filter store.JobFilter) ([]store.Job, error) {
	m.gotQuery = filter
	return m.jobs, m.listErr
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

// mockPublisher implements Publisher for testing.
type mockPublisher struct {
	result publish.Result
	err    error

	gotSlug, gotTSV, gotMessage string
}

func (m *mockPublisher) Publish(ctx context.Context, slug, tsv, commitMessage string) (publish.Result, error) {
	m.gotSlug, m.gotTSV, m.gotMessage = slug, tsv, commitMessage
	return m.result, m.err
}

// mockProcessor implements Processor for testing.
type mockProcessor struct {
	processed bool
	err       error
	calls     int
}

func (m *mockProcessor) ProcessNext(ctx context.Context) (bool, error) {
	m.calls++
	return m.processed, m.err
}

func newTestHandlers(s *mockStore, p *mockPublisher, proc *mockProcessor) *Handlers {
	return New(s, p, proc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// routes mirrors the controller's route table so handlers see path values.
func routes(h *Handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /explorers/{slug}/publish", h.Publish)
	mux.HandleFunc("POST /explorers/{slug}/commands", h.ListCommands)
	mux.HandleFunc("POST /explorers/{slug}/commands/{id}", h.RunCommand)
	mux.HandleFunc("GET /explorers", h.ListExplorers)
	mux.HandleFunc("GET /explorers/{slug}", h.GetExplorer)
	mux.HandleFunc("GET /explorers/{slug}/views", h.ListViews)
	mux.HandleFunc("GET /explorers/{slug}/views/{viewId}/config", h.GetViewConfig)
	mux.HandleFunc("GET /jobs", h.ListJobs)
	mux.HandleFunc("GET /jobs/{id}", h.GetJob)
	mux.HandleFunc("POST /internal/jobs/{type}/process", h.InternalProcessJob)
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	return mux
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t interface{ Fatalf(string, ...any) }, rr *httptest.ResponseRecorder) T {
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return v
}
