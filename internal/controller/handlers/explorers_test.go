package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/owid/owid-grapher-sub039/internal/explorer"
	"github.com/owid/owid-grapher-sub039/internal/publish"
	"github.com/owid/owid-grapher-sub039/internal/store"
	"github.com/owid/owid-grapher-sub039/pkg/api"
)

const co2TSV = "explorerTitle\tCO₂\nisPublished\ttrue"

func TestPublish(t *testing.T) {
	validBody, _ := json.Marshal(api.PublishRequest{TSV: co2TSV, CommitMessage: "Add CO₂"})

	tests := []struct {
		name           string
		target         string
		body           string
		publisher      *mockPublisher
		expectedStatus int
		expectedInBody string
	}{
		{
			name:           "Success",
			target:         "/explorers/co2/publish",
			body:           string(validBody),
			publisher:      &mockPublisher{result: publish.Result{Success: true, Status: store.RefreshStatusQueued, JobID: "job-1"}},
			expectedStatus: http.StatusOK,
			expectedInBody: `"status":"queued"`,
		},
		{
			name:           "Invalid JSON",
			target:         "/explorers/co2/publish",
			body:           `{invalid-json}`,
			publisher:      &mockPublisher{},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Invalid request body",
		},
		{
			name:           "Missing TSV",
			target:         "/explorers/co2/publish",
			body:           `{"commitMessage": "empty"}`,
			publisher:      &mockPublisher{},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "tsv is required",
		},
		{
			name:           "Slug Not Normalized",
			target:         "/explorers/CO2/publish",
			body:           string(validBody),
			publisher:      &mockPublisher{},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Invalid explorer slug",
		},
		{
			name:           "Invalid Program",
			target:         "/explorers/co2/publish",
			body:           string(validBody),
			publisher:      &mockPublisher{err: fmt.Errorf("%w: row 4: table has no path", explorer.ErrInvalidProgram)},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedInBody: "table has no path",
		},
		{
			name:           "Store Failure",
			target:         "/explorers/co2/publish",
			body:           string(validBody),
			publisher:      &mockPublisher{err: errors.New("connection reset")},
			expectedStatus: http.StatusInternalServerError,
			expectedInBody: "Failed to publish explorer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := routes(newTestHandlers(&mockStore{}, tt.publisher, &mockProcessor{}))
			rr := do(h, http.MethodPost, tt.target, tt.body)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if !strings.Contains(rr.Body.String(), tt.expectedInBody) {
				t.Errorf("handler returned unexpected body: got %v want substring %v", rr.Body.String(), tt.expectedInBody)
			}
		})
	}
}

func TestPublish_PassesRequestToPublisher(t *testing.T) {
	p := &mockPublisher{result: publish.Result{Success: true, Status: store.RefreshStatusClean}}
	h := routes(newTestHandlers(&mockStore{}, p, &mockProcessor{}))

	body, _ := json.Marshal(api.PublishRequest{TSV: co2TSV, CommitMessage: "Tweak title"})
	rr := do(h, http.MethodPost, "/explorers/co2/publish", string(body))

	if p.gotSlug != "co2" || p.gotTSV != co2TSV || p.gotMessage != "Tweak title" {
		t.Errorf("publisher got (%q, %q, %q)", p.gotSlug, p.gotTSV, p.gotMessage)
	}
	resp := decode[api.PublishResponse](t, rr)
	if diff := cmp.Diff(api.PublishResponse{Success: true, Status: "clean"}, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestGetExplorer(t *testing.T) {
	s := &mockStore{explorers: []store.Explorer{{
		Slug:               "co2",
		TSV:                co2TSV,
		IsPublished:        true,
		ViewsRefreshStatus: store.RefreshStatusProcessing,
	}}}
	h := routes(newTestHandlers(s, &mockPublisher{}, &mockProcessor{}))

	rr := do(h, http.MethodGet, "/explorers/co2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d", rr.Code)
	}
	resp := decode[api.ExplorerResponse](t, rr)
	if resp.Title != "CO₂" || resp.ViewsRefreshStatus != "processing" || !resp.IsPublished || resp.TSV != co2TSV {
		t.Errorf("unexpected response %+v", resp)
	}

	if rr := do(h, http.MethodGet, "/explorers/energy", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown explorer: got status %d, want 404", rr.Code)
	}

	s.getErr = errors.New("db down")
	if rr := do(h, http.MethodGet, "/explorers/co2", ""); rr.Code != http.StatusInternalServerError {
		t.Errorf("store error: got status %d, want 500", rr.Code)
	}
}

func TestListExplorers_OmitsProgramText(t *testing.T) {
	s := &mockStore{explorers: []store.Explorer{{Slug: "co2", TSV: co2TSV}, {Slug: "energy"}}}
	h := routes(newTestHandlers(s, &mockPublisher{}, &mockProcessor{}))

	rr := do(h, http.MethodGet, "/explorers", "")
	resp := decode[[]api.ExplorerResponse](t, rr)
	if len(resp) != 2 || resp[0].Slug != "co2" || resp[0].TSV != "" || resp[0].Title != "CO₂" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestListViews(t *testing.T) {
	configID := uuid.New()
	viewRowID := uuid.New()
	s := &mockStore{
		explorers: []store.Explorer{{Slug: "co2"}, {Slug: "energy"}},
		views: []store.ExplorerView{
			{ID: viewRowID, ExplorerSlug: "co2", Dimensions: map[string]string{"gas": "co2"}, ViewID: "co2", ChartConfigID: configID},
			{ID: uuid.New(), ExplorerSlug: "other", ViewID: "x"},
		},
		configs: map[uuid.UUID]*store.ChartConfig{
			configID: {ID: configID, ConfigHash: "abc", Config: json.RawMessage(`{"title":"CO2"}`)},
		},
	}
	h := routes(newTestHandlers(s, &mockPublisher{}, &mockProcessor{}))

	rr := do(h, http.MethodGet, "/explorers/co2/views", "")
	want := []api.ViewResponse{{ID: viewRowID.String(), ViewID: "co2", Dimensions: map[string]string{"gas": "co2"}, ChartConfigID: configID.String()}}
	if diff := cmp.Diff(want, decode[[]api.ViewResponse](t, rr)); diff != "" {
		t.Errorf("views mismatch (-want +got):\n%s", diff)
	}

	rr = do(h, http.MethodGet, "/explorers/energy/views", "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("explorer without views: got %d %q", rr.Code, rr.Body.String())
	}

	if rr := do(h, http.MethodGet, "/explorers/missing/views", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown explorer: got status %d, want 404", rr.Code)
	}

	rr = do(h, http.MethodGet, "/explorers/co2/views/co2/config", "")
	cc := decode[api.ChartConfigResponse](t, rr)
	if cc.ID != configID.String() || cc.ConfigHash != "abc" || string(cc.Config) != `{"title":"CO2"}` {
		t.Errorf("unexpected chart config %+v", cc)
	}

	if rr := do(h, http.MethodGet, "/explorers/co2/views/ch4/config", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown view: got status %d, want 404", rr.Code)
	}
}
