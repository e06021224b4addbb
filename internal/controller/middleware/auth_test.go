package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/owid/owid-grapher-sub039/internal/auth"
	"github.com/owid/owid-grapher-sub039/pkg/api"
)

func TestRequireAdminToken(t *testing.T) {
	tokenHash := auth.HashKey("editor-token")

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Missing header",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Missing authorization header",
		},
		{
			name:           "Wrong scheme",
			header:         "Basic editor-token",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid authorization header",
		},
		{
			name:           "Empty token",
			header:         "Bearer ",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid authorization header",
		},
		{
			name:           "Wrong token",
			header:         "Bearer other-token",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid authorization token",
		},
		{
			name:           "Valid token",
			header:         "Bearer editor-token",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := RequireAdminToken(tokenHash)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/explorers/co2/publish", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("got status %d, want %d", rr.Code, tt.expectedStatus)
			}
			if called != (tt.expectedStatus == http.StatusOK) {
				t.Errorf("handler called = %v", called)
			}
			if tt.expectedError == "" {
				return
			}
			var resp api.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if resp.Error != tt.expectedError || resp.Code != "401" {
				t.Errorf("got error %+v, want %q", resp, tt.expectedError)
			}
		})
	}
}

func TestRequireAdminToken_NoHashConfigured(t *testing.T) {
	handler := RequireAdminToken("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
