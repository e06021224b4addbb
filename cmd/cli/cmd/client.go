package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/owid/owid-grapher-sub039/pkg/api"
)

// ExplorerClient handles API calls to the explorer views controller.
type ExplorerClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewExplorerClient creates a new client with the given base URL and token.
func NewExplorerClient(baseURL, token string) *ExplorerClient {
	return &ExplorerClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// do sends a request and decodes a 200 response into out.
func (c *ExplorerClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.Token != "" {
		httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var apiErr api.ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
			if apiErr.Details != "" {
				msg += ": " + apiErr.Details
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Publish sends POST /explorers/{slug}/publish.
func (c *ExplorerClient) Publish(slug string, req api.PublishRequest) (*api.PublishResponse, error) {
	var result api.PublishResponse
	if err := c.do(http.MethodPost, "/explorers/"+url.PathEscape(slug)+"/publish", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetExplorer sends GET /explorers/{slug}.
func (c *ExplorerClient) GetExplorer(slug string) (*api.ExplorerResponse, error) {
	var result api.ExplorerResponse
	if err := c.do(http.MethodGet, "/explorers/"+url.PathEscape(slug), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListViews sends GET /explorers/{slug}/views.
func (c *ExplorerClient) ListViews(slug string) ([]api.ViewResponse, error) {
	var result []api.ViewResponse
	if err := c.do(http.MethodGet, "/explorers/"+url.PathEscape(slug)+"/views", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListJobs sends GET /jobs with the non-empty filters.
func (c *ExplorerClient) ListJobs(slug, state string, limit int) ([]api.JobResponse, error) {
	q := url.Values{}
	if slug != "" {
		q.Set("slug", slug)
	}
	if state != "" {
		q.Set("state", state)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	path := "/jobs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result []api.JobResponse
	if err := c.do(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
