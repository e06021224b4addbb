// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import (
	"encoding/json"
	"time"
)

// PublishRequest is the request body for publishing an explorer program.
type PublishRequest struct {
	TSV           string `json:"tsv"`
	CommitMessage string `json:"commitMessage"`
}

// PublishResponse is the response body after a publish. Status is "queued" when a
// view refresh was scheduled and "clean" otherwise.
type PublishResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	JobID   string `json:"jobId,omitempty"`
}

// ExplorerResponse represents an explorer in API responses.
type ExplorerResponse struct {
	Slug               string    `json:"slug"`
	Title              string    `json:"title,omitempty"`
	IsPublished        bool      `json:"isPublished"`
	ViewsRefreshStatus string    `json:"viewsRefreshStatus"`
	LastCommitMessage  string    `json:"lastCommitMessage,omitempty"`
	TSV                string    `json:"tsv,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// ViewResponse represents one persisted view.
type ViewResponse struct {
	ID            string            `json:"id" yaml:"id"`
	ViewID        string            `json:"viewId" yaml:"viewId"`
	Dimensions    map[string]string `json:"dimensions" yaml:"dimensions"`
	ChartConfigID string            `json:"chartConfigId" yaml:"chartConfigId"`
}

// ChartConfigResponse is a materialized chart configuration.
type ChartConfigResponse struct {
	ID         string          `json:"id"`
	ConfigHash string          `json:"configHash"`
	Config     json.RawMessage `json:"config"`
}

// CommandRequest evaluates editor commands against one cell of a program.
type CommandRequest struct {
	TSV    string `json:"tsv"`
	Row    int    `json:"row"`
	Column int    `json:"column"`
}

// CommandResponse describes one command offered for the selected cell.
type CommandResponse struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

// Cell addresses one cell of a program.
type Cell struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// RunCommandResponse carries what a command produced. TSV is the program text after
// the command and Selection the cells it selected, if any.
type RunCommandResponse struct {
	TSV       string `json:"tsv"`
	Selection []Cell `json:"selection,omitempty"`
}

// JobResponse represents a refresh job in API responses.
type JobResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	State     string          `json:"state"`
	Payload   json.RawMessage `json:"payload"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ProcessResponse is returned by the scheduler hook that processes one job.
type ProcessResponse struct {
	Processed bool   `json:"processed"`
	Error     string `json:"error,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is returned by the liveness and readiness endpoints.
type HealthResponse struct {
	Status     string            `json:"status"`
	Checks     map[string]string `json:"checks,omitempty"`
	QueuedJobs *int              `json:"queuedJobs,omitempty"`
}
