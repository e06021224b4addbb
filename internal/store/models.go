// Package store contains the persistence layer for explorers, their views and the
// refresh job queue.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// RefreshStatus tracks whether an explorer's persisted views are current.
type RefreshStatus string

const (
	RefreshStatusClean      RefreshStatus = "clean"
	RefreshStatusQueued     RefreshStatus = "queued"
	RefreshStatusProcessing RefreshStatus = "processing"
)

// Explorer is the persisted explorer record.
type Explorer struct {
	Slug               string
	TSV                string
	IsPublished        bool
	ViewsRefreshStatus RefreshStatus
	LastCommitMessage  string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// JobType names the kind of work a job carries.
type JobType string

const JobTypeRefreshExplorerViews JobType = "refresh_explorer_views"

// JobState is the lifecycle state of a job. Jobs only move forward:
// queued -> processing -> done | failed.
type JobState string

const (
	JobStateQueued     JobState = "queued"
	JobStateProcessing JobState = "processing"
	JobStateDone       JobState = "done"
	JobStateFailed     JobState = "failed"
)

// Job is one unit of deferred work.
type Job struct {
	ID        uuid.UUID
	Type      JobType
	Payload   json.RawMessage
	State     JobState
	Error     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefreshExplorerViewsPayload is the payload of a refresh_explorer_views job. It only
// names the explorer; processing always reads the current program.
type RefreshExplorerViewsPayload struct {
	Slug string `json:"slug"`
}

// NewRefreshJob builds a queued refresh job for the explorer slug.
func NewRefreshJob(slug string) (*Job, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate job id: %w", err)
	}
	payload, err := json.Marshal(RefreshExplorerViewsPayload{Slug: slug})
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Job{
		ID:        id,
		Type:      JobTypeRefreshExplorerViews,
		Payload:   payload,
		State:     JobStateQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ExplorerSlug decodes the explorer slug from a refresh job's payload.
func (j *Job) ExplorerSlug() (string, error) {
	var p RefreshExplorerViewsPayload
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return "", fmt.Errorf("invalid payload for job %s: %w", j.ID, err)
	}
	if p.Slug == "" {
		return "", fmt.Errorf("job %s has no explorer slug", j.ID)
	}
	return p.Slug, nil
}

// JobFilter narrows ListJobs. Zero fields match everything.
type JobFilter struct {
	State JobState
	Type  JobType
	Slug  string
	Limit int
}

// Chart is a base chart definition owned by the charts collaborator.
type Chart struct {
	ID     int
	Config json.RawMessage
}

// ChartConfig is a materialized chart configuration referenced by a view.
type ChartConfig struct {
	ID         uuid.UUID
	Config     json.RawMessage
	ConfigHash string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExplorerView is one persisted view of an explorer.
type ExplorerView struct {
	ID            uuid.UUID
	ExplorerSlug  string
	Dimensions    map[string]string
	ViewID        string
	ChartConfigID uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
