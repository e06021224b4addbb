package store

import (
	"context"

	"github.com/google/uuid"
)

// Queue defines the job queue operations.
// Implementations must claim atomically: one job leaves queued for exactly one caller.
type Queue interface {
	// ClaimNext moves the oldest queued job of jobType to processing, together with the
	// explorer its payload names. Returns nil, nil when the queue is empty.
	ClaimNext(ctx context.Context, jobType JobType) (*Job, error)

	// Fail marks a processing job as failed with errMsg and returns its explorer from
	// processing to queued, the status it had before the claim.
	Fail(ctx context.Context, id uuid.UUID, errMsg string) error

	// GetJob returns a job by its ID.
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)

	// ListJobs returns jobs matching filter, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]Job, error)

	// Count returns the number of queued jobs.
	Count(ctx context.Context) (int64, error)
}
