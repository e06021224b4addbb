// Package publish saves explorer programs and schedules their view refresh.
package publish

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/owid/owid-grapher-sub039/internal/explorer"
	"github.com/owid/owid-grapher-sub039/internal/store"
)

// Result is the outcome of a publish.
type Result struct {
	Success bool
	Status  store.RefreshStatus
	// JobID is set when the publish enqueued a refresh job.
	JobID string
}

// Publisher persists explorer programs.
type Publisher struct {
	store store.Store
	log   *slog.Logger
	now   func() time.Time
}

// New creates a Publisher.
func New(s store.Store, log *slog.Logger) *Publisher {
	return &Publisher{
		store: s,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Publish validates and saves the program text of the explorer slug. When the program
// is published and either its text changed or its views are not clean, exactly one
// refresh job is enqueued in the same transaction. It does not wait for the refresh.
func (p *Publisher) Publish(ctx context.Context, slug, tsv, commitMessage string) (Result, error) {
	program := explorer.New(slug, tsv)
	if err := program.Validate(); err != nil {
		return Result{}, err
	}

	var result Result
	err := p.store.InTx(ctx, func(tx store.Tx) error {
		now := p.now()
		e := &store.Explorer{
			Slug:               slug,
			ViewsRefreshStatus: store.RefreshStatusClean,
			CreatedAt:          now,
		}
		changed := true

		existing, err := tx.GetExplorer(ctx, slug)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return err
		default:
			e = existing
			changed = existing.TSV != tsv
		}

		e.TSV = tsv
		e.IsPublished = program.IsPublished()
		e.LastCommitMessage = commitMessage
		e.UpdatedAt = now

		if e.IsPublished && (changed || e.ViewsRefreshStatus != store.RefreshStatusClean) {
			job, err := store.NewRefreshJob(slug)
			if err != nil {
				return err
			}
			if err := tx.Enqueue(ctx, job); err != nil {
				return err
			}
			e.ViewsRefreshStatus = store.RefreshStatusQueued
			result.JobID = job.ID.String()
		}

		if err := tx.SaveExplorer(ctx, e); err != nil {
			return err
		}
		result.Status = e.ViewsRefreshStatus
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	result.Success = true
	p.log.Info("explorer published",
		"slug", slug,
		"status", result.Status,
		"job_id", result.JobID)
	return result, nil
}
