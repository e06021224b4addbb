package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/owid/owid-grapher-sub039/internal/store"
)

const jobColumns = "id, type, payload, state, error, created_at, updated_at"

// ClaimNext claims the oldest queued job of jobType using SELECT ... FOR UPDATE SKIP LOCKED,
// so concurrent workers never receive the same job. Returns nil, nil if the queue is empty.
func (s *Store) ClaimNext(ctx context.Context, jobType store.JobType) (*store.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	job, err := scanJob(tx.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE state = $1 AND type = $2
		ORDER BY created_at ASC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, store.JobStateQueued, jobType))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim query failed: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET state = $1, updated_at = NOW()
		WHERE id = $2 AND state = $3
	`, store.JobStateProcessing, job.ID, store.JobStateQueued)
	if err != nil {
		return nil, fmt.Errorf("claim update failed: %w", err)
	}
	if err := expectOneRow(res, "job "+job.ID.String()); err != nil {
		return nil, err
	}

	if slug, err := job.ExplorerSlug(); err == nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE explorers
			SET views_refresh_status = $1, updated_at = NOW()
			WHERE slug = $2
		`, store.RefreshStatusProcessing, slug); err != nil {
			return nil, fmt.Errorf("failed to mark explorer %s processing: %w", slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	job.State = store.JobStateProcessing
	return job, nil
}

// Fail moves a processing job to failed and restores its explorer to queued.
func (s *Store) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var payload []byte
	err = tx.QueryRowContext(ctx, `
		UPDATE jobs
		SET state = $1, error = $2, updated_at = NOW()
		WHERE id = $3 AND state = $4
		RETURNING payload
	`, store.JobStateFailed, errMsg, id, store.JobStateProcessing).Scan(&payload)
	if err != nil {
		return notFound(err, "processing job "+id.String())
	}

	job := store.Job{ID: id, Payload: payload}
	if slug, err := job.ExplorerSlug(); err == nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE explorers
			SET views_refresh_status = $1, updated_at = NOW()
			WHERE slug = $2 AND views_refresh_status = $3
		`, store.RefreshStatusQueued, slug, store.RefreshStatusProcessing); err != nil {
			return fmt.Errorf("failed to restore explorer %s status: %w", slug, err)
		}
	}

	return tx.Commit()
}

// GetJob returns a job by its ID.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = $1", id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("job %s: %w", id, store.ErrNotFound)
	}
	return job, err
}

// ListJobs returns jobs matching filter, newest first.
func (s *Store) ListJobs(ctx context.Context, filter store.JobFilter) ([]store.Job, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.State != "" {
		args = append(args, filter.State)
		conds = append(conds, fmt.Sprintf("state = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Slug != "" {
		args = append(args, filter.Slug)
		conds = append(conds, fmt.Sprintf("payload ->> 'slug' = $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	whereClause := ""
	if len(conds) > 0 {
		whereClause = "WHERE " + strings.Join(conds, " AND ")
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM jobs
		%s
		ORDER BY created_at DESC
		LIMIT $%d
	`, jobColumns, whereClause, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs query failed: %w", err)
	}
	defer rows.Close()

	var jobs []store.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs scan failed: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Count returns the number of queued jobs.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs WHERE state = $1", store.JobStateQueued).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func scanJob(row rowScanner) (*store.Job, error) {
	var (
		job     store.Job
		payload []byte
		errMsg  sql.NullString
	)
	err := row.Scan(&job.ID, &job.Type, &payload, &job.State, &errMsg, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	job.Payload = payload
	if errMsg.Valid {
		job.Error = &errMsg.String
	}
	return &job, nil
}
