package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/owid/owid-grapher-sub039/internal/store"
)

// txStore implements store.Tx on one database transaction.
type txStore struct {
	tx *sql.Tx
}

// explorerLockClass namespaces explorer advisory locks from other users of
// pg_advisory_xact_lock on the same database.
const explorerLockClass = 39

func (t *txStore) LockExplorer(ctx context.Context, slug string) error {
	if _, err := t.tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1, hashtext($2))", explorerLockClass, slug); err != nil {
		return fmt.Errorf("failed to lock explorer %s: %w", slug, err)
	}
	return nil
}

func (t *txStore) GetExplorer(ctx context.Context, slug string) (*store.Explorer, error) {
	return getExplorer(ctx, t.tx, slug)
}

func (t *txStore) SaveExplorer(ctx context.Context, e *store.Explorer) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO explorers (`+explorerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO UPDATE SET
			tsv = EXCLUDED.tsv,
			is_published = EXCLUDED.is_published,
			views_refresh_status = EXCLUDED.views_refresh_status,
			last_commit_message = EXCLUDED.last_commit_message,
			updated_at = EXCLUDED.updated_at
	`, e.Slug, e.TSV, e.IsPublished, e.ViewsRefreshStatus, e.LastCommitMessage, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save explorer %s: %w", e.Slug, err)
	}
	return nil
}

func (t *txStore) Enqueue(ctx context.Context, job *store.Job) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO jobs (id, type, payload, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, job.ID, job.Type, []byte(job.Payload), job.State, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return nil
}

func (t *txStore) GetChart(ctx context.Context, id int) (*store.Chart, error) {
	var (
		c      store.Chart
		config []byte
	)
	err := t.tx.QueryRowContext(ctx, "SELECT id, config FROM charts WHERE id = $1", id).Scan(&c.ID, &config)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("chart %d", id))
	}
	c.Config = config
	return &c, nil
}

func (t *txStore) ListViews(ctx context.Context, slug string) ([]store.ExplorerView, error) {
	return listViews(ctx, t.tx, slug)
}

func (t *txStore) GetChartConfig(ctx context.Context, id uuid.UUID) (*store.ChartConfig, error) {
	return getChartConfig(ctx, t.tx, id)
}

func (t *txStore) InsertChartConfig(ctx context.Context, c *store.ChartConfig) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO chart_configs (`+chartConfigColumns+`)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, []byte(c.Config), c.ConfigHash, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert chart config %s: %w", c.ID, err)
	}
	return nil
}

func (t *txStore) DeleteChartConfigs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := t.tx.ExecContext(ctx, "DELETE FROM chart_configs WHERE id = ANY($1)", pq.Array(uuidStrings(ids)))
	if err != nil {
		return fmt.Errorf("failed to delete chart configs: %w", err)
	}
	return nil
}

func (t *txStore) SaveView(ctx context.Context, v *store.ExplorerView) error {
	dims, err := json.Marshal(v.Dimensions)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO explorer_views (`+viewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (explorer_slug, view_id) DO UPDATE SET
			dimensions = EXCLUDED.dimensions,
			chart_config_id = EXCLUDED.chart_config_id,
			updated_at = EXCLUDED.updated_at
	`, v.ID, v.ExplorerSlug, dims, v.ViewID, v.ChartConfigID, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save view %s: %w", v.ViewID, err)
	}
	return nil
}

func (t *txStore) DeleteViews(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := t.tx.ExecContext(ctx, "DELETE FROM explorer_views WHERE id = ANY($1)", pq.Array(uuidStrings(ids)))
	if err != nil {
		return fmt.Errorf("failed to delete views: %w", err)
	}
	return nil
}

func (t *txStore) CompleteJob(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE jobs
		SET state = $1, error = NULL, updated_at = NOW()
		WHERE id = $2 AND state = $3
	`, store.JobStateDone, id, store.JobStateProcessing)
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	return expectOneRow(res, "processing job "+id.String())
}

func (t *txStore) MarkViewsRefreshed(ctx context.Context, slug string) (store.RefreshStatus, error) {
	var status store.RefreshStatus
	err := t.tx.QueryRowContext(ctx, `
		UPDATE explorers
		SET views_refresh_status = CASE
				WHEN EXISTS (
					SELECT 1 FROM jobs
					WHERE type = $2 AND state = $3 AND payload ->> 'slug' = $1
				) THEN $3
				ELSE $4
			END,
			updated_at = NOW()
		WHERE slug = $1
		RETURNING views_refresh_status
	`, slug, store.JobTypeRefreshExplorerViews, store.JobStateQueued, store.RefreshStatusClean).Scan(&status)
	if err != nil {
		return "", notFound(err, "explorer "+slug)
	}
	return status, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
