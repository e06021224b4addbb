package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/owid/owid-grapher-sub039/internal/store"
)

const (
	explorerColumns    = "slug, tsv, is_published, views_refresh_status, last_commit_message, created_at, updated_at"
	viewColumns        = "id, explorer_slug, dimensions, view_id, chart_config_id, created_at, updated_at"
	chartConfigColumns = "id, config, config_hash, created_at, updated_at"
)

func (s *Store) GetExplorer(ctx context.Context, slug string) (*store.Explorer, error) {
	return getExplorer(ctx, s.db, slug)
}

func (s *Store) ListExplorers(ctx context.Context) ([]store.Explorer, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+explorerColumns+" FROM explorers ORDER BY slug")
	if err != nil {
		return nil, fmt.Errorf("list explorers query failed: %w", err)
	}
	defer rows.Close()

	var explorers []store.Explorer
	for rows.Next() {
		e, err := scanExplorer(rows)
		if err != nil {
			return nil, err
		}
		explorers = append(explorers, *e)
	}
	return explorers, rows.Err()
}

func (s *Store) ListViews(ctx context.Context, slug string) ([]store.ExplorerView, error) {
	return listViews(ctx, s.db, slug)
}

func (s *Store) GetChartConfig(ctx context.Context, id uuid.UUID) (*store.ChartConfig, error) {
	return getChartConfig(ctx, s.db, id)
}

func getExplorer(ctx context.Context, q store.DBTransaction, slug string) (*store.Explorer, error) {
	e, err := scanExplorer(q.QueryRowContext(ctx, "SELECT "+explorerColumns+" FROM explorers WHERE slug = $1", slug))
	if err != nil {
		return nil, notFound(err, "explorer "+slug)
	}
	return e, nil
}

func scanExplorer(row rowScanner) (*store.Explorer, error) {
	var e store.Explorer
	err := row.Scan(&e.Slug, &e.TSV, &e.IsPublished, &e.ViewsRefreshStatus, &e.LastCommitMessage, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func listViews(ctx context.Context, q store.DBTransaction, slug string) ([]store.ExplorerView, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+viewColumns+" FROM explorer_views WHERE explorer_slug = $1 ORDER BY view_id", slug)
	if err != nil {
		return nil, fmt.Errorf("list views query failed: %w", err)
	}
	defer rows.Close()

	var views []store.ExplorerView
	for rows.Next() {
		var (
			v    store.ExplorerView
			dims []byte
		)
		if err := rows.Scan(&v.ID, &v.ExplorerSlug, &dims, &v.ViewID, &v.ChartConfigID, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list views scan failed: %w", err)
		}
		if err := json.Unmarshal(dims, &v.Dimensions); err != nil {
			return nil, fmt.Errorf("invalid dimensions for view %s: %w", v.ID, err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func getChartConfig(ctx context.Context, q store.DBTransaction, id uuid.UUID) (*store.ChartConfig, error) {
	var (
		c      store.ChartConfig
		config []byte
	)
	err := q.QueryRowContext(ctx, "SELECT "+chartConfigColumns+" FROM chart_configs WHERE id = $1", id).
		Scan(&c.ID, &config, &c.ConfigHash, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "chart config "+id.String())
	}
	c.Config = config
	return &c, nil
}
