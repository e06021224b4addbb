package boltstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/owid/owid-grapher-sub039/internal/store"
)

// txStore implements store.Tx on one bbolt read-write transaction.
type txStore struct {
	tx  *bolt.Tx
	now func() time.Time
}

// LockExplorer is a no-op: bbolt admits one read-write transaction at a time.
func (t *txStore) LockExplorer(ctx context.Context, slug string) error {
	return nil
}

func (t *txStore) GetExplorer(ctx context.Context, slug string) (*store.Explorer, error) {
	return getExplorer(t.tx, slug)
}

func (t *txStore) SaveExplorer(ctx context.Context, e *store.Explorer) error {
	if existing, err := getExplorer(t.tx, e.Slug); err == nil {
		e.CreatedAt = existing.CreatedAt
	}
	return putJSON(t.tx.Bucket([]byte(bucketExplorers)), []byte(e.Slug), e)
}

func (t *txStore) Enqueue(ctx context.Context, job *store.Job) error {
	b := t.tx.Bucket([]byte(bucketJobs))
	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	key := marshalSeq(seq)
	if err := putJSON(b, key, job); err != nil {
		return err
	}
	return t.tx.Bucket([]byte(bucketJobIndex)).Put(job.ID[:], key)
}

func (t *txStore) GetChart(ctx context.Context, id int) (*store.Chart, error) {
	var c store.Chart
	if err := getJSON(t.tx.Bucket([]byte(bucketCharts)), chartKey(id), &c); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("chart %d: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (t *txStore) ListViews(ctx context.Context, slug string) ([]store.ExplorerView, error) {
	return listViews(t.tx, slug)
}

func (t *txStore) GetChartConfig(ctx context.Context, id uuid.UUID) (*store.ChartConfig, error) {
	return getChartConfig(t.tx, id)
}

func (t *txStore) InsertChartConfig(ctx context.Context, c *store.ChartConfig) error {
	b := t.tx.Bucket([]byte(bucketChartConfigs))
	if b.Get(c.ID[:]) != nil {
		return fmt.Errorf("chart config %s already exists", c.ID)
	}
	return putJSON(b, c.ID[:], c)
}

func (t *txStore) DeleteChartConfigs(ctx context.Context, ids []uuid.UUID) error {
	b := t.tx.Bucket([]byte(bucketChartConfigs))
	for _, id := range ids {
		if err := b.Delete(id[:]); err != nil {
			return err
		}
	}
	return nil
}

func (t *txStore) SaveView(ctx context.Context, v *store.ExplorerView) error {
	b := t.tx.Bucket([]byte(bucketViews))
	key := viewKey(v.ExplorerSlug, v.ViewID)
	var existing store.ExplorerView
	if err := getJSON(b, key, &existing); err == nil {
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
	}
	return putJSON(b, key, v)
}

func (t *txStore) DeleteViews(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	b := t.tx.Bucket([]byte(bucketViews))
	var keys [][]byte
	err := b.ForEach(func(k, v []byte) error {
		var view store.ExplorerView
		if err := json.Unmarshal(v, &view); err != nil {
			return err
		}
		if drop[view.ID] {
			keys = append(keys, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (t *txStore) CompleteJob(ctx context.Context, id uuid.UUID) error {
	key, job, err := getJob(t.tx, id)
	if err != nil {
		return err
	}
	if job.State != store.JobStateProcessing {
		return fmt.Errorf("processing job %s: %w", id, store.ErrNotFound)
	}
	job.State = store.JobStateDone
	job.Error = nil
	job.UpdatedAt = t.now()
	return putJSON(t.tx.Bucket([]byte(bucketJobs)), key, job)
}

func (t *txStore) MarkViewsRefreshed(ctx context.Context, slug string) (store.RefreshStatus, error) {
	status := store.RefreshStatusClean
	err := t.tx.Bucket([]byte(bucketJobs)).ForEach(func(_, v []byte) error {
		var job store.Job
		if err := json.Unmarshal(v, &job); err != nil {
			return err
		}
		if job.Type != store.JobTypeRefreshExplorerViews || job.State != store.JobStateQueued {
			return nil
		}
		if s, _ := job.ExplorerSlug(); s == slug {
			status = store.RefreshStatusQueued
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	err = updateExplorer(t.tx, slug, func(e *store.Explorer) {
		e.ViewsRefreshStatus = status
		e.UpdatedAt = t.now()
	})
	if err != nil {
		return "", err
	}
	return status, nil
}
