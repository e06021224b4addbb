// Package boltstore implements the store interfaces on an embedded bbolt file, for
// single-node deployments and tests. bbolt serializes writers, so every Update
// transaction is the atomic unit the queue and the materializer need.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/owid/owid-grapher-sub039/internal/store"
)

const (
	bucketExplorers    = "explorers"
	bucketJobs         = "jobs"
	bucketJobIndex     = "job_index"
	bucketCharts       = "charts"
	bucketChartConfigs = "chart_configs"
	bucketViews        = "views"
)

var buckets = []string{bucketExplorers, bucketJobs, bucketJobIndex, bucketCharts, bucketChartConfigs, bucketViews}

var _ store.Store = (*Store)(nil)

// Store is a bbolt-backed store.Store.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(context.Context) error {
	return s.db.View(func(*bolt.Tx) error { return nil })
}

// PutChart stores a base chart definition. Charts are owned by another system; this is
// how they are seeded in embedded mode.
func (s *Store) PutChart(ctx context.Context, c *store.Chart) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket([]byte(bucketCharts)), chartKey(c.ID), c)
	})
}

// InTx runs fn in one bbolt read-write transaction.
func (s *Store) InTx(ctx context.Context, fn func(store.Tx) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&txStore{tx: tx, now: s.now})
	})
}

// ClaimNext takes the oldest queued job of jobType. Jobs are keyed by insertion
// sequence, so a cursor scan visits them oldest first.
func (s *Store) ClaimNext(ctx context.Context, jobType store.JobType) (*store.Job, error) {
	var claimed *store.Job
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketJobs))
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var job store.Job
			if err := json.Unmarshal(v, &job); err != nil {
				return fmt.Errorf("corrupt job %x: %w", k, err)
			}
			if job.State != store.JobStateQueued || job.Type != jobType {
				continue
			}
			now := s.now()
			job.State = store.JobStateProcessing
			job.UpdatedAt = now
			if err := putJSON(b, k, &job); err != nil {
				return err
			}
			if slug, err := job.ExplorerSlug(); err == nil {
				if err := updateExplorer(tx, slug, func(e *store.Explorer) {
					e.ViewsRefreshStatus = store.RefreshStatusProcessing
					e.UpdatedAt = now
				}); err != nil && !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}
			claimed = &job
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Fail marks a processing job failed and restores its explorer to queued.
func (s *Store) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key, job, err := getJob(tx, id)
		if err != nil {
			return err
		}
		if job.State != store.JobStateProcessing {
			return fmt.Errorf("processing job %s: %w", id, store.ErrNotFound)
		}
		now := s.now()
		job.State = store.JobStateFailed
		job.Error = &errMsg
		job.UpdatedAt = now
		if err := putJSON(tx.Bucket([]byte(bucketJobs)), key, job); err != nil {
			return err
		}
		slug, err := job.ExplorerSlug()
		if err != nil {
			return nil
		}
		err = updateExplorer(tx, slug, func(e *store.Explorer) {
			if e.ViewsRefreshStatus == store.RefreshStatusProcessing {
				e.ViewsRefreshStatus = store.RefreshStatusQueued
				e.UpdatedAt = now
			}
		})
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	var job *store.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		_, job, err = getJob(tx, id)
		return err
	})
	return job, err
}

// ListJobs returns jobs matching filter, newest first.
func (s *Store) ListJobs(ctx context.Context, filter store.JobFilter) ([]store.Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	var jobs []store.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketJobs)).Cursor()
		for k, v := c.Last(); k != nil && len(jobs) < limit; k, v = c.Prev() {
			var job store.Job
			if err := json.Unmarshal(v, &job); err != nil {
				return err
			}
			if filter.State != "" && job.State != filter.State {
				continue
			}
			if filter.Type != "" && job.Type != filter.Type {
				continue
			}
			if filter.Slug != "" {
				if slug, _ := job.ExplorerSlug(); slug != filter.Slug {
					continue
				}
			}
			jobs = append(jobs, job)
		}
		return nil
	})
	return jobs, err
}

// Count returns the number of queued jobs.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketJobs)).ForEach(func(_, v []byte) error {
			var job store.Job
			if err := json.Unmarshal(v, &job); err != nil {
				return err
			}
			if job.State == store.JobStateQueued {
				n++
			}
			return nil
		})
	})
	return n, err
}

func (s *Store) GetExplorer(ctx context.Context, slug string) (*store.Explorer, error) {
	var e *store.Explorer
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		e, err = getExplorer(tx, slug)
		return err
	})
	return e, err
}

func (s *Store) ListExplorers(ctx context.Context) ([]store.Explorer, error) {
	var explorers []store.Explorer
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketExplorers)).ForEach(func(_, v []byte) error {
			var e store.Explorer
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			explorers = append(explorers, e)
			return nil
		})
	})
	return explorers, err
}

func (s *Store) ListViews(ctx context.Context, slug string) ([]store.ExplorerView, error) {
	var views []store.ExplorerView
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		views, err = listViews(tx, slug)
		return err
	})
	return views, err
}

func (s *Store) GetChartConfig(ctx context.Context, id uuid.UUID) (*store.ChartConfig, error) {
	var c *store.ChartConfig
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		c, err = getChartConfig(tx, id)
		return err
	})
	return c, err
}

func getJob(tx *bolt.Tx, id uuid.UUID) ([]byte, *store.Job, error) {
	key := tx.Bucket([]byte(bucketJobIndex)).Get(id[:])
	if key == nil {
		return nil, nil, fmt.Errorf("job %s: %w", id, store.ErrNotFound)
	}
	var job store.Job
	if err := getJSON(tx.Bucket([]byte(bucketJobs)), key, &job); err != nil {
		return nil, nil, err
	}
	return key, &job, nil
}

func getExplorer(tx *bolt.Tx, slug string) (*store.Explorer, error) {
	var e store.Explorer
	if err := getJSON(tx.Bucket([]byte(bucketExplorers)), []byte(slug), &e); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("explorer %s: %w", slug, store.ErrNotFound)
		}
		return nil, err
	}
	return &e, nil
}

func updateExplorer(tx *bolt.Tx, slug string, fn func(*store.Explorer)) error {
	e, err := getExplorer(tx, slug)
	if err != nil {
		return err
	}
	fn(e)
	return putJSON(tx.Bucket([]byte(bucketExplorers)), []byte(slug), e)
}

func listViews(tx *bolt.Tx, slug string) ([]store.ExplorerView, error) {
	prefix := viewPrefix(slug)
	var views []store.ExplorerView
	c := tx.Bucket([]byte(bucketViews)).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var view store.ExplorerView
		if err := json.Unmarshal(v, &view); err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ViewID < views[j].ViewID })
	return views, nil
}

func getChartConfig(tx *bolt.Tx, id uuid.UUID) (*store.ChartConfig, error) {
	var c store.ChartConfig
	if err := getJSON(tx.Bucket([]byte(bucketChartConfigs)), id[:], &c); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("chart config %s: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

// Views are keyed by slug, a zero byte, then view id, so one explorer's views are
// contiguous.
func viewPrefix(slug string) []byte {
	return append([]byte(slug), 0)
}

func viewKey(slug, viewID string) []byte {
	return append(viewPrefix(slug), viewID...)
}

func chartKey(id int) []byte {
	return []byte(strconv.Itoa(id))
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func getJSON(b *bolt.Bucket, key []byte, v interface{}) error {
	data := b.Get(key)
	if data == nil {
		return store.ErrNotFound
	}
	return json.Unmarshal(data, v)
}

func putJSON(b *bolt.Bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}
