package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ExplorerStore is the read side used by the HTTP layer.
type ExplorerStore interface {
	GetExplorer(ctx context.Context, slug string) (*Explorer, error)
	ListExplorers(ctx context.Context) ([]Explorer, error)
	// ListViews returns an explorer's views ordered by view id.
	ListViews(ctx context.Context, slug string) ([]ExplorerView, error)
	GetChartConfig(ctx context.Context, id uuid.UUID) (*ChartConfig, error)
}

// Tx is one all-or-nothing unit of work. Nothing written through it is visible to
// other callers until InTx's function returns nil.
type Tx interface {
	// LockExplorer serializes view reconciliation of one explorer until the
	// transaction ends.
	LockExplorer(ctx context.Context, slug string) error
	GetExplorer(ctx context.Context, slug string) (*Explorer, error)
	// SaveExplorer inserts or replaces the explorer row.
	SaveExplorer(ctx context.Context, e *Explorer) error
	Enqueue(ctx context.Context, job *Job) error

	GetChart(ctx context.Context, id int) (*Chart, error)
	ListViews(ctx context.Context, slug string) ([]ExplorerView, error)
	GetChartConfig(ctx context.Context, id uuid.UUID) (*ChartConfig, error)
	InsertChartConfig(ctx context.Context, c *ChartConfig) error
	DeleteChartConfigs(ctx context.Context, ids []uuid.UUID) error
	// SaveView inserts the view or repoints the existing one with the same
	// (explorer slug, view id).
	SaveView(ctx context.Context, v *ExplorerView) error
	DeleteViews(ctx context.Context, ids []uuid.UUID) error

	// CompleteJob moves a processing job to done.
	CompleteJob(ctx context.Context, id uuid.UUID) error
	// MarkViewsRefreshed sets the explorer to clean, or to queued when another refresh
	// job for it is already waiting. It returns the status written.
	MarkViewsRefreshed(ctx context.Context, slug string) (RefreshStatus, error)
}

// Store is the full persistence surface.
type Store interface {
	Queue
	ExplorerStore

	// InTx runs fn in a transaction, committing when fn returns nil.
	InTx(ctx context.Context, fn func(Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
