package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/owid/owid-grapher-sub039/internal/store"
)

func TestInTx_CommitsPublishWrites(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	now := time.Now()
	explorer := &store.Explorer{Slug: "co2", TSV: "isPublished\ttrue", IsPublished: true, ViewsRefreshStatus: store.RefreshStatusQueued, CreatedAt: now, UpdatedAt: now}
	job, err := store.NewRefreshJob("co2")
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO explorers .* ON CONFLICT \(slug\) DO UPDATE`).
		WithArgs("co2", explorer.TSV, true, "queued", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO jobs`).
		WithArgs(job.ID, "refresh_explorer_views", []byte(`{"slug":"co2"}`), "queued", job.CreatedAt, job.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = s.InTx(context.Background(), func(tx store.Tx) error {
		if err := tx.SaveExplorer(context.Background(), explorer); err != nil {
			return err
		}
		return tx.Enqueue(context.Background(), job)
	})
	if err != nil {
		t.Fatalf("InTx failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestInTx_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(store.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTx_ListViewsAndSaveView(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	viewID := uuid.New()
	configID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM explorer_views WHERE explorer_slug = \$1 ORDER BY view_id`).
		WithArgs("co2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "explorer_slug", "dimensions", "view_id", "chart_config_id", "created_at", "updated_at"}).
			AddRow(viewID.String(), "co2", []byte(`{"gas":"co2"}`), "co2", configID.String(), now, now))
	mock.ExpectExec(`INSERT INTO explorer_views .* ON CONFLICT \(explorer_slug, view_id\) DO UPDATE`).
		WithArgs(viewID, "co2", []byte(`{"gas":"co2"}`), "co2", configID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.InTx(context.Background(), func(tx store.Tx) error {
		views, err := tx.ListViews(context.Background(), "co2")
		if err != nil {
			return err
		}
		if len(views) != 1 || views[0].Dimensions["gas"] != "co2" || views[0].ChartConfigID != configID {
			t.Errorf("got views %+v", views)
		}
		return tx.SaveView(context.Background(), &views[0])
	})
	if err != nil {
		t.Fatalf("InTx failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTx_DeletesAndCompletion(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	jobID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM explorer_views WHERE id = ANY\(\$1\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM chart_configs WHERE id = ANY\(\$1\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE jobs SET state = \$1, error = NULL`).
		WithArgs("done", jobID, "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE explorers SET views_refresh_status = CASE`).
		WithArgs("co2", "refresh_explorer_views", "queued", "clean").
		WillReturnRows(sqlmock.NewRows([]string{"views_refresh_status"}).AddRow("clean"))
	mock.ExpectCommit()

	err := s.InTx(context.Background(), func(tx store.Tx) error {
		ctx := context.Background()
		if err := tx.DeleteViews(ctx, ids); err != nil {
			return err
		}
		if err := tx.DeleteChartConfigs(ctx, ids); err != nil {
			return err
		}
		// Empty deletes issue no statement.
		if err := tx.DeleteChartConfigs(ctx, nil); err != nil {
			return err
		}
		if err := tx.CompleteJob(ctx, jobID); err != nil {
			return err
		}
		status, err := tx.MarkViewsRefreshed(ctx, "co2")
		if status != store.RefreshStatusClean {
			t.Errorf("got status %s, want clean", status)
		}
		return err
	})
	if err != nil {
		t.Fatalf("InTx failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTx_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, config FROM charts WHERE id = \$1`).
		WithArgs(7).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(tx store.Tx) error {
		_, err := tx.GetChart(context.Background(), 7)
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err == nil || err.Error() != "chart 7: not found" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestGetExplorer(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT slug, tsv, is_published, views_refresh_status, last_commit_message, created_at, updated_at FROM explorers WHERE slug = \$1`).
		WithArgs("co2").
		WillReturnRows(sqlmock.NewRows([]string{"slug", "tsv", "is_published", "views_refresh_status", "last_commit_message", "created_at", "updated_at"}).
			AddRow("co2", "graphers", true, "processing", "initial", now, now))

	e, err := s.GetExplorer(context.Background(), "co2")
	if err != nil {
		t.Fatalf("GetExplorer failed: %v", err)
	}
	if e.ViewsRefreshStatus != store.RefreshStatusProcessing || !e.IsPublished || e.LastCommitMessage != "initial" {
		t.Errorf("got %+v", e)
	}

	mock.ExpectQuery(`FROM explorers WHERE slug = \$1`).WillReturnError(sql.ErrNoRows)
	if _, err := s.GetExplorer(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTx_LockExplorer(t *testing.T) {
	tests := []struct {
		name    string
		execErr error
		wantErr bool
	}{
		{"granted", nil, false},
		{"deadlock", errors.New("deadlock detected"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			defer s.db.Close()

			mock.ExpectBegin()
			lock := mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1, hashtext\(\$2\)\)`).
				WithArgs(explorerLockClass, "co2")
			if tt.execErr != nil {
				lock.WillReturnError(tt.execErr)
				mock.ExpectRollback()
			} else {
				lock.WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
			}

			err := s.InTx(context.Background(), func(tx store.Tx) error {
				return tx.LockExplorer(context.Background(), "co2")
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("InTx error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, tt.execErr) {
				t.Errorf("expected wrapped %v, got %v", tt.execErr, err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}
