package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/owid/owid-grapher-sub039/internal/explorer"
	"github.com/owid/owid-grapher-sub039/internal/store"
	"github.com/owid/owid-grapher-sub039/internal/views"
)

const instrumentationName = "explorer-views-worker"

// Stats counts what one materialization pass did to the persisted views.
type Stats struct {
	Created   int
	Updated   int
	Unchanged int
	Deleted   int
}

// Materializer recomputes the views of one explorer per refresh job.
type Materializer struct {
	store    store.Store
	log      *slog.Logger
	tracer   trace.Tracer
	jobs     metric.Int64Counter
	duration metric.Float64Histogram
	now      func() time.Time
}

// NewMaterializer creates a materializer backed by s. Instruments come from the
// global meter provider.
func NewMaterializer(s store.Store, log *slog.Logger) (*Materializer, error) {
	meter := otel.Meter(instrumentationName)
	jobs, err := meter.Int64Counter("explorer_views.jobs",
		metric.WithDescription("Refresh jobs processed, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create jobs counter: %w", err)
	}
	duration, err := meter.Float64Histogram("explorer_views.job.duration",
		metric.WithDescription("Time spent materializing one explorer"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	return &Materializer{
		store:    s,
		log:      log,
		tracer:   otel.Tracer(instrumentationName),
		jobs:     jobs,
		duration: duration,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// ProcessNext claims the oldest queued refresh job and processes it. It reports
// false when the queue is empty.
func (m *Materializer) ProcessNext(ctx context.Context) (bool, error) {
	job, err := m.store.ClaimNext(ctx, store.JobTypeRefreshExplorerViews)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	if job == nil {
		return false, nil
	}
	_, err = m.Process(ctx, job)
	return true, err
}

// Process materializes the views of the explorer named by a claimed job. All writes
// happen in one transaction; on error nothing is written and the job is failed.
func (m *Materializer) Process(ctx context.Context, job *store.Job) (Stats, error) {
	ctx, span := m.tracer.Start(ctx, "refresh_explorer_views",
		trace.WithAttributes(attribute.String("job.id", job.ID.String())),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	start := time.Now()
	log := m.log.With("job_id", job.ID)

	var stats Stats
	slug, err := job.ExplorerSlug()
	if err == nil {
		span.SetAttributes(attribute.String("explorer.slug", slug))
		log = log.With("slug", slug)
		err = m.store.InTx(ctx, func(tx store.Tx) error {
			var txErr error
			stats, txErr = m.reconcile(ctx, tx, slug)
			if txErr != nil {
				return txErr
			}
			if txErr = tx.CompleteJob(ctx, job.ID); txErr != nil {
				return txErr
			}
			_, txErr = tx.MarkViewsRefreshed(ctx, slug)
			return txErr
		})
	}

	outcome := "done"
	if err != nil {
		outcome = "failed"
		span.RecordError(err)
		log.Error("view refresh failed", "error", err)
		// The job must be failed even when the caller's context is already cancelled.
		if failErr := m.store.Fail(context.WithoutCancel(ctx), job.ID, err.Error()); failErr != nil {
			log.Error("failed to mark job failed", "error", failErr)
		}
		stats = Stats{}
	} else {
		log.Info("views refreshed",
			"created", stats.Created,
			"updated", stats.Updated,
			"unchanged", stats.Unchanged,
			"deleted", stats.Deleted)
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.jobs.Add(ctx, 1, attrs)
	m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	return stats, err
}

func (m *Materializer) reconcile(ctx context.Context, tx store.Tx, slug string) (Stats, error) {
	var stats Stats

	// Reconciliations of one explorer run one at a time.
	if err := tx.LockExplorer(ctx, slug); err != nil {
		return stats, err
	}
	e, err := tx.GetExplorer(ctx, slug)
	if err != nil {
		return stats, err
	}
	program := explorer.New(slug, e.TSV)
	wanted := views.Enumerate(slug, program.Dimensions())

	existing, err := tx.ListViews(ctx, slug)
	if err != nil {
		return stats, err
	}
	byViewID := make(map[string]store.ExplorerView, len(existing))
	for _, v := range existing {
		byViewID[v.ViewID] = v
	}

	now := m.now()
	var orphanedConfigs []uuid.UUID
	keep := make(map[string]bool, len(wanted))

	for _, view := range wanted {
		keep[view.ViewID] = true

		config, err := m.chartConfig(ctx, tx, program, view)
		if err != nil {
			return stats, fmt.Errorf("view %s: %w", view.ViewID, err)
		}
		hash := configHash(config)

		current, found := byViewID[view.ViewID]
		if found {
			cc, err := tx.GetChartConfig(ctx, current.ChartConfigID)
			if err != nil {
				return stats, fmt.Errorf("view %s: %w", view.ViewID, err)
			}
			if cc.ConfigHash == hash {
				stats.Unchanged++
				continue
			}
		}

		configID, err := uuid.NewV7()
		if err != nil {
			return stats, fmt.Errorf("failed to generate chart config id: %w", err)
		}
		err = tx.InsertChartConfig(ctx, &store.ChartConfig{
			ID:         configID,
			Config:     config,
			ConfigHash: hash,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return stats, err
		}

		row := store.ExplorerView{
			ExplorerSlug:  slug,
			Dimensions:    view.Dimensions,
			ViewID:        view.ViewID,
			ChartConfigID: configID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if found {
			row.ID = current.ID
			row.CreatedAt = current.CreatedAt
			orphanedConfigs = append(orphanedConfigs, current.ChartConfigID)
			stats.Updated++
		} else {
			if row.ID, err = uuid.NewV7(); err != nil {
				return stats, fmt.Errorf("failed to generate view id: %w", err)
			}
			stats.Created++
		}
		if err := tx.SaveView(ctx, &row); err != nil {
			return stats, err
		}
	}

	var stale []uuid.UUID
	for _, v := range existing {
		if !keep[v.ViewID] {
			stale = append(stale, v.ID)
			orphanedConfigs = append(orphanedConfigs, v.ChartConfigID)
		}
	}
	if err := tx.DeleteViews(ctx, stale); err != nil {
		return stats, err
	}
	stats.Deleted = len(stale)

	// Configs go last: views reference them.
	if err := tx.DeleteChartConfigs(ctx, orphanedConfigs); err != nil {
		return stats, err
	}
	return stats, nil
}

// chartConfig builds the configuration of one view: the base chart of the matching
// graphers row overlaid with that row's override columns. A combination without any
// matching row gets an empty configuration.
func (m *Materializer) chartConfig(ctx context.Context, tx store.Tx, program *explorer.Program, view views.View) (json.RawMessage, error) {
	config := map[string]any{}

	row, ok := program.RowForChoices(view.Dimensions)
	if !ok {
		row, ok = program.ClosestRowForChoices(view.Dimensions)
	}
	if ok {
		if row.GrapherID > 0 {
			chart, err := tx.GetChart(ctx, row.GrapherID)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row.Row, err)
			}
			if err := json.Unmarshal(chart.Config, &config); err != nil {
				return nil, fmt.Errorf("row %d: chart %d has an invalid config: %w", row.Row, row.GrapherID, err)
			}
			// A JSON null decodes into a nil map.
			if config == nil {
				return nil, fmt.Errorf("row %d: chart %d has a null config", row.Row, row.GrapherID)
			}
		}
		for key, value := range row.Overrides {
			config[key] = overrideValue(value)
		}
	}

	// encoding/json writes map keys sorted, so equal configs encode equally.
	return json.Marshal(config)
}

func overrideValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return n
	}
	return s
}

func configHash(config []byte) string {
	sum := sha256.Sum256(config)
	return hex.EncodeToString(sum[:])
}
