// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
// The shutdown function should be called on application exit for graceful cleanup.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// QueueCounter reports the number of queued jobs.
type QueueCounter interface {
	Count(ctx context.Context) (int64, error)
}

// RegisterQueueDepth registers an observable gauge that asks q for the queue depth
// only when scraped. Count errors are logged and skip the observation.
func RegisterQueueDepth(meterName string, q QueueCounter, log *slog.Logger) error {
	meter := otel.Meter(meterName)
	_, err := meter.Int64ObservableGauge("explorer_views.queue.depth",
		otelmetric.WithDescription("Current number of queued view refresh jobs"),
		otelmetric.WithInt64Callback(func(ctx context.Context, obs otelmetric.Int64Observer) error {
			count, err := q.Count(ctx)
			if err != nil {
				log.Warn("failed to count queue depth", "error", err)
				return nil
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register queue depth metric: %w", err)
	}
	return nil
}
