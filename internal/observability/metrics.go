package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Resolve outcomes.
const (
	OutcomeFound  = "found"
	OutcomeNoPath = "no_path"
	OutcomeError  = "error"
)

// JoinMetrics holds the instruments recorded while resolving joins and
// refreshing the model. A nil *JoinMetrics records nothing.
type JoinMetrics struct {
	resolveCount    metric.Int64Counter
	resolveDuration metric.Float64Histogram
	pathCandidates  metric.Int64Histogram
	executeRows     metric.Int64Histogram
	refreshCount    metric.Int64Counter
	refreshDuration metric.Float64Histogram
	lastRefreshUnix atomic.Int64
}

// InitJoinMetrics creates the join metrics on the global meter provider.
func InitJoinMetrics() (*JoinMetrics, error) {
	return NewJoinMetrics(otel.Meter(ScopeName))
}

// NewJoinMetrics creates the join metrics on meter.
func NewJoinMetrics(meter metric.Meter) (*JoinMetrics, error) {
	m := &JoinMetrics{}
	var err error

	if m.resolveCount, err = meter.Int64Counter(
		"joinpath.resolve.count",
		metric.WithDescription("Number of join resolutions by outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create resolve counter: %w", err)
	}

	if m.resolveDuration, err = meter.Float64Histogram(
		"joinpath.resolve.duration",
		metric.WithDescription("Duration of join resolutions in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create resolve duration histogram: %w", err)
	}

	if m.pathCandidates, err = meter.Int64Histogram(
		"joinpath.paths.candidates",
		metric.WithDescription("Number of equally short candidate paths or join sets found"),
	); err != nil {
		return nil, fmt.Errorf("failed to create path candidates histogram: %w", err)
	}

	if m.executeRows, err = meter.Int64Histogram(
		"joinpath.execute.rows",
		metric.WithDescription("Rows returned by executed join queries"),
	); err != nil {
		return nil, fmt.Errorf("failed to create execute rows histogram: %w", err)
	}

	if m.refreshCount, err = meter.Int64Counter(
		"joinpath.model.refresh.count",
		metric.WithDescription("Number of model refresh attempts"),
	); err != nil {
		return nil, fmt.Errorf("failed to create model refresh counter: %w", err)
	}

	if m.refreshDuration, err = meter.Float64Histogram(
		"joinpath.model.refresh.duration",
		metric.WithDescription("Duration of model refresh attempts in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create model refresh duration histogram: %w", err)
	}

	lastRefresh, err := meter.Int64ObservableGauge(
		"joinpath.model.refresh.last_success_unix",
		metric.WithDescription("Unix timestamp of the last successful model refresh"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model refresh gauge: %w", err)
	}
	if _, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		if value := m.lastRefreshUnix.Load(); value > 0 {
			observer.ObserveInt64(lastRefresh, value)
		}
		return nil
	}, lastRefresh); err != nil {
		return nil, fmt.Errorf("failed to register model refresh gauge callback: %w", err)
	}

	return m, nil
}

// RecordResolve records one join resolution. operation names the API field
// (shortestPaths, joins, sql, execute); candidates is the number of results
// the search kept.
func (m *JoinMetrics) RecordResolve(ctx context.Context, operation, outcome string, duration time.Duration, candidates int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.resolveCount.Add(ctx, 1, attrs)
	m.resolveDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if outcome != OutcomeError {
		m.pathCandidates.Record(ctx, int64(candidates), metric.WithAttributes(attribute.String("operation", operation)))
	}
}

// RecordExecute records the row count of an executed query.
func (m *JoinMetrics) RecordExecute(ctx context.Context, rows int) {
	if m == nil {
		return
	}
	m.executeRows.Record(ctx, int64(rows))
}

// RecordRefresh records a model refresh attempt.
func (m *JoinMetrics) RecordRefresh(ctx context.Context, trigger string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.Bool("success", success),
	)
	m.refreshCount.Add(ctx, 1, attrs)
	m.refreshDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if success {
		m.lastRefreshUnix.Store(time.Now().Unix())
	}
}
