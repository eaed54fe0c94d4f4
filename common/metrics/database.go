package metrics

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Buckets: 1ms .. 10s
var queryBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type DatabaseMetrics struct {
	queryDuration metric.Float64Histogram
	queryErrors   metric.Int64Counter
	poolOpen      metric.Int64ObservableGauge
	poolInUse     metric.Int64ObservableGauge
	poolIdle      metric.Int64ObservableGauge
	poolWaitCount metric.Int64ObservableCounter
}

func NewDatabaseMetrics(meter metric.Meter) (*DatabaseMetrics, error) {
	dm := &DatabaseMetrics{}
	var err error

	dm.queryDuration, err = meter.Float64Histogram(
		"academia.db.query.duration",
		metric.WithDescription("Duration of storage queries"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(queryBuckets...),
	)
	if err != nil {
		return nil, err
	}

	dm.queryErrors, err = meter.Int64Counter(
		"academia.db.query.errors",
		metric.WithDescription("Storage queries that returned an error other than no rows"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	dm.poolOpen, err = meter.Int64ObservableGauge("academia.db.pool.open",
		metric.WithDescription("Open connections in the pool"), metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	dm.poolInUse, err = meter.Int64ObservableGauge("academia.db.pool.in_use",
		metric.WithDescription("Connections currently serving a query"), metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	dm.poolIdle, err = meter.Int64ObservableGauge("academia.db.pool.idle",
		metric.WithDescription("Idle connections in the pool"), metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	dm.poolWaitCount, err = meter.Int64ObservableCounter("academia.db.pool.waits",
		metric.WithDescription("Total number of connections waited for"), metric.WithUnit("{wait}"))
	if err != nil {
		return nil, err
	}

	return dm, nil
}

// ObservePool registers a callback reporting sql.DBStats for db.
func (dm *DatabaseMetrics) ObservePool(meter metric.Meter, db *sql.DB) error {
	if dm == nil || dm.poolOpen == nil || db == nil {
		return nil
	}
	_, err := meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			s := db.Stats()
			o.ObserveInt64(dm.poolOpen, int64(s.OpenConnections))
			o.ObserveInt64(dm.poolInUse, int64(s.InUse))
			o.ObserveInt64(dm.poolIdle, int64(s.Idle))
			o.ObserveInt64(dm.poolWaitCount, s.WaitCount)
			return nil
		},
		dm.poolOpen, dm.poolInUse, dm.poolIdle, dm.poolWaitCount,
	)
	return err
}

// RecordQuery is safe to call on a nil or mock receiver.
func (dm *DatabaseMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration, err error) {
	if dm == nil || dm.queryDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("table", table),
	)
	dm.queryDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil && err != sql.ErrNoRows && dm.queryErrors != nil {
		dm.queryErrors.Add(ctx, 1, attrs)
	}
}
