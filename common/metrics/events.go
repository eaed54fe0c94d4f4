package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type EventMetrics struct {
	published       metric.Int64Counter
	failed          metric.Int64Counter
	publishDuration metric.Float64Histogram
}

func NewEventMetrics(meter metric.Meter) (*EventMetrics, error) {
	em := &EventMetrics{}
	var err error

	em.published, err = meter.Int64Counter(
		"academia.events.published",
		metric.WithDescription("Domain events handed to the broker"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	em.failed, err = meter.Int64Counter(
		"academia.events.failed",
		metric.WithDescription("Domain events the broker refused"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	em.publishDuration, err = meter.Float64Histogram(
		"academia.events.publish.duration",
		metric.WithDescription("Time to hand an event to the broker"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(queryBuckets...),
	)
	if err != nil {
		return nil, err
	}

	return em, nil
}

func (em *EventMetrics) RecordPublish(ctx context.Context, broker, eventType string, duration time.Duration, err error) {
	if em == nil || em.published == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("broker", broker),
		attribute.String("type", eventType),
	)
	em.publishDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		em.failed.Add(ctx, 1, attrs)
		return
	}
	em.published.Add(ctx, 1, attrs)
}
