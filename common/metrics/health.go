package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type HealthMetrics struct {
	dependencyUp   metric.Int64ObservableGauge
	checkDuration  metric.Float64Histogram
	serviceInfo    metric.Int64ObservableGauge
	mu             sync.RWMutex
	dependencyUpOK map[string]bool
}

func NewHealthMetrics(meter metric.Meter) (*HealthMetrics, error) {
	hm := &HealthMetrics{dependencyUpOK: make(map[string]bool)}
	var err error

	hm.dependencyUp, err = meter.Int64ObservableGauge(
		"academia.dependency.up",
		metric.WithDescription("Dependency availability (1=up, 0=down) as seen by the last readiness check"),
		metric.WithUnit("{status}"),
	)
	if err != nil {
		return nil, err
	}

	hm.checkDuration, err = meter.Float64Histogram(
		"academia.dependency.check.duration",
		metric.WithDescription("Readiness check duration per dependency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(queryBuckets...),
	)
	if err != nil {
		return nil, err
	}

	hm.serviceInfo, err = meter.Int64ObservableGauge(
		"academia.service.info",
		metric.WithDescription("Constant 1 carrying build metadata as attributes"),
		metric.WithUnit("{info}"),
	)
	if err != nil {
		return nil, err
	}

	return hm, nil
}

// Register wires the observable gauges. Call once per process.
func (hm *HealthMetrics) Register(meter metric.Meter, serviceName, version, env string) error {
	if hm == nil || hm.dependencyUp == nil {
		return nil
	}
	info := metric.WithAttributes(
		attribute.String("service_name", serviceName),
		attribute.String("version", version),
		attribute.String("environment", env),
	)
	_, err := meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(hm.serviceInfo, 1, info)

			hm.mu.RLock()
			defer hm.mu.RUnlock()
			for name, up := range hm.dependencyUpOK {
				v := int64(0)
				if up {
					v = 1
				}
				o.ObserveInt64(hm.dependencyUp, v, metric.WithAttributes(attribute.String("dependency", name)))
			}
			return nil
		},
		hm.serviceInfo, hm.dependencyUp,
	)
	return err
}

func (hm *HealthMetrics) RecordDependencyCheck(ctx context.Context, dependency string, duration time.Duration, err error) {
	if hm == nil || hm.checkDuration == nil {
		return
	}
	hm.checkDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("dependency", dependency)))

	hm.mu.Lock()
	hm.dependencyUpOK[dependency] = err == nil
	hm.mu.Unlock()
}
