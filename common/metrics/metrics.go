package metrics

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics groups the infrastructure collectors shared by every package.
type Metrics struct {
	Database *DatabaseMetrics
	Events   *EventMetrics
	Health   *HealthMetrics
	meter    metric.Meter
}

func New(serviceName string, logger *slog.Logger) (*Metrics, error) {
	meter := otel.Meter(serviceName)

	database, err := NewDatabaseMetrics(meter)
	if err != nil {
		return nil, err
	}

	events, err := NewEventMetrics(meter)
	if err != nil {
		return nil, err
	}

	health, err := NewHealthMetrics(meter)
	if err != nil {
		return nil, err
	}

	logger.Info("metrics collectors initialized")

	return &Metrics{
		Database: database,
		Events:   events,
		Health:   health,
		meter:    meter,
	}, nil
}

// Meter returns the meter the collectors were created from.
func (m *Metrics) Meter() metric.Meter {
	if m == nil || m.meter == nil {
		return otel.Meter("noop")
	}
	return m.meter
}

// NewMock returns collectors that ignore every Record call.
func NewMock() *Metrics {
	return &Metrics{
		Database: &DatabaseMetrics{},
		Events:   &EventMetrics{},
		Health:   &HealthMetrics{dependencyUpOK: map[string]bool{}},
	}
}
