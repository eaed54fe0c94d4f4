// Package metrics holds the domain counters of the API. Infrastructure
// collectors (queries, pool, events) live in common/metrics.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	logins             metric.Int64Counter
	authRejections     metric.Int64Counter
	gradesRecorded     metric.Int64Counter
	attendanceRecorded metric.Int64Counter
	gradebookExports   metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.logins, err = meter.Int64Counter(
		"academia.auth.logins",
		metric.WithDescription("Login attempts by outcome"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return nil, err
	}

	m.authRejections, err = meter.Int64Counter(
		"academia.auth.rejections",
		metric.WithDescription("Requests refused by the verifier or the role gate"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.gradesRecorded, err = meter.Int64Counter(
		"academia.grades.recorded",
		metric.WithDescription("Grades created or updated"),
		metric.WithUnit("{grade}"),
	)
	if err != nil {
		return nil, err
	}

	m.attendanceRecorded, err = meter.Int64Counter(
		"academia.attendance.recorded",
		metric.WithDescription("Attendance records created or updated"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	m.gradebookExports, err = meter.Int64Counter(
		"academia.gradebook.exports",
		metric.WithDescription("Gradebook spreadsheets generated"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordLogin(ctx context.Context, outcome string) {
	if m != nil && m.logins != nil {
		m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (m *Metrics) RecordAuthRejection(ctx context.Context, kind string) {
	if m != nil && m.authRejections != nil {
		m.authRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func (m *Metrics) RecordGrade(ctx context.Context, op string) {
	if m != nil && m.gradesRecorded != nil {
		m.gradesRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}

func (m *Metrics) RecordAttendance(ctx context.Context, op string) {
	if m != nil && m.attendanceRecorded != nil {
		m.attendanceRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}

func (m *Metrics) RecordGradebookExport(ctx context.Context) {
	if m != nil && m.gradebookExports != nil {
		m.gradebookExports.Add(ctx, 1)
	}
}

// NewMock returns a Metrics that ignores every Record call.
func NewMock() *Metrics {
	return &Metrics{}
}
