// Package stats holds the aggregation routines behind the dashboards.
// Everything here is pure: callers fetch, stats folds.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Average is the arithmetic mean of values, or 0 when there are none.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// AttendancePercentage is the share of true entries in [0,100], or 0 for
// no records.
func AttendancePercentage(present []bool) float64 {
	if len(present) == 0 {
		return 0
	}
	n := 0
	for _, p := range present {
		if p {
			n++
		}
	}
	return float64(n) / float64(len(present)) * 100
}

// Round1 rounds to one decimal, halves away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

type EvaluationGrades struct {
	Grades []float64
}

type SectionGrades struct {
	Evaluations []EvaluationGrades
}

type SubjectGrades struct {
	Name     string
	Sections []SectionGrades
}

type SubjectAverage struct {
	Name    string  `json:"nombre"`
	Average float64 `json:"promedio"`
}

// SubjectAverages averages every grade under each subject, across all of
// its sections and evaluations. Input order is kept.
func SubjectAverages(subjects []SubjectGrades) []SubjectAverage {
	out := make([]SubjectAverage, 0, len(subjects))
	for _, subj := range subjects {
		var grades []float64
		for _, sec := range subj.Sections {
			for _, ev := range sec.Evaluations {
				grades = append(grades, ev.Grades...)
			}
		}
		out = append(out, SubjectAverage{Name: subj.Name, Average: Round1(Average(grades))})
	}
	return out
}

// Upcoming returns the items due at or after now, soonest first, capped at
// limit. A non-positive limit means no cap.
func Upcoming[T any](items []T, due func(T) time.Time, now time.Time, limit int) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if !due(it).Before(now) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return due(out[i]).Before(due(out[j]))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type SectionCount struct {
	SectionID uuid.UUID
	Count     int
}

type DistributionPoint struct {
	Section   int       `json:"seccion"`
	SectionID uuid.UUID `json:"seccion_id"`
	Count     int       `json:"count"`
}

// Distribution numbers the sections 1..n in input order.
func Distribution(counts []SectionCount) []DistributionPoint {
	out := make([]DistributionPoint, len(counts))
	for i, c := range counts {
		out[i] = DistributionPoint{Section: i + 1, SectionID: c.SectionID, Count: c.Count}
	}
	return out
}
