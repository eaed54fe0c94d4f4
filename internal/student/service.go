// Package student serves the /api/alumnos self-service views. Every read is
// scoped to the authenticated student; no endpoint takes a student id.
package student

import (
	"context"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/attendance"
	"github.com/isekhard17/academia-sekhard/internal/grade"
	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/stats"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/google/uuid"
)

type Stats struct {
	GradeAverage       float64 `json:"promedioNotas"`
	AttendancePercent  float64 `json:"porcentajeAsistencia"`
	PendingEvaluations int     `json:"evaluacionesPendientes"`
}

type GradeReader interface {
	Mine(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]grade.Grade, error)
	MyAverage(ctx context.Context, actor *user.User) (float64, error)
}

type AttendanceReader interface {
	Mine(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]attendance.Attendance, error)
	MyPresence(ctx context.Context, actor *user.User) ([]bool, error)
}

type PendingCounter interface {
	PendingFor(ctx context.Context, studentID uuid.UUID) (int, error)
}

type SectionLister interface {
	List(ctx context.Context, filter section.Filter) ([]section.Section, error)
}

type Service interface {
	Stats(ctx context.Context, actor *user.User) (*Stats, error)
	Sections(ctx context.Context, actor *user.User) ([]section.Section, error)
	Grades(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]grade.Grade, error)
	Attendance(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]attendance.Attendance, error)
}

type service struct {
	grades      GradeReader
	attendance  AttendanceReader
	evaluations PendingCounter
	sections    SectionLister
}

func NewService(grades GradeReader, att AttendanceReader, evaluations PendingCounter, sections SectionLister) Service {
	return &service{
		grades:      grades,
		attendance:  att,
		evaluations: evaluations,
		sections:    sections,
	}
}

func (s *service) Stats(ctx context.Context, actor *user.User) (*Stats, error) {
	if err := self(actor); err != nil {
		return nil, err
	}

	avg, err := s.grades.MyAverage(ctx, actor)
	if err != nil {
		return nil, err
	}
	presence, err := s.attendance.MyPresence(ctx, actor)
	if err != nil {
		return nil, err
	}
	pending, err := s.evaluations.PendingFor(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	return &Stats{
		GradeAverage:       avg,
		AttendancePercent:  stats.AttendancePercentage(presence),
		PendingEvaluations: pending,
	}, nil
}

func (s *service) Sections(ctx context.Context, actor *user.User) ([]section.Section, error) {
	if err := self(actor); err != nil {
		return nil, err
	}
	return s.sections.List(ctx, section.Filter{StudentID: actor.ID, ActiveOnly: true, OmitRoster: true})
}

func (s *service) Grades(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]grade.Grade, error) {
	return s.grades.Mine(ctx, sectionID, actor)
}

func (s *service) Attendance(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]attendance.Attendance, error) {
	return s.attendance.Mine(ctx, sectionID, actor)
}

func self(actor *user.User) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if !actor.IsStudent() {
		return apperr.ErrForbidden
	}
	return nil
}
