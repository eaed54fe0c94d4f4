package attendance

import (
	"context"
	"errors"
	"log/slog"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/events"
	"github.com/isekhard17/academia-sekhard/internal/metrics"
	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/user"
	"github.com/isekhard17/academia-sekhard/internal/validation"

	"github.com/google/uuid"
)

var (
	ErrAttendanceNotFound = apperr.NotFound("Registro de asistencia no encontrado")
	ErrDuplicate          = apperr.Conflict("fecha", "Ya existe un registro de asistencia para esta fecha")
	ErrNotEnrolled        = apperr.Invalid("alumno_id", "el alumno no está inscrito en la sección")
)

type SectionLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*section.Section, error)
	IsEnrolled(ctx context.Context, sectionID, studentID uuid.UUID) (bool, error)
}

type Service interface {
	ListByDate(ctx context.Context, sectionID uuid.UUID, date string, actor *user.User) ([]Attendance, error)
	ListForStudent(ctx context.Context, studentID, sectionID uuid.UUID, actor *user.User) ([]Attendance, error)
	// Mine returns the actor's own records in a section.
	Mine(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]Attendance, error)
	// MyPresence returns the presente flag of every record the actor holds.
	MyPresence(ctx context.Context, actor *user.User) ([]bool, error)
	Create(ctx context.Context, in CreateInput, actor *user.User) (*Attendance, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *user.User) (*Attendance, error)
}

type service struct {
	repo     Repository
	sections SectionLookup
	emitter  *events.Emitter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(repo Repository, sections SectionLookup, emitter *events.Emitter, m *metrics.Metrics, logger *slog.Logger) Service {
	return &service{
		repo:     repo,
		sections: sections,
		emitter:  emitter,
		metrics:  m,
		logger:   logger,
	}
}

func (s *service) ListByDate(ctx context.Context, sectionID uuid.UUID, date string, actor *user.User) ([]Attendance, error) {
	day, err := validation.ParseDate("fecha", date)
	if err != nil {
		return nil, err
	}
	if err := s.manageable(ctx, sectionID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListByDate(ctx, sectionID, day)
}

func (s *service) ListForStudent(ctx context.Context, studentID, sectionID uuid.UUID, actor *user.User) ([]Attendance, error) {
	if err := s.manageable(ctx, sectionID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListForStudent(ctx, studentID, sectionID)
}

func (s *service) Mine(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]Attendance, error) {
	if err := CanReadOwn(actor); err != nil {
		return nil, err
	}
	return s.repo.ListForStudent(ctx, actor.ID, sectionID)
}

func (s *service) MyPresence(ctx context.Context, actor *user.User) ([]bool, error) {
	if err := CanReadOwn(actor); err != nil {
		return nil, err
	}
	return s.repo.Presence(ctx, actor.ID)
}

func (s *service) Create(ctx context.Context, in CreateInput, actor *user.User) (*Attendance, error) {
	day, err := validation.ParseDay("fecha", in.Date)
	if err != nil {
		return nil, err
	}
	if err := s.manageable(ctx, in.SectionID, actor); err != nil {
		return nil, err
	}

	enrolled, err := s.sections.IsEnrolled(ctx, in.SectionID, in.StudentID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	a := &Attendance{
		SectionID:  in.SectionID,
		StudentID:  in.StudentID,
		Date:       day,
		RecordedBy: actor.ID,
	}
	if in.Present != nil {
		a.Present = *in.Present
	}

	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return nil, duplicate(err)
	}

	s.metrics.RecordAttendance(ctx, "create")
	s.emitter.Emit(ctx, events.New(events.AttendanceRecorded, created.ID, actor.ID, created))
	s.logger.InfoContext(ctx, "attendance recorded",
		"attendance_id", created.ID,
		"section_id", created.SectionID,
		"student_id", created.StudentID,
		"present", created.Present,
	)
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *user.User) (*Attendance, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.manageable(ctx, a.SectionID, actor); err != nil {
		return nil, err
	}

	if in.Date != nil {
		day, err := validation.ParseDay("fecha", *in.Date)
		if err != nil {
			return nil, err
		}
		a.Date = day
	}
	if in.Present != nil {
		a.Present = *in.Present
	}
	a.RecordedBy = actor.ID

	updated, err := s.repo.Update(ctx, a)
	if err != nil {
		return nil, duplicate(notFound(err))
	}

	s.metrics.RecordAttendance(ctx, "update")
	s.emitter.Emit(ctx, events.New(events.AttendanceUpdated, updated.ID, actor.ID, updated))
	return updated, nil
}

func (s *service) manageable(ctx context.Context, sectionID uuid.UUID, actor *user.User) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	sec, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return section.ErrSectionNotFound
		}
		return err
	}
	return CanManage(actor, sec)
}

func notFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrAttendanceNotFound
	}
	return err
}

func duplicate(err error) error {
	if errors.Is(err, apperr.ErrConflict) {
		return ErrDuplicate
	}
	return err
}
