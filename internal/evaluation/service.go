package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/stats"
	"github.com/isekhard17/academia-sekhard/internal/unit"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/google/uuid"
)

var ErrEvaluationNotFound = apperr.NotFound("Evaluación no encontrada")

// SectionLookup is the slice of the section repository evaluations
// authorize against.
type SectionLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*section.Section, error)
}

type UnitLookup interface {
	GetUnit(ctx context.Context, id uuid.UUID) (*unit.Unit, error)
}

type Service interface {
	ListBySection(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]Evaluation, error)
	Get(ctx context.Context, id uuid.UUID, actor *user.User) (*Evaluation, error)
	Create(ctx context.Context, in CreateInput, actor *user.User) (*Evaluation, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *user.User) (*Evaluation, error)
	Delete(ctx context.Context, id uuid.UUID, actor *user.User) error
	// Upcoming lists what the actor can see that is still due: every
	// section for admins, owned sections for teachers, enrolled sections
	// for students.
	Upcoming(ctx context.Context, actor *user.User) ([]Upcoming, error)
	// PendingFor counts the evaluations still due in studentID's sections.
	PendingFor(ctx context.Context, studentID uuid.UUID) (int, error)
}

type Options struct {
	UpcomingLimit int
	Now           func() time.Time
}

type service struct {
	repo     Repository
	sections SectionLookup
	units    UnitLookup
	opts     Options
	logger   *slog.Logger
}

func NewService(repo Repository, sections SectionLookup, units UnitLookup, opts Options, logger *slog.Logger) Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		repo:     repo,
		sections: sections,
		units:    units,
		opts:     opts,
		logger:   logger,
	}
}

func (s *service) ListBySection(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]Evaluation, error) {
	if _, err := s.manageable(ctx, sectionID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListBySection(ctx, sectionID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor *user.User) (*Evaluation, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.manageable(ctx, e.SectionID, actor); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *service) Create(ctx context.Context, in CreateInput, actor *user.User) (*Evaluation, error) {
	sec, err := s.manageable(ctx, in.SectionID, actor)
	if err != nil {
		return nil, err
	}
	if err := s.checkUnit(ctx, in.UnitID, sec); err != nil {
		return nil, err
	}

	e, err := s.repo.Create(ctx, &Evaluation{
		SectionID:   in.SectionID,
		UnitID:      in.UnitID,
		Name:        in.Name,
		Description: in.Description,
		Type:        in.Type,
		Weight:      *in.Weight,
		DueAt:       in.DueAt,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "evaluation created",
		"evaluation_id", e.ID,
		"section_id", e.SectionID,
		"actor_id", actor.ID,
	)
	return e, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *user.User) (*Evaluation, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	sec, err := s.manageable(ctx, e.SectionID, actor)
	if err != nil {
		return nil, err
	}
	if in.UnitID != nil && *in.UnitID != e.UnitID {
		if err := s.checkUnit(ctx, *in.UnitID, sec); err != nil {
			return nil, err
		}
	}

	in.Apply(e)
	updated, err := s.repo.Update(ctx, e)
	if err != nil {
		return nil, notFound(err)
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor *user.User) error {
	e, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.manageable(ctx, e.SectionID, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.logger.InfoContext(ctx, "evaluation deleted", "evaluation_id", id, "actor_id", actor.ID)
	return nil
}

func (s *service) Upcoming(ctx context.Context, actor *user.User) ([]Upcoming, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if actor.IsStudent() {
		return nil, apperr.ErrForbidden
	}

	// Students count theirs through PendingFor.
	now := s.opts.Now()
	filter := Filter{DueFrom: now}
	if actor.IsTeacher() {
		filter.TeacherID = actor.ID
	}

	due, err := s.repo.ListDue(ctx, filter, s.opts.UpcomingLimit)
	if err != nil {
		return nil, err
	}
	due = stats.Upcoming(due, func(e Evaluation) time.Time { return e.DueAt }, now, s.opts.UpcomingLimit)

	out := make([]Upcoming, len(due))
	for i := range due {
		out[i] = due[i].Upcoming()
	}
	return out, nil
}

func (s *service) PendingFor(ctx context.Context, studentID uuid.UUID) (int, error) {
	return s.repo.Count(ctx, Filter{StudentID: studentID, DueFrom: s.opts.Now()})
}

func (s *service) manageable(ctx context.Context, sectionID uuid.UUID, actor *user.User) (*section.Section, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	sec, err := s.section(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if err := CanManage(actor, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

// checkUnit requires the unit to belong to the section's subject.
func (s *service) checkUnit(ctx context.Context, unitID uuid.UUID, sec *section.Section) error {
	u, err := s.units.GetUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Invalid("unidad_id", "debe ser una unidad existente")
		}
		return err
	}
	if u.SubjectID != sec.SubjectID {
		return apperr.Invalid("unidad_id", "debe pertenecer a la asignatura de la sección")
	}
	return nil
}

func (s *service) section(ctx context.Context, id uuid.UUID) (*section.Section, error) {
	sec, err := s.sections.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, section.ErrSectionNotFound
		}
		return nil, err
	}
	return sec, nil
}

func (s *service) get(ctx context.Context, id uuid.UUID) (*Evaluation, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

func notFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrEvaluationNotFound
	}
	return err
}
