package grade

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/evaluation"
	"github.com/isekhard17/academia-sekhard/internal/events"
	"github.com/isekhard17/academia-sekhard/internal/export"
	"github.com/isekhard17/academia-sekhard/internal/metrics"
	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/stats"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/google/uuid"
)

var (
	ErrGradeNotFound = apperr.NotFound("Nota no encontrada")
	ErrDuplicate     = apperr.Conflict("alumno_id", "Ya existe una nota para este alumno en esta evaluación")
	ErrNotEnrolled   = apperr.Invalid("alumno_id", "el alumno no está inscrito en la sección")
)

type SectionLookup interface {
	GetDetailed(ctx context.Context, id uuid.UUID) (*section.Section, error)
	GetByID(ctx context.Context, id uuid.UUID) (*section.Section, error)
	IsEnrolled(ctx context.Context, sectionID, studentID uuid.UUID) (bool, error)
}

type EvaluationLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*evaluation.Evaluation, error)
	ListBySection(ctx context.Context, sectionID uuid.UUID) ([]evaluation.Evaluation, error)
}

type Service interface {
	// ListForStudent is the staff view of one student's grades in a section.
	ListForStudent(ctx context.Context, studentID, sectionID uuid.UUID, actor *user.User) ([]Grade, error)
	// Mine returns the actor's own grades in a section.
	Mine(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]Grade, error)
	// MyAverage is the mean of every grade the actor holds.
	MyAverage(ctx context.Context, actor *user.User) (float64, error)
	Create(ctx context.Context, in CreateInput, actor *user.User) (*Grade, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *user.User) (*Grade, error)
	Delete(ctx context.Context, id uuid.UUID, actor *user.User) error
	Gradebook(ctx context.Context, sectionID uuid.UUID, actor *user.User) (*export.Gradebook, error)
}

type service struct {
	repo        Repository
	sections    SectionLookup
	evaluations EvaluationLookup
	emitter     *events.Emitter
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewService(
	repo Repository,
	sections SectionLookup,
	evaluations EvaluationLookup,
	emitter *events.Emitter,
	m *metrics.Metrics,
	logger *slog.Logger,
) Service {
	return &service{
		repo:        repo,
		sections:    sections,
		evaluations: evaluations,
		emitter:     emitter,
		metrics:     m,
		logger:      logger,
	}
}

func (s *service) ListForStudent(ctx context.Context, studentID, sectionID uuid.UUID, actor *user.User) ([]Grade, error) {
	if _, err := s.manageable(ctx, sectionID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListForStudent(ctx, studentID, sectionID)
}

func (s *service) Mine(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]Grade, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if err := CanReadOwn(actor, actor.ID); err != nil {
		return nil, err
	}
	return s.repo.ListForStudent(ctx, actor.ID, sectionID)
}

func (s *service) MyAverage(ctx context.Context, actor *user.User) (float64, error) {
	if actor == nil {
		return 0, apperr.ErrUnauthenticated
	}
	if err := CanReadOwn(actor, actor.ID); err != nil {
		return 0, err
	}
	scores, err := s.repo.Scores(ctx, actor.ID)
	if err != nil {
		return 0, err
	}
	return stats.Average(scores), nil
}

func (s *service) Create(ctx context.Context, in CreateInput, actor *user.User) (*Grade, error) {
	ev, err := s.evaluation(ctx, in.EvaluationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.manageable(ctx, ev.SectionID, actor); err != nil {
		return nil, err
	}

	enrolled, err := s.sections.IsEnrolled(ctx, ev.SectionID, in.StudentID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	g, err := s.repo.Create(ctx, &Grade{
		EvaluationID: ev.ID,
		StudentID:    in.StudentID,
		Score:        *in.Score,
		Comment:      in.Comment,
		RecordedBy:   actor.ID,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	s.metrics.RecordGrade(ctx, "create")
	s.emitter.Emit(ctx, events.New(events.GradeRecorded, g.ID, actor.ID, g))
	s.logger.InfoContext(ctx, "grade recorded",
		"grade_id", g.ID,
		"evaluation_id", g.EvaluationID,
		"student_id", g.StudentID,
		"actor_id", actor.ID,
	)
	return g, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *user.User) (*Grade, error) {
	g, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	ev, err := s.evaluation(ctx, g.EvaluationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.manageable(ctx, ev.SectionID, actor); err != nil {
		return nil, err
	}

	in.Apply(g)
	g.RecordedBy = actor.ID

	updated, err := s.repo.Update(ctx, g)
	if err != nil {
		return nil, notFound(err)
	}

	s.metrics.RecordGrade(ctx, "update")
	s.emitter.Emit(ctx, events.New(events.GradeUpdated, updated.ID, actor.ID, updated))
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor *user.User) error {
	g, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	ev, err := s.evaluation(ctx, g.EvaluationID)
	if err != nil {
		return err
	}
	if _, err := s.manageable(ctx, ev.SectionID, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.logger.InfoContext(ctx, "grade deleted", "grade_id", id, "actor_id", actor.ID)
	return nil
}

func (s *service) Gradebook(ctx context.Context, sectionID uuid.UUID, actor *user.User) (*export.Gradebook, error) {
	if _, err := s.manageable(ctx, sectionID, actor); err != nil {
		return nil, err
	}

	sec, err := s.sections.GetDetailed(ctx, sectionID)
	if err != nil {
		return nil, sectionNotFound(err)
	}
	evaluations, err := s.evaluations.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	book := &export.Gradebook{
		Title:   sec.Label(),
		Columns: make([]export.Column, len(evaluations)),
	}
	scores := make(map[uuid.UUID]map[uuid.UUID]float64, len(evaluations))
	for i, ev := range evaluations {
		book.Columns[i] = export.Column{Name: ev.Name, Weight: ev.Weight}
		byStudent := make(map[uuid.UUID]float64, len(ev.Grades))
		for _, g := range ev.Grades {
			byStudent[g.StudentID] = g.Score
		}
		scores[ev.ID] = byStudent
	}

	students := make([]*user.Summary, 0, len(sec.Enrollments))
	for _, e := range sec.Enrollments {
		if e.Student != nil {
			students = append(students, e.Student)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].LastName != students[j].LastName {
			return students[i].LastName < students[j].LastName
		}
		return students[i].FirstName < students[j].FirstName
	})

	for _, st := range students {
		row := export.Row{
			Student: st.LastName + ", " + st.FirstName,
			Scores:  make([]*float64, len(evaluations)),
		}
		var got []float64
		for i, ev := range evaluations {
			if v, ok := scores[ev.ID][st.ID]; ok {
				row.Scores[i] = &v
				got = append(got, v)
			}
		}
		row.Average = stats.Round1(stats.Average(got))
		book.Rows = append(book.Rows, row)
	}

	s.metrics.RecordGradebookExport(ctx)
	s.logger.InfoContext(ctx, "gradebook exported", "section_id", sectionID, "rows", len(book.Rows), "actor_id", actor.ID)
	return book, nil
}

func (s *service) manageable(ctx context.Context, sectionID uuid.UUID, actor *user.User) (*section.Section, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	sec, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		return nil, sectionNotFound(err)
	}
	if err := CanManage(actor, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

func (s *service) evaluation(ctx context.Context, id uuid.UUID) (*evaluation.Evaluation, error) {
	ev, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, evaluation.ErrEvaluationNotFound
		}
		return nil, err
	}
	return ev, nil
}

func (s *service) get(ctx context.Context, id uuid.UUID) (*Grade, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

func notFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrGradeNotFound
	}
	return err
}

func sectionNotFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return section.ErrSectionNotFound
	}
	return err
}
