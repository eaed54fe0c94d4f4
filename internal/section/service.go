package section

import (
	"context"
	"errors"
	"log/slog"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/google/uuid"
)

var (
	ErrSectionNotFound    = apperr.NotFound("Sección no encontrada")
	ErrEnrollmentNotFound = apperr.NotFound("Inscripción no encontrada")
	ErrAlreadyEnrolled    = apperr.Conflict("alumno_id", "El alumno ya está inscrito en esta sección")
)

// UserLookup resolves the teacher and students a section refers to.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Service interface {
	List(ctx context.Context, actor *user.User) ([]Section, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID, actor *user.User) ([]Section, error)
	Get(ctx context.Context, id uuid.UUID, actor *user.User) (*Section, error)
	Create(ctx context.Context, in CreateInput, actor *user.User) (*Section, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *user.User) (*Section, error)
	// Deactivate sets activo=false; sections are never hard-deleted.
	Deactivate(ctx context.Context, id uuid.UUID, actor *user.User) (*Section, error)

	TeacherSections(ctx context.Context, teacherID uuid.UUID, actor *user.User) ([]Section, error)
	UpdateTeacherSection(ctx context.Context, teacherID, sectionID uuid.UUID, in TeacherUpdateInput, actor *user.User) (*Section, error)
	DeactivateTeacherSection(ctx context.Context, teacherID, sectionID uuid.UUID, actor *user.User) (*Section, error)

	Enrollments(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]Enrollment, error)
	Enroll(ctx context.Context, sectionID uuid.UUID, in EnrollInput, actor *user.User) (*Enrollment, error)
	Unenroll(ctx context.Context, sectionID, studentID uuid.UUID, actor *user.User) error

	// Owned loads the section and applies CanManage. Packages that scope
	// records to a section authorize through it.
	Owned(ctx context.Context, id uuid.UUID, actor *user.User) (*Section, error)
	// Attends loads the section and checks the student is enrolled in it.
	Attends(ctx context.Context, id, studentID uuid.UUID) (*Section, error)
}

type Options struct {
	EnforceCapacity bool
}

type service struct {
	repo   Repository
	users  UserLookup
	opts   Options
	logger *slog.Logger
}

func NewService(repo Repository, users UserLookup, opts Options, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		users:  users,
		opts:   opts,
		logger: logger,
	}
}

func (s *service) List(ctx context.Context, actor *user.User) ([]Section, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	return s.repo.List(ctx, Filter{ActiveOnly: true})
}

func (s *service) ListBySubject(ctx context.Context, subjectID uuid.UUID, actor *user.User) ([]Section, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	return s.repo.List(ctx, Filter{SubjectID: subjectID, ActiveOnly: true})
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor *user.User) (*Section, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	sec, err := s.repo.GetDetailed(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return sec, nil
}

func (s *service) Create(ctx context.Context, in CreateInput, actor *user.User) (*Section, error) {
	if err := CanAdminister(actor); err != nil {
		return nil, err
	}
	if err := s.requireTeacher(ctx, in.TeacherID); err != nil {
		return nil, err
	}

	sec := &Section{
		SubjectID: in.SubjectID,
		TeacherID: in.TeacherID,
		Period:    in.Period,
		Year:      in.Year,
		Capacity:  DefaultCapacity,
		Active:    true,
	}
	if in.Capacity != nil {
		sec.Capacity = *in.Capacity
	}
	if in.Active != nil {
		sec.Active = *in.Active
	}

	created, err := s.repo.Create(ctx, sec)
	if err != nil {
		return nil, foreignKey(err)
	}

	s.logger.InfoContext(ctx, "section created",
		"section_id", created.ID,
		"subject_id", created.SubjectID,
		"teacher_id", created.TeacherID,
	)
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *user.User) (*Section, error) {
	sec, err := s.Owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, sec, in, actor)
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID, actor *user.User) (*Section, error) {
	inactive := false
	return s.Update(ctx, id, UpdateInput{Active: &inactive}, actor)
}

func (s *service) TeacherSections(ctx context.Context, teacherID uuid.UUID, actor *user.User) ([]Section, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if !actor.IsAdmin() && actor.ID != teacherID {
		return nil, apperr.ErrForbidden
	}
	return s.repo.List(ctx, Filter{TeacherID: teacherID, ActiveOnly: true})
}

func (s *service) UpdateTeacherSection(ctx context.Context, teacherID, sectionID uuid.UUID, in TeacherUpdateInput, actor *user.User) (*Section, error) {
	sec, err := s.teacherScoped(ctx, teacherID, sectionID, actor)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, sec, in.UpdateInput(), actor)
}

func (s *service) DeactivateTeacherSection(ctx context.Context, teacherID, sectionID uuid.UUID, actor *user.User) (*Section, error) {
	sec, err := s.teacherScoped(ctx, teacherID, sectionID, actor)
	if err != nil {
		return nil, err
	}
	inactive := false
	return s.update(ctx, sec, UpdateInput{Active: &inactive}, actor)
}

func (s *service) Enrollments(ctx context.Context, sectionID uuid.UUID, actor *user.User) ([]Enrollment, error) {
	if _, err := s.Owned(ctx, sectionID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListEnrollments(ctx, sectionID)
}

func (s *service) Enroll(ctx context.Context, sectionID uuid.UUID, in EnrollInput, actor *user.User) (*Enrollment, error) {
	if err := CanAdminister(actor); err != nil {
		return nil, err
	}
	if _, err := s.get(ctx, sectionID); err != nil {
		return nil, err
	}

	student, err := s.users.GetByID(ctx, in.StudentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Invalid("alumno_id", "debe ser un usuario existente")
		}
		return nil, err
	}
	if !student.IsStudent() {
		return nil, apperr.Invalid("alumno_id", "debe ser un usuario con rol alumno")
	}

	e, err := s.repo.Enroll(ctx, &Enrollment{SectionID: sectionID, StudentID: student.ID}, s.opts.EnforceCapacity)
	if err != nil {
		// ErrSectionFull is itself a conflict; only the unique key maps
		// to a duplicate enrollment.
		if e := apperr.As(err); e != nil && e.Kind == apperr.KindConflict && e != ErrSectionFull {
			return nil, ErrAlreadyEnrolled
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "student enrolled", "section_id", sectionID, "student_id", student.ID)
	e.Student = student.Summary()
	return e, nil
}

func (s *service) Unenroll(ctx context.Context, sectionID, studentID uuid.UUID, actor *user.User) error {
	if err := CanAdminister(actor); err != nil {
		return err
	}
	if err := s.repo.Unenroll(ctx, sectionID, studentID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrEnrollmentNotFound
		}
		return err
	}
	s.logger.InfoContext(ctx, "student unenrolled", "section_id", sectionID, "student_id", studentID)
	return nil
}

func (s *service) Owned(ctx context.Context, id uuid.UUID, actor *user.User) (*Section, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	sec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanManage(actor, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

func (s *service) Attends(ctx context.Context, id, studentID uuid.UUID) (*Section, error) {
	sec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.IsEnrolled(ctx, id, studentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("No está inscrito en esta sección")
	}
	return sec, nil
}

func (s *service) update(ctx context.Context, sec *Section, in UpdateInput, actor *user.User) (*Section, error) {
	if in.TeacherID != nil && *in.TeacherID != sec.TeacherID {
		if err := CanAdminister(actor); err != nil {
			return nil, err
		}
		if err := s.requireTeacher(ctx, *in.TeacherID); err != nil {
			return nil, err
		}
	}
	if in.SubjectID != nil && *in.SubjectID != sec.SubjectID {
		if err := CanAdminister(actor); err != nil {
			return nil, err
		}
	}

	wasActive := sec.Active
	in.Apply(sec)

	updated, err := s.repo.Update(ctx, sec)
	if err != nil {
		return nil, foreignKey(notFound(err))
	}
	if wasActive && !updated.Active {
		s.logger.InfoContext(ctx, "section deactivated", "section_id", updated.ID, "actor_id", actor.ID)
	}
	return updated, nil
}

// teacherScoped resolves a section through the teacher routes: a section
// not assigned to teacherID does not exist there.
func (s *service) teacherScoped(ctx context.Context, teacherID, sectionID uuid.UUID, actor *user.User) (*Section, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	sec, err := s.get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if sec.TeacherID != teacherID {
		return nil, ErrSectionNotFound
	}
	if err := CanManage(actor, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

func (s *service) requireTeacher(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Invalid("profesor_id", "debe ser un usuario existente")
		}
		return err
	}
	if !u.IsTeacher() {
		return apperr.Invalid("profesor_id", "debe ser un usuario con rol profesor")
	}
	return nil
}

func (s *service) get(ctx context.Context, id uuid.UUID) (*Section, error) {
	sec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return sec, nil
}

func notFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrSectionNotFound
	}
	return err
}

// foreignKey names the missing subject when the insert hit its reference.
func foreignKey(err error) error {
	e := apperr.As(err)
	if e == nil || e.Kind != apperr.KindValidation {
		return err
	}
	for _, f := range e.Fields {
		if f.Field == "asignatura_id" {
			return apperr.Invalid("asignatura_id", "debe ser una asignatura existente")
		}
	}
	return err
}
