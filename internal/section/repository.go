package section

import (
	"context"
	"database/sql"
	"time"

	"github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/db"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	table            = "secciones"
	enrollmentsTable = "inscripciones"
)

var ErrSectionFull = apperr.Conflict("cupo_maximo", "La sección alcanzó su cupo máximo")

type Repository interface {
	Create(ctx context.Context, s *Section) (*Section, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Section, error)
	// GetDetailed loads the section with its subject, teacher and
	// enrolled students.
	GetDetailed(ctx context.Context, id uuid.UUID) (*Section, error)
	List(ctx context.Context, filter Filter) ([]Section, error)
	Update(ctx context.Context, s *Section) (*Section, error)
	Count(ctx context.Context, filter Filter) (int, error)
	// TeacherTeachesSubject reports whether teacherID owns an active
	// section of subjectID.
	TeacherTeachesSubject(ctx context.Context, teacherID, subjectID uuid.UUID) (bool, error)

	ListEnrollments(ctx context.Context, sectionID uuid.UUID) ([]Enrollment, error)
	// Enroll inserts e. With enforceCapacity the section row is locked
	// and the insert is refused once cupo_maximo is reached.
	Enroll(ctx context.Context, e *Enrollment, enforceCapacity bool) (*Enrollment, error)
	Unenroll(ctx context.Context, sectionID, studentID uuid.UUID) error
	IsEnrolled(ctx context.Context, sectionID, studentID uuid.UUID) (bool, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(database *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: database, metrics: m}
}

func (r *repository) Create(ctx context.Context, s *Section) (*Section, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(s).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return s, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Section, error) {
	start := time.Now()
	s := new(Section)
	err := r.db.NewSelect().Model(s).Where("s.id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return s, nil
}

func (r *repository) GetDetailed(ctx context.Context, id uuid.UUID) (*Section, error) {
	start := time.Now()
	s := new(Section)
	err := withDetails(r.db.NewSelect().Model(s)).Where("s.id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return s, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]Section, error) {
	start := time.Now()
	sections := make([]Section, 0)
	q := r.db.NewSelect().Model(&sections).Relation("Subject").Relation("Teacher")
	if !filter.OmitRoster {
		q = withRoster(q)
	}
	err := filtered(q, filter).
		Order("s.created_at DESC").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return sections, nil
}

func (r *repository) Update(ctx context.Context, s *Section) (*Section, error) {
	start := time.Now()
	res, err := r.db.NewUpdate().
		Model(s).
		Column("asignatura_id", "profesor_id", "periodo", "ano", "cupo_maximo", "activo").
		WherePK().
		Returning("*").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", table, time.Since(start), err)

	if err := db.Affected(res, err); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repository) Count(ctx context.Context, filter Filter) (int, error) {
	start := time.Now()
	n, err := filtered(r.db.NewSelect().Model((*Section)(nil)), filter).Count(ctx)
	r.metrics.Database.RecordQuery(ctx, "count", table, time.Since(start), err)

	if err != nil {
		return 0, db.Classify(err)
	}
	return n, nil
}

func (r *repository) TeacherTeachesSubject(ctx context.Context, teacherID, subjectID uuid.UUID) (bool, error) {
	start := time.Now()
	ok, err := r.db.NewSelect().
		Model((*Section)(nil)).
		Where("s.profesor_id = ?", teacherID).
		Where("s.asignatura_id = ?", subjectID).
		Where("s.activo = TRUE").
		Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "exists", table, time.Since(start), err)

	if err != nil {
		return false, db.Classify(err)
	}
	return ok, nil
}

func (r *repository) ListEnrollments(ctx context.Context, sectionID uuid.UUID) ([]Enrollment, error) {
	start := time.Now()
	enrollments := make([]Enrollment, 0)
	err := r.db.NewSelect().
		Model(&enrollments).
		Relation("Student").
		Where("i.seccion_id = ?", sectionID).
		Order("student.apellido ASC", "student.nombre ASC").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", enrollmentsTable, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return enrollments, nil
}

func (r *repository) Enroll(ctx context.Context, e *Enrollment, enforceCapacity bool) (*Enrollment, error) {
	start := time.Now()
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if enforceCapacity {
			var capacity int
			err := tx.NewSelect().
				Model((*Section)(nil)).
				Column("cupo_maximo").
				Where("s.id = ?", e.SectionID).
				For("UPDATE").
				Scan(ctx, &capacity)
			if err != nil {
				return err
			}

			enrolled, err := tx.NewSelect().
				Model((*Enrollment)(nil)).
				Where("i.seccion_id = ?", e.SectionID).
				Count(ctx)
			if err != nil {
				return err
			}
			if enrolled >= capacity {
				return ErrSectionFull
			}
		}

		_, err := tx.NewInsert().Model(e).Returning("*").Exec(ctx)
		return err
	})
	r.metrics.Database.RecordQuery(ctx, "insert", enrollmentsTable, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return e, nil
}

func (r *repository) Unenroll(ctx context.Context, sectionID, studentID uuid.UUID) error {
	start := time.Now()
	res, err := r.db.NewDelete().
		Model((*Enrollment)(nil)).
		Where("seccion_id = ?", sectionID).
		Where("alumno_id = ?", studentID).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", enrollmentsTable, time.Since(start), err)

	return db.Affected(res, err)
}

func (r *repository) IsEnrolled(ctx context.Context, sectionID, studentID uuid.UUID) (bool, error) {
	start := time.Now()
	ok, err := r.db.NewSelect().
		Model((*Enrollment)(nil)).
		Where("i.seccion_id = ?", sectionID).
		Where("i.alumno_id = ?", studentID).
		Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "exists", enrollmentsTable, time.Since(start), err)

	if err != nil {
		return false, db.Classify(err)
	}
	return ok, nil
}

func withDetails(q *bun.SelectQuery) *bun.SelectQuery {
	return withRoster(q.Relation("Subject").Relation("Teacher"))
}

func withRoster(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Relation("Enrollments", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Relation("Student").Order("i.created_at ASC")
	})
}

func filtered(q *bun.SelectQuery, filter Filter) *bun.SelectQuery {
	if filter.SubjectID != uuid.Nil {
		q = q.Where("s.asignatura_id = ?", filter.SubjectID)
	}
	if filter.TeacherID != uuid.Nil {
		q = q.Where("s.profesor_id = ?", filter.TeacherID)
	}
	if filter.StudentID != uuid.Nil {
		q = q.Where("EXISTS (SELECT 1 FROM inscripciones AS ins WHERE ins.seccion_id = s.id AND ins.alumno_id = ?)", filter.StudentID)
	}
	if filter.ActiveOnly {
		q = q.Where("s.activo = TRUE")
	}
	return q
}
