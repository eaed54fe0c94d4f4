package evaluation

import (
	"context"
	"time"

	"github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/internal/db"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const table = "evaluaciones"

type Repository interface {
	Create(ctx context.Context, e *Evaluation) (*Evaluation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Evaluation, error)
	// ListBySection returns the section's evaluations by fecha_entrega,
	// each with its grades and their students.
	ListBySection(ctx context.Context, sectionID uuid.UUID) ([]Evaluation, error)
	// ListDue returns evaluations matching filter with their section,
	// subject and teacher loaded, soonest first.
	ListDue(ctx context.Context, filter Filter, limit int) ([]Evaluation, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Update(ctx context.Context, e *Evaluation) (*Evaluation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(database *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: database, metrics: m}
}

func (r *repository) Create(ctx context.Context, e *Evaluation) (*Evaluation, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(e).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return e, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Evaluation, error) {
	start := time.Now()
	e := new(Evaluation)
	err := r.db.NewSelect().Model(e).Where("ev.id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return e, nil
}

func (r *repository) ListBySection(ctx context.Context, sectionID uuid.UUID) ([]Evaluation, error) {
	start := time.Now()
	evaluations := make([]Evaluation, 0)
	err := r.db.NewSelect().
		Model(&evaluations).
		Relation("Grades", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Relation("Student")
		}).
		Where("ev.seccion_id = ?", sectionID).
		Order("ev.fecha_entrega ASC").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return evaluations, nil
}

func (r *repository) ListDue(ctx context.Context, filter Filter, limit int) ([]Evaluation, error) {
	start := time.Now()
	evaluations := make([]Evaluation, 0)
	q := filtered(r.db.NewSelect().Model(&evaluations), filter).
		Relation("Section").
		Relation("Section.Subject").
		Relation("Section.Teacher").
		Order("ev.fecha_entrega ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return evaluations, nil
}

func (r *repository) Count(ctx context.Context, filter Filter) (int, error) {
	start := time.Now()
	n, err := filtered(r.db.NewSelect().Model((*Evaluation)(nil)), filter).Count(ctx)
	r.metrics.Database.RecordQuery(ctx, "count", table, time.Since(start), err)

	if err != nil {
		return 0, db.Classify(err)
	}
	return n, nil
}

func (r *repository) Update(ctx context.Context, e *Evaluation) (*Evaluation, error) {
	start := time.Now()
	res, err := r.db.NewUpdate().
		Model(e).
		Column("unidad_id", "nombre", "descripcion", "tipo", "ponderacion", "fecha_entrega").
		WherePK().
		Returning("*").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", table, time.Since(start), err)

	if err := db.Affected(res, err); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	res, err := r.db.NewDelete().Model((*Evaluation)(nil)).Where("id = ?", id).Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", table, time.Since(start), err)

	return db.Affected(res, err)
}

func filtered(q *bun.SelectQuery, filter Filter) *bun.SelectQuery {
	if filter.SectionID != uuid.Nil {
		q = q.Where("ev.seccion_id = ?", filter.SectionID)
	}
	if filter.TeacherID != uuid.Nil {
		q = q.Where("EXISTS (SELECT 1 FROM secciones AS sec WHERE sec.id = ev.seccion_id AND sec.profesor_id = ?)", filter.TeacherID)
	}
	if filter.StudentID != uuid.Nil {
		q = q.Where("EXISTS (SELECT 1 FROM inscripciones AS ins WHERE ins.seccion_id = ev.seccion_id AND ins.alumno_id = ?)", filter.StudentID)
	}
	if !filter.DueFrom.IsZero() {
		q = q.Where("ev.fecha_entrega >= ?", filter.DueFrom)
	}
	return q
}
