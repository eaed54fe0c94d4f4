package attendance

import (
	"context"
	"time"

	"github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/internal/db"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const table = "asistencias"

type Repository interface {
	Create(ctx context.Context, a *Attendance) (*Attendance, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Attendance, error)
	// ListByDate returns a section's records for one day with the student
	// loaded, by apellido.
	ListByDate(ctx context.Context, sectionID uuid.UUID, date time.Time) ([]Attendance, error)
	ListForStudent(ctx context.Context, studentID, sectionID uuid.UUID) ([]Attendance, error)
	// Presence returns the presente flag of every record of studentID.
	Presence(ctx context.Context, studentID uuid.UUID) ([]bool, error)
	Update(ctx context.Context, a *Attendance) (*Attendance, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(database *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: database, metrics: m}
}

func (r *repository) Create(ctx context.Context, a *Attendance) (*Attendance, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(a).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return a, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Attendance, error) {
	start := time.Now()
	a := new(Attendance)
	err := r.db.NewSelect().Model(a).Where("a.id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return a, nil
}

func (r *repository) ListByDate(ctx context.Context, sectionID uuid.UUID, date time.Time) ([]Attendance, error) {
	start := time.Now()
	records := make([]Attendance, 0)
	err := r.db.NewSelect().
		Model(&records).
		Relation("Student").
		Where("a.seccion_id = ?", sectionID).
		Where("a.fecha = ?", date.Format(time.DateOnly)).
		Order("student.apellido ASC", "student.nombre ASC").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return records, nil
}

func (r *repository) ListForStudent(ctx context.Context, studentID, sectionID uuid.UUID) ([]Attendance, error) {
	start := time.Now()
	records := make([]Attendance, 0)
	err := r.db.NewSelect().
		Model(&records).
		Where("a.alumno_id = ?", studentID).
		Where("a.seccion_id = ?", sectionID).
		Order("a.fecha ASC").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return records, nil
}

func (r *repository) Presence(ctx context.Context, studentID uuid.UUID) ([]bool, error) {
	start := time.Now()
	flags := make([]bool, 0)
	err := r.db.NewSelect().
		TableExpr("asistencias AS a").
		Column("a.presente").
		Where("a.alumno_id = ?", studentID).
		Scan(ctx, &flags)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return flags, nil
}

func (r *repository) Update(ctx context.Context, a *Attendance) (*Attendance, error) {
	start := time.Now()
	res, err := r.db.NewUpdate().
		Model(a).
		Column("fecha", "presente", "registrado_por").
		WherePK().
		Returning("*").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", table, time.Since(start), err)

	if err := db.Affected(res, err); err != nil {
		return nil, err
	}
	return a, nil
}
