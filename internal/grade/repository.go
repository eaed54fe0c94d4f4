package grade

import (
	"context"
	"time"

	"github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/internal/db"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const table = "notas"

type Repository interface {
	Create(ctx context.Context, g *Grade) (*Grade, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Grade, error)
	// ListForStudent returns studentID's grades in sectionID with the
	// evaluation loaded, by fecha_entrega.
	ListForStudent(ctx context.Context, studentID, sectionID uuid.UUID) ([]Grade, error)
	// Scores returns every score of studentID across all sections.
	Scores(ctx context.Context, studentID uuid.UUID) ([]float64, error)
	Update(ctx context.Context, g *Grade) (*Grade, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(database *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: database, metrics: m}
}

func (r *repository) Create(ctx context.Context, g *Grade) (*Grade, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(g).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return g, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Grade, error) {
	start := time.Now()
	g := new(Grade)
	err := r.db.NewSelect().Model(g).Where("n.id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return g, nil
}

func (r *repository) ListForStudent(ctx context.Context, studentID, sectionID uuid.UUID) ([]Grade, error) {
	start := time.Now()
	grades := make([]Grade, 0)
	err := r.db.NewSelect().
		Model(&grades).
		Relation("Evaluation").
		Where("n.alumno_id = ?", studentID).
		Where("evaluation.seccion_id = ?", sectionID).
		Order("evaluation.fecha_entrega ASC").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return grades, nil
}

func (r *repository) Scores(ctx context.Context, studentID uuid.UUID) ([]float64, error) {
	start := time.Now()
	scores := make([]float64, 0)
	err := r.db.NewSelect().
		TableExpr("notas AS n").
		Column("n.nota").
		Where("n.alumno_id = ?", studentID).
		Scan(ctx, &scores)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return scores, nil
}

func (r *repository) Update(ctx context.Context, g *Grade) (*Grade, error) {
	start := time.Now()
	res, err := r.db.NewUpdate().
		Model(g).
		Column("nota", "comentario", "registrado_por").
		WherePK().
		Returning("*").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", table, time.Since(start), err)

	if err := db.Affected(res, err); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	res, err := r.db.NewDelete().Model((*Grade)(nil)).Where("id = ?", id).Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", table, time.Since(start), err)

	return db.Affected(res, err)
}
