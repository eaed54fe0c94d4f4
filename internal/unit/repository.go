package unit

import (
	"context"
	"time"

	"github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/internal/db"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	unitsTable     = "unidades"
	materialsTable = "materiales"
)

type Repository interface {
	CreateUnit(ctx context.Context, u *Unit) (*Unit, error)
	GetUnit(ctx context.Context, id uuid.UUID) (*Unit, error)
	// ListUnits returns the subject's units by orden, materials included.
	ListUnits(ctx context.Context, subjectID uuid.UUID) ([]Unit, error)
	UpdateUnit(ctx context.Context, u *Unit) (*Unit, error)
	DeleteUnit(ctx context.Context, id uuid.UUID) error

	CreateMaterial(ctx context.Context, m *Material) (*Material, error)
	GetMaterial(ctx context.Context, id uuid.UUID) (*Material, error)
	ListMaterials(ctx context.Context, unitID uuid.UUID) ([]Material, error)
	UpdateMaterial(ctx context.Context, m *Material) (*Material, error)
	DeleteMaterial(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(database *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: database, metrics: m}
}

func (r *repository) CreateUnit(ctx context.Context, u *Unit) (*Unit, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(u).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", unitsTable, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return u, nil
}

func (r *repository) GetUnit(ctx context.Context, id uuid.UUID) (*Unit, error) {
	start := time.Now()
	u := new(Unit)
	err := r.db.NewSelect().Model(u).Where("un.id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", unitsTable, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return u, nil
}

func (r *repository) ListUnits(ctx context.Context, subjectID uuid.UUID) ([]Unit, error) {
	start := time.Now()
	units := make([]Unit, 0)
	err := r.db.NewSelect().
		Model(&units).
		Relation("Materials", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("m.created_at ASC")
		}).
		Where("un.asignatura_id = ?", subjectID).
		Order("un.orden ASC").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", unitsTable, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return units, nil
}

func (r *repository) UpdateUnit(ctx context.Context, u *Unit) (*Unit, error) {
	start := time.Now()
	res, err := r.db.NewUpdate().
		Model(u).
		Column("nombre", "descripcion", "orden").
		WherePK().
		Returning("*").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", unitsTable, time.Since(start), err)

	if err := db.Affected(res, err); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repository) DeleteUnit(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	res, err := r.db.NewDelete().Model((*Unit)(nil)).Where("id = ?", id).Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", unitsTable, time.Since(start), err)

	return db.Affected(res, err)
}

func (r *repository) CreateMaterial(ctx context.Context, m *Material) (*Material, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(m).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", materialsTable, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return m, nil
}

func (r *repository) GetMaterial(ctx context.Context, id uuid.UUID) (*Material, error) {
	start := time.Now()
	m := new(Material)
	err := r.db.NewSelect().Model(m).Where("m.id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", materialsTable, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return m, nil
}

func (r *repository) ListMaterials(ctx context.Context, unitID uuid.UUID) ([]Material, error) {
	start := time.Now()
	materials := make([]Material, 0)
	err := r.db.NewSelect().
		Model(&materials).
		Where("m.unidad_id = ?", unitID).
		Order("m.created_at ASC").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", materialsTable, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return materials, nil
}

func (r *repository) UpdateMaterial(ctx context.Context, m *Material) (*Material, error) {
	start := time.Now()
	res, err := r.db.NewUpdate().
		Model(m).
		Column("nombre", "descripcion", "tipo", "url").
		WherePK().
		Returning("*").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", materialsTable, time.Since(start), err)

	if err := db.Affected(res, err); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *repository) DeleteMaterial(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	res, err := r.db.NewDelete().Model((*Material)(nil)).Where("id = ?", id).Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", materialsTable, time.Since(start), err)

	return db.Affected(res, err)
}
