package subject

import (
	"context"
	"time"

	"github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/internal/db"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const table = "asignaturas"

type Repository interface {
	Create(ctx context.Context, s *Subject) (*Subject, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Subject, error)
	List(ctx context.Context) ([]Subject, error)
	Update(ctx context.Context, s *Subject) (*Subject, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
	// Exists reports whether another subject already uses exactly value
	// for field, matching the unique constraints. exclude is skipped when
	// not uuid.Nil.
	Exists(ctx context.Context, field Field, value string, exclude uuid.UUID) (bool, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(database *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: database, metrics: m}
}

func (r *repository) Create(ctx context.Context, s *Subject) (*Subject, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(s).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return s, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Subject, error) {
	start := time.Now()
	s := new(Subject)
	err := r.db.NewSelect().Model(s).Where("a.id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return s, nil
}

func (r *repository) List(ctx context.Context) ([]Subject, error) {
	start := time.Now()
	subjects := make([]Subject, 0)
	err := r.db.NewSelect().Model(&subjects).Order("a.codigo ASC").Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return subjects, nil
}

func (r *repository) Update(ctx context.Context, s *Subject) (*Subject, error) {
	start := time.Now()
	res, err := r.db.NewUpdate().
		Model(s).
		Column("codigo", "nombre", "descripcion").
		WherePK().
		Returning("*").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", table, time.Since(start), err)

	if err := db.Affected(res, err); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	res, err := r.db.NewDelete().Model((*Subject)(nil)).Where("id = ?", id).Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", table, time.Since(start), err)

	return db.Affected(res, err)
}

func (r *repository) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := r.db.NewSelect().Model((*Subject)(nil)).Count(ctx)
	r.metrics.Database.RecordQuery(ctx, "count", table, time.Since(start), err)

	if err != nil {
		return 0, db.Classify(err)
	}
	return n, nil
}

func (r *repository) Exists(ctx context.Context, field Field, value string, exclude uuid.UUID) (bool, error) {
	start := time.Now()
	q := r.db.NewSelect().
		Model((*Subject)(nil)).
		Where("? = ?", bun.Ident("a."+string(field)), value)
	if exclude != uuid.Nil {
		q = q.Where("a.id <> ?", exclude)
	}
	exists, err := q.Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "exists", table, time.Since(start), err)

	if err != nil {
		return false, db.Classify(err)
	}
	return exists, nil
}
