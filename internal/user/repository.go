package user

import (
	"context"
	"strings"
	"time"

	"github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/internal/db"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const table = "usuarios"

type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter Filter) ([]User, error)
	Update(ctx context.Context, u *User) (*User, error)
	Count(ctx context.Context, filter Filter) (int, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(database *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: database, metrics: m}
}

func (r *repository) Create(ctx context.Context, u *User) (*User, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(u).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return u, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	start := time.Now()
	u := new(User)
	err := r.db.NewSelect().Model(u).Where("u.id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return u, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	start := time.Now()
	u := new(User)
	err := r.db.NewSelect().Model(u).Where("lower(u.email) = ?", strings.ToLower(email)).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return u, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]User, error) {
	start := time.Now()
	users := make([]User, 0)
	err := r.filtered(r.db.NewSelect().Model(&users), filter).
		Order("u.apellido ASC", "u.nombre ASC").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return users, nil
}

func (r *repository) Update(ctx context.Context, u *User) (*User, error) {
	start := time.Now()
	res, err := r.db.NewUpdate().
		Model(u).
		Column("email", "nombre", "apellido", "role", "activo").
		WherePK().
		Returning("*").
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", table, time.Since(start), err)

	if err := db.Affected(res, err); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repository) Count(ctx context.Context, filter Filter) (int, error) {
	start := time.Now()
	n, err := r.filtered(r.db.NewSelect().Model((*User)(nil)), filter).Count(ctx)
	r.metrics.Database.RecordQuery(ctx, "count", table, time.Since(start), err)

	if err != nil {
		return 0, db.Classify(err)
	}
	return n, nil
}

func (r *repository) filtered(q *bun.SelectQuery, filter Filter) *bun.SelectQuery {
	if filter.Role != "" {
		q = q.Where("u.role = ?", filter.Role)
	}
	if filter.ActiveOnly {
		q = q.Where("u.activo = TRUE")
	}
	return q
}
