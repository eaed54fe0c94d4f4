package identity

import (
	"context"
	"strings"
	"time"

	"github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/internal/db"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Credential struct {
	bun.BaseModel `bun:"table:credenciales,alias:c"`

	UserID       uuid.UUID `bun:"usuario_id,pk,type:uuid"`
	Email        string    `bun:"email,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    uuid.UUID `bun:"usuario_id,type:uuid,notnull"`
	Token     string    `bun:"token,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Store persists credentials and refresh tokens for the Local provider.
type Store interface {
	CreateCredential(ctx context.Context, c *Credential) error
	GetCredentialByEmail(ctx context.Context, email string) (*Credential, error)
	GetCredentialByUserID(ctx context.Context, id uuid.UUID) (*Credential, error)
	DeleteCredential(ctx context.Context, userID uuid.UUID) error
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	// ConsumeRefreshToken deletes an unexpired token and returns it. Of
	// concurrent callers presenting the same token at most one gets it.
	ConsumeRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	DeleteUserTokens(ctx context.Context, userID uuid.UUID) error
	DeleteExpiredTokens(ctx context.Context) (int64, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(database *bun.DB, m *metrics.Metrics) Store {
	return &repository{db: database, metrics: m}
}

func (r *repository) CreateCredential(ctx context.Context, c *Credential) error {
	start := time.Now()
	c.Email = strings.ToLower(c.Email)
	_, err := r.db.NewInsert().Model(c).Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "credenciales", time.Since(start), err)
	return db.Classify(err)
}

func (r *repository) GetCredentialByEmail(ctx context.Context, email string) (*Credential, error) {
	start := time.Now()
	c := new(Credential)
	err := r.db.NewSelect().Model(c).Where("c.email = ?", strings.ToLower(email)).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "credenciales", time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return c, nil
}

func (r *repository) GetCredentialByUserID(ctx context.Context, id uuid.UUID) (*Credential, error) {
	start := time.Now()
	c := new(Credential)
	err := r.db.NewSelect().Model(c).Where("c.usuario_id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "credenciales", time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return c, nil
}

func (r *repository) DeleteCredential(ctx context.Context, userID uuid.UUID) error {
	start := time.Now()
	res, err := r.db.NewDelete().
		Model((*Credential)(nil)).
		Where("usuario_id = ?", userID).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "credenciales", time.Since(start), err)
	return db.Affected(res, err)
}

func (r *repository) CreateRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(&RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}).Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "refresh_tokens", time.Since(start), err)
	return db.Classify(err)
}

func (r *repository) ConsumeRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	start := time.Now()
	rt := new(RefreshToken)
	err := r.db.NewDelete().
		Model(rt).
		Where("token = ?", token).
		Where("expires_at > ?", time.Now()).
		Returning("*").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}
	return rt, nil
}

func (r *repository) DeleteUserTokens(ctx context.Context, userID uuid.UUID) error {
	start := time.Now()
	_, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("usuario_id = ?", userID).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)
	return db.Classify(err)
}

func (r *repository) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	start := time.Now()
	res, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("expires_at <= ?", time.Now()).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "delete", "refresh_tokens", time.Since(start), err)
	if err != nil {
		return 0, db.Classify(err)
	}
	return res.RowsAffected()
}
