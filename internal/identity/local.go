package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/isekhard17/academia-sekhard/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type LocalConfig struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Local issues HS256 access tokens and opaque refresh tokens backed by
// the credenciales and refresh_tokens tables.
type Local struct {
	store  Store
	cfg    LocalConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewLocal(store Store, cfg LocalConfig, logger *slog.Logger) *Local {
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = time.Hour
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	return &Local{store: store, cfg: cfg, logger: logger, now: time.Now}
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*Session, error) {
	cred, err := l.store.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return l.issue(ctx, &Identity{ID: cred.UserID, Email: cred.Email})
}

// Refresh rotates the refresh token: the presented one is consumed and a
// new pair is issued. A token is good for exactly one rotation.
func (l *Local) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	rt, err := l.store.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	cred, err := l.identityOf(ctx, rt)
	if err != nil {
		return nil, err
	}
	return l.issue(ctx, cred)
}

func (l *Local) SignOut(ctx context.Context, accessToken string) error {
	id, err := l.Identify(ctx, accessToken)
	if err != nil {
		return err
	}
	return l.RevokeAll(ctx, id.ID)
}

func (l *Local) Identify(_ context.Context, accessToken string) (*Identity, error) {
	claims := new(accessClaims)
	_, err := jwt.ParseWithClaims(accessToken, claims, func(*jwt.Token) (any, error) {
		return []byte(l.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(l.cfg.Issuer),
		jwt.WithTimeFunc(l.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		l.logger.Debug("access token rejected", "error", err)
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Identity{ID: id, Email: claims.Email}, nil
}

func (l *Local) Provision(ctx context.Context, email, password string) (*Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cred := &Credential{
		UserID:       uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := l.store.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("email", "Ya existe un usuario con este email")
		}
		return nil, err
	}
	return &Identity{ID: cred.UserID, Email: cred.Email}, nil
}

func (l *Local) Deprovision(ctx context.Context, id uuid.UUID) error {
	if err := l.RevokeAll(ctx, id); err != nil {
		return err
	}
	if err := l.store.DeleteCredential(ctx, id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("delete credential %s: %w", id, err)
	}
	return nil
}

func (l *Local) RevokeAll(ctx context.Context, id uuid.UUID) error {
	if err := l.store.DeleteUserTokens(ctx, id); err != nil {
		return fmt.Errorf("revoke tokens for %s: %w", id, err)
	}
	return nil
}

func (l *Local) identityOf(ctx context.Context, rt *RefreshToken) (*Identity, error) {
	cred, err := l.store.GetCredentialByUserID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	return &Identity{ID: cred.UserID, Email: cred.Email}, nil
}

func (l *Local) issue(ctx context.Context, id *Identity) (*Session, error) {
	now := l.now()
	expiresAt := now.Add(l.cfg.AccessTokenTTL)

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    l.cfg.Issuer,
			Subject:   id.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: id.Email,
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(l.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := l.store.CreateRefreshToken(ctx, id.ID, refresh, now.Add(l.cfg.RefreshTokenTTL)); err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  access,
		TokenType:    "bearer",
		ExpiresIn:    int(l.cfg.AccessTokenTTL.Seconds()),
		ExpiresAt:    expiresAt.Unix(),
		RefreshToken: refresh,
		User:         id,
	}, nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
