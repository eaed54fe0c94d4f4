// Package identity talks to whoever owns credentials: the hosted GoTrue
// service or the self-hosted Local provider. It knows nothing about
// application users; callers map an Identity to a usuarios row themselves.
package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidToken        = errors.New("invalid or expired access token")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// Identity is the subject a token was issued to.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	User         *Identity `json:"user,omitempty"`
}

type Provider interface {
	// SignIn exchanges a password for a session.
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// Refresh exchanges a refresh token for a new session.
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	// SignOut invalidates the refresh tokens behind accessToken.
	SignOut(ctx context.Context, accessToken string) error
	// Identify verifies accessToken and returns its subject.
	Identify(ctx context.Context, accessToken string) (*Identity, error)
	// Provision creates a password credential and returns the new identity.
	Provision(ctx context.Context, email, password string) (*Identity, error)
	// Deprovision removes an identity created by Provision along with its
	// sessions. An identity that no longer exists is not an error.
	Deprovision(ctx context.Context, id uuid.UUID) error
}

// Revoker is implemented by providers that can drop every session of a
// subject at once.
type Revoker interface {
	RevokeAll(ctx context.Context, id uuid.UUID) error
}
