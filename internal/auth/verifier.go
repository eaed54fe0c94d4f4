// Package auth resolves bearer tokens to application users and gates
// routes by role and account state.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/identity"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/google/uuid"
)

// UserLookup loads the usuarios row behind an identity.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Verifier struct {
	provider identity.Provider
	users    UserLookup
}

func NewVerifier(provider identity.Provider, users UserLookup) *Verifier {
	return &Verifier{provider: provider, users: users}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>"
// header value.
func BearerToken(header string) (string, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", apperr.ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperr.ErrMissingToken
	}
	return token, nil
}

// Resolve verifies the bearer token in header and returns the user it
// belongs to. It performs lookups only: tokens are never refreshed here.
func (v *Verifier) Resolve(ctx context.Context, header string) (*user.User, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}

	id, err := v.provider.Identify(ctx, token)
	if err != nil {
		return nil, classifyIdentityErr(err)
	}
	if id == nil || id.ID == uuid.Nil {
		return nil, apperr.ErrInvalidToken
	}

	return v.lookup(ctx, id.ID)
}

func (v *Verifier) lookup(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := v.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnknownUser
		}
		return nil, err
	}
	return u, nil
}

func classifyIdentityErr(err error) error {
	switch {
	case errors.Is(err, identity.ErrInvalidToken):
		return apperr.ErrInvalidToken
	case apperr.As(err) != nil:
		return err
	default:
		return apperr.Upstream("identity provider", err)
	}
}
