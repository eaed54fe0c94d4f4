package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/identity"
	"github.com/isekhard17/academia-sekhard/internal/user"
)

var (
	ErrBadCredentials      = &apperr.Error{Kind: apperr.KindValidation, Message: "Email o contraseña incorrectos"}
	ErrInvalidRefreshToken = &apperr.Error{Kind: apperr.KindInvalidToken, Message: "Refresh token inválido o expirado"}
)

type LoginResponse struct {
	Session *identity.Session `json:"session"`
	User    *user.User        `json:"user"`
}

type SessionResponse struct {
	Session *identity.Session `json:"session"`
}

type Service struct {
	provider identity.Provider
	verifier *Verifier
	logger   *slog.Logger
}

func NewService(provider identity.Provider, verifier *Verifier, logger *slog.Logger) *Service {
	return &Service{provider: provider, verifier: verifier, logger: logger}
}

// Login signs in with the identity provider and returns the session
// together with the matching usuarios row.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	sess, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, ErrBadCredentials
		}
		return nil, classifyIdentityErr(err)
	}

	id := sess.User
	if id == nil {
		if id, err = s.provider.Identify(ctx, sess.AccessToken); err != nil {
			return nil, classifyIdentityErr(err)
		}
	}

	u, err := s.verifier.lookup(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, apperr.ErrAccountDisabled
	}

	return &LoginResponse{Session: sess, User: u}, nil
}

func (s *Service) ValidateToken(ctx context.Context, header string) (*user.User, error) {
	return s.verifier.Resolve(ctx, header)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*SessionResponse, error) {
	sess, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidRefreshToken) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, classifyIdentityErr(err)
	}
	return &SessionResponse{Session: sess}, nil
}

func (s *Service) Logout(ctx context.Context, header string) error {
	token, err := BearerToken(header)
	if err != nil {
		return err
	}
	if err := s.provider.SignOut(ctx, token); err != nil {
		return classifyIdentityErr(err)
	}
	return nil
}
