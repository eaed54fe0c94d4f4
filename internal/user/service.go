package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/events"
	"github.com/isekhard17/academia-sekhard/internal/identity"

	"github.com/google/uuid"
)

var ErrUserNotFound = apperr.NotFound("Usuario no encontrado")

type Service interface {
	List(ctx context.Context, filter Filter, actor *User) ([]User, error)
	Get(ctx context.Context, id uuid.UUID, actor *User) (*User, error)
	Create(ctx context.Context, in CreateInput, actor *User) (*User, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *User) (*User, error)
	// Deactivate is Update with activo=false.
	Deactivate(ctx context.Context, id uuid.UUID, actor *User) (*User, error)
	Teachers(ctx context.Context) ([]User, error)
}

type service struct {
	repo     Repository
	provider identity.Provider
	emitter  *events.Emitter
	logger   *slog.Logger
}

func NewService(repo Repository, provider identity.Provider, emitter *events.Emitter, logger *slog.Logger) Service {
	return &service{
		repo:     repo,
		provider: provider,
		emitter:  emitter,
		logger:   logger,
	}
}

func (s *service) List(ctx context.Context, filter Filter, actor *User) ([]User, error) {
	if err := CanManage(actor); err != nil {
		return nil, err
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, apperr.Invalid("role", "debe ser uno de [admin profesor alumno]")
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor *User) (*User, error) {
	if err := CanManage(actor); err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

func (s *service) Create(ctx context.Context, in CreateInput, actor *User) (*User, error) {
	if err := CanManage(actor); err != nil {
		return nil, err
	}

	u := &User{
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      in.Role,
		Active:    true,
	}
	if in.Active != nil {
		u.Active = *in.Active
	}

	// The usuarios row shares its id with the identity when one is
	// provisioned, so tokens resolve to it.
	provisioned := false
	if in.Password != "" {
		id, err := s.provider.Provision(ctx, u.Email, in.Password)
		if err != nil {
			return nil, err
		}
		u.ID = id.ID
		provisioned = true
	}

	created, err := s.repo.Create(ctx, u)
	if err != nil {
		if provisioned {
			s.deprovision(ctx, u)
		}
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("email", "Ya existe un usuario con este email")
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created", "user_id", created.ID, "role", created.Role, "by", actor.ID)
	return created, nil
}

// deprovision drops an identity whose usuarios row was never written. It
// runs even if the request was cancelled.
func (s *service) deprovision(ctx context.Context, u *User) {
	if err := s.provider.Deprovision(context.WithoutCancel(ctx), u.ID); err != nil {
		s.logger.WarnContext(ctx, "orphan identity left after failed user insert",
			"identity_id", u.ID, "email", u.Email, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "identity rolled back after failed user insert", "identity_id", u.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *User) (*User, error) {
	if err := CanManage(actor); err != nil {
		return nil, err
	}

	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	wasActive := u.Active

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		in.Email = &email
	}
	in.Apply(u)

	updated, err := s.repo.Update(ctx, u)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("email", "Ya existe un usuario con este email")
		}
		return nil, err
	}

	if wasActive && !updated.Active {
		s.onDeactivated(ctx, updated, actor)
	}
	return updated, nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID, actor *User) (*User, error) {
	inactive := false
	return s.Update(ctx, id, UpdateInput{Active: &inactive}, actor)
}

func (s *service) Teachers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx, Filter{Role: RoleTeacher})
}

func (s *service) get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// onDeactivated drops the user's sessions where the provider supports it.
// The row is already stored, so failures are only logged.
func (s *service) onDeactivated(ctx context.Context, u *User, actor *User) {
	if revoker, ok := s.provider.(identity.Revoker); ok {
		if err := revoker.RevokeAll(ctx, u.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to revoke sessions of deactivated user", "user_id", u.ID, "error", err)
		}
	}
	s.emitter.Emit(ctx, events.New(events.UserDeactivated, u.ID, actor.ID, map[string]string{
		"email": u.Email,
		"role":  string(u.Role),
	}))
	s.logger.InfoContext(ctx, "user deactivated", "user_id", u.ID, "by", actor.ID)
}
