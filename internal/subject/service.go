package subject

import (
	"context"
	"errors"
	"log/slog"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/user"
	"github.com/isekhard17/academia-sekhard/internal/validation"

	"github.com/google/uuid"
)

var ErrSubjectNotFound = apperr.NotFound("Asignatura no encontrada")

type Service interface {
	List(ctx context.Context, actor *user.User) ([]Subject, error)
	Get(ctx context.Context, id uuid.UUID, actor *user.User) (*Subject, error)
	Create(ctx context.Context, in CreateInput, actor *user.User) (*Subject, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *user.User) (*Subject, error)
	Delete(ctx context.Context, id uuid.UUID, actor *user.User) error
	// CheckDuplicate reports whether value is free for field.
	CheckDuplicate(ctx context.Context, field Field, value string, exclude uuid.UUID) (bool, error)
}

type service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) List(ctx context.Context, _ *user.User) ([]Subject, error) {
	return s.repo.List(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID, _ *user.User) (*Subject, error) {
	subj, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return subj, nil
}

func (s *service) Create(ctx context.Context, in CreateInput, actor *user.User) (*Subject, error) {
	if err := CanManage(actor); err != nil {
		return nil, err
	}

	subj, err := s.repo.Create(ctx, &Subject{
		Code:        in.Code,
		Name:        in.Name,
		Description: in.Description,
	})
	if err != nil {
		return nil, conflict(err)
	}

	s.logger.InfoContext(ctx, "subject created", "subject_id", subj.ID, "codigo", subj.Code)
	return subj, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor *user.User) (*Subject, error) {
	if err := CanManage(actor); err != nil {
		return nil, err
	}

	subj, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	in.Apply(subj)

	updated, err := s.repo.Update(ctx, subj)
	if err != nil {
		return nil, conflict(notFound(err))
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor *user.User) error {
	if err := CanManage(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.logger.InfoContext(ctx, "subject deleted", "subject_id", id)
	return nil
}

func (s *service) CheckDuplicate(ctx context.Context, field Field, value string, exclude uuid.UUID) (bool, error) {
	if !field.Valid() {
		return false, apperr.Invalid("field", "Campo de validación inválido")
	}
	if field == FieldCode {
		value = validation.NormalizeSubjectCode(value)
	}
	exists, err := s.repo.Exists(ctx, field, value, exclude)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// DuplicateMessage is the user-facing text for a taken field.
func DuplicateMessage(field string) string {
	return "Ya existe una asignatura con este " + field
}

func notFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrSubjectNotFound
	}
	return err
}

func conflict(err error) error {
	e := apperr.As(err)
	if e == nil || e.Kind != apperr.KindConflict {
		return err
	}
	field := e.Field
	if field == "" {
		field = "codigo o nombre"
	}
	return apperr.Conflict(field, DuplicateMessage(field))
}
