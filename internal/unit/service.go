package unit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/google/uuid"
)

var (
	ErrUnitNotFound     = apperr.NotFound("Unidad no encontrada")
	ErrMaterialNotFound = apperr.NotFound("Material no encontrado")
)

type Service interface {
	ListUnits(ctx context.Context, subjectID uuid.UUID, actor *user.User) ([]Unit, error)
	CreateUnit(ctx context.Context, subjectID uuid.UUID, in UnitInput, actor *user.User) (*Unit, error)
	// UpdateUnit requires the unit to belong to subjectID.
	UpdateUnit(ctx context.Context, subjectID, unitID uuid.UUID, in UnitUpdateInput, actor *user.User) (*Unit, error)
	DeleteUnit(ctx context.Context, unitID uuid.UUID, actor *user.User) error

	ListMaterials(ctx context.Context, unitID uuid.UUID, actor *user.User) ([]Material, error)
	CreateMaterial(ctx context.Context, unitID uuid.UUID, in MaterialInput, actor *user.User) (*Material, error)
	UpdateMaterial(ctx context.Context, unitID, materialID uuid.UUID, in MaterialUpdateInput, actor *user.User) (*Material, error)
	DeleteMaterial(ctx context.Context, unitID, materialID uuid.UUID, actor *user.User) error
}

type service struct {
	repo     Repository
	teaching TeachingLookup
	logger   *slog.Logger
}

func NewService(repo Repository, teaching TeachingLookup, logger *slog.Logger) Service {
	return &service{repo: repo, teaching: teaching, logger: logger}
}

func (s *service) ListUnits(ctx context.Context, subjectID uuid.UUID, actor *user.User) ([]Unit, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	return s.repo.ListUnits(ctx, subjectID)
}

func (s *service) CreateUnit(ctx context.Context, subjectID uuid.UUID, in UnitInput, actor *user.User) (*Unit, error) {
	if err := CanManage(ctx, actor, subjectID, s.teaching); err != nil {
		return nil, err
	}

	u, err := s.repo.CreateUnit(ctx, &Unit{
		SubjectID:   subjectID,
		Name:        in.Name,
		Description: in.Description,
		Order:       in.Order,
	})
	if err != nil {
		return nil, missingSubject(err)
	}

	s.logger.InfoContext(ctx, "unit created", "unit_id", u.ID, "subject_id", subjectID)
	return u, nil
}

func (s *service) UpdateUnit(ctx context.Context, subjectID, unitID uuid.UUID, in UnitUpdateInput, actor *user.User) (*Unit, error) {
	u, err := s.unit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if u.SubjectID != subjectID {
		return nil, ErrUnitNotFound
	}
	if err := CanManage(ctx, actor, u.SubjectID, s.teaching); err != nil {
		return nil, err
	}

	in.Apply(u)
	updated, err := s.repo.UpdateUnit(ctx, u)
	if err != nil {
		return nil, unitNotFound(err)
	}
	return updated, nil
}

func (s *service) DeleteUnit(ctx context.Context, unitID uuid.UUID, actor *user.User) error {
	u, err := s.unit(ctx, unitID)
	if err != nil {
		return err
	}
	if err := CanManage(ctx, actor, u.SubjectID, s.teaching); err != nil {
		return err
	}
	if err := s.repo.DeleteUnit(ctx, unitID); err != nil {
		return unitNotFound(err)
	}
	s.logger.InfoContext(ctx, "unit deleted", "unit_id", unitID)
	return nil
}

func (s *service) ListMaterials(ctx context.Context, unitID uuid.UUID, actor *user.User) ([]Material, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if _, err := s.unit(ctx, unitID); err != nil {
		return nil, err
	}
	return s.repo.ListMaterials(ctx, unitID)
}

func (s *service) CreateMaterial(ctx context.Context, unitID uuid.UUID, in MaterialInput, actor *user.User) (*Material, error) {
	u, err := s.unit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if err := CanManage(ctx, actor, u.SubjectID, s.teaching); err != nil {
		return nil, err
	}

	m, err := s.repo.CreateMaterial(ctx, &Material{
		UnitID:      unitID,
		Name:        in.Name,
		Description: in.Description,
		Type:        in.Type,
		URL:         in.URL,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) UpdateMaterial(ctx context.Context, unitID, materialID uuid.UUID, in MaterialUpdateInput, actor *user.User) (*Material, error) {
	m, err := s.material(ctx, unitID, materialID)
	if err != nil {
		return nil, err
	}
	u, err := s.unit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if err := CanManage(ctx, actor, u.SubjectID, s.teaching); err != nil {
		return nil, err
	}

	in.Apply(m)
	updated, err := s.repo.UpdateMaterial(ctx, m)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrMaterialNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *service) DeleteMaterial(ctx context.Context, unitID, materialID uuid.UUID, actor *user.User) error {
	if _, err := s.material(ctx, unitID, materialID); err != nil {
		return err
	}
	u, err := s.unit(ctx, unitID)
	if err != nil {
		return err
	}
	if err := CanManage(ctx, actor, u.SubjectID, s.teaching); err != nil {
		return err
	}
	if err := s.repo.DeleteMaterial(ctx, materialID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrMaterialNotFound
		}
		return err
	}
	return nil
}

func (s *service) unit(ctx context.Context, id uuid.UUID) (*Unit, error) {
	u, err := s.repo.GetUnit(ctx, id)
	if err != nil {
		return nil, unitNotFound(err)
	}
	return u, nil
}

// material loads a material and checks it hangs off unitID.
func (s *service) material(ctx context.Context, unitID, id uuid.UUID) (*Material, error) {
	m, err := s.repo.GetMaterial(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrMaterialNotFound
		}
		return nil, err
	}
	if m.UnitID != unitID {
		return nil, ErrMaterialNotFound
	}
	return m, nil
}

func unitNotFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrUnitNotFound
	}
	return err
}

func missingSubject(err error) error {
	if e := apperr.As(err); e != nil && e.Kind == apperr.KindValidation {
		for _, f := range e.Fields {
			if f.Field == "asignatura_id" {
				return apperr.Invalid("asignatura_id", "debe ser una asignatura existente")
			}
		}
	}
	return err
}
