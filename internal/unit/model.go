package unit

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Unit struct {
	bun.BaseModel `bun:"table:unidades,alias:un"`

	ID          uuid.UUID `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"id"`
	SubjectID   uuid.UUID `bun:"asignatura_id,type:uuid,notnull" json:"asignatura_id"`
	Name        string    `bun:"nombre,notnull" json:"nombre"`
	Description *string   `bun:"descripcion" json:"descripcion"`
	Order       int       `bun:"orden,notnull" json:"orden"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Materials []Material `bun:"rel:has-many,join:id=unidad_id" json:"materiales,omitempty"`
}

type MaterialType string

const (
	MaterialDocument MaterialType = "documento"
	MaterialVideo    MaterialType = "video"
	MaterialLink     MaterialType = "enlace"
	MaterialOther    MaterialType = "otro"
)

type Material struct {
	bun.BaseModel `bun:"table:materiales,alias:m"`

	ID          uuid.UUID    `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"id"`
	UnitID      uuid.UUID    `bun:"unidad_id,type:uuid,notnull" json:"unidad_id"`
	Name        string       `bun:"nombre,notnull" json:"nombre"`
	Description *string      `bun:"descripcion" json:"descripcion"`
	Type        MaterialType `bun:"tipo,notnull" json:"tipo"`
	URL         string       `bun:"url,notnull" json:"url"`
	CreatedAt   time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time    `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

type UnitInput struct {
	Name        string  `json:"nombre" validate:"required,notblank,max=100"`
	Description *string `json:"descripcion" validate:"omitempty,max=500"`
	Order       int     `json:"orden" validate:"required,min=1"`
}

func (in *UnitInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
}

type UnitUpdateInput struct {
	Name        *string `json:"nombre" validate:"omitempty,notblank,max=100"`
	Description *string `json:"descripcion" validate:"omitempty,max=500"`
	Order       *int    `json:"orden" validate:"omitempty,min=1"`
}

func (in UnitUpdateInput) Apply(u *Unit) {
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		u.Description = in.Description
	}
	if in.Order != nil {
		u.Order = *in.Order
	}
}

type MaterialInput struct {
	Name        string       `json:"nombre" validate:"required,notblank,max=200"`
	Description *string      `json:"descripcion" validate:"omitempty,max=500"`
	Type        MaterialType `json:"tipo" validate:"required,oneof=documento video enlace otro"`
	URL         string       `json:"url" validate:"required,url"`
}

func (in *MaterialInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.URL = strings.TrimSpace(in.URL)
}

type MaterialUpdateInput struct {
	Name        *string       `json:"nombre" validate:"omitempty,notblank,max=200"`
	Description *string       `json:"descripcion" validate:"omitempty,max=500"`
	Type        *MaterialType `json:"tipo" validate:"omitempty,oneof=documento video enlace otro"`
	URL         *string       `json:"url" validate:"omitempty,url"`
}

func (in MaterialUpdateInput) Apply(m *Material) {
	if in.Name != nil {
		m.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		m.Description = in.Description
	}
	if in.Type != nil {
		m.Type = *in.Type
	}
	if in.URL != nil {
		m.URL = strings.TrimSpace(*in.URL)
	}
}
