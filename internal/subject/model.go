package subject

import (
	"strings"
	"time"

	"github.com/isekhard17/academia-sekhard/internal/validation"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Subject struct {
	bun.BaseModel `bun:"table:asignaturas,alias:a"`

	ID          uuid.UUID `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"id"`
	Code        string    `bun:"codigo,notnull" json:"codigo"`
	Name        string    `bun:"nombre,notnull" json:"nombre"`
	Description *string   `bun:"descripcion" json:"descripcion"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

type CreateInput struct {
	Code        string  `json:"codigo" validate:"required,subjectcode"`
	Name        string  `json:"nombre" validate:"required,min=3,max=100"`
	Description *string `json:"descripcion" validate:"omitempty,max=500"`
}

func (in *CreateInput) Normalize() {
	in.Code = validation.NormalizeSubjectCode(in.Code)
	in.Name = strings.TrimSpace(in.Name)
}

type UpdateInput struct {
	Code        *string `json:"codigo" validate:"omitempty,subjectcode"`
	Name        *string `json:"nombre" validate:"omitempty,min=3,max=100"`
	Description *string `json:"descripcion" validate:"omitempty,max=500"`
}

func (in *UpdateInput) Normalize() {
	if in.Code != nil {
		code := validation.NormalizeSubjectCode(*in.Code)
		in.Code = &code
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
}

func (in UpdateInput) Apply(s *Subject) {
	if in.Code != nil {
		s.Code = *in.Code
	}
	if in.Name != nil {
		s.Name = *in.Name
	}
	if in.Description != nil {
		s.Description = in.Description
	}
}

// Field is a column that must be unique across subjects.
type Field string

const (
	FieldCode Field = "codigo"
	FieldName Field = "nombre"
)

func (f Field) Valid() bool {
	return f == FieldCode || f == FieldName
}
