package evaluation

import (
	"strings"
	"time"

	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Evaluation struct {
	bun.BaseModel `bun:"table:evaluaciones,alias:ev"`

	ID          uuid.UUID `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"id"`
	SectionID   uuid.UUID `bun:"seccion_id,type:uuid,notnull" json:"seccion_id"`
	UnitID      uuid.UUID `bun:"unidad_id,type:uuid,notnull" json:"unidad_id"`
	Name        string    `bun:"nombre,notnull" json:"nombre"`
	Description *string   `bun:"descripcion" json:"descripcion"`
	Type        string    `bun:"tipo,notnull" json:"tipo"`
	Weight      float64   `bun:"ponderacion,notnull" json:"ponderacion"`
	DueAt       time.Time `bun:"fecha_entrega,notnull" json:"fecha_entrega"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Section *section.Section `bun:"rel:belongs-to,join:seccion_id=id" json:"seccion,omitempty"`
	Grades  []GradeSummary   `bun:"rel:has-many,join:id=evaluacion_id" json:"notas,omitempty"`
}

// GradeSummary is the read-side view of a nota embedded in an evaluation.
type GradeSummary struct {
	bun.BaseModel `bun:"table:notas,alias:n"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	EvaluationID uuid.UUID `bun:"evaluacion_id,type:uuid" json:"-"`
	StudentID    uuid.UUID `bun:"alumno_id,type:uuid" json:"alumno_id"`
	Score        float64   `bun:"nota" json:"nota"`

	Student *user.Summary `bun:"rel:belongs-to,join:alumno_id=id" json:"alumno,omitempty"`
}

type CreateInput struct {
	SectionID   uuid.UUID `json:"seccion_id" validate:"required"`
	UnitID      uuid.UUID `json:"unidad_id" validate:"required"`
	Name        string    `json:"nombre" validate:"required,notblank,max=200"`
	Description *string   `json:"descripcion" validate:"omitempty,max=1000"`
	Type        string    `json:"tipo" validate:"required,notblank,max=50"`
	Weight      *float64  `json:"ponderacion" validate:"required,min=0,max=100"`
	DueAt       time.Time `json:"fecha_entrega" validate:"required"`
}

func (in *CreateInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
}

// UpdateInput is a partial update. The section is fixed once created.
type UpdateInput struct {
	UnitID      *uuid.UUID `json:"unidad_id"`
	Name        *string    `json:"nombre" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"descripcion" validate:"omitempty,max=1000"`
	Type        *string    `json:"tipo" validate:"omitempty,notblank,max=50"`
	Weight      *float64   `json:"ponderacion" validate:"omitempty,min=0,max=100"`
	DueAt       *time.Time `json:"fecha_entrega"`
}

func (in UpdateInput) Apply(e *Evaluation) {
	if in.UnitID != nil {
		e.UnitID = *in.UnitID
	}
	if in.Name != nil {
		e.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		e.Description = in.Description
	}
	if in.Type != nil {
		e.Type = strings.TrimSpace(*in.Type)
	}
	if in.Weight != nil {
		e.Weight = *in.Weight
	}
	if in.DueAt != nil {
		e.DueAt = *in.DueAt
	}
}

// Upcoming is the dashboard card for an evaluation that is still due.
type Upcoming struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"titulo"`
	DueAt   time.Time `json:"fecha"`
	Type    string    `json:"tipo"`
	Subject string    `json:"asignatura"`
	Teacher string    `json:"profesor"`
}

func (e *Evaluation) Upcoming() Upcoming {
	u := Upcoming{ID: e.ID, Title: e.Name, DueAt: e.DueAt, Type: e.Type}
	if e.Section != nil {
		if e.Section.Subject != nil {
			u.Subject = e.Section.Subject.Name
		}
		u.Teacher = e.Section.Teacher.FullName()
	}
	return u
}

type Filter struct {
	SectionID uuid.UUID
	TeacherID uuid.UUID
	StudentID uuid.UUID
	// DueFrom keeps evaluations due at or after it.
	DueFrom time.Time
}
