package grade

import (
	"strings"
	"time"

	"github.com/isekhard17/academia-sekhard/internal/evaluation"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Grade struct {
	bun.BaseModel `bun:"table:notas,alias:n"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"id"`
	EvaluationID uuid.UUID `bun:"evaluacion_id,type:uuid,notnull" json:"evaluacion_id"`
	StudentID    uuid.UUID `bun:"alumno_id,type:uuid,notnull" json:"alumno_id"`
	Score        float64   `bun:"nota,notnull" json:"nota"`
	Comment      *string   `bun:"comentario" json:"comentario"`
	RecordedBy   uuid.UUID `bun:"registrado_por,type:uuid,notnull" json:"registrado_por"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Evaluation *evaluation.Evaluation `bun:"rel:belongs-to,join:evaluacion_id=id" json:"evaluacion,omitempty"`
	Student    *user.Summary          `bun:"rel:belongs-to,join:alumno_id=id" json:"alumno,omitempty"`
}

// CreateInput carries no registrado_por: the recorder is always the
// authenticated actor.
type CreateInput struct {
	EvaluationID uuid.UUID `json:"evaluacion_id" validate:"required"`
	StudentID    uuid.UUID `json:"alumno_id" validate:"required"`
	Score        *float64  `json:"nota" validate:"required,min=1,max=7"`
	Comment      *string   `json:"comentario" validate:"omitempty,max=500"`
}

func (in *CreateInput) Normalize() {
	in.Comment = trimmed(in.Comment)
}

type UpdateInput struct {
	Score   *float64 `json:"nota" validate:"omitempty,min=1,max=7"`
	Comment *string  `json:"comentario" validate:"omitempty,max=500"`
}

func (in *UpdateInput) Normalize() {
	in.Comment = trimmed(in.Comment)
}

func (in UpdateInput) Apply(g *Grade) {
	if in.Score != nil {
		g.Score = *in.Score
	}
	if in.Comment != nil {
		g.Comment = in.Comment
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
