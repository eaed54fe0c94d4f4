package attendance

import (
	"time"

	"github.com/isekhard17/academia-sekhard/internal/user"
	"github.com/isekhard17/academia-sekhard/internal/validation"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Attendance struct {
	bun.BaseModel `bun:"table:asistencias,alias:a"`

	ID         uuid.UUID       `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"id"`
	SectionID  uuid.UUID       `bun:"seccion_id,type:uuid,notnull" json:"seccion_id"`
	StudentID  uuid.UUID       `bun:"alumno_id,type:uuid,notnull" json:"alumno_id"`
	Date       validation.Date `bun:"fecha,type:date,notnull" json:"fecha"`
	Present    bool            `bun:"presente,notnull" json:"presente"`
	RecordedBy uuid.UUID       `bun:"registrado_por,type:uuid,notnull" json:"registrado_por"`
	CreatedAt  time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Student *user.Summary `bun:"rel:belongs-to,join:alumno_id=id" json:"alumno,omitempty"`
}

// CreateInput carries no registrado_por: the recorder is always the
// authenticated actor. presente defaults to false.
type CreateInput struct {
	SectionID uuid.UUID `json:"seccion_id" validate:"required"`
	StudentID uuid.UUID `json:"alumno_id" validate:"required"`
	Date      string    `json:"fecha" validate:"required,isodate"`
	Present   *bool     `json:"presente"`
}

type UpdateInput struct {
	Date    *string `json:"fecha" validate:"omitempty,isodate"`
	Present *bool   `json:"presente"`
}
