package section

import (
	"fmt"
	"strings"
	"time"

	"github.com/isekhard17/academia-sekhard/internal/subject"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const DefaultCapacity = 30

type Section struct {
	bun.BaseModel `bun:"table:secciones,alias:s"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"id"`
	SubjectID uuid.UUID `bun:"asignatura_id,type:uuid,notnull" json:"asignatura_id"`
	TeacherID uuid.UUID `bun:"profesor_id,type:uuid,notnull" json:"profesor_id"`
	Period    string    `bun:"periodo,notnull" json:"periodo"`
	Year      int       `bun:"ano,notnull" json:"ano"`
	Capacity  int       `bun:"cupo_maximo,notnull" json:"cupo_maximo"`
	Active    bool      `bun:"activo,notnull" json:"activo"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Subject     *subject.Subject `bun:"rel:belongs-to,join:asignatura_id=id" json:"asignatura,omitempty"`
	Teacher     *user.Summary    `bun:"rel:belongs-to,join:profesor_id=id" json:"profesor,omitempty"`
	Enrollments []Enrollment     `bun:"rel:has-many,join:id=seccion_id" json:"inscripciones,omitempty"`
}

// Label is "<codigo> <periodo>/<ano>" when the subject is loaded.
func (s *Section) Label() string {
	if s.Subject == nil {
		return s.Period
	}
	return fmt.Sprintf("%s %s/%d", s.Subject.Code, s.Period, s.Year)
}

type Enrollment struct {
	bun.BaseModel `bun:"table:inscripciones,alias:i"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"id"`
	SectionID uuid.UUID `bun:"seccion_id,type:uuid,notnull" json:"seccion_id"`
	StudentID uuid.UUID `bun:"alumno_id,type:uuid,notnull" json:"alumno_id"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Student *user.Summary `bun:"rel:belongs-to,join:alumno_id=id" json:"alumno,omitempty"`
}

type CreateInput struct {
	SubjectID uuid.UUID `json:"asignatura_id" validate:"required"`
	TeacherID uuid.UUID `json:"profesor_id" validate:"required"`
	Period    string    `json:"periodo" validate:"required,notblank,max=50"`
	Year      int       `json:"ano" validate:"required,min=2024"`
	Capacity  *int      `json:"cupo_maximo" validate:"omitempty,min=1"`
	Active    *bool     `json:"activo"`
}

func (in *CreateInput) Normalize() {
	in.Period = strings.TrimSpace(in.Period)
}

type UpdateInput struct {
	SubjectID *uuid.UUID `json:"asignatura_id"`
	TeacherID *uuid.UUID `json:"profesor_id"`
	Period    *string    `json:"periodo" validate:"omitempty,notblank,max=50"`
	Year      *int       `json:"ano" validate:"omitempty,min=2024"`
	Capacity  *int       `json:"cupo_maximo" validate:"omitempty,min=1"`
	Active    *bool      `json:"activo"`
}

func (in UpdateInput) Apply(s *Section) {
	if in.SubjectID != nil {
		s.SubjectID = *in.SubjectID
	}
	if in.TeacherID != nil {
		s.TeacherID = *in.TeacherID
	}
	if in.Period != nil {
		s.Period = strings.TrimSpace(*in.Period)
	}
	if in.Year != nil {
		s.Year = *in.Year
	}
	if in.Capacity != nil {
		s.Capacity = *in.Capacity
	}
	if in.Active != nil {
		s.Active = *in.Active
	}
}

// TeacherUpdateInput is the full-replace body of the teacher section
// routes: subject and teacher stay fixed.
type TeacherUpdateInput struct {
	Period   string `json:"periodo" validate:"required,notblank,max=50"`
	Year     int    `json:"ano" validate:"required,min=2024"`
	Capacity int    `json:"cupo_maximo" validate:"required,min=1"`
	Active   *bool  `json:"activo"`
}

func (in TeacherUpdateInput) UpdateInput() UpdateInput {
	return UpdateInput{
		Period:   &in.Period,
		Year:     &in.Year,
		Capacity: &in.Capacity,
		Active:   in.Active,
	}
}

type EnrollInput struct {
	StudentID uuid.UUID `json:"alumno_id" validate:"required"`
}

type Filter struct {
	SubjectID  uuid.UUID
	TeacherID  uuid.UUID
	StudentID  uuid.UUID
	ActiveOnly bool
	// OmitRoster leaves Enrollments unloaded.
	OmitRoster bool
}
