package user

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "profesor"
	RoleStudent Role = "alumno"
)

var AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

type User struct {
	bun.BaseModel `bun:"table:usuarios,alias:u"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"id"`
	Email     string    `bun:"email,notnull" json:"email"`
	FirstName string    `bun:"nombre,notnull" json:"nombre"`
	LastName  string    `bun:"apellido,notnull" json:"apellido"`
	Role      Role      `bun:"role,notnull" json:"role"`
	Active    bool      `bun:"activo,notnull" json:"activo"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

func (u *User) IsAdmin() bool   { return u != nil && u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u != nil && u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u != nil && u.Role == RoleStudent }

// FullName is "nombre apellido".
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return u.FirstName + " " + u.LastName
}

func (u *User) Summary() *Summary {
	if u == nil {
		return nil
	}
	return &Summary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}

// Summary is the projection of a user embedded in other resources. It
// carries no contact or account data.
type Summary struct {
	bun.BaseModel `bun:"table:usuarios,alias:u"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	FirstName string    `bun:"nombre" json:"nombre"`
	LastName  string    `bun:"apellido" json:"apellido"`
}

func (s *Summary) FullName() string {
	if s == nil {
		return ""
	}
	return s.FirstName + " " + s.LastName
}

type CreateInput struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"nombre" validate:"required,notblank,max=100"`
	LastName  string `json:"apellido" validate:"required,notblank,max=100"`
	Role      Role   `json:"role" validate:"required,oneof=admin profesor alumno"`
	Active    *bool  `json:"activo"`
	// Password provisions a credential with the identity provider when set.
	Password string `json:"password,omitempty" validate:"omitempty,min=6,max=72"`
}

type UpdateInput struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"nombre" validate:"omitempty,notblank,max=100"`
	LastName  *string `json:"apellido" validate:"omitempty,notblank,max=100"`
	Role      *Role   `json:"role" validate:"omitempty,oneof=admin profesor alumno"`
	Active    *bool   `json:"activo"`
}

// Apply copies the set fields onto u.
func (in UpdateInput) Apply(u *User) {
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.Active != nil {
		u.Active = *in.Active
	}
}

type Filter struct {
	Role       Role
	ActiveOnly bool
}
