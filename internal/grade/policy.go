package grade

import (
	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/google/uuid"
)

// CanManage covers writing grades and reading any student's grades in
// sec: administrators and the section's teacher.
func CanManage(actor *user.User, sec *section.Section) error {
	return section.CanManage(actor, sec)
}

// CanReadOwn lets a student read only their own grades.
func CanReadOwn(actor *user.User, studentID uuid.UUID) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if !actor.IsStudent() || actor.ID != studentID {
		return apperr.ErrForbidden
	}
	return nil
}
