package section

import (
	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/user"
)

// CanManage reports whether actor may modify s or anything scoped to it
// (evaluations, grades, attendance). Administrators always may; a
// teacher only for sections they own.
func CanManage(actor *user.User, s *Section) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsTeacher() && s != nil && s.TeacherID == actor.ID {
		return nil
	}
	return apperr.ErrForbidden
}

// CanAdminister covers creating sections, reassigning teachers and
// managing rosters.
func CanAdminister(actor *user.User) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return apperr.ErrForbidden
	}
	return nil
}
