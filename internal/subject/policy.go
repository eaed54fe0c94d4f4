package subject

import (
	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/user"
)

// CanManage reports whether actor may create, modify or delete subjects.
// Subjects are platform-owned: only administrators mutate them.
func CanManage(actor *user.User) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return apperr.ErrForbidden
	}
	return nil
}
