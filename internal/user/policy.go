package user

import "github.com/isekhard17/academia-sekhard/internal/apperr"

// CanManage reports whether actor may create or modify user records.
// Only administrators can.
func CanManage(actor *User) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return apperr.ErrForbidden
	}
	return nil
}
