package auth

import (
	"slices"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/user"
)

// Authorize allows u when the account is active and its role is one of
// allowed. An empty allowed set admits every role.
func Authorize(u *user.User, allowed ...user.Role) error {
	if u == nil {
		return apperr.ErrUnauthenticated
	}
	if !u.Active {
		return apperr.ErrAccountDisabled
	}
	if len(allowed) > 0 && !slices.Contains(allowed, u.Role) {
		return apperr.ErrForbidden
	}
	return nil
}
