package attendance

import (
	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/user"
)

// CanManage covers taking attendance in sec and reading any student's
// record there.
func CanManage(actor *user.User, sec *section.Section) error {
	return section.CanManage(actor, sec)
}

// CanReadOwn lets a student read their own attendance only.
func CanReadOwn(actor *user.User) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if !actor.IsStudent() {
		return apperr.ErrForbidden
	}
	return nil
}
