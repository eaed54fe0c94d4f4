package evaluation

import (
	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/user"
)

// CanManage is the section ownership rule: evaluations are read and
// written by administrators and the section's teacher.
func CanManage(actor *user.User, sec *section.Section) error {
	return section.CanManage(actor, sec)
}
