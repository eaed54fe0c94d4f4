package unit

import (
	"context"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/google/uuid"
)

// TeachingLookup answers whether a teacher has an active section of a
// subject.
type TeachingLookup interface {
	TeacherTeachesSubject(ctx context.Context, teacherID, subjectID uuid.UUID) (bool, error)
}

// CanManage reports whether actor may change the units and materials of
// subjectID: administrators, and teachers with an active section of it.
func CanManage(ctx context.Context, actor *user.User, subjectID uuid.UUID, teaching TeachingLookup) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if actor.IsAdmin() {
		return nil
	}
	if !actor.IsTeacher() {
		return apperr.ErrForbidden
	}

	ok, err := teaching.TeacherTeachesSubject(ctx, actor.ID, subjectID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrForbidden
	}
	return nil
}
