// Package dashboard computes the read-only figures of the admin panel.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/stats"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"golang.org/x/sync/errgroup"
)

type Totals struct {
	Students int `json:"total_alumnos"`
	Teachers int `json:"total_profesores"`
	Subjects int `json:"total_asignaturas"`
	Sections int `json:"total_secciones"`
}

type UserCounter interface {
	Count(ctx context.Context, filter user.Filter) (int, error)
}

type SubjectCounter interface {
	Count(ctx context.Context) (int, error)
}

type SectionCounter interface {
	Count(ctx context.Context, filter section.Filter) (int, error)
}

type Service interface {
	// Totals runs the four counts concurrently. Any failure fails the
	// whole call.
	Totals(ctx context.Context, actor *user.User) (*Totals, error)
	Distribution(ctx context.Context, actor *user.User) ([]stats.DistributionPoint, error)
	SubjectAverages(ctx context.Context, actor *user.User) ([]stats.SubjectAverage, error)
}

type service struct {
	repo     Repository
	users    UserCounter
	subjects SubjectCounter
	sections SectionCounter
	logger   *slog.Logger
}

func NewService(repo Repository, users UserCounter, subjects SubjectCounter, sections SectionCounter, logger *slog.Logger) Service {
	return &service{
		repo:     repo,
		users:    users,
		subjects: subjects,
		sections: sections,
		logger:   logger,
	}
}

func (s *service) Totals(ctx context.Context, actor *user.User) (*Totals, error) {
	if err := canView(actor); err != nil {
		return nil, err
	}

	var t Totals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		t.Students, err = s.users.Count(gctx, user.Filter{Role: user.RoleStudent, ActiveOnly: true})
		return wrap("alumnos", err)
	})
	g.Go(func() (err error) {
		t.Teachers, err = s.users.Count(gctx, user.Filter{Role: user.RoleTeacher, ActiveOnly: true})
		return wrap("profesores", err)
	})
	g.Go(func() (err error) {
		t.Subjects, err = s.subjects.Count(gctx)
		return wrap("asignaturas", err)
	})
	g.Go(func() (err error) {
		t.Sections, err = s.sections.Count(gctx, section.Filter{})
		return wrap("secciones", err)
	})

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "dashboard totals failed", "error", err)
		return nil, apperr.Upstream("Error al obtener estadísticas", err)
	}
	return &t, nil
}

func (s *service) Distribution(ctx context.Context, actor *user.User) ([]stats.DistributionPoint, error) {
	if err := canView(actor); err != nil {
		return nil, err
	}
	counts, err := s.repo.EnrollmentCounts(ctx)
	if err != nil {
		return nil, err
	}
	return stats.Distribution(counts), nil
}

func (s *service) SubjectAverages(ctx context.Context, actor *user.User) ([]stats.SubjectAverage, error) {
	if err := canView(actor); err != nil {
		return nil, err
	}
	subjects, err := s.repo.SubjectGrades(ctx)
	if err != nil {
		return nil, err
	}
	return stats.SubjectAverages(subjects), nil
}

func canView(actor *user.User) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return apperr.ErrForbidden
	}
	return nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("count %s: %w", what, err)
	}
	return nil
}
