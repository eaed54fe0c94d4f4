package dashboard_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/dashboard"
	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/stats"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	byRole map[user.Role]int
	err    error
}

func (f fakeUsers) Count(_ context.Context, filter user.Filter) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.byRole[filter.Role], nil
}

type fakeSubjects int

func (f fakeSubjects) Count(context.Context) (int, error) { return int(f), nil }

type fakeSections int

func (f fakeSections) Count(context.Context, section.Filter) (int, error) { return int(f), nil }

type fakeRepo struct {
	counts   []stats.SectionCount
	subjects []stats.SubjectGrades
}

func (f fakeRepo) EnrollmentCounts(context.Context) ([]stats.SectionCount, error) {
	return f.counts, nil
}

func (f fakeRepo) SubjectGrades(context.Context) ([]stats.SubjectGrades, error) {
	return f.subjects, nil
}

func TestDashboardService(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	admin := &user.User{ID: uuid.New(), Role: user.RoleAdmin, Active: true}
	teacher := &user.User{ID: uuid.New(), Role: user.RoleTeacher, Active: true}

	users := fakeUsers{byRole: map[user.Role]int{user.RoleStudent: 120, user.RoleTeacher: 8}}
	first, second := uuid.New(), uuid.New()
	repo := fakeRepo{
		counts: []stats.SectionCount{{SectionID: first, Count: 25}, {SectionID: second, Count: 0}},
		subjects: []stats.SubjectGrades{
			{Name: "Historia", Sections: []stats.SectionGrades{
				{Evaluations: []stats.EvaluationGrades{{Grades: []float64{5, 6}}}},
				{Evaluations: []stats.EvaluationGrades{{Grades: []float64{6.4}}, {}}},
			}},
			{Name: "Música"},
		},
	}

	t.Run("Totals", func(t *testing.T) {
		svc := dashboard.NewService(repo, users, fakeSubjects(14), fakeSections(20), logger)

		got, err := svc.Totals(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, &dashboard.Totals{Students: 120, Teachers: 8, Subjects: 14, Sections: 20}, got)
	})

	t.Run("Totals_FailAll", func(t *testing.T) {
		svc := dashboard.NewService(repo, fakeUsers{err: errors.New("pool exhausted")}, fakeSubjects(14), fakeSections(20), logger)

		got, err := svc.Totals(ctx, admin)
		require.Error(t, err)
		assert.Nil(t, got)
		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	})

	t.Run("Totals_TeacherForbidden", func(t *testing.T) {
		svc := dashboard.NewService(repo, users, fakeSubjects(14), fakeSections(20), logger)

		_, err := svc.Totals(ctx, teacher)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("Distribution_Indexed", func(t *testing.T) {
		svc := dashboard.NewService(repo, users, fakeSubjects(0), fakeSections(0), logger)

		got, err := svc.Distribution(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, []stats.DistributionPoint{
			{Section: 1, SectionID: first, Count: 25},
			{Section: 2, SectionID: second, Count: 0},
		}, got)
	})

	t.Run("SubjectAverages", func(t *testing.T) {
		svc := dashboard.NewService(repo, users, fakeSubjects(0), fakeSections(0), logger)

		got, err := svc.SubjectAverages(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, []stats.SubjectAverage{
			{Name: "Historia", Average: 5.8},
			{Name: "Música", Average: 0},
		}, got)
	})
}

func TestDashboardHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	admin := &user.User{ID: uuid.New(), Role: user.RoleAdmin, Active: true}

	serve := func(users dashboard.UserCounter, path string) *httptest.ResponseRecorder {
		svc := dashboard.NewService(fakeRepo{}, users, fakeSubjects(3), fakeSections(4), logger)
		router := chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(user.NewContext(r.Context(), admin)))
			})
		})
		router.Route("/api/admin", dashboard.NewHandler(svc, logger).RegisterRoutes)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	t.Run("Totals", func(t *testing.T) {
		rec := serve(fakeUsers{byRole: map[user.Role]int{user.RoleStudent: 1, user.RoleTeacher: 2}}, "/api/admin/estadisticas")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"total_alumnos":1,"total_profesores":2,"total_asignaturas":3,"total_secciones":4}`, rec.Body.String())
	})

	t.Run("Totals_FailAllHasNoPartialBody", func(t *testing.T) {
		rec := serve(fakeUsers{err: errors.New("timeout")}, "/api/admin/estadisticas")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "total_")
	})

	t.Run("Distribution_EmptyIsArray", func(t *testing.T) {
		rec := serve(fakeUsers{}, "/api/admin/distribucion-alumnos")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}
