package student_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/attendance"
	"github.com/isekhard17/academia-sekhard/internal/grade"
	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/student"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGrades struct {
	byStudent map[uuid.UUID][]grade.Grade
}

func (f fakeGrades) Mine(_ context.Context, sectionID uuid.UUID, actor *user.User) ([]grade.Grade, error) {
	if !actor.IsStudent() {
		return nil, apperr.ErrForbidden
	}
	out := make([]grade.Grade, 0)
	for _, g := range f.byStudent[actor.ID] {
		if g.Evaluation != nil && g.Evaluation.SectionID == sectionID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f fakeGrades) MyAverage(_ context.Context, actor *user.User) (float64, error) {
	gs := f.byStudent[actor.ID]
	if len(gs) == 0 {
		return 0, nil
	}
	var sum float64
	for _, g := range gs {
		sum += g.Score
	}
	return sum / float64(len(gs)), nil
}

type fakeAttendance struct {
	presence map[uuid.UUID][]bool
	err      error
}

func (f fakeAttendance) Mine(context.Context, uuid.UUID, *user.User) ([]attendance.Attendance, error) {
	return []attendance.Attendance{}, nil
}

func (f fakeAttendance) MyPresence(_ context.Context, actor *user.User) ([]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.presence[actor.ID], nil
}

type fakePending map[uuid.UUID]int

func (f fakePending) PendingFor(_ context.Context, studentID uuid.UUID) (int, error) {
	return f[studentID], nil
}

type fakeSections struct{ last section.Filter }

func (f *fakeSections) List(_ context.Context, filter section.Filter) ([]section.Section, error) {
	f.last = filter
	teacher := &user.User{ID: uuid.New(), FirstName: "Marta", LastName: "Vera", Email: "marta@colegio.cl", Role: user.RoleTeacher, Active: true}
	classmate := &user.User{ID: uuid.New(), FirstName: "Luis", LastName: "Soto", Email: "luis@colegio.cl"}
	s := section.Section{ID: uuid.New(), Period: "1", Year: 2025, Active: true, TeacherID: teacher.ID, Teacher: teacher.Summary()}
	if !filter.OmitRoster {
		s.Enrollments = []section.Enrollment{{ID: uuid.New(), SectionID: s.ID, StudentID: classmate.ID, Student: classmate.Summary()}}
	}
	return []section.Section{s}, nil
}

func TestStudentHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ana := &user.User{ID: uuid.New(), Role: user.RoleStudent, Active: true}
	luis := &user.User{ID: uuid.New(), Role: user.RoleStudent, Active: true}
	teacher := &user.User{ID: uuid.New(), Role: user.RoleTeacher, Active: true}

	sectionID := uuid.New()
	grades := fakeGrades{byStudent: map[uuid.UUID][]grade.Grade{
		ana.ID: {
			{ID: uuid.New(), StudentID: ana.ID, Score: 4},
			{ID: uuid.New(), StudentID: ana.ID, Score: 5},
			{ID: uuid.New(), StudentID: ana.ID, Score: 6},
		},
		luis.ID: {},
	}}

	setup := func(t *testing.T, att fakeAttendance, actor *user.User) (*chi.Mux, *fakeSections) {
		t.Helper()
		sections := &fakeSections{}
		svc := student.NewService(grades, att, fakePending{ana.ID: 2}, sections)
		router := chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(user.NewContext(r.Context(), actor)))
			})
		})
		router.Route("/api/alumnos", student.NewHandler(svc, logger).RegisterRoutes)
		return router, sections
	}

	get := func(router http.Handler, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	t.Run("Stats", func(t *testing.T) {
		router, _ := setup(t, fakeAttendance{presence: map[uuid.UUID][]bool{ana.ID: {true, true, false, false}}}, ana)

		rec := get(router, "/api/alumnos/mis-estadisticas")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]float64
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, map[string]float64{
			"promedioNotas":          5,
			"porcentajeAsistencia":   50,
			"evaluacionesPendientes": 2,
		}, body)
	})

	t.Run("Stats_EmptyHistory", func(t *testing.T) {
		router, _ := setup(t, fakeAttendance{}, luis)

		rec := get(router, "/api/alumnos/mis-estadisticas")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"promedioNotas":0,"porcentajeAsistencia":0,"evaluacionesPendientes":0}`, rec.Body.String())
	})

	t.Run("Stats_UpstreamFailure", func(t *testing.T) {
		router, _ := setup(t, fakeAttendance{err: errors.New("connection reset")}, ana)

		rec := get(router, "/api/alumnos/mis-estadisticas")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection reset")
	})

	t.Run("Stats_TeacherForbidden", func(t *testing.T) {
		router, _ := setup(t, fakeAttendance{}, teacher)

		rec := get(router, "/api/alumnos/mis-estadisticas")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Sections_ScopedToActor", func(t *testing.T) {
		router, sections := setup(t, fakeAttendance{}, ana)

		rec := get(router, "/api/alumnos/mis-secciones")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, section.Filter{StudentID: ana.ID, ActiveOnly: true, OmitRoster: true}, sections.last)
	})

	t.Run("Sections_HideContactDataAndRoster", func(t *testing.T) {
		router, _ := setup(t, fakeAttendance{}, ana)

		rec := get(router, "/api/alumnos/mis-secciones")
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, `"profesor":{`)
		assert.Contains(t, body, "Vera")
		assert.NotContains(t, body, "email")
		assert.NotContains(t, body, `"role"`)
		assert.NotContains(t, body, "marta@colegio.cl")
		assert.NotContains(t, body, "inscripciones")
		assert.NotContains(t, body, "luis@colegio.cl")
	})

	t.Run("Grades_OtherStudentSeesNothing", func(t *testing.T) {
		router, _ := setup(t, fakeAttendance{}, luis)

		rec := get(router, "/api/alumnos/mis-notas/seccion/"+sectionID.String())
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("Attendance_BadSectionID", func(t *testing.T) {
		router, _ := setup(t, fakeAttendance{}, ana)

		rec := get(router, "/api/alumnos/mi-asistencia/seccion/not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
