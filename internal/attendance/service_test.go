package attendance_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	commonmetrics "github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/attendance"
	"github.com/isekhard17/academia-sekhard/internal/events"
	"github.com/isekhard17/academia-sekhard/internal/metrics"
	"github.com/isekhard17/academia-sekhard/internal/section"
	"github.com/isekhard17/academia-sekhard/internal/subject"
	"github.com/isekhard17/academia-sekhard/internal/user"
	"github.com/isekhard17/academia-sekhard/testing/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct{ types []string }

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.types = append(p.types, e.Type)
	return nil
}
func (p *recordingPublisher) Name() string { return "recording" }
func (p *recordingPublisher) Close() error { return nil }

func ptr[T any](v T) *T { return &v }

func TestAttendanceService_Shared(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	m := commonmetrics.NewMock()

	users := user.NewRepository(pg.DB, m)
	subjects := subject.NewRepository(pg.DB, m)
	sections := section.NewRepository(pg.DB, m)
	repo := attendance.NewRepository(pg.DB, m)

	type fixture struct {
		svc      attendance.Service
		pub      *recordingPublisher
		sec      *section.Section
		owner    *user.User
		other    *user.User
		soto     *user.User
		abarca   *user.User
		outsider *user.User
	}

	setup := func(t *testing.T) fixture {
		t.Helper()
		testdb.Reset(t, pg.DB)

		mk := func(email, first, last string, role user.Role) *user.User {
			u, err := users.Create(ctx, &user.User{Email: email, FirstName: first, LastName: last, Role: role, Active: true})
			require.NoError(t, err)
			return u
		}
		f := fixture{
			owner:    mk("profe@colegio.cl", "Ana", "Rojas", user.RoleTeacher),
			other:    mk("otro@colegio.cl", "Pedro", "Vera", user.RoleTeacher),
			soto:     mk("soto@colegio.cl", "Luis", "Soto", user.RoleStudent),
			abarca:   mk("abarca@colegio.cl", "Marta", "Abarca", user.RoleStudent),
			outsider: mk("fuera@colegio.cl", "Iván", "Mora", user.RoleStudent),
		}

		subj, err := subjects.Create(ctx, &subject.Subject{Code: "HIS201", Name: "Historia"})
		require.NoError(t, err)
		f.sec, err = sections.Create(ctx, &section.Section{
			SubjectID: subj.ID, TeacherID: f.owner.ID, Period: "1", Year: 2025, Capacity: 30, Active: true,
		})
		require.NoError(t, err)
		for _, st := range []*user.User{f.soto, f.abarca} {
			_, err := sections.Enroll(ctx, &section.Enrollment{SectionID: f.sec.ID, StudentID: st.ID}, false)
			require.NoError(t, err)
		}

		f.pub = &recordingPublisher{}
		f.svc = attendance.NewService(repo, sections, events.NewEmitter(f.pub, m, logger), metrics.NewMock(), logger)
		return f
	}

	t.Run("Create_DefaultsAbsentAndRecordsActor", func(t *testing.T) {
		f := setup(t)

		a, err := f.svc.Create(ctx, attendance.CreateInput{SectionID: f.sec.ID, StudentID: f.soto.ID, Date: "2025-03-10"}, f.owner)
		require.NoError(t, err)
		assert.False(t, a.Present)
		assert.Equal(t, f.owner.ID, a.RecordedBy)
		assert.Equal(t, "2025-03-10", a.Date.Format("2006-01-02"))
		assert.Equal(t, []string{events.AttendanceRecorded}, f.pub.types)
	})

	t.Run("Fecha_RoundTripsAsSentDay", func(t *testing.T) {
		f := setup(t)

		created, err := f.svc.Create(ctx, attendance.CreateInput{SectionID: f.sec.ID, StudentID: f.soto.ID, Date: "2025-03-10"}, f.owner)
		require.NoError(t, err)
		body, err := json.Marshal(created)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"fecha":"2025-03-10"`)

		listed, err := f.svc.ListByDate(ctx, f.sec.ID, "2025-03-10", f.owner)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		body, err = json.Marshal(listed[0])
		require.NoError(t, err)
		assert.Contains(t, string(body), `"fecha":"2025-03-10"`)

		updated, err := f.svc.Update(ctx, created.ID, attendance.UpdateInput{Date: ptr("2025-03-31")}, f.owner)
		require.NoError(t, err)
		assert.Equal(t, "2025-03-31", updated.Date.String())
	})

	t.Run("Create_DuplicateIsConflict", func(t *testing.T) {
		f := setup(t)
		in := attendance.CreateInput{SectionID: f.sec.ID, StudentID: f.soto.ID, Date: "2025-03-10", Present: ptr(true)}
		_, err := f.svc.Create(ctx, in, f.owner)
		require.NoError(t, err)

		_, err = f.svc.Create(ctx, in, f.owner)
		require.Error(t, err)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.Equal(t, "Ya existe un registro de asistencia para esta fecha", apperr.As(err).Message)
	})

	t.Run("Create_NonOwnerForbidden", func(t *testing.T) {
		f := setup(t)

		_, err := f.svc.Create(ctx, attendance.CreateInput{SectionID: f.sec.ID, StudentID: f.soto.ID, Date: "2025-03-10"}, f.other)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		assert.Empty(t, f.pub.types)
	})

	t.Run("Create_NotEnrolled", func(t *testing.T) {
		f := setup(t)

		_, err := f.svc.Create(ctx, attendance.CreateInput{SectionID: f.sec.ID, StudentID: f.outsider.ID, Date: "2025-03-10"}, f.owner)
		assert.ErrorIs(t, err, attendance.ErrNotEnrolled)
	})

	t.Run("Create_BadDate", func(t *testing.T) {
		f := setup(t)

		_, err := f.svc.Create(ctx, attendance.CreateInput{SectionID: f.sec.ID, StudentID: f.soto.ID, Date: "2025-02-30"}, f.owner)
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("ListByDate_OrderedByLastName", func(t *testing.T) {
		f := setup(t)
		for _, st := range []*user.User{f.soto, f.abarca} {
			_, err := f.svc.Create(ctx, attendance.CreateInput{SectionID: f.sec.ID, StudentID: st.ID, Date: "2025-03-10", Present: ptr(true)}, f.owner)
			require.NoError(t, err)
		}
		_, err := f.svc.Create(ctx, attendance.CreateInput{SectionID: f.sec.ID, StudentID: f.soto.ID, Date: "2025-03-11"}, f.owner)
		require.NoError(t, err)

		got, err := f.svc.ListByDate(ctx, f.sec.ID, "2025-03-10", f.owner)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.NotNil(t, got[0].Student)
		assert.Equal(t, "Abarca", got[0].Student.LastName)
		assert.Equal(t, "Soto", got[1].Student.LastName)
	})

	t.Run("Update_RecorderFollowsActor", func(t *testing.T) {
		f := setup(t)
		admin, err := users.Create(ctx, &user.User{Email: "admin@colegio.cl", FirstName: "Root", LastName: "Admin", Role: user.RoleAdmin, Active: true})
		require.NoError(t, err)
		a, err := f.svc.Create(ctx, attendance.CreateInput{SectionID: f.sec.ID, StudentID: f.soto.ID, Date: "2025-03-10"}, f.owner)
		require.NoError(t, err)

		updated, err := f.svc.Update(ctx, a.ID, attendance.UpdateInput{Present: ptr(true)}, admin)
		require.NoError(t, err)
		assert.True(t, updated.Present)
		assert.Equal(t, admin.ID, updated.RecordedBy)
		assert.Equal(t, events.AttendanceUpdated, f.pub.types[len(f.pub.types)-1])
	})

	t.Run("Update_NotFound", func(t *testing.T) {
		f := setup(t)

		_, err := f.svc.Update(ctx, f.sec.ID, attendance.UpdateInput{Present: ptr(true)}, f.owner)
		require.Error(t, err)
		assert.Equal(t, "Registro de asistencia no encontrado", apperr.As(err).Message)
	})

	t.Run("Mine_OnlyOwnRecords", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.Create(ctx, attendance.CreateInput{SectionID: f.sec.ID, StudentID: f.soto.ID, Date: "2025-03-10", Present: ptr(true)}, f.owner)
		require.NoError(t, err)
		_, err = f.svc.Create(ctx, attendance.CreateInput{SectionID: f.sec.ID, StudentID: f.soto.ID, Date: "2025-03-11"}, f.owner)
		require.NoError(t, err)

		mine, err := f.svc.Mine(ctx, f.sec.ID, f.abarca)
		require.NoError(t, err)
		assert.Empty(t, mine)

		mine, err = f.svc.Mine(ctx, f.sec.ID, f.soto)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.True(t, mine[0].Date.Before(mine[1].Date.Time))

		presence, err := f.svc.MyPresence(ctx, f.soto)
		require.NoError(t, err)
		assert.ElementsMatch(t, []bool{true, false}, presence)

		_, err = f.svc.Mine(ctx, f.sec.ID, f.owner)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})
}
