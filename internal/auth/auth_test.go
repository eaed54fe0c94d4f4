package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/auth"
	"github.com/isekhard17/academia-sekhard/internal/identity"
	"github.com/isekhard17/academia-sekhard/internal/metrics"
	"github.com/isekhard17/academia-sekhard/internal/user"
	"github.com/isekhard17/academia-sekhard/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenProvider maps opaque tokens to identities.
type tokenProvider struct {
	tokens    map[string]uuid.UUID
	passwords map[string]uuid.UUID
	calls     int
	down      bool
}

func (p *tokenProvider) SignIn(_ context.Context, email, password string) (*identity.Session, error) {
	id, ok := p.passwords[email+":"+password]
	if !ok {
		return nil, identity.ErrInvalidCredentials
	}
	return &identity.Session{AccessToken: "tok-" + email, RefreshToken: "ref-" + email, User: &identity.Identity{ID: id, Email: email}}, nil
}

func (p *tokenProvider) Refresh(_ context.Context, refreshToken string) (*identity.Session, error) {
	if refreshToken != "valid-refresh" {
		return nil, identity.ErrInvalidRefreshToken
	}
	return &identity.Session{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
}

func (p *tokenProvider) SignOut(context.Context, string) error { return nil }

func (p *tokenProvider) Identify(_ context.Context, token string) (*identity.Identity, error) {
	p.calls++
	if p.down {
		return nil, errors.New("dial tcp: connection refused")
	}
	id, ok := p.tokens[token]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	return &identity.Identity{ID: id}, nil
}

func (p *tokenProvider) Provision(context.Context, string, string) (*identity.Identity, error) {
	return nil, errors.New("not supported")
}

func (p *tokenProvider) Deprovision(context.Context, uuid.UUID) error { return nil }

type countingLookup struct {
	users map[uuid.UUID]*user.User
	calls int
}

func (l *countingLookup) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	l.calls++
	u, ok := l.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return u, nil
}

type fixture struct {
	provider *tokenProvider
	lookup   *countingLookup
	router   chi.Router
	admin    *user.User
	teacher  *user.User
	disabled *user.User
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	admin := &user.User{ID: uuid.New(), Email: "admin@colegio.cl", Role: user.RoleAdmin, Active: true}
	teacher := &user.User{ID: uuid.New(), Email: "profe@colegio.cl", Role: user.RoleTeacher, Active: true}
	disabled := &user.User{ID: uuid.New(), Email: "baja@colegio.cl", Role: user.RoleAdmin, Active: false}
	orphan := uuid.New()

	provider := &tokenProvider{
		tokens: map[string]uuid.UUID{
			"admin-token":    admin.ID,
			"teacher-token":  teacher.ID,
			"disabled-token": disabled.ID,
			"orphan-token":   orphan,
		},
		passwords: map[string]uuid.UUID{
			"admin@colegio.cl:secreto123":  admin.ID,
			"baja@colegio.cl:secreto123":   disabled.ID,
			"huerfano@colegio.cl:secreto1": orphan,
		},
	}
	lookup := &countingLookup{users: map[uuid.UUID]*user.User{
		admin.ID:    admin,
		teacher.ID:  teacher,
		disabled.ID: disabled,
	}}

	verifier := auth.NewVerifier(provider, lookup)
	mw := auth.NewMiddleware(verifier, metrics.NewMock(), logger)
	handler := auth.NewHandler(auth.NewService(provider, verifier, logger), validation.New(), metrics.NewMock(), logger)

	router := chi.NewRouter()
	router.Route("/api/auth", handler.RegisterRoutes)
	router.Get("/api/validations/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Group(func(r chi.Router) {
		r.Use(mw.Authenticate)
		r.With(mw.RequireRoles(user.RoleAdmin)).Get("/api/admin/ping", func(w http.ResponseWriter, r *http.Request) {
			if user.FromContext(r.Context()) == nil {
				w.WriteHeader(http.StatusTeapot)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		r.With(mw.RequireRoles()).Get("/api/secciones/ping", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	return &fixture{provider: provider, lookup: lookup, router: router, admin: admin, teacher: teacher, disabled: disabled}
}

func (f *fixture) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	msg, _ := body["error"].(string)
	return msg
}

func TestAuthorize(t *testing.T) {
	student := &user.User{Role: user.RoleStudent, Active: true}

	t.Run("NilUser", func(t *testing.T) {
		assert.ErrorIs(t, auth.Authorize(nil, user.RoleAdmin), apperr.ErrUnauthenticated)
	})

	t.Run("RoleAllowed", func(t *testing.T) {
		assert.NoError(t, auth.Authorize(student, user.RoleAdmin, user.RoleStudent))
	})

	t.Run("RoleDenied", func(t *testing.T) {
		assert.ErrorIs(t, auth.Authorize(student, user.RoleAdmin), apperr.ErrForbidden)
	})

	t.Run("EmptySetAdmitsAnyRole", func(t *testing.T) {
		assert.NoError(t, auth.Authorize(student))
	})

	t.Run("DisabledBeforeRole", func(t *testing.T) {
		err := auth.Authorize(&user.User{Role: user.RoleStudent, Active: false}, user.RoleAdmin)
		assert.ErrorIs(t, err, apperr.ErrAccountDisabled)
		assert.NotErrorIs(t, err, apperr.ErrForbidden)
	})
}

func TestBearerToken(t *testing.T) {
	for _, header := range []string{"", "Bearer", "Bearer ", "Basic abc", "bearer abc", "Bearer    "} {
		_, err := auth.BearerToken(header)
		assert.ErrorIs(t, err, apperr.ErrMissingToken, "header %q", header)
	}

	token, err := auth.BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)
}

func TestMiddleware(t *testing.T) {
	t.Run("MissingToken_NoStorageCall", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodGet, "/api/admin/ping", "", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Token no proporcionado", errorMessage(t, w))
		assert.Zero(t, f.provider.calls)
		assert.Zero(t, f.lookup.calls)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodGet, "/api/admin/ping", "forged", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Token inválido", errorMessage(t, w))
		assert.Zero(t, f.lookup.calls)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodGet, "/api/admin/ping", "orphan-token", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Usuario no encontrado", errorMessage(t, w))
	})

	t.Run("ProviderDown_Is500", func(t *testing.T) {
		f := newFixture()
		f.provider.down = true

		w := f.do(t, http.MethodGet, "/api/admin/ping", "admin-token", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("RoleMismatch_Forbidden", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodGet, "/api/admin/ping", "teacher-token", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "No tiene permisos para realizar esta acción", errorMessage(t, w))
	})

	t.Run("DisabledAccount_DistinctFromRoleMismatch", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodGet, "/api/admin/ping", "disabled-token", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Cuenta desactivada", errorMessage(t, w))
	})

	t.Run("Allowed", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodGet, "/api/admin/ping", "admin-token", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("AnyRoleGroup", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodGet, "/api/secciones/ping", "teacher-token", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("PublicRouteBypassesGate", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodGet, "/api/validations/ping", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, f.provider.calls)
	})
}

func TestAuthHandler(t *testing.T) {
	t.Run("Login_Success", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "admin@colegio.cl",
			"password": "secreto123",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp auth.LoginResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "tok-admin@colegio.cl", resp.Session.AccessToken)
		assert.Equal(t, f.admin.ID, resp.User.ID)
	})

	t.Run("Login_BadCredentials_Is400", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "admin@colegio.cl",
			"password": "incorrecta",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Email o contraseña incorrectos", errorMessage(t, w))
	})

	t.Run("Login_MalformedBody_Is400", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "no-es-email", "password": "123"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Login_UnknownUser_Is401", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "huerfano@colegio.cl",
			"password": "secreto1",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Login_Disabled_Is403", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "baja@colegio.cl",
			"password": "secreto123",
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Cuenta desactivada", errorMessage(t, w))
	})

	t.Run("ValidateToken_Success", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/auth/validate-token", "teacher-token", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			User user.User `json:"user"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, f.teacher.ID, resp.User.ID)
	})

	t.Run("ValidateToken_Missing_Is401", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/auth/validate-token", "", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Refresh_Success", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": "valid-refresh"})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp auth.SessionResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "new-refresh", resp.Session.RefreshToken)
	})

	t.Run("Refresh_Invalid_Is401", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": "stale"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Logout_NoContent", func(t *testing.T) {
		f := newFixture()

		w := f.do(t, http.MethodPost, "/api/auth/logout", "admin-token", nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
