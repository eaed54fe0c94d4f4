package app

import (
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	commonmetrics "github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/internal/config"
	"github.com/isekhard17/academia-sekhard/internal/events"
	"github.com/isekhard17/academia-sekhard/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// newTestApp wires the router against a pool that never connects, so only
// routes that stop before storage can succeed.
func newTestApp(t *testing.T) *App {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN("postgres://u:p@127.0.0.1:1/academia?sslmode=disable")))
	database := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { database.Close() })

	infra := commonmetrics.NewMock()
	domain, err := metrics.New(infra.Meter())
	require.NoError(t, err)

	a := &App{
		config: &config.Config{
			Server:    config.ServerConfig{CORSOrigins: []string{"http://localhost:5173"}},
			Identity:  config.IdentityConfig{Provider: config.ProviderLocal, JWTSecret: "test-secret-key-for-testing", Issuer: "academia-test"},
			Dashboard: config.DashboardConfig{UpcomingLimit: 5},
		},
		router:  chi.NewRouter(),
		logger:  logger,
		db:      database,
		emitter: events.NewEmitter(events.Noop{}, infra, logger),
	}
	require.NoError(t, a.routes(a.identityProvider(infra), infra, domain))
	return a
}

func TestRoutes(t *testing.T) {
	a := newTestApp(t)
	handler := a.Handler()

	do := func(method, path string, header http.Header) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		for k, v := range header {
			req.Header[k] = v
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("Health", func(t *testing.T) {
		rec := do(http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("GatedRoutesRequireToken", func(t *testing.T) {
		for _, path := range []string{
			"/api/alumnos/mis-estadisticas",
			"/api/admin/usuarios",
			"/api/admin/estadisticas",
			"/api/profesores",
			"/api/asignaturas",
			"/api/secciones",
			"/api/evaluaciones/proximas",
			"/api/notas/alumno/x/seccion/y",
		} {
			rec := do(http.MethodGet, path, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
			assert.Contains(t, rec.Body.String(), `"error"`, path)
		}
	})

	t.Run("MalformedBearer", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/secciones", http.Header{"Authorization": {"Token abc"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ForgedToken", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/secciones", http.Header{"Authorization": {"Bearer not-a-jwt"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Token inválido")
	})

	t.Run("PreflightBypassesGate", func(t *testing.T) {
		rec := do(http.MethodOptions, "/api/secciones", http.Header{
			"Origin":                        {"http://localhost:5173"},
			"Access-Control-Request-Method": {"GET"},
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("UnknownRoute", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/inexistente", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("MetricsScrape", func(t *testing.T) {
		rec := do(http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.True(t, strings.Contains(body, "academia_http_requests_total"))
		assert.Contains(t, body, `route="/health"`)
	})
}
