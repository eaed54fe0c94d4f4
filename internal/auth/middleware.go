package auth

import (
	"log/slog"
	"net/http"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/metrics"
	"github.com/isekhard17/academia-sekhard/internal/user"
)

// Middleware adapts the verifier and the gate to chi route groups. Routes
// that should stay public are simply mounted outside the group.
type Middleware struct {
	verifier *Verifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewMiddleware(verifier *Verifier, m *metrics.Metrics, logger *slog.Logger) *Middleware {
	return &Middleware{verifier: verifier, metrics: m, logger: logger}
}

// Authenticate resolves the bearer token and attaches the user to the
// request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := m.verifier.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			m.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(user.NewContext(r.Context(), u)))
	})
}

// RequireRoles admits active users whose role is in roles. It must run
// after Authenticate.
func (m *Middleware) RequireRoles(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := Authorize(user.FromContext(r.Context()), roles...); err != nil {
				m.reject(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	if kind := apperr.KindOf(err); kind != apperr.KindUpstream {
		m.metrics.RecordAuthRejection(r.Context(), kind.String())
	}
	apperr.Respond(w, r, m.logger, err)
}
