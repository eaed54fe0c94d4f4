package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/isekhard17/academia-sekhard/common/httputil"
	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/user"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the dashboard under /api/admin.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/estadisticas", h.GetTotals)
	router.Get("/distribucion-alumnos", h.GetDistribution)
	router.Get("/asignaturas-stats", h.GetSubjectAverages)
}

func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.Totals(r.Context(), user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, totals)
}

func (h *Handler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.Distribution(r.Context(), user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, points)
}

func (h *Handler) GetSubjectAverages(w http.ResponseWriter, r *http.Request) {
	averages, err := h.service.SubjectAverages(r.Context(), user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, averages)
}
