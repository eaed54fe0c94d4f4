package student

import (
	"log/slog"
	"net/http"

	"github.com/isekhard17/academia-sekhard/common/httputil"
	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/user"
	"github.com/isekhard17/academia-sekhard/internal/validation"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/mis-estadisticas", h.GetStats)
	router.Get("/mis-secciones", h.GetSections)
	router.Get("/mis-notas/seccion/{seccionId}", h.GetGrades)
	router.Get("/mi-asistencia/seccion/{seccionId}", h.GetAttendance)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Stats(r.Context(), user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, s)
}

func (h *Handler) GetSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.service.Sections(r.Context(), user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, sections)
}

func (h *Handler) GetGrades(w http.ResponseWriter, r *http.Request) {
	sectionID, err := validation.PathUUID(r, "seccionId")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	grades, err := h.service.Grades(r.Context(), sectionID, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, grades)
}

func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	sectionID, err := validation.PathUUID(r, "seccionId")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	records, err := h.service.Attendance(r.Context(), sectionID, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, records)
}
