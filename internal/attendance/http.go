package attendance

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
	service  Service
	validate *validation.Validator
	logger   *slog.Logger
}

func NewHandler(service Service, validate *validation.Validator, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validate,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/seccion/{seccionId}/fecha/{fecha}", h.ListByDate)
	router.Get("/alumno/{alumnoId}/seccion/{seccionId}", h.ListForStudent)
	router.Post("/", h.CreateAttendance)
	router.Put("/{id}", h.UpdateAttendance)
}

func (h *Handler) ListByDate(w http.ResponseWriter, r *http.Request) {
	sectionID, err := validation.PathUUID(r, "seccionId")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	records, err := h.service.ListByDate(r.Context(), sectionID, chi.URLParam(r, "fecha"), user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, records)
}

func (h *Handler) ListForStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := validation.PathUUID(r, "alumnoId")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	sectionID, err := validation.PathUUID(r, "seccionId")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	records, err := h.service.ListForStudent(r.Context(), studentID, sectionID, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, records)
}

func (h *Handler) CreateAttendance(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := h.validate.Decode(r, &in); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	a, err := h.service.Create(r.Context(), in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, a)
}

func (h *Handler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	var in UpdateInput
	if err := h.validate.Decode(r, &in); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	a, err := h.service.Update(r.Context(), id, in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, a)
}
