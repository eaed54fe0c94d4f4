package evaluation

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
	router.Get("/proximas", h.ListUpcoming)
	router.Get("/seccion/{seccionId}", h.ListBySection)
	router.Post("/", h.CreateEvaluation)
	router.Get("/{id}", h.GetEvaluation)
	router.Put("/{id}", h.UpdateEvaluation)
	router.Delete("/{id}", h.DeleteEvaluation)
}

func (h *Handler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	upcoming, err := h.service.Upcoming(r.Context(), user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, upcoming)
}

func (h *Handler) ListBySection(w http.ResponseWriter, r *http.Request) {
	sectionID, err := validation.PathUUID(r, "seccionId")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	evaluations, err := h.service.ListBySection(r.Context(), sectionID, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, evaluations)
}

func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	e, err := h.service.Get(r.Context(), id, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, e)
}

func (h *Handler) CreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := h.validate.Decode(r, &in); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	e, err := h.service.Create(r.Context(), in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, e)
}

func (h *Handler) UpdateEvaluation(w http.ResponseWriter, r *http.Request) {
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

	e, err := h.service.Update(r.Context(), id, in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), id, user.FromContext(r.Context())); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithMessage(w, http.StatusOK, "Evaluación eliminada exitosamente")
}
