package subject

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/isekhard17/academia-sekhard/common/httputil"
	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/user"
	"github.com/isekhard17/academia-sekhard/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
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
	router.Get("/", h.ListSubjects)
	router.Post("/", h.CreateSubject)
	router.Get("/{id}", h.GetSubject)
	router.Put("/{id}", h.UpdateSubject)
	router.Delete("/{id}", h.DeleteSubject)
}

// RegisterValidationRoutes mounts the public duplicate check used while a
// form is being filled in.
func (h *Handler) RegisterValidationRoutes(router chi.Router) {
	router.Get("/asignaturas/check-duplicate", h.CheckDuplicate)
}

func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.service.List(r.Context(), user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, subjects)
}

func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	id, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	subj, err := h.service.Get(r.Context(), id, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, subj)
}

func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := h.validate.Decode(r, &in); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	subj, err := h.service.Create(r.Context(), in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, subj)
}

func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
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

	subj, err := h.service.Update(r.Context(), id, in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, subj)
}

func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), id, user.FromContext(r.Context())); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithMessage(w, http.StatusOK, "Asignatura eliminada exitosamente")
}

type duplicateResponse struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message"`
}

func (h *Handler) CheckDuplicate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	field := Field(q.Get("field"))
	value := strings.TrimSpace(q.Get("value"))

	if field == "" || value == "" {
		httputil.RespondWithJSON(w, http.StatusBadRequest, duplicateResponse{Message: "Parámetros inválidos"})
		return
	}
	if !field.Valid() {
		httputil.RespondWithJSON(w, http.StatusBadRequest, duplicateResponse{Message: "Campo de validación inválido"})
		return
	}

	var exclude uuid.UUID
	if raw := q.Get("excludeId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithJSON(w, http.StatusBadRequest, duplicateResponse{Message: "Parámetros inválidos"})
			return
		}
		exclude = id
	}

	available, err := h.service.CheckDuplicate(r.Context(), field, value, exclude)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "duplicate check failed", "field", field, "error", err)
		httputil.RespondWithJSON(w, http.StatusInternalServerError, duplicateResponse{Message: "Error al verificar duplicados"})
		return
	}

	resp := duplicateResponse{IsValid: available, Message: "Disponible"}
	if !available {
		resp.Message = DuplicateMessage(string(field))
	}
	httputil.RespondWithJSON(w, http.StatusOK, resp)
}
