package grade

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/isekhard17/academia-sekhard/common/httputil"
	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/export"
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
	router.Get("/alumno/{alumnoId}/seccion/{seccionId}", h.ListForStudent)
	router.Post("/", h.CreateGrade)
	router.Put("/{id}", h.UpdateGrade)
	router.Delete("/{id}", h.DeleteGrade)
}

// RegisterSectionRoutes mounts the gradebook export under /api/secciones.
func (h *Handler) RegisterSectionRoutes(router chi.Router) {
	router.Get("/{id}/notas/export", h.ExportGradebook)
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

	grades, err := h.service.ListForStudent(r.Context(), studentID, sectionID, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, grades)
}

func (h *Handler) CreateGrade(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := h.validate.Decode(r, &in); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	g, err := h.service.Create(r.Context(), in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, g)
}

func (h *Handler) UpdateGrade(w http.ResponseWriter, r *http.Request) {
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

	g, err := h.service.Update(r.Context(), id, in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, g)
}

func (h *Handler) DeleteGrade(w http.ResponseWriter, r *http.Request) {
	id, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), id, user.FromContext(r.Context())); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithMessage(w, http.StatusOK, "Nota eliminada exitosamente")
}

func (h *Handler) ExportGradebook(w http.ResponseWriter, r *http.Request) {
	sectionID, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	book, err := h.service.Gradebook(r.Context(), sectionID, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	// Headers go out only once the workbook has rendered.
	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		apperr.Respond(w, r, h.logger, apperr.Upstream("render gradebook", err))
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(book.Title)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
