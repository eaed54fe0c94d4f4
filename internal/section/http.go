package section

import (
	"log/slog"
	"net/http"

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

// RegisterRoutes mounts the /api/secciones routes.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", h.ListSections)
	router.Post("/", h.CreateSection)
	router.Get("/asignatura/{asignaturaId}", h.ListBySubject)
	router.Get("/{id}", h.GetSection)
	router.Put("/{id}", h.UpdateSection)
	router.Delete("/{id}", h.DeactivateSection)

	router.Get("/{id}/inscripciones", h.ListEnrollments)
	router.Post("/{id}/inscripciones", h.Enroll)
	router.Delete("/{id}/inscripciones/{alumnoId}", h.Unenroll)
}

// RegisterTeacherRoutes mounts the section routes nested under
// /api/profesores.
func (h *Handler) RegisterTeacherRoutes(router chi.Router) {
	router.Get("/{id}/secciones", h.ListTeacherSections)
	router.Put("/{id}/secciones/{seccionId}", h.UpdateTeacherSection)
	router.Delete("/{id}/secciones/{seccionId}", h.DeactivateTeacherSection)
}

func (h *Handler) ListSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.service.List(r.Context(), user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, sections)
}

func (h *Handler) ListBySubject(w http.ResponseWriter, r *http.Request) {
	subjectID, err := validation.PathUUID(r, "asignaturaId")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	sections, err := h.service.ListBySubject(r.Context(), subjectID, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, sections)
}

func (h *Handler) GetSection(w http.ResponseWriter, r *http.Request) {
	id, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	sec, err := h.service.Get(r.Context(), id, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, sec)
}

func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := h.validate.Decode(r, &in); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	sec, err := h.service.Create(r.Context(), in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, sec)
}

func (h *Handler) UpdateSection(w http.ResponseWriter, r *http.Request) {
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

	sec, err := h.service.Update(r.Context(), id, in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, sec)
}

func (h *Handler) DeactivateSection(w http.ResponseWriter, r *http.Request) {
	id, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	sec, err := h.service.Deactivate(r.Context(), id, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, sec)
}

func (h *Handler) ListTeacherSections(w http.ResponseWriter, r *http.Request) {
	teacherID, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	sections, err := h.service.TeacherSections(r.Context(), teacherID, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, sections)
}

func (h *Handler) UpdateTeacherSection(w http.ResponseWriter, r *http.Request) {
	teacherID, sectionID, err := teacherPath(r)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	var in TeacherUpdateInput
	if err := h.validate.Decode(r, &in); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	sec, err := h.service.UpdateTeacherSection(r.Context(), teacherID, sectionID, in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, sec)
}

func (h *Handler) DeactivateTeacherSection(w http.ResponseWriter, r *http.Request) {
	teacherID, sectionID, err := teacherPath(r)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	sec, err := h.service.DeactivateTeacherSection(r.Context(), teacherID, sectionID, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, sec)
}

func (h *Handler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	id, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	enrollments, err := h.service.Enrollments(r.Context(), id, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, enrollments)
}

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	id, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	var in EnrollInput
	if err := h.validate.Decode(r, &in); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	e, err := h.service.Enroll(r.Context(), id, in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, e)
}

func (h *Handler) Unenroll(w http.ResponseWriter, r *http.Request) {
	id, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	studentID, err := validation.PathUUID(r, "alumnoId")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	if err := h.service.Unenroll(r.Context(), id, studentID, user.FromContext(r.Context())); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithMessage(w, http.StatusOK, "Inscripción eliminada exitosamente")
}

func teacherPath(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	teacherID, err := validation.PathUUID(r, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	sectionID, err := validation.PathUUID(r, "seccionId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return teacherID, sectionID, nil
}
