package unit

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

// RegisterSubjectRoutes mounts the unit routes nested under
// /api/asignaturas.
func (h *Handler) RegisterSubjectRoutes(router chi.Router) {
	router.Get("/{id}/unidades", h.ListUnits)
	router.Post("/{id}/unidades", h.CreateUnit)
	router.Put("/{id}/unidades/{unidadId}", h.UpdateUnit)
	router.Delete("/unidades/{unidadId}", h.DeleteUnit)
}

// RegisterRoutes mounts /api/unidades. The unit create route keeps the
// subject id in {id}.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/{id}/unidades", h.CreateUnit)
	router.Get("/{id}/materiales", h.ListMaterials)
	router.Post("/{id}/materiales", h.CreateMaterial)
	router.Put("/{id}/materiales/{materialId}", h.UpdateMaterial)
	router.Delete("/{id}/materiales/{materialId}", h.DeleteMaterial)
}

func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	subjectID, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	units, err := h.service.ListUnits(r.Context(), subjectID, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, units)
}

func (h *Handler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	subjectID, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	var in UnitInput
	if err := h.validate.Decode(r, &in); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	u, err := h.service.CreateUnit(r.Context(), subjectID, in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, u)
}

func (h *Handler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	subjectID, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	unitID, err := validation.PathUUID(r, "unidadId")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	var in UnitUpdateInput
	if err := h.validate.Decode(r, &in); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	u, err := h.service.UpdateUnit(r.Context(), subjectID, unitID, in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, u)
}

func (h *Handler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	unitID, err := validation.PathUUID(r, "unidadId")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	if err := h.service.DeleteUnit(r.Context(), unitID, user.FromContext(r.Context())); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithMessage(w, http.StatusOK, "Unidad eliminada exitosamente")
}

func (h *Handler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	unitID, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	materials, err := h.service.ListMaterials(r.Context(), unitID, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, materials)
}

func (h *Handler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	unitID, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	var in MaterialInput
	if err := h.validate.Decode(r, &in); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	m, err := h.service.CreateMaterial(r.Context(), unitID, in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, m)
}

func (h *Handler) UpdateMaterial(w http.ResponseWriter, r *http.Request) {
	unitID, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	materialID, err := validation.PathUUID(r, "materialId")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	var in MaterialUpdateInput
	if err := h.validate.Decode(r, &in); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	m, err := h.service.UpdateMaterial(r.Context(), unitID, materialID, in, user.FromContext(r.Context()))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, m)
}

func (h *Handler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	unitID, err := validation.PathUUID(r, "id")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	materialID, err := validation.PathUUID(r, "materialId")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	if err := h.service.DeleteMaterial(r.Context(), unitID, materialID, user.FromContext(r.Context())); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithMessage(w, http.StatusOK, "Material eliminado exitosamente")
}
