package auth

import (
	"log/slog"
	"net/http"

	"github.com/isekhard17/academia-sekhard/common/httputil"
	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/metrics"
	"github.com/isekhard17/academia-sekhard/internal/validation"

	"github.com/go-chi/chi/v5"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type Handler struct {
	service  *Service
	validate *validation.Validator
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewHandler(service *Service, validate *validation.Validator, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validate,
		metrics:  m,
		logger:   logger,
	}
}

// RegisterRoutes mounts the public auth endpoints.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/login", h.Login)
	router.Post("/validate-token", h.ValidateToken)
	router.Post("/refresh", h.Refresh)
	router.Post("/logout", h.Logout)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.validate.Decode(r, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	resp, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordLogin(r.Context(), apperr.KindOf(err).String())
		apperr.Respond(w, r, h.logger, err)
		return
	}

	h.metrics.RecordLogin(r.Context(), "success")
	h.logger.Info("user logged in", "user_id", resp.User.ID, "role", resp.User.Role)
	httputil.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.ValidateToken(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := h.validate.Decode(r, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	resp, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), r.Header.Get("Authorization")); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
