package company

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kasirpos/kasirpos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the shop profile.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validator: validator.New()}
}

// MountRoutes registers profile routes. Updates are mounted behind the owner
// gate by the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/company", h.get)
}

// MountOwnerRoutes registers owner-only profile routes.
func (h *Handler) MountOwnerRoutes(r chi.Router) {
	r.Put("/company", h.update)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.Get(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	settings, err := h.repo.Update(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("company settings updated", slog.String("name", settings.Name))
	httpx.JSON(w, http.StatusOK, settings)
}
