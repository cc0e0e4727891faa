package printlog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kasirpos/kasirpos/internal/platform/httpx"
	"github.com/kasirpos/kasirpos/internal/shared"
)

// Handler wires HTTP endpoints for receipt printing.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers print routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales/{code}/print", h.print)
	r.Get("/sales/{code}/prints", h.history)
}

type printRequest struct {
	PrinterName string `json:"printer_name"`
	PrintType   string `json:"print_type"`
}

func (h *Handler) print(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	var req printRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "invalid request", err.Error())
			return
		}
	}
	result, err := h.service.Print(r.Context(), actor, PrintRequest{
		SaleCode:    chi.URLParam(r, "code"),
		PrinterName: req.PrinterName,
		PrintType:   req.PrintType,
	})
	if err != nil {
		if errors.Is(err, ErrUnknownPrintType) {
			httpx.Problem(w, http.StatusBadRequest, "invalid request", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	logs, err := h.service.History(r.Context(), actor, chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"prints": logs})
}
