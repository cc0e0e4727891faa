package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kasirpos/kasirpos/internal/platform/httpx"
	"github.com/kasirpos/kasirpos/internal/shared"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers ledger routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock/movements", h.listMovements)
	r.Post("/stock/movements", h.recordMovement)
	r.Get("/stock/movements/{code}", h.getMovement)
}

type movementListResponse struct {
	Movements  []Movement        `json:"movements"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	filter := ListFilter{
		ProductCode: q.Get("product"),
		Kind:        MovementKind(q.Get("kind")),
		Search:      q.Get("search"),
		Pagination:  shared.Pagination{Page: page, PerPage: perPage},
	}
	if v := q.Get("from"); v != "" {
		if ts, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = ts
		}
	}
	if v := q.Get("to"); v != "" {
		if ts, err := time.Parse("2006-01-02", v); err == nil {
			filter.To = ts.AddDate(0, 0, 1)
		}
	}
	movements, pagination, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movementListResponse{Movements: movements, Pagination: pagination})
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	var req RecordMovementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	movement, err := h.service.RecordMovement(r.Context(), actor, req)
	if err != nil {
		var (
			verr  ValidationError
			stock InsufficientStockError
		)
		switch {
		case errors.As(err, &verr):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		case errors.As(err, &stock):
			httpx.Problem(w, http.StatusConflict, "Insufficient stock", err.Error())
		default:
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) getMovement(w http.ResponseWriter, r *http.Request) {
	movement, err := h.service.GetMovement(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movement)
}
