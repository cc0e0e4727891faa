package sales

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

// Handler wires HTTP endpoints for the register.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers sale routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.listSales)
	r.Post("/sales", h.createSale)
	r.Get("/sales/{code}", h.getSale)
	r.Delete("/sales/{code}", h.cancelSale)
}

type saleListResponse struct {
	Sales      []Sale            `json:"sales"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	cashierID, _ := strconv.ParseInt(q.Get("cashier_id"), 10, 64)
	filter := ListFilter{
		PaymentMethod: PaymentMethod(q.Get("payment_method")),
		CashierID:     cashierID,
		Search:        q.Get("search"),
		Pagination:    shared.Pagination{Page: page, PerPage: perPage},
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
	sales, pagination, err := h.service.ListSales(r.Context(), actor, filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saleListResponse{Sales: sales, Pagination: pagination})
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	sale, err := h.service.CreateSale(r.Context(), actor, req)
	if err != nil {
		h.respondSaleError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	sale, err := h.service.GetSale(r.Context(), actor, chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.CancelSale(r.Context(), actor, chi.URLParam(r, "code")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) respondSaleError(w http.ResponseWriter, err error) {
	var (
		verr    ValidationError
		stock   InsufficientStockError
		payment InsufficientPaymentError
	)
	switch {
	case errors.As(err, &verr):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
	case errors.As(err, &stock):
		httpx.Problem(w, http.StatusConflict, "Insufficient stock", err.Error())
	case errors.As(err, &payment):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient payment", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
