package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasirpos/kasirpos/internal/customers"
	"github.com/kasirpos/kasirpos/internal/inventory"
	"github.com/kasirpos/kasirpos/internal/platform/db"
	"github.com/kasirpos/kasirpos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByCode(ctx context.Context, code string) (*Sale, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, int, error)
}

// Service runs the register. A sale commits in a single transaction: stock
// checks, stock writes, ledger entries, the sale itself and the customer
// bookkeeping all land together or not at all.
type Service struct {
	repo   RepositoryPort
	codes  *shared.CodeGenerator
	clock  shared.Clock
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, codes *shared.CodeGenerator, clock shared.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Service{repo: repo, codes: codes, clock: clock, logger: logger}
}

const txAttempts = 3

// withRetry reruns the transaction on serialization failures and deadlocks.
// Business errors pass through untouched.
func (s *Service) withRetry(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = s.repo.WithTx(ctx, fn)
		if err == nil || !db.IsSerializationFailure(err) {
			return err
		}
		s.logger.Warn("transaction conflict, retrying", slog.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
	return err
}

// CreateSale validates the cart, reserves stock under row locks, computes
// totals from catalog prices, checks payment and persists everything.
func (s *Service) CreateSale(ctx context.Context, actor shared.Actor, req CreateSaleRequest) (*Sale, error) {
	if len(req.Items) == 0 {
		return nil, ValidationError{Line: -1, Msg: "cart is empty"}
	}
	if !req.PaymentMethod.Valid() {
		return nil, ValidationError{Line: -1, Msg: "unknown payment method"}
	}
	if req.Tax.IsNegative() || req.Discount.IsNegative() || req.CashReceived.IsNegative() {
		return nil, ValidationError{Line: -1, Msg: "amounts must not be negative"}
	}
	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, ValidationError{Line: i, Msg: "quantity must be positive"}
		}
		if line.Discount.IsNegative() {
			return nil, ValidationError{Line: i, Msg: "discount must not be negative"}
		}
	}

	var sale Sale
	err := s.withRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		now := s.clock.Now()
		sale = Sale{
			Code:          s.codes.SaleCode(),
			Tax:           req.Tax,
			Discount:      req.Discount,
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
			CashierID:     actor.ID,
			CashierName:   actor.Name,
			CreatedAt:     now,
		}

		type reservation struct {
			item     SaleItem
			movement inventory.Movement
		}
		reservations := make([]reservation, 0, len(req.Items))
		subtotal := decimal.Zero
		for i, line := range req.Items {
			product, err := tx.GetProductForUpdate(ctx, line.ProductCode)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return ValidationError{Line: i, Msg: fmt.Sprintf("product %s not found or inactive", line.ProductCode)}
				}
				return err
			}
			if line.Quantity > product.Stock {
				return InsufficientStockError{ProductCode: product.Code, Requested: line.Quantity, Available: product.Stock}
			}

			gross := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			if line.Discount.GreaterThan(gross) {
				return ValidationError{Line: i, Msg: "discount exceeds line amount"}
			}
			lineTotal := gross.Sub(line.Discount)
			subtotal = subtotal.Add(lineTotal)

			before := product.Stock
			after := before - line.Quantity
			// Writing stock here makes a later line for the same product
			// see the reduced balance.
			if err := tx.UpdateProductStock(ctx, product.ID, after); err != nil {
				return err
			}
			reservations = append(reservations, reservation{
				item: SaleItem{
					Code:        s.codes.ItemCode(),
					ProductID:   product.ID,
					ProductCode: product.Code,
					ProductName: product.Name,
					Unit:        product.Unit,
					Price:       product.Price,
					Quantity:    line.Quantity,
					Discount:    line.Discount,
					LineTotal:   lineTotal,
				},
				movement: inventory.Movement{
					Code:        s.codes.MovementCode(),
					ProductID:   product.ID,
					ProductCode: product.Code,
					Kind:        inventory.MovementOut,
					Quantity:    line.Quantity,
					StockBefore: before,
					StockAfter:  after,
					Reference:   inventory.Reference{Kind: inventory.ReferenceSale, Code: sale.Code},
					Note:        "Sale " + sale.Code,
					ActorID:     actor.ID,
				},
			})
		}

		sale.Subtotal = subtotal
		sale.Total = subtotal.Add(req.Tax).Sub(req.Discount)
		if sale.Total.IsNegative() {
			return ValidationError{Line: -1, Msg: "discount exceeds sale amount"}
		}

		switch req.PaymentMethod {
		case PaymentCash:
			if req.CashReceived.LessThan(sale.Total) {
				return InsufficientPaymentError{Total: sale.Total, Received: req.CashReceived}
			}
			sale.CashReceived = req.CashReceived
			sale.Change = req.CashReceived.Sub(sale.Total)
		default:
			sale.CashReceived = sale.Total
			sale.Change = decimal.Zero
		}

		if phone := strings.TrimSpace(req.CustomerPhone); phone != "" {
			customer, err := tx.FindCustomerByPhone(ctx, phone)
			switch {
			case err == nil:
			case errors.Is(err, shared.ErrNotFound):
				name := strings.TrimSpace(req.CustomerName)
				if name == "" {
					name = "Pelanggan"
				}
				created := customers.Customer{Code: s.codes.CustomerCode(), Name: name, Phone: phone}
				id, err := tx.InsertCustomer(ctx, created)
				if err != nil {
					return err
				}
				created.ID = id
				customer = &created
			default:
				return err
			}
			if err := tx.RecordCustomerPurchase(ctx, customer.ID, now); err != nil {
				return err
			}
			sale.CustomerID = &customer.ID
			sale.CustomerName = customer.Name
			sale.CustomerPhone = customer.Phone
		}

		saleID, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = saleID
		for i := range reservations {
			res := &reservations[i]
			res.item.SaleID = saleID
			if err := tx.InsertSaleItem(ctx, res.item); err != nil {
				return err
			}
			if err := tx.InsertMovement(ctx, res.movement); err != nil {
				return err
			}
			sale.Items = append(sale.Items, res.item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sale committed",
		slog.String("code", sale.Code),
		slog.String("total", sale.Total.StringFixed(2)),
		slog.String("payment_method", string(sale.PaymentMethod)),
		slog.Int("items", len(sale.Items)),
		slog.Int64("cashier_id", actor.ID))
	return &sale, nil
}

// CancelSale reverses a sale. Compensating inbound movements restore stock,
// then the sale, its items and its print history are removed. Owner only.
func (s *Service) CancelSale(ctx context.Context, actor shared.Actor, code string) error {
	if !actor.IsOwner() {
		return shared.ErrForbidden
	}

	err := s.withRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, code)
		if err != nil {
			return err
		}
		for _, item := range sale.Items {
			product, err := tx.GetProductByIDForUpdate(ctx, item.ProductID)
			if err != nil {
				return err
			}
			before := product.Stock
			after := before + item.Quantity
			if err := tx.UpdateProductStock(ctx, product.ID, after); err != nil {
				return err
			}
			if err := tx.InsertMovement(ctx, inventory.Movement{
				Code:        s.codes.MovementCode(),
				ProductID:   product.ID,
				ProductCode: product.Code,
				Kind:        inventory.MovementIn,
				Quantity:    item.Quantity,
				StockBefore: before,
				StockAfter:  after,
				Reference:   inventory.Reference{Kind: inventory.ReferenceCancellation, Code: sale.Code},
				Note:        "Cancellation of " + sale.Code,
				ActorID:     actor.ID,
			}); err != nil {
				return err
			}
		}
		return tx.DeleteSaleCascade(ctx, sale.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("sale cancelled", slog.String("code", code), slog.Int64("actor_id", actor.ID))
	return nil
}

// GetSale fetches a sale. Employees may only read their own sales.
func (s *Service) GetSale(ctx context.Context, actor shared.Actor, code string) (*Sale, error) {
	sale, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !actor.IsOwner() && sale.CashierID != actor.ID {
		return nil, shared.ErrForbidden
	}
	return sale, nil
}

// ListSales returns a paginated listing. Employees are pinned to their own
// sales regardless of the requested filter.
func (s *Service) ListSales(ctx context.Context, actor shared.Actor, filter ListFilter) ([]Sale, shared.Pagination, error) {
	if !actor.IsOwner() {
		filter.CashierID = actor.ID
	}
	filter.Pagination = shared.NewPagination(filter.Pagination.Page, filter.Pagination.PerPage, 0)
	sales, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return sales, shared.NewPagination(filter.Pagination.Page, filter.Pagination.PerPage, total), nil
}
