package inventory

import (
	"context"
	"log/slog"

	"github.com/kasirpos/kasirpos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Movement, int, error)
	GetByCode(ctx context.Context, code string) (*Movement, error)
}

// Service coordinates manual stock movements and ledger queries.
type Service struct {
	repo   RepositoryPort
	codes  *shared.CodeGenerator
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, codes *shared.CodeGenerator, logger *slog.Logger) *Service {
	return &Service{repo: repo, codes: codes, logger: logger}
}

// RecordMovement posts a manual movement. The product row is locked for the
// duration so the before and after snapshots stay truthful under concurrent
// sales. For adjustments the request quantity is the counted stock level and
// the stored quantity is the absolute difference.
func (s *Service) RecordMovement(ctx context.Context, actor shared.Actor, req RecordMovementRequest) (*Movement, error) {
	if !req.Kind.Valid() {
		return nil, ValidationError{Field: "kind", Msg: "must be in, out or adjustment"}
	}
	if req.Kind == MovementAdjustment && !actor.IsOwner() {
		return nil, shared.ErrForbidden
	}
	if req.Kind != MovementAdjustment && req.Quantity <= 0 {
		return nil, ValidationError{Field: "quantity", Msg: "must be positive"}
	}
	if req.Quantity < 0 {
		return nil, ValidationError{Field: "quantity", Msg: "must not be negative"}
	}

	var recorded Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, req.ProductCode)
		if err != nil {
			return err
		}

		before := product.Stock
		var after, quantity int
		switch req.Kind {
		case MovementIn:
			quantity = req.Quantity
			after = before + quantity
		case MovementOut:
			if req.Quantity > before {
				return InsufficientStockError{ProductCode: product.Code, Requested: req.Quantity, Available: before}
			}
			quantity = req.Quantity
			after = before - quantity
		case MovementAdjustment:
			after = req.Quantity
			quantity = after - before
			if quantity < 0 {
				quantity = -quantity
			}
		}

		recorded = Movement{
			Code:        s.codes.MovementCode(),
			ProductID:   product.ID,
			ProductCode: product.Code,
			ProductName: product.Name,
			Kind:        req.Kind,
			Quantity:    quantity,
			StockBefore: before,
			StockAfter:  after,
			Note:        req.Note,
			ActorID:     actor.ID,
			ActorName:   actor.Name,
		}
		id, err := tx.InsertMovement(ctx, recorded)
		if err != nil {
			return err
		}
		recorded.ID = id
		return tx.UpdateProductStock(ctx, product.ID, after)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock movement recorded",
		slog.String("code", recorded.Code),
		slog.String("product", recorded.ProductCode),
		slog.String("kind", string(recorded.Kind)),
		slog.Int("stock_before", recorded.StockBefore),
		slog.Int("stock_after", recorded.StockAfter),
		slog.Int64("actor_id", actor.ID))
	return &recorded, nil
}

// ListMovements returns a paginated view of the ledger.
func (s *Service) ListMovements(ctx context.Context, filter ListFilter) ([]Movement, shared.Pagination, error) {
	filter.Pagination = shared.NewPagination(filter.Pagination.Page, filter.Pagination.PerPage, 0)
	movements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return movements, shared.NewPagination(filter.Pagination.Page, filter.Pagination.PerPage, total), nil
}

// GetMovement fetches one ledger entry by code.
func (s *Service) GetMovement(ctx context.Context, code string) (*Movement, error) {
	return s.repo.GetByCode(ctx, code)
}
