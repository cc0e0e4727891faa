package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kasirpos/kasirpos/internal/inventory"
	"github.com/kasirpos/kasirpos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByCode(ctx context.Context, code string) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	ListLowStock(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, code string) error
	Deactivate(ctx context.Context, code string) error
	HasSaleHistory(ctx context.Context, productID int64) (bool, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name string) (*Category, error)
}

// Service coordinates catalog operations.
type Service struct {
	repo   RepositoryPort
	codes  *shared.CodeGenerator
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, codes *shared.CodeGenerator, logger *slog.Logger) *Service {
	return &Service{repo: repo, codes: codes, logger: logger}
}

// CreateProduct inserts a product. When the request carries opening stock,
// the insert and its inbound movement commit in one transaction so the
// ledger never disagrees with the balance.
func (s *Service) CreateProduct(ctx context.Context, actor shared.Actor, req CreateProductRequest) (*Product, error) {
	if req.Price.IsNegative() || req.CostPrice.IsNegative() {
		return nil, ValidationError{Field: "price", Msg: "must not be negative"}
	}

	product := Product{
		Code:       strings.TrimSpace(req.Code),
		Name:       strings.TrimSpace(req.Name),
		CategoryID: req.CategoryID,
		Unit:       req.Unit,
		Price:      req.Price,
		CostPrice:  req.CostPrice,
		Stock:      req.InitialStock,
		MinStock:   req.MinStock,
		IsActive:   true,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertProduct(ctx, product)
		if err != nil {
			return err
		}
		product.ID = id
		if req.InitialStock > 0 {
			return tx.InsertMovement(ctx, inventory.Movement{
				Code:        s.codes.MovementCode(),
				ProductID:   id,
				Kind:        inventory.MovementIn,
				Quantity:    req.InitialStock,
				StockBefore: 0,
				StockAfter:  req.InitialStock,
				Note:        "Initial stock",
				ActorID:     actor.ID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product created",
		slog.String("code", product.Code),
		slog.Int("initial_stock", req.InitialStock),
		slog.Int64("actor_id", actor.ID))
	return s.repo.GetByCode(ctx, product.Code)
}

// GetProduct fetches a product by code.
func (s *Service) GetProduct(ctx context.Context, code string) (*Product, error) {
	return s.repo.GetByCode(ctx, code)
}

// ListProducts returns a paginated product listing.
func (s *Service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, shared.Pagination, error) {
	filter.Pagination = shared.NewPagination(filter.Pagination.Page, filter.Pagination.PerPage, 0)
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return products, shared.NewPagination(filter.Pagination.Page, filter.Pagination.PerPage, total), nil
}

// ListLowStock returns active products at or below their restock level.
func (s *Service) ListLowStock(ctx context.Context) ([]Product, error) {
	return s.repo.ListLowStock(ctx)
}

// UpdateProduct rewrites product attributes. Stock stays untouched.
func (s *Service) UpdateProduct(ctx context.Context, actor shared.Actor, code string, req UpdateProductRequest) (*Product, error) {
	if req.Price.IsNegative() || req.CostPrice.IsNegative() {
		return nil, ValidationError{Field: "price", Msg: "must not be negative"}
	}
	current, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	current.Name = strings.TrimSpace(req.Name)
	current.CategoryID = req.CategoryID
	current.Unit = req.Unit
	current.Price = req.Price
	current.CostPrice = req.CostPrice
	current.MinStock = req.MinStock
	if req.IsActive != nil {
		current.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, *current); err != nil {
		return nil, err
	}
	s.logger.Info("product updated", slog.String("code", code), slog.Int64("actor_id", actor.ID))
	return s.repo.GetByCode(ctx, code)
}

// DeleteProduct removes a product without sale history and demotes one with
// history to inactive, keeping past receipts resolvable. The returned flag
// reports whether the row was actually removed.
func (s *Service) DeleteProduct(ctx context.Context, actor shared.Actor, code string) (bool, error) {
	product, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return false, err
	}
	used, err := s.repo.HasSaleHistory(ctx, product.ID)
	if err != nil {
		return false, err
	}
	if used {
		if err := s.repo.Deactivate(ctx, code); err != nil {
			return false, err
		}
		s.logger.Info("product deactivated", slog.String("code", code), slog.Int64("actor_id", actor.ID))
		return false, nil
	}
	if err := s.repo.Delete(ctx, code); err != nil {
		return false, err
	}
	s.logger.Info("product deleted", slog.String("code", code), slog.Int64("actor_id", actor.ID))
	return true, nil
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory inserts a category.
func (s *Service) CreateCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ValidationError{Field: "name", Msg: "is required"}
	}
	return s.repo.CreateCategory(ctx, name)
}
