package printlog

import (
	"context"
	"log/slog"

	"github.com/kasirpos/kasirpos/internal/receipt"
	"github.com/kasirpos/kasirpos/internal/sales"
	"github.com/kasirpos/kasirpos/internal/shared"
)

// SaleReader fetches a sale honoring the actor's visibility rules.
type SaleReader interface {
	GetSale(ctx context.Context, actor shared.Actor, code string) (*sales.Sale, error)
}

// SettingsSource provides the shop profile for rendering.
type SettingsSource interface {
	ReceiptSettings(ctx context.Context) (receipt.Settings, error)
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	CountForSale(ctx context.Context, saleID int64) (int, error)
	Insert(ctx context.Context, log PrintLog) (PrintLog, error)
	ListForSale(ctx context.Context, saleID int64) ([]PrintLog, error)
}

// Service renders receipts and records every print. A sale printed more than
// once is marked as a reprint; two simultaneous first prints may both come
// out unmarked, which is acceptable for a paper trail.
type Service struct {
	repo     RepositoryPort
	sales    SaleReader
	settings SettingsSource
	codes    *shared.CodeGenerator
	clock    shared.Clock
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, saleReader SaleReader, settings SettingsSource, codes *shared.CodeGenerator, clock shared.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Service{repo: repo, sales: saleReader, settings: settings, codes: codes, clock: clock, logger: logger}
}

// PrintResult pairs the rendered receipt with its log entry.
type PrintResult struct {
	Receipt receipt.Receipt `json:"receipt"`
	Log     PrintLog        `json:"log"`
}

// PrintRequest names the document to print. PrinterName is optional and
// stored verbatim for the paper trail; PrintType defaults to a receipt.
type PrintRequest struct {
	SaleCode    string
	PrinterName string
	PrintType   string
}

// Print renders the receipt for a sale and records the print.
func (s *Service) Print(ctx context.Context, actor shared.Actor, req PrintRequest) (*PrintResult, error) {
	printType := req.PrintType
	if printType == "" {
		printType = PrintTypeReceipt
	}
	if printType != PrintTypeReceipt && printType != PrintTypeInvoice {
		return nil, ErrUnknownPrintType
	}
	sale, err := s.sales.GetSale(ctx, actor, req.SaleCode)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.ReceiptSettings(ctx)
	if err != nil {
		return nil, err
	}

	prior, err := s.repo.CountForSale(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	log, err := s.repo.Insert(ctx, PrintLog{
		Code:        s.codes.PrintLogCode(),
		SaleID:      sale.ID,
		SaleCode:    sale.Code,
		PrintType:   printType,
		IsReprint:   prior > 0,
		PrinterName: req.PrinterName,
		PrintedByID: actor.ID,
		PrintedAt:   s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	log.SaleCode = sale.Code
	log.PrintedByName = actor.Name

	s.logger.Info("receipt printed",
		slog.String("sale", sale.Code),
		slog.Bool("reprint", log.IsReprint),
		slog.Int64("actor_id", actor.ID))
	return &PrintResult{Receipt: receipt.Render(sale, settings), Log: log}, nil
}

// History returns the print history of a sale.
func (s *Service) History(ctx context.Context, actor shared.Actor, saleCode string) ([]PrintLog, error) {
	sale, err := s.sales.GetSale(ctx, actor, saleCode)
	if err != nil {
		return nil, err
	}
	return s.repo.ListForSale(ctx, sale.ID)
}
