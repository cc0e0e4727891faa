package shared

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Code prefixes used across the system. The format is cosmetic; uniqueness is
// what matters, so every code carries a random suffix.
const (
	PrefixSale     = "TRX"
	PrefixSaleItem = "ITM"
	PrefixMovement = "STK"
	PrefixPrintLog = "PRT"
	PrefixCustomer = "CUST"
)

// CodeGenerator produces human-scannable unique codes. Sale codes embed the
// transaction date so a printed receipt can be located by eye.
type CodeGenerator struct {
	clock Clock
}

// NewCodeGenerator constructs a CodeGenerator.
func NewCodeGenerator(clock Clock) *CodeGenerator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CodeGenerator{clock: clock}
}

// SaleCode returns a date-prefixed transaction code, e.g. TRX-20250829-3F9A2C.
func (g *CodeGenerator) SaleCode() string {
	return fmt.Sprintf("%s-%s-%s", PrefixSale, g.clock.Now().Format("20060102"), randomSuffix(6))
}

// ItemCode returns a sale item code.
func (g *CodeGenerator) ItemCode() string {
	return fmt.Sprintf("%s-%s", PrefixSaleItem, randomSuffix(8))
}

// MovementCode returns a stock movement code.
func (g *CodeGenerator) MovementCode() string {
	return fmt.Sprintf("%s-%s", PrefixMovement, randomSuffix(8))
}

// PrintLogCode returns a print log code.
func (g *CodeGenerator) PrintLogCode() string {
	return fmt.Sprintf("%s-%s", PrefixPrintLog, randomSuffix(8))
}

// CustomerCode returns a customer code.
func (g *CodeGenerator) CustomerCode() string {
	return fmt.Sprintf("%s-%s", PrefixCustomer, randomSuffix(8))
}

func randomSuffix(n int) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if n > len(id) {
		n = len(id)
	}
	return id[:n]
}
