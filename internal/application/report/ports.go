package report

import (
	"context"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// KardexPDFGenerator genera la representación PDF del kardex de un producto
// (su historial de movimientos del ledger más la cantidad actual derivada).
type KardexPDFGenerator interface {
	GenerateKardexPDF(ctx context.Context, product *entity.Product, quantity int64, movements []*entity.Movement) ([]byte, error)
}
