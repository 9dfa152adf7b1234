package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/application/stock"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// KardexUseCase arma el reporte kardex de un producto: ficha de catálogo,
// cantidad derivada del ledger y el historial de movimientos del período.
// Es una lectura sin locks: el PDF es una foto, no una fuente de verdad.
type KardexUseCase struct {
	catalogRepo repository.CatalogRepository
	ledgerRepo  repository.LedgerRepository
	aggregator  *stock.Aggregator
	generator   KardexPDFGenerator
}

// NewKardexUseCase construye el caso de uso inyectando sus dependencias.
func NewKardexUseCase(
	catalogRepo repository.CatalogRepository,
	ledgerRepo repository.LedgerRepository,
	aggregator *stock.Aggregator,
	generator KardexPDFGenerator,
) *KardexUseCase {
	return &KardexUseCase{
		catalogRepo: catalogRepo,
		ledgerRepo:  ledgerRepo,
		aggregator:  aggregator,
		generator:   generator,
	}
}

// DownloadKardexPDF genera el PDF del kardex.
//
// Retorna:
//   - (pdfBytes, filename, nil)        si todo sale bien.
//   - *domain.ProductNotFoundError     si el (sku, variety) no resuelve.
//   - domain.ErrAmbiguousVariant       si el SKU tiene variantes y no se especificó.
func (uc *KardexUseCase) DownloadKardexPDF(
	ctx context.Context,
	sku, variety string,
	from, to *time.Time,
	limit, offset int,
) (pdfBytes []byte, filename string, err error) {
	if sku == "" {
		return nil, "", domain.ErrInvalidInput
	}
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	productID, err := uc.catalogRepo.ResolveID(sku, variety)
	if err != nil {
		return nil, "", err
	}
	product, err := uc.catalogRepo.GetBySKU(sku, variety)
	if err != nil {
		return nil, "", fmt.Errorf("kardex: obtener producto: %w", err)
	}
	if product == nil {
		return nil, "", &domain.ProductNotFoundError{SKU: sku, Variety: variety}
	}

	quantity, err := uc.aggregator.QuantityOf(productID)
	if err != nil {
		return nil, "", fmt.Errorf("kardex: agregar ledger: %w", err)
	}
	movements, err := uc.ledgerRepo.ListByProduct(productID, from, to, limit, offset)
	if err != nil {
		return nil, "", fmt.Errorf("kardex: listar movimientos: %w", err)
	}

	pdfBytes, err = uc.generator.GenerateKardexPDF(ctx, product, quantity, movements)
	if err != nil {
		return nil, "", fmt.Errorf("kardex: generar PDF: %w", err)
	}

	name := strings.ReplaceAll(sku, "/", "-")
	filename = fmt.Sprintf("kardex-%s-%s.pdf", name, time.Now().Format("20060102"))
	return pdfBytes, filename, nil
}

// Movements devuelve el historial de movimientos de un producto en JSON
// (la versión consultable del kardex), más recientes primero.
func (uc *KardexUseCase) Movements(
	sku, variety string,
	from, to *time.Time,
	page dto.PageRequest,
) ([]dto.MovementDTO, error) {
	if sku == "" {
		return nil, domain.ErrInvalidInput
	}
	page.DefaultPage()

	productID, err := uc.catalogRepo.ResolveID(sku, variety)
	if err != nil {
		return nil, err
	}
	movements, err := uc.ledgerRepo.ListByProduct(productID, from, to, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("kardex: listar movimientos: %w", err)
	}

	out := make([]dto.MovementDTO, 0, len(movements))
	for _, m := range movements {
		out = append(out, dto.MovementDTO{
			ID:        m.ID,
			Kind:      m.Kind,
			Quantity:  m.Quantity,
			UnitPrice: m.UnitPrice,
			Source:    m.Source,
			RefID:     m.RefID,
			Notes:     m.Notes,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}
