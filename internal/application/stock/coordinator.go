package stock

import (
	"context"

	"github.com/jhoicas/stock-ledger-api/internal/application/catalog"
	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// Fuentes por defecto de los movimientos cuando el caller no especifica canal.
const (
	sourceSupplier = "supplier"
	sourceSale     = "sale"
)

// Coordinator orquesta resolución, bloqueo, agregación, validación e
// inserción en el ledger como una unidad atómica, para cuatro formas de
// operación: restock simple, restock por lote, venta simple y pedido
// multi-item.
//
// Disciplina de orden: toda validación de entrada y toda resolución de
// catálogo ocurre ANTES de abrir la transacción, así los errores de entrada
// no dejan efectos. Los chequeos de suficiencia ocurren DENTRO del lock, y un
// faltante aborta la transacción completa: nunca se observa una venta
// multi-item parcial.
type Coordinator struct {
	txRunner TxRunner
	resolver *catalog.Resolver
}

// NewCoordinator construye el coordinador de transacciones de stock.
func NewCoordinator(txRunner TxRunner, resolver *catalog.Resolver) *Coordinator {
	return &Coordinator{txRunner: txRunner, resolver: resolver}
}

// Restock registra una entrada IN. No necesita chequeo de stock (solo
// incrementa), pero igual se inserta dentro de una transacción para
// serializar contra el backend.
func (c *Coordinator) Restock(ctx context.Context, in dto.RestockRequest) error {
	if in.Quantity <= 0 {
		return domain.ErrInvalidInput
	}
	productID, err := c.resolver.Resolve(in.SKU, in.Variety)
	if err != nil {
		return err
	}
	return c.txRunner.Run(ctx, func(ledger repository.LedgerRepository, _ repository.CatalogRepository) error {
		return ledger.Append(&entity.Movement{
			ProductID: productID,
			Kind:      entity.MovementIN,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Source:    sourceSupplier,
			RefID:     in.RefID,
			Notes:     in.Notes,
		})
	})
}

// BatchRestock registra una entrada IN por item en una sola transacción.
// Resuelve todos los items primero (fail-fast): si algún SKU no existe, no
// se escribe ningún movimiento. Cada item hereda ref_id/notes del batch
// salvo que traiga los propios.
func (c *Coordinator) BatchRestock(ctx context.Context, in dto.BatchRestockRequest) error {
	if len(in.Items) == 0 {
		return domain.ErrInvalidInput
	}
	keys := make([]repository.ProductKey, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return domain.ErrInvalidInput
		}
		keys = append(keys, repository.ProductKey{SKU: it.SKU, Variety: it.Variety})
	}
	ids, err := c.resolver.ResolveMany(keys)
	if err != nil {
		return err
	}
	source := in.Supplier
	if source == "" {
		source = sourceSupplier
	}
	return c.txRunner.Run(ctx, func(ledger repository.LedgerRepository, _ repository.CatalogRepository) error {
		for i, it := range in.Items {
			ref := it.RefID
			if ref == "" {
				ref = in.RefID
			}
			notes := it.Notes
			if notes == "" {
				notes = in.Notes
			}
			if err := ledger.Append(&entity.Movement{
				ProductID: ids[keys[i]],
				Kind:      entity.MovementIN,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
				Source:    source,
				RefID:     ref,
				Notes:     notes,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Sell registra una salida OUT si hay stock suficiente. La cantidad actual se
// recalcula bajo el lock del scope del producto; si no alcanza, la
// transacción aborta con el detalle disponible/solicitado y no escribe nada.
func (c *Coordinator) Sell(ctx context.Context, in dto.SellRequest) error {
	if in.Quantity <= 0 {
		return domain.ErrInvalidInput
	}
	productID, err := c.resolver.Resolve(in.SKU, in.Variety)
	if err != nil {
		return err
	}
	return c.txRunner.Run(ctx, func(ledger repository.LedgerRepository, _ repository.CatalogRepository) error {
		current, err := ledger.SumForUpdate(productID)
		if err != nil {
			return err
		}
		if current < in.Quantity {
			return &domain.InsufficientStockError{Shortages: []domain.Shortage{{
				SKU:       in.SKU,
				Variety:   in.Variety,
				Available: current,
				Requested: in.Quantity,
			}}}
		}
		return ledger.Append(&entity.Movement{
			ProductID: productID,
			Kind:      entity.MovementOUT,
			Quantity:  in.Quantity,
			UnitPrice: in.SalePrice,
			Source:    sourceSale,
			RefID:     in.RefID,
			Notes:     in.Notes,
		})
	})
}

// SellOrder vende un pedido multi-item de forma atómica:
//
//  1. Resuelve todos los items (fail-fast, antes de cualquier lock).
//  2. Abre una transacción y bloquea los scopes de TODOS los productos
//     afectados en orden ascendente de id: dos pedidos concurrentes que
//     compartan productos bloquean en el mismo orden, uno espera limpio
//     detrás del otro y no hay espera circular.
//  3. Calcula cantidades bajo ese lock y valida cada línea antes de escribir:
//     los faltantes se recolectan TODOS (no solo el primero).
//  4. Con algún faltante, aborta sin escribir; si no, inserta un OUT por
//     línea y commitea como una unidad.
func (c *Coordinator) SellOrder(ctx context.Context, in dto.SellOrderRequest) error {
	if in.OrderID == "" || len(in.Items) == 0 {
		return domain.ErrInvalidInput
	}
	keys := make([]repository.ProductKey, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return domain.ErrInvalidInput
		}
		keys = append(keys, repository.ProductKey{SKU: it.SKU, Variety: it.Variety})
	}
	ids, err := c.resolver.ResolveMany(keys)
	if err != nil {
		return err
	}
	productIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		productIDs = append(productIDs, id)
	}
	source := in.Channel
	if source == "" {
		source = sourceSale
	}
	return c.txRunner.Run(ctx, func(ledger repository.LedgerRepository, _ repository.CatalogRepository) error {
		stocks, err := ledger.SumManyForUpdate(productIDs)
		if err != nil {
			return err
		}

		// Varias líneas del pedido pueden apuntar al mismo producto: se
		// valida contra el total solicitado por producto, no por línea.
		requested := make(map[string]int64, len(keys))
		for i, it := range in.Items {
			requested[ids[keys[i]]] += it.Quantity
		}
		var shortages []domain.Shortage
		seen := make(map[string]bool, len(keys))
		for i, it := range in.Items {
			pid := ids[keys[i]]
			if seen[pid] {
				continue
			}
			seen[pid] = true
			if have := stocks[pid]; have < requested[pid] {
				shortages = append(shortages, domain.Shortage{
					SKU:       it.SKU,
					Variety:   it.Variety,
					Available: have,
					Requested: requested[pid],
				})
			}
		}
		if len(shortages) > 0 {
			return &domain.InsufficientStockError{Shortages: shortages}
		}

		for i, it := range in.Items {
			notes := it.Notes
			if notes == "" {
				notes = in.Notes
			}
			if err := ledger.Append(&entity.Movement{
				ProductID: ids[keys[i]],
				Kind:      entity.MovementOUT,
				Quantity:  it.Quantity,
				UnitPrice: it.SalePrice,
				Source:    source,
				RefID:     in.OrderID,
				Notes:     notes,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Adjust registra un ADJUST compensatorio con signo propio (correcciones de
// inventario físico). Cantidad cero es inválida; negativa descuenta.
func (c *Coordinator) Adjust(ctx context.Context, in dto.RestockRequest) error {
	if in.Quantity == 0 {
		return domain.ErrInvalidInput
	}
	productID, err := c.resolver.Resolve(in.SKU, in.Variety)
	if err != nil {
		return err
	}
	return c.txRunner.Run(ctx, func(ledger repository.LedgerRepository, _ repository.CatalogRepository) error {
		return ledger.Append(&entity.Movement{
			ProductID: productID,
			Kind:      entity.MovementADJUST,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Source:    "adjustment",
			RefID:     in.RefID,
			Notes:     in.Notes,
		})
	})
}
