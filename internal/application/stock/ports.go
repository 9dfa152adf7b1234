package stock

import (
	"context"

	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// TxRunner es el contrato del gateway de persistencia que consume el motor:
// ejecuta fn dentro de una transacción, pasando repositorios atados a esa tx.
// Commit si fn retorna nil; Rollback en cualquier error (incluido un panic
// recuperado por el defer del runner). El motor no depende de cómo serializa
// el backend (lock por fila o lock global de escritura), solo de que dos
// transacciones sobre el mismo scope de producto no se intercalen.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		ledger repository.LedgerRepository,
		catalog repository.CatalogRepository,
	) error) error
}
