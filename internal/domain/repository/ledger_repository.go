package repository

import (
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// LedgerRepository define el puerto sobre el ledger append-only de stock.
// No expone update ni delete: las correcciones son movimientos ADJUST.
//
// Las variantes *ForUpdate solo tienen sentido dentro de una transacción
// (repositorio atado a una tx vía TxRunner): bloquean la fila del producto
// en products antes de agregar, de modo que una segunda transacción sobre el
// mismo producto espera hasta el Commit/Rollback de la primera.
type LedgerRepository interface {
	// Append inserta un movimiento. Asigna ID/CreatedAt si vienen vacíos.
	Append(m *entity.Movement) error
	// SumByProduct devuelve Σ(IN) − Σ(OUT) + Σ(ADJUST); 0 sin movimientos.
	SumByProduct(productID string) (int64, error)
	// SumByProducts forma batcheada de SumByProduct.
	SumByProducts(productIDs []string) (map[string]int64, error)
	// SumForUpdate bloquea el scope del producto y devuelve la cantidad.
	SumForUpdate(productID string) (int64, error)
	// SumManyForUpdate bloquea todos los scopes en orden ascendente de id
	// (regla anti-deadlock) y devuelve las cantidades.
	SumManyForUpdate(productIDs []string) (map[string]int64, error)
	// ListByProduct lista movimientos de un producto en un rango de fechas,
	// más recientes primero.
	ListByProduct(productID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error)
}
