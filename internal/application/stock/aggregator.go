package stock

import "github.com/jhoicas/stock-ledger-api/internal/domain/repository"

// Aggregator calcula la cantidad actual de uno o varios productos por replay
// del ledger: Σ(IN) − Σ(OUT) + Σ(ADJUST). Es la única fuente de verdad de
// "cuánto hay en stock"; cualquier columna de cantidad materializada es cache
// y nunca se lee como verdad. Lectura pura, sin efectos.
//
// Estas lecturas van sin bloqueo (endpoints de consulta). Dentro de una
// transacción del Coordinator la misma suma se recalcula con las variantes
// *ForUpdate del repositorio atado a la tx.
type Aggregator struct {
	ledger repository.LedgerRepository
}

// NewAggregator construye el agregador sobre un repositorio de ledger
// (normalmente atado al pool).
func NewAggregator(ledger repository.LedgerRepository) *Aggregator {
	return &Aggregator{ledger: ledger}
}

// QuantityOf devuelve la cantidad actual de un producto; 0 sin movimientos.
func (a *Aggregator) QuantityOf(productID string) (int64, error) {
	return a.ledger.SumByProduct(productID)
}

// QuantitiesOf forma batcheada de QuantityOf.
func (a *Aggregator) QuantitiesOf(productIDs []string) (map[string]int64, error) {
	return a.ledger.SumByProducts(productIDs)
}
