package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del ledger.
const (
	MovementIN     = "IN"     // entrada (restock)
	MovementOUT    = "OUT"    // salida (venta)
	MovementADJUST = "ADJUST" // ajuste con signo propio (correcciones)
)

// Movement es una entrada inmutable del ledger de stock. Una vez escrita
// nunca se actualiza ni se borra; las correcciones se registran como un
// ADJUST compensatorio. La cantidad actual de un producto es
// Σ(IN) − Σ(OUT) + Σ(ADJUST) sobre sus movimientos.
type Movement struct {
	ID        string
	ProductID string
	Kind      string
	Quantity  int64 // positiva en IN/OUT; ADJUST lleva su propio signo
	UnitPrice *decimal.Decimal
	Source    string // canal u origen: supplier, sale, whatsapp, pos...
	RefID     string // referencia externa: factura proveedor, nº de pedido
	Notes     string
	CreatedAt time.Time // asignado al insertar, nunca editado
}
