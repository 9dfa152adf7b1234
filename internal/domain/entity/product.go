package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Product representa una línea vendible del catálogo.
// La identidad real de unicidad es el par (SKU, Variety): un mismo SKU puede
// tener varias variantes (talla/color/sabor), y el par identifica exactamente
// una fila. La cantidad en stock NO vive aquí: se deriva siempre del ledger.
type Product struct {
	ID         string
	SKU        string // código elegido por el comercio (ej. TSHIRT-BLK-M)
	Name       string
	Variety    string          // etiqueta de variante opcional ("" = sin variante)
	Price      decimal.Decimal // precio de venta vigente
	Attributes json.RawMessage // metadata arbitraria: marca, color, talla...
	IsActive   bool            // desactivación suave; nunca se borra en duro
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
