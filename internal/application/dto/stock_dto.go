package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RestockRequest body para POST /api/stock/buy (una entrada IN).
type RestockRequest struct {
	SKU       string           `json:"sku"`
	Variety   string           `json:"variety,omitempty"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"` // costo por unidad (analítica)
	RefID     string           `json:"ref_id,omitempty"`     // factura proveedor / GRN / PO
	Notes     string           `json:"notes,omitempty"`
}

// BatchRestockRequest body para POST /api/stock/buy/batch.
// Cada item hereda ref_id/notes del batch salvo que traiga los propios.
type BatchRestockRequest struct {
	Supplier string           `json:"supplier,omitempty"`
	RefID    string           `json:"ref_id,omitempty"`
	Notes    string           `json:"notes,omitempty"`
	Items    []RestockRequest `json:"items"`
}

// SellRequest body para POST /api/stock/sell (una salida OUT).
type SellRequest struct {
	SKU       string           `json:"sku"`
	Variety   string           `json:"variety,omitempty"`
	Quantity  int64            `json:"quantity"`
	SalePrice *decimal.Decimal `json:"sale_price,omitempty"`
	RefID     string           `json:"ref_id,omitempty"` // nº de pedido / checkout
	Notes     string           `json:"notes,omitempty"`
}

// OrderItemRequest línea de un pedido multi-item.
type OrderItemRequest struct {
	SKU       string           `json:"sku"`
	Variety   string           `json:"variety,omitempty"`
	Quantity  int64            `json:"quantity"`
	SalePrice *decimal.Decimal `json:"sale_price,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}

// SellOrderRequest body para POST /api/stock/sell/order. Atómico:
// o se postean todas las líneas o ninguna.
type SellOrderRequest struct {
	OrderID string             `json:"order_id"`
	Channel string             `json:"channel,omitempty"` // web, whatsapp, pos
	Notes   string             `json:"notes,omitempty"`
	Items   []OrderItemRequest `json:"items"`
}

// MovementDTO fila del kardex (historial de movimientos).
type MovementDTO struct {
	ID        string           `json:"id"`
	Kind      string           `json:"kind"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Source    string           `json:"source,omitempty"`
	RefID     string           `json:"ref_id,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
