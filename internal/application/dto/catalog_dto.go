package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ProductUpsertRequest body para POST /api/products/upsert.
type ProductUpsertRequest struct {
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Variety    string          `json:"variety,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Attributes json.RawMessage `json:"attributes,omitempty"` // ej. {"brand":"Acme","size":"M"}
	IsActive   *bool           `json:"is_active,omitempty"`  // nil = true
}

// ProductUpsertBatchRequest body JSON para POST /api/products/upsert/batch.
type ProductUpsertBatchRequest struct {
	Items []ProductUpsertRequest `json:"items"`
}

// ProductUpsertResponse id asignado a cada (sku, variety) upserteado.
type ProductUpsertResponse struct {
	ID      string `json:"id"`
	SKU     string `json:"sku"`
	Variety string `json:"variety,omitempty"`
}

// StockResponse resumen de stock de un SKU.
type StockResponse struct {
	SKU       string `json:"sku"`
	Variety   string `json:"variety,omitempty"`
	Quantity  int64  `json:"quantity"`
	Available bool   `json:"available"`
}

// ProductCardResponse ficha de producto con stock vivo derivado del ledger.
type ProductCardResponse struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Variety   string          `json:"variety,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Available bool            `json:"available"`
}

// PriceResponse precio vigente de catálogo.
type PriceResponse struct {
	SKU     string          `json:"sku"`
	Variety string          `json:"variety,omitempty"`
	Price   decimal.Decimal `json:"price"`
}

// VarietiesResponse variantes disponibles para un nombre de producto.
type VarietiesResponse struct {
	Name      string   `json:"name"`
	Varieties []string `json:"varieties"`
}

// SearchResponse resultado de búsqueda de catálogo.
type SearchResponse struct {
	Count int                   `json:"count"`
	Items []ProductCardResponse `json:"items"`
}
