package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrAmbiguousVariant   = errors.New("SKU con múltiples variantes; especifique la variante")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrTransient          = errors.New("fallo transitorio; reintentar la operación completa")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
)

// ProductNotFoundError identifica qué (SKU, variante) no resolvió.
// errors.Is(err, ErrNotFound) == true.
type ProductNotFoundError struct {
	SKU     string
	Variety string
}

func (e *ProductNotFoundError) Error() string {
	if e.Variety == "" {
		return fmt.Sprintf("producto no encontrado: %s", e.SKU)
	}
	return fmt.Sprintf("producto no encontrado: %s (%s)", e.SKU, e.Variety)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrNotFound }

// Shortage describe una línea de pedido sin stock suficiente.
type Shortage struct {
	SKU       string `json:"sku"`
	Variety   string `json:"variety,omitempty"`
	Available int64  `json:"available"`
	Requested int64  `json:"requested"`
}

// InsufficientStockError transporta el detalle completo de faltantes.
// Para una venta simple Shortages tiene una sola entrada; para un pedido,
// todas las líneas cortas (no solo la primera).
// errors.Is(err, ErrInsufficientStock) == true.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	if len(e.Shortages) == 1 {
		s := e.Shortages[0]
		return fmt.Sprintf("stock insuficiente para %s: disponible=%d, solicitado=%d", s.SKU, s.Available, s.Requested)
	}
	return fmt.Sprintf("stock insuficiente en %d líneas del pedido", len(e.Shortages))
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
