package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
)

// errorJSON mapea errores de dominio a respuestas HTTP. Todos los handlers
// pasan por aquí para que el mismo error produzca siempre el mismo status y
// código, incluido el detalle de faltantes en INSUFFICIENT_STOCK.
func errorJSON(c *fiber.Ctx, err error) error {
	var notFound *domain.ProductNotFoundError
	if errors.As(err, &notFound) {
		msg := "producto no encontrado: " + notFound.SKU
		if notFound.Variety != "" {
			msg += " (" + notFound.Variety + ")"
		}
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "PRODUCT_NOT_FOUND", Message: msg})
	}

	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		shortages := make([]dto.ShortageDTO, 0, len(insufficient.Shortages))
		for _, s := range insufficient.Shortages {
			shortages = append(shortages, dto.ShortageDTO{
				SKU:       s.SKU,
				Variety:   s.Variety,
				Available: s.Available,
				Requested: s.Requested,
			})
		}
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:      "INSUFFICIENT_STOCK",
			Message:   "stock insuficiente",
			Shortages: shortages,
		})
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrAmbiguousVariant):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "AMBIGUOUS_VARIANT", Message: "el SKU tiene varias variantes; especificar variety"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrEmailAlreadyExists), errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el recurso ya existe"})
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado"})
	case errors.Is(err, domain.ErrTransient):
		// Nada quedó commiteado: el cliente puede reintentar la operación completa.
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "TRANSIENT", Message: "fallo transitorio del backend, reintentar"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
