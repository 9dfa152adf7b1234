package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/application/stock"
)

// StockHandler maneja las operaciones transaccionales de stock (protegido).
type StockHandler struct {
	uc *stock.Coordinator
}

// NewStockHandler construye el handler de stock.
func NewStockHandler(uc *stock.Coordinator) *StockHandler {
	return &StockHandler{uc: uc}
}

// Buy godoc
// @Summary      Registrar una compra a proveedor (entrada IN)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RestockRequest  true  "sku, quantity, unit_price, ref_id"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/buy [post]
func (h *StockHandler) Buy(c *fiber.Ctx) error {
	var in dto.RestockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.uc.Restock(c.Context(), in); err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "entrada registrada"})
}

// BuyBatch godoc
// @Summary      Registrar una compra multi-item en una sola transacción
// @Description  Resuelve todos los items antes de escribir: si algún SKU no
//
//	existe no se registra ningún movimiento.
//
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BatchRestockRequest  true  "supplier, ref_id, items"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/buy/batch [post]
func (h *StockHandler) BuyBatch(c *fiber.Ctx) error {
	var in dto.BatchRestockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.uc.BatchRestock(c.Context(), in); err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "lote registrado", "items": len(in.Items)})
}

// Sell godoc
// @Summary      Registrar una venta (salida OUT) con chequeo de stock
// @Description  La cantidad se recalcula bajo lock; sin stock suficiente
//
//	responde 409 con el detalle disponible/solicitado y no escribe nada.
//
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SellRequest  true  "sku, quantity, sale_price, ref_id"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/sell [post]
func (h *StockHandler) Sell(c *fiber.Ctx) error {
	var in dto.SellRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.uc.Sell(c.Context(), in); err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "venta registrada"})
}

// SellOrder godoc
// @Summary      Vender un pedido multi-item de forma atómica
// @Description  O se postean todas las líneas o ninguna. Con faltantes
//
//	responde 409 listando TODOS los items sin stock suficiente, no solo el
//	primero.
//
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SellOrderRequest  true  "order_id, channel, items"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/sell/order [post]
func (h *StockHandler) SellOrder(c *fiber.Ctx) error {
	var in dto.SellOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.uc.SellOrder(c.Context(), in); err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "pedido registrado", "order_id": in.OrderID})
}

// Adjust godoc
// @Summary      Registrar un ajuste de inventario (delta con signo)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RestockRequest  true  "sku, quantity (≠ 0, negativo descuenta), notes"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/adjust [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.RestockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.uc.Adjust(c.Context(), in); err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "ajuste registrado"})
}
