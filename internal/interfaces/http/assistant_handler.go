package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger-api/internal/application/assistant"
	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
)

// AssistantHandler maneja el asistente conversacional de inventario (protegido).
type AssistantHandler struct {
	uc *assistant.AssistantUseCase
}

// NewAssistantHandler construye el handler del asistente.
func NewAssistantHandler(uc *assistant.AssistantUseCase) *AssistantHandler {
	return &AssistantHandler{uc: uc}
}

// Chat godoc
// @Summary      Conversar con el asistente de inventario
// @Description  El asistente puede consultar stock, precios y fichas, y
//
//	registrar ventas usando el mismo motor transaccional que la API.
//
// @Tags         assistant
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ChatRequest  true  "message"
// @Success      200   {object}  dto.ChatResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/assistant/chat [post]
func (h *AssistantHandler) Chat(c *fiber.Ctx) error {
	var in dto.ChatRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.Chat(c.Context(), in)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(out)
}
