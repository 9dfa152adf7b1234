package assistant

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
)

// LLMService puerto hacia el modelo de lenguaje con herramientas de
// inventario. La implementación ejecuta el ciclo de tool-use completo y
// devuelve la respuesta final junto con las herramientas invocadas.
type LLMService interface {
	Chat(ctx context.Context, message string) (reply string, toolsUsed []string, err error)
}

// AssistantUseCase expone el asistente conversacional de inventario.
type AssistantUseCase struct {
	llm LLMService
}

// NewAssistantUseCase construye el caso de uso del asistente.
func NewAssistantUseCase(llm LLMService) *AssistantUseCase {
	return &AssistantUseCase{llm: llm}
}

// Chat procesa un mensaje del usuario. El ciclo completo (modelo + tools)
// tiene un techo de 60 s; las ventas que dispare el asistente pasan por el
// mismo coordinador transaccional que el resto de la API.
func (uc *AssistantUseCase) Chat(ctx context.Context, in dto.ChatRequest) (*dto.ChatResponse, error) {
	if in.Message == "" {
		return nil, domain.ErrInvalidInput
	}
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	reply, tools, err := uc.llm.Chat(ctx, in.Message)
	if err != nil {
		return nil, err
	}
	return &dto.ChatResponse{Reply: reply, ToolsUsed: tools}, nil
}
