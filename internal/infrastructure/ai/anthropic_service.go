package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/application/assistant"
	"github.com/jhoicas/stock-ledger-api/internal/application/catalog"
	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/application/stock"
)

// Verificar en tiempo de compilación que AnthropicService implementa LLMService.
var _ assistant.LLMService = (*AnthropicService)(nil)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"

	// maxToolRounds acota el ciclo de tool-use para que un modelo confundido
	// no quede en bucle consultando stock.
	maxToolRounds = 6

	anthropicSystemPrompt = `Eres el asistente de inventario de la tienda. Respondes en el idioma del usuario, breve y concreto.
Tienes herramientas para consultar el catálogo (stock, precio, ficha, variantes, búsqueda) y para registrar una venta.
Reglas:
- Antes de vender, verifica el stock con get_stock y confirma SKU y variante.
- Si el producto tiene variantes y el usuario no especificó cuál, usa list_varieties y pregunta.
- Nunca inventes cantidades ni precios: usa siempre las herramientas.
- Si una venta falla por stock insuficiente, informa cuánto hay disponible.`
)

// AnthropicService adaptador que implementa LLMService usando la API REST de
// Anthropic (Claude) con tool-use. Usa net/http de la librería estándar; no
// requiere el SDK oficial. Las herramientas ejecutan los mismos casos de uso
// que la API HTTP, así una venta disparada por el chat es tan atómica como
// una venta directa.
type AnthropicService struct {
	apiKey      string
	model       string
	maxTokens   int
	httpClient  *http.Client
	resolver    *catalog.Resolver
	coordinator *stock.Coordinator
}

// NewAnthropicService construye el adaptador.
// model suele ser "claude-3-5-haiku-latest".
// Si apiKey está vacío las llamadas devuelven error descriptivo en lugar de panic.
func NewAnthropicService(apiKey, model string, maxTokens int, resolver *catalog.Resolver, coordinator *stock.Coordinator) *AnthropicService {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicService{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			// Timeout de red por llamada; el use case impone además un
			// context.WithTimeout sobre el ciclo completo.
			Timeout: 25 * time.Second,
		},
		resolver:    resolver,
		coordinator: coordinator,
	}
}

// ── Estructuras internas del protocolo Anthropic Messages API ─────────────────

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// anthropicMessage el content es string (mensaje simple) o []anthropicContent
// (bloques de tool_use / tool_result).
type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`

	// type == "text"
	Text string `json:"text,omitempty"`

	// type == "tool_use"
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// type == "tool_result"
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ── Definición de herramientas ────────────────────────────────────────────────

var assistantTools = []anthropicTool{
	{
		Name:        "get_stock",
		Description: "Consulta la cantidad en stock de un producto por SKU y variante opcional.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"sku":{"type":"string"},"variety":{"type":"string"}},"required":["sku"]}`),
	},
	{
		Name:        "get_price",
		Description: "Consulta el precio vigente de un producto por SKU y variante opcional.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"sku":{"type":"string"},"variety":{"type":"string"}},"required":["sku"]}`),
	},
	{
		Name:        "get_product_card",
		Description: "Devuelve la ficha completa del producto: nombre, variante, precio y stock actual.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"sku":{"type":"string"},"variety":{"type":"string"}},"required":["sku"]}`),
	},
	{
		Name:        "list_varieties",
		Description: "Lista las variantes registradas para un nombre de producto.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`),
	},
	{
		Name:        "search_products",
		Description: "Busca productos por coincidencia parcial en SKU o nombre, con filtro opcional de variante.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"},"variety":{"type":"string"}},"required":["query"]}`),
	},
	{
		Name:        "sell",
		Description: "Registra una venta: descuenta la cantidad del stock si alcanza. Falla con el detalle disponible/solicitado si no hay suficiente.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"sku":{"type":"string"},"variety":{"type":"string"},"quantity":{"type":"integer","minimum":1}},"required":["sku","quantity"]}`),
	},
}

// ── Implementación del puerto ─────────────────────────────────────────────────

// Chat ejecuta el ciclo de tool-use: envía el mensaje, ejecuta las
// herramientas que el modelo pida y reenvía los resultados hasta que el
// modelo produzca una respuesta final.
func (s *AnthropicService) Chat(ctx context.Context, message string) (string, []string, error) {
	if s.apiKey == "" {
		return "", nil, fmt.Errorf("AI: ANTHROPIC_API_KEY no configurado")
	}

	messages := []anthropicMessage{{Role: "user", Content: message}}
	var toolsUsed []string

	for round := 0; round < maxToolRounds; round++ {
		resp, err := s.call(ctx, messages)
		if err != nil {
			return "", toolsUsed, err
		}

		if resp.StopReason != "tool_use" {
			return textOf(resp.Content), toolsUsed, nil
		}

		// El turno del asistente (con sus bloques tool_use) se reenvía tal
		// cual, seguido de un turno user con los tool_result.
		messages = append(messages, anthropicMessage{Role: "assistant", Content: resp.Content})

		var results []anthropicContent
		for _, block := range resp.Content {
			if block.Type != "tool_use" {
				continue
			}
			toolsUsed = append(toolsUsed, block.Name)
			out, toolErr := s.runTool(ctx, block.Name, block.Input)
			result := anthropicContent{
				Type:      "tool_result",
				ToolUseID: block.ID,
				Content:   out,
			}
			if toolErr != nil {
				result.Content = toolErr.Error()
				result.IsError = true
			}
			results = append(results, result)
		}
		messages = append(messages, anthropicMessage{Role: "user", Content: results})
	}

	return "", toolsUsed, fmt.Errorf("AI: el modelo no convergió tras %d rondas de herramientas", maxToolRounds)
}

// call hace una llamada al Messages API y decodifica la respuesta.
func (s *AnthropicService) call(ctx context.Context, messages []anthropicMessage) (*anthropicResponse, error) {
	payload := anthropicRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    anthropicSystemPrompt,
		Tools:     assistantTools,
		Messages:  messages,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("AI: serializar request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicMessagesURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("AI: crear HTTP request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("AI: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("AI: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return nil, fmt.Errorf("AI: leer respuesta: %w", err)
	}

	var anthResp anthropicResponse
	if err := json.Unmarshal(rawBody, &anthResp); err != nil {
		return nil, fmt.Errorf("AI: deserializar respuesta Anthropic: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if anthResp.Error != nil {
			return nil, fmt.Errorf("AI: Anthropic error (%s): %s", anthResp.Error.Type, anthResp.Error.Message)
		}
		return nil, fmt.Errorf("AI: Anthropic HTTP %d: %s", resp.StatusCode, string(rawBody))
	}
	if len(anthResp.Content) == 0 {
		return nil, fmt.Errorf("AI: Claude devolvió respuesta vacía")
	}
	return &anthResp, nil
}

// runTool despacha una herramienta y devuelve su resultado como JSON plano.
// Los errores de negocio (sin stock, SKU desconocido) se devuelven como texto
// para que el modelo los comunique, no como fallo del ciclo.
func (s *AnthropicService) runTool(ctx context.Context, name string, input json.RawMessage) (string, error) {
	var args struct {
		SKU      string `json:"sku"`
		Variety  string `json:"variety"`
		Name     string `json:"name"`
		Query    string `json:"query"`
		Quantity int64  `json:"quantity"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("argumentos inválidos: %v", err)
	}

	switch name {
	case "get_stock":
		out, err := s.resolver.GetStock(args.SKU, args.Variety)
		return marshalResult(out, err)
	case "get_price":
		out, err := s.resolver.GetPrice(args.SKU, args.Variety)
		return marshalResult(out, err)
	case "get_product_card":
		out, err := s.resolver.ProductCard(args.SKU, args.Variety)
		return marshalResult(out, err)
	case "list_varieties":
		out, err := s.resolver.ListVarieties(args.Name)
		return marshalResult(out, err)
	case "search_products":
		out, err := s.resolver.Search(args.Query, args.Variety)
		return marshalResult(out, err)
	case "sell":
		err := s.coordinator.Sell(ctx, dto.SellRequest{
			SKU:      args.SKU,
			Variety:  args.Variety,
			Quantity: args.Quantity,
			RefID:    "assistant",
		})
		if err != nil {
			return "", err
		}
		return `{"status":"ok","message":"venta registrada"}`, nil
	default:
		return "", fmt.Errorf("herramienta desconocida: %s", name)
	}
}

func marshalResult(v any, err error) (string, error) {
	if err != nil {
		return "", err
	}
	b, mErr := json.Marshal(v)
	if mErr != nil {
		return "", mErr
	}
	return string(b), nil
}

// textOf concatena los bloques de texto de la respuesta final.
func textOf(blocks []anthropicContent) string {
	var out string
	for _, b := range blocks {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}
