package dto

// ChatRequest body para POST /api/assistant/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse respuesta del asistente con las herramientas que invocó.
type ChatResponse struct {
	Reply     string   `json:"reply"`
	ToolsUsed []string `json:"tools_used,omitempty"`
}
