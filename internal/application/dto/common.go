package dto

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPage aplica valores por defecto si Limit/Offset son cero.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Shortages solo se llena en INSUFFICIENT_STOCK (detalle por línea).
	Shortages []ShortageDTO `json:"shortages,omitempty"`
}

// ShortageDTO detalle de una línea sin stock suficiente.
type ShortageDTO struct {
	SKU       string `json:"sku"`
	Variety   string `json:"variety,omitempty"`
	Available int64  `json:"available"`
	Requested int64  `json:"requested"`
}
