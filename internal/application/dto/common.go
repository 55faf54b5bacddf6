package dto

import "github.com/jhoicas/cartaporte-api/internal/domain"

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `json:"limit" query:"limit" validate:"min=1,max=100"`
	Offset int `json:"offset" query:"offset" validate:"min=0"`
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

// ErrorResponse cuerpo de error HTTP. Type y Hint solo se envían en errores del proveedor.
type ErrorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Type    string              `json:"type,omitempty"`
	Hint    string              `json:"hint,omitempty"`
	Details []domain.FieldError `json:"details,omitempty"`
}
