package dto

import (
	"time"

	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
)

// JWTResponse token del proveedor; mismo cuerpo que devuelven /auth y /token/refresh.
type JWTResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// TokenState estado del token en caché tal como lo guarda el cliente de autenticación.
type TokenState struct {
	HasToken          bool       `json:"has_token"`
	TTLSeconds        int        `json:"ttl_seconds"`
	OriginalExpiresIn int        `json:"original_expires_in,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	NeedsRefresh      bool       `json:"needs_refresh"`
}

// AuthResponse POST /facturify/auth/token y /token/refresh.
type AuthResponse struct {
	Message string      `json:"message"`
	JWT     JWTResponse `json:"jwt"`
}

// TokenStatusResponse estado del token en caché. TTL y ExpiresIn son nil sin token.
type TokenStatusResponse struct {
	HasToken     bool       `json:"has_token"`
	TTL          *int       `json:"ttl"`
	ExpiresIn    *int       `json:"expires_in"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	NeedsRefresh bool       `json:"needs_refresh"`
}

// ValidTokenResponse GET /facturify/auth/token.
type ValidTokenResponse struct {
	Token string `json:"token"`
	TTL   int    `json:"ttl"`
}

// CompanySyncResponse resultado de sincronizar empresas de Facturify.
type CompanySyncResponse struct {
	Synced int `json:"synced"`
}

// PartyResponse receptor o emisor guardado localmente.
type PartyResponse struct {
	ID            string `json:"id"`
	LegalName     string `json:"legal_name"`
	RFC           string `json:"rfc"`
	TaxRegime     string `json:"tax_regime"`
	Email         string `json:"email,omitempty"`
	ZipCode       string `json:"zip_code"`
	FacturifyUUID string `json:"facturify_uuid,omitempty"`
}

// NewPartyResponse vista pública de una parte.
func NewPartyResponse(p *entity.Party) PartyResponse {
	out := PartyResponse{
		LegalName:     p.LegalName,
		RFC:           p.RFC,
		TaxRegime:     p.TaxRegime,
		Email:         p.Email,
		ZipCode:       p.Address.ZipCode,
		FacturifyUUID: p.ExternalUUID,
	}
	if p.ID != nil {
		out.ID = p.ID.String()
	}
	return out
}
