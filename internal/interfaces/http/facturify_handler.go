package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain"
)

// TokenManager lo implementa *facturify.AuthClient.
type TokenManager interface {
	ObtainToken(ctx context.Context) (*dto.JWTResponse, error)
	RefreshToken(ctx context.Context) (*dto.JWTResponse, error)
	GetValidToken(ctx context.Context) (string, error)
	TokenStatus(ctx context.Context) (dto.TokenState, error)
}

// EmpresaDirectory lo implementa *facturify.EmpresaClient.
type EmpresaDirectory interface {
	ListEmpresas(ctx context.Context) (*dto.EmpresaListResponse, error)
	GetEmpresaByRFC(ctx context.Context, rfc string) (*dto.FacturifyEmpresa, error)
}

// CompanySyncer lo implementa *billing.PartyUseCase.
type CompanySyncer interface {
	SyncCompanies(ctx context.Context) (int, error)
}

// FacturifyHandler administración de la sesión con Facturify y consulta de empresas.
type FacturifyHandler struct {
	tokens   TokenManager
	empresas EmpresaDirectory
	sync     CompanySyncer
	log      zerolog.Logger
}

// NewFacturifyHandler construye el handler.
func NewFacturifyHandler(tokens TokenManager, empresas EmpresaDirectory, sync CompanySyncer, log zerolog.Logger) *FacturifyHandler {
	return &FacturifyHandler{tokens: tokens, empresas: empresas, sync: sync, log: log}
}

// ObtainToken godoc
// @Summary      Obtener token de Facturify
// @Tags         facturify-auth
// @Produce      json
// @Success      200  {object}  dto.AuthResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/v1/facturify/auth/token [post]
func (h *FacturifyHandler) ObtainToken(c *fiber.Ctx) error {
	tok, err := h.tokens.ObtainToken(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.AuthResponse{
		Message: "Token obtenido",
		JWT:     *tok,
	})
}

// RefreshToken godoc
// @Summary      Renovar token de Facturify
// @Tags         facturify-auth
// @Produce      json
// @Success      200  {object}  dto.AuthResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/v1/facturify/auth/token/refresh [post]
func (h *FacturifyHandler) RefreshToken(c *fiber.Ctx) error {
	tok, err := h.tokens.RefreshToken(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.AuthResponse{
		Message: "Token renovado",
		JWT:     *tok,
	})
}

// TokenStatus estado del token en caché, sin llamar a Facturify.
// GET /api/v1/facturify/auth/token/status
func (h *FacturifyHandler) TokenStatus(c *fiber.Ctx) error {
	st, err := h.tokens.TokenStatus(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.TokenStatusResponse{HasToken: st.HasToken, NeedsRefresh: st.NeedsRefresh}
	if st.HasToken {
		ttl := max(st.TTLSeconds, 0)
		out.TTL = &ttl
		out.ExpiresAt = st.ExpiresAt
		if st.OriginalExpiresIn > 0 {
			orig := st.OriginalExpiresIn
			out.ExpiresIn = &orig
		}
	}
	return c.JSON(out)
}

// ValidToken token vigente, renovándolo si está por expirar.
// GET /api/v1/facturify/auth/token
func (h *FacturifyHandler) ValidToken(c *fiber.Ctx) error {
	ctx := c.UserContext()
	token, err := h.tokens.GetValidToken(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.ValidTokenResponse{Token: token}
	if st, err := h.tokens.TokenStatus(ctx); err == nil {
		out.TTL = max(st.TTLSeconds, 0)
	}
	return c.JSON(out)
}

// ListEmpresas godoc
// @Summary      Empresas emisoras de la cuenta Facturify
// @Tags         facturify-empresa
// @Produce      json
// @Success      200  {object}  dto.EmpresaListResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/v1/facturify/empresa [get]
func (h *FacturifyHandler) ListEmpresas(c *fiber.Ctx) error {
	list, err := h.empresas.ListEmpresas(c.UserContext())
	if err != nil {
		return writeGatewayError(c, h.log, err)
	}
	return c.JSON(list)
}

// GetEmpresaByRFC GET /api/v1/facturify/empresa/rfc/:rfc
func (h *FacturifyHandler) GetEmpresaByRFC(c *fiber.Ctx) error {
	rfc := c.Params("rfc")
	e, err := h.empresas.GetEmpresaByRFC(c.UserContext(), rfc)
	if err != nil {
		return writeGatewayError(c, h.log, err)
	}
	if e == nil {
		return writeError(c, h.log, domain.NewNotFoundError("Empresa con RFC '"+rfc+"' no encontrada"))
	}
	return c.JSON(dto.EmpresaResponse{Data: *e})
}

// SyncEmpresas guarda localmente las empresas de Facturify como emisores.
// POST /api/v1/facturify/empresa/sync
func (h *FacturifyHandler) SyncEmpresas(c *fiber.Ctx) error {
	n, err := h.sync.SyncCompanies(c.UserContext())
	if err != nil {
		return writeGatewayError(c, h.log, err)
	}
	return c.JSON(dto.CompanySyncResponse{Synced: n})
}
