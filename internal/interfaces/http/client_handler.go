package http

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
)

// ProviderClients listado de clientes registrados en Facturify.
type ProviderClients interface {
	ListClients(ctx context.Context, limit, offset int) (json.RawMessage, error)
}

// RecipientLister receptores guardados localmente al emitir.
type RecipientLister interface {
	ListRecipients(ctx context.Context, page dto.PageRequest) ([]*entity.Party, error)
}

// ClientHandler catálogo de clientes: el de Facturify (passthrough) y el local.
type ClientHandler struct {
	clients    ProviderClients
	recipients RecipientLister
	validator  *dto.Validator
	log        zerolog.Logger
}

// NewClientHandler construye el handler.
func NewClientHandler(clients ProviderClients, recipients RecipientLister, validator *dto.Validator, log zerolog.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, recipients: recipients, validator: validator, log: log}
}

// List godoc
// @Summary      Clientes registrados en Facturify
// @Tags         clients
// @Produce      json
// @Param        limit   query  int  false  "1..100 (50)"
// @Param        offset  query  int  false  ">= 0"
// @Success      200  {object}  object
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/v1/clients [get]
func (h *ClientHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 50), Offset: c.QueryInt("offset", 0)}
	if err := h.validator.Validate(page); err != nil {
		return writeError(c, h.log, err)
	}
	raw, err := h.clients.ListClients(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return writeGatewayError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

// ListLocal receptores registrados en esta API.
// GET /api/v1/clients/local
func (h *ClientHandler) ListLocal(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 50), Offset: c.QueryInt("offset", 0)}
	if err := h.validator.Validate(page); err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.recipients.ListRecipients(c.UserContext(), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.PartyResponse, 0, len(list))
	for _, p := range list {
		out = append(out, dto.NewPartyResponse(p))
	}
	return c.JSON(fiber.Map{"data": out, "limit": page.Limit, "offset": page.Offset})
}
