package http

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
	"github.com/jhoicas/cartaporte-api/pkg/logger"
)

// CartaPorteService lo implementa *billing.CreateCartaPorteUseCase.
type CartaPorteService interface {
	Execute(ctx context.Context, in dto.CartaPorteRequest) (*entity.Invoice, error)
	CreateFromProviderFormat(ctx context.Context, in dto.FacturifyCartaPorteRequest) (*entity.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	GetProviderInvoice(ctx context.Context, id uuid.UUID) (json.RawMessage, error)
}

// CFDIHandler emisión y consulta de CFDI con complemento Carta Porte.
type CFDIHandler struct {
	svc       CartaPorteService
	validator *dto.Validator
	log       zerolog.Logger
}

// NewCFDIHandler construye el handler.
func NewCFDIHandler(svc CartaPorteService, validator *dto.Validator, log zerolog.Logger) *CFDIHandler {
	return &CFDIHandler{svc: svc, validator: validator, log: log}
}

// CreateCartaPorte godoc
// @Summary      Timbrar CFDI con complemento Carta Porte
// @Tags         cfdi
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CartaPorteRequest  true  "Factura, receptor y envío"
// @Success      201   {object}  dto.CartaPorteResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/v1/cfdi/carta-porte [post]
func (h *CFDIHandler) CreateCartaPorte(c *fiber.Ctx) error {
	var in dto.CartaPorteRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	in.ApplyDefaults()
	if err := h.validator.Validate(in); err != nil {
		return writeError(c, h.log, err)
	}
	inv, err := h.svc.Execute(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	h.log.Info().
		Str(logger.FieldInvoiceID, inv.ID.String()).
		Str("status", string(inv.Status)).
		Str("facturify_uuid", inv.ProviderUUID).
		Msg("carta porte procesada")
	return c.Status(fiber.StatusCreated).JSON(dto.NewCartaPorteResponse(inv))
}

// CreateFromProviderFormat godoc
// @Summary      Timbrar Carta Porte enviada en el formato nativo de Facturify
// @Tags         cfdi
// @Accept       json
// @Produce      json
// @Param        body  body  dto.FacturifyCartaPorteRequest  true  "Payload Facturify"
// @Success      201   {object}  dto.CartaPorteResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/v1/cfdi/carta-porte/provider-format [post]
func (h *CFDIHandler) CreateFromProviderFormat(c *fiber.Ctx) error {
	var in dto.FacturifyCartaPorteRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	inv, err := h.svc.CreateFromProviderFormat(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewCartaPorteResponse(inv))
}

// GetByID godoc
// @Summary      Estado de una factura
// @Tags         cfdi
// @Produce      json
// @Param        invoice_id  path  string  true  "ID de la factura"
// @Success      200  {object}  dto.CartaPorteResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/cfdi/{invoice_id} [get]
func (h *CFDIHandler) GetByID(c *fiber.Ctx) error {
	id, err := invoiceID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	inv, err := h.svc.GetInvoice(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewCartaPorteResponse(inv))
}

// GetProviderInvoice devuelve tal cual el CFDI que Facturify tiene para la factura.
// GET /api/v1/cfdi/:invoice_id/provider
func (h *CFDIHandler) GetProviderInvoice(c *fiber.Ctx) error {
	id, err := invoiceID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	raw, err := h.svc.GetProviderInvoice(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

func invoiceID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("invoice_id"))
	if err != nil {
		return uuid.Nil, domain.NewValidationError("invoice_id inválido",
			domain.FieldError{Field: "invoice_id", Message: "debe ser un UUID"})
	}
	return id, nil
}
