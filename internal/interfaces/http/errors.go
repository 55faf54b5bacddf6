package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain"
)

const externalServiceHint = "Verifica los datos fiscales del receptor y emisor"

// writeError traduce errores de dominio a respuestas HTTP.
//
//	validación → 422, no encontrado → 404, duplicado → 409,
//	proveedor → 400 (type external_service_error), auth del proveedor → 401, resto → 500
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: domain.Message(err),
			Details: domain.Fields(err),
		})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: domain.Message(err)})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "el recurso ya existe"})
	case errors.Is(err, domain.ErrAuth):
		log.Error().Err(err).Msg("autenticación con Facturify")
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "PROVIDER_AUTH", Message: domain.Message(err)})
	case errors.Is(err, domain.ErrExternalService):
		log.Error().Err(err).Msg("error de Facturify/SAT")
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "EXTERNAL_SERVICE",
			Message: domain.Message(err),
			Type:    "external_service_error",
			Hint:    externalServiceHint,
		})
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno del servidor"})
	}
}

// writeGatewayError los passthrough al proveedor responden 502 cuando Facturify falla.
func writeGatewayError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	if errors.Is(err, domain.ErrExternalService) || errors.Is(err, domain.ErrAuth) {
		log.Error().Err(err).Str("path", c.Path()).Msg("passthrough a Facturify")
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Code:    "BAD_GATEWAY",
			Message: "Error al comunicarse con Facturify: " + domain.Message(err),
		})
	}
	return writeError(c, log, err)
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
