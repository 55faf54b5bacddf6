package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/cartaporte-api/internal/domain"
)

func TestError_ClasesSonErrBilling(t *testing.T) {
	errs := []error{
		domain.NewValidationError("x"),
		domain.NewNotFoundError("x"),
		domain.NewExternalServiceError("x", nil),
		domain.NewAuthError("x", errors.New("red")),
	}
	for _, err := range errs {
		assert.ErrorIs(t, err, domain.ErrBilling)
	}
}

func TestError_ClaseYCausa(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("crear factura: %w", domain.NewExternalServiceError("Facturify no responde", cause))

	assert.ErrorIs(t, err, domain.ErrExternalService)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Facturify no responde", domain.Message(err))
}

func TestError_CamposEnMensaje(t *testing.T) {
	err := domain.NewValidationError("solicitud inválida",
		domain.FieldError{Field: "recipient.rfc", Message: "formato inválido"},
		domain.FieldError{Field: "expedition_place", Message: "requerido"},
	)
	assert.Equal(t, "solicitud inválida (recipient.rfc: formato inválido; expedition_place: requerido)", err.Error())
	assert.Len(t, domain.Fields(err), 2)
}
