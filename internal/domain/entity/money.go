package entity

import (
	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultCurrency moneda por omisión de los CFDI.
const DefaultCurrency = "MXN"

// Money importe no negativo con moneda.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney construye un importe; falla con ErrValidation si es negativo.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, domain.NewValidationError("el monto no puede ser negativo")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}, nil
}
