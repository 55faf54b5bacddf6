package entity

import (
	"time"

	"github.com/google/uuid"
)

// Address domicilio fiscal.
type Address struct {
	Street         string
	ExteriorNumber string
	Neighborhood   string
	City           string
	State          string
	Country        string // MEX por defecto
	ZipCode        string
}

// Party emisor o receptor de un CFDI.
// ExternalUUID es el identificador de la parte en Facturify; si existe, el proveedor ya la conoce.
type Party struct {
	ID           *uuid.UUID
	LegalName    string
	RFC          string
	TaxRegime    string
	Email        string
	Address      Address
	ExternalUUID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IssuerPlaceholder emisor mínimo que solo lleva el UUID de Facturify.
// Se usa cuando el emisor no está registrado localmente.
func IssuerPlaceholder(externalUUID string) Party {
	return Party{
		Address:      Address{Country: "MEX", ZipCode: "00000"},
		ExternalUUID: externalUUID,
	}
}
