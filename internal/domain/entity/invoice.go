package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/shopspring/decimal"
)

// InvoiceStatus ciclo de vida del timbrado: draft → pending → issued | failed.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusIssued  InvoiceStatus = "issued"
	InvoiceStatusFailed  InvoiceStatus = "failed"
)

// InvoiceType tipo de comprobante.
type InvoiceType string

const (
	InvoiceTypeIngreso  InvoiceType = "ingreso"
	InvoiceTypeTraslado InvoiceType = "traslado"
)

// ComplementType complemento fiscal adjunto.
type ComplementType string

const ComplementCartaPorte ComplementType = "carta_porte"

// TaxIVA clave del mapa de impuestos de un concepto.
const TaxIVA = "iva"

// InvoiceItem concepto de la factura. Taxes guarda porcentajes (16 = 16 %).
type InvoiceItem struct {
	ProductKey  string
	Description string
	Quantity    decimal.Decimal
	UnitKey     string
	UnitPrice   decimal.Decimal
	Taxes       map[string]decimal.Decimal
}

// IVA devuelve el porcentaje de IVA si está declarado y es distinto de cero.
func (i InvoiceItem) IVA() (decimal.Decimal, bool) {
	if i.Taxes == nil {
		return decimal.Zero, false
	}
	pct, ok := i.Taxes[TaxIVA]
	if !ok || pct.IsZero() {
		return decimal.Zero, false
	}
	return pct, true
}

// Amount cantidad × precio unitario redondeado a 2 decimales.
func (i InvoiceItem) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice).Round(2)
}

// IssueMetadata datos de remisión devueltos por el PAC al timbrar.
type IssueMetadata struct {
	Serie     string
	Folio     *int
	FacturaID string
	Provider  string
}

// Invoice agregado raíz: factura con complemento Carta Porte.
type Invoice struct {
	ID               uuid.UUID
	IssuerID         *uuid.UUID
	Recipient        Party
	Type             InvoiceType
	Complement       ComplementType
	Currency         string
	Subtotal         Money
	Total            Money
	CFDIUse          string
	PaymentForm      string
	PaymentMethod    string
	ExpeditionPlace  string
	Items            []InvoiceItem
	Shipment         *Shipment
	Status           InvoiceStatus
	ProviderUUID     string
	ProviderResponse json.RawMessage
	Serie            string
	Folio            *int
	FacturaID        string
	Provider         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// nowFunc reloj del agregado (UTC).
var nowFunc = func() time.Time { return time.Now().UTC() }

// NewInvoice asigna ID, estado draft y fechas a una factura armada por el caller.
func NewInvoice(inv Invoice) *Invoice {
	now := nowFunc()
	inv.ID = uuid.New()
	inv.Status = InvoiceStatusDraft
	if inv.Complement == "" {
		inv.Complement = ComplementCartaPorte
	}
	if inv.Currency == "" {
		inv.Currency = DefaultCurrency
	}
	inv.CreatedAt = now
	inv.UpdatedAt = now
	return &inv
}

// MarkPending la factura queda lista para enviarse al PAC.
func (inv *Invoice) MarkPending() {
	inv.Status = InvoiceStatusPending
}

// MarkIssued registra el timbrado. Requiere el UUID fiscal devuelto por el PAC.
func (inv *Invoice) MarkIssued(cfdiUUID string, response json.RawMessage, meta IssueMetadata) error {
	if cfdiUUID == "" {
		return domain.NewValidationError("el UUID del CFDI timbrado es obligatorio")
	}
	inv.Status = InvoiceStatusIssued
	inv.ProviderUUID = cfdiUUID
	inv.ProviderResponse = response
	inv.Serie = meta.Serie
	inv.Folio = meta.Folio
	inv.FacturaID = meta.FacturaID
	inv.Provider = meta.Provider
	inv.touch()
	return nil
}

// MarkFailed el PAC rechazó la factura o no devolvió UUID.
func (inv *Invoice) MarkFailed() {
	inv.Status = InvoiceStatusFailed
	inv.touch()
}

// touch UpdatedAt nunca retrocede.
func (inv *Invoice) touch() {
	now := nowFunc()
	if now.Before(inv.UpdatedAt) {
		now = inv.UpdatedAt
	}
	inv.UpdatedAt = now
}
