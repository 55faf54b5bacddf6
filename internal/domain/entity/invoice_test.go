package entity_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
)

// ── Money ──

func TestNewMoney_NegativoFalla(t *testing.T) {
	_, err := entity.NewMoney(decimal.NewFromFloat(-0.01), "MXN")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrBilling)
}

func TestNewMoney_CeroYPositivo(t *testing.T) {
	for _, amount := range []string{"0", "0.01", "11.60", "1000000"} {
		m, err := entity.NewMoney(decimal.RequireFromString(amount), "")
		require.NoError(t, err, amount)
		assert.Equal(t, "MXN", m.Currency, "moneda por defecto")
	}
}

// ── Ciclo de vida ──

func newTestInvoice() *entity.Invoice {
	return entity.NewInvoice(entity.Invoice{
		Type:     entity.InvoiceTypeIngreso,
		Items:    []entity.InvoiceItem{{ProductKey: "78101800", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)}},
		Shipment: &entity.Shipment{TransportMode: entity.TransportFederalRoad},
	})
}

func TestNewInvoice_EstadoDraft(t *testing.T) {
	inv := newTestInvoice()

	assert.Equal(t, entity.InvoiceStatusDraft, inv.Status)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", inv.ID.String())
	assert.Equal(t, entity.ComplementCartaPorte, inv.Complement)
	assert.Equal(t, "MXN", inv.Currency)
	assert.Equal(t, inv.CreatedAt, inv.UpdatedAt)
}

func TestInvoice_MarkPending(t *testing.T) {
	inv := newTestInvoice()
	inv.MarkPending()
	assert.Equal(t, entity.InvoiceStatusPending, inv.Status)
}

func TestInvoice_MarkIssued_RequiereUUID(t *testing.T) {
	inv := newTestInvoice()
	inv.MarkPending()

	err := inv.MarkIssued("", nil, entity.IssueMetadata{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, entity.InvoiceStatusPending, inv.Status, "sin UUID no cambia el estado")
}

func TestInvoice_MarkIssued_GuardaMetadatos(t *testing.T) {
	inv := newTestInvoice()
	inv.MarkPending()
	before := inv.UpdatedAt
	folio := 42
	resp := json.RawMessage(`{"success":true}`)

	require.NoError(t, inv.MarkIssued("ABC-123", resp, entity.IssueMetadata{
		Serie: "CPT", Folio: &folio, FacturaID: "9981", Provider: "facturify",
	}))

	assert.Equal(t, entity.InvoiceStatusIssued, inv.Status)
	assert.Equal(t, "ABC-123", inv.ProviderUUID)
	assert.JSONEq(t, `{"success":true}`, string(inv.ProviderResponse))
	assert.Equal(t, "CPT", inv.Serie)
	require.NotNil(t, inv.Folio)
	assert.Equal(t, 42, *inv.Folio)
	assert.Equal(t, "9981", inv.FacturaID)
	assert.Equal(t, "facturify", inv.Provider)
	assert.False(t, inv.UpdatedAt.Before(before), "updated_at nunca retrocede")
}

func TestInvoice_MarkFailed(t *testing.T) {
	inv := newTestInvoice()
	inv.MarkPending()
	before := inv.UpdatedAt

	inv.MarkFailed()

	assert.Equal(t, entity.InvoiceStatusFailed, inv.Status)
	assert.False(t, inv.UpdatedAt.Before(before))
}

// ── Conceptos ──

func TestInvoiceItem_IVA(t *testing.T) {
	item := entity.InvoiceItem{Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50)}
	_, ok := item.IVA()
	assert.False(t, ok)

	item.Taxes = map[string]decimal.Decimal{entity.TaxIVA: decimal.Zero}
	_, ok = item.IVA()
	assert.False(t, ok, "IVA en cero equivale a no declarado")

	item.Taxes[entity.TaxIVA] = decimal.NewFromInt(16)
	pct, ok := item.IVA()
	assert.True(t, ok)
	assert.True(t, pct.Equal(decimal.NewFromInt(16)))
	assert.Equal(t, "100", item.Amount().String())
}
