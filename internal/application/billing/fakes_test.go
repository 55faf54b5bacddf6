package billing_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
	"github.com/jhoicas/cartaporte-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Unidad de trabajo en memoria
// ──────────────────────────────────────────────────────────────────────────────

type memStore struct {
	mu        sync.Mutex
	clients   map[string]*entity.Party
	companies map[string]*entity.Party
	invoices  map[uuid.UUID]entity.Invoice
	statuses  []entity.InvoiceStatus // historial de estados persistidos
	runs      int
}

func newMemStore() *memStore {
	return &memStore{
		clients:   map[string]*entity.Party{},
		companies: map[string]*entity.Party{},
		invoices:  map[uuid.UUID]entity.Invoice{},
	}
}

func (s *memStore) Run(ctx context.Context, fn func(repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	return fn(repository.Repositories{
		Clients:   memClients{s},
		Companies: memCompanies{s},
		Invoices:  memInvoices{s},
	})
}

type memClients struct{ s *memStore }

func (r memClients) GetByRFC(_ context.Context, rfc string) (*entity.Party, error) {
	return r.s.clients[rfc], nil
}

func (r memClients) Upsert(_ context.Context, p *entity.Party) (*entity.Party, error) {
	if existing, ok := r.s.clients[p.RFC]; ok {
		p.ID = existing.ID
	} else {
		id := uuid.New()
		p.ID = &id
	}
	cp := *p
	r.s.clients[p.RFC] = &cp
	return &cp, nil
}

func (r memClients) List(_ context.Context, limit, offset int) ([]*entity.Party, error) {
	out := make([]*entity.Party, 0, len(r.s.clients))
	for _, p := range r.s.clients {
		out = append(out, p)
	}
	return out, nil
}

type memCompanies struct{ s *memStore }

func (r memCompanies) GetByRFC(_ context.Context, rfc string) (*entity.Party, error) {
	for _, c := range r.s.companies {
		if c.RFC == rfc {
			return c, nil
		}
	}
	return nil, nil
}

func (r memCompanies) GetByExternalUUID(_ context.Context, ext string) (*entity.Party, error) {
	return r.s.companies[ext], nil
}

func (r memCompanies) Upsert(_ context.Context, p *entity.Party) (*entity.Party, error) {
	id := uuid.New()
	p.ID = &id
	r.s.companies[p.ExternalUUID] = p
	return p, nil
}

type memInvoices struct{ s *memStore }

func (r memInvoices) Create(_ context.Context, inv *entity.Invoice) error {
	r.s.invoices[inv.ID] = *inv
	r.s.statuses = append(r.s.statuses, inv.Status)
	return nil
}

func (r memInvoices) Update(_ context.Context, inv *entity.Invoice) error {
	r.s.invoices[inv.ID] = *inv
	r.s.statuses = append(r.s.statuses, inv.Status)
	return nil
}

func (r memInvoices) GetByID(_ context.Context, id uuid.UUID) (*entity.Invoice, error) {
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// PAC falso
// ──────────────────────────────────────────────────────────────────────────────

type fakeProvider struct {
	response json.RawMessage
	err      error
	calls    int
	payload  *dto.FacturifyCartaPorteRequest
}

func (p *fakeProvider) CreateCartaPorte(_ context.Context, payload *dto.FacturifyCartaPorteRequest) (json.RawMessage, error) {
	p.calls++
	p.payload = payload
	return p.response, p.err
}

func (p *fakeProvider) GetInvoice(_ context.Context, cfdiUUID string) (json.RawMessage, error) {
	return json.RawMessage(`{"data":{"cfdi_uuid":"` + cfdiUUID + `"}}`), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Solicitud de ejemplo
// ──────────────────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validRequest() dto.CartaPorteRequest {
	iva := dec("16")
	distance := dec("120.7")
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	return dto.CartaPorteRequest{
		FacturifyIssuerUUID: "issuer-uuid",
		CFDIType:            "ingreso",
		Recipient: dto.PartyRequest{
			LegalName: "COMERCIALIZADORA DEL BAJIO",
			RFC:       "cba020202cd2",
			TaxRegime: "601",
			Email:     "facturas@cba.mx",
			Address:   dto.AddressRequest{Street: "Av. Juárez", ExteriorNumber: "10", ZipCode: "37000"},
		},
		ExpeditionPlace: "64000",
		Subtotal:        dec("100"),
		Total:           dec("116"),
		Items: []dto.InvoiceItemRequest{{
			ProductKey: "78101802", Description: "Flete", Quantity: dec("2"),
			UnitKey: "E48", UnitPrice: dec("50"), TaxPercentage: &iva,
		}},
		Shipment: dto.ShipmentRequest{
			TransportMode:   "01",
			PermitType:      "TPAF01",
			PermitNumber:    "0X2XTXZ0X5X0X3X2X1X0",
			TotalDistanceKm: &distance,
			TotalWeightKg:   dec("1000"),
			Vehicle: dto.VehicleRequest{
				Configuration: "C2", Plate: "ABC1234",
				InsuranceCompany: "SEGUROS SA", InsurancePolicy: "POL-1",
				ModelYear: "2022", GrossWeight: "18.5", InsurancePremium: "900",
				Trailers: []dto.TrailerRequest{{Subtype: "CTR004", Plate: "REM001"}},
			},
			Locations: []dto.ShipmentLocationRequest{
				{Type: "origin", DateTime: dto.DateTime{Time: at}, Street: "Calle 1", ExteriorNumber: "5", City: "Monterrey", State: "NLE", ZipCode: "64000"},
				{Type: "destination", DateTime: dto.DateTime{Time: at.Add(6 * time.Hour)}, Street: "Calle 2", ExteriorNumber: "S/N", State: "GTO", ZipCode: "37000", Locality: "05"},
			},
			Goods: []dto.ShipmentGoodsRequest{
				{Description: "Cajas", ProductKey: "24112700", Quantity: dec("10"), UnitKey: "XBX", WeightKg: dec("400"), Value: dec("50")},
				{Description: "Tambos", ProductKey: "24112800", Quantity: dec("2"), UnitKey: "XBX", WeightKg: dec("600"), Value: dec("50")},
			},
			Figures: []dto.TransportFigureRequest{{Type: "01", RFC: "OPE800101AB1", Name: "Juan Pérez", License: "LIC123"}},
		},
	}
}
