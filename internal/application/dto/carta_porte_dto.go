package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
	"github.com/jhoicas/cartaporte-api/pkg/cfdi"
)

// Tipos de ubicación aceptados en la solicitud interna.
const (
	LocationTypeOrigin      = "origin"
	LocationTypeDestination = "destination"
)

// AddressRequest domicilio fiscal del receptor.
type AddressRequest struct {
	Street         string `json:"street" validate:"required,max=120"`
	ExteriorNumber string `json:"exterior_number" validate:"required,max=12"`
	Neighborhood   string `json:"neighborhood"`
	City           string `json:"city"`
	State          string `json:"state"`
	Country        string `json:"country"`
	ZipCode        string `json:"zip_code" validate:"required,cp"`
}

// PartyRequest receptor del CFDI.
type PartyRequest struct {
	LegalName string         `json:"legal_name" validate:"required"`
	RFC       string         `json:"rfc" validate:"required,rfc"`
	TaxRegime string         `json:"tax_regime" validate:"required"`
	Email     string         `json:"email,omitempty" validate:"omitempty,email"`
	Address   AddressRequest `json:"address"`
}

// InvoiceItemRequest concepto. TaxPercentage es el IVA en porcentaje (16 = 16 %).
type InvoiceItemRequest struct {
	ProductKey    string           `json:"product_key" validate:"required"`
	Description   string           `json:"description" validate:"required"`
	Quantity      decimal.Decimal  `json:"quantity" validate:"gt=0"`
	UnitKey       string           `json:"unit_key" validate:"required"`
	UnitPrice     decimal.Decimal  `json:"unit_price" validate:"gt=0"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage,omitempty" validate:"omitempty,gte=0"`
}

// TrailerRequest remolque.
type TrailerRequest struct {
	Subtype string `json:"subtype"`
	Plate   string `json:"plate"`
}

// VehicleRequest autotransporte con seguro y remolques.
type VehicleRequest struct {
	Configuration    string           `json:"configuration" validate:"required"`
	Plate            string           `json:"plate" validate:"required,plate"`
	FederalPermit    string           `json:"federal_permit,omitempty"`
	InsuranceCompany string           `json:"insurance_company,omitempty"`
	InsurancePolicy  string           `json:"insurance_policy,omitempty"`
	ModelYear        string           `json:"model_year,omitempty"`
	GrossWeight      string           `json:"gross_weight,omitempty"`
	InsurancePremium string           `json:"insurance_premium,omitempty"`
	Trailers         []TrailerRequest `json:"trailers,omitempty"`
}

// ShipmentLocationRequest origen o destino. Type acepta origin/destination u Origen/Destino.
type ShipmentLocationRequest struct {
	Type           string   `json:"type" validate:"required,oneof=origin destination Origen Destino"`
	DateTime       DateTime `json:"datetime" validate:"required"`
	Street         string   `json:"street" validate:"required"`
	ExteriorNumber string   `json:"exterior_number"`
	Neighborhood   string   `json:"neighborhood"`
	City           string   `json:"city"`
	State          string   `json:"state" validate:"required"`
	Country        string   `json:"country"`
	ZipCode        string   `json:"zip_code" validate:"required,cp"`
	Latitude       *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Reference      string   `json:"reference,omitempty" validate:"max=200"`
	Locality       string   `json:"locality,omitempty"`
}

// IsOrigin normaliza ambos vocabularios del tipo.
func (l ShipmentLocationRequest) IsOrigin() bool {
	return l.Type == LocationTypeOrigin || l.Type == cfdi.LocationOrigin
}

// ShipmentGoodsRequest mercancía.
type ShipmentGoodsRequest struct {
	Description       string          `json:"description" validate:"required"`
	ProductKey        string          `json:"product_key" validate:"required"`
	Quantity          decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitKey           string          `json:"unit_key" validate:"required"`
	WeightKg          decimal.Decimal `json:"weight_kg" validate:"gt=0"`
	Value             decimal.Decimal `json:"value" validate:"gte=0"`
	DangerousMaterial bool            `json:"dangerous_material"`
	DangerousKey      string          `json:"dangerous_key,omitempty"`
}

// TransportFigureRequest figura de transporte (01 operador, 02 propietario, ...).
type TransportFigureRequest struct {
	Type            string `json:"type" validate:"required"`
	RFC             string `json:"rfc" validate:"required,rfc"`
	Name            string `json:"name" validate:"required"`
	License         string `json:"license,omitempty"`
	RoleDescription string `json:"role_description,omitempty" validate:"max=120"`
}

// ShipmentRequest complemento Carta Porte.
type ShipmentRequest struct {
	TransportMode   string                    `json:"transport_mode" validate:"required,oneof=01 02 03 04 05"`
	PermitType      string                    `json:"permit_type" validate:"required"`
	PermitNumber    string                    `json:"permit_number" validate:"required"`
	TotalDistanceKm *decimal.Decimal          `json:"total_distance_km,omitempty" validate:"omitempty,gte=0"`
	TotalWeightKg   decimal.Decimal           `json:"total_weight_kg" validate:"gt=0"`
	Vehicle         VehicleRequest            `json:"vehicle"`
	Locations       []ShipmentLocationRequest `json:"locations" validate:"required,min=2,dive"`
	Goods           []ShipmentGoodsRequest    `json:"goods" validate:"required,min=1,dive"`
	Figures         []TransportFigureRequest  `json:"figures,omitempty" validate:"dive"`
}

// CartaPorteRequest solicitud interna de timbrado (POST /api/v1/cfdi/carta-porte).
type CartaPorteRequest struct {
	FacturifyIssuerUUID string               `json:"facturify_issuer_uuid" validate:"required"`
	CFDIType            string               `json:"cfdi_type" validate:"required,oneof=ingreso traslado"`
	Recipient           PartyRequest         `json:"recipient"`
	CFDIUse             string               `json:"cfdi_use"`
	PaymentForm         string               `json:"payment_form"`
	PaymentMethod       string               `json:"payment_method"`
	ExpeditionPlace     string               `json:"expedition_place" validate:"required,cp"`
	Currency            string               `json:"currency"`
	Subtotal            decimal.Decimal      `json:"subtotal" validate:"gt=0"`
	Total               decimal.Decimal      `json:"total" validate:"gt=0"`
	Items               []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
	Shipment            ShipmentRequest      `json:"shipment"`
}

// ApplyDefaults completa los valores por omisión de la solicitud y de sus hijos.
func (r *CartaPorteRequest) ApplyDefaults() {
	if r.CFDIType == "" {
		r.CFDIType = cfdi.InvoiceTypeIngreso
	}
	if r.CFDIUse == "" {
		r.CFDIUse = cfdi.CFDIUseGastosGenerales
	}
	if r.PaymentForm == "" {
		r.PaymentForm = cfdi.PaymentFormTransfer
	}
	if r.PaymentMethod == "" {
		r.PaymentMethod = cfdi.PaymentMethodPUE
	}
	if r.Currency == "" {
		r.Currency = cfdi.CurrencyMXN
	}
	if r.Recipient.Address.Country == "" {
		r.Recipient.Address.Country = cfdi.CountryMexico
	}
	for i := range r.Shipment.Locations {
		if r.Shipment.Locations[i].Country == "" {
			r.Shipment.Locations[i].Country = cfdi.CountryMexico
		}
	}
}

// CartaPorteResponse respuesta de creación y consulta.
type CartaPorteResponse struct {
	InvoiceID         string          `json:"invoice_id"`
	Status            string          `json:"status"`
	FacturifyUUID     *string         `json:"facturify_uuid"`
	FacturifyStatus   string          `json:"facturify_status"`
	FacturifyResponse json.RawMessage `json:"facturify_response"`
}

// NewCartaPorteResponse respuesta a partir del agregado persistido.
func NewCartaPorteResponse(inv *entity.Invoice) CartaPorteResponse {
	resp := CartaPorteResponse{
		InvoiceID:         inv.ID.String(),
		Status:            string(inv.Status),
		FacturifyStatus:   string(inv.Status),
		FacturifyResponse: inv.ProviderResponse,
	}
	if inv.ProviderUUID != "" {
		u := inv.ProviderUUID
		resp.FacturifyUUID = &u
	}
	return resp
}
