package facturify

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cartaporte-api/internal/application/billing"
	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/internal/domain/cartaporte"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
	"github.com/jhoicas/cartaporte-api/pkg/cfdi"
)

// FechaLayout formato de "fecha" en el bloque factura.
const FechaLayout = "2006-01-02 15:04:05"

var hundred = decimal.NewFromInt(100)

// PayloadBuilder traduce una factura del dominio al payload de POST /api/v1/factura.
type PayloadBuilder struct {
	accountUUID string
	now         func() time.Time
	newID       func() string
}

// NewPayloadBuilder accountUUID es el emisor por omisión cuando la empresa no tiene UUID propio.
func NewPayloadBuilder(accountUUID string) *PayloadBuilder {
	return &PayloadBuilder{
		accountUUID: accountUUID,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
}

// WithClock fija fecha e IdCCP; útil para salidas reproducibles.
func (b *PayloadBuilder) WithClock(now func() time.Time, newID func() string) *PayloadBuilder {
	c := *b
	if now != nil {
		c.now = now
	}
	if newID != nil {
		c.newID = newID
	}
	return &c
}

var _ billing.PayloadRenderer = (*PayloadBuilder)(nil)

// Build arma el payload completo. La factura debe traer Carta Porte.
func (b *PayloadBuilder) Build(inv *entity.Invoice, issuer entity.Party) (*dto.FacturifyCartaPorteRequest, error) {
	if inv.Shipment == nil {
		return nil, domain.NewValidationError("la factura requiere información de Carta Porte")
	}

	tax := inv.Total.Amount.Sub(inv.Subtotal.Amount).Round(2).InexactFloat64()

	conceptos := make([]dto.FacturifyConcepto, 0, len(inv.Items))
	for _, it := range inv.Items {
		conceptos = append(conceptos, concepto(it))
	}

	emisor := issuer.ExternalUUID
	if emisor == "" {
		emisor = b.accountUUID
	}

	return &dto.FacturifyCartaPorteRequest{
		Emisor:   dto.FacturifyEmisor{UUID: emisor},
		Receptor: receptor(inv),
		Factura: dto.FacturifyFactura{
			Version:         cfdi.CFDIVersion,
			Fecha:           b.now().Format(FechaLayout),
			Tipo:            string(inv.Type),
			FormaDePago:     inv.PaymentForm,
			Moneda:          inv.Currency,
			TipoDeCambio:    cfdi.ExchangeRateMXN,
			Exportacion:     cfdi.ExportNotApply,
			Subtotal:        inv.Subtotal.Amount.InexactFloat64(),
			ImpuestoFederal: &tax,
			Total:           inv.Total.Amount.InexactFloat64(),
			Conceptos:       conceptos,
			Complemento: dto.FacturifyComplemento{
				CartaPorte: b.cartaPorte(inv, issuer),
			},
		},
	}, nil
}

// receptor por UUID si Facturify ya conoce al cliente; en otro caso el bloque en línea.
func receptor(inv *entity.Invoice) dto.FacturifyReceptor {
	p := inv.Recipient
	if p.ExternalUUID != "" {
		return dto.FacturifyReceptor{UUID: p.ExternalUUID}
	}
	email := p.Email
	return dto.FacturifyReceptor{
		RazonSocial:     p.LegalName,
		RFC:             p.RFC,
		Email:           &email,
		UsoCFDI:         inv.CFDIUse,
		MetodoDePago:    inv.PaymentMethod,
		FormaDePago:     inv.PaymentForm,
		DomicilioFiscal: p.Address.ZipCode,
	}
}

func concepto(it entity.InvoiceItem) dto.FacturifyConcepto {
	amount := it.Amount()
	c := dto.FacturifyConcepto{
		Cantidad:              it.Quantity.InexactFloat64(),
		ClaveProductoServicio: it.ProductKey,
		ClaveUnidadDeMedida:   it.UnitKey,
		Descripcion:           it.Description,
		ValorUnitario:         it.UnitPrice.InexactFloat64(),
		Total:                 amount.InexactFloat64(),
		ObjetoImp:             cfdi.TaxObjectYes,
	}
	pct, ok := it.IVA()
	if !ok {
		return c
	}
	// Importe sobre la base ya redondeada, no sobre cantidad por precio.
	rate := pct.Div(hundred)
	c.Impuestos = &dto.FacturifyImpuestos{
		Traslados: &dto.FacturifyTraslados{
			Traslado: []dto.FacturifyTraslado{{
				Base:       amount.InexactFloat64(),
				Impuesto:   cfdi.TaxIVA,
				TipoFactor: cfdi.FactorTypeRate,
				TasaOCuota: rate.InexactFloat64(),
				Importe:    amount.Mul(rate).Round(2).InexactFloat64(),
			}},
		},
	}
	return c
}

func (b *PayloadBuilder) cartaPorte(inv *entity.Invoice, issuer entity.Party) dto.FacturifyCartaPorte {
	s := inv.Shipment

	// Distancias enteras: el complemento se envía sin fracción de kilómetro.
	distance := 0.0
	if s.TotalDistanceKm != nil {
		distance = float64(s.TotalDistanceKm.IntPart())
	}

	ubicaciones := make([]dto.FacturifyUbicacion, 0, len(s.Locations))
	for idx, l := range s.Locations {
		u := dto.FacturifyUbicacion{
			TipoUbicacion:            string(l.Type),
			IDUbicacion:              cartaporte.LocationID(l.Type, idx),
			RFCRemitenteDestinatario: inv.Recipient.RFC,
			FechaHoraSalidaLlegada:   l.DateTime.Format(dto.LocalDateTimeLayout),
			Domicilio: dto.FacturifyDomicilio{
				Calle:          l.Street,
				NumeroExterior: l.ExteriorNumber,
				Colonia:        l.Neighborhood,
				Localidad:      l.Locality,
				Municipio:      l.City,
				Estado:         l.State,
				Pais:           l.Country,
				CodigoPostal:   l.ZipCode,
			},
		}
		if l.IsOrigin() {
			u.RFCRemitenteDestinatario = issuer.RFC
		} else {
			d := distance
			u.DistanciaRecorrida = &d
		}
		ubicaciones = append(ubicaciones, u)
	}

	mercancia := make([]dto.FacturifyMercancia, 0, len(s.Goods))
	for _, g := range s.Goods {
		m := dto.FacturifyMercancia{
			BienesTransp: g.ProductKey,
			Cantidad:     g.Quantity.InexactFloat64(),
			ClaveUnidad:  g.UnitKey,
			Descripcion:  g.Description,
			PesoEnKg:     g.WeightKg.InexactFloat64(),
		}
		if g.DangerousMaterial && g.DangerousKey != "" {
			m.MaterialPeligroso = "Si"
			m.CveMaterialPeligroso = g.DangerousKey
		}
		mercancia = append(mercancia, m)
	}

	out := dto.FacturifyCartaPorte{
		Version:        cfdi.CartaPorteVersion,
		IdCCP:          strings.ToUpper(b.newID()),
		TranspInternac: cartaporte.InternationalFlag(s.Locations),
		TotalDistRec:   distance,
		Ubicaciones:    dto.FacturifyUbicaciones{Ubicacion: ubicaciones},
		Mercancias: dto.FacturifyMercancias{
			NumTotalMercancias: len(s.Goods),
			PesoNetoTotal:      cartaporte.NetWeight(s.Goods).InexactFloat64(),
			PesoBrutoTotal:     s.TotalWeightKg.InexactFloat64(),
			UnidadPeso:         cfdi.WeightUnitKGM,
			Mercancia:          mercancia,
			Autotransporte:     autotransporte(s),
		},
	}

	if len(s.Figures) > 0 {
		tipos := make([]dto.FacturifyTipoFigura, 0, len(s.Figures))
		for _, f := range s.Figures {
			tipos = append(tipos, dto.FacturifyTipoFigura{
				TipoFigura:   f.Type,
				RFCFigura:    f.RFC,
				NumLicencia:  f.License,
				NombreFigura: f.Name,
			})
		}
		out.FiguraTransporte = &dto.FacturifyFiguraTransporte{TiposFigura: tipos}
	}
	return out
}

func autotransporte(s *entity.Shipment) dto.FacturifyAutotransporte {
	v := s.Vehicle
	auto := dto.FacturifyAutotransporte{
		PermSCT:       s.PermitType,
		NumPermisoSCT: orDefault(v.FederalPermit, s.PermitNumber),
		IdentificacionVehicular: dto.FacturifyIdentificacionVehicular{
			ConfigVehicular:    v.Configuration,
			PlacaVM:            v.Plate,
			AnioModeloVM:       orDefault(v.ModelYear, cfdi.DefaultVehicleModelYear),
			PesoBrutoVehicular: orDefault(v.GrossWeight, cfdi.DefaultVehicleGrossWeight),
		},
		Seguros: dto.FacturifySeguros{
			AseguraRespCivil: v.InsuranceCompany,
			PolizaRespCivil:  v.InsurancePolicy,
			PrimaSeguro:      orDefault(v.InsurancePremium, cfdi.DefaultInsurancePremium),
		},
	}
	if len(v.Trailers) > 0 {
		rem := make([]dto.FacturifyRemolque, 0, len(v.Trailers))
		for _, t := range v.Trailers {
			rem = append(rem, dto.FacturifyRemolque{
				SubTipoRem: orDefault(t.Subtype, cfdi.DefaultTrailerSubtype),
				Placa:      t.Plate,
			})
		}
		auto.Remolques = &dto.FacturifyRemolques{Remolque: rem}
	}
	return auto
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
