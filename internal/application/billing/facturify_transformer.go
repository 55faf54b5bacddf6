package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/pkg/cfdi"
)

// TransformFacturifyRequest convierte el esquema nativo de Facturify en la solicitud interna.
//
// Es una traducción con pérdida: el valor de cada mercancía no viaja en el formato del
// proveedor y se aproxima repartiendo el subtotal en partes iguales; el receptor se
// sintetiza con la primera ubicación cuando el bloque receptor viene incompleto.
func TransformFacturifyRequest(in dto.FacturifyCartaPorteRequest) (dto.CartaPorteRequest, error) {
	factura := in.Factura
	cp := factura.Complemento.CartaPorte
	ubicaciones := cp.Ubicaciones.Ubicacion
	if len(ubicaciones) == 0 {
		return dto.CartaPorteRequest{}, domain.NewValidationError("Carta Porte sin ubicaciones",
			domain.FieldError{Field: "factura.Complemento.CartaPorte.Ubicaciones", Message: "se requiere al menos una ubicación"})
	}
	mercancias := cp.Mercancias.Mercancia
	if len(mercancias) == 0 {
		return dto.CartaPorteRequest{}, domain.NewValidationError("Carta Porte sin mercancías",
			domain.FieldError{Field: "factura.Complemento.CartaPorte.Mercancias.Mercancia", Message: "se requiere al menos una mercancía"})
	}

	items := make([]dto.InvoiceItemRequest, 0, len(factura.Conceptos))
	for _, c := range factura.Conceptos {
		items = append(items, dto.InvoiceItemRequest{
			ProductKey:    c.ClaveProductoServicio,
			Description:   c.Descripcion,
			Quantity:      decimal.NewFromFloat(c.Cantidad),
			UnitKey:       c.ClaveUnidadDeMedida,
			UnitPrice:     decimal.NewFromFloat(c.ValorUnitario),
			TaxPercentage: taxPercentage(c),
		})
	}

	locations := make([]dto.ShipmentLocationRequest, 0, len(ubicaciones))
	for i, u := range ubicaciones {
		at, err := dto.ParseDateTime(u.FechaHoraSalidaLlegada)
		if err != nil {
			return dto.CartaPorteRequest{}, domain.NewValidationError("fecha de ubicación inválida", domain.FieldError{
				Field:   fmt.Sprintf("factura.Complemento.CartaPorte.Ubicaciones.Ubicacion[%d].FechaHoraSalidaLlegada", i),
				Message: err.Error(),
			})
		}
		typ := dto.LocationTypeDestination
		if u.TipoUbicacion == cfdi.LocationOrigin {
			typ = dto.LocationTypeOrigin
		}
		locations = append(locations, dto.ShipmentLocationRequest{
			Type:           typ,
			DateTime:       dto.DateTime{Time: at},
			Street:         u.Domicilio.Calle,
			ExteriorNumber: exteriorNumber(u.Domicilio.NumeroExterior),
			Neighborhood:   u.Domicilio.Colonia,
			City:           u.Domicilio.Municipio,
			State:          u.Domicilio.Estado,
			Country:        u.Domicilio.Pais,
			ZipCode:        u.Domicilio.CodigoPostal,
			Locality:       u.Domicilio.Localidad,
		})
	}

	// Aproximación: el formato del proveedor no declara valor por mercancía.
	value := decimal.NewFromFloat(factura.Subtotal).Div(decimal.NewFromInt(int64(len(mercancias))))
	goods := make([]dto.ShipmentGoodsRequest, 0, len(mercancias))
	for _, m := range mercancias {
		goods = append(goods, dto.ShipmentGoodsRequest{
			Description:       m.Descripcion,
			ProductKey:        m.BienesTransp,
			Quantity:          decimal.NewFromFloat(m.Cantidad),
			UnitKey:           m.ClaveUnidad,
			WeightKg:          decimal.NewFromFloat(m.PesoEnKg),
			Value:             value,
			DangerousMaterial: m.MaterialPeligroso != "",
			DangerousKey:      m.CveMaterialPeligroso,
		})
	}

	var figures []dto.TransportFigureRequest
	if cp.FiguraTransporte != nil {
		for _, f := range cp.FiguraTransporte.TiposFigura {
			figures = append(figures, dto.TransportFigureRequest{
				Type:    f.TipoFigura,
				RFC:     f.RFCFigura,
				Name:    f.NombreFigura,
				License: f.NumLicencia,
			})
		}
	}

	auto := cp.Mercancias.Autotransporte
	vehicle := dto.VehicleRequest{
		Configuration:    auto.IdentificacionVehicular.ConfigVehicular,
		Plate:            auto.IdentificacionVehicular.PlacaVM,
		FederalPermit:    auto.NumPermisoSCT,
		InsuranceCompany: auto.Seguros.AseguraRespCivil,
		InsurancePolicy:  auto.Seguros.PolizaRespCivil,
		ModelYear:        auto.IdentificacionVehicular.AnioModeloVM,
		GrossWeight:      auto.IdentificacionVehicular.PesoBrutoVehicular,
		InsurancePremium: auto.Seguros.PrimaSeguro,
	}
	if auto.Remolques != nil {
		for _, r := range auto.Remolques.Remolque {
			vehicle.Trailers = append(vehicle.Trailers, dto.TrailerRequest{Subtype: r.SubTipoRem, Plate: r.Placa})
		}
	}

	distance := decimal.NewFromFloat(cp.TotalDistRec)
	first := ubicaciones[0]

	out := dto.CartaPorteRequest{
		FacturifyIssuerUUID: in.Emisor.UUID,
		CFDIType:            factura.Tipo,
		Recipient:           recipientFrom(in.Receptor, first),
		CFDIUse:             firstNonEmpty(factura.Uso, factura.UsoCFDI, in.Receptor.UsoCFDI),
		PaymentForm:         firstNonEmpty(in.Receptor.FormaDePago, factura.FormaDePago),
		PaymentMethod:       firstNonEmpty(in.Receptor.MetodoDePago, factura.MetodoPago, factura.MetodoDePago),
		ExpeditionPlace:     firstNonEmpty(in.Emisor.CP, factura.LugarExpedicion, first.Domicilio.CodigoPostal),
		Currency:            factura.Moneda,
		Subtotal:            decimal.NewFromFloat(factura.Subtotal),
		Total:               decimal.NewFromFloat(factura.Total),
		Items:               items,
		Shipment: dto.ShipmentRequest{
			TransportMode:   cfdi.TransportModeFederalRoad,
			PermitType:      auto.PermSCT,
			PermitNumber:    auto.NumPermisoSCT,
			TotalDistanceKm: &distance,
			TotalWeightKg:   decimal.NewFromFloat(cp.Mercancias.PesoBrutoTotal),
			Vehicle:         vehicle,
			Locations:       locations,
			Goods:           goods,
			Figures:         figures,
		},
	}
	out.ApplyDefaults()
	return out, nil
}

// taxPercentage tasa del traslado de IVA (002) expresada en porcentaje; nil si no hay.
func taxPercentage(c dto.FacturifyConcepto) *decimal.Decimal {
	if c.Impuestos == nil || c.Impuestos.Traslados == nil {
		return nil
	}
	for _, t := range c.Impuestos.Traslados.Traslado {
		if t.Impuesto == cfdi.TaxIVA {
			pct := decimal.NewFromFloat(t.TasaOCuota).Mul(decimal.NewFromInt(100))
			return &pct
		}
	}
	return nil
}

func recipientFrom(r dto.FacturifyReceptor, first dto.FacturifyUbicacion) dto.PartyRequest {
	p := dto.PartyRequest{
		LegalName: firstNonEmpty(r.RazonSocial, cfdi.PublicoEnGeneral),
		RFC:       firstNonEmpty(r.RFC, first.RFCRemitenteDestinatario),
		TaxRegime: firstNonEmpty(r.Regimen, cfdi.TaxRegimeNoObligations),
		Address: dto.AddressRequest{
			Street:         first.Domicilio.Calle,
			ExteriorNumber: exteriorNumber(first.Domicilio.NumeroExterior),
			Neighborhood:   first.Domicilio.Colonia,
			City:           first.Domicilio.Municipio,
			State:          first.Domicilio.Estado,
			Country:        first.Domicilio.Pais,
			ZipCode:        firstNonEmpty(r.CP, r.DomicilioFiscal, first.Domicilio.CodigoPostal),
		},
	}
	if r.Email != nil {
		p.Email = *r.Email
	}
	return p
}

func exteriorNumber(n string) string {
	if n == "" {
		return cfdi.NoExteriorNumber
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
