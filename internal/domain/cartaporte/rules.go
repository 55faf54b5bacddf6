// Package cartaporte reglas de negocio del complemento Carta Porte 3.1
// (secuencia de ubicaciones, transporte internacional, totales de mercancías).
package cartaporte

import (
	"fmt"

	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
	"github.com/jhoicas/cartaporte-api/pkg/cfdi"
	"github.com/shopspring/decimal"
)

// LocationID IDUbicacion: prefijo OR/DE + posición (base 0) en la secuencia completa,
// con un único contador compartido entre orígenes y destinos.
func LocationID(t entity.LocationType, position int) string {
	prefix := cfdi.LocationIDPrefixDestination
	if t == entity.LocationOrigin {
		prefix = cfdi.LocationIDPrefixOrigin
	}
	return fmt.Sprintf("%s%06d", prefix, position)
}

// IsInternational "Si" cuando alguna ubicación está fuera de México.
func IsInternational(locations []entity.ShipmentLocation) bool {
	for _, l := range locations {
		if l.Country != cfdi.CountryMexico {
			return true
		}
	}
	return false
}

// InternationalFlag valor de TranspInternac.
func InternationalFlag(locations []entity.ShipmentLocation) string {
	if IsInternational(locations) {
		return "Si"
	}
	return "No"
}

// NetWeight suma de PesoEnKg de las mercancías. No se compara con el peso bruto declarado.
func NetWeight(goods []entity.GoodsItem) decimal.Decimal {
	total := decimal.Zero
	for _, g := range goods {
		total = total.Add(g.WeightKg)
	}
	return total
}

// ValidateShipment exige al menos un origen y un destino, y modo de transporte del catálogo.
func ValidateShipment(s *entity.Shipment) error {
	if s == nil {
		return domain.NewValidationError("la factura requiere información de Carta Porte")
	}
	var fields []domain.FieldError
	if !cfdi.ValidTransportModes[string(s.TransportMode)] {
		fields = append(fields, domain.FieldError{Field: "shipment.transport_mode", Message: "clave de transporte inválida"})
	}
	var origins, destinations int
	for _, l := range s.Locations {
		switch l.Type {
		case entity.LocationOrigin:
			origins++
		case entity.LocationDestination:
			destinations++
		}
	}
	if origins == 0 {
		fields = append(fields, domain.FieldError{Field: "shipment.locations", Message: "se requiere al menos un origen"})
	}
	if destinations == 0 {
		fields = append(fields, domain.FieldError{Field: "shipment.locations", Message: "se requiere al menos un destino"})
	}
	if len(fields) > 0 {
		return domain.NewValidationError("Carta Porte inválida", fields...)
	}
	return nil
}
