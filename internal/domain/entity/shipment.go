package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocationType tipo de ubicación en la Carta Porte.
type LocationType string

const (
	LocationOrigin      LocationType = "Origen"
	LocationDestination LocationType = "Destino"
)

// TransportMode clave c_CveTransporte (01 autotransporte federal … 05 aéreo).
type TransportMode string

const (
	TransportFederalRoad TransportMode = "01"
	TransportLocalRoad   TransportMode = "02"
	TransportRail        TransportMode = "03"
	TransportMaritime    TransportMode = "04"
	TransportAir         TransportMode = "05"
)

// Trailer remolque del autotransporte.
type Trailer struct {
	Subtype string
	Plate   string
}

// Vehicle autotransporte, seguro y remolques.
// ModelYear, GrossWeight e InsurancePremium se guardan como texto, igual que en el complemento.
type Vehicle struct {
	Configuration    string
	Plate            string
	FederalPermit    string
	InsuranceCompany string
	InsurancePolicy  string
	ModelYear        string
	GrossWeight      string
	InsurancePremium string
	Trailers         []Trailer
}

// GoodsItem mercancía transportada.
type GoodsItem struct {
	Description       string
	ProductKey        string
	Quantity          decimal.Decimal
	UnitKey           string
	WeightKg          decimal.Decimal
	Value             decimal.Decimal
	DangerousMaterial bool
	DangerousKey      string
}

// ShipmentLocation origen o destino del traslado.
type ShipmentLocation struct {
	Type           LocationType
	DateTime       time.Time
	Street         string
	ExteriorNumber string
	Neighborhood   string
	City           string
	State          string
	Country        string
	ZipCode        string
	Latitude       *float64
	Longitude      *float64
	Reference      string
	Locality       string
}

// IsOrigin indica si la ubicación es de salida.
func (l ShipmentLocation) IsOrigin() bool { return l.Type == LocationOrigin }

// TransportFigure operador, propietario, arrendador o notificado.
type TransportFigure struct {
	Type            string
	RFC             string
	Name            string
	License         string
	RoleDescription string
}

// Shipment datos del complemento Carta Porte de una factura.
type Shipment struct {
	TransportMode   TransportMode
	PermitType      string
	PermitNumber    string
	TotalDistanceKm *decimal.Decimal
	TotalWeightKg   decimal.Decimal
	Vehicle         Vehicle
	Locations       []ShipmentLocation
	Goods           []GoodsItem
	Figures         []TransportFigure
}
