// Package cfdi contiene catálogos del SAT (México) usados por el CFDI 4.0
// con complemento Carta Porte 3.1, y validaciones de RFC y código postal.
package cfdi

// Versiones de los documentos emitidos.
const (
	CFDIVersion       = "4.0"
	CartaPorteVersion = "3.1"
)

// =============================================================================
// c_CveTransporte - Medio de transporte
// =============================================================================

const (
	TransportModeFederalRoad = "01" // Autotransporte federal
	TransportModeLocalRoad   = "02" // Autotransporte (reservado)
	TransportModeRail        = "03" // Ferroviario
	TransportModeMaritime    = "04" // Marítimo
	TransportModeAir         = "05" // Aéreo
)

// ValidTransportModes claves de transporte aceptadas.
var ValidTransportModes = map[string]bool{
	TransportModeFederalRoad: true,
	TransportModeLocalRoad:   true,
	TransportModeRail:        true,
	TransportModeMaritime:    true,
	TransportModeAir:         true,
}

// =============================================================================
// Ubicaciones
// =============================================================================

const (
	LocationOrigin      = "Origen"
	LocationDestination = "Destino"

	LocationIDPrefixOrigin      = "OR"
	LocationIDPrefixDestination = "DE"

	CountryMexico = "MEX"

	// Exterior sin número en domicilios.
	NoExteriorNumber = "S/N"
)

// =============================================================================
// Impuestos (c_Impuesto, c_TipoFactor, c_ObjetoImp)
// =============================================================================

const (
	TaxIVA          = "002"
	FactorTypeRate  = "Tasa"
	TaxObjectYes    = "02" // Sí objeto de impuesto
	ExportNotApply  = "01" // No aplica
	ExchangeRateMXN = "1"
	CurrencyMXN     = "MXN"
	WeightUnitKGM   = "KGM"
)

// =============================================================================
// Tipos de comprobante y defaults del receptor
// =============================================================================

const (
	InvoiceTypeIngreso  = "ingreso"
	InvoiceTypeTraslado = "traslado"

	TaxRegimeNoObligations = "616" // Sin obligaciones fiscales
	CFDIUseGastosGenerales = "G01"
	PaymentMethodPUE       = "PUE" // Pago en una sola exhibición
	PaymentFormTransfer    = "03"  // Transferencia electrónica

	PublicoEnGeneral = "PUBLICO EN GENERAL"
)

// =============================================================================
// c_FiguraTransporte
// =============================================================================

const (
	FigureOperator = "01" // Operador
	FigureOwner    = "02" // Propietario
	FigureLessor   = "03" // Arrendador
	FigureNotified = "04" // Notificado
)

// ValidFigureTypes tipos de figura de transporte.
var ValidFigureTypes = map[string]bool{
	FigureOperator: true, FigureOwner: true, FigureLessor: true, FigureNotified: true,
}

// Valores usados cuando el vehículo no los declara.
const (
	DefaultVehicleModelYear   = "2025"
	DefaultVehicleGrossWeight = "46.5"
	DefaultInsurancePremium   = "1200"
	DefaultTrailerSubtype     = "CTR007"
)
