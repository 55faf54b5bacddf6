package dto

// Esquema nativo de Facturify para POST /api/v1/factura con complemento Carta Porte.
// Los importes viajan como números JSON (float64) porque así los exige el proveedor;
// los cálculos se hacen en decimal antes de convertir.

// FacturifyCartaPorteRequest raíz del payload del proveedor.
type FacturifyCartaPorteRequest struct {
	Emisor   FacturifyEmisor   `json:"emisor"`
	Receptor FacturifyReceptor `json:"receptor"`
	Factura  FacturifyFactura  `json:"factura"`
}

type FacturifyEmisor struct {
	UUID        string `json:"uuid"`
	RazonSocial string `json:"razon_social,omitempty"`
	RFC         string `json:"rfc,omitempty"`
	CP          string `json:"cp,omitempty"`
}

// FacturifyReceptor con UUID si el proveedor ya conoce al cliente; en otro caso el bloque completo.
// DomicilioFiscal es alias de CP usado por algunos clientes del proveedor.
type FacturifyReceptor struct {
	UUID            string  `json:"uuid,omitempty"`
	RazonSocial     string  `json:"razon_social,omitempty"`
	RFC             string  `json:"rfc,omitempty"`
	Email           *string `json:"email,omitempty"`
	CP              string  `json:"cp,omitempty"`
	Regimen         string  `json:"regimen,omitempty"`
	UsoCFDI         string  `json:"uso_cfdi,omitempty"`
	MetodoDePago    string  `json:"metodo_de_pago,omitempty"`
	FormaDePago     string  `json:"forma_de_pago,omitempty"`
	DomicilioFiscal string  `json:"domicilio_fiscal,omitempty"`
}

type FacturifyFactura struct {
	Version         string               `json:"version,omitempty"`
	Fecha           string               `json:"fecha"`
	Tipo            string               `json:"tipo"`
	FormaDePago     string               `json:"forma_de_pago,omitempty"`
	MetodoPago      string               `json:"metodo_pago,omitempty"`
	MetodoDePago    string               `json:"metodo_de_pago,omitempty"`
	Moneda          string               `json:"moneda"`
	TipoDeCambio    string               `json:"tipo_de_cambio,omitempty"`
	Exportacion     string               `json:"exportacion,omitempty"`
	Subtotal        float64              `json:"subtotal"`
	ImpuestoFederal *float64             `json:"impuesto_federal,omitempty"`
	Total           float64              `json:"total"`
	Serie           string               `json:"serie,omitempty"`
	Folio           string               `json:"folio,omitempty"`
	Uso             string               `json:"uso,omitempty"`
	UsoCFDI         string               `json:"uso_cfdi,omitempty"`
	LugarExpedicion string               `json:"lugar_expedicion,omitempty"`
	Conceptos       []FacturifyConcepto  `json:"conceptos"`
	Complemento     FacturifyComplemento `json:"Complemento"`
}

type FacturifyConcepto struct {
	Cantidad              float64             `json:"cantidad"`
	ClaveProductoServicio string              `json:"clave_producto_servicio"`
	ClaveUnidadDeMedida   string              `json:"clave_unidad_de_medida"`
	Descripcion           string              `json:"descripcion"`
	ValorUnitario         float64             `json:"valor_unitario"`
	Total                 float64             `json:"total"`
	ObjetoImp             string              `json:"objeto_imp,omitempty"`
	Impuestos             *FacturifyImpuestos `json:"impuestos,omitempty"`
}

type FacturifyImpuestos struct {
	Traslados *FacturifyTraslados `json:"traslados,omitempty"`
}

type FacturifyTraslados struct {
	Traslado []FacturifyTraslado `json:"traslado"`
}

// FacturifyTraslado línea de impuesto trasladado. TasaOCuota es fracción (0.16).
type FacturifyTraslado struct {
	Base       float64 `json:"base"`
	Impuesto   string  `json:"impuesto"`
	TipoFactor string  `json:"tipoFactor"`
	TasaOCuota float64 `json:"tasaOCuota"`
	Importe    float64 `json:"importe"`
}

type FacturifyComplemento struct {
	CartaPorte FacturifyCartaPorte `json:"CartaPorte"`
}

type FacturifyCartaPorte struct {
	Version          string                     `json:"Version"`
	IdCCP            string                     `json:"IdCCP,omitempty"`
	TranspInternac   string                     `json:"TranspInternac"`
	TotalDistRec     float64                    `json:"TotalDistRec"`
	Ubicaciones      FacturifyUbicaciones       `json:"Ubicaciones"`
	Mercancias       FacturifyMercancias        `json:"Mercancias"`
	FiguraTransporte *FacturifyFiguraTransporte `json:"FiguraTransporte,omitempty"`
}

type FacturifyUbicaciones struct {
	Ubicacion []FacturifyUbicacion `json:"Ubicacion"`
}

// FacturifyUbicacion. TipoUbicacion es "Origen" o "Destino".
type FacturifyUbicacion struct {
	TipoUbicacion            string             `json:"TipoUbicacion"`
	IDUbicacion              string             `json:"IDUbicacion"`
	RFCRemitenteDestinatario string             `json:"RFCRemitenteDestinatario"`
	FechaHoraSalidaLlegada   string             `json:"FechaHoraSalidaLlegada"`
	DistanciaRecorrida       *float64           `json:"DistanciaRecorrida,omitempty"`
	Domicilio                FacturifyDomicilio `json:"Domicilio"`
}

type FacturifyDomicilio struct {
	Calle          string `json:"Calle"`
	NumeroExterior string `json:"NumeroExterior,omitempty"`
	Colonia        string `json:"Colonia,omitempty"`
	Localidad      string `json:"Localidad,omitempty"`
	Municipio      string `json:"Municipio,omitempty"`
	Estado         string `json:"Estado"`
	Pais           string `json:"Pais"`
	CodigoPostal   string `json:"CodigoPostal"`
}

type FacturifyMercancias struct {
	NumTotalMercancias int                     `json:"NumTotalMercancias"`
	PesoNetoTotal      float64                 `json:"PesoNetoTotal"`
	PesoBrutoTotal     float64                 `json:"PesoBrutoTotal"`
	UnidadPeso         string                  `json:"UnidadPeso"`
	Mercancia          []FacturifyMercancia    `json:"Mercancia"`
	Autotransporte     FacturifyAutotransporte `json:"Autotransporte"`
}

type FacturifyMercancia struct {
	BienesTransp         string  `json:"BienesTransp"`
	Cantidad             float64 `json:"Cantidad"`
	ClaveUnidad          string  `json:"ClaveUnidad"`
	Descripcion          string  `json:"Descripcion"`
	PesoEnKg             float64 `json:"PesoEnKg"`
	MaterialPeligroso    string  `json:"MaterialPeligroso,omitempty"`
	CveMaterialPeligroso string  `json:"CveMaterialPeligroso,omitempty"`
}

type FacturifyAutotransporte struct {
	PermSCT                 string                           `json:"PermSCT"`
	NumPermisoSCT           string                           `json:"NumPermisoSCT"`
	IdentificacionVehicular FacturifyIdentificacionVehicular `json:"IdentificacionVehicular"`
	Seguros                 FacturifySeguros                 `json:"Seguros"`
	Remolques               *FacturifyRemolques              `json:"Remolques,omitempty"`
}

type FacturifyIdentificacionVehicular struct {
	ConfigVehicular    string `json:"ConfigVehicular"`
	PlacaVM            string `json:"PlacaVM"`
	AnioModeloVM       string `json:"AnioModeloVM"`
	PesoBrutoVehicular string `json:"PesoBrutoVehicular"`
}

type FacturifySeguros struct {
	AseguraRespCivil string `json:"AseguraRespCivil"`
	PolizaRespCivil  string `json:"PolizaRespCivil"`
	PrimaSeguro      string `json:"PrimaSeguro,omitempty"`
}

type FacturifyRemolques struct {
	Remolque []FacturifyRemolque `json:"Remolque"`
}

type FacturifyRemolque struct {
	SubTipoRem string `json:"SubTipoRem"`
	Placa      string `json:"Placa"`
}

type FacturifyFiguraTransporte struct {
	TiposFigura []FacturifyTipoFigura `json:"TiposFigura"`
}

// FacturifyTipoFigura. NumLicencia se envía siempre, aunque vaya vacío.
type FacturifyTipoFigura struct {
	TipoFigura   string `json:"TipoFigura"`
	RFCFigura    string `json:"RFCFigura"`
	NumLicencia  string `json:"NumLicencia"`
	NombreFigura string `json:"NombreFigura"`
}
