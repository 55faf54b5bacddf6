package facturify_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
	"github.com/jhoicas/cartaporte-api/internal/infrastructure/facturify"
)

var fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func testBuilder() *facturify.PayloadBuilder {
	return facturify.NewPayloadBuilder("account-uuid").WithClock(
		func() time.Time { return fixedNow },
		func() string { return "3f2b7c1e-0000-4000-8000-00000000abcd" },
	)
}

func mustMoney(t *testing.T, s string) entity.Money {
	t.Helper()
	m, err := entity.NewMoney(decimal.RequireFromString(s), "MXN")
	require.NoError(t, err)
	return m
}

func testIssuer() entity.Party {
	return entity.Party{LegalName: "TRANSPORTES DEL NORTE", RFC: "TNO010101AB1", ExternalUUID: "issuer-uuid"}
}

func testInvoice(t *testing.T) *entity.Invoice {
	t.Helper()
	iva := decimal.NewFromInt(16)
	distance := decimal.RequireFromString("245.9")
	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	return entity.NewInvoice(entity.Invoice{
		Recipient: entity.Party{
			LegalName: "COMERCIALIZADORA DEL BAJIO",
			RFC:       "CBA020202CD2",
			TaxRegime: "601",
			Email:     "facturas@cba.mx",
			Address:   entity.Address{Street: "Av. Juárez", ExteriorNumber: "10", State: "GTO", Country: "MEX", ZipCode: "37000"},
		},
		Type:            entity.InvoiceTypeIngreso,
		Currency:        "MXN",
		Subtotal:        mustMoney(t, "100"),
		Total:           mustMoney(t, "116"),
		CFDIUse:         "G01",
		PaymentForm:     "03",
		PaymentMethod:   "PUE",
		ExpeditionPlace: "64000",
		Items: []entity.InvoiceItem{{
			ProductKey:  "78101802",
			Description: "Flete",
			Quantity:    decimal.NewFromInt(2),
			UnitKey:     "E48",
			UnitPrice:   decimal.NewFromInt(50),
			Taxes:       map[string]decimal.Decimal{entity.TaxIVA: iva},
		}},
		Shipment: &entity.Shipment{
			TransportMode:   entity.TransportFederalRoad,
			PermitType:      "TPAF01",
			PermitNumber:    "0X2XTXZ0X5X0X3X2X1X0",
			TotalDistanceKm: &distance,
			TotalWeightKg:   decimal.NewFromInt(1500),
			Vehicle: entity.Vehicle{
				Configuration:    "C2",
				Plate:            "ABC1234",
				InsuranceCompany: "SEGUROS SA",
				InsurancePolicy:  "POL-1",
			},
			Locations: []entity.ShipmentLocation{
				{Type: entity.LocationOrigin, DateTime: at, Street: "Calle 1", City: "Monterrey", State: "NLE", Country: "MEX", ZipCode: "64000"},
				{Type: entity.LocationDestination, DateTime: at.Add(5 * time.Hour), Street: "Calle 2", State: "GTO", Country: "MEX", ZipCode: "37000", Locality: "01"},
				{Type: entity.LocationDestination, DateTime: at.Add(8 * time.Hour), Street: "Calle 3", State: "JAL", Country: "MEX", ZipCode: "44100"},
			},
			Goods: []entity.GoodsItem{
				{Description: "Cajas", ProductKey: "24112700", Quantity: decimal.NewFromInt(10), UnitKey: "XBX", WeightKg: decimal.NewFromInt(500)},
				{Description: "Solvente", ProductKey: "12352100", Quantity: decimal.NewFromInt(1), UnitKey: "XBX", WeightKg: decimal.NewFromInt(250), DangerousMaterial: true, DangerousKey: "1993"},
			},
		},
	})
}

// ── Impuestos ──

func TestBuild_LineaDeIVA(t *testing.T) {
	out, err := testBuilder().Build(testInvoice(t), testIssuer())
	require.NoError(t, err)

	require.Len(t, out.Factura.Conceptos, 1)
	c := out.Factura.Conceptos[0]
	assert.Equal(t, 100.0, c.Total)
	require.NotNil(t, c.Impuestos)
	require.Len(t, c.Impuestos.Traslados.Traslado, 1)
	tr := c.Impuestos.Traslados.Traslado[0]
	assert.Equal(t, 100.0, tr.Base)
	assert.Equal(t, 16.0, tr.Importe)
	assert.Equal(t, 0.16, tr.TasaOCuota)
	assert.Equal(t, "002", tr.Impuesto)
	assert.Equal(t, "Tasa", tr.TipoFactor)

	require.NotNil(t, out.Factura.ImpuestoFederal)
	assert.Equal(t, 16.0, *out.Factura.ImpuestoFederal)
}

func TestBuild_ImporteSobreBaseRedondeada(t *testing.T) {
	cases := []struct {
		name          string
		qty, price    string
		pct           string
		base, importe float64
	}{
		{"precio con tres decimales", "1", "16.655", "16", 16.66, 2.67},
		{"cantidad fraccionaria", "2.5", "10.333", "16", 25.83, 4.13},
		{"tasa fronteriza", "3", "33.335", "8", 100.01, 8.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := testInvoice(t)
			inv.Items[0].Quantity = decimal.RequireFromString(tc.qty)
			inv.Items[0].UnitPrice = decimal.RequireFromString(tc.price)
			inv.Items[0].Taxes = map[string]decimal.Decimal{entity.TaxIVA: decimal.RequireFromString(tc.pct)}

			out, err := testBuilder().Build(inv, testIssuer())
			require.NoError(t, err)
			c := out.Factura.Conceptos[0]
			require.NotNil(t, c.Impuestos)
			tr := c.Impuestos.Traslados.Traslado[0]
			assert.Equal(t, tc.base, c.Total)
			assert.Equal(t, tc.base, tr.Base)
			assert.Equal(t, tc.importe, tr.Importe)
		})
	}
}

func TestBuild_SinIVANoHayImpuestos(t *testing.T) {
	inv := testInvoice(t)
	inv.Items[0].Taxes = nil
	out, err := testBuilder().Build(inv, testIssuer())
	require.NoError(t, err)
	assert.Nil(t, out.Factura.Conceptos[0].Impuestos)

	raw, err := json.Marshal(out.Factura.Conceptos[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "impuestos")
}

// ── Ubicaciones ──

func TestBuild_IDsDeUbicacion(t *testing.T) {
	out, err := testBuilder().Build(testInvoice(t), testIssuer())
	require.NoError(t, err)

	u := out.Factura.Complemento.CartaPorte.Ubicaciones.Ubicacion
	require.Len(t, u, 3)
	assert.Equal(t, "OR000000", u[0].IDUbicacion)
	assert.Equal(t, "DE000001", u[1].IDUbicacion)
	assert.Equal(t, "DE000002", u[2].IDUbicacion)
	assert.Equal(t, "Origen", u[0].TipoUbicacion)
	assert.Equal(t, "Destino", u[1].TipoUbicacion)
}

func TestBuild_RFCYDistanciaPorUbicacion(t *testing.T) {
	out, err := testBuilder().Build(testInvoice(t), testIssuer())
	require.NoError(t, err)

	cp := out.Factura.Complemento.CartaPorte
	u := cp.Ubicaciones.Ubicacion
	assert.Equal(t, "TNO010101AB1", u[0].RFCRemitenteDestinatario, "origen con RFC del emisor")
	assert.Equal(t, "CBA020202CD2", u[1].RFCRemitenteDestinatario, "destino con RFC del receptor")

	assert.Nil(t, u[0].DistanciaRecorrida, "el origen no lleva distancia")
	require.NotNil(t, u[1].DistanciaRecorrida)
	assert.Equal(t, 245.0, *u[1].DistanciaRecorrida, "distancia truncada")
	assert.Equal(t, 245.0, cp.TotalDistRec)

	assert.Equal(t, "2026-03-10T08:00:00", u[0].FechaHoraSalidaLlegada)
	assert.Equal(t, "Monterrey", u[0].Domicilio.Municipio)
	assert.Empty(t, u[1].Domicilio.Municipio)
	assert.Equal(t, "01", u[1].Domicilio.Localidad)
}

func TestBuild_TransporteInternacional(t *testing.T) {
	inv := testInvoice(t)
	out, err := testBuilder().Build(inv, testIssuer())
	require.NoError(t, err)
	assert.Equal(t, "No", out.Factura.Complemento.CartaPorte.TranspInternac)

	inv.Shipment.Locations[2].Country = "USA"
	out, err = testBuilder().Build(inv, testIssuer())
	require.NoError(t, err)
	assert.Equal(t, "Si", out.Factura.Complemento.CartaPorte.TranspInternac)
}

// ── Mercancías y autotransporte ──

func TestBuild_Mercancias(t *testing.T) {
	out, err := testBuilder().Build(testInvoice(t), testIssuer())
	require.NoError(t, err)

	m := out.Factura.Complemento.CartaPorte.Mercancias
	assert.Equal(t, 2, m.NumTotalMercancias)
	assert.Equal(t, 750.0, m.PesoNetoTotal)
	assert.Equal(t, 1500.0, m.PesoBrutoTotal)
	assert.Equal(t, "KGM", m.UnidadPeso)

	assert.Empty(t, m.Mercancia[0].MaterialPeligroso)
	assert.Equal(t, "Si", m.Mercancia[1].MaterialPeligroso)
	assert.Equal(t, "1993", m.Mercancia[1].CveMaterialPeligroso)
}

func TestBuild_PeligrosoSinClaveNoSeDeclara(t *testing.T) {
	inv := testInvoice(t)
	inv.Shipment.Goods[1].DangerousKey = ""
	out, err := testBuilder().Build(inv, testIssuer())
	require.NoError(t, err)
	assert.Empty(t, out.Factura.Complemento.CartaPorte.Mercancias.Mercancia[1].MaterialPeligroso)
}

func TestBuild_DefaultsDelVehiculo(t *testing.T) {
	inv := testInvoice(t)
	inv.Shipment.Vehicle.Trailers = []entity.Trailer{{Plate: "REM001"}}
	out, err := testBuilder().Build(inv, testIssuer())
	require.NoError(t, err)

	auto := out.Factura.Complemento.CartaPorte.Mercancias.Autotransporte
	assert.Equal(t, "2025", auto.IdentificacionVehicular.AnioModeloVM)
	assert.Equal(t, "46.5", auto.IdentificacionVehicular.PesoBrutoVehicular)
	assert.Equal(t, "1200", auto.Seguros.PrimaSeguro)
	require.NotNil(t, auto.Remolques)
	assert.Equal(t, "CTR007", auto.Remolques.Remolque[0].SubTipoRem)
	assert.Equal(t, "TPAF01", auto.PermSCT)
	assert.Equal(t, "0X2XTXZ0X5X0X3X2X1X0", auto.NumPermisoSCT, "sin permiso del vehículo se usa el del traslado")
}

func TestBuild_PermisoDelVehiculo(t *testing.T) {
	inv := testInvoice(t)
	inv.Shipment.Vehicle.FederalPermit = "2242ALO20082021001011"
	out, err := testBuilder().Build(inv, testIssuer())
	require.NoError(t, err)

	auto := out.Factura.Complemento.CartaPorte.Mercancias.Autotransporte
	assert.Equal(t, "TPAF01", auto.PermSCT)
	assert.Equal(t, "2242ALO20082021001011", auto.NumPermisoSCT)
}

// ── Figuras y receptor ──

func TestBuild_FigurasOmitidasSiNoHay(t *testing.T) {
	out, err := testBuilder().Build(testInvoice(t), testIssuer())
	require.NoError(t, err)
	assert.Nil(t, out.Factura.Complemento.CartaPorte.FiguraTransporte)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "FiguraTransporte")
	assert.Contains(t, string(raw), `"Complemento"`)
}

func TestBuild_FigurasConLicenciaVacia(t *testing.T) {
	inv := testInvoice(t)
	inv.Shipment.Figures = []entity.TransportFigure{{Type: "01", RFC: "OPE800101XX1", Name: "Juan Pérez"}}
	out, err := testBuilder().Build(inv, testIssuer())
	require.NoError(t, err)

	require.NotNil(t, out.Factura.Complemento.CartaPorte.FiguraTransporte)
	raw, err := json.Marshal(out.Factura.Complemento.CartaPorte.FiguraTransporte)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"NumLicencia":""`)
}

func TestBuild_ReceptorPorUUIDOEnLinea(t *testing.T) {
	inv := testInvoice(t)
	out, err := testBuilder().Build(inv, testIssuer())
	require.NoError(t, err)
	r := out.Receptor
	assert.Empty(t, r.UUID)
	assert.Equal(t, "COMERCIALIZADORA DEL BAJIO", r.RazonSocial)
	assert.Equal(t, "37000", r.DomicilioFiscal)
	assert.Equal(t, "G01", r.UsoCFDI)
	assert.Equal(t, "PUE", r.MetodoDePago)
	require.NotNil(t, r.Email)

	inv.Recipient.ExternalUUID = "cliente-uuid"
	out, err = testBuilder().Build(inv, testIssuer())
	require.NoError(t, err)
	raw, err := json.Marshal(out.Receptor)
	require.NoError(t, err)
	assert.JSONEq(t, `{"uuid":"cliente-uuid"}`, string(raw))
}

func TestBuild_EmisorYCabecera(t *testing.T) {
	out, err := testBuilder().Build(testInvoice(t), entity.IssuerPlaceholder(""))
	require.NoError(t, err)
	assert.Equal(t, "account-uuid", out.Emisor.UUID, "sin UUID propio se usa la cuenta")
	assert.Equal(t, "2026-03-10 09:30:00", out.Factura.Fecha)
	assert.Equal(t, "4.0", out.Factura.Version)
	assert.Equal(t, "3.1", out.Factura.Complemento.CartaPorte.Version)
	assert.Equal(t, "3F2B7C1E-0000-4000-8000-00000000ABCD", out.Factura.Complemento.CartaPorte.IdCCP)
}

func TestBuild_SinCartaPorteFalla(t *testing.T) {
	inv := testInvoice(t)
	inv.Shipment = nil
	_, err := testBuilder().Build(inv, testIssuer())
	assert.ErrorIs(t, err, domain.ErrValidation)
}
