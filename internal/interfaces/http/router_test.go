package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
	apphttp "github.com/jhoicas/cartaporte-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeCartaPorte struct {
	inv      *entity.Invoice
	err      error
	raw      json.RawMessage
	executed int
	native   int
}

func (f *fakeCartaPorte) Execute(_ context.Context, _ dto.CartaPorteRequest) (*entity.Invoice, error) {
	f.executed++
	return f.inv, f.err
}

func (f *fakeCartaPorte) CreateFromProviderFormat(_ context.Context, _ dto.FacturifyCartaPorteRequest) (*entity.Invoice, error) {
	f.native++
	return f.inv, f.err
}

func (f *fakeCartaPorte) GetInvoice(_ context.Context, id uuid.UUID) (*entity.Invoice, error) {
	if f.inv == nil || f.inv.ID != id {
		return nil, domain.NewNotFoundError("factura no encontrada")
	}
	return f.inv, nil
}

func (f *fakeCartaPorte) GetProviderInvoice(_ context.Context, _ uuid.UUID) (json.RawMessage, error) {
	return f.raw, f.err
}

type fakeClients struct {
	raw json.RawMessage
	err error
}

func (f fakeClients) ListClients(context.Context, int, int) (json.RawMessage, error) { return f.raw, f.err }

type fakeRecipients struct{ list []*entity.Party }

func (f fakeRecipients) ListRecipients(context.Context, dto.PageRequest) ([]*entity.Party, error) {
	return f.list, nil
}

type fakeTokens struct {
	status dto.TokenState
	err    error
}

func (f fakeTokens) ObtainToken(context.Context) (*dto.JWTResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.JWTResponse{Token: "jwt-nuevo", ExpiresIn: 3600}, nil
}

func (f fakeTokens) RefreshToken(ctx context.Context) (*dto.JWTResponse, error) {
	return f.ObtainToken(ctx)
}

func (f fakeTokens) GetValidToken(context.Context) (string, error) { return "jwt-vigente", f.err }

func (f fakeTokens) TokenStatus(context.Context) (dto.TokenState, error) { return f.status, nil }

type fakeEmpresas struct{ err error }

func (f fakeEmpresas) ListEmpresas(context.Context) (*dto.EmpresaListResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.EmpresaListResponse{Data: []dto.FacturifyEmpresa{{UUID: "e-1", RFC: "TNO010101AB1"}}}, nil
}

func (f fakeEmpresas) GetEmpresaByRFC(_ context.Context, rfc string) (*dto.FacturifyEmpresa, error) {
	if rfc == "TNO010101AB1" {
		return &dto.FacturifyEmpresa{UUID: "e-1", RFC: rfc}, nil
	}
	return nil, f.err
}

type fakeSync struct{ n int }

func (f fakeSync) SyncCompanies(context.Context) (int, error) { return f.n, nil }

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

const cartaPorteBody = `{
  "facturify_issuer_uuid": "issuer-uuid",
  "cfdi_type": "ingreso",
  "recipient": {"legal_name": "COMERCIALIZADORA DEL BAJIO", "rfc": "CBA020202CD2", "tax_regime": "601",
    "address": {"street": "Av. Juárez", "exterior_number": "10", "zip_code": "37000"}},
  "expedition_place": "64000",
  "subtotal": "100",
  "total": "116",
  "items": [{"product_key": "78101802", "description": "Flete", "quantity": "2", "unit_key": "E48", "unit_price": "50", "tax_percentage": "16"}],
  "shipment": {
    "transport_mode": "01", "permit_type": "TPAF01", "permit_number": "0X2XTXZ0X5X0X3X2X1X0",
    "total_weight_kg": "1000",
    "vehicle": {"configuration": "C2", "plate": "ABC1234"},
    "locations": [
      {"type": "origin", "datetime": "2026-02-01T08:00:00", "street": "Calle 1", "state": "NLE", "zip_code": "64000"},
      {"type": "destination", "datetime": "2026-02-01T14:00:00", "street": "Calle 2", "state": "GTO", "zip_code": "37000"}
    ],
    "goods": [{"description": "Cajas", "product_key": "24112700", "quantity": "10", "unit_key": "XBX", "weight_kg": "1000", "value": "100"}]
  }
}`

type testDeps struct {
	cartaPorte *fakeCartaPorte
	clients    fakeClients
	tokens     fakeTokens
	empresas   fakeEmpresas
	recipients fakeRecipients
	secret     string
}

func newApp(d testDeps) *fiber.App {
	if d.cartaPorte == nil {
		d.cartaPorte = &fakeCartaPorte{}
	}
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		CartaPorte: d.cartaPorte,
		Clients:    d.clients,
		Recipients: d.recipients,
		Tokens:     d.tokens,
		Empresas:   d.empresas,
		Companies:  fakeSync{n: 2},
		Validator:  dto.NewValidator(),
		JWTSecret:  d.secret,
		AppName:    "cartaporte-api",
		Log:        zerolog.Nop(),
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func issuedInvoice() *entity.Invoice {
	return &entity.Invoice{
		ID:               uuid.New(),
		Status:           entity.InvoiceStatusIssued,
		ProviderUUID:     "5F1C-UUID",
		ProviderResponse: json.RawMessage(`{"data":{"cfdi_uuid":"5F1C-UUID"}}`),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Salud
// ──────────────────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	status, body := call(t, newApp(testDeps{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

// ──────────────────────────────────────────────────────────────────────────────
// CFDI
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateCartaPorte_201(t *testing.T) {
	svc := &fakeCartaPorte{inv: issuedInvoice()}
	status, body := call(t, newApp(testDeps{cartaPorte: svc}), http.MethodPost, "/api/v1/cfdi/carta-porte", cartaPorteBody)

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, svc.inv.ID.String(), body["invoice_id"])
	assert.Equal(t, "issued", body["status"])
	assert.Equal(t, "5F1C-UUID", body["facturify_uuid"])
	assert.NotNil(t, body["facturify_response"])
}

func TestCreateCartaPorte_422NoLlamaAlServicio(t *testing.T) {
	svc := &fakeCartaPorte{inv: issuedInvoice()}
	bad := strings.Replace(cartaPorteBody, `"rfc": "CBA020202CD2"`, `"rfc": "XXX"`, 1)

	status, body := call(t, newApp(testDeps{cartaPorte: svc}), http.MethodPost, "/api/v1/cfdi/carta-porte", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "VALIDATION", body["code"])
	assert.NotEmpty(t, body["details"])
	assert.Zero(t, svc.executed)
}

func TestCreateCartaPorte_CuerpoInvalido(t *testing.T) {
	status, body := call(t, newApp(testDeps{}), http.MethodPost, "/api/v1/cfdi/carta-porte", `{"subtotal":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_BODY", body["code"])
}

func TestCreateCartaPorte_ErrorDelProveedor400ConHint(t *testing.T) {
	svc := &fakeCartaPorte{err: domain.NewExternalServiceError("El RFC del receptor no está activo en el SAT", errors.New("CFDI40148"))}
	status, body := call(t, newApp(testDeps{cartaPorte: svc}), http.MethodPost, "/api/v1/cfdi/carta-porte", cartaPorteBody)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "external_service_error", body["type"])
	assert.Equal(t, "El RFC del receptor no está activo en el SAT", body["message"])
	assert.Equal(t, "Verifica los datos fiscales del receptor y emisor", body["hint"])
}

func TestCreateCartaPorte_ErrorInesperado500(t *testing.T) {
	svc := &fakeCartaPorte{err: errors.New("conexión cerrada")}
	status, body := call(t, newApp(testDeps{cartaPorte: svc}), http.MethodPost, "/api/v1/cfdi/carta-porte", cartaPorteBody)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL", body["code"])
	assert.NotContains(t, body["message"], "conexión", "no expone el error interno")
}

func TestCreateFromProviderFormat_AmbasRutas(t *testing.T) {
	svc := &fakeCartaPorte{inv: issuedInvoice()}
	app := newApp(testDeps{cartaPorte: svc})

	for _, path := range []string{"/api/v1/cfdi/carta-porte/provider-format", "/api/v1/cfdi/carta-porte/facturify"} {
		status, _ := call(t, app, http.MethodPost, path, `{"emisor":{"uuid":"e"}}`)
		assert.Equal(t, http.StatusCreated, status, path)
	}
	assert.Equal(t, 2, svc.native)
	assert.Zero(t, svc.executed)
}

func TestGetByID(t *testing.T) {
	svc := &fakeCartaPorte{inv: issuedInvoice()}
	app := newApp(testDeps{cartaPorte: svc})

	status, body := call(t, app, http.MethodGet, "/api/v1/cfdi/"+svc.inv.ID.String(), "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "issued", body["facturify_status"])

	status, body = call(t, app, http.MethodGet, "/api/v1/cfdi/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])

	status, _ = call(t, app, http.MethodGet, "/api/v1/cfdi/no-es-uuid", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestGetProviderInvoice_Passthrough(t *testing.T) {
	svc := &fakeCartaPorte{inv: issuedInvoice(), raw: json.RawMessage(`{"data":{"uuid":"5F1C-UUID","xml":"<cfdi/>"}}`)}
	status, body := call(t, newApp(testDeps{cartaPorte: svc}), http.MethodGet, "/api/v1/cfdi/"+svc.inv.ID.String()+"/provider", "")

	assert.Equal(t, http.StatusOK, status)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "<cfdi/>", data["xml"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Clientes
// ──────────────────────────────────────────────────────────────────────────────

func TestClients_Passthrough(t *testing.T) {
	app := newApp(testDeps{clients: fakeClients{raw: json.RawMessage(`{"data":[{"rfc":"AAA010101AAA"}]}`)}})
	status, body := call(t, app, http.MethodGet, "/api/v1/clients?limit=10", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)
}

func TestClients_LimiteFueraDeRango(t *testing.T) {
	status, body := call(t, newApp(testDeps{}), http.MethodGet, "/api/v1/clients?limit=500", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "VALIDATION", body["code"])
}

func TestClients_FalloDelProveedor502(t *testing.T) {
	app := newApp(testDeps{clients: fakeClients{err: domain.NewExternalServiceError("timeout", nil)}})
	status, body := call(t, app, http.MethodGet, "/api/v1/clients", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "Error al comunicarse con Facturify: timeout", body["message"])
}

func TestClients_Local(t *testing.T) {
	id := uuid.New()
	app := newApp(testDeps{recipients: fakeRecipients{list: []*entity.Party{{ID: &id, LegalName: "UNO", RFC: "AAA010101AAA"}}}})
	status, body := call(t, app, http.MethodGet, "/api/v1/clients/local", "")

	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 50, body["limit"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, id.String(), data[0].(map[string]any)["id"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Facturify
// ──────────────────────────────────────────────────────────────────────────────

func TestFacturifyAuth_ObtenerYRenovar(t *testing.T) {
	app := newApp(testDeps{})

	status, body := call(t, app, http.MethodPost, "/api/v1/facturify/auth/token", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Token obtenido", body["message"])
	assert.Equal(t, "jwt-nuevo", body["jwt"].(map[string]any)["token"])

	status, body = call(t, app, http.MethodPost, "/api/v1/facturify/auth/token/refresh", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Token renovado", body["message"])
}

func TestFacturifyAuth_CredencialesRechazadas401(t *testing.T) {
	app := newApp(testDeps{tokens: fakeTokens{err: domain.NewAuthError("credenciales inválidas", nil)}})
	status, body := call(t, app, http.MethodPost, "/api/v1/facturify/auth/token", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "PROVIDER_AUTH", body["code"])
}

func TestFacturifyAuth_Estado(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute)
	app := newApp(testDeps{tokens: fakeTokens{status: dto.TokenState{
		HasToken: true, TTLSeconds: 600, OriginalExpiresIn: 3600, ExpiresAt: &exp,
	}}})

	status, body := call(t, app, http.MethodGet, "/api/v1/facturify/auth/token/status", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["has_token"])
	assert.EqualValues(t, 600, body["ttl"])
	assert.EqualValues(t, 3600, body["expires_in"])

	status, body = call(t, newApp(testDeps{}), http.MethodGet, "/api/v1/facturify/auth/token/status", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["has_token"])
	assert.Nil(t, body["ttl"])
}

func TestFacturifyAuth_TokenVigente(t *testing.T) {
	app := newApp(testDeps{tokens: fakeTokens{status: dto.TokenState{HasToken: true, TTLSeconds: -5}}})
	status, body := call(t, app, http.MethodGet, "/api/v1/facturify/auth/token", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "jwt-vigente", body["token"])
	assert.EqualValues(t, 0, body["ttl"], "el ttl nunca es negativo")
}

func TestEmpresas(t *testing.T) {
	app := newApp(testDeps{})

	status, body := call(t, app, http.MethodGet, "/api/v1/facturify/empresa", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = call(t, app, http.MethodGet, "/api/v1/facturify/empresa/rfc/TNO010101AB1", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "e-1", body["data"].(map[string]any)["uuid"])

	status, body = call(t, app, http.MethodGet, "/api/v1/facturify/empresa/rfc/ZZZ010101ZZZ", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Empresa con RFC 'ZZZ010101ZZZ' no encontrada", body["message"])

	status, body = call(t, app, http.MethodPost, "/api/v1/facturify/empresa/sync", "")
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["synced"])
}

func TestEmpresas_FalloDelProveedor502(t *testing.T) {
	app := newApp(testDeps{empresas: fakeEmpresas{err: domain.NewAuthError("Unauthenticated.", nil)}})
	status, _ := call(t, app, http.MethodGet, "/api/v1/facturify/empresa", "")
	assert.Equal(t, http.StatusBadGateway, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scopes por grupo de rutas
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_ScopesPorGrupo(t *testing.T) {
	svc := &fakeCartaPorte{inv: issuedInvoice()}
	app := newApp(testDeps{cartaPorte: svc, secret: testJWTSecret, clients: fakeClients{raw: json.RawMessage(`{}`)}})

	send := func(path, auth string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	cfdi := tokenForScope(t, apphttp.ScopeCFDI)
	admin := tokenForScope(t, apphttp.ScopeAdmin)

	assert.Equal(t, http.StatusOK, send("/health", ""), "health es público")
	assert.Equal(t, http.StatusUnauthorized, send("/api/v1/clients", ""))
	assert.Equal(t, http.StatusOK, send("/api/v1/clients", cfdi))
	assert.Equal(t, http.StatusOK, send("/api/v1/cfdi/"+svc.inv.ID.String(), admin))
	assert.Equal(t, http.StatusForbidden, send("/api/v1/facturify/auth/token/status", cfdi))
	assert.Equal(t, http.StatusOK, send("/api/v1/facturify/auth/token/status", admin))
}

func TestCreateCartaPorte_Duplicado409(t *testing.T) {
	svc := &fakeCartaPorte{err: fmt.Errorf("insert: %w", domain.ErrDuplicate)}
	status, body := call(t, newApp(testDeps{cartaPorte: svc}), http.MethodPost, "/api/v1/cfdi/carta-porte", cartaPorteBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["code"])
}
