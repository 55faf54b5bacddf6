package facturify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/internal/infrastructure/facturify"
)

type staticToken string

func (s staticToken) GetValidToken(context.Context) (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) GetValidToken(context.Context) (string, error) {
	return "", domain.NewAuthError("sin credenciales", nil)
}

func clientConfig(url string) facturify.ClientConfig {
	return facturify.ClientConfig{BaseURL: url, Timeout: 2 * time.Second, MaxRetries: 3, RetryBackoff: time.Millisecond}
}

func TestCreateCartaPorte_Exito(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/factura", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"success":true,"data":{"cfdi_uuid":"ABC-123"}}`))
	}))
	defer srv.Close()

	c := facturify.NewClient(clientConfig(srv.URL), staticToken("tok"), zerolog.Nop())
	raw, err := c.CreateCartaPorte(context.Background(), &dto.FacturifyCartaPorteRequest{Emisor: dto.FacturifyEmisor{UUID: "e"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"cfdi_uuid":"ABC-123"}}`, string(raw))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Contains(t, gotBody, "factura")
}

func TestCreateCartaPorte_SuccessFalseEsErrorDelProveedor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"code":"CFDI40148","message":"Rechazo (SAT: RFC no activo)"}`))
	}))
	defer srv.Close()

	c := facturify.NewClient(clientConfig(srv.URL), staticToken("tok"), zerolog.Nop())
	_, err := c.CreateCartaPorte(context.Background(), &dto.FacturifyCartaPorteRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalService)
	assert.Equal(t, "El RFC del receptor no está activo en el SAT. Detalle: RFC no activo", domain.Message(err))

	var perr *facturify.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "CFDI40148", perr.Code)
}

func TestCreateCartaPorte_StatusDeErrorNoSeReintenta(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Datos inválidos","errors":[{"field":"receptor.rfc","message":"requerido"}]}`))
	}))
	defer srv.Close()

	c := facturify.NewClient(clientConfig(srv.URL), staticToken("tok"), zerolog.Nop())
	_, err := c.CreateCartaPorte(context.Background(), &dto.FacturifyCartaPorteRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalService)
	assert.Contains(t, domain.Message(err), "receptor.rfc: requerido")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetInvoice_ReintentaErroresDeRed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		assert.Equal(t, "/api/v1/factura/ABC-123", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"uuid":"ABC-123"}}`))
	}))
	defer srv.Close()

	c := facturify.NewClient(clientConfig(srv.URL), staticToken("tok"), zerolog.Nop())
	raw, err := c.GetInvoice(context.Background(), "ABC-123")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ABC-123")
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestGetInvoice_AgotaReintentos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := facturify.NewClient(clientConfig(url), staticToken("tok"), zerolog.Nop())
	_, err := c.GetInvoice(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalService)
}

func TestListClients_Paginacion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/cliente/", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "20", r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := facturify.NewClient(clientConfig(srv.URL), staticToken("tok"), zerolog.Nop())
	raw, err := c.ListClients(context.Background(), 10, 20)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(raw))
}

func TestClient_ErrorDeTokenSePropaga(t *testing.T) {
	c := facturify.NewClient(clientConfig("http://127.0.0.1:0"), failingToken{}, zerolog.Nop())
	_, err := c.ListClients(context.Background(), 1, 0)
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestClient_RespuestaNoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := facturify.NewClient(clientConfig(srv.URL), staticToken("tok"), zerolog.Nop())
	_, err := c.GetInvoice(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrExternalService)
}

// ── Empresas ──

const empresasBody = `{"data":[
	{"uuid":"e-1","razon_social":"UNO","rfc":"AAA010101AAA","cp":"64000"},
	{"uuid":"e-2","razon_social":"DOS","rfc":" tno010101ab1 ","cp":"37000"}
],"meta":{"pagination":{"total":2,"count":2,"per_page":50,"current_page":1,"total_pages":1,"links":[]}}}`

func TestEmpresaClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/empresa/", r.URL.Path)
		_, _ = w.Write([]byte(empresasBody))
	}))
	defer srv.Close()
	c := facturify.NewEmpresaClient(clientConfig(srv.URL), staticToken("tok"), zerolog.Nop())
	ctx := context.Background()

	list, err := c.ListEmpresas(ctx)
	require.NoError(t, err)
	assert.Len(t, list.Data, 2)
	assert.Equal(t, 2, list.Meta.Pagination.Total)

	e, err := c.GetEmpresaByRFC(ctx, "TNO010101AB1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "e-2", e.UUID)

	e, err = c.GetEmpresaByRFC(ctx, "ZZZ010101ZZZ")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestEmpresaClient_401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthenticated."}`))
	}))
	defer srv.Close()
	c := facturify.NewEmpresaClient(clientConfig(srv.URL), staticToken("tok"), zerolog.Nop())

	_, err := c.ListEmpresas(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestRetryBudget(t *testing.T) {
	// 3 intentos de 30 s + esperas de 2 s y 4 s.
	assert.Equal(t, 96*time.Second, facturify.ClientConfig{}.RetryBudget())
	assert.Equal(t, 96*time.Second, facturify.ClientConfig{Timeout: 30 * time.Second, MaxRetries: 3, RetryBackoff: 2 * time.Second}.RetryBudget())
	// 5 intentos: la espera se topa en 4 × backoff.
	assert.Equal(t, 172*time.Second, facturify.ClientConfig{Timeout: 30 * time.Second, MaxRetries: 5, RetryBackoff: 2 * time.Second}.RetryBudget())

	// 3 intentos de 10 s + 2 s + 4 s.
	assert.Equal(t, 36*time.Second, facturify.DefaultAuthRetry().Budget(10*time.Second))
	assert.Equal(t, 10*time.Second, facturify.RetryPolicy{}.Budget(10*time.Second), "sin reintentos, un solo intento")
}
