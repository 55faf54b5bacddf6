package facturify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cartaporte-api/internal/application/billing"
	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain"
)

const (
	facturaPath = "/api/v1/factura"
	clientePath = "/api/v1/cliente/"
	empresaPath = "/api/v1/empresa/"
)

// TokenSource entrega un bearer vigente. *AuthClient lo implementa.
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, error)
}

// ClientConfig parámetros del cliente de facturas.
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// api transporte compartido por los clientes de Facturify: bearer, reintentos solo ante
// fallas de red y lectura acotada del cuerpo.
type api struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	retry      RetryPolicy
	log        zerolog.Logger
}

func (cfg ClientConfig) withDefaults() ClientConfig {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	return cfg
}

func (cfg ClientConfig) policy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     cfg.MaxRetries,
		InitialInterval: cfg.RetryBackoff,
		MaxInterval:     4 * cfg.RetryBackoff,
		Multiplier:      2,
	}
}

// RetryBudget lo más que puede tardar una llamada al PAC contando reintentos y esperas.
func (cfg ClientConfig) RetryBudget() time.Duration {
	c := cfg.withDefaults()
	return c.policy().Budget(c.Timeout)
}

func newAPI(cfg ClientConfig, tokens TokenSource, log zerolog.Logger) api {
	cfg = cfg.withDefaults()
	return api{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		retry:      cfg.policy(),
		log:        log,
	}
}

type apiResponse struct {
	status int
	body   []byte
}

func (a api) do(ctx context.Context, method, path string, payload any) (*apiResponse, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("facturify: serializar payload: %w", err)
		}
	}

	token, err := a.tokens.GetValidToken(ctx)
	if err != nil {
		return nil, err
	}

	var out *apiResponse
	err = backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("facturify: crear request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := a.httpClient.Do(req)
		if err != nil {
			a.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("error de red con Facturify, reintentando")
			return err
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return err
		}
		out = &apiResponse{status: resp.StatusCode, body: raw}
		return nil
	}, a.retry.backOff(ctx))
	if err != nil {
		return nil, domain.NewExternalServiceError("error de comunicación con Facturify", err)
	}
	return out, nil
}

// decode interpreta la respuesta: success=false o status >= 400 son errores del proveedor.
func (a api) decode(resp *apiResponse) (json.RawMessage, error) {
	var probe struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(resp.body, &probe); err != nil {
		if resp.status >= http.StatusBadRequest {
			return nil, a.providerError(resp)
		}
		return nil, domain.NewExternalServiceError("respuesta no JSON de Facturify", err)
	}
	if (probe.Success != nil && !*probe.Success) || resp.status >= http.StatusBadRequest {
		return nil, a.providerError(resp)
	}
	return json.RawMessage(resp.body), nil
}

func (a api) providerError(resp *apiResponse) error {
	perr := ParseProviderError(resp.body)
	a.log.Error().
		Int("status", resp.status).
		Str("code", perr.Code).
		Str("pac", perr.PAC).
		Str("raw", string(resp.body)).
		Msg("Facturify devolvió error")
	msg := perr.UserMessage
	if msg == "" {
		msg = fmt.Sprintf("Facturify respondió %d", resp.status)
	}
	return domain.NewExternalServiceError(msg, perr)
}

// ── Facturas ──────────────────────────────────────────────────────────────────

// Client emite y consulta CFDI en Facturify.
type Client struct {
	api api
}

// NewClient tokens suele ser el *AuthClient del proceso.
func NewClient(cfg ClientConfig, tokens TokenSource, log zerolog.Logger) *Client {
	return &Client{api: newAPI(cfg, tokens, log)}
}

var _ billing.CFDIProvider = (*Client)(nil)

// CreateCartaPorte POST /api/v1/factura.
func (c *Client) CreateCartaPorte(ctx context.Context, payload *dto.FacturifyCartaPorteRequest) (json.RawMessage, error) {
	resp, err := c.api.do(ctx, http.MethodPost, facturaPath, payload)
	if err != nil {
		return nil, err
	}
	return c.api.decode(resp)
}

// GetInvoice GET /api/v1/factura/{uuid}.
func (c *Client) GetInvoice(ctx context.Context, cfdiUUID string) (json.RawMessage, error) {
	resp, err := c.api.do(ctx, http.MethodGet, facturaPath+"/"+url.PathEscape(cfdiUUID), nil)
	if err != nil {
		return nil, err
	}
	return c.api.decode(resp)
}

// ListClients GET /api/v1/cliente/ paginado; se devuelve tal cual.
func (c *Client) ListClients(ctx context.Context, limit, offset int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	resp, err := c.api.do(ctx, http.MethodGet, clientePath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.api.decode(resp)
}
