package facturify

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/pkg/logger"
)

// EmpresaClient consulta las empresas emisoras de la cuenta.
type EmpresaClient struct {
	api api
}

// NewEmpresaClient comparte TokenSource con Client.
func NewEmpresaClient(cfg ClientConfig, tokens TokenSource, log zerolog.Logger) *EmpresaClient {
	return &EmpresaClient{api: newAPI(cfg, tokens, log)}
}

// ListEmpresas GET /api/v1/empresa/.
func (c *EmpresaClient) ListEmpresas(ctx context.Context) (*dto.EmpresaListResponse, error) {
	resp, err := c.api.do(ctx, http.MethodGet, empresaPath, nil)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusUnauthorized {
		perr := ParseProviderError(resp.body)
		return nil, domain.NewAuthError("Facturify rechazó el token: "+perr.OriginalMessage, perr)
	}
	raw, err := c.api.decode(resp)
	if err != nil {
		return nil, err
	}
	var out dto.EmpresaListResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, domain.NewExternalServiceError("listado de empresas inválido", err)
	}
	c.api.log.Info().Int("count", len(out.Data)).Msg("empresas obtenidas de Facturify")
	return &out, nil
}

// GetEmpresaByRFC busca en el listado completo; nil si no existe.
func (c *EmpresaClient) GetEmpresaByRFC(ctx context.Context, rfc string) (*dto.FacturifyEmpresa, error) {
	list, err := c.ListEmpresas(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.ToUpper(strings.TrimSpace(rfc))
	for i := range list.Data {
		if strings.ToUpper(strings.TrimSpace(list.Data[i].RFC)) == want {
			return &list.Data[i], nil
		}
	}
	c.api.log.Warn().Str(logger.FieldRFC, want).Msg("empresa no encontrada en Facturify")
	return nil, nil
}
