package billing

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
)

// stampResult datos de timbrado leídos de la respuesta del PAC.
type stampResult struct {
	UUID string
	Meta entity.IssueMetadata
}

// parseStampResponse busca el UUID fiscal en data.cfdi_uuid, cfdi_uuid o data.cfdi.cfdi_uuid
// (en ese orden). Una respuesta no JSON o sin UUID devuelve UUID vacío.
func parseStampResponse(raw json.RawMessage) stampResult {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return stampResult{}
	}
	data, _ := body["data"].(map[string]any)
	if data == nil {
		data = map[string]any{}
	}

	uuid := asString(data["cfdi_uuid"])
	if uuid == "" {
		uuid = asString(body["cfdi_uuid"])
	}
	if uuid == "" {
		if cfdi, ok := data["cfdi"].(map[string]any); ok {
			uuid = asString(cfdi["cfdi_uuid"])
		}
	}

	return stampResult{
		UUID: uuid,
		Meta: entity.IssueMetadata{
			Serie:     asString(data["serie"]),
			Folio:     asInt(data["folio"]),
			FacturaID: asString(data["factura_id"]),
			Provider:  asString(data["provider"]),
		},
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func asInt(v any) *int {
	switch t := v.(type) {
	case float64:
		n := int(t)
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}
