package billing

import (
	"context"
	"encoding/json"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
)

// CFDIProvider puerto hacia el PAC. La implementación (Facturify) reintenta errores de red
// y devuelve el cuerpo JSON crudo de la respuesta exitosa.
type CFDIProvider interface {
	CreateCartaPorte(ctx context.Context, payload *dto.FacturifyCartaPorteRequest) (json.RawMessage, error)
	GetInvoice(ctx context.Context, cfdiUUID string) (json.RawMessage, error)
}

// PayloadRenderer traduce el agregado Invoice + emisor al esquema del proveedor.
type PayloadRenderer interface {
	Build(inv *entity.Invoice, issuer entity.Party) (*dto.FacturifyCartaPorteRequest, error)
}

// EmpresaSource empresas emisoras registradas en la cuenta del PAC.
type EmpresaSource interface {
	ListEmpresas(ctx context.Context) (*dto.EmpresaListResponse, error)
}
