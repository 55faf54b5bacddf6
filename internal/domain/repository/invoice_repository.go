package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice y sus hijos
// (conceptos, envío, ubicaciones, mercancías y figuras).
type InvoiceRepository interface {
	// Create persiste el agregado completo. El receptor debe tener ID.
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update actualiza estado y datos de timbrado: status, facturify_uuid,
	// facturify_payload, serie, folio, factura_id, provider, updated_at.
	Update(ctx context.Context, invoice *entity.Invoice) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
}
