package repository

import (
	"context"

	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
)

// CompanyGateway puerto de persistencia de emisores registrados en Facturify.
// La implementación vive en infrastructure.
type CompanyGateway interface {
	GetByRFC(ctx context.Context, rfc string) (*entity.Party, error)
	GetByExternalUUID(ctx context.Context, externalUUID string) (*entity.Party, error)
	Upsert(ctx context.Context, company *entity.Party) (*entity.Party, error)
}
