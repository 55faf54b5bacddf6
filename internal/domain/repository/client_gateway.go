package repository

import (
	"context"

	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
)

// ClientGateway puerto de persistencia de receptores (clientes) identificados por RFC.
type ClientGateway interface {
	// GetByRFC devuelve nil, nil si no existe.
	GetByRFC(ctx context.Context, rfc string) (*entity.Party, error)
	// Upsert inserta o actualiza por RFC. Seguro ante llamadas concurrentes con el mismo RFC.
	Upsert(ctx context.Context, party *entity.Party) (*entity.Party, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Party, error)
}
