package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
	"github.com/jhoicas/cartaporte-api/internal/domain/repository"
)

var _ repository.ClientGateway = (*ClientRepo)(nil)

// ClientRepo receptores de CFDI, únicos por RFC.
type ClientRepo struct {
	q Querier
}

// NewClientRepository construye el adaptador. Pasar pool o tx (Querier).
func NewClientRepository(q Querier) *ClientRepo {
	return &ClientRepo{q: q}
}

const clientColumns = `id, legal_name, rfc, tax_regime, email,
	street, exterior_number, neighborhood, city, state, country, zip_code,
	facturify_uuid, created_at, updated_at`

// GetByRFC obtiene un cliente por RFC.
func (r *ClientRepo) GetByRFC(ctx context.Context, rfc string) (*entity.Party, error) {
	row := r.q.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE rfc = $1`, rfc)
	p, err := scanParty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client by rfc: %w", err)
	}
	return p, nil
}

// Upsert inserta el cliente o actualiza sus datos fiscales si el RFC ya existe.
// El UUID de Facturify solo se sobreescribe cuando llega uno nuevo.
func (r *ClientRepo) Upsert(ctx context.Context, party *entity.Party) (*entity.Party, error) {
	id := uuid.New()
	if party.ID != nil {
		id = *party.ID
	}
	now := time.Now().UTC()
	query := `
		INSERT INTO clients (id, legal_name, rfc, tax_regime, email,
		                     street, exterior_number, neighborhood, city, state, country, zip_code,
		                     facturify_uuid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (rfc) DO UPDATE
		SET legal_name      = EXCLUDED.legal_name,
		    tax_regime      = EXCLUDED.tax_regime,
		    email           = COALESCE(EXCLUDED.email, clients.email),
		    street          = EXCLUDED.street,
		    exterior_number = EXCLUDED.exterior_number,
		    neighborhood    = EXCLUDED.neighborhood,
		    city            = EXCLUDED.city,
		    state           = EXCLUDED.state,
		    country         = EXCLUDED.country,
		    zip_code        = EXCLUDED.zip_code,
		    facturify_uuid  = COALESCE(EXCLUDED.facturify_uuid, clients.facturify_uuid),
		    updated_at      = EXCLUDED.updated_at
		RETURNING ` + clientColumns
	a := party.Address
	row := r.q.QueryRow(ctx, query,
		id, party.LegalName, party.RFC, party.TaxRegime, nullIfEmpty(party.Email),
		a.Street, a.ExteriorNumber, nullIfEmpty(a.Neighborhood), nullIfEmpty(a.City), a.State, a.Country, a.ZipCode,
		nullIfEmpty(party.ExternalUUID), now,
	)
	saved, err := scanParty(row)
	if err != nil {
		return nil, fmt.Errorf("upsert client: %w", err)
	}
	return saved, nil
}

// List clientes ordenados por razón social.
func (r *ClientRepo) List(ctx context.Context, limit, offset int) ([]*entity.Party, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.q.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY legal_name, rfc LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()
	var list []*entity.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// scanParty lee las columnas de clientColumns / companyColumns (mismo orden).
func scanParty(row pgx.Row) (*entity.Party, error) {
	var (
		p                              entity.Party
		id                             uuid.UUID
		email, neighborhood, city, ext *string
	)
	err := row.Scan(
		&id, &p.LegalName, &p.RFC, &p.TaxRegime, &email,
		&p.Address.Street, &p.Address.ExteriorNumber, &neighborhood, &city,
		&p.Address.State, &p.Address.Country, &p.Address.ZipCode,
		&ext, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ID = &id
	p.Email = derefStr(email)
	p.Address.Neighborhood = derefStr(neighborhood)
	p.Address.City = derefStr(city)
	p.ExternalUUID = derefStr(ext)
	return &p, nil
}
