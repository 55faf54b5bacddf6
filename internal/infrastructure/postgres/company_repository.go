package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
	"github.com/jhoicas/cartaporte-api/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyGateway.
var _ repository.CompanyGateway = (*CompanyRepo)(nil)

// CompanyRepo emisores registrados en Facturify.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas emisoras.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

const companyColumns = `id, legal_name, rfc, tax_regime, email,
	street, exterior_number, neighborhood, city, state, country, zip_code,
	facturify_uuid, created_at, updated_at`

// GetByRFC obtiene una empresa por RFC.
func (r *CompanyRepo) GetByRFC(ctx context.Context, rfc string) (*entity.Party, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE rfc = $1`, rfc)
}

// GetByExternalUUID obtiene una empresa por su UUID en Facturify.
func (r *CompanyRepo) GetByExternalUUID(ctx context.Context, externalUUID string) (*entity.Party, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE facturify_uuid = $1`, externalUUID)
}

func (r *CompanyRepo) getOne(ctx context.Context, query, arg string) (*entity.Party, error) {
	p, err := scanParty(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return p, nil
}

// Upsert inserta o actualiza por RFC (sincronización con /empresa de Facturify).
func (r *CompanyRepo) Upsert(ctx context.Context, company *entity.Party) (*entity.Party, error) {
	id := uuid.New()
	if company.ID != nil {
		id = *company.ID
	}
	query := `
		INSERT INTO companies (id, legal_name, rfc, tax_regime, email,
		                       street, exterior_number, neighborhood, city, state, country, zip_code,
		                       facturify_uuid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (rfc) DO UPDATE
		SET legal_name      = EXCLUDED.legal_name,
		    tax_regime      = EXCLUDED.tax_regime,
		    email           = EXCLUDED.email,
		    street          = EXCLUDED.street,
		    exterior_number = EXCLUDED.exterior_number,
		    neighborhood    = EXCLUDED.neighborhood,
		    city            = EXCLUDED.city,
		    state           = EXCLUDED.state,
		    country         = EXCLUDED.country,
		    zip_code        = EXCLUDED.zip_code,
		    facturify_uuid  = COALESCE(EXCLUDED.facturify_uuid, companies.facturify_uuid),
		    updated_at      = EXCLUDED.updated_at
		RETURNING ` + companyColumns
	a := company.Address
	saved, err := scanParty(r.q.QueryRow(ctx, query,
		id, company.LegalName, company.RFC, company.TaxRegime, nullIfEmpty(company.Email),
		a.Street, a.ExteriorNumber, nullIfEmpty(a.Neighborhood), nullIfEmpty(a.City), a.State, a.Country, a.ZipCode,
		nullIfEmpty(company.ExternalUUID), time.Now().UTC(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("company facturify_uuid already registered: %w: %w", domain.ErrDuplicate, err)
		}
		return nil, fmt.Errorf("upsert company: %w", err)
	}
	return saved, nil
}
