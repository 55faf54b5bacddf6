package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
	"github.com/jhoicas/cartaporte-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
// Create debe correr dentro de una tx: escribe cabecera, conceptos y complemento.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// trailerRow forma JSONB de un remolque.
type trailerRow struct {
	Subtype string `json:"subtype"`
	Plate   string `json:"plate"`
}

// Create persiste el agregado completo.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.Recipient.ID == nil {
		return domain.NewValidationError("el receptor debe persistirse antes que la factura")
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	query := `
		INSERT INTO invoices (id, issuer_id, recipient_id, type, complement, currency,
		                      subtotal, total, cfdi_use, payment_form, payment_method, expedition_place,
		                      status, facturify_uuid, facturify_payload, serie, folio, factura_id, provider,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.IssuerID, *inv.Recipient.ID, string(inv.Type), string(inv.Complement), inv.Currency,
		inv.Subtotal.Amount, inv.Total.Amount, inv.CFDIUse, inv.PaymentForm, inv.PaymentMethod, inv.ExpeditionPlace,
		string(inv.Status), nullIfEmpty(inv.ProviderUUID), rawOrNil(inv.ProviderResponse),
		nullIfEmpty(inv.Serie), inv.Folio, nullIfEmpty(inv.FacturaID), nullIfEmpty(inv.Provider),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice already exists: %w: %w", domain.ErrDuplicate, err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	for i, it := range inv.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO invoice_items (invoice_id, position, product_key, description, quantity, unit_key, unit_price, taxes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			inv.ID, i, it.ProductKey, it.Description, it.Quantity, it.UnitKey, it.UnitPrice, taxesJSON(it.Taxes),
		)
		if err != nil {
			return fmt.Errorf("insert invoice item %d: %w", i, err)
		}
	}

	if inv.Shipment != nil {
		if err := r.createShipment(ctx, inv.ID, inv.Shipment); err != nil {
			return err
		}
	}
	return nil
}

func (r *InvoiceRepo) createShipment(ctx context.Context, invoiceID uuid.UUID, s *entity.Shipment) error {
	v := s.Vehicle
	trailers := make([]trailerRow, 0, len(v.Trailers))
	for _, t := range v.Trailers {
		trailers = append(trailers, trailerRow{Subtype: t.Subtype, Plate: t.Plate})
	}
	trailersJSON, err := json.Marshal(trailers)
	if err != nil {
		return fmt.Errorf("marshal trailers: %w", err)
	}

	shipmentID := uuid.New()
	_, err = r.q.Exec(ctx, `
		INSERT INTO shipments (id, invoice_id, transport_mode, permit_type, permit_number,
		                       total_distance_km, total_weight_kg,
		                       vehicle_configuration, vehicle_plate, federal_permit,
		                       insurance_company, insurance_policy,
		                       vehicle_model_year, vehicle_gross_weight, insurance_premium, trailers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		shipmentID, invoiceID, string(s.TransportMode), s.PermitType, s.PermitNumber,
		s.TotalDistanceKm, s.TotalWeightKg,
		v.Configuration, v.Plate, nullIfEmpty(v.FederalPermit),
		nullIfEmpty(v.InsuranceCompany), nullIfEmpty(v.InsurancePolicy),
		nullIfEmpty(v.ModelYear), nullIfEmpty(v.GrossWeight), nullIfEmpty(v.InsurancePremium), trailersJSON,
	)
	if err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}

	for i, l := range s.Locations {
		_, err := r.q.Exec(ctx, `
			INSERT INTO shipment_locations (shipment_id, position, type, datetime, street, exterior_number,
			                                neighborhood, city, state, country, zip_code,
			                                latitude, longitude, reference, locality)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			shipmentID, i, string(l.Type), l.DateTime, l.Street, l.ExteriorNumber,
			nullIfEmpty(l.Neighborhood), nullIfEmpty(l.City), l.State, l.Country, l.ZipCode,
			l.Latitude, l.Longitude, nullIfEmpty(l.Reference), nullIfEmpty(l.Locality),
		)
		if err != nil {
			return fmt.Errorf("insert shipment location %d: %w", i, err)
		}
	}

	for i, g := range s.Goods {
		_, err := r.q.Exec(ctx, `
			INSERT INTO shipment_goods (shipment_id, position, description, product_key, quantity, unit_key,
			                            weight_kg, value, dangerous_material, dangerous_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			shipmentID, i, g.Description, g.ProductKey, g.Quantity, g.UnitKey,
			g.WeightKg, g.Value, g.DangerousMaterial, nullIfEmpty(g.DangerousKey),
		)
		if err != nil {
			return fmt.Errorf("insert shipment goods %d: %w", i, err)
		}
	}

	for i, f := range s.Figures {
		_, err := r.q.Exec(ctx, `
			INSERT INTO transport_figures (shipment_id, position, type, rfc, name, license, role_description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			shipmentID, i, f.Type, f.RFC, f.Name, nullIfEmpty(f.License), nullIfEmpty(f.RoleDescription),
		)
		if err != nil {
			return fmt.Errorf("insert transport figure %d: %w", i, err)
		}
	}
	return nil
}

// Update actualiza estado y datos de timbrado.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET status            = $2,
		    facturify_uuid    = COALESCE($3, facturify_uuid),
		    facturify_payload = COALESCE($4, facturify_payload),
		    serie             = COALESCE($5, serie),
		    folio             = COALESCE($6, folio),
		    factura_id        = COALESCE($7, factura_id),
		    provider          = COALESCE($8, provider),
		    updated_at        = $9
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		inv.ID,
		string(inv.Status),
		nullIfEmpty(inv.ProviderUUID),
		rawOrNil(inv.ProviderResponse),
		nullIfEmpty(inv.Serie),
		inv.Folio,
		nullIfEmpty(inv.FacturaID),
		nullIfEmpty(inv.Provider),
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(fmt.Sprintf("factura %s no encontrada", inv.ID))
	}
	return nil
}

// GetByID obtiene la factura con receptor, conceptos y complemento en su orden original.
func (r *InvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	query := `
		SELECT i.id, i.issuer_id, i.type, i.complement, i.currency, i.subtotal, i.total,
		       i.cfdi_use, i.payment_form, i.payment_method, i.expedition_place,
		       i.status, i.facturify_uuid, i.facturify_payload, i.serie, i.folio, i.factura_id, i.provider,
		       i.created_at, i.updated_at,
		       c.id, c.legal_name, c.rfc, c.tax_regime, c.email,
		       c.street, c.exterior_number, c.neighborhood, c.city, c.state, c.country, c.zip_code,
		       c.facturify_uuid, c.created_at, c.updated_at
		FROM invoices i
		JOIN clients c ON c.id = i.recipient_id
		WHERE i.id = $1`
	var (
		inv                                   entity.Invoice
		typ, complement, status               string
		subtotal, total                       decimal.Decimal
		providerUUID, serie, facturaID, prov  *string
		payload                               []byte
		recipientID                           uuid.UUID
		email, neighborhood, city, recipExtID *string
	)
	rec := &inv.Recipient
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.IssuerID, &typ, &complement, &inv.Currency, &subtotal, &total,
		&inv.CFDIUse, &inv.PaymentForm, &inv.PaymentMethod, &inv.ExpeditionPlace,
		&status, &providerUUID, &payload, &serie, &inv.Folio, &facturaID, &prov,
		&inv.CreatedAt, &inv.UpdatedAt,
		&recipientID, &rec.LegalName, &rec.RFC, &rec.TaxRegime, &email,
		&rec.Address.Street, &rec.Address.ExteriorNumber, &neighborhood, &city,
		&rec.Address.State, &rec.Address.Country, &rec.Address.ZipCode,
		&recipExtID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.Type = entity.InvoiceType(typ)
	inv.Complement = entity.ComplementType(complement)
	inv.Status = entity.InvoiceStatus(status)
	inv.Subtotal = entity.Money{Amount: subtotal, Currency: inv.Currency}
	inv.Total = entity.Money{Amount: total, Currency: inv.Currency}
	inv.ProviderUUID = derefStr(providerUUID)
	inv.Serie = derefStr(serie)
	inv.FacturaID = derefStr(facturaID)
	inv.Provider = derefStr(prov)
	if len(payload) > 0 {
		inv.ProviderResponse = json.RawMessage(payload)
	}
	rec.ID = &recipientID
	rec.Email = derefStr(email)
	rec.Address.Neighborhood = derefStr(neighborhood)
	rec.Address.City = derefStr(city)
	rec.ExternalUUID = derefStr(recipExtID)

	if inv.Items, err = r.items(ctx, inv.ID); err != nil {
		return nil, err
	}
	if inv.Shipment, err = r.shipment(ctx, inv.ID); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepo) items(ctx context.Context, invoiceID uuid.UUID) ([]entity.InvoiceItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT product_key, description, quantity, unit_key, unit_price, taxes
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()
	var list []entity.InvoiceItem
	for rows.Next() {
		var it entity.InvoiceItem
		var taxes []byte
		if err := rows.Scan(&it.ProductKey, &it.Description, &it.Quantity, &it.UnitKey, &it.UnitPrice, &taxes); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		if len(taxes) > 0 {
			if err := json.Unmarshal(taxes, &it.Taxes); err != nil {
				return nil, fmt.Errorf("decode item taxes: %w", err)
			}
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) shipment(ctx context.Context, invoiceID uuid.UUID) (*entity.Shipment, error) {
	var (
		s                                        entity.Shipment
		shipmentID                               uuid.UUID
		mode                                     string
		permit, company, policy, year, gross, pr *string
		trailers                                 []byte
	)
	v := &s.Vehicle
	err := r.q.QueryRow(ctx, `
		SELECT id, transport_mode, permit_type, permit_number, total_distance_km, total_weight_kg,
		       vehicle_configuration, vehicle_plate, federal_permit, insurance_company, insurance_policy,
		       vehicle_model_year, vehicle_gross_weight, insurance_premium, trailers
		FROM shipments WHERE invoice_id = $1`, invoiceID).Scan(
		&shipmentID, &mode, &s.PermitType, &s.PermitNumber, &s.TotalDistanceKm, &s.TotalWeightKg,
		&v.Configuration, &v.Plate, &permit, &company, &policy,
		&year, &gross, &pr, &trailers,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	s.TransportMode = entity.TransportMode(mode)
	v.FederalPermit = derefStr(permit)
	v.InsuranceCompany = derefStr(company)
	v.InsurancePolicy = derefStr(policy)
	v.ModelYear = derefStr(year)
	v.GrossWeight = derefStr(gross)
	v.InsurancePremium = derefStr(pr)
	if len(trailers) > 0 {
		var rows []trailerRow
		if err := json.Unmarshal(trailers, &rows); err != nil {
			return nil, fmt.Errorf("decode trailers: %w", err)
		}
		for _, t := range rows {
			v.Trailers = append(v.Trailers, entity.Trailer{Subtype: t.Subtype, Plate: t.Plate})
		}
	}

	if s.Locations, err = r.locations(ctx, shipmentID); err != nil {
		return nil, err
	}
	if s.Goods, err = r.goods(ctx, shipmentID); err != nil {
		return nil, err
	}
	if s.Figures, err = r.figures(ctx, shipmentID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *InvoiceRepo) locations(ctx context.Context, shipmentID uuid.UUID) ([]entity.ShipmentLocation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT type, datetime, street, exterior_number, neighborhood, city, state, country, zip_code,
		       latitude, longitude, reference, locality
		FROM shipment_locations WHERE shipment_id = $1 ORDER BY position`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("list shipment locations: %w", err)
	}
	defer rows.Close()
	var list []entity.ShipmentLocation
	for rows.Next() {
		var (
			l                                 entity.ShipmentLocation
			typ                               string
			neighborhood, city, ref, locality *string
		)
		if err := rows.Scan(&typ, &l.DateTime, &l.Street, &l.ExteriorNumber, &neighborhood, &city,
			&l.State, &l.Country, &l.ZipCode, &l.Latitude, &l.Longitude, &ref, &locality); err != nil {
			return nil, fmt.Errorf("scan shipment location: %w", err)
		}
		l.Type = entity.LocationType(typ)
		l.Neighborhood = derefStr(neighborhood)
		l.City = derefStr(city)
		l.Reference = derefStr(ref)
		l.Locality = derefStr(locality)
		list = append(list, l)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) goods(ctx context.Context, shipmentID uuid.UUID) ([]entity.GoodsItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT description, product_key, quantity, unit_key, weight_kg, value, dangerous_material, dangerous_key
		FROM shipment_goods WHERE shipment_id = $1 ORDER BY position`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("list shipment goods: %w", err)
	}
	defer rows.Close()
	var list []entity.GoodsItem
	for rows.Next() {
		var g entity.GoodsItem
		var key *string
		if err := rows.Scan(&g.Description, &g.ProductKey, &g.Quantity, &g.UnitKey,
			&g.WeightKg, &g.Value, &g.DangerousMaterial, &key); err != nil {
			return nil, fmt.Errorf("scan shipment goods: %w", err)
		}
		g.DangerousKey = derefStr(key)
		list = append(list, g)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) figures(ctx context.Context, shipmentID uuid.UUID) ([]entity.TransportFigure, error) {
	rows, err := r.q.Query(ctx, `
		SELECT type, rfc, name, license, role_description
		FROM transport_figures WHERE shipment_id = $1 ORDER BY position`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("list transport figures: %w", err)
	}
	defer rows.Close()
	var list []entity.TransportFigure
	for rows.Next() {
		var f entity.TransportFigure
		var license, role *string
		if err := rows.Scan(&f.Type, &f.RFC, &f.Name, &license, &role); err != nil {
			return nil, fmt.Errorf("scan transport figure: %w", err)
		}
		f.License = derefStr(license)
		f.RoleDescription = derefStr(role)
		list = append(list, f)
	}
	return list, rows.Err()
}

// taxesJSON serializa los porcentajes del concepto; nil si no hay impuestos.
func taxesJSON(taxes map[string]decimal.Decimal) []byte {
	if len(taxes) == 0 {
		return nil
	}
	b, err := json.Marshal(taxes)
	if err != nil {
		return nil
	}
	return b
}

func rawOrNil(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
