package billing

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/internal/domain/cartaporte"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
	"github.com/jhoicas/cartaporte-api/internal/domain/repository"
	"github.com/jhoicas/cartaporte-api/pkg/cfdi"
	"github.com/jhoicas/cartaporte-api/pkg/logger"
)

// CreateCartaPorteUseCase orquesta el timbrado de un CFDI con Carta Porte:
//
//	tx1: receptor (get/upsert) + factura en pending → PAC → tx2/tx3: estado final
//
// La llamada al PAC nunca ocurre dentro de una transacción.
type CreateCartaPorteUseCase struct {
	uow       repository.UnitOfWork
	provider  CFDIProvider
	builder   PayloadRenderer
	validator *dto.Validator
	log       zerolog.Logger
}

// NewCreateCartaPorteUseCase construye el caso de uso.
func NewCreateCartaPorteUseCase(
	uow repository.UnitOfWork,
	provider CFDIProvider,
	builder PayloadRenderer,
	validator *dto.Validator,
	log zerolog.Logger,
) *CreateCartaPorteUseCase {
	return &CreateCartaPorteUseCase{
		uow:       uow,
		provider:  provider,
		builder:   builder,
		validator: validator,
		log:       log,
	}
}

// Execute timbra una solicitud ya validada en la frontera HTTP.
func (uc *CreateCartaPorteUseCase) Execute(ctx context.Context, in dto.CartaPorteRequest) (*entity.Invoice, error) {
	in.ApplyDefaults()

	d, err := prepare(in)
	if err != nil {
		return nil, err
	}

	var (
		inv    *entity.Invoice
		issuer = entity.IssuerPlaceholder(in.FacturifyIssuerUUID)
	)

	// ═══ tx1: receptor + factura pending ═══
	err = uc.uow.Run(ctx, func(repos repository.Repositories) error {
		rfc := cfdi.NormalizeRFC(in.Recipient.RFC)
		recipient, err := repos.Clients.GetByRFC(ctx, rfc)
		if err != nil {
			return err
		}
		if recipient == nil {
			recipient, err = repos.Clients.Upsert(ctx, partyFromRequest(in.Recipient))
			if err != nil {
				return err
			}
		}

		var issuerID *uuid.UUID
		company, err := repos.Companies.GetByExternalUUID(ctx, in.FacturifyIssuerUUID)
		if err != nil {
			return err
		}
		if company != nil {
			issuer = *company
			issuerID = company.ID
		}

		inv = d.invoice(in, *recipient, issuerID)
		inv.MarkPending()
		return repos.Invoices.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	response, callErr := uc.stamp(ctx, inv, issuer)
	if callErr != nil {
		uc.log.Error().Err(callErr).Str(logger.FieldInvoiceID, inv.ID.String()).Msg("timbrado rechazado")
		inv.MarkFailed()
		if err := uc.update(ctx, inv); err != nil {
			return nil, err
		}
		return nil, domain.NewExternalServiceError(domain.Message(callErr), callErr)
	}

	result := parseStampResponse(response)
	if result.UUID != "" {
		if err := inv.MarkIssued(result.UUID, response, result.Meta); err != nil {
			return nil, err
		}
		uc.log.Info().Str(logger.FieldInvoiceID, inv.ID.String()).Str(logger.FieldCFDIUUID, result.UUID).Msg("CFDI timbrado")
	} else {
		uc.log.Warn().Str(logger.FieldInvoiceID, inv.ID.String()).Str("response", string(response)).Msg("respuesta del PAC sin UUID")
		inv.ProviderResponse = response
		inv.MarkFailed()
	}

	if err := uc.update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateFromProviderFormat acepta el esquema nativo de Facturify y lo lleva por el mismo
// camino que la solicitud interna.
func (uc *CreateCartaPorteUseCase) CreateFromProviderFormat(ctx context.Context, in dto.FacturifyCartaPorteRequest) (*entity.Invoice, error) {
	req, err := TransformFacturifyRequest(in)
	if err != nil {
		return nil, err
	}
	if err := uc.validator.Validate(req); err != nil {
		return nil, err
	}
	return uc.Execute(ctx, req)
}

// GetInvoice devuelve la factura o EntityNotFound.
func (uc *CreateCartaPorteUseCase) GetInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	var inv *entity.Invoice
	err := uc.uow.Run(ctx, func(repos repository.Repositories) error {
		var err error
		inv, err = repos.Invoices.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.NewNotFoundError("factura no encontrada")
	}
	return inv, nil
}

// GetProviderInvoice consulta en el PAC el CFDI timbrado de una factura local.
func (uc *CreateCartaPorteUseCase) GetProviderInvoice(ctx context.Context, id uuid.UUID) (json.RawMessage, error) {
	inv, err := uc.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.ProviderUUID == "" {
		return nil, domain.NewNotFoundError("la factura no tiene CFDI timbrado")
	}
	return uc.provider.GetInvoice(ctx, inv.ProviderUUID)
}

// RenderPayload arma el payload que se enviaría a Facturify sin persistir ni timbrar.
// El emisor queda como placeholder con el UUID de la solicitud.
func RenderPayload(in dto.CartaPorteRequest, v *dto.Validator, builder PayloadRenderer) (*dto.FacturifyCartaPorteRequest, error) {
	in.ApplyDefaults()
	if err := v.Validate(in); err != nil {
		return nil, err
	}
	d, err := prepare(in)
	if err != nil {
		return nil, err
	}
	recipient := partyFromRequest(in.Recipient)
	return builder.Build(d.invoice(in, *recipient, nil), entity.IssuerPlaceholder(in.FacturifyIssuerUUID))
}

// draft partes de la factura que no dependen del almacenamiento.
type draft struct {
	shipment        *entity.Shipment
	subtotal, total entity.Money
}

func prepare(in dto.CartaPorteRequest) (draft, error) {
	shipment, err := shipmentFromRequest(in.Shipment)
	if err != nil {
		return draft{}, err
	}
	if err := cartaporte.ValidateShipment(shipment); err != nil {
		return draft{}, err
	}
	subtotal, err := entity.NewMoney(in.Subtotal, in.Currency)
	if err != nil {
		return draft{}, err
	}
	total, err := entity.NewMoney(in.Total, in.Currency)
	if err != nil {
		return draft{}, err
	}
	return draft{shipment: shipment, subtotal: subtotal, total: total}, nil
}

func (d draft) invoice(in dto.CartaPorteRequest, recipient entity.Party, issuerID *uuid.UUID) *entity.Invoice {
	return entity.NewInvoice(entity.Invoice{
		IssuerID:        issuerID,
		Recipient:       recipient,
		Type:            entity.InvoiceType(in.CFDIType),
		Complement:      entity.ComplementCartaPorte,
		Currency:        in.Currency,
		Subtotal:        d.subtotal,
		Total:           d.total,
		CFDIUse:         in.CFDIUse,
		PaymentForm:     in.PaymentForm,
		PaymentMethod:   in.PaymentMethod,
		ExpeditionPlace: in.ExpeditionPlace,
		Items:           itemsFromRequest(in.Items),
		Shipment:        d.shipment,
	})
}

func (uc *CreateCartaPorteUseCase) stamp(ctx context.Context, inv *entity.Invoice, issuer entity.Party) (json.RawMessage, error) {
	payload, err := uc.builder.Build(inv, issuer)
	if err != nil {
		return nil, err
	}
	return uc.provider.CreateCartaPorte(ctx, payload)
}

func (uc *CreateCartaPorteUseCase) update(ctx context.Context, inv *entity.Invoice) error {
	return uc.uow.Run(ctx, func(repos repository.Repositories) error {
		return repos.Invoices.Update(ctx, inv)
	})
}

func partyFromRequest(p dto.PartyRequest) *entity.Party {
	return &entity.Party{
		LegalName: p.LegalName,
		RFC:       cfdi.NormalizeRFC(p.RFC),
		TaxRegime: p.TaxRegime,
		Email:     p.Email,
		Address: entity.Address{
			Street:         p.Address.Street,
			ExteriorNumber: p.Address.ExteriorNumber,
			Neighborhood:   p.Address.Neighborhood,
			City:           p.Address.City,
			State:          p.Address.State,
			Country:        p.Address.Country,
			ZipCode:        p.Address.ZipCode,
		},
	}
}

func itemsFromRequest(in []dto.InvoiceItemRequest) []entity.InvoiceItem {
	items := make([]entity.InvoiceItem, 0, len(in))
	for _, it := range in {
		item := entity.InvoiceItem{
			ProductKey:  it.ProductKey,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitKey:     it.UnitKey,
			UnitPrice:   it.UnitPrice,
		}
		if it.TaxPercentage != nil && !it.TaxPercentage.IsZero() {
			item.Taxes = map[string]decimal.Decimal{entity.TaxIVA: *it.TaxPercentage}
		}
		items = append(items, item)
	}
	return items
}

func shipmentFromRequest(s dto.ShipmentRequest) (*entity.Shipment, error) {
	out := &entity.Shipment{
		TransportMode:   entity.TransportMode(s.TransportMode),
		PermitType:      s.PermitType,
		PermitNumber:    s.PermitNumber,
		TotalDistanceKm: s.TotalDistanceKm,
		TotalWeightKg:   s.TotalWeightKg,
		Vehicle: entity.Vehicle{
			Configuration:    s.Vehicle.Configuration,
			Plate:            s.Vehicle.Plate,
			FederalPermit:    s.Vehicle.FederalPermit,
			InsuranceCompany: s.Vehicle.InsuranceCompany,
			InsurancePolicy:  s.Vehicle.InsurancePolicy,
			ModelYear:        s.Vehicle.ModelYear,
			GrossWeight:      s.Vehicle.GrossWeight,
			InsurancePremium: s.Vehicle.InsurancePremium,
		},
	}
	for _, t := range s.Vehicle.Trailers {
		out.Vehicle.Trailers = append(out.Vehicle.Trailers, entity.Trailer{Subtype: t.Subtype, Plate: t.Plate})
	}

	for _, l := range s.Locations {
		typ := entity.LocationDestination
		if l.IsOrigin() {
			typ = entity.LocationOrigin
		}
		out.Locations = append(out.Locations, entity.ShipmentLocation{
			Type:           typ,
			DateTime:       dto.WallClock(l.DateTime.Time),
			Street:         l.Street,
			ExteriorNumber: l.ExteriorNumber,
			Neighborhood:   l.Neighborhood,
			City:           l.City,
			State:          l.State,
			Country:        l.Country,
			ZipCode:        l.ZipCode,
			Latitude:       l.Latitude,
			Longitude:      l.Longitude,
			Reference:      l.Reference,
			Locality:       l.Locality,
		})
	}

	for _, g := range s.Goods {
		if g.Value.IsNegative() {
			return nil, domain.NewValidationError("valor de mercancía negativo")
		}
		out.Goods = append(out.Goods, entity.GoodsItem{
			Description:       g.Description,
			ProductKey:        g.ProductKey,
			Quantity:          g.Quantity,
			UnitKey:           g.UnitKey,
			WeightKg:          g.WeightKg,
			Value:             g.Value,
			DangerousMaterial: g.DangerousMaterial,
			DangerousKey:      g.DangerousKey,
		})
	}

	for _, f := range s.Figures {
		out.Figures = append(out.Figures, entity.TransportFigure{
			Type:            f.Type,
			RFC:             cfdi.NormalizeRFC(f.RFC),
			Name:            f.Name,
			License:         f.License,
			RoleDescription: f.RoleDescription,
		})
	}
	return out, nil
}
