package billing

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain/entity"
	"github.com/jhoicas/cartaporte-api/internal/domain/repository"
	"github.com/jhoicas/cartaporte-api/pkg/cfdi"
	"github.com/jhoicas/cartaporte-api/pkg/logger"
)

var regimeCode = regexp.MustCompile(`^\d{3}$`)

// PartyUseCase emisores sincronizados desde Facturify y receptores guardados localmente.
type PartyUseCase struct {
	uow      repository.UnitOfWork
	empresas EmpresaSource
	log      zerolog.Logger
}

// NewPartyUseCase construye el caso de uso.
func NewPartyUseCase(uow repository.UnitOfWork, empresas EmpresaSource, log zerolog.Logger) *PartyUseCase {
	return &PartyUseCase{uow: uow, empresas: empresas, log: log}
}

// SyncCompanies copia las empresas de la cuenta Facturify a la tabla local de emisores.
// Así Execute puede resolver el RFC del emisor para la ubicación de origen.
func (uc *PartyUseCase) SyncCompanies(ctx context.Context) (int, error) {
	list, err := uc.empresas.ListEmpresas(ctx)
	if err != nil {
		return 0, err
	}
	synced := 0
	err = uc.uow.Run(ctx, func(repos repository.Repositories) error {
		for _, e := range list.Data {
			company, ok := CompanyFromEmpresa(e)
			if !ok {
				uc.log.Warn().Str("uuid", e.UUID).Str(logger.FieldRFC, e.RFC).Msg("empresa sin RFC válido, se omite")
				continue
			}
			if _, err := repos.Companies.Upsert(ctx, company); err != nil {
				return fmt.Errorf("upsert company %s: %w", company.RFC, err)
			}
			synced++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	uc.log.Info().Int("synced", synced).Msg("empresas sincronizadas")
	return synced, nil
}

// ListRecipients receptores guardados al emitir.
func (uc *PartyUseCase) ListRecipients(ctx context.Context, page dto.PageRequest) ([]*entity.Party, error) {
	page.DefaultPage()
	var out []*entity.Party
	err := uc.uow.Run(ctx, func(repos repository.Repositories) error {
		var err error
		out, err = repos.Clients.List(ctx, page.Limit, page.Offset)
		return err
	})
	return out, err
}

// CompanyFromEmpresa mapea una empresa del proveedor a un emisor local.
// false si el RFC no es válido.
func CompanyFromEmpresa(e dto.FacturifyEmpresa) (*entity.Party, bool) {
	rfc := cfdi.NormalizeRFC(e.RFC)
	if !cfdi.IsValidRFC(rfc) {
		return nil, false
	}
	regime := strings.TrimSpace(e.Regimen)
	if !regimeCode.MatchString(regime) {
		regime = cfdi.TaxRegimeNoObligations
	}
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return strings.TrimSpace(*p)
	}
	return &entity.Party{
		LegalName: strings.TrimSpace(e.RazonSocial),
		RFC:       rfc,
		TaxRegime: regime,
		Email:     deref(e.Email),
		Address: entity.Address{
			Street:         deref(e.Calle),
			ExteriorNumber: firstNonEmpty(deref(e.NumExt), cfdi.NoExteriorNumber),
			Neighborhood:   strings.TrimSpace(e.Colonia),
			City:           firstNonEmpty(deref(e.Ciudad), strings.TrimSpace(e.DelegacionMunicipio)),
			State:          strings.TrimSpace(e.Estado),
			Country:        cfdi.CountryMexico,
			ZipCode:        strings.TrimSpace(e.CP),
		},
		ExternalUUID: e.UUID,
	}, true
}
