package cli

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/cartaporte-api/internal/application/billing"
	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/infrastructure/facturify"
	"github.com/jhoicas/cartaporte-api/internal/infrastructure/postgres"
)

func newEmpresaCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "empresa",
		Short: "Empresas emisoras de la cuenta Facturify",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Guarda localmente las empresas de Facturify como emisores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			pool, err := postgres.NewPool(ctx, e.cfg.DB)
			if err != nil {
				return err
			}
			defer pool.Close()

			rdb, err := facturify.NewRedisClient(ctx, e.cfg.Redis.URL)
			if err != nil {
				return err
			}
			defer rdb.Close()

			fc := e.cfg.Facturify
			auth := facturify.NewAuthClient(facturify.AuthConfig{
				BaseURL:   fc.BaseURL,
				APIKey:    fc.APIKey,
				APISecret: fc.APISecret,
				Timeout:   fc.Timeout,
			}, facturify.NewRedisTokenStore(rdb), e.log.Component("facturify.auth"))
			empresas := facturify.NewEmpresaClient(facturify.ClientConfig{
				BaseURL:      fc.BaseURL,
				Timeout:      fc.Timeout,
				MaxRetries:   fc.MaxRetries,
				RetryBackoff: fc.RetryBackoff,
			}, auth, e.log.Component("facturify.empresa"))

			uc := billing.NewPartyUseCase(postgres.NewTxRunner(pool), empresas, e.log.Component("billing.party"))
			n, err := uc.SyncCompanies(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), dto.CompanySyncResponse{Synced: n})
		},
	})
	return cmd
}
