package cli

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/cartaporte-api/internal/infrastructure/facturify"
)

func newTokenCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sesión con Facturify (token compartido en Redis)",
	}

	run := func(fn func(cmd *cobra.Command, auth *facturify.AuthClient) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			rdb, err := facturify.NewRedisClient(cmd.Context(), e.cfg.Redis.URL)
			if err != nil {
				return err
			}
			defer rdb.Close()

			fc := e.cfg.Facturify
			auth := facturify.NewAuthClient(facturify.AuthConfig{
				BaseURL:       fc.BaseURL,
				APIKey:        fc.APIKey,
				APISecret:     fc.APISecret,
				Timeout:       fc.Timeout,
				RefreshBuffer: fc.TokenRefreshBuffer,
			}, facturify.NewRedisTokenStore(rdb), e.log.Component("facturify.auth"))

			out, err := fn(cmd, auth)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "obtain",
		Short: "Obtiene un token nuevo con las credenciales",
		RunE: run(func(cmd *cobra.Command, auth *facturify.AuthClient) (any, error) {
			return auth.ObtainToken(cmd.Context())
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Renueva el token en caché",
		RunE: run(func(cmd *cobra.Command, auth *facturify.AuthClient) (any, error) {
			return auth.RefreshToken(cmd.Context())
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Estado del token en caché",
		RunE: run(func(cmd *cobra.Command, auth *facturify.AuthClient) (any, error) {
			return auth.TokenStatus(cmd.Context())
		}),
	})
	return cmd
}
