package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jhoicas/cartaporte-api/pkg/jwt"
)

// newJWTCmd emite tokens para integradores de la API (firmados con JWT_SECRET).
func newJWTCmd(e *env) *cobra.Command {
	var (
		clientID string
		scope    string
		minutes  int
	)
	cmd := &cobra.Command{
		Use:   "jwt",
		Short: "Emite un token de acceso para un integrador",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if e.cfg.JWT.Secret == "" {
				return errors.New("JWT_SECRET no está configurado")
			}
			if minutes <= 0 {
				minutes = e.cfg.JWT.Expiration
			}
			tok, err := jwt.Generate(e.cfg.JWT.Secret, clientID, scope, e.cfg.JWT.Issuer, minutes)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"token":      tok,
				"client_id":  clientID,
				"scope":      scope,
				"expires_in": minutes * 60,
			})
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "identificador del integrador")
	cmd.Flags().StringVar(&scope, "scope", "cfdi", "cfdi | admin")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "vigencia en minutos (JWT_EXPIRATION_MINUTES)")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}
