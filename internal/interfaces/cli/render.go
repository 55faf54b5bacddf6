package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/cartaporte-api/internal/application/billing"
	"github.com/jhoicas/cartaporte-api/internal/application/dto"
	"github.com/jhoicas/cartaporte-api/internal/domain"
	"github.com/jhoicas/cartaporte-api/internal/infrastructure/facturify"
)

func newRenderCmd() *cobra.Command {
	var accountUUID string

	cmd := &cobra.Command{
		Use:   "render <solicitud.json|yaml|->",
		Short: "Muestra el payload de Facturify que generaría una solicitud, sin timbrar",
		Args:  cobra.ExactArgs(1),
		// offline: no carga configuración
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var in dto.CartaPorteRequest
			if err := readInput(args[0], cmd.InOrStdin(), &in); err != nil {
				return err
			}
			payload, err := billing.RenderPayload(in, dto.NewValidator(), facturify.NewPayloadBuilder(accountUUID))
			if err != nil {
				return describe(err)
			}
			return writeJSON(cmd.OutOrStdout(), payload)
		},
	}
	cmd.Flags().StringVar(&accountUUID, "account", "00000000-0000-0000-0000-000000000000", "UUID de la cuenta Facturify")
	return cmd
}

func newTransformCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "transform <payload-facturify.json|yaml|->",
		Short:             "Convierte un payload nativo de Facturify a la solicitud interna",
		Args:              cobra.ExactArgs(1),
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var in dto.FacturifyCartaPorteRequest
			if err := readInput(args[0], cmd.InOrStdin(), &in); err != nil {
				return err
			}
			out, err := billing.TransformFacturifyRequest(in)
			if err != nil {
				return describe(err)
			}
			if err := dto.NewValidator().Validate(out); err != nil {
				return describe(err)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

// describe agrega al mensaje los campos de un error de validación.
func describe(err error) error {
	fields := domain.Fields(err)
	if len(fields) == 0 {
		return err
	}
	msg := domain.Message(err)
	for _, f := range fields {
		msg += fmt.Sprintf("\n  %s: %s", f.Field, f.Message)
	}
	return fmt.Errorf("%s: %w", msg, domain.ErrValidation)
}
