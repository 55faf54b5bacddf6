package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/jhoicas/cartaporte-api/pkg/config"
	"github.com/jhoicas/cartaporte-api/pkg/logger"
)

var version = "dev"

// env dependencias compartidas por los subcomandos. Se resuelven en PersistentPreRunE
// para que los comandos offline (render, transform) no exijan configuración válida.
type env struct {
	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var verbose bool

	cmd := &cobra.Command{
		Use:           "cartaporte",
		Short:         "Herramientas de operación para la API de Carta Porte",
		Long:          "Vista previa de payloads, sesión con Facturify, migraciones y sincronización de empresas.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = logger.Nop()
			if verbose {
				e.log = logger.New(logger.Config{Env: "development", Level: "debug", Service: "cartaporte"})
			}
			return nil
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log en consola")

	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newTransformCmd())
	cmd.AddCommand(newTokenCmd(e))
	cmd.AddCommand(newMigrateCmd(e))
	cmd.AddCommand(newEmpresaCmd(e))
	cmd.AddCommand(newJWTCmd(e))
	return cmd
}

// NewRootCmdForTest devuelve el comando raíz para tests.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute punto de entrada de cmd/cartaporte.
func Execute() error {
	return newRootCmd().Execute()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
