package cli

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/cartaporte-api/internal/infrastructure/postgres"
)

func newMigrateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migraciones del esquema PostgreSQL",
	}

	with := func(fn func(cmd *cobra.Command, m *postgres.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			m, err := postgres.NewMigrator(e.cfg.DB.ConnectionString(), e.log.Component("migrate"))
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(cmd, m)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Aplica las migraciones pendientes",
		RunE:  with(func(_ *cobra.Command, m *postgres.Migrator) error { return m.Up() }),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revierte todas las migraciones",
		RunE:  with(func(_ *cobra.Command, m *postgres.Migrator) error { return m.Down() }),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Versión aplicada del esquema",
		RunE: with(func(cmd *cobra.Command, m *postgres.Migrator) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"version": v, "dirty": dirty})
		}),
	})
	return cmd
}
