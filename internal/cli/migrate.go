package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/devlongs/arb-recorder/internal/store/migrations"
)

func (a *App) newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the arbitrage_opportunities schema",
	}

	cmd.AddCommand(
		a.migrateCmd("up", "Apply all pending migrations", func(cmd *cobra.Command, m *migrations.Migrator) error {
			if err := m.Up(); err != nil {
				return err
			}
			log.Info().Msg("Schema is up to date")
			return printVersion(cmd, m)
		}),
		a.migrateCmd("down", "Revert all migrations", func(cmd *cobra.Command, m *migrations.Migrator) error {
			if err := m.Down(); err != nil {
				return err
			}
			log.Info().Msg("Schema reverted")
			return printVersion(cmd, m)
		}),
		a.migrateCmd("version", "Print the applied schema version", printVersion),
	)

	return cmd
}

func (a *App) migrateCmd(use, short string, fn func(*cobra.Command, *migrations.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.logger.LogConnecting(a.cfg.Database.Redacted())
			db, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}

			// Closing the migrator closes db.
			m, err := migrations.New(db.DB)
			if err != nil {
				db.Close()
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close migrator")
				}
			}()

			return fn(cmd, m)
		},
	}
}

func printVersion(cmd *cobra.Command, m *migrations.Migrator) error {
	version, dirty, ok, err := m.Version()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case !ok:
		fmt.Fprintln(out, "No migrations applied")
	case dirty:
		fmt.Fprintf(out, "Schema version %d (dirty)\n", version)
	default:
		fmt.Fprintf(out, "Schema version %d\n", version)
	}
	return nil
}
