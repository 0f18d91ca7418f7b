package main

import (
	"fmt"

	pgStorage "tuition-ledger/internal/adapter/storage/postgres"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status|version|redo]",
	Short:     "Run the embedded PostgreSQL migrations",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down", "status", "version", "redo"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Store.Driver != "postgres" {
			return fmt.Errorf("migrate requires store.driver=postgres, got %q", cfg.Store.Driver)
		}

		command := "up"
		if len(args) == 1 {
			command = args[0]
		}
		if err := pgStorage.Migrate(cmd.Context(), cfg.Database.DSN(), command); err != nil {
			return err
		}
		log.Info().Str("command", command).Msg("migrations done")
		return nil
	},
}
