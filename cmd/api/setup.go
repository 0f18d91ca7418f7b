package main

import (
	"context"

	"tuition-ledger/internal/service"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create missing collections and extend legacy headers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Store.Timeout)
		defer cancel()

		store, _, closeStore, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := service.EnsureCollections(ctx, store, collectionsFrom(cfg), log); err != nil {
			return err
		}
		log.Info().Msg("collections ready")
		return nil
	},
}
