package main

import (
	"context"
	"fmt"

	"tuition-ledger/config"
	"tuition-ledger/internal/adapter/storage/memory"
	pgStorage "tuition-ledger/internal/adapter/storage/postgres"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/internal/service"

	"github.com/rs/zerolog"
)

// openStore connects the configured tabular store. The returned close func
// is always safe to call.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.TabularStore, ports.HealthChecker, func(), error) {
	switch cfg.Store.Driver {
	case "memory":
		log.Warn().Msg("using in-memory store, records are lost on exit")
		store := memory.NewStore()
		return store, store, func() {}, nil
	case "postgres":
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, func() {}, fmt.Errorf("connect postgres: %w", err)
		}
		return pgStorage.NewTabularStore(pool), pgStorage.NewHealthCheck(pool), pool.Close, nil
	}
	return nil, nil, func() {}, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func collectionsFrom(cfg *config.Config) service.Collections {
	return service.Collections{
		Payments:    cfg.Store.Payments,
		Credentials: cfg.Store.Credentials,
		Audit:       cfg.Store.Audit,
	}
}
