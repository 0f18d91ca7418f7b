package service

import (
	"context"
	"errors"
	"fmt"

	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/internal/core/rowmap"

	"github.com/rs/zerolog"
)

// Collections names the collections the service reads and writes.
type Collections struct {
	Payments    string
	Credentials string
	Audit       string
}

// EnsureCollections creates each collection with its standard header, or
// appends the standard columns an existing one lacks. A legacy column title
// counts as the field it aliases, so it is not duplicated.
func EnsureCollections(ctx context.Context, store ports.TabularStore, c Collections, log zerolog.Logger) error {
	plan := []struct {
		name    string
		header  []string
		aliases rowmap.Aliases
	}{
		{c.Payments, domain.PaymentHeader, domain.PaymentFieldAliases},
		{c.Credentials, domain.CredentialHeader, domain.CredentialFieldAliases},
		{c.Audit, domain.AuditHeader, nil},
	}

	for _, p := range plan {
		if p.name == "" {
			continue
		}

		want := p.header
		sheet, err := store.ReadAll(ctx, p.name)
		switch {
		case err == nil:
			want = rowmap.Missing(rowmap.Resolve(sheet.Header, p.aliases), p.header)
			if len(want) == 0 {
				log.Debug().Str("collection", p.name).Msg("collection up to date")
				continue
			}
		case errors.Is(err, ports.ErrCollectionNotFound):
		default:
			return fmt.Errorf("inspect collection %s: %w", p.name, err)
		}

		if err := store.EnsureCollection(ctx, p.name, want); err != nil {
			return fmt.Errorf("ensure collection %s: %w", p.name, err)
		}
		log.Info().Str("collection", p.name).Strs("columns", want).Msg("collection columns added")
	}
	return nil
}
