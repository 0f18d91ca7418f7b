package postgres

import (
	"context"
	"errors"
	"fmt"

	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/internal/core/rowmap"

	"github.com/jackc/pgx/v5"
)

// TabularStore implements ports.TabularStore on two tables: one holding
// each collection's header, one holding its rows in append order.
type TabularStore struct {
	pool Pool
}

// NewTabularStore creates a new TabularStore.
func NewTabularStore(pool Pool) *TabularStore {
	return &TabularStore{pool: pool}
}

var readSnapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// EnsureCollection creates the collection or appends the header titles it
// lacks. The header row is locked for the duration.
func (s *TabularStore) EnsureCollection(ctx context.Context, collection string, header []string) error {
	return s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var current []string
		err := tx.QueryRow(ctx,
			`SELECT header FROM sheet_collections WHERE name = $1 FOR UPDATE`,
			collection,
		).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			_, err = tx.Exec(ctx,
				`INSERT INTO sheet_collections (name, header) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
				collection, header,
			)
			if err != nil {
				return fmt.Errorf("create collection %s: %w", collection, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock header %s: %w", collection, err)
		}

		extended, added := rowmap.Extend(current, header)
		if !added {
			return nil
		}
		_, err = tx.Exec(ctx,
			`UPDATE sheet_collections SET header = $2, updated_at = now() WHERE name = $1`,
			collection, extended,
		)
		if err != nil {
			return fmt.Errorf("extend header %s: %w", collection, err)
		}
		return nil
	})
}

// ReadAll reads the header and rows from one snapshot.
func (s *TabularStore) ReadAll(ctx context.Context, collection string) (*domain.Sheet, error) {
	sheet := &domain.Sheet{}
	err := s.inTx(ctx, readSnapshot, func(tx pgx.Tx) error {
		header, err := selectHeader(ctx, tx, collection, "")
		if err != nil {
			return err
		}
		sheet.Header = header

		rows, err := tx.Query(ctx,
			`SELECT cells FROM sheet_rows WHERE collection = $1 ORDER BY id`,
			collection,
		)
		if err != nil {
			return fmt.Errorf("read rows %s: %w", collection, err)
		}
		defer rows.Close()

		for rows.Next() {
			var cells []string
			if err := rows.Scan(&cells); err != nil {
				return fmt.Errorf("scan row %s: %w", collection, err)
			}
			sheet.Rows = append(sheet.Rows, cells)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return sheet, nil
}

// AppendRow holds a share lock on the header row while build runs, so a
// concurrent EnsureCollection waits until the row is in.
func (s *TabularStore) AppendRow(ctx context.Context, collection string, build ports.RowBuilder) error {
	return s.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		header, err := selectHeader(ctx, tx, collection, " FOR SHARE")
		if err != nil {
			return err
		}
		row, err := build(header)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO sheet_rows (collection, cells) VALUES ($1, $2)`,
			collection, row,
		)
		if err != nil {
			return fmt.Errorf("append row %s: %w", collection, err)
		}
		return nil
	})
}

func selectHeader(ctx context.Context, tx pgx.Tx, collection, lock string) ([]string, error) {
	var header []string
	err := tx.QueryRow(ctx,
		`SELECT header FROM sheet_collections WHERE name = $1`+lock,
		collection,
	).Scan(&header)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("collection %s: %w", collection, ports.ErrCollectionNotFound)
		}
		return nil, fmt.Errorf("read header %s: %w", collection, err)
	}
	return header, nil
}

func (s *TabularStore) inTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
