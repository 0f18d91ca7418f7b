// Package memory provides a process-local TabularStore for development and
// tests. Contents are lost on restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/internal/core/rowmap"
)

// Store implements ports.TabularStore in memory.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*domain.Sheet
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{collections: make(map[string]*domain.Sheet)}
}

// Seed replaces a collection with the given header and rows, as if they had
// been edited in by hand. Rows are stored exactly as given.
func (s *Store) Seed(collection string, header []string, rows ...[]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet := &domain.Sheet{Header: append([]string(nil), header...)}
	for _, r := range rows {
		sheet.Rows = append(sheet.Rows, append([]string(nil), r...))
	}
	s.collections[collection] = sheet
}

// EnsureCollection implements ports.TabularStore.
func (s *Store) EnsureCollection(ctx context.Context, collection string, header []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, ok := s.collections[collection]
	if !ok {
		s.collections[collection] = &domain.Sheet{Header: append([]string(nil), header...)}
		return nil
	}
	if extended, added := rowmap.Extend(sheet.Header, header); added {
		sheet.Header = extended
	}
	return nil
}

// ReadAll implements ports.TabularStore. The returned sheet is a copy.
func (s *Store) ReadAll(ctx context.Context, collection string) (*domain.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sheet, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", collection, ports.ErrCollectionNotFound)
	}
	out := &domain.Sheet{
		Header: append([]string(nil), sheet.Header...),
		Rows:   make([][]string, len(sheet.Rows)),
	}
	for i, r := range sheet.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out, nil
}

// AppendRow implements ports.TabularStore. The write lock is held across
// build so the header it sees is the one the row is stored under.
func (s *Store) AppendRow(ctx context.Context, collection string, build ports.RowBuilder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("append %s: %w", collection, ports.ErrCollectionNotFound)
	}
	row, err := build(append([]string(nil), sheet.Header...))
	if err != nil {
		return err
	}
	sheet.Rows = append(sheet.Rows, row)
	return nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "memory"
}
