package ports

import (
	"context"
	"errors"
	"time"

	"tuition-ledger/internal/core/domain"
)

// ErrCollectionNotFound is returned by a TabularStore for a collection that
// has never been created.
var ErrCollectionNotFound = errors.New("collection not found")

// RowBuilder lays a record out against the header the store will append
// under. Returning an error aborts the append without writing.
type RowBuilder func(header []string) ([]string, error)

// TabularStore is a set of named collections, each a header row followed by
// data rows. Rows are only ever appended.
//
//go:generate mockgen -destination=mocks/mock_repositories.go -package=mocks tuition-ledger/internal/core/ports TabularStore,IdempotencyCache
type TabularStore interface {
	// EnsureCollection creates the collection with header if it does not
	// exist, otherwise appends any header titles it lacks at the end.
	// Existing columns are never reordered or renamed.
	EnsureCollection(ctx context.Context, collection string, header []string) error
	// ReadAll returns the header and every row in append order.
	ReadAll(ctx context.Context, collection string) (*domain.Sheet, error)
	// AppendRow reads the current header, passes it to build and appends
	// the resulting row. The header cannot change between the two steps.
	AppendRow(ctx context.Context, collection string, build RowBuilder) error
}

// IdempotencyCache remembers submission outcomes by token.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached entry or nil
	// Claim marks key as in progress. It returns false if key is already
	// claimed or holds an entry.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Release drops a claim that will never be completed.
	Release(ctx context.Context, key string) error
}
