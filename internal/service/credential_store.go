package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/internal/core/rowmap"
	"tuition-ledger/internal/metrics"
	"tuition-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// CredentialStoreImpl implements ports.CredentialStore over a tabular
// collection whose rows may have been typed in by hand.
type CredentialStoreImpl struct {
	store      ports.TabularStore
	collection string
	hashSvc    ports.HashService
	timeout    time.Duration
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// NewCredentialStore creates a credential store. With a nil hashSvc new
// secrets are stored as given and only plain comparison is possible.
func NewCredentialStore(
	store ports.TabularStore,
	collection string,
	hashSvc ports.HashService,
	timeout time.Duration,
	m *metrics.Metrics,
	log zerolog.Logger,
) *CredentialStoreImpl {
	return &CredentialStoreImpl{
		store:      store,
		collection: collection,
		hashSvc:    hashSvc,
		timeout:    timeout,
		metrics:    m,
		log:        log,
	}
}

// FindByIdentity returns the first record matching both identifier and
// secret. An empty identifier or secret never matches.
func (s *CredentialStoreImpl) FindByIdentity(ctx context.Context, identifier, secret string) (*domain.CredentialRecord, error) {
	supplied := strings.TrimSpace(secret)
	if domain.NormalizeIdentity(identifier) == "" || supplied == "" {
		return nil, nil
	}

	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		rec := &records[i]
		if domain.SameIdentity(rec.Identifier, identifier) && s.secretMatches(rec.Secret, supplied) {
			return rec, nil
		}
	}
	return nil, nil
}

// Lookup returns the first record whose identifier matches.
func (s *CredentialStoreImpl) Lookup(ctx context.Context, identifier string) (*domain.CredentialRecord, error) {
	if domain.NormalizeIdentity(identifier) == "" {
		return nil, nil
	}
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if domain.SameIdentity(records[i].Identifier, identifier) {
			return &records[i], nil
		}
	}
	return nil, nil
}

// Register appends a new representative. The duplicate check and the append
// are separate store calls, so two simultaneous registrations of the same
// identifier can both succeed; lookups then return the first row.
func (s *CredentialStoreImpl) Register(ctx context.Context, rec domain.CredentialRecord) error {
	rec = domain.CredentialRecord{
		Identifier:    strings.TrimSpace(rec.Identifier),
		Secret:        strings.TrimSpace(rec.Secret),
		DisplayName:   strings.TrimSpace(rec.DisplayName),
		EnrollmentRef: strings.TrimSpace(rec.EnrollmentRef),
	}
	var problems []string
	if rec.Identifier == "" {
		problems = append(problems, "identifier is required")
	}
	if rec.Secret == "" {
		problems = append(problems, "secret is required")
	}
	if rec.DisplayName == "" {
		problems = append(problems, "displayName is required")
	}
	if len(problems) > 0 {
		s.metrics.ValidationFailed("register")
		return apperror.Validation(strings.Join(problems, "; "))
	}

	existing, err := s.Lookup(ctx, rec.Identifier)
	if err != nil {
		return err
	}
	if existing != nil {
		s.log.Debug().Str("identity", domain.NormalizeIdentity(rec.Identifier)).Msg("registration rejected: identity exists")
		return apperror.ErrDuplicateIdentity()
	}

	if s.hashSvc != nil {
		hashed, err := s.hashSvc.Hash(rec.Secret)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("hash secret: %w", err))
		}
		rec.Secret = hashed
	}

	var dropped []string
	err = storeCall(ctx, s.timeout, s.metrics, "credentials.append", func(ctx context.Context) error {
		return s.store.AppendRow(ctx, s.collection, func(header []string) ([]string, error) {
			resolved := rowmap.Resolve(header, domain.CredentialFieldAliases)
			if missing := rowmap.Missing(resolved, domain.CredentialRequiredColumns); len(missing) > 0 {
				return nil, malformed("collection %s has no column for %v", s.collection, missing)
			}
			fields := rec.Fields()
			dropped = rowmap.Unmapped(resolved, fields)
			return rowmap.ToRow(resolved, fields), nil
		})
	})
	if err != nil {
		return err
	}
	if len(dropped) > 0 {
		s.metrics.SchemaDrift(s.collection, len(dropped))
		s.log.Warn().Str("collection", s.collection).Strs("fields", dropped).Msg("credential fields not persisted: no matching column")
	}
	s.log.Info().Str("identity", domain.NormalizeIdentity(rec.Identifier)).Msg("representative registered")
	return nil
}

func (s *CredentialStoreImpl) load(ctx context.Context) ([]domain.CredentialRecord, error) {
	var sheet *domain.Sheet
	err := storeCall(ctx, s.timeout, s.metrics, "credentials.read", func(ctx context.Context) error {
		var err error
		sheet, err = s.store.ReadAll(ctx, s.collection)
		return err
	})
	if err != nil {
		return nil, err
	}

	header := rowmap.Resolve(sheet.Header, domain.CredentialFieldAliases)
	if missing := rowmap.Missing(header, domain.CredentialRequiredColumns); len(missing) > 0 {
		s.metrics.StoreError("credentials.read", "fault")
		return nil, malformed("collection %s has no column for %v", s.collection, missing)
	}

	records := make([]domain.CredentialRecord, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if rowmap.IsBlank(row) {
			continue
		}
		records = append(records, domain.DecodeCredentialRecord(rowmap.FromRow(header, row)))
	}
	return records, nil
}

// secretMatches compares a trimmed supplied secret with a stored one.
// Stored Argon2id hashes are verified, anything else is compared as text.
func (s *CredentialStoreImpl) secretMatches(stored, supplied string) bool {
	if stored == "" {
		return false
	}
	if s.hashSvc != nil && s.hashSvc.IsHash(stored) {
		ok, err := s.hashSvc.Verify(supplied, stored)
		if err != nil {
			s.log.Warn().Err(err).Msg("stored secret hash is unreadable")
			return false
		}
		return ok
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
