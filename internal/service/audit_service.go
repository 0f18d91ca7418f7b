package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/internal/core/rowmap"

	"github.com/rs/zerolog"
)

// AuditServiceImpl implements ports.AuditService. Entries are logged and,
// when a store is configured, appended to the audit collection.
type AuditServiceImpl struct {
	store      ports.TabularStore
	collection string
	timeout    time.Duration
	log        zerolog.Logger
	wg         sync.WaitGroup
}

// NewAuditService creates a new audit service.
// If store is nil, audit entries are only written to the logger.
func NewAuditService(store ports.TabularStore, collection string, timeout time.Duration, log zerolog.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{store: store, collection: collection, timeout: timeout, log: log}
}

// Log records an audit entry asynchronously (fire-and-forget).
func (s *AuditServiceImpl) Log(ctx context.Context, entry *domain.AuditLog) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.log.Info().
			Str("action", string(entry.Action)).
			Str("identity", entry.Identity).
			Str("resource", entry.Resource).
			Str("ip", entry.IPAddress).
			Int("http_status", entry.HTTPStatus).
			Msg("audit")

		if s.store == nil {
			return
		}
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		fields := auditFields(entry)
		err := s.store.AppendRow(writeCtx, s.collection, func(header []string) ([]string, error) {
			return rowmap.ToRow(header, fields), nil
		})
		if err != nil {
			s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit entry")
		}
	}()
}

// Wait blocks until every pending entry has been written.
func (s *AuditServiceImpl) Wait() {
	s.wg.Wait()
}

func auditFields(e *domain.AuditLog) rowmap.Record {
	return rowmap.Record{
		domain.FieldID:             e.ID.String(),
		domain.FieldAuditAt:        e.At.UTC().Format(time.RFC3339),
		domain.FieldAuditAction:    string(e.Action),
		domain.FieldAuditIdentity:  e.Identity,
		domain.FieldAuditResource:  e.Resource,
		domain.FieldAuditIPAddress: e.IPAddress,
		domain.FieldAuditStatus:    strconv.Itoa(e.HTTPStatus),
	}
}
