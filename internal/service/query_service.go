package service

import (
	"context"
	"strings"

	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/pkg/apperror"
)

// LedgerQueryServiceImpl implements ports.LedgerQueryService.
type LedgerQueryServiceImpl struct {
	ledger ports.PaymentLedger
}

// NewLedgerQueryService creates a new LedgerQueryServiceImpl.
func NewLedgerQueryService(ledger ports.PaymentLedger) *LedgerQueryServiceImpl {
	return &LedgerQueryServiceImpl{ledger: ledger}
}

// ListAll returns every record, newest first.
func (s *LedgerQueryServiceImpl) ListAll(ctx context.Context) ([]domain.PaymentRecord, error) {
	return s.ledger.Query(ctx, "")
}

// ListForRepresentative returns the records of one representative, newest
// first. An empty identity is rejected rather than read as "everyone".
func (s *LedgerQueryServiceImpl) ListForRepresentative(ctx context.Context, identity string) ([]domain.PaymentRecord, error) {
	if domain.NormalizeIdentity(identity) == "" {
		return nil, apperror.Validation("identity is required")
	}
	return s.ledger.Query(ctx, identity)
}

// Statement summarizes the records of one representative.
func (s *LedgerQueryServiceImpl) Statement(ctx context.Context, identity string) (*domain.Statement, error) {
	records, err := s.ListForRepresentative(ctx, identity)
	if err != nil {
		return nil, err
	}
	st := domain.BuildStatement(strings.TrimSpace(identity), records)
	return &st, nil
}
