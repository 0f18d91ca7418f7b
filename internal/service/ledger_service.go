package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/internal/core/rowmap"
	"tuition-ledger/internal/metrics"
	"tuition-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerOptions configures validation and storage of payment records.
type LedgerOptions struct {
	Collection           string
	Methods              []string
	Levels               []string
	RequireEnrollmentRef bool
	Timeout              time.Duration
	IdempotencyTTL       time.Duration
}

// PaymentLedgerImpl implements ports.PaymentLedger.
type PaymentLedgerImpl struct {
	store      ports.TabularStore
	directory  ports.CredentialStore
	idempCache ports.IdempotencyCache
	opts       LedgerOptions
	metrics    *metrics.Metrics
	log        zerolog.Logger

	now   func() time.Time
	newID func() (string, error)
}

// NewPaymentLedger creates a ledger. A non-nil directory makes every
// submission name a registered representative. A nil idempCache disables
// submission deduplication.
func NewPaymentLedger(
	store ports.TabularStore,
	directory ports.CredentialStore,
	idempCache ports.IdempotencyCache,
	opts LedgerOptions,
	m *metrics.Metrics,
	log zerolog.Logger,
) *PaymentLedgerImpl {
	return &PaymentLedgerImpl{
		store:      store,
		directory:  directory,
		idempCache: idempCache,
		opts:       opts,
		metrics:    m,
		log:        log,
		now:        time.Now,
		newID:      generatePaymentID,
	}
}

// Append validates sub and appends it as a new Pending record.
func (s *PaymentLedgerImpl) Append(ctx context.Context, sub domain.Submission) (*ports.AppendResult, error) {
	rec, err := s.validate(ctx, sub)
	if err != nil {
		return nil, err
	}

	key, replay, err := s.claim(ctx, sub)
	if err != nil || replay != nil {
		return replay, err
	}

	result, err := s.append(ctx, rec)
	if err != nil {
		if key != "" {
			if rerr := s.idempCache.Release(ctx, key); rerr != nil {
				s.log.Warn().Err(rerr).Str("key", key).Msg("failed to release idempotency claim")
			}
		}
		return nil, err
	}

	if key != "" {
		s.remember(ctx, key, result)
	}
	return result, nil
}

func (s *PaymentLedgerImpl) append(ctx context.Context, rec domain.PaymentRecord) (*ports.AppendResult, error) {
	id, err := s.newID()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate payment id: %w", err))
	}
	rec.ID = id
	rec.SubmittedAt = s.now().UTC()
	rec.Status = domain.StatusPending

	fields := rec.Fields()
	var dropped []string
	err = storeCall(ctx, s.opts.Timeout, s.metrics, "payments.append", func(ctx context.Context) error {
		return s.store.AppendRow(ctx, s.opts.Collection, func(header []string) ([]string, error) {
			resolved, err := s.usableHeader(header)
			if err != nil {
				return nil, err
			}
			dropped = rowmap.Unmapped(resolved, fields)
			return rowmap.ToRow(resolved, fields), nil
		})
	})
	if err != nil {
		s.log.Error().Err(err).Str("representative", domain.NormalizeIdentity(rec.RepresentativeID)).Msg("payment append failed")
		return nil, err
	}

	s.metrics.PaymentRecorded(string(rec.Mode))
	result := &ports.AppendResult{Record: rec}
	if len(dropped) > 0 {
		s.metrics.SchemaDrift(s.opts.Collection, len(dropped))
		s.log.Warn().Str("collection", s.opts.Collection).Strs("fields", dropped).Str("id", rec.ID).Msg("payment fields not persisted: no matching column")
		result.Drift = &domain.SchemaDriftWarning{Collection: s.opts.Collection, Fields: dropped}
	}

	s.log.Info().
		Str("id", rec.ID).
		Str("representative", domain.NormalizeIdentity(rec.RepresentativeID)).
		Str("mode", string(rec.Mode)).
		Str("amount", domain.FormatAmount(rec.Amount)).
		Msg("payment recorded")
	return result, nil
}

// Query returns records newest first, optionally only those of identity.
func (s *PaymentLedgerImpl) Query(ctx context.Context, identity string) ([]domain.PaymentRecord, error) {
	var sheet *domain.Sheet
	err := storeCall(ctx, s.opts.Timeout, s.metrics, "payments.read", func(ctx context.Context) error {
		var err error
		sheet, err = s.store.ReadAll(ctx, s.opts.Collection)
		return err
	})
	if err != nil {
		return nil, err
	}

	header, err := s.usableHeader(sheet.Header)
	if err != nil {
		s.metrics.StoreError("payments.read", "fault")
		return nil, err
	}

	filter := domain.NormalizeIdentity(identity) != ""
	out := make([]domain.PaymentRecord, 0)
	for i := len(sheet.Rows) - 1; i >= 0; i-- {
		row := sheet.Rows[i]
		if rowmap.IsBlank(row) {
			continue
		}
		line := i + 2 // header is line 1
		if extra := rowmap.Overflow(header, row); len(extra) > 0 {
			s.metrics.StoreError("payments.read", "fault")
			return nil, malformed("collection %s line %d has %d cells past the last column", s.opts.Collection, line, len(extra))
		}

		fields := rowmap.FromRow(header, row)
		if filter && !domain.SameIdentity(fields[domain.FieldRepresentativeID], identity) {
			continue
		}
		rec, derr := domain.DecodePaymentRecord(fields)
		if derr != nil {
			s.log.Warn().Err(derr).Str("collection", s.opts.Collection).Int("line", line).Msg("payment row has unreadable cells")
		}
		out = append(out, rec)
	}
	return out, nil
}

// usableHeader resolves aliases and checks the columns a record cannot do
// without.
func (s *PaymentLedgerImpl) usableHeader(header []string) ([]string, error) {
	resolved := rowmap.Resolve(header, domain.PaymentFieldAliases)
	if !rowmap.HasHeader(resolved) {
		return nil, malformed("collection %s has no header row", s.opts.Collection)
	}
	if missing := rowmap.Missing(resolved, domain.PaymentRequiredColumns); len(missing) > 0 {
		return nil, malformed("collection %s has no column for %v", s.opts.Collection, missing)
	}
	return resolved, nil
}

// validate turns a submission into a record or lists everything wrong
// with it.
func (s *PaymentLedgerImpl) validate(ctx context.Context, sub domain.Submission) (domain.PaymentRecord, error) {
	var problems []string
	rec := domain.PaymentRecord{
		RepresentativeID: strings.TrimSpace(sub.RepresentativeID),
		EnrollmentRef:    strings.TrimSpace(sub.EnrollmentRef),
		Reference:        strings.TrimSpace(sub.Reference),
		Observations:     strings.TrimSpace(sub.Observations),
	}

	if rec.RepresentativeID == "" {
		problems = append(problems, "representativeId is required")
	}
	if rec.Reference == "" {
		problems = append(problems, "reference is required")
	}

	if level, ok := domain.MatchOption(sub.Level, s.opts.Levels); ok {
		rec.Level = level
	} else {
		problems = append(problems, fmt.Sprintf("level %q is not one of %s", strings.TrimSpace(sub.Level), strings.Join(s.opts.Levels, ", ")))
	}
	if method, ok := domain.MatchOption(sub.Method, s.opts.Methods); ok {
		rec.Method = method
	} else {
		problems = append(problems, fmt.Sprintf("method %q is not one of %s", strings.TrimSpace(sub.Method), strings.Join(s.opts.Methods, ", ")))
	}
	if mode, err := domain.ParseMode(sub.Mode); err == nil {
		rec.Mode = mode
	} else {
		problems = append(problems, "mode must be Pago Total or Abono")
	}

	if date, err := domain.ParseCalendarDate(sub.PaymentDate); err == nil {
		rec.PaymentDate = date
	} else {
		problems = append(problems, "paymentDate: "+err.Error())
	}

	if amount, err := domain.ParseAmount(sub.Amount); err != nil {
		problems = append(problems, "amount: "+err.Error())
	} else if !amount.IsPositive() {
		problems = append(problems, "amount must be greater than zero")
	} else {
		rec.Amount = amount
	}

	rec.OutstandingBalance = decimal.Zero
	if raw := strings.TrimSpace(sub.OutstandingBalance); raw != "" {
		if bal, err := domain.ParseAmount(raw); err != nil {
			problems = append(problems, "outstandingBalance: "+err.Error())
		} else {
			rec.OutstandingBalance = bal
		}
	} else if rec.Mode == domain.ModePartialPayment {
		problems = append(problems, "outstandingBalance is required for a partial payment")
	}
	if rec.Mode != domain.ModePartialPayment {
		rec.OutstandingBalance = decimal.Zero
	}

	if len(problems) == 0 && s.directory != nil {
		cred, err := s.directory.Lookup(ctx, rec.RepresentativeID)
		if err != nil {
			return rec, err
		}
		if cred == nil {
			problems = append(problems, "representative is not registered")
		} else if rec.EnrollmentRef == "" {
			rec.EnrollmentRef = cred.EnrollmentRef
		}
	}
	if len(problems) == 0 && s.opts.RequireEnrollmentRef && rec.EnrollmentRef == "" {
		problems = append(problems, "enrollmentRef is required")
	}

	if len(problems) > 0 {
		s.metrics.ValidationFailed("append")
		s.log.Debug().Strs("problems", problems).Msg("payment submission rejected")
		return rec, apperror.Validation(strings.Join(problems, "; "))
	}
	return rec, nil
}

// claim checks the idempotency cache. It returns the key to complete once
// the append succeeds, or a replayed result. Cache failures only disable
// deduplication for this submission.
func (s *PaymentLedgerImpl) claim(ctx context.Context, sub domain.Submission) (string, *ports.AppendResult, error) {
	if s.idempCache == nil || strings.TrimSpace(sub.IdempotencyToken) == "" {
		return "", nil, nil
	}
	key := domain.BuildSubmissionKey(sub.RepresentativeID, sub.IdempotencyToken)

	if res := s.replay(ctx, key); res != nil {
		return "", res, nil
	}
	claimed, err := s.idempCache.Claim(ctx, key, s.opts.IdempotencyTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency claim failed, continuing without it")
		return "", nil, nil
	}
	if !claimed {
		if res := s.replay(ctx, key); res != nil {
			return "", res, nil
		}
		return "", nil, apperror.ErrSubmissionInProgress()
	}
	return key, nil, nil
}

func (s *PaymentLedgerImpl) replay(ctx context.Context, key string) *ports.AppendResult {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed, continuing without it")
		return nil
	}
	if cached == nil {
		return nil
	}
	var entry domain.IdempotencyEntry
	if err := json.Unmarshal(cached, &entry); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding unreadable idempotency entry")
		return nil
	}

	s.metrics.Replayed()
	s.log.Info().Str("id", entry.Record.ID).Msg("submission replayed from idempotency cache")
	res := &ports.AppendResult{Record: entry.Record, Replayed: true}
	if len(entry.DroppedFields) > 0 {
		res.Drift = &domain.SchemaDriftWarning{Collection: s.opts.Collection, Fields: entry.DroppedFields}
	}
	return res
}

func (s *PaymentLedgerImpl) remember(ctx context.Context, key string, res *ports.AppendResult) {
	entry := domain.IdempotencyEntry{Key: key, Record: res.Record, StoredAt: s.now().UTC()}
	if res.Drift != nil {
		entry.DroppedFields = res.Drift.Fields
	}
	data, err := json.Marshal(entry)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to encode idempotency entry")
		return
	}
	if err := s.idempCache.Set(ctx, key, data, s.opts.IdempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache submission result")
	}
}

const (
	paymentIDPrefix   = "PAY-"
	paymentIDLength   = 9
	paymentIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// generatePaymentID returns PAY- followed by nine uniformly drawn base-36
// characters.
func generatePaymentID() (string, error) {
	const limit = 256 - 256%len(paymentIDAlphabet)
	out := make([]byte, 0, paymentIDLength)
	buf := make([]byte, 16)
	for len(out) < paymentIDLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, paymentIDAlphabet[int(b)%len(paymentIDAlphabet)])
			if len(out) == paymentIDLength {
				break
			}
		}
	}
	return paymentIDPrefix + string(out), nil
}
