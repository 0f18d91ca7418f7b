package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tuition-ledger/internal/adapter/storage/memory"
	redisStore "tuition-ledger/internal/adapter/storage/redis"
	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/internal/core/ports/mocks"
	"tuition-ledger/internal/core/rowmap"
	"tuition-ledger/pkg/apperror"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestLedger(store ports.TabularStore, directory ports.CredentialStore, cache ports.IdempotencyCache) *PaymentLedgerImpl {
	l := NewPaymentLedger(store, directory, cache, testLedgerOptions(), nil, newTestLogger())
	l.now = func() time.Time { return fixedNow }
	return l
}

func newSeededLedger(t *testing.T) (*PaymentLedgerImpl, *memory.Store) {
	t.Helper()
	store := seededStore()
	creds := NewCredentialStore(store, "Usuarios", nil, time.Second, nil, newTestLogger())
	return newTestLedger(store, creds, nil), store
}

func rowCount(t *testing.T, store *memory.Store, collection string) int {
	t.Helper()
	sheet, err := store.ReadAll(context.Background(), collection)
	require.NoError(t, err)
	return len(sheet.Rows)
}

func TestLedger_Append_PartialPayment(t *testing.T) {
	ledger, store := newSeededLedger(t)
	ctx := context.Background()

	res, err := ledger.Append(ctx, partialPayment())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Nil(t, res.Drift)
	assert.False(t, res.Replayed)

	rec := res.Record
	assert.Regexp(t, `^PAY-[0-9A-Z]{9}$`, rec.ID)
	assert.Equal(t, domain.StatusPending, rec.Status)
	assert.Equal(t, domain.ModePartialPayment, rec.Mode)
	assert.Equal(t, fixedNow, rec.SubmittedAt)
	assert.Equal(t, "M-001", rec.EnrollmentRef, "enrollment comes from the credential when omitted")
	assert.True(t, decimal.RequireFromString("50").Equal(rec.Amount))
	assert.True(t, decimal.RequireFromString("150").Equal(rec.OutstandingBalance))
	assert.Equal(t, 1, rowCount(t, store, "Pagos"))

	mine, err := ledger.Query(ctx, "V-12345678")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, rec.ID, mine[0].ID)
	assert.Equal(t, domain.StatusPending, mine[0].Status)

	mine, err = ledger.Query(ctx, "  v-12345678 ")
	require.NoError(t, err)
	assert.Len(t, mine, 1, "lookup is case and whitespace insensitive")

	other, err := ledger.Query(ctx, "V-99999999")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestLedger_Append_StoresCanonicalCells(t *testing.T) {
	ledger, store := newSeededLedger(t)

	res, err := ledger.Append(context.Background(), partialPayment())
	require.NoError(t, err)

	sheet, err := store.ReadAll(context.Background(), "Pagos")
	require.NoError(t, err)
	row := rowmap.FromRow(sheet.Header, sheet.Rows[0])
	assert.Equal(t, res.Record.ID, row[domain.FieldID])
	assert.Equal(t, "2025-01-10T14:30:00Z", row[domain.FieldSubmittedAt])
	assert.Equal(t, "2025-01-10", row[domain.FieldPaymentDate])
	assert.Equal(t, "50.00", row[domain.FieldAmount])
	assert.Equal(t, "150.00", row[domain.FieldOutstandingBalance])
	assert.Equal(t, "Pendiente", row[domain.FieldStatus])
	assert.Equal(t, "Abono", row[domain.FieldMode])
	assert.Len(t, sheet.Rows[0], len(sheet.Header))
}

func TestLedger_Append_FullPaymentClearsBalance(t *testing.T) {
	ledger, _ := newSeededLedger(t)

	sub := partialPayment()
	sub.Mode = "pago total"
	sub.OutstandingBalance = "999"
	res, err := ledger.Append(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeFullPayment, res.Record.Mode)
	assert.True(t, res.Record.OutstandingBalance.IsZero(), "returned record matches what is stored")
	assert.Equal(t, "0.00", res.Record.Fields()[domain.FieldOutstandingBalance])

	got, err := ledger.Query(context.Background(), "V-12345678")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].OutstandingBalance.Equal(res.Record.OutstandingBalance))
}

func TestLedger_Append_KeepsSubSecondSubmissionTime(t *testing.T) {
	ledger, _ := newSeededLedger(t)
	call := fixedNow.Add(500 * time.Millisecond)
	ledger.now = func() time.Time { return call }

	res, err := ledger.Append(context.Background(), partialPayment())
	require.NoError(t, err)
	assert.False(t, res.Record.SubmittedAt.Before(call))
	assert.Equal(t, "2025-01-10T14:30:00.5Z", res.Record.Fields()[domain.FieldSubmittedAt])

	got, err := ledger.Query(context.Background(), "V-12345678")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].SubmittedAt.Before(call), "stored timestamp is not rounded down")
}

func TestLedger_Append_NormalizesEnumsAndAmounts(t *testing.T) {
	ledger, _ := newSeededLedger(t)

	sub := partialPayment()
	sub.Level = "primaria"
	sub.Method = "pago móvil"
	sub.Amount = "Bs. 1.234,50"
	sub.PaymentDate = "10/01/2025"
	res, err := ledger.Append(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "Primaria", res.Record.Level)
	assert.Equal(t, "Pago Móvil", res.Record.Method)
	assert.Equal(t, "1234.50", domain.FormatAmount(res.Record.Amount))
	assert.Equal(t, "2025-01-10", domain.FormatCalendarDate(res.Record.PaymentDate))
}

func TestLedger_Append_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Submission)
		want   string
	}{
		{"negative amount", func(s *domain.Submission) { s.Amount = "-5" }, "amount"},
		{"non-numeric amount", func(s *domain.Submission) { s.Amount = "abc" }, "amount"},
		{"zero amount", func(s *domain.Submission) { s.Amount = "0" }, "greater than zero"},
		{"missing amount", func(s *domain.Submission) { s.Amount = "" }, "amount"},
		{"non-numeric balance", func(s *domain.Submission) { s.OutstandingBalance = "mucho" }, "outstandingBalance"},
		{"partial without balance", func(s *domain.Submission) { s.OutstandingBalance = " " }, "outstandingBalance is required"},
		{"missing reference", func(s *domain.Submission) { s.Reference = "  " }, "reference is required"},
		{"unknown method", func(s *domain.Submission) { s.Method = "Cheque" }, "method"},
		{"unknown level", func(s *domain.Submission) { s.Level = "Universidad" }, "level"},
		{"unknown mode", func(s *domain.Submission) { s.Mode = "Cuota" }, "mode"},
		{"bad date", func(s *domain.Submission) { s.PaymentDate = "ayer" }, "paymentDate"},
		{"missing representative", func(s *domain.Submission) { s.RepresentativeID = "" }, "representativeId is required"},
		{"unregistered representative", func(s *domain.Submission) { s.RepresentativeID = "V-99999999" }, "not registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, store := newSeededLedger(t)
			sub := partialPayment()
			tt.mutate(&sub)

			res, err := ledger.Append(context.Background(), sub)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, 0, rowCount(t, store, "Pagos"), "nothing may be written")
		})
	}
}

func TestLedger_Append_ReportsEveryProblem(t *testing.T) {
	ledger, _ := newSeededLedger(t)
	sub := partialPayment()
	sub.Amount = "-1"
	sub.Reference = ""

	_, err := ledger.Append(context.Background(), sub)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
	assert.Contains(t, err.Error(), "reference is required")
}

func TestLedger_Append_RequiresEnrollmentWithoutDirectory(t *testing.T) {
	store := seededStore()
	ledger := newTestLedger(store, nil, nil)

	_, err := ledger.Append(context.Background(), partialPayment())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Contains(t, err.Error(), "enrollmentRef is required")

	sub := partialPayment()
	sub.EnrollmentRef = "M-777"
	sub.RepresentativeID = "V-55555555"
	res, err := ledger.Append(context.Background(), sub)
	require.NoError(t, err, "without a directory any representative is accepted")
	assert.Equal(t, "M-777", res.Record.EnrollmentRef)
}

func TestLedger_Append_SchemaDrift(t *testing.T) {
	store := seededStore()
	store.Seed("Pagos", []string{
		"id", "submittedAt", "paymentDate", "representativeId", "enrollmentRef",
		"level", "method", "reference", "amount", "status",
	})
	creds := NewCredentialStore(store, "Usuarios", nil, time.Second, nil, newTestLogger())
	ledger := newTestLedger(store, creds, nil)

	res, err := ledger.Append(context.Background(), partialPayment())
	require.NoError(t, err)
	require.NotNil(t, res.Drift)
	assert.Equal(t, "Pagos", res.Drift.Collection)
	assert.Equal(t, []string{"mode", "observations", "outstandingBalance"}, res.Drift.Fields)

	sheet, err := store.ReadAll(context.Background(), "Pagos")
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)
	assert.Len(t, sheet.Rows[0], 10)
}

func TestLedger_Append_HeaderEditedByHand(t *testing.T) {
	store := seededStore()
	store.Seed("Pagos", []string{
		" status", "type", "amount ", "cedulaRepresentative", "id", "reference",
		"pendingBalance", "timestamp", "paymentDate", "matricula", "level", "method", "observations",
	})
	creds := NewCredentialStore(store, "Usuarios", nil, time.Second, nil, newTestLogger())
	ledger := newTestLedger(store, creds, nil)

	res, err := ledger.Append(context.Background(), partialPayment())
	require.NoError(t, err)
	assert.Nil(t, res.Drift, "legacy titles count as their fields")

	got, err := ledger.Query(context.Background(), "V-12345678")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, res.Record.ID, got[0].ID)
	assert.Equal(t, domain.ModePartialPayment, got[0].Mode)
	assert.True(t, res.Record.Amount.Equal(got[0].Amount))
	assert.True(t, res.Record.OutstandingBalance.Equal(got[0].OutstandingBalance))
	assert.True(t, fixedNow.Equal(got[0].SubmittedAt))
}

func TestLedger_Append_MissingHeaderIsStorageFault(t *testing.T) {
	store := seededStore()
	store.Seed("Pagos", nil)
	creds := NewCredentialStore(store, "Usuarios", nil, time.Second, nil, newTestLogger())
	ledger := newTestLedger(store, creds, nil)

	_, err := ledger.Append(context.Background(), partialPayment())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeStorageFault), "got %v", err)
	assert.Equal(t, 0, rowCount(t, store, "Pagos"))
}

func TestLedger_Append_StoreUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTabularStore(ctrl)
	store.EXPECT().AppendRow(gomock.Any(), "Pagos", gomock.Any()).Return(errors.New("connection refused"))

	sub := partialPayment()
	sub.EnrollmentRef = "M-001"
	_, err := newTestLedger(store, nil, nil).Append(context.Background(), sub)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeStorageFault))
}

func TestLedger_Append_StoreTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTabularStore(ctrl)
	store.EXPECT().AppendRow(gomock.Any(), "Pagos", gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ports.RowBuilder) error {
			<-ctx.Done()
			return ctx.Err()
		},
	)

	opts := testLedgerOptions()
	opts.Timeout = 20 * time.Millisecond
	ledger := NewPaymentLedger(store, nil, nil, opts, nil, newTestLogger())

	sub := partialPayment()
	sub.EnrollmentRef = "M-001"
	_, err := ledger.Append(context.Background(), sub)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeStorageTimeout), "got %v", err)
}

func TestLedger_Append_DirectoryFaultIsNotValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTabularStore(ctrl)
	directory := mocks.NewMockCredentialStore(ctrl)
	directory.EXPECT().Lookup(gomock.Any(), "V-12345678").Return(nil, apperror.ErrStorageFault(errors.New("down")))

	_, err := newTestLedger(store, directory, nil).Append(context.Background(), partialPayment())
	require.Error(t, err)
	assert.True(t, apperror.IsStorageFault(err))
	assert.False(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestLedger_Query_ReadsEditedRows(t *testing.T) {
	store := memory.NewStore()
	store.Seed("Pagos",
		[]string{" amount", "cedulaRepresentative", "id ", "type", "status"},
		[]string{"10,50", "V-1", "PAY-1", "Abono", "Validado"},
		[]string{"", " ", "", "", ""},
		[]string{"20", "v-1 ", "PAY-2"},
		[]string{"abc", "V-2", "PAY-3", "Pago Total"},
	)
	ledger := newTestLedger(store, nil, nil)
	ctx := context.Background()

	mine, err := ledger.Query(ctx, "V-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "PAY-2", mine[0].ID, "newest first")
	assert.Equal(t, "PAY-1", mine[1].ID)
	assert.Equal(t, domain.StatusPending, mine[0].Status)
	assert.Equal(t, domain.ModeFullPayment, mine[0].Mode)
	assert.Equal(t, domain.StatusValidated, mine[1].Status)
	assert.Equal(t, domain.ModePartialPayment, mine[1].Mode)
	assert.True(t, decimal.RequireFromString("10.5").Equal(mine[1].Amount))

	all, err := ledger.Query(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "PAY-3", all[0].ID)
	assert.True(t, all[0].Amount.IsZero(), "unreadable amount reads as zero")
}

func TestLedger_Query_CellsPastHeaderAreStorageFault(t *testing.T) {
	store := memory.NewStore()
	store.Seed("Pagos",
		[]string{"id", "representativeId", "amount"},
		[]string{"PAY-1", "V-1", "1.00", "stray"},
	)

	_, err := newTestLedger(store, nil, nil).Query(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeStorageFault))
}

func TestLedger_Query_MissingCollectionIsStorageFault(t *testing.T) {
	_, err := newTestLedger(memory.NewStore(), nil, nil).Query(context.Background(), "V-1")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeStorageFault))
}

func TestLedger_Query_MissingIdentityColumnIsStorageFault(t *testing.T) {
	store := memory.NewStore()
	store.Seed("Pagos", []string{"id", "amount"}, []string{"PAY-1", "1.00"})

	_, err := newTestLedger(store, nil, nil).Query(context.Background(), "V-1")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeStorageFault))
}

func newRedisCache(t *testing.T) (*redisStore.IdempotencyCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisStore.NewIdempotencyCache(client), mr
}

func TestLedger_Append_IdempotentResubmission(t *testing.T) {
	store := seededStore()
	creds := NewCredentialStore(store, "Usuarios", nil, time.Second, nil, newTestLogger())
	cache, _ := newRedisCache(t)
	ledger := newTestLedger(store, creds, cache)
	ctx := context.Background()

	sub := partialPayment()
	sub.IdempotencyToken = "form-42"

	first, err := ledger.Append(ctx, sub)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	sub.RepresentativeID = " v-12345678"
	second, err := ledger.Append(ctx, sub)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, 1, rowCount(t, store, "Pagos"))

	sub.IdempotencyToken = "form-43"
	third, err := ledger.Append(ctx, sub)
	require.NoError(t, err)
	assert.NotEqual(t, first.Record.ID, third.Record.ID)
	assert.Equal(t, 2, rowCount(t, store, "Pagos"))
}

func TestLedger_Append_CacheDownStillRecords(t *testing.T) {
	store := seededStore()
	creds := NewCredentialStore(store, "Usuarios", nil, time.Second, nil, newTestLogger())
	cache, mr := newRedisCache(t)
	mr.Close()
	ledger := newTestLedger(store, creds, cache)

	sub := partialPayment()
	sub.IdempotencyToken = "form-1"
	res, err := ledger.Append(context.Background(), sub)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, 1, rowCount(t, store, "Pagos"))
}

func TestLedger_Append_ConcurrentTokenInProgress(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTabularStore(ctrl)
	cache := mocks.NewMockIdempotencyCache(ctrl)

	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)
	cache.EXPECT().Claim(gomock.Any(), gomock.Any(), time.Hour).Return(false, nil)

	sub := partialPayment()
	sub.EnrollmentRef = "M-001"
	sub.IdempotencyToken = "form-1"
	_, err := newTestLedger(store, nil, cache).Append(context.Background(), sub)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeSubmissionBusy))
}

func TestLedger_Append_ReleasesClaimOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTabularStore(ctrl)
	cache := mocks.NewMockIdempotencyCache(ctrl)
	key := domain.BuildSubmissionKey("V-12345678", "form-1")

	gomock.InOrder(
		cache.EXPECT().Get(gomock.Any(), key).Return(nil, nil),
		cache.EXPECT().Claim(gomock.Any(), key, time.Hour).Return(true, nil),
		store.EXPECT().AppendRow(gomock.Any(), "Pagos", gomock.Any()).Return(errors.New("down")),
		cache.EXPECT().Release(gomock.Any(), key).Return(nil),
	)

	sub := partialPayment()
	sub.EnrollmentRef = "M-001"
	sub.IdempotencyToken = "form-1"
	_, err := newTestLedger(store, nil, cache).Append(context.Background(), sub)
	assert.True(t, apperror.HasCode(err, apperror.CodeStorageFault))
}

func TestLedger_Append_ReplaysDriftWarning(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTabularStore(ctrl)
	cache := mocks.NewMockIdempotencyCache(ctrl)

	entry := domain.IdempotencyEntry{
		Record:        domain.PaymentRecord{ID: "PAY-CACHED001", Status: domain.StatusPending},
		DroppedFields: []string{"mode"},
	}
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(data, nil)

	sub := partialPayment()
	sub.EnrollmentRef = "M-001"
	sub.IdempotencyToken = "form-1"
	res, err := newTestLedger(store, nil, cache).Append(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, "PAY-CACHED001", res.Record.ID)
	require.NotNil(t, res.Drift)
	assert.Equal(t, []string{"mode"}, res.Drift.Fields)
}

func TestGeneratePaymentID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		id, err := generatePaymentID()
		require.NoError(t, err)
		assert.Regexp(t, `^PAY-[0-9A-Z]{9}$`, id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 500)
}
