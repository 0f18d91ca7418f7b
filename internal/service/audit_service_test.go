package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tuition-ledger/internal/adapter/storage/memory"
	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports/mocks"
	"tuition-ledger/internal/core/rowmap"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuditService_Log_Persists(t *testing.T) {
	store := memory.NewStore()
	store.Seed("Auditoria", domain.AuditHeader)
	svc := NewAuditService(store, "Auditoria", time.Second, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	entry := &domain.AuditLog{
		ID:         uuid.New(),
		At:         fixedNow,
		Action:     domain.AuditActionSubmitPayment,
		Identity:   "v-12345678",
		Resource:   "/api/v1/payments",
		IPAddress:  "10.0.0.7",
		HTTPStatus: 201,
	}
	svc.Log(ctx, entry)
	cancel() // a finished request must not abort the write
	svc.Wait()

	sheet, err := store.ReadAll(context.Background(), "Auditoria")
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)
	row := rowmap.FromRow(sheet.Header, sheet.Rows[0])
	assert.Equal(t, entry.ID.String(), row[domain.FieldID])
	assert.Equal(t, "2025-01-10T14:30:00Z", row[domain.FieldAuditAt])
	assert.Equal(t, string(domain.AuditActionSubmitPayment), row[domain.FieldAuditAction])
	assert.Equal(t, "201", row[domain.FieldAuditStatus])
}

func TestAuditService_Log_WithoutStore(t *testing.T) {
	svc := NewAuditService(nil, "", time.Second, newTestLogger())
	svc.Log(context.Background(), &domain.AuditLog{ID: uuid.New(), Action: domain.AuditActionLogin})
	svc.Wait()
}

func TestAuditService_Log_StoreFailureIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTabularStore(ctrl)
	store.EXPECT().AppendRow(gomock.Any(), "Auditoria", gomock.Any()).Return(errors.New("down"))

	svc := NewAuditService(store, "Auditoria", time.Second, newTestLogger())
	svc.Log(context.Background(), &domain.AuditLog{ID: uuid.New(), Action: domain.AuditActionRegister})
	svc.Wait()
}
