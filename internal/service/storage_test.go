package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tuition-ledger/internal/metrics"
	"tuition-ledger/pkg/apperror"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStoreCall(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	t.Run("success", func(t *testing.T) {
		err := storeCall(context.Background(), time.Second, m, "op", func(context.Context) error { return nil })
		assert.NoError(t, err)
	})

	t.Run("plain error is a fault", func(t *testing.T) {
		err := storeCall(context.Background(), time.Second, m, "op", func(context.Context) error { return errors.New("eof") })
		assert.True(t, apperror.HasCode(err, apperror.CodeStorageFault))
	})

	t.Run("deadline is a timeout", func(t *testing.T) {
		err := storeCall(context.Background(), 10*time.Millisecond, m, "op", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeStorageTimeout))
	})

	t.Run("application errors pass through", func(t *testing.T) {
		err := storeCall(context.Background(), time.Second, m, "op", func(context.Context) error {
			return apperror.Validation("x")
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	n, err := testutil.GatherAndCount(reg, "tuition_ledger_store_errors_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n, "one fault series and one timeout series")
}

func TestStoreCall_NilMetrics(t *testing.T) {
	err := storeCall(context.Background(), 0, nil, "op", func(context.Context) error { return errors.New("x") })
	assert.True(t, apperror.IsStorageFault(err))
}
