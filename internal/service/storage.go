package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tuition-ledger/internal/metrics"
	"tuition-ledger/pkg/apperror"
)

// storeCall runs fn under the store timeout and classifies any failure as
// a storage timeout or storage fault. Errors that already carry an
// application code pass through unchanged. No retries are attempted.
func storeCall(ctx context.Context, timeout time.Duration, m *metrics.Metrics, op string, fn func(ctx context.Context) error) error {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Code == apperror.CodeStorageFault {
			m.StoreError(op, "fault")
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		m.StoreError(op, "timeout")
		return apperror.ErrStorageTimeout(fmt.Errorf("%s: %w", op, err))
	}
	m.StoreError(op, "fault")
	return apperror.ErrStorageFault(fmt.Errorf("%s: %w", op, err))
}

// malformed reports a store whose contents cannot be interpreted.
func malformed(format string, args ...any) error {
	return apperror.ErrStorageFault(fmt.Errorf(format, args...))
}
