package ar

import (
	"context"
	"errors"
	"time"

	"github.com/arledger/backend/internal/domain/shared"
)

const (
	// DefaultConflictRetries bounds how often a version conflict is
	// retried before it is surfaced to the caller as retryable.
	DefaultConflictRetries = 3

	conflictRetryDelay = 25 * time.Millisecond
)

// withConflictRetry re-runs fn when it fails with a concurrency
// conflict, up to the given number of attempts. Any other error is
// returned immediately. The last conflict is surfaced unchanged so the
// caller sees it as retryable.
func withConflictRetry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(conflictRetryDelay):
		}
	}
	return err
}
