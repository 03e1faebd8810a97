package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// defaultBackOff is the retry schedule for storage and remote calls.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}

// retryable reports whether a remote call error is worth another attempt.
func retryable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domain.ErrTimeout) ||
		errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, domain.ErrTransient)
}

// callWithRetry runs fn under a per-call timeout, retrying timeouts and
// transient failures up to retries extra times. Cancellation of ctx itself
// is never retried.
func callWithRetry[T any](
	ctx context.Context, b backoff.BackOff, timeout time.Duration, retries int,
	fn func(context.Context) (T, error),
) (T, error) {
	op := func() (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		v, err := fn(callCtx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() == nil && retryable(err) {
			return v, err
		}
		return v, backoff.Permanent(err)
	}

	v, err := backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(uint(max(retries, 0)+1)))
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return v, err
}

// storageWithRetry retries op while it fails with domain.ErrTransient.
// The final error always wraps domain.ErrStorage.
func storageWithRetry[T any](ctx context.Context, b backoff.BackOff, retries int, op func() (T, error)) (T, error) {
	v, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, domain.ErrTransient) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(max(retries, 0)+1)))

	if err != nil && !errors.Is(err, domain.ErrStorage) {
		err = fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return v, err
}
