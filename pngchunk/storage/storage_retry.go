package storage

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/flaneur2020/pngchunk/pngchunk"
	"github.com/flaneur2020/pngchunk/pngchunk/logger"
)

// RetryOptions controls how RetryStorage retries failed operations.
type RetryOptions struct {
	MaxAttempts int           // total attempts per operation, at least 1
	Backoff     time.Duration // delay before the second attempt, doubled after each failure
}

// DefaultRetryOptions returns options with 3 attempts and a 50ms initial backoff.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts: 3,
		Backoff:     50 * time.Millisecond,
	}
}

// RetryStorage retries transient failures of an underlying Storage.
// Missing files, permission errors and context cancellation are not retried.
type RetryStorage struct {
	inner Storage
	opts  RetryOptions
}

var _ Storage = (*RetryStorage)(nil)

// NewRetryStorage wraps inner with retry behaviour.
func NewRetryStorage(inner Storage, opts RetryOptions) *RetryStorage {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &RetryStorage{inner: inner, opts: opts}
}

// ReadFile reads name, retrying transient failures.
func (r *RetryStorage) ReadFile(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := r.do(ctx, "read", name, func() error {
		var err error
		data, err = r.inner.ReadFile(ctx, name)
		return err
	})
	return data, err
}

// WriteFile writes name, retrying transient failures.
func (r *RetryStorage) WriteFile(ctx context.Context, name string, data []byte) (FileDescriptor, error) {
	var desc FileDescriptor
	err := r.do(ctx, "write", name, func() error {
		var err error
		desc, err = r.inner.WriteFile(ctx, name, data)
		return err
	})
	return desc, err
}

func (r *RetryStorage) do(ctx context.Context, op, name string, fn func() error) error {
	backoff := r.opts.Backoff
	var err error
	attempt := 0
	for attempt < r.opts.MaxAttempts {
		attempt++
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == r.opts.MaxAttempts {
			break
		}

		logger.Warn("%s %s failed (attempt %d/%d): %v", op, name, attempt, r.opts.MaxAttempts, err)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return pngchunk.ErrIOFailed.
		WithDetail("path", name).
		WithDetail("op", op).
		WithDetail("attempts", attempt).
		WithCause(err)
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return false
	}
	return true
}
