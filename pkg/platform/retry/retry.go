// Package retry wraps idempotent reads in bounded exponential backoff.
// Writes (session create, blacklist insert) must never go through here.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"salesgate/pkg/platform/sentinel"
)

// Policy bounds a retry loop.
type Policy struct {
	Attempts        uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy gives three attempts in well under 500ms.
var DefaultPolicy = Policy{
	Attempts:        3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     200 * time.Millisecond,
}

// Read runs fn until it succeeds, returns a permanent error, or the policy
// is exhausted. sentinel.ErrNotFound and context cancellation are permanent.
func Read[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var result T
	op := func() error {
		v, err := fn(ctx)
		if err == nil {
			result = v
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.Retry(op, p.backOff(ctx))
	return result, err
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, attempts-1), ctx)
}

func isPermanent(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
