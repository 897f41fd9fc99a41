// Package retry holds the single retry policy shared by every query.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

/*
Retryable is implemented by errors that know whether repeating the call
could help. Transport failures say yes; 401 responses, server-side
application errors and client-side validation errors say no.
*/
type Retryable interface {
	Retryable() bool
}

// Policy configures bounded exponential backoff with jitter.
type Policy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait.
	MaxBackoff time.Duration

	// Multiplier grows the wait after every attempt.
	Multiplier float64

	// Jitter spreads each wait by up to this fraction (0.0 to 1.0).
	Jitter float64
}

// DefaultPolicy returns three retries starting at 200ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.2,
	}
}

// Disabled returns a policy that never retries.
func Disabled() Policy {
	return Policy{}
}

// ShouldRetry reports whether err may be retried. Errors that do not
// implement Retryable anywhere in their chain are not retried, and neither
// are context cancellations.
func (p Policy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// Backoff returns the wait before retry number attempt (starting at 1).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.InitialBackoff <= 0 {
		return 0
	}
	b := p.exponential()
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// exponential maps the policy onto a fresh backoff schedule. The retry
// budget, not elapsed time, ends the schedule.
func (p Policy) exponential() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.MaxInterval = p.MaxBackoff
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.RandomizationFactor = math.Min(math.Max(p.Jitter, 0), 1)
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Do runs fn until it succeeds, returns a non-retryable error, the retry
// budget is spent, or ctx is done. The last error from fn is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	var last error
	op := func() (any, error) {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		last = err
		if !p.ShouldRetry(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	retries := uint64(0)
	if p.MaxRetries > 0 {
		retries = uint64(p.MaxRetries)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(p.exponential(), retries), ctx)

	val, err := backoff.RetryWithData(op, b)
	if err != nil {
		// a cancelled wait reports ctx.Err(); callers want the failure itself
		if last != nil {
			return nil, last
		}
		return nil, err
	}
	return val, nil
}
