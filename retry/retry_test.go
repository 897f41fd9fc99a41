package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/reviewhub-client/retry"
)

type flaky struct{ retryable bool }

func (f flaky) Error() string   { return fmt.Sprintf("flaky(%v)", f.retryable) }
func (f flaky) Retryable() bool { return f.retryable }

func fastPolicy(n int) retry.Policy {
	return retry.Policy{MaxRetries: n, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 2}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	val, err := fastPolicy(3).Do(context.Background(), func(context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, flaky{retryable: true}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := fastPolicy(5).Do(context.Background(), func(context.Context) (any, error) {
		calls++
		return nil, fmt.Errorf("wrapped: %w", flaky{retryable: false})
	})

	var f flaky
	require.ErrorAs(t, err, &f)
	assert.False(t, f.retryable)
	assert.Equal(t, 1, calls)
}

func TestDoGivesUpAfterBudget(t *testing.T) {
	calls := 0
	_, err := fastPolicy(2).Do(context.Background(), func(context.Context) (any, error) {
		calls++
		return nil, flaky{retryable: true}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDisabledNeverRetries(t *testing.T) {
	calls := 0
	_, _ = retry.Disabled().Do(context.Background(), func(context.Context) (any, error) {
		calls++
		return nil, flaky{retryable: true}
	})
	assert.Equal(t, 1, calls)
}

func TestShouldRetryUnknownErrors(t *testing.T) {
	p := retry.DefaultPolicy()
	assert.False(t, p.ShouldRetry(errors.New("plain")))
	assert.False(t, p.ShouldRetry(context.Canceled))
	assert.False(t, p.ShouldRetry(nil))
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	p := retry.Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 300*time.Millisecond, p.Backoff(3))
	assert.Equal(t, time.Duration(0), p.Backoff(0))
}

func TestBackoffJitterStaysInRange(t *testing.T) {
	p := retry.Policy{InitialBackoff: 100 * time.Millisecond, Multiplier: 2, Jitter: 0.5}
	for i := 0; i < 50; i++ {
		d := p.Backoff(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := retry.Policy{MaxRetries: 10, InitialBackoff: time.Hour}

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := p.Do(ctx, func(context.Context) (any, error) {
		calls++
		return nil, flaky{retryable: true}
	})

	// the failure is reported, not the cancellation that cut the wait short
	assert.Equal(t, flaky{retryable: true}, err)
	assert.Equal(t, 1, calls)
}

func TestDoReturnsValueAfterRetry(t *testing.T) {
	p := retry.Policy{MaxRetries: 1, InitialBackoff: time.Millisecond, Jitter: 1}
	calls := 0
	val, err := p.Do(context.Background(), func(context.Context) (any, error) {
		calls++
		if calls == 1 {
			return "partial", flaky{retryable: true}
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestDoDropsValueOnFailure(t *testing.T) {
	val, err := retry.Disabled().Do(context.Background(), func(context.Context) (any, error) {
		return "partial", flaky{retryable: true}
	})

	require.Error(t, err)
	assert.Nil(t, val)
}
