package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/krisalay/reviewhub-client/expiration"
	"github.com/krisalay/reviewhub-client/refresh"
	"github.com/krisalay/reviewhub-client/retry"
	"github.com/krisalay/reviewhub-client/types"
)

// ErrFetchTimeout is returned when a fetch does not finish within FetchTimeout.
var ErrFetchTimeout = errors.New("fetch timed out")

// DefaultFetchTimeout bounds a fetch so an entry never stays loading forever.
const DefaultFetchTimeout = 30 * time.Second

/*
CacheEngine is the policy layer of the cache. It decides:
- when an entry is stale and when it may be collected
- how a stale read gets revalidated
- how a fetch is retried and how long it may take
- where events are reported

It does NOT store entries, handle sharding or take locks.
*/
type CacheEngine struct {

	// Expiration decides staleness and idle collection.
	Expiration expiration.Strategy

	// Refresh runs stale-while-revalidate refetches off the read path.
	Refresh refresh.Hook

	// Retry is shared by every fetch the cache starts.
	Retry retry.Policy

	// Metrics records cache events.
	Metrics types.Metrics

	Logger *zap.Logger

	// StaleTime is used by reads that do not pass their own.
	StaleTime time.Duration

	// FetchTimeout bounds one fetch including retries.
	FetchTimeout time.Duration
}

/*
NewCacheEngine creates a CacheEngine. Nil arguments get defaults:
a five minute GC window, background revalidation of up to 8 keys at once,
no-op metrics and a no-op logger.
*/
func NewCacheEngine(
	exp expiration.Strategy,
	hook refresh.Hook,
	policy retry.Policy,
	metrics types.Metrics,
	logger *zap.Logger,
) *CacheEngine {
	if exp == nil {
		exp = &expiration.StaleWhileRevalidate{GCTime: expiration.DefaultGCTime}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if hook == nil {
		hook = refresh.NewBackground(8, logger)
	}
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	return &CacheEngine{
		Expiration:   exp,
		Refresh:      hook,
		Retry:        policy,
		Metrics:      metrics,
		Logger:       logger,
		FetchTimeout: DefaultFetchTimeout,
	}
}

// IsStale checks ent against staleTime at the current time.
func (e *CacheEngine) IsStale(ent *types.CacheEntry, staleTime time.Duration) bool {
	return e.Expiration.IsStale(ent, staleTime, time.Now())
}

// IsCollectable checks whether an entry idle since idleSince may go.
func (e *CacheEngine) IsCollectable(idleSince time.Time) bool {
	return e.Expiration.IsCollectable(idleSince, time.Now())
}

/*
Run executes one fetch: retry policy inside, timeout outside.

ctx should already be detached from whoever triggered the fetch; Run only
adds the deadline.
*/
func (e *CacheEngine) Run(ctx context.Context, fetch types.Fetcher) (any, error) {
	if e.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.FetchTimeout)
		defer cancel()
	}

	e.Metrics.Fetch()
	val, err := e.Retry.Do(ctx, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", ErrFetchTimeout, e.FetchTimeout, err)
		}
		e.Metrics.FetchError()
		return nil, err
	}
	return val, nil
}

// Close stops background revalidation.
func (e *CacheEngine) Close() {
	if e.Refresh != nil {
		e.Refresh.Close()
	}
}
