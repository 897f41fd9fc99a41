// This file defines the refresh hook used for stale-while-revalidate reads.
// A read that finds a stale value returns it right away and hands the
// refetch to the hook, so the caller never waits on the network.

package refresh

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/krisalay/reviewhub-client/key"
)

/*
Hook runs background revalidations.

OnStale is called on the read path. It MUST NOT block: the read has
already decided to return the stale value and only wants the refetch to
happen eventually.
*/
type Hook interface {
	OnStale(k key.Key, revalidate func(ctx context.Context))
	Close()
}

/*
Background runs each revalidation on its own goroutine, with at most
limit of them at once. When the limit is reached the revalidation is
skipped; the entry stays stale, so the next read will try again.
*/
type Background struct {
	sem    *semaphore.Weighted
	logger *zap.Logger
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBackground creates a background hook. A limit below 1 is treated as 1.
func NewBackground(limit int64, logger *zap.Logger) *Background {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Background{
		sem:    semaphore.NewWeighted(limit),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnStale schedules revalidate unless too many are already running.
func (b *Background) OnStale(k key.Key, revalidate func(ctx context.Context)) {
	if !b.sem.TryAcquire(1) {
		b.logger.Debug("revalidation skipped, limit reached", zap.Stringer("key", k))
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.sem.Release(1)
		revalidate(b.ctx)
	}()
}

// Close waits for running revalidations to finish.
func (b *Background) Close() {
	b.wg.Wait()
	b.cancel()
}

// Synchronous runs the revalidation inline. Meant for tests and tools that
// want reads to be deterministic.
type Synchronous struct{}

func (Synchronous) OnStale(_ key.Key, revalidate func(ctx context.Context)) {
	revalidate(context.Background())
}

func (Synchronous) Close() {}
