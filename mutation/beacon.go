package mutation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// This file implements fire-and-forget calls whose outcome nobody waits for,
// such as the merchant visit counter.

/*
Beacon sends values to the server from one background worker.

Fire never blocks: values go into a buffered queue and are dropped when
the queue is full. A lost visit ping costs less than a stalled caller.
Failures are logged and otherwise ignored.
*/
type Beacon[T any] struct {
	send    func(ctx context.Context, v T) error
	timeout time.Duration
	logger  *zap.Logger

	// mu guards ch against Fire racing with Close.
	mu     sync.RWMutex
	ch     chan T
	closed bool

	wg      sync.WaitGroup
	dropped atomic.Uint64
}

/*
NewBeacon starts a beacon with room for buffer queued values. Each send
gets its own timeout; zero means no per-send deadline.
*/
func NewBeacon[T any](send func(ctx context.Context, v T) error, buffer int, timeout time.Duration, logger *zap.Logger) *Beacon[T] {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Beacon[T]{
		send:    send,
		timeout: timeout,
		logger:  logger,
		ch:      make(chan T, buffer),
	}

	b.wg.Add(1)
	go b.worker()

	return b
}

// Fire queues v and reports whether it was accepted.
func (b *Beacon[T]) Fire(v T) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		return false
	}

	select {
	case b.ch <- v:
		return true
	default:
		b.dropped.Add(1)
		return false
	}
}

// Dropped returns how many values were rejected so far.
func (b *Beacon[T]) Dropped() uint64 { return b.dropped.Load() }

func (b *Beacon[T]) worker() {
	defer b.wg.Done()

	for v := range b.ch {
		ctx, cancel := context.Background(), context.CancelFunc(func() {})
		if b.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, b.timeout)
		}
		if err := b.send(ctx, v); err != nil {
			b.logger.Debug("beacon send failed", zap.Error(err))
		}
		cancel()
	}
}

/*
Close stops accepting values and waits until everything already queued
has been sent. It is safe to call more than once.
*/
func (b *Beacon[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.ch)
	b.mu.Unlock()

	b.wg.Wait()
}
