/*
Package mutation runs server writes and keeps the query cache consistent
with them.

A Mutation wraps one write operation. Every successful call applies the
invalidation rule exactly once, so observers of the affected keys
refetch; a failed call invalidates nothing.
*/
package mutation

import (
	"context"
	"errors"
	"sync"

	"github.com/krisalay/reviewhub-client/api"
	"github.com/krisalay/reviewhub-client/key"
)

// ErrInFlight is returned by an exclusive mutation called while a previous call is still pending.
var ErrInFlight = errors.New("mutation: a call is already in flight")

// Status of the most recent call.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Func is the write operation itself, usually a single transport call.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

/*
Mutation is a reusable handle around one write operation.

Calls are independent: two overlapping calls both reach the server and
both apply their invalidations. The observable state (Status, Err, Data)
always describes the most recently started call.
*/
type Mutation[In, Out any] struct {
	cache api.Cache
	fn    Func[In, Out]
	opts  options[In, Out]

	mu      sync.Mutex
	gen     uint64
	pending int
	status  Status
	err     error
	data    Out
}

// New creates a mutation bound to c.
func New[In, Out any](c api.Cache, fn Func[In, Out], opts ...Option[In, Out]) *Mutation[In, Out] {
	o := options[In, Out]{}
	for _, opt := range opts {
		opt(&o)
	}
	return &Mutation[In, Out]{cache: c, fn: fn, opts: o}
}

/*
MutateAsync runs the mutation and returns its result.

On success the invalidation rule runs before OnSuccess, so callbacks that
read the cache already see the affected keys marked stale.
*/
func (m *Mutation[In, Out]) MutateAsync(ctx context.Context, in In) (Out, error) {
	gen, err := m.begin()
	if err != nil {
		var zero Out
		return zero, err
	}

	out, err := m.fn(ctx, in)
	if err == nil {
		m.invalidate(in, out)
	}
	m.finish(gen, out, err)

	if err != nil {
		if m.opts.onError != nil {
			m.opts.onError(in, err)
		}
		return out, err
	}
	if m.opts.onSuccess != nil {
		m.opts.onSuccess(in, out)
	}
	return out, nil
}

// Mutate runs the mutation in the background. Results are reported through
// the state accessors and the OnSuccess / OnError callbacks.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) {
	go func() { _, _ = m.MutateAsync(ctx, in) }()
}

func (m *Mutation[In, Out]) begin() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opts.exclusive && m.pending > 0 {
		return 0, ErrInFlight
	}
	m.gen++
	m.pending++
	m.status = StatusPending
	m.err = nil
	return m.gen, nil
}

func (m *Mutation[In, Out]) finish(gen uint64, out Out, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending--
	if gen != m.gen {
		// a newer call owns the state
		return
	}
	if err != nil {
		m.status, m.err = StatusError, err
		return
	}
	m.status, m.data = StatusSuccess, out
}

func (m *Mutation[In, Out]) invalidate(in In, out Out) {
	if m.opts.invalidate == nil {
		return
	}
	for _, prefix := range m.opts.invalidate(in, out) {
		m.cache.Invalidate(prefix)
	}
}

// Status returns the status of the most recent call.
func (m *Mutation[In, Out]) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Mutation[In, Out]) IsPending() bool { return m.Status() == StatusPending }

func (m *Mutation[In, Out]) IsError() bool { return m.Status() == StatusError }

// Err returns the error of the most recent call, if it failed.
func (m *Mutation[In, Out]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Data returns the result of the most recent successful call.
func (m *Mutation[In, Out]) Data() Out {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Reset returns the state to idle. Calls in flight no longer update it.
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero Out
	m.gen++
	m.status, m.err, m.data = StatusIdle, nil, zero
}

// Keys is a helper for invalidation rules that do not depend on the call.
func Keys[In, Out any](keys ...key.Key) func(In, Out) []key.Key {
	return func(In, Out) []key.Key { return keys }
}
