/*
Package query binds a piece of code to one cache key for as long as it
needs the data, the way a mounted UI component would.

Use subscribes to the key and starts a fetch when the cached value is
missing or stale. Close unsubscribes; a fetch already in flight keeps
running so its result still lands in the cache for other observers.
*/
package query

import (
	"context"
	"sync"
	"time"

	"github.com/krisalay/reviewhub-client/api"
	"github.com/krisalay/reviewhub-client/key"
	"github.com/krisalay/reviewhub-client/types"
)

// Result is the state of an observed query.
type Result[T any] struct {
	Data    T
	HasData bool

	Status types.Status

	// IsLoading is true while there is no data yet and no error.
	IsLoading bool

	// IsFetching is true whenever a fetch is in flight, including
	// background revalidations of data that is already shown.
	IsFetching bool

	IsError bool
	Err     error

	IsStale   bool
	UpdatedAt time.Time
}

// Observer watches one key.
type Observer[T any] struct {
	cache api.Cache
	key   key.Key
	fetch types.Fetcher

	mu     sync.Mutex
	opts   options
	subID  uint64
	closed bool
}

// Use creates an observer for k and subscribes it.
func Use[T any](c api.Cache, k key.Key, fetch func(ctx context.Context) (T, error), opts ...Option) *Observer[T] {
	o := &Observer[T]{
		cache: c,
		key:   k,
		fetch: func(ctx context.Context) (any, error) { return fetch(ctx) },
		opts:  newOptions(opts),
	}
	o.subID = c.Subscribe(k, o.onEntry)

	if o.opts.enabled {
		c.Prefetch(k, o.fetch, o.staleTime())
	}
	return o
}

// Key returns the observed key.
func (o *Observer[T]) Key() key.Key { return o.key }

func (o *Observer[T]) staleTime() time.Duration {
	if o.opts.staleSet {
		return o.opts.staleTime
	}
	return o.cache.StaleTime()
}

// onEntry runs synchronously whenever the cache replaces the observed entry.
func (o *Observer[T]) onEntry(ent *types.CacheEntry) {
	o.mu.Lock()
	enabled, closed, onChange := o.opts.enabled, o.closed, o.opts.onChange
	o.mu.Unlock()
	if closed {
		return
	}

	// an invalidated key with a live observer refetches right away
	if enabled && ent.Invalidated && !ent.IsLoading() {
		o.cache.Prefetch(o.key, o.fetch, o.staleTime())
	}
	if onChange != nil {
		onChange()
	}
}

// Result returns the current state from the cache.
func (o *Observer[T]) Result() Result[T] {
	o.mu.Lock()
	enabled := o.opts.enabled
	o.mu.Unlock()

	var r Result[T]
	ent, ok := o.cache.Get(o.key)
	if !ok {
		r.Status = types.StatusIdle
		r.IsLoading = enabled
		r.IsStale = true
		return r
	}

	if ent.HasValue {
		if v, ok := ent.Value.(T); ok {
			r.Data = v
			r.HasData = true
		}
	}
	r.Status = ent.Status
	r.IsFetching = ent.Status == types.StatusLoading
	r.IsError = ent.Status == types.StatusError
	r.IsLoading = enabled && !r.HasData && !r.IsError
	r.Err = ent.Err
	r.UpdatedAt = ent.UpdatedAt
	r.IsStale = ent.Invalidated || !ent.HasValue || time.Since(ent.UpdatedAt) >= o.staleTime()
	return r
}

/*
Await waits until the observed query has settled: it joins a fetch in
flight or starts the first one, and returns the resulting state. When
data is already present and no fetch is running it returns immediately.
A disabled observer returns its current state without fetching.
*/
func (o *Observer[T]) Await(ctx context.Context) (Result[T], error) {
	o.mu.Lock()
	enabled := o.opts.enabled
	o.mu.Unlock()
	if !enabled {
		return o.Result(), nil
	}

	var err error
	since := time.Now()
	ent, ok := o.cache.Get(o.key)
	switch {
	case !ok || ent.Status == types.StatusIdle:
		_, err = o.cache.Fetch(ctx, o.key, o.fetch)
	case ent.IsLoading():
		// the fetch seen here may complete before Join reaches it
		_, err = o.cache.Join(ctx, o.key, o.fetch, since)
	}
	if err != nil {
		return o.Result(), err
	}
	r := o.Result()
	return r, r.Err
}

// Refetch forces a fetch (joining one in flight) and returns the new state.
// It works on disabled observers too, like a manual refresh button.
func (o *Observer[T]) Refetch(ctx context.Context) (Result[T], error) {
	if _, err := o.cache.Fetch(ctx, o.key, o.fetch); err != nil {
		return o.Result(), err
	}
	return o.Result(), nil
}

// SetEnabled switches fetching on or off. Enabling a stale query starts a fetch.
func (o *Observer[T]) SetEnabled(enabled bool) {
	o.mu.Lock()
	o.opts.enabled = enabled
	start := enabled && !o.closed
	o.mu.Unlock()

	if start {
		o.cache.Prefetch(o.key, o.fetch, o.staleTime())
	}
}

// Close unsubscribes the observer. It is safe to call more than once.
func (o *Observer[T]) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.cache.Unsubscribe(o.key, o.subID)
}
