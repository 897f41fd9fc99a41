package api

import (
	"context"
	"time"

	"github.com/krisalay/reviewhub-client/key"
	"github.com/krisalay/reviewhub-client/types"
)

/*
Cache is the public contract of the query cache. Query observers and
mutations depend on this interface, never on the concrete type, so every
test can build its own isolated instance.
*/
type Cache interface {

	/*
		Get returns the current entry for k without fetching.
		The entry is a snapshot and must not be modified.
	*/
	Get(k key.Key) (*types.CacheEntry, bool)

	/*
		Set replaces the entry for k and notifies its subscribers
		synchronously. A Set wins over any fetch for k that was already in
		flight: those results are discarded when they arrive.
	*/
	Set(k key.Key, ent *types.CacheEntry)

	/*
		Invalidate marks every entry whose key starts with prefix as stale
		and returns how many it touched. Values stay in place, so
		subscribers keep showing them until the refetch resolves.
	*/
	Invalidate(prefix key.Key) int

	/*
		Subscribe registers l for changes to k and returns an id for
		Unsubscribe. A subscribed entry is never collected or evicted.
	*/
	Subscribe(k key.Key, l types.Listener) uint64

	/*
		Unsubscribe removes a listener. When the last one leaves, the idle
		timer of the entry starts. Fetches in flight are not cancelled.
	*/
	Unsubscribe(k key.Key, id uint64)

	/*
		Fetch joins the fetch in flight for k, or starts one. Every waiter
		gets the result of the same single call. A done ctx stops waiting
		but not the fetch.
	*/
	Fetch(ctx context.Context, k key.Key, f types.Fetcher) (any, error)

	/*
		Join is Fetch for a caller that already saw k loading at since:
		if that fetch has completed in the meantime, its outcome is
		returned instead of starting another.
	*/
	Join(ctx context.Context, k key.Key, f types.Fetcher, since time.Time) (any, error)

	// Ensure returns the cached value if it is fresh, otherwise it fetches.
	Ensure(ctx context.Context, k key.Key, f types.Fetcher, staleTime time.Duration) (any, error)

	/*
		Read is the stale-while-revalidate read:
		- fresh entry: returned as is
		- stale entry with a value: returned at once, refetch in background
		- nothing usable: waits for a fetch
	*/
	Read(ctx context.Context, k key.Key, f types.Fetcher, staleTime time.Duration) (*types.CacheEntry, error)

	// Prefetch starts a fetch for k if it is stale and returns immediately.
	Prefetch(k key.Key, f types.Fetcher, staleTime time.Duration)

	// StaleTime is the default freshness window.
	StaleTime() time.Duration

	// Collect drops idle entries whose GC time has passed.
	Collect() int

	// Close stops background work.
	Close()
}
