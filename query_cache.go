package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/krisalay/reviewhub-client/api"
	"github.com/krisalay/reviewhub-client/engine"
	evict "github.com/krisalay/reviewhub-client/eviction"
	"github.com/krisalay/reviewhub-client/key"
	"github.com/krisalay/reviewhub-client/shard"
	"github.com/krisalay/reviewhub-client/types"
)

// ErrNoFetcher is returned when a fetch is requested without a fetch function.
var ErrNoFetcher = errors.New("cache: no fetcher")

// sweepEvery is how many writes pass between opportunistic idle sweeps of a shard.
const sweepEvery = 64

var _ api.Cache = (*QueryCache)(nil)

/*
QueryCache holds server state for the whole client session.

It connects:
- shards, which store one slot per key
- the engine, which owns staleness, retries, timeouts and metrics
- singleflight, which collapses concurrent fetches of one key into one call

Build one per session and pass it down; there is no package-level instance.
*/
type QueryCache struct {
	shards []*shard.Shard

	engine *engine.CacheEngine

	selector shard.Selector

	// capacity is the soft limit on entries, split evenly across shards.
	// Zero means unbounded; idle collection still applies.
	capacity int

	sf singleflight.Group

	nextID atomic.Uint64

	writes atomic.Uint64
}

// NewQueryCache creates a cache with the given shard count, capacity and eviction policy.
func NewQueryCache(
	shards int,
	capacity int,
	eviction evict.PolicyType,
	engine *engine.CacheEngine,
) *QueryCache {
	if shards < 1 {
		shards = 1
	}
	s := make([]*shard.Shard, shards)
	for i := range s {
		s[i] = shard.NewShard(evict.NewEvictionPolicy(eviction))
	}

	return &QueryCache{
		shards:   s,
		engine:   engine,
		selector: shard.HashSelector{},
		capacity: capacity,
	}
}

// StaleTime returns the default freshness window of the engine.
func (c *QueryCache) StaleTime() time.Duration {
	return c.engine.StaleTime
}

func (c *QueryCache) shardFor(ks string) *shard.Shard {
	return c.selector.Select(ks, c.shards)
}

// Get returns the current entry for k.
func (c *QueryCache) Get(k key.Key) (*types.CacheEntry, bool) {
	ks := k.String()
	sh := c.shardFor(ks)

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	slot, ok := sh.Store.Get(ks)
	if !ok {
		return nil, false
	}
	sh.Eviction.OnGet(ks)
	return slot.Entry, true
}

// Set replaces the entry for k.
func (c *QueryCache) Set(k key.Key, ent *types.CacheEntry) {
	ks := k.String()
	sh := c.shardFor(ks)

	cp := *ent
	cp.Key = k
	if cp.SettledAt.IsZero() {
		cp.SettledAt = time.Now()
	}

	sh.Mu.Lock()
	slot := c.slotLocked(sh, k, ks)
	slot.Entry = &cp
	// anything in flight right now is older than this value
	slot.Applied = slot.Issued
	listeners := slot.Snapshot()
	c.maybeSweepLocked(sh)
	sh.Mu.Unlock()

	notify(listeners, &cp)
}

// Invalidate marks every entry under prefix as stale.
func (c *QueryCache) Invalidate(prefix key.Key) int {
	type change struct {
		ks        string
		ent       *types.CacheEntry
		listeners []types.Listener
	}
	var changes []change

	for _, sh := range c.shards {
		sh.Mu.Lock()
		sh.Store.Range(func(ks string, slot *shard.Slot) bool {
			if !slot.Key.HasPrefix(prefix) {
				return true
			}
			ent := *slot.Entry
			ent.Invalidated = true
			slot.Entry = &ent
			slot.InvalidatedAt = slot.Issued
			changes = append(changes, change{ks: ks, ent: &ent, listeners: slot.Snapshot()})
			return true
		})
		sh.Mu.Unlock()
	}

	for _, ch := range changes {
		// a fetch that started before the invalidation must not be joined
		// by the refetch it causes
		c.sf.Forget(ch.ks)
		c.engine.Metrics.Invalidate()
	}
	for _, ch := range changes {
		notify(ch.listeners, ch.ent)
	}

	c.engine.Logger.Debug("cache invalidated",
		zap.Stringer("prefix", prefix),
		zap.Int("entries", len(changes)),
	)
	return len(changes)
}

// Subscribe registers a listener for k.
func (c *QueryCache) Subscribe(k key.Key, l types.Listener) uint64 {
	ks := k.String()
	sh := c.shardFor(ks)
	id := c.nextID.Add(1)

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	slot := c.slotLocked(sh, k, ks)
	slot.Listeners[id] = l
	slot.IdleSince = time.Time{}
	return id
}

// Unsubscribe removes a listener from k.
func (c *QueryCache) Unsubscribe(k key.Key, id uint64) {
	ks := k.String()
	sh := c.shardFor(ks)

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	slot, ok := sh.Store.Get(ks)
	if !ok {
		return
	}
	delete(slot.Listeners, id)
	if len(slot.Listeners) == 0 && slot.IdleSince.IsZero() {
		slot.IdleSince = time.Now()
	}
}

// Fetch joins or starts the fetch for k and waits for it.
func (c *QueryCache) Fetch(ctx context.Context, k key.Key, f types.Fetcher) (any, error) {
	if f == nil {
		return nil, ErrNoFetcher
	}
	return wait(ctx, c.start(ctx, k, f, nil))
}

func wait(ctx context.Context, ch <-chan singleflight.Result) (any, error) {
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

/*
Join waits for the fetch in flight for k. When that fetch completed after
since, before this call reached it, the entry it left is the answer and
nothing is fetched; only when neither holds does a new fetch start.
*/
func (c *QueryCache) Join(ctx context.Context, k key.Key, f types.Fetcher, since time.Time) (any, error) {
	if f == nil {
		return nil, ErrNoFetcher
	}
	return wait(ctx, c.start(ctx, k, f, settledSince(since)))
}

func settledSince(since time.Time) func(*types.CacheEntry) bool {
	return func(ent *types.CacheEntry) bool {
		switch ent.Status {
		case types.StatusSuccess:
			return !ent.Invalidated && !ent.SettledAt.Before(since)
		case types.StatusError:
			return !ent.SettledAt.Before(since)
		}
		return false
	}
}

// freshFor returns a check that reports whether an entry is still fresh under staleTime.
func (c *QueryCache) freshFor(staleTime time.Duration) func(*types.CacheEntry) bool {
	return func(ent *types.CacheEntry) bool { return !c.engine.IsStale(ent, staleTime) }
}

// Ensure returns a fresh cached value or fetches one.
func (c *QueryCache) Ensure(ctx context.Context, k key.Key, f types.Fetcher, staleTime time.Duration) (any, error) {
	if ent, ok := c.Get(k); ok && !c.engine.IsStale(ent, staleTime) {
		c.engine.Metrics.Hit()
		return ent.Value, nil
	}
	c.engine.Metrics.Miss()
	if f == nil {
		return nil, ErrNoFetcher
	}
	return wait(ctx, c.start(ctx, k, f, c.freshFor(staleTime)))
}

// Read serves the cached value when there is one and revalidates in the background when it is stale.
func (c *QueryCache) Read(ctx context.Context, k key.Key, f types.Fetcher, staleTime time.Duration) (*types.CacheEntry, error) {
	ent, ok := c.Get(k)
	if ok && !c.engine.IsStale(ent, staleTime) {
		c.engine.Metrics.Hit()
		return ent, nil
	}

	if ok && ent.HasValue {
		c.engine.Metrics.StaleHit()
		c.engine.Refresh.OnStale(k, func(ctx context.Context) {
			if _, err := c.Fetch(ctx, k, f); err != nil {
				c.engine.Logger.Debug("background revalidation failed",
					zap.Stringer("key", k), zap.Error(err))
			}
		})
		return ent, nil
	}

	c.engine.Metrics.Miss()
	_, err := c.Fetch(ctx, k, f)
	ent, _ = c.Get(k)
	return ent, err
}

// Prefetch starts a fetch for k when it is stale without waiting for it.
func (c *QueryCache) Prefetch(k key.Key, f types.Fetcher, staleTime time.Duration) {
	if f == nil {
		return
	}
	if ent, ok := c.Get(k); ok && !c.engine.IsStale(ent, staleTime) {
		return
	}
	// DoChan's channel is buffered, dropping it does not leak the call
	_ = c.start(context.Background(), k, f, c.freshFor(staleTime))
}

// Collect drops every idle entry whose GC time has passed.
func (c *QueryCache) Collect() int {
	n := 0
	for _, sh := range c.shards {
		sh.Mu.Lock()
		n += c.sweepLocked(sh)
		sh.Mu.Unlock()
	}
	return n
}

// Len returns the number of entries across shards.
func (c *QueryCache) Len() int {
	n := 0
	for _, sh := range c.shards {
		sh.Mu.Lock()
		n += sh.Store.Size()
		sh.Mu.Unlock()
	}
	return n
}

// Close stops background revalidation.
func (c *QueryCache) Close() {
	c.engine.Close()
}

/*
start registers a fetch for k with singleflight. The call itself runs on
singleflight's goroutine, detached from ctx's cancellation so that a
caller going away (an observer closing) does not abort a fetch that other
subscribers or later reads may still use.

fresh, when set, is checked again inside the call: a caller that saw a
stale or loading entry may reach singleflight just after another fetch
finished. If fresh accepts the entry that fetch left, its outcome is
returned instead of fetching twice.
*/
func (c *QueryCache) start(ctx context.Context, k key.Key, f types.Fetcher, fresh func(*types.CacheEntry) bool) <-chan singleflight.Result {
	ks := k.String()
	detached := context.WithoutCancel(ctx)
	return c.sf.DoChan(ks, func() (any, error) {
		return c.run(detached, k, ks, f, fresh)
	})
}

func (c *QueryCache) run(ctx context.Context, k key.Key, ks string, f types.Fetcher, fresh func(*types.CacheEntry) bool) (any, error) {
	sh := c.shardFor(ks)

	sh.Mu.Lock()
	slot := c.slotLocked(sh, k, ks)
	if fresh != nil && fresh(slot.Entry) {
		ent := slot.Entry
		sh.Mu.Unlock()
		if ent.Status == types.StatusError {
			return nil, ent.Err
		}
		return ent.Value, nil
	}
	slot.Issued++
	seq := slot.Issued
	slot.Inflight++
	slot.Entry = slot.Entry.With(types.StatusLoading)
	loading := slot.Entry
	listeners := slot.Snapshot()
	sh.Mu.Unlock()

	notify(listeners, loading)

	val, err := c.engine.Run(ctx, f)

	sh.Mu.Lock()
	slot, ok := sh.Store.Get(ks)
	if !ok {
		sh.Mu.Unlock()
		return val, err
	}
	slot.Inflight--

	if seq <= slot.Applied {
		sh.Mu.Unlock()
		c.engine.Metrics.Discard()
		c.engine.Logger.Debug("discarded out-of-order fetch result",
			zap.Stringer("key", k), zap.Uint64("seq", seq))
		return val, err
	}
	slot.Applied = seq

	now := time.Now()
	var next *types.CacheEntry
	if err != nil {
		next = slot.Entry.With(types.StatusError)
		next.Err = err
		next.SettledAt = now
	} else {
		next = &types.CacheEntry{
			Key:         k,
			Value:       val,
			HasValue:    true,
			Status:      types.StatusSuccess,
			UpdatedAt:   now,
			SettledAt:   now,
			Invalidated: seq <= slot.InvalidatedAt,
		}
	}
	slot.Entry = next
	listeners = slot.Snapshot()
	c.maybeSweepLocked(sh)
	sh.Mu.Unlock()

	if err != nil {
		c.engine.Logger.Debug("fetch failed", zap.Stringer("key", k), zap.Error(err))
	}
	notify(listeners, next)
	return val, err
}

// slotLocked returns the slot for ks, creating it if needed. The shard lock must be held.
func (c *QueryCache) slotLocked(sh *shard.Shard, k key.Key, ks string) *shard.Slot {
	if slot, ok := sh.Store.Get(ks); ok {
		return slot
	}

	if c.capacity > 0 && sh.Store.Size() >= c.perShard() {
		c.sweepLocked(sh)
		if sh.Store.Size() >= c.perShard() {
			victim := sh.Eviction.Evict(func(ks string) bool {
				s, ok := sh.Store.Get(ks)
				return ok && s.Pinned()
			})
			if victim != "" {
				sh.Store.Delete(victim)
				c.engine.Metrics.Eviction()
			}
		}
	}

	slot := shard.NewSlot(k, time.Now())
	sh.Store.Put(ks, slot)
	sh.Eviction.OnPut(ks)
	return slot
}

func (c *QueryCache) perShard() int {
	n := c.capacity / len(c.shards)
	if n < 1 {
		n = 1
	}
	return n
}

func (c *QueryCache) maybeSweepLocked(sh *shard.Shard) {
	if c.writes.Add(1)%sweepEvery == 0 {
		c.sweepLocked(sh)
	}
}

// sweepLocked removes collectable slots from sh. The shard lock must be held.
func (c *QueryCache) sweepLocked(sh *shard.Shard) int {
	var dead []string
	sh.Store.Range(func(ks string, slot *shard.Slot) bool {
		if !slot.Pinned() && c.engine.IsCollectable(slot.IdleSince) {
			dead = append(dead, ks)
		}
		return true
	})
	for _, ks := range dead {
		sh.Store.Delete(ks)
		sh.Eviction.Remove(ks)
		c.engine.Metrics.Eviction()
	}
	return len(dead)
}

func notify(listeners []types.Listener, ent *types.CacheEntry) {
	for _, l := range listeners {
		l(ent)
	}
}
