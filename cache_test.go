package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cache "github.com/krisalay/reviewhub-client"
	"github.com/krisalay/reviewhub-client/engine"
	"github.com/krisalay/reviewhub-client/eviction"
	"github.com/krisalay/reviewhub-client/expiration"
	"github.com/krisalay/reviewhub-client/key"
	"github.com/krisalay/reviewhub-client/refresh"
	"github.com/krisalay/reviewhub-client/retry"
	"github.com/krisalay/reviewhub-client/types"
)

//
// ================= TEST BACKEND =================
//

// testBackend counts calls and returns whatever value is configured.
type testBackend struct {
	mu    sync.Mutex
	calls atomic.Int32
	value any
	err   error
	gate  chan struct{}
}

func newTestBackend(v any) *testBackend {
	return &testBackend{value: v}
}

func (b *testBackend) set(v any, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value, b.err = v, err
}

func (b *testBackend) fetch(ctx context.Context) (any, error) {
	b.calls.Add(1)
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value, b.err
}

//
// ================= HELPER: CREATE CACHE =================
//

func newTestCache(t *testing.T, shards, capacity int, gc time.Duration) *cache.QueryCache {
	t.Helper()
	eng := engine.NewCacheEngine(
		&expiration.StaleWhileRevalidate{GCTime: gc},
		refresh.Synchronous{},
		retry.Disabled(),
		nil,
		nil,
	)
	c := cache.NewQueryCache(shards, capacity, eviction.LRU, eng)
	t.Cleanup(c.Close)
	return c
}

//
// ================= BASIC OPERATIONS =================
//

func TestSetAndGet(t *testing.T) {
	c := newTestCache(t, 2, 0, time.Minute)
	k := key.New("merchant-detail", "abc")

	_, ok := c.Get(k)
	assert.False(t, ok)

	c.Set(k, &types.CacheEntry{Value: "v1", HasValue: true, Status: types.StatusSuccess, UpdatedAt: time.Now()})

	ent, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, "v1", ent.Value)
	assert.True(t, ent.Key.Equal(k))
}

func TestSetNotifiesSubscribersSynchronously(t *testing.T) {
	c := newTestCache(t, 2, 0, time.Minute)
	k := key.New("merchant-detail", "abc")

	var got []any
	id := c.Subscribe(k, func(ent *types.CacheEntry) { got = append(got, ent.Value) })

	c.Set(k, &types.CacheEntry{Value: 1, HasValue: true, Status: types.StatusSuccess})
	c.Set(k, &types.CacheEntry{Value: 2, HasValue: true, Status: types.StatusSuccess})
	assert.Equal(t, []any{1, 2}, got)

	c.Unsubscribe(k, id)
	c.Set(k, &types.CacheEntry{Value: 3, HasValue: true, Status: types.StatusSuccess})
	assert.Equal(t, []any{1, 2}, got)
}

func TestFetchWithoutFetcher(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	_, err := c.Fetch(context.Background(), key.New("x"), nil)
	assert.ErrorIs(t, err, cache.ErrNoFetcher)
}

//
// ================= IN-FLIGHT DEDUPLICATION =================
//

func TestConcurrentReadsShareOneFetch(t *testing.T) {
	c := newTestCache(t, 2, 0, time.Minute)
	k := key.New("merchants", map[string]any{"page": 1})
	b := newTestBackend("merchants")
	b.gate = make(chan struct{})

	// the first fetch is registered before anyone waits on it
	c.Prefetch(k, b.fetch, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), k, b.fetch)
			assert.NoError(t, err)
			assert.Equal(t, "merchants", v)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(b.gate)
	wg.Wait()

	assert.Equal(t, int32(1), b.calls.Load())
}

func TestWaitersShareTheSameError(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	k := key.New("reviews-for-merchant", "abc")
	b := newTestBackend(nil)
	boom := errors.New("boom")
	b.set(nil, boom)
	b.gate = make(chan struct{})

	c.Prefetch(k, b.fetch, 0)

	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := c.Fetch(context.Background(), k, b.fetch)
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(b.gate)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, <-errs, boom)
	}
	assert.Equal(t, int32(1), b.calls.Load())

	ent, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, types.StatusError, ent.Status)
	assert.ErrorIs(t, ent.Err, boom)
}

func TestErrorIsNotTerminal(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	k := key.New("merchant-detail", "abc")
	b := newTestBackend(nil)
	b.set(nil, errors.New("unavailable"))

	ent, err := c.Read(context.Background(), k, b.fetch, time.Minute)
	require.Error(t, err)
	assert.Equal(t, types.StatusError, ent.Status)

	b.set("merchant", nil)
	ent, err = c.Read(context.Background(), k, b.fetch, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "merchant", ent.Value)
	assert.Equal(t, types.StatusSuccess, ent.Status)
	assert.Equal(t, int32(2), b.calls.Load())
}

func TestCallerCancellationDoesNotCancelFetch(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	k := key.New("merchant-detail", "abc")
	b := newTestBackend("merchant")
	b.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, k, b.fetch)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(b.gate)
	require.Eventually(t, func() bool {
		ent, ok := c.Get(k)
		return ok && ent.Status == types.StatusSuccess
	}, time.Second, 5*time.Millisecond)
}

func TestHungFetchTimesOut(t *testing.T) {
	eng := engine.NewCacheEngine(nil, refresh.Synchronous{}, retry.Disabled(), nil, nil)
	eng.FetchTimeout = 20 * time.Millisecond
	c := cache.NewQueryCache(1, 0, eviction.LRU, eng)
	defer c.Close()

	k := key.New("merchant-detail", "slow")
	b := newTestBackend("never")
	b.gate = make(chan struct{})

	_, err := c.Fetch(context.Background(), k, b.fetch)
	require.ErrorIs(t, err, engine.ErrFetchTimeout)

	ent, _ := c.Get(k)
	assert.Equal(t, types.StatusError, ent.Status)
}

//
// ================= STALENESS & INVALIDATION =================
//

func TestEnsureServesFreshValue(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	k := key.New("ads")
	b := newTestBackend([]string{"gift"})

	for i := 0; i < 3; i++ {
		v, err := c.Ensure(context.Background(), k, b.fetch, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, []string{"gift"}, v)
	}
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestJoinUsesFetchThatAlreadyLanded(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	k := key.New("merchant-detail", "abc")
	b := newTestBackend("merchant")

	// the caller saw the entry loading at since; the fetch landed before Join ran
	since := time.Now()
	_, err := c.Fetch(context.Background(), k, b.fetch)
	require.NoError(t, err)

	v, err := c.Join(context.Background(), k, b.fetch, since)
	require.NoError(t, err)
	assert.Equal(t, "merchant", v)
	assert.Equal(t, int32(1), b.calls.Load(), "staleTime 0 must not force a second call")

	// a fetch that landed before since is not the one the caller waited for
	_, err = c.Join(context.Background(), k, b.fetch, time.Now().Add(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, int32(2), b.calls.Load())
}

func TestJoinReportsErrorOfLandedFetch(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	k := key.New("merchant-detail", "abc")
	b := newTestBackend(nil)
	boom := errors.New("Network error")
	b.set(nil, boom)

	since := time.Now()
	_, err := c.Fetch(context.Background(), k, b.fetch)
	require.ErrorIs(t, err, boom)

	_, err = c.Join(context.Background(), k, b.fetch, since)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestJoinRefetchesInvalidatedEntry(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	k := key.New("reviews-for-merchant", "abc")
	b := newTestBackend("reviews")

	since := time.Now()
	_, err := c.Fetch(context.Background(), k, b.fetch)
	require.NoError(t, err)
	c.Invalidate(key.New("reviews-for-merchant"))

	_, err = c.Join(context.Background(), k, b.fetch, since)
	require.NoError(t, err)
	assert.Equal(t, int32(2), b.calls.Load())
}

func TestReadServesStaleWhileRevalidating(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	k := key.New("merchant-detail", "abc")
	b := newTestBackend("v1")

	_, err := c.Read(context.Background(), k, b.fetch, 0)
	require.NoError(t, err)

	b.set("v2", nil)
	ent, err := c.Read(context.Background(), k, b.fetch, 0)
	require.NoError(t, err)
	assert.Equal(t, "v1", ent.Value, "stale value is served immediately")

	ent, _ = c.Get(k)
	assert.Equal(t, "v2", ent.Value)
	assert.Equal(t, int32(2), b.calls.Load())
}

func TestInvalidatePrefixKeepsValueAndForcesRefetch(t *testing.T) {
	c := newTestCache(t, 4, 0, time.Minute)
	ctx := context.Background()

	reviews := key.New("reviews-for-merchant", "abc", map[string]any{"page": 1})
	other := key.New("reviews-for-merchant", "xyz", map[string]any{"page": 1})
	detail := key.New("merchant-detail", "abc")

	rb := newTestBackend("reviews-abc")
	ob := newTestBackend("reviews-xyz")
	db := newTestBackend("detail-abc")

	_, _ = c.Ensure(ctx, reviews, rb.fetch, time.Hour)
	_, _ = c.Ensure(ctx, other, ob.fetch, time.Hour)
	_, _ = c.Ensure(ctx, detail, db.fetch, time.Hour)

	n := c.Invalidate(key.New("reviews-for-merchant", "abc"))
	assert.Equal(t, 1, n)

	ent, _ := c.Get(reviews)
	assert.True(t, ent.Invalidated)
	assert.Equal(t, "reviews-abc", ent.Value, "value stays until refetch resolves")

	ent, _ = c.Get(other)
	assert.False(t, ent.Invalidated)

	_, _ = c.Ensure(ctx, reviews, rb.fetch, time.Hour)
	_, _ = c.Ensure(ctx, other, ob.fetch, time.Hour)
	assert.Equal(t, int32(2), rb.calls.Load())
	assert.Equal(t, int32(1), ob.calls.Load())

	ent, _ = c.Get(reviews)
	assert.False(t, ent.Invalidated)
}

func TestInvalidateNotifiesSubscribers(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	k := key.New("merchant-detail", "abc")
	c.Set(k, &types.CacheEntry{Value: 1, HasValue: true, Status: types.StatusSuccess, UpdatedAt: time.Now()})

	var seen *types.CacheEntry
	c.Subscribe(k, func(ent *types.CacheEntry) { seen = ent })
	c.Invalidate(key.New("merchant-detail"))

	require.NotNil(t, seen)
	assert.True(t, seen.Invalidated)
	assert.Equal(t, 1, seen.Value)
}

//
// ================= ORDERING OF OVERLAPPING FETCHES =================
//

func TestOlderCompletionIsDiscarded(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	k := key.New("merchant-detail", "abc")

	slow := newTestBackend("old")
	slow.gate = make(chan struct{})
	fast := newTestBackend("new")

	c.Prefetch(k, slow.fetch, 0)
	require.Eventually(t, func() bool { return slow.calls.Load() == 1 }, time.Second, time.Millisecond)

	// invalidation detaches the in-flight call so the next fetch is a new one
	c.Invalidate(k)
	v, err := c.Fetch(context.Background(), k, fast.fetch)
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	close(slow.gate)
	time.Sleep(20 * time.Millisecond)

	ent, _ := c.Get(k)
	assert.Equal(t, "new", ent.Value)
	assert.False(t, ent.Invalidated)
}

func TestFetchIssuedBeforeInvalidationStaysStale(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	k := key.New("merchant-detail", "abc")

	b := newTestBackend("before-mutation")
	b.gate = make(chan struct{})

	c.Prefetch(k, b.fetch, 0)
	require.Eventually(t, func() bool { return b.calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Invalidate(k)
	close(b.gate)

	require.Eventually(t, func() bool {
		ent, _ := c.Get(k)
		return ent.Status == types.StatusSuccess
	}, time.Second, time.Millisecond)

	ent, _ := c.Get(k)
	assert.Equal(t, "before-mutation", ent.Value)
	assert.True(t, ent.Invalidated)
}

func TestSetWinsOverInflightFetch(t *testing.T) {
	c := newTestCache(t, 1, 0, time.Minute)
	k := key.New("me")

	b := newTestBackend("fetched")
	b.gate = make(chan struct{})
	c.Prefetch(k, b.fetch, 0)
	require.Eventually(t, func() bool { return b.calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Set(k, &types.CacheEntry{Value: "manual", HasValue: true, Status: types.StatusSuccess, UpdatedAt: time.Now()})
	close(b.gate)
	time.Sleep(20 * time.Millisecond)

	ent, _ := c.Get(k)
	assert.Equal(t, "manual", ent.Value)
}

//
// ================= COLLECTION & CAPACITY =================
//

func TestIdleEntriesAreCollected(t *testing.T) {
	c := newTestCache(t, 2, 0, 20*time.Millisecond)
	k := key.New("merchant-detail", "abc")

	id := c.Subscribe(k, func(*types.CacheEntry) {})
	c.Set(k, &types.CacheEntry{Value: 1, HasValue: true, Status: types.StatusSuccess})

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, c.Collect(), "subscribed entries survive")

	c.Unsubscribe(k, id)
	assert.Equal(t, 0, c.Collect(), "grace period has not passed")

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, c.Collect())
	_, ok := c.Get(k)
	assert.False(t, ok)
}

func TestResubscribeCancelsCollection(t *testing.T) {
	c := newTestCache(t, 1, 0, 20*time.Millisecond)
	k := key.New("merchant-detail", "abc")

	id := c.Subscribe(k, func(*types.CacheEntry) {})
	c.Unsubscribe(k, id)
	c.Subscribe(k, func(*types.CacheEntry) {})

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, c.Collect())
	assert.Equal(t, 1, c.Len())
}

func TestCapacityEvictsOnlyUnobservedEntries(t *testing.T) {
	c := newTestCache(t, 1, 2, time.Hour)

	a, b, d := key.New("a"), key.New("b"), key.New("d")
	c.Subscribe(a, func(*types.CacheEntry) {})
	c.Set(a, &types.CacheEntry{Value: "a", HasValue: true, Status: types.StatusSuccess})
	c.Set(b, &types.CacheEntry{Value: "b", HasValue: true, Status: types.StatusSuccess})
	c.Set(d, &types.CacheEntry{Value: "d", HasValue: true, Status: types.StatusSuccess})

	_, ok := c.Get(a)
	assert.True(t, ok)
	_, ok = c.Get(b)
	assert.False(t, ok)
	_, ok = c.Get(d)
	assert.True(t, ok)
}
