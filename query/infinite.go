package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/krisalay/reviewhub-client/api"
	"github.com/krisalay/reviewhub-client/key"
	"github.com/krisalay/reviewhub-client/types"
)

// Page is one page of a paginated listing. Pages is the total page count reported by the server.
type Page[T any] struct {
	Items []T
	Page  int
	Pages int
}

// PageFetcher loads page number page (1-based).
type PageFetcher[T any] func(ctx context.Context, page int) (Page[T], error)

/*
Infinite accumulates the pages of a listing. Each page is cached under the
base key with the page number appended, so invalidating the base key marks
every loaded page stale at once.
*/
type Infinite[T any] struct {
	cache    api.Cache
	base     key.Key
	fetch    PageFetcher[T]
	identity func(T) string
	opts     options

	// fetchMu serializes page loads so two callers never load the same next page.
	fetchMu sync.Mutex

	mu     sync.Mutex
	pages  []Page[T]
	subs   []uint64
	closed bool
}

/*
UseInfinite creates a paginated observer. Nothing is fetched until Await or
FetchNextPage is called. identity may be nil; when set, items whose
identity was already seen on an earlier page are dropped from Items.
*/
func UseInfinite[T any](c api.Cache, base key.Key, fetch PageFetcher[T], identity func(T) string, opts ...Option) *Infinite[T] {
	return &Infinite[T]{
		cache:    c,
		base:     base,
		fetch:    fetch,
		identity: identity,
		opts:     newOptions(opts),
	}
}

func (q *Infinite[T]) staleTime() time.Duration {
	if q.opts.staleSet {
		return q.opts.staleTime
	}
	return q.cache.StaleTime()
}

func (q *Infinite[T]) pageKey(page int) key.Key { return q.base.Append(page) }

func (q *Infinite[T]) pageFetcher(page int) types.Fetcher {
	return func(ctx context.Context) (any, error) {
		p, err := q.fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		if p.Page == 0 {
			p.Page = page
		}
		return p, nil
	}
}

// Await loads the first page if nothing is loaded yet.
func (q *Infinite[T]) Await(ctx context.Context) error {
	q.mu.Lock()
	loaded := len(q.pages) > 0
	q.mu.Unlock()
	if loaded || !q.opts.enabled {
		return nil
	}
	_, err := q.FetchNextPage(ctx)
	return err
}

// HasNextPage reports whether another page exists. It is true before the first page is loaded.
func (q *Infinite[T]) HasNextPage() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hasNextLocked()
}

func (q *Infinite[T]) hasNextLocked() bool {
	n := len(q.pages)
	if n == 0 {
		return true
	}
	last := q.pages[n-1]
	return last.Page < last.Pages
}

/*
FetchNextPage loads the page after the last loaded one and reports whether
it did. Once the last loaded page number equals the server's page count it
is a no-op returning false, and so is every call on a disabled or closed
listing.
*/
func (q *Infinite[T]) FetchNextPage(ctx context.Context) (bool, error) {
	q.fetchMu.Lock()
	defer q.fetchMu.Unlock()

	q.mu.Lock()
	if q.closed || !q.opts.enabled || !q.hasNextLocked() {
		q.mu.Unlock()
		return false, nil
	}
	next := len(q.pages) + 1
	q.mu.Unlock()

	k := q.pageKey(next)
	v, err := q.cache.Ensure(ctx, k, q.pageFetcher(next), q.staleTime())
	if err != nil {
		return false, err
	}
	p, ok := v.(Page[T])
	if !ok {
		return false, fmt.Errorf("query: page %d of %s has unexpected type %T", next, q.base, v)
	}

	idx := next - 1
	id := q.cache.Subscribe(k, func(ent *types.CacheEntry) { q.onPage(idx, k, ent) })

	q.mu.Lock()
	q.pages = append(q.pages, p)
	q.subs = append(q.subs, id)
	q.mu.Unlock()

	if q.opts.onChange != nil {
		q.opts.onChange()
	}
	return true, nil
}

// onPage keeps a loaded page in sync with its cache entry.
func (q *Infinite[T]) onPage(idx int, k key.Key, ent *types.CacheEntry) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if ent.Status == types.StatusSuccess && idx < len(q.pages) {
		if p, ok := ent.Value.(Page[T]); ok {
			q.pages[idx] = p
		}
	}
	q.mu.Unlock()

	if q.opts.enabled && ent.Invalidated && !ent.IsLoading() {
		q.cache.Prefetch(k, q.pageFetcher(idx+1), q.staleTime())
	}
	if q.opts.onChange != nil {
		q.opts.onChange()
	}
}

// Refetch reloads every loaded page, in order. A disabled listing has none.
func (q *Infinite[T]) Refetch(ctx context.Context) error {
	if !q.opts.enabled {
		return nil
	}
	q.mu.Lock()
	n := len(q.pages)
	q.mu.Unlock()

	for page := 1; page <= n; page++ {
		if _, err := q.cache.Fetch(ctx, q.pageKey(page), q.pageFetcher(page)); err != nil {
			return err
		}
	}
	return nil
}

// Pages returns a copy of the loaded pages.
func (q *Infinite[T]) Pages() []Page[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Page[T], len(q.pages))
	copy(out, q.pages)
	return out
}

// Items returns the items of all loaded pages in server order.
func (q *Infinite[T]) Items() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	var (
		out  []T
		seen map[string]struct{}
	)
	if q.identity != nil {
		seen = make(map[string]struct{})
	}
	for _, p := range q.pages {
		for _, it := range p.Items {
			if seen != nil {
				id := q.identity(it)
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			out = append(out, it)
		}
	}
	return out
}

// Close unsubscribes from every loaded page.
func (q *Infinite[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	subs := q.subs
	q.subs = nil
	q.mu.Unlock()

	for i, id := range subs {
		q.cache.Unsubscribe(q.pageKey(i+1), id)
	}
}
