package types

// Metrics defines what the cache reports about itself.
// Each method is one event in the cache lifecycle.
type Metrics interface {

	// Hit is called when a read is served from a fresh entry.
	Hit()

	// StaleHit is called when a read is served from a stale entry while a
	// background revalidation is started.
	StaleHit()

	// Miss is called when a read has no usable value and must wait for a fetch.
	Miss()

	// Fetch is called once per underlying fetch, not per waiter.
	Fetch()

	// FetchError is called when a fetch ends in an error (after retries).
	FetchError()

	// Discard is called when a fetch result arrives after a newer one was
	// already applied and is thrown away.
	Discard()

	// Invalidate is called once per entry marked stale by an invalidation.
	Invalidate()

	// Eviction is called when an entry is removed, either because it sat
	// idle without subscribers or because its shard was full.
	Eviction()
}

/*
NoopMetrics ignores all metric events.

The cache always holds a non-nil Metrics so none of the call sites need
nil checks.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()        {}
func (NoopMetrics) StaleHit()   {}
func (NoopMetrics) Miss()       {}
func (NoopMetrics) Fetch()      {}
func (NoopMetrics) FetchError() {}
func (NoopMetrics) Discard()    {}
func (NoopMetrics) Invalidate() {}
func (NoopMetrics) Eviction()   {}
