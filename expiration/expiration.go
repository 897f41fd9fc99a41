// This file defines when cache entries go stale and when they may be dropped.

package expiration

import (
	"time"

	"github.com/krisalay/reviewhub-client/types"
)

/*
Strategy decides two separate things about an entry:

  - staleness: whether the next read must go back to the server
  - collection: whether an entry nobody watches any more can be dropped

Stale entries are still served. Only collected entries disappear.
*/
type Strategy interface {

	// IsStale reports whether ent must be refetched on the next read.
	// staleTime is the per-query freshness window.
	IsStale(ent *types.CacheEntry, staleTime time.Duration, now time.Time) bool

	// IsCollectable reports whether an entry whose last subscriber left at
	// idleSince may be removed. A zero idleSince means it still has subscribers.
	IsCollectable(idleSince time.Time, now time.Time) bool
}

// DefaultGCTime is how long an unobserved entry is kept around.
const DefaultGCTime = 5 * time.Minute
