package expiration

import (
	"time"

	"github.com/krisalay/reviewhub-client/types"
)

/*
StaleWhileRevalidate treats a successful entry as fresh for staleTime after
its last fetch. A staleTime of zero makes every entry stale immediately,
which means each new observer triggers a background refetch while it is
served the cached value.
*/
type StaleWhileRevalidate struct {

	// GCTime is how long an entry without subscribers survives.
	GCTime time.Duration
}

// IsStale checks the entry against the freshness window.
func (s *StaleWhileRevalidate) IsStale(ent *types.CacheEntry, staleTime time.Duration, now time.Time) bool {
	if ent == nil || !ent.HasValue || ent.Invalidated {
		return true
	}
	// errors are never terminal
	if ent.Status == types.StatusError {
		return true
	}
	return now.Sub(ent.UpdatedAt) >= staleTime
}

// IsCollectable checks the idle window.
func (s *StaleWhileRevalidate) IsCollectable(idleSince time.Time, now time.Time) bool {
	if idleSince.IsZero() {
		return false
	}
	gc := s.GCTime
	if gc <= 0 {
		gc = DefaultGCTime
	}
	return now.Sub(idleSince) >= gc
}
