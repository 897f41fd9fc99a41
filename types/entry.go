package types

import (
	"time"

	"github.com/krisalay/reviewhub-client/key"
)

// Status is the lifecycle state of a cache entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

/*
CacheEntry is one snapshot of a cached query.

Entries are never modified after they are stored. Every state change
(loading, success, error, invalidation) replaces the whole entry, so a
listener holding an older pointer keeps a consistent view.
*/
type CacheEntry struct {
	Key key.Key

	// Value is the last successfully fetched value. It survives a later
	// error or refetch so the UI can keep showing it.
	Value    any
	HasValue bool

	Status Status

	// Err is set while Status is StatusError.
	Err error

	// UpdatedAt is the time of the last successful fetch.
	UpdatedAt time.Time

	// SettledAt is when the entry last left the loading state, by a
	// fetch completing either way or by Set.
	SettledAt time.Time

	// Invalidated forces the next read to refetch even if UpdatedAt is recent.
	Invalidated bool
}

// IsLoading reports whether a fetch is in flight for this entry.
func (e *CacheEntry) IsLoading() bool { return e != nil && e.Status == StatusLoading }

// With returns a copy of e with the given status. Value and timestamps carry over.
func (e *CacheEntry) With(status Status) *CacheEntry {
	n := *e
	n.Status = status
	if status != StatusError {
		n.Err = nil
	}
	return &n
}
