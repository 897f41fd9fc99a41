package shard

import (
	"sync"
	"time"

	"github.com/krisalay/reviewhub-client/eviction"
	"github.com/krisalay/reviewhub-client/key"
	"github.com/krisalay/reviewhub-client/types"
)

/*
A Shard is one independent slice of the cache with its own lock and its
own eviction bookkeeping. Splitting the key space keeps unrelated queries
(merchant lists vs. admin users) from contending on one mutex.
*/
type Shard struct {

	// Mu guards Store, Eviction and every Slot reachable from Store.
	Mu sync.Mutex

	Store Store

	Eviction eviction.Policy
}

func NewShard(ev eviction.Policy) *Shard {
	return &Shard{
		Store:    NewMapStore(),
		Eviction: ev,
	}
}

/*
Slot is everything the cache tracks for one key. Only Entry is visible
to callers; the rest is bookkeeping for subscribers, idle collection and
ordering of overlapping fetches.
*/
type Slot struct {
	Key key.Key

	// Entry is the current snapshot. Replaced, never modified.
	Entry *types.CacheEntry

	// Listeners are the live subscribers, by subscription id.
	Listeners map[uint64]types.Listener

	// IdleSince is when the last subscriber left; zero while subscribed.
	IdleSince time.Time

	// Issued is the sequence number handed to the most recent fetch.
	Issued uint64

	// Applied is the sequence number of the newest fetch result stored.
	Applied uint64

	// InvalidatedAt is Issued at the time of the last invalidation.
	// Results from fetches issued at or before it stay stale.
	InvalidatedAt uint64

	// Inflight counts fetches that have started and not yet completed.
	Inflight int
}

// NewSlot creates an idle slot with no subscribers.
func NewSlot(k key.Key, now time.Time) *Slot {
	return &Slot{
		Key:       k,
		Entry:     &types.CacheEntry{Key: k, Status: types.StatusIdle},
		Listeners: make(map[uint64]types.Listener),
		IdleSince: now,
	}
}

// Pinned reports whether the slot must survive eviction.
func (s *Slot) Pinned() bool {
	return len(s.Listeners) > 0 || s.Inflight > 0
}

// Snapshot copies the listeners so they can be called without holding the shard lock.
func (s *Slot) Snapshot() []types.Listener {
	out := make([]types.Listener, 0, len(s.Listeners))
	for _, l := range s.Listeners {
		out = append(out, l)
	}
	return out
}
