package eviction

/*
This file defines how a shard picks an entry to drop when it is full.

Capacity eviction is secondary to idle collection: entries that still have
subscribers or a fetch in flight are never chosen, so a caller passes a
skip function that the policy consults before giving up a key.
*/

// Policy is implemented by every capacity eviction strategy.
type Policy interface {

	// OnGet is called when an entry is read. LRU moves it to the front;
	// FIFO ignores it.
	OnGet(string)

	// OnPut is called when an entry is created.
	OnPut(string)

	// Remove is called when an entry is dropped for any other reason
	// (idle collection, explicit removal) so bookkeeping stays in sync.
	Remove(string)

	// Evict returns the key to drop, or "" if every tracked key is skipped.
	// The returned key is no longer tracked by the policy.
	Evict(skip func(string) bool) string
}

// PolicyType names a supported strategy.
type PolicyType string

const (
	// LRU drops the entry that was read least recently.
	LRU PolicyType = "LRU"

	// FIFO drops the entry that was created first.
	FIFO PolicyType = "FIFO"
)

// NewEvictionPolicy returns the policy for t. Unknown names fall back to LRU.
func NewEvictionPolicy(t PolicyType) Policy {
	switch t {
	case FIFO:
		return newFIFO()
	default:
		return newLRU()
	}
}
