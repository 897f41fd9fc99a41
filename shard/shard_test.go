package shard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/krisalay/reviewhub-client/eviction"
	"github.com/krisalay/reviewhub-client/key"
	"github.com/krisalay/reviewhub-client/shard"
	"github.com/krisalay/reviewhub-client/types"
)

func TestHashSelectorIsStable(t *testing.T) {
	shards := []*shard.Shard{
		shard.NewShard(eviction.NewEvictionPolicy(eviction.LRU)),
		shard.NewShard(eviction.NewEvictionPolicy(eviction.LRU)),
		shard.NewShard(eviction.NewEvictionPolicy(eviction.LRU)),
	}
	sel := shard.HashSelector{}
	k := key.New("merchant-detail", "abc").String()

	assert.Same(t, sel.Select(k, shards), sel.Select(k, shards))
}

func TestSlotPinned(t *testing.T) {
	s := shard.NewSlot(key.New("a"), time.Now())
	assert.False(t, s.Pinned())
	assert.Equal(t, types.StatusIdle, s.Entry.Status)

	s.Listeners[1] = func(*types.CacheEntry) {}
	assert.True(t, s.Pinned())

	delete(s.Listeners, 1)
	s.Inflight = 1
	assert.True(t, s.Pinned())
}

func TestMapStore(t *testing.T) {
	st := shard.NewMapStore()
	st.Put("a", shard.NewSlot(key.New("a"), time.Now()))
	st.Put("b", shard.NewSlot(key.New("b"), time.Now()))
	assert.Equal(t, 2, st.Size())

	seen := 0
	st.Range(func(string, *shard.Slot) bool { seen++; return true })
	assert.Equal(t, 2, seen)

	st.Delete("a")
	_, ok := st.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, st.Size())
}
