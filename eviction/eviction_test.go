package eviction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krisalay/reviewhub-client/eviction"
)

func TestLRUEvictsLeastRecentlyRead(t *testing.T) {
	p := eviction.NewEvictionPolicy(eviction.LRU)
	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")
	p.OnGet("a")

	assert.Equal(t, "b", p.Evict(nil))
	assert.Equal(t, "c", p.Evict(nil))
	assert.Equal(t, "a", p.Evict(nil))
	assert.Equal(t, "", p.Evict(nil))
}

func TestLRUSkipsProtectedKeys(t *testing.T) {
	p := eviction.NewEvictionPolicy(eviction.LRU)
	p.OnPut("a")
	p.OnPut("b")

	keep := func(k string) bool { return k == "a" }
	assert.Equal(t, "b", p.Evict(keep))
	assert.Equal(t, "", p.Evict(keep))
	assert.Equal(t, "a", p.Evict(nil))
}

func TestFIFOIgnoresReads(t *testing.T) {
	p := eviction.NewEvictionPolicy(eviction.FIFO)
	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("a")

	assert.Equal(t, "a", p.Evict(nil))
	assert.Equal(t, "b", p.Evict(nil))
}

func TestFIFOSkipAndRemove(t *testing.T) {
	p := eviction.NewEvictionPolicy(eviction.FIFO)
	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")
	p.Remove("b")

	assert.Equal(t, "c", p.Evict(func(k string) bool { return k == "a" }))
	assert.Equal(t, "a", p.Evict(nil))
	assert.Equal(t, "", p.Evict(nil))
}

func TestUnknownPolicyFallsBackToLRU(t *testing.T) {
	p := eviction.NewEvictionPolicy("nope")
	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("a")
	assert.Equal(t, "b", p.Evict(nil))
}
