package metrics_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cache "github.com/krisalay/reviewhub-client"
	"github.com/krisalay/reviewhub-client/engine"
	"github.com/krisalay/reviewhub-client/eviction"
	"github.com/krisalay/reviewhub-client/key"
	"github.com/krisalay/reviewhub-client/metrics"
	"github.com/krisalay/reviewhub-client/refresh"
	"github.com/krisalay/reviewhub-client/retry"
)

func TestCollectorCountsCacheEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCollector(reg)

	eng := engine.NewCacheEngine(nil, refresh.Synchronous{}, retry.Disabled(), m, nil)
	c := cache.NewQueryCache(2, 0, eviction.LRU, eng)
	defer c.Close()

	k := key.New("merchant-detail", "abc")
	fetch := func(context.Context) (any, error) { return "abc", nil }

	_, err := c.Ensure(context.Background(), k, fetch, 0)
	require.NoError(t, err)
	c.Invalidate(key.New("merchant-detail"))

	vec := m.Vec()
	assert.Equal(t, 1.0, testutil.ToFloat64(vec.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(vec.WithLabelValues("fetch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(vec.WithLabelValues("invalidate")))
	assert.Equal(t, 0.0, testutil.ToFloat64(vec.WithLabelValues("fetch_error")))
}

func TestCollectorRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCollector(reg)
	m.Hit()
	m.Hit()

	expected := `
# HELP reviewhub_cache_events_total Query cache events by type
# TYPE reviewhub_cache_events_total counter
reviewhub_cache_events_total{event="discard"} 0
reviewhub_cache_events_total{event="eviction"} 0
reviewhub_cache_events_total{event="fetch"} 0
reviewhub_cache_events_total{event="fetch_error"} 0
reviewhub_cache_events_total{event="hit"} 2
reviewhub_cache_events_total{event="invalidate"} 0
reviewhub_cache_events_total{event="miss"} 0
reviewhub_cache_events_total{event="stale_hit"} 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "reviewhub_cache_events_total"))

	assert.Panics(t, func() { metrics.NewCollector(reg) })
}
