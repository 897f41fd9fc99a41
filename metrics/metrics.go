// Package metrics exports cache events as Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/krisalay/reviewhub-client/types"
)

var _ types.Metrics = (*Collector)(nil)

// Collector implements types.Metrics on top of one counter vector.
type Collector struct {
	events *prometheus.CounterVec

	hit        prometheus.Counter
	staleHit   prometheus.Counter
	miss       prometheus.Counter
	fetch      prometheus.Counter
	fetchError prometheus.Counter
	discard    prometheus.Counter
	invalidate prometheus.Counter
	eviction   prometheus.Counter
}

/*
NewCollector registers reviewhub_cache_events_total on reg. Pass
prometheus.DefaultRegisterer to expose it next to the process metrics, or
a fresh registry in tests.
*/
func NewCollector(reg prometheus.Registerer) *Collector {
	events := promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reviewhub",
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Query cache events by type",
		},
		[]string{"event"},
	)
	return &Collector{
		events:     events,
		hit:        events.WithLabelValues("hit"),
		staleHit:   events.WithLabelValues("stale_hit"),
		miss:       events.WithLabelValues("miss"),
		fetch:      events.WithLabelValues("fetch"),
		fetchError: events.WithLabelValues("fetch_error"),
		discard:    events.WithLabelValues("discard"),
		invalidate: events.WithLabelValues("invalidate"),
		eviction:   events.WithLabelValues("eviction"),
	}
}

func (c *Collector) Hit()        { c.hit.Inc() }
func (c *Collector) StaleHit()   { c.staleHit.Inc() }
func (c *Collector) Miss()       { c.miss.Inc() }
func (c *Collector) Fetch()      { c.fetch.Inc() }
func (c *Collector) FetchError() { c.fetchError.Inc() }
func (c *Collector) Discard()    { c.discard.Inc() }
func (c *Collector) Invalidate() { c.invalidate.Inc() }
func (c *Collector) Eviction()   { c.eviction.Inc() }

// Vec exposes the underlying vector, mainly for tests.
func (c *Collector) Vec() *prometheus.CounterVec { return c.events }
