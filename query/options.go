package query

import "time"

// Option configures an observer.
type Option func(*options)

type options struct {
	enabled   bool
	staleTime time.Duration
	staleSet  bool
	onChange  func()
}

func newOptions(opts []Option) options {
	o := options{enabled: true}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithEnabled turns fetching on or off. A disabled observer never fetches;
// use it for dependent queries such as reviews that need a merchant slug first.
func WithEnabled(enabled bool) Option {
	return func(o *options) { o.enabled = enabled }
}

// WithStaleTime overrides the cache's default freshness window.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) {
		o.staleTime = d
		o.staleSet = true
	}
}

// WithOnChange registers a callback fired after every change of the
// observed entry. Read the new state with Result.
func WithOnChange(fn func()) Option {
	return func(o *options) { o.onChange = fn }
}
