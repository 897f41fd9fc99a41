package mutation

import "github.com/krisalay/reviewhub-client/key"

// Option configures a Mutation.
type Option[In, Out any] func(*options[In, Out])

type options[In, Out any] struct {
	invalidate func(In, Out) []key.Key
	onSuccess  func(In, Out)
	onError    func(In, error)
	exclusive  bool
}

/*
WithInvalidation sets the key prefixes to invalidate after each
successful call. rule sees the input and the server's response, so it can
target e.g. the reviews of the merchant a review was posted to.
*/
func WithInvalidation[In, Out any](rule func(in In, out Out) []key.Key) Option[In, Out] {
	return func(o *options[In, Out]) { o.invalidate = rule }
}

// WithOnSuccess registers a callback for successful calls.
func WithOnSuccess[In, Out any](fn func(in In, out Out)) Option[In, Out] {
	return func(o *options[In, Out]) { o.onSuccess = fn }
}

// WithOnError registers a callback for failed calls, e.g. to show a toast.
func WithOnError[In, Out any](fn func(in In, err error)) Option[In, Out] {
	return func(o *options[In, Out]) { o.onError = fn }
}

// WithExclusive rejects calls with ErrInFlight while a previous one is pending.
func WithExclusive[In, Out any]() Option[In, Out] {
	return func(o *options[In, Out]) { o.exclusive = true }
}
