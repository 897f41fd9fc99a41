package types

import "context"

/*
Fetcher is the contract between the cache and the remote API.

It is called when the cache has no fresh value for a key. It usually wraps
one Transport call and decodes the response body into a typed value.
The context passed to a Fetcher is detached from the caller that triggered
it and carries the cache's fetch timeout instead.
*/
type Fetcher func(ctx context.Context) (any, error)

// Listener is called synchronously every time the entry for a subscribed key is replaced.
type Listener func(ent *CacheEntry)
