/*
Package resource binds the merchant-review API to the query cache.

It owns the cache keys of every resource, the fetch functions behind
them, and the invalidation rules of every write, so screens only pick the
query or mutation they need.
*/
package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/krisalay/reviewhub-client/api"
	"github.com/krisalay/reviewhub-client/mutation"
	"github.com/krisalay/reviewhub-client/transport"
)

const (
	visitBuffer  = 64
	visitTimeout = 10 * time.Second
)

// Client is the domain API over one transport and one cache.
type Client struct {
	http     *transport.Client
	cache    api.Cache
	validate *validator.Validate
	logger   *zap.Logger

	visits *mutation.Beacon[string]
}

// NewClient creates a client. Close it to flush pending visit pings.
func NewClient(t *transport.Client, c api.Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := &Client{
		http:     t,
		cache:    c,
		validate: newValidator(),
		logger:   logger,
	}
	rc.visits = mutation.NewBeacon(rc.sendVisit, visitBuffer, visitTimeout, logger.Named("visits"))
	return rc
}

// Cache returns the cache the client reads and invalidates.
func (c *Client) Cache() api.Cache { return c.cache }

// Close flushes queued visit pings.
func (c *Client) Close() {
	c.visits.Close()
}

// RecordVisit queues a visit ping for a merchant page. It never blocks and
// reports false when the ping was dropped.
func (c *Client) RecordVisit(slug string) bool {
	if slug == "" {
		return false
	}
	return c.visits.Fire(slug)
}

func (c *Client) sendVisit(ctx context.Context, slug string) error {
	_, err := c.http.Post(ctx, "/merchants/"+url.PathEscape(slug)+"/visit", nil)
	return err
}

// field decodes the value at path of a response envelope such as {"merchant": {...}}.
func field[T any](raw json.RawMessage, path string) (T, error) {
	return transport.Decode[T](json.RawMessage(gjson.GetBytes(raw, path).Raw))
}

func getField[T any](ctx context.Context, t *transport.Client, path string, q url.Values, fieldPath string) (T, error) {
	raw, err := t.Get(ctx, path, q)
	if err != nil {
		var zero T
		return zero, err
	}
	return field[T](raw, fieldPath)
}

func getAll[T any](ctx context.Context, t *transport.Client, path string, q url.Values) (T, error) {
	raw, err := t.Get(ctx, path, q)
	if err != nil {
		var zero T
		return zero, err
	}
	return transport.Decode[T](raw)
}

func sendField[T any](ctx context.Context, t *transport.Client, method, path string, body any, fieldPath string) (T, error) {
	raw, err := t.Request(ctx, method, path, body, false)
	if err != nil {
		var zero T
		return zero, err
	}
	return field[T](raw, fieldPath)
}

func (c *Client) deleteAt(ctx context.Context, path string) error {
	_, err := c.http.Request(ctx, http.MethodDelete, path, nil, false)
	return err
}
