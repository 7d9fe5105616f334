package rpc

import (
	"context"

	"github.com/vietddude/txsync/internal/infra/rpc/routing"
)

// Client executes operations against one provider with retry.
type Client struct {
	provider Provider
	retry    RetryConfig
}

// NewClient creates a new client.
func NewClient(p Provider, retry RetryConfig) *Client {
	return &Client{provider: p, retry: retry}
}

// Execute runs op, retrying transient failures.
func (c *Client) Execute(ctx context.Context, op Operation) (any, error) {
	return routing.CallWithRetry(ctx, c.provider, op, c.retry)
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.provider.GetName()
}

// Close releases the provider.
func (c *Client) Close() error {
	return c.provider.Close()
}
