// Package sourcetest provides a canned rpc.Executor for adapter tests.
package sourcetest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vietddude/txsync/internal/infra/rpc"
)

// Client answers operations from fixtures keyed by operation name, path or
// JSON-RPC method, in that order. Names disambiguate APIs that multiplex
// actions over a single path.
type Client struct {
	mu        sync.Mutex
	Responses map[string]string
	Errors    map[string]error
	Calls     []rpc.Operation
}

// New creates a client with the given JSON fixtures.
func New(responses map[string]string) *Client {
	return &Client{Responses: responses, Errors: map[string]error{}}
}

func key(op rpc.Operation) string {
	if op.RPCMethod != "" {
		return op.RPCMethod
	}
	return op.Path
}

func (c *Client) lookup(op rpc.Operation) string {
	if _, ok := c.Responses[op.Name]; ok {
		return op.Name
	}
	if _, ok := c.Errors[op.Name]; ok {
		return op.Name
	}
	return key(op)
}

// Execute returns the decoded fixture, decoding numbers as json.Number
// the same way the HTTP provider does.
func (c *Client) Execute(ctx context.Context, op rpc.Operation) (any, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, op)
	c.mu.Unlock()

	k := c.lookup(op)
	if err, ok := c.Errors[k]; ok {
		return nil, err
	}
	body, ok := c.Responses[k]
	if !ok {
		return nil, fmt.Errorf("no fixture for %q", k)
	}
	return Decode(body)
}

// Called reports how many operations hit key.
func (c *Client) Called(k string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, op := range c.Calls {
		if key(op) == k || op.Name == k {
			n++
		}
	}
	return n
}

// Decode parses a JSON fixture with UseNumber.
func Decode(body string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
