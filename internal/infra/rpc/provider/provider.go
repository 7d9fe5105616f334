// Package provider implements the HTTP transport used by every source.
//
// This package contains:
//   - Operation: one REST or JSON-RPC request description
//   - HTTPProvider: executes operations against one base URL
//   - ProviderMonitor: latency and throttle tracking
//   - Signer: hook for per-exchange request authentication
package provider

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Operation represents a single upstream request.
type Operation struct {
	// Name identifies the operation in logs and metrics (e.g., "deposits").
	Name string

	// Method is the HTTP method. Defaults to GET for REST and POST for JSON-RPC.
	Method string

	// Path is appended to the provider base URL.
	Path string

	// Query parameters. Encoded in sorted key order.
	Query url.Values

	// Header carries extra request headers.
	Header http.Header

	// Body is JSON encoded for REST calls when non-nil.
	Body any

	// RPCMethod switches the operation to a JSON-RPC 2.0 call.
	RPCMethod string

	// Params for JSON-RPC calls.
	Params []any
}

// IsJSONRPC reports whether the operation is a JSON-RPC call.
func (op Operation) IsJSONRPC() bool {
	return op.RPCMethod != ""
}

// Signer authenticates an outgoing request. It may rewrite the query string
// and add headers. body is the exact payload that will be sent.
type Signer interface {
	Sign(req *http.Request, body []byte) error
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(req *http.Request, body []byte) error

func (f SignerFunc) Sign(req *http.Request, body []byte) error {
	return f(req, body)
}

// Provider defines the interface for an upstream API endpoint.
type Provider interface {
	// GetName returns provider identifier (e.g., "binance", "blockstream")
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// Execute performs the operation with monitoring and error handling
	Execute(ctx context.Context, op Operation) (any, error)

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}
