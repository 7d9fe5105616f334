// Package rpc is the HTTP transport shared by exchange and chain sources.
//
// A source builds Operations and hands them to a Client:
//
//	p := rpc.NewHTTPProvider("blockstream", "https://blockstream.info/api", 30*time.Second)
//	client := rpc.NewClient(p, rpc.DefaultRetryConfig)
//	result, err := client.Execute(ctx, rpc.NewRESTOperation("txs", "/address/"+addr+"/txs", nil))
//
// Results are decoded JSON (map[string]any, []any, json.Number, string, bool).
// Rate limiting is surfaced as ErrRateLimited and never retried.
//
//   - provider/ - HTTPProvider, request signing, throttle monitoring
//   - routing/  - error classification and retry
package rpc

import (
	"context"
	"time"

	"github.com/vietddude/txsync/internal/infra/rpc/provider"
	"github.com/vietddude/txsync/internal/infra/rpc/routing"
)

type (
	Operation    = provider.Operation
	Provider     = provider.Provider
	HTTPProvider = provider.HTTPProvider
	Signer       = provider.Signer
	SignerFunc   = provider.SignerFunc
	HTTPError    = provider.HTTPError
	RetryConfig  = routing.RetryConfig
	Option       = provider.Option
)

var (
	ErrRateLimited = provider.ErrRateLimited
	ErrGeoBlocked  = provider.ErrGeoBlocked
	ErrBlocked     = provider.ErrBlocked

	DefaultRetryConfig = routing.DefaultRetryConfig

	WithSigner     = provider.WithSigner
	WithRateLimit  = provider.WithRateLimit
	WithHeader     = provider.WithHeader
	WithHTTPClient = provider.WithHTTPClient
)

// NewHTTPProvider creates an HTTP provider for one base URL.
func NewHTTPProvider(name, endpoint string, timeout time.Duration, opts ...Option) *HTTPProvider {
	return provider.NewHTTPProvider(name, endpoint, timeout, opts...)
}

// Executor is what sources depend on.
type Executor interface {
	Execute(ctx context.Context, op Operation) (any, error)
}
