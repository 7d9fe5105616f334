package exchange

import (
	"time"

	"github.com/vietddude/txsync/internal/infra/rpc"
)

// Config is what a venue package needs to build an account adapter.
type Config struct {
	Name       string
	BaseURL    string
	Key        string
	Secret     string
	Passphrase string
	UID        string
	Feeds      []string
}

// ClientOptions tunes the HTTP client behind an adapter.
type ClientOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             rpc.RetryConfig
}

// DefaultClientOptions is used when the caller passes a zero value.
var DefaultClientOptions = ClientOptions{
	Timeout:           30 * time.Second,
	RequestsPerSecond: 5,
	Retry:             rpc.DefaultRetryConfig,
}

// NewClient builds a signed, rate limited client for one account.
func NewClient(name, baseURL string, signer rpc.Signer, opts ClientOptions) *rpc.Client {
	if opts.Timeout == 0 {
		opts = DefaultClientOptions
	}
	p := rpc.NewHTTPProvider(name, baseURL, opts.Timeout,
		rpc.WithSigner(signer),
		rpc.WithRateLimit(opts.RequestsPerSecond, 1),
	)
	return rpc.NewClient(p, opts.Retry)
}
