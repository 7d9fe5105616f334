package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietddude/txsync/internal/ingest/metrics"
)

// HTTPProvider executes REST and JSON-RPC operations against one base URL.
type HTTPProvider struct {
	name       string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	signer     Signer
	header     http.Header

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *ProviderMonitor
}

// Option configures an HTTPProvider.
type Option func(*HTTPProvider)

// WithSigner authenticates every request through s.
func WithSigner(s Signer) Option {
	return func(p *HTTPProvider) { p.signer = s }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(p *HTTPProvider) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(p *HTTPProvider) {
		if value != "" {
			p.header.Set(key, value)
		}
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *HTTPProvider) { p.httpClient = c }
}

// NewHTTPProvider creates a new HTTP-based provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration, opts ...Option) *HTTPProvider {
	p := &HTTPProvider{
		name:     name,
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		header: make(http.Header),
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewProviderMonitor(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute performs one operation and returns the decoded JSON payload.
// Numbers are decoded as json.Number so amounts keep their precision.
// For JSON-RPC the "result" member is returned.
func (p *HTTPProvider) Execute(ctx context.Context, op Operation) (any, error) {
	start := time.Now()
	opName := op.Name
	if opName == "" {
		opName = op.Path + op.RPCMethod
	}
	metrics.RPCCallsTotal.WithLabelValues(p.name, opName).Inc()

	if status := p.Monitor.CheckProviderStatus(); status == StatusBlocked {
		p.recordFailure("blocked")
		return nil, fmt.Errorf("%s: %w", p.name, ErrBlocked)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, payload, err := p.newRequest(ctx, op)
	if err != nil {
		p.recordFailure("request")
		return nil, err
	}

	if p.signer != nil {
		if err := p.signer.Sign(req, payload); err != nil {
			p.recordFailure("sign")
			return nil, fmt.Errorf("sign request: %w", err)
		}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.recordFailure("transport")
		return nil, fmt.Errorf("%s %s: %w", req.Method, op.Path, err)
	}
	defer resp.Body.Close()

	latency := time.Since(start)
	metrics.RPCLatency.WithLabelValues(p.name, opName).Observe(latency.Seconds())

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		p.Monitor.RecordThrottle(resp.StatusCode)
		p.recordFailure("rate_limited")
		return nil, fmt.Errorf("%s: %w (retry after %q)", p.name, ErrRateLimited, resp.Header.Get("Retry-After"))
	case http.StatusUnavailableForLegalReasons:
		p.Monitor.RecordThrottle(resp.StatusCode)
		p.recordFailure("geo_blocked")
		return nil, fmt.Errorf("%s: %w", p.name, ErrGeoBlocked)
	case http.StatusForbidden:
		p.Monitor.RecordThrottle(resp.StatusCode)
		p.recordFailure("blocked")
		return nil, fmt.Errorf("%s: %w", p.name, ErrBlocked)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.recordFailure("read")
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if p.Monitor.DetectThrottlePattern(string(body)) {
			p.Monitor.RecordThrottle(http.StatusTooManyRequests)
			p.recordFailure("rate_limited")
			return nil, fmt.Errorf("%s: %w: %s", p.name, ErrRateLimited, string(body))
		}
		p.recordFailure("http")
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	result, err := decode(body)
	if err != nil {
		p.recordFailure("decode")
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if op.IsJSONRPC() {
		result, err = p.unwrapJSONRPC(result)
		if err != nil {
			return nil, err
		}
	}

	p.Monitor.RecordRequest(latency)
	p.recordSuccess(latency)
	return result, nil
}

func (p *HTTPProvider) newRequest(ctx context.Context, op Operation) (*http.Request, []byte, error) {
	method := op.Method
	var payload []byte
	var err error

	switch {
	case op.IsJSONRPC():
		if method == "" {
			method = http.MethodPost
		}
		params := op.Params
		if params == nil {
			params = []any{}
		}
		payload, err = json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  op.RPCMethod,
			"params":  params,
		})
	case op.Body != nil:
		if method == "" {
			method = http.MethodPost
		}
		payload, err = json.Marshal(op.Body)
	default:
		if method == "" {
			method = http.MethodGet
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request: %w", err)
	}

	url := p.endpoint + op.Path
	if len(op.Query) > 0 {
		url += "?" + op.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range p.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range op.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, payload, nil
}

func (p *HTTPProvider) unwrapJSONRPC(result any) (any, error) {
	envelope, ok := result.(map[string]any)
	if !ok {
		p.recordFailure("decode")
		return nil, fmt.Errorf("unexpected json-rpc response %T", result)
	}
	if rpcErr, ok := envelope["error"].(map[string]any); ok {
		msg, _ := rpcErr["message"].(string)
		var code int64
		if n, ok := rpcErr["code"].(json.Number); ok {
			code, _ = n.Int64()
		}
		if p.Monitor.DetectThrottlePattern(msg) {
			p.Monitor.RecordThrottle(http.StatusTooManyRequests)
			p.recordFailure("rate_limited")
			return nil, fmt.Errorf("%s: %w: %s", p.name, ErrRateLimited, msg)
		}
		p.recordFailure("rpc")
		return nil, &RPCError{Code: code, Message: msg}
	}
	return envelope["result"], nil
}

func decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// GetHealth returns the provider's health status.
func (p *HTTPProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h := p.health
	stats := p.Monitor.GetStats()
	h.MonitorStats = &stats
	return h
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *HTTPProvider) recordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true
	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	p.health.Latency = p.totalLatency / time.Duration(p.successCount)
}

func (p *HTTPProvider) recordFailure(errorType string) {
	metrics.RPCErrorsTotal.WithLabelValues(p.name, errorType).Inc()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()
	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}
