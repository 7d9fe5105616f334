package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is returned for HTTP 429 or a throttle message in the body.
	ErrRateLimited = errors.New("rate limited")
	// ErrGeoBlocked is returned for HTTP 451.
	ErrGeoBlocked = errors.New("geo-blocked (451)")
	// ErrBlocked is returned for HTTP 403.
	ErrBlocked = errors.New("ip blocked (403)")
)

// HTTPError is a non-2xx answer that is not a throttle signal.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, body)
}

// RPCError is a JSON-RPC error member.
type RPCError struct {
	Code    int64
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
