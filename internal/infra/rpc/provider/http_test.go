package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProvider_ExecuteREST(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sapi/v1/capital/deposit/hisrec", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "1700000000000", r.URL.Query().Get("startTime"))
		assert.Equal(t, "key", r.Header.Get("X-Test-Key"))
		_, _ = io.WriteString(w, `[{"amount":"0.00000001","coin":"BTC"}]`)
	}))
	defer server.Close()

	p := NewHTTPProvider("binance", server.URL, 5*time.Second, WithHeader("X-Test-Key", "key"))

	result, err := p.Execute(context.Background(), Operation{
		Name:  "deposits",
		Path:  "/sapi/v1/capital/deposit/hisrec",
		Query: url.Values{"startTime": {"1700000000000"}},
	})
	require.NoError(t, err)

	items, ok := result.([]any)
	require.True(t, ok, "expected []any, got %T", result)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "0.00000001", item["amount"])
}

func TestHTTPProvider_NumbersKeepPrecision(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"value": 123456789012345678901234567890}`)
	}))
	defer server.Close()

	p := NewHTTPProvider("explorer", server.URL, 5*time.Second)
	result, err := p.Execute(context.Background(), Operation{Path: "/"})
	require.NoError(t, err)

	n, ok := result.(map[string]any)["value"].(json.Number)
	require.True(t, ok)
	assert.Equal(t, "123456789012345678901234567890", n.String())
}

func TestHTTPProvider_JSONRPC(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req["jsonrpc"])
		assert.Equal(t, "getSignaturesForAddress", req["method"])
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":[{"signature":"abc"}]}`)
	}))
	defer server.Close()

	p := NewHTTPProvider("solana", server.URL, 5*time.Second)
	result, err := p.Execute(context.Background(), Operation{
		RPCMethod: "getSignaturesForAddress",
		Params:    []any{"addr", map[string]any{"limit": 20}},
	})
	require.NoError(t, err)
	assert.Len(t, result.([]any), 1)
}

func TestHTTPProvider_JSONRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid params"}}`)
	}))
	defer server.Close()

	p := NewHTTPProvider("solana", server.URL, 5*time.Second)
	_, err := p.Execute(context.Background(), Operation{RPCMethod: "getTransaction"})

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(-32602), rpcErr.Code)
}

func TestHTTPProvider_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusTooManyRequests, "", ErrRateLimited},
		{http.StatusUnavailableForLegalReasons, "", ErrGeoBlocked},
		{http.StatusForbidden, "", ErrBlocked},
		{http.StatusBadRequest, `{"message":"Too many requests, slow down"}`, ErrRateLimited},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = io.WriteString(w, tc.body)
		}))

		p := NewHTTPProvider("venue", server.URL, 5*time.Second)
		_, err := p.Execute(context.Background(), Operation{Path: "/x"})
		assert.True(t, errors.Is(err, tc.want), "status %d: got %v", tc.status, err)
		server.Close()
	}
}

func TestHTTPProvider_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":-2015,"msg":"Invalid API-key"}`)
	}))
	defer server.Close()

	p := NewHTTPProvider("binance", server.URL, 5*time.Second)
	_, err := p.Execute(context.Background(), Operation{Path: "/api/v3/account"})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Contains(t, httpErr.Error(), "Invalid API-key")
}

func TestHTTPProvider_Signer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "signed", r.URL.Query().Get("signature"))
		assert.Equal(t, `{"a":1}`, r.Header.Get("X-Body"))
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	signer := SignerFunc(func(req *http.Request, body []byte) error {
		q := req.URL.Query()
		q.Set("signature", "signed")
		req.URL.RawQuery = q.Encode()
		req.Header.Set("X-Body", string(body))
		return nil
	})

	p := NewHTTPProvider("venue", server.URL, 5*time.Second, WithSigner(signer))
	_, err := p.Execute(context.Background(), Operation{Path: "/x", Body: map[string]int{"a": 1}})
	require.NoError(t, err)
}

func TestHTTPProvider_BlockedShortCircuits(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	p := NewHTTPProvider("venue", server.URL, 5*time.Second)
	_, err := p.Execute(context.Background(), Operation{Path: "/x"})
	require.ErrorIs(t, err, ErrBlocked)
	_, err = p.Execute(context.Background(), Operation{Path: "/x"})
	require.ErrorIs(t, err, ErrBlocked)

	assert.Equal(t, 1, calls)
	assert.Equal(t, StatusBlocked, p.Monitor.CheckProviderStatus())
	assert.False(t, p.GetHealth().Available)
}
