package rpc

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer server.Close()

	retry := RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, BackoffMultiple: 1}
	client := NewClient(NewHTTPProvider("test", server.URL, time.Second), retry)
	defer client.Close()

	result, err := client.Execute(context.Background(), NewRESTOperation("probe", "/status", url.Values{"a": {"1"}}))
	require.NoError(t, err)
	assert.Equal(t, true, result.(map[string]any)["ok"])
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "test", client.Name())
}

func TestClientDoesNotRetryRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(NewHTTPProvider("test", server.URL, time.Second), DefaultRetryConfig)
	_, err := client.Execute(context.Background(), NewRESTOperation("probe", "/", nil))
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), calls.Load())
}
