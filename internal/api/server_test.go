package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/storage/memory"
)

type stubRunner struct {
	last   *domain.RunReport
	next   *domain.RunReport
	called bool
	since  *time.Time
}

func (r *stubRunner) Trigger(_ context.Context, since *time.Time) *domain.RunReport {
	r.called = true
	r.since = since
	return r.next
}

func (r *stubRunner) LastReport(context.Context) *domain.RunReport { return r.last }

func newTestServer(t *testing.T, runner *stubRunner) (*httptest.Server, *memory.MemoryStorage) {
	t.Helper()
	store := memory.NewMemoryStorage()
	srv := httptest.NewServer(NewServer(runner, store, 0).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func TestLedgerEndpoint(t *testing.T) {
	srv, store := newTestServer(t, &stubRunner{})
	_, err := store.Append(context.Background(), domain.PartitionDeposits, []domain.LedgerRow{
		{Platform: "Binance (Main)", Asset: "USDT", Amount: "50", Timestamp: "2024-01-01 00:00", TxID: "A1"},
	})
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/ledger/deposits")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []domain.LedgerRow
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "A1", rows[0].TxID)

	resp, err = http.Get(srv.URL + "/api/ledger/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusEndpointReadError(t *testing.T) {
	srv, store := newTestServer(t, &stubRunner{})
	store.FailOn("read:status", errors.New("quota exceeded"))

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestRunEndpoint(t *testing.T) {
	runner := &stubRunner{next: &domain.RunReport{RunID: "r1", Success: true}}
	srv, _ := newTestServer(t, runner)

	resp, err := http.Post(srv.URL+"/api/runs?since=2024-01-01", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, runner.called)
	require.NotNil(t, runner.since)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *runner.since)

	var report domain.RunReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, "r1", report.RunID)
}

func TestRunEndpointRejectsBadSince(t *testing.T) {
	runner := &stubRunner{}
	srv, _ := newTestServer(t, runner)

	resp, err := http.Post(srv.URL+"/api/runs?since=yesterday", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, runner.called)
}

func TestRunEndpointConflict(t *testing.T) {
	runner := &stubRunner{next: &domain.RunReport{Skipped: true, Error: "another run is in progress"}}
	srv, _ := newTestServer(t, runner)

	resp, err := http.Post(srv.URL+"/api/runs", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Nil(t, runner.since)
}

func TestLastReport(t *testing.T) {
	runner := &stubRunner{}
	srv, _ := newTestServer(t, runner)

	resp, err := http.Get(srv.URL + "/api/report/last")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	runner.last = &domain.RunReport{RunID: "r9"}
	resp, err = http.Get(srv.URL + "/api/report/last")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	store := memory.NewMemoryStorage()
	s := NewServer(&stubRunner{}, store, 0)
	s.AddHealthCheck("database", func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseSince(t *testing.T) {
	got, err := ParseSince("2024-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour())

	_, err = ParseSince("03/01/2024")
	assert.Error(t, err)
}
