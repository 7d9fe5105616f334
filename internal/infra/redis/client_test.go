package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/txsync/internal/core/domain"
)

func newTestClient(t *testing.T) *Client {
	url := os.Getenv("TXSYNC_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping redis test. Set TXSYNC_TEST_REDIS_URL to run.")
	}
	c, err := NewClient(Config{URL: url})
	require.NoError(t, err)
	require.NoError(t, c.rdb.Del(context.Background(), runLockKey, lastReportKey).Err())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRunLock(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	lock, err := c.AcquireRunLock(ctx, time.Minute)
	require.NoError(t, err)

	_, err = c.AcquireRunLock(ctx, time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, c.ReleaseRunLock(ctx, lock))

	again, err := c.AcquireRunLock(ctx, time.Minute)
	require.NoError(t, err)
	require.NoError(t, c.ReleaseRunLock(ctx, again))
}

func TestReleaseIgnoresForeignLock(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.AcquireRunLock(ctx, time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.ReleaseRunLock(ctx, &Lock{token: "someone-else"}))
	_, err = c.AcquireRunLock(ctx, time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld, "lock still held by its owner")
}

func TestLastReport(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	got, err := c.LastReport(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := &domain.RunReport{RunID: "r1", Success: true, TotalFound: 3, DebugLog: []string{"a"}}
	require.NoError(t, c.SetLastReport(ctx, want))

	got, err = c.LastReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, 3, got.TotalFound)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{URL: "redis://localhost:6379/0"}.Enabled())
}
