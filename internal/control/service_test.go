package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/txsync/internal/core/config"
)

func TestService_GracefulShutdown(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.ApplyDefaults()
	cfg.Server.Port = 0
	require.Equal(t, config.BackendMemory, cfg.Ledger.Backend)

	svc, err := NewService(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.Start(ctx))

	time.Sleep(100 * time.Millisecond)
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	assert.NoError(t, svc.Stop(stopCtx))
}

func TestService_RejectsBadSchedule(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.ApplyDefaults()
	cfg.Pipeline.Schedule = "every now and then"

	_, err := NewService(context.Background(), cfg)
	assert.ErrorContains(t, err, "invalid schedule")
}

func TestService_BadScheduleOpensNothing(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.ApplyDefaults()
	cfg.Pipeline.Schedule = "61 * * * *"
	cfg.Ledger.Backend = config.BackendPostgres
	cfg.Database.URL = "postgres://txsync@127.0.0.1:1/txsync?sslmode=disable&connect_timeout=1"
	cfg.Redis.URL = "redis://127.0.0.1:1/0"

	_, err := NewService(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid schedule", "schedule is checked before ledger or redis are dialed")
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("@hourly"))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.Error(t, ValidateSchedule("61 * * * *"))
	assert.Error(t, ValidateSchedule(""))
}

func TestService_OneShotRun(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.ApplyDefaults()
	cfg.Server.Port = 0

	svc, err := NewService(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Stop(context.Background())

	report := svc.Orchestrator().Run(context.Background(), RunRequest{})
	require.True(t, report.Success, report.Error)
	assert.Equal(t, 0, report.TotalFound)
	assert.Empty(t, report.Sources)
}
