package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vietddude/txsync/internal/infra/rpc/provider"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig retries transient failures once.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     2,
	InitialDelay:    500 * time.Millisecond,
	MaxDelay:        10 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// ClassifyError determines the action for a given error.
// Throttling, blocking and client errors are final: a sync run treats
// them as an empty result and the next run picks the data up.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ActionFatal
	}
	if errors.Is(err, provider.ErrRateLimited) ||
		errors.Is(err, provider.ErrGeoBlocked) ||
		errors.Is(err, provider.ErrBlocked) {
		return ActionFatal
	}

	var httpErr *provider.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= 500 {
			return ActionRetry
		}
		return ActionFatal
	}

	var rpcErr *provider.RPCError
	if errors.As(err, &rpcErr) {
		// -32700 parse error, -32600 invalid request, -32601 method not found, -32602 invalid params
		if rpcErr.Code <= -32600 && rpcErr.Code >= -32700 {
			return ActionFatal
		}
		return ActionRetry
	}

	return ActionRetry
}

// CallWithRetry executes an operation with exponential backoff.
func CallWithRetry(
	ctx context.Context,
	p provider.Provider,
	op provider.Operation,
	config RetryConfig,
) (any, error) {
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := p.Execute(ctx, op)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ClassifyError(err) == ActionFatal {
			return nil, err
		}
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(calculateBackoff(attempt, config)):
		}
	}

	if attempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if ceiling := float64(config.MaxDelay); ceiling > 0 && delay > ceiling {
		delay = ceiling
	}
	return time.Duration(delay)
}
