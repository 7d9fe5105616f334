package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/txsync/internal/core/domain"
)

// ReportTTL bounds how long the last report is kept.
const ReportTTL = 7 * 24 * time.Hour

// SetLastReport stores the most recent run report.
func (c *Client) SetLastReport(ctx context.Context, r *domain.RunReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := c.rdb.Set(ctx, lastReportKey, data, ReportTTL).Err(); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

// LastReport returns the stored report, or nil if there is none.
func (c *Client) LastReport(ctx context.Context) (*domain.RunReport, error) {
	data, err := c.rdb.Get(ctx, lastReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	var r domain.RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}
