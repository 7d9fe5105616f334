// Package source defines the contract every exchange account and wallet
// adapter satisfies, plus helpers for reading loosely typed API payloads.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/rpc"
)

// ErrMissingCredentials marks a source that was skipped before any network call.
var ErrMissingCredentials = errors.New("missing credentials")

// Adapter fetches one account or wallet's settled activity.
//
// Fetch never fails: every problem is folded into Result.Status so one
// broken source cannot block the others.
type Adapter interface {
	// Name is the human-facing platform label
	Name() string

	// Kind tells exchange accounts from wallets
	Kind() domain.SourceKind

	// Fetch returns completed transactions with timestamp >= since
	Fetch(ctx context.Context, since time.Time) Result
}

// Result is what an adapter hands back to the orchestrator.
type Result struct {
	Transactions []domain.Transaction
	Status       domain.SourceStatus
	Log          []string
}

// Logf appends a diagnostic line prefixed with the source name.
func (r *Result) Logf(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf("%s: ", r.Status.Platform)+fmt.Sprintf(format, args...))
}

// NewResult starts a result for the named source.
func NewResult(name string, kind domain.SourceKind, now time.Time) Result {
	return Result{
		Status: domain.SourceStatus{
			Platform: name,
			Kind:     kind,
			LastSync: now,
			Cadence:  domain.DefaultCadence,
		},
	}
}

// Fail marks the result as errored with a short note.
func (r *Result) Fail(state domain.SourceState, note string) {
	r.Transactions = nil
	r.Status.State = state
	r.Status.Notes = note
	r.Status.Count = 0
	r.Logf("%s", note)
}

// Keep applies the checks every adapter owes the pipeline: settled status,
// a known direction and the since lower bound on the source's own event time.
// It stamps platform and provenance on whatever survives.
func Keep(txs []domain.Transaction, platform, apiSource string, since time.Time) (kept []domain.Transaction, dropped int) {
	kept = make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Status != domain.TxStatusCompleted || !tx.Type.Valid() {
			dropped++
			continue
		}
		if tx.Timestamp.IsZero() || tx.Timestamp.Before(since) {
			dropped++
			continue
		}
		if tx.Amount.IsNegative() {
			tx.Amount = tx.Amount.Abs()
		}
		if tx.Platform == "" {
			tx.Platform = platform
		}
		if tx.APISource == "" {
			tx.APISource = apiSource
		}
		tx.Timestamp = tx.Timestamp.UTC()
		kept = append(kept, tx)
	}
	return kept, dropped
}

// Describe turns a fetch error into a short status note.
func Describe(err error) string {
	var httpErr *rpc.HTTPError
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "Missing credentials"
	case errors.Is(err, rpc.ErrGeoBlocked):
		return "Geo-blocked (451)"
	case errors.Is(err, rpc.ErrRateLimited):
		return "Rate limited"
	case errors.Is(err, rpc.ErrBlocked):
		return "Access blocked (403)"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("HTTP %d", httpErr.StatusCode)
	case err != nil:
		return "Connection failed: " + err.Error()
	}
	return ""
}
