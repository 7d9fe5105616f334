// Package chain runs on-chain wallet sources. Each chain package supplies one
// or more Fetchers (one per public explorer); the Adapter tries them in
// order and keeps the first non-empty answer.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/source"
)

// Fetcher reads one wallet's history from one upstream.
type Fetcher interface {
	// Name identifies the upstream (e.g., "blockstream")
	Name() string

	// Fetch returns the wallet's transfers. Implementations classify
	// direction with Classify and drop transfers that do not involve the
	// wallet.
	Fetch(ctx context.Context, w domain.Wallet, since time.Time) ([]domain.Transaction, error)
}

// Adapter implements source.Adapter for one wallet.
type Adapter struct {
	wallet    domain.Wallet
	fetchers  []Fetcher
	maxWindow time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMaxWindow clamps how far back the adapter looks.
func WithMaxWindow(d time.Duration) Option {
	return func(a *Adapter) { a.maxWindow = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// NewAdapter creates an adapter with fetchers in preference order.
func NewAdapter(w domain.Wallet, fetchers []Fetcher, opts ...Option) *Adapter {
	a := &Adapter{
		wallet:   w,
		fetchers: fetchers,
		log:      slog.Default().With("component", "chain", "chain", w.Chain, "wallet", w.Name),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string { return a.wallet.Name }

func (a *Adapter) Kind() domain.SourceKind { return domain.SourceKindWallet }

// Fetch implements source.Adapter.
func (a *Adapter) Fetch(ctx context.Context, since time.Time) source.Result {
	now := a.now()
	res := source.NewResult(a.wallet.Name, domain.SourceKindWallet, now)

	if a.maxWindow > 0 {
		if floor := now.Add(-a.maxWindow); since.Before(floor) {
			res.Logf("window clamped to %s", a.maxWindow)
			since = floor
		}
	}

	var errs []string
	succeeded := false
	for _, f := range a.fetchers {
		txs, err := f.Fetch(ctx, a.wallet, since)
		if err != nil {
			a.log.Warn("explorer failed", "explorer", f.Name(), "error", err)
			res.Logf("%s failed: %v", f.Name(), err)
			errs = append(errs, f.Name()+": "+source.Describe(err))
			continue
		}
		succeeded = true

		kept, dropped := source.Keep(txs, a.wallet.Name, string(a.wallet.Chain)+":"+f.Name(), since)
		if dropped > 0 {
			a.log.Debug("dropped unsettled or out of window transfers", "explorer", f.Name(), "dropped", dropped)
		}
		if len(kept) == 0 {
			res.Logf("%s: no transactions", f.Name())
			continue
		}
		res.Transactions = kept
		res.Logf("%s: %d transactions", f.Name(), len(kept))
		break
	}

	if !succeeded {
		res.Fail(domain.SourceNotWorking, strings.Join(errs, "; "))
		return res
	}

	res.Status.State = domain.SourceWorking
	res.Status.Count = len(res.Transactions)
	res.Status.Notes = fmt.Sprintf("%d transactions", res.Status.Count)
	return res
}

// Classify decides direction relative to the tracked address: receiver
// means deposit, sender means withdrawal. ok is false when the wallet is
// on neither side.
func Classify(tracked, from, to string) (t domain.TxType, ok bool) {
	switch {
	case source.SameAddress(tracked, to):
		return domain.TxTypeDeposit, true
	case source.SameAddress(tracked, from):
		return domain.TxTypeWithdrawal, true
	}
	return "", false
}
