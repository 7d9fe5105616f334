// Package exchange runs the per-venue feed definitions behind one adapter.
//
// A venue (Binance, ByBit, Bitget) supplies a connectivity probe and an
// ordered list of feeds. Each feed is one sub-fetch such as deposits or
// P2P orders. The adapter runs the probe, then every feed, and merges the
// results in feed order.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/rpc"
	"github.com/vietddude/txsync/internal/infra/source"
)

// Account identifies the tracked exchange account inside feeds.
type Account struct {
	Name string
	// UID is the venue's own user id, when the venue exposes one.
	UID string
}

// Window is the time range a feed should cover.
type Window struct {
	Since time.Time
	Until time.Time
}

// FeedFunc fetches one sub-ledger and maps it to canonical transactions.
type FeedFunc func(ctx context.Context, c rpc.Executor, acct Account, w Window) ([]domain.Transaction, error)

// Feed is one named sub-fetch.
type Feed struct {
	Name  string // used in api_source, e.g. "deposits"
	Label string // used in status notes, e.g. "D"
	Fetch FeedFunc
}

// ProbeFunc checks connectivity and credentials. It may fill in acct.UID.
type ProbeFunc func(ctx context.Context, c rpc.Executor, acct *Account) error

// Venue describes an exchange.
type Venue struct {
	Kind  string
	Probe ProbeFunc
	Feeds []Feed
}

// Adapter implements source.Adapter for one exchange account.
type Adapter struct {
	venue       Venue
	account     Account
	client      rpc.Executor
	credentials bool
	log         *slog.Logger
	now         func() time.Time
}

// NewAdapter creates an adapter. hasCredentials false makes every Fetch
// report missing credentials without touching the network.
func NewAdapter(venue Venue, account Account, client rpc.Executor, hasCredentials bool) *Adapter {
	return &Adapter{
		venue:       venue,
		account:     account,
		client:      client,
		credentials: hasCredentials,
		log:         slog.Default().With("component", "exchange", "venue", venue.Kind, "account", account.Name),
		now:         time.Now,
	}
}

// SelectFeeds keeps only the named feeds, in their original order.
func (v Venue) SelectFeeds(names []string) Venue {
	if len(names) == 0 {
		return v
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}
	var feeds []Feed
	for _, f := range v.Feeds {
		if want[f.Name] {
			feeds = append(feeds, f)
		}
	}
	v.Feeds = feeds
	return v
}

func (a *Adapter) Name() string { return a.account.Name }

func (a *Adapter) Kind() domain.SourceKind { return domain.SourceKindExchange }

// Fetch implements source.Adapter.
func (a *Adapter) Fetch(ctx context.Context, since time.Time) source.Result {
	now := a.now()
	res := source.NewResult(a.account.Name, domain.SourceKindExchange, now)

	if !a.credentials {
		a.log.Warn("skipping exchange without credentials")
		res.Fail(domain.SourceError, source.Describe(source.ErrMissingCredentials))
		return res
	}

	acct := a.account
	if a.venue.Probe != nil {
		if err := a.venue.Probe(ctx, a.client, &acct); err != nil {
			a.log.Warn("connection test failed", "error", err)
			res.Fail(domain.SourceError, source.Describe(err))
			return res
		}
	}

	window := Window{Since: since, Until: now}
	counts := make([]string, 0, len(a.venue.Feeds))
	var failed []string

	for _, feed := range a.venue.Feeds {
		apiSource := a.venue.Kind + ":" + feed.Name
		txs, err := feed.Fetch(ctx, a.client, acct, window)
		if err != nil {
			a.log.Warn("feed failed", "feed", feed.Name, "error", err)
			res.Logf("%s failed: %v", feed.Name, err)
			failed = append(failed, feed.Name)
			counts = append(counts, fmt.Sprintf("0%s", feed.Label))
			continue
		}

		kept, dropped := source.Keep(txs, acct.Name, apiSource, since)
		if dropped > 0 {
			a.log.Debug("dropped unsettled or out of window records", "feed", feed.Name, "dropped", dropped)
		}
		res.Logf("%s: %d transactions", feed.Name, len(kept))
		res.Transactions = append(res.Transactions, kept...)
		counts = append(counts, fmt.Sprintf("%d%s", len(kept), feed.Label))
	}

	res.Status.Count = len(res.Transactions)
	if len(a.venue.Feeds) > 0 && len(failed) == len(a.venue.Feeds) {
		res.Status.State = domain.SourceError
		res.Status.Notes = "All feeds failed: " + strings.Join(failed, ", ")
		return res
	}

	res.Status.State = domain.SourceActive
	res.Status.Notes = fmt.Sprintf("%s = %d total", strings.Join(counts, " + "), res.Status.Count)
	if len(failed) > 0 {
		res.Status.Notes += " (failed: " + strings.Join(failed, ", ") + ")"
	}
	return res
}
