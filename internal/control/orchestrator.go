// Package control drives sync runs: it fans out to every source, pushes the
// merged batch through the ingest stages and reports what happened.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/core/runlog"
	redisclient "github.com/vietddude/txsync/internal/infra/redis"
	"github.com/vietddude/txsync/internal/infra/registry"
	"github.com/vietddude/txsync/internal/infra/source"
	"github.com/vietddude/txsync/internal/infra/storage"
	"github.com/vietddude/txsync/internal/ingest/dedupe"
	"github.com/vietddude/txsync/internal/ingest/metrics"
	"github.com/vietddude/txsync/internal/ingest/normalize"
	"github.com/vietddude/txsync/internal/ingest/sequence"
	"github.com/vietddude/txsync/internal/ingest/valuation"
	"github.com/vietddude/txsync/internal/ingest/writer"
)

// ErrRunInProgress is reported when a run is requested while another is active.
var ErrRunInProgress = errors.New("another run is in progress")

// Plan is the set of sources for one run.
type Plan struct {
	Adapters []source.Adapter
	// Wallets feed the address book used to name counterparties.
	Wallets  []domain.Wallet
	Warnings []string
}

// Sources builds a Plan. It is called once per run so registry edits are
// picked up without a restart.
type Sources interface {
	Plan(ctx context.Context) (Plan, error)
}

// Coordinator serializes runs across processes and keeps the last report.
// *redis.Client satisfies it.
type Coordinator interface {
	AcquireRunLock(ctx context.Context, ttl time.Duration) (*redisclient.Lock, error)
	ReleaseRunLock(ctx context.Context, l *redisclient.Lock) error
	SetLastReport(ctx context.Context, r *domain.RunReport) error
	LastReport(ctx context.Context) (*domain.RunReport, error)
}

// Options tunes a run.
type Options struct {
	Lookback    time.Duration
	Concurrency int
	PrefixMatch bool
	LockTTL     time.Duration
}

// RunRequest is one trigger. A nil Since means now minus the lookback.
type RunRequest struct {
	Since *time.Time
}

// Orchestrator runs the pipeline end to end.
type Orchestrator struct {
	sources Sources
	ledger  storage.Ledger
	writer  *writer.Writer
	filter  *valuation.Filter
	coord   Coordinator
	opts    Options
	log     *slog.Logger
	now     func() time.Time

	running sync.Mutex

	mu   sync.RWMutex
	last *domain.RunReport
}

// NewOrchestrator wires the stages. coord may be nil.
func NewOrchestrator(sources Sources, ledger storage.Ledger, filter *valuation.Filter, coord Coordinator, opts Options) *Orchestrator {
	if opts.Lookback <= 0 {
		opts.Lookback = 7 * 24 * time.Hour
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 15 * time.Minute
	}
	return &Orchestrator{
		sources: sources,
		ledger:  ledger,
		writer:  writer.New(ledger),
		filter:  filter,
		coord:   coord,
		opts:    opts,
		log:     slog.Default().With("component", "orchestrator"),
		now:     time.Now,
	}
}

// Run executes one sync and always returns a report.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (report *domain.RunReport) {
	start := o.now()
	rl := runlog.New(o.log)
	report = &domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
		Sources:   make(map[string]domain.SourceStatus),
	}

	since := start.Add(-o.opts.Lookback)
	if req.Since != nil {
		since = *req.Since
	}
	report.Since = since.UTC()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("run panicked", "run_id", report.RunID, "panic", r, "stack", string(debug.Stack()))
			rl.Addf("fatal: %v", r)
			report.Success = false
			report.Error = fmt.Sprintf("%v", r)
		}
		report.FinishedAt = o.now().UTC()
		report.DebugLog = rl.Lines()
		o.finish(ctx, report, start)
	}()

	if !o.running.TryLock() {
		report.Skipped = true
		report.Error = ErrRunInProgress.Error()
		rl.Addf("run skipped: %s", report.Error)
		return report
	}
	defer o.running.Unlock()

	if o.coord != nil {
		lock, err := o.coord.AcquireRunLock(ctx, o.opts.LockTTL)
		switch {
		case errors.Is(err, redisclient.ErrLockHeld):
			report.Skipped = true
			report.Error = ErrRunInProgress.Error()
			rl.Addf("run skipped: %s", report.Error)
			return report
		case err != nil:
			// Without the lock, tx id dedupe is still the only guard.
			o.log.Warn("run lock unavailable, continuing", "error", err)
			rl.Addf("run lock unavailable: %v", err)
		default:
			defer func() {
				if err := o.coord.ReleaseRunLock(context.WithoutCancel(ctx), lock); err != nil {
					o.log.Warn("failed to release run lock", "error", err)
				}
			}()
		}
	}

	rl.Addf("run %s: since %s", report.RunID, report.Since.Format(time.RFC3339))
	o.pipeline(ctx, since, report, rl)
	return report
}

func (o *Orchestrator) pipeline(ctx context.Context, since time.Time, report *domain.RunReport, rl *runlog.Log) {
	plan, err := o.sources.Plan(ctx)
	if err != nil {
		report.Error = fmt.Sprintf("build sources: %v", err)
		rl.Addf("%s", report.Error)
		return
	}
	for _, w := range plan.Warnings {
		rl.Addf("warning: %s", w)
	}
	rl.Addf("fetching %d sources", len(plan.Adapters))

	results := o.fetchAll(ctx, plan.Adapters, since)

	var (
		candidates []domain.Transaction
		statuses   = make([]domain.SourceStatus, 0, len(results))
	)
	for _, res := range results {
		rl.Append(res.Log...)
		statuses = append(statuses, res.Status)
		report.Sources[res.Status.Platform] = res.Status
		candidates = append(candidates, res.Transactions...)
	}
	report.TotalFound = len(candidates)
	rl.Addf("found %d transactions", report.TotalFound)

	book := normalize.NewAddressMap(registry.BuildAddressMap(plan.Wallets), o.opts.PrefixMatch)
	normalized := normalize.Normalize(candidates, book)

	unavailable := make(map[domain.Partition]error)
	existing := make(map[domain.Partition]dedupe.IDSet, len(domain.TxPartitions))
	for _, p := range domain.TxPartitions {
		ids, err := o.ledger.ExistingIDs(ctx, p)
		if err != nil {
			unavailable[p] = fmt.Errorf("read existing ids: %w", err)
			rl.Addf("%s: cannot read existing ids, withholding new rows: %v", p, err)
			continue
		}
		existing[p] = dedupe.NewIDSet(ids...)
		rl.Addf("%s: %d existing ids", p, len(existing[p]))
	}

	eligible, withheld := withhold(normalized, unavailable)
	if withheld > 0 {
		rl.Addf("withheld %d transactions for unreadable partitions", withheld)
	}

	unique, dstats := dedupe.Dedupe(eligible,
		existing[domain.PartitionDeposits], existing[domain.PartitionWithdrawals])
	metrics.DuplicatesRemoved.Add(float64(dstats.Duplicates))
	rl.Addf("dedupe: %d in, %d duplicates, %d remain", dstats.In, dstats.Duplicates, dstats.Out)

	valued := o.filter.Apply(unique)
	for _, d := range valued.Discarded {
		metrics.ValueFiltered.WithLabelValues(metrics.AssetLabel(d.Asset, !d.UsedDefaultRate)).Inc()
		if d.UsedDefaultRate {
			metrics.DefaultRateUsed.Inc()
		}
	}
	if len(valued.UnknownAssets) > 0 {
		rl.Addf("no price for: %v", valued.UnknownAssets)
	}
	rl.Addf("value filter: %d kept, %d to recycle bin", len(valued.Kept), len(valued.Discarded))

	ordered := sequence.Sort(valued.Kept)

	write := o.writer.Write(ctx, writer.Batch{
		Transactions: ordered,
		Discarded:    valued.Discarded,
		Statuses:     statuses,
		Unavailable:  unavailable,
	})
	for _, p := range domain.TxPartitions {
		res := write.Partitions[p]
		if res.Error != "" {
			rl.Addf("%s: write failed: %s", p, res.Error)
			continue
		}
		rl.Addf("%s: %d rows added", p, res.Added)
	}
	if write.RecycleError != "" {
		rl.Addf("recycle bin: write failed: %s", write.RecycleError)
	}
	if write.StatusError != "" {
		rl.Addf("status: write failed: %s", write.StatusError)
	}

	report.Write = write
	report.Stats = domain.FilterStats{
		RawTransactions:    len(normalized),
		Withheld:           withheld,
		AfterDeduplication: dstats.Out,
		AfterValueFilter:   len(valued.Kept),
		DuplicatesRemoved:  dstats.Duplicates,
		ValueFiltered:      len(valued.Discarded),
		RecycleBinSaved:    write.RecycleSaved,
		UnknownCurrencies:  valued.UnknownAssets,
		FinalAdded:         write.Added(),
	}

	if write.AllFailed() {
		report.Error = "every ledger partition failed"
		return
	}
	report.Success = true
}

// withhold drops transactions bound for partitions whose existing ids could
// not be read, so they reach neither the ledger nor the recycle bin.
func withhold(txs []domain.Transaction, unavailable map[domain.Partition]error) ([]domain.Transaction, int) {
	if len(unavailable) == 0 {
		return txs, 0
	}
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if p, err := domain.PartitionFor(tx.Type); err == nil {
			if _, skip := unavailable[p]; skip {
				continue
			}
		}
		out = append(out, tx)
	}
	return out, len(txs) - len(out)
}

// fetchAll runs adapters with bounded concurrency. Results keep adapter
// order no matter which finishes first.
func (o *Orchestrator) fetchAll(ctx context.Context, adapters []source.Adapter, since time.Time) []source.Result {
	results := make([]source.Result, len(adapters))
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, a := range adapters {
		g.Go(func() error {
			results[i] = o.fetchOne(ctx, a, since)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) fetchOne(ctx context.Context, a source.Adapter, since time.Time) (res source.Result) {
	start := o.now()
	name, kind := a.Name(), a.Kind()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("adapter panicked", "source", name, "panic", r)
			res = source.NewResult(name, kind, start)
			res.Fail(failedState(kind), fmt.Sprintf("Internal error: %v", r))
		}
		metrics.SourceFetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if res.Status.OK() {
			metrics.SourceTransactions.WithLabelValues(name, string(kind)).Add(float64(len(res.Transactions)))
		} else {
			metrics.SourceFailures.WithLabelValues(name, string(kind)).Inc()
		}
	}()

	res = a.Fetch(ctx, since)
	if res.Status.Platform == "" {
		res.Status.Platform = name
	}
	return res
}

func failedState(kind domain.SourceKind) domain.SourceState {
	if kind == domain.SourceKindWallet {
		return domain.SourceNotWorking
	}
	return domain.SourceError
}

// finish records metrics and, unless the run was skipped, keeps the report.
func (o *Orchestrator) finish(ctx context.Context, report *domain.RunReport, start time.Time) {
	outcome := "success"
	if !report.Success {
		outcome = "failure"
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	metrics.RunDuration.Observe(report.FinishedAt.Sub(start.UTC()).Seconds())
	if report.Success {
		metrics.LastRunTimestamp.Set(float64(report.FinishedAt.Unix()))
	}

	o.log.Info("run finished",
		"run_id", report.RunID,
		"success", report.Success,
		"found", report.TotalFound,
		"added", report.Stats.FinalAdded,
		"error", report.Error,
	)

	if report.Skipped {
		return
	}
	o.mu.Lock()
	o.last = report
	o.mu.Unlock()

	if o.coord != nil {
		if err := o.coord.SetLastReport(context.WithoutCancel(ctx), report); err != nil {
			o.log.Warn("failed to cache run report", "error", err)
		}
	}
}

// LastReport returns the most recent report, preferring the shared cache.
func (o *Orchestrator) LastReport(ctx context.Context) *domain.RunReport {
	if o.coord != nil {
		r, err := o.coord.LastReport(ctx)
		if err != nil {
			o.log.Warn("failed to read cached run report", "error", err)
		} else if r != nil {
			return r
		}
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last
}

// Ledger exposes the store the orchestrator writes to.
func (o *Orchestrator) Ledger() storage.Ledger { return o.ledger }

// Trigger runs with an optional lower bound.
func (o *Orchestrator) Trigger(ctx context.Context, since *time.Time) *domain.RunReport {
	return o.Run(ctx, RunRequest{Since: since})
}
