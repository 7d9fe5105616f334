package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceTransactions tracks transactions returned per source
	SourceTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txsync_source_transactions_total",
			Help: "Total number of transactions returned by a source",
		},
		[]string{"source", "kind"},
	)

	// SourceFailures tracks sources that ended a fetch in error
	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txsync_source_failures_total",
			Help: "Total number of failed source fetches",
		},
		[]string{"source", "kind"},
	)

	// SourceFetchDuration tracks how long one source fetch takes
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txsync_source_fetch_duration_seconds",
			Help:    "Source fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// RPCCallsTotal tracks upstream HTTP calls per provider
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txsync_rpc_calls_total",
			Help: "Total number of upstream API calls",
		},
		[]string{"provider", "operation"},
	)

	// RPCErrorsTotal tracks upstream API errors per provider
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txsync_rpc_errors_total",
			Help: "Total number of upstream API errors",
		},
		[]string{"provider", "error_type"},
	)

	// RPCLatency tracks upstream call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txsync_rpc_latency_seconds",
			Help:    "Upstream API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	// DuplicatesRemoved counts candidates dropped because their tx_id was already recorded
	DuplicatesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "txsync_duplicates_removed_total",
			Help: "Total number of duplicate candidates removed",
		},
	)

	// ValueFiltered counts transactions routed to the recycle bin. The asset
	// label is bounded by the price table, see AssetLabel.
	ValueFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txsync_value_filtered_total",
			Help: "Total number of transactions below the value threshold",
		},
		[]string{"asset"},
	)

	// DefaultRateUsed counts valuations that fell back to the default rate
	DefaultRateUsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "txsync_default_rate_used_total",
			Help: "Total number of valuations using the default rate",
		},
	)

	// LedgerRowsWritten tracks rows appended per partition
	LedgerRowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txsync_ledger_rows_written_total",
			Help: "Total number of rows appended to the ledger",
		},
		[]string{"partition"},
	)

	// LedgerWriteErrors tracks failed partition writes
	LedgerWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txsync_ledger_write_errors_total",
			Help: "Total number of failed ledger partition writes",
		},
		[]string{"partition"},
	)

	// RunsTotal tracks pipeline runs by outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txsync_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"outcome"},
	)

	// RunDuration tracks end to end run duration
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "txsync_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	// LastRunTimestamp is the unix time of the last completed run
	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "txsync_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		},
	)

	// DBConnectionPoolUsage tracks database connection pool usage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "txsync_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)

// OtherAsset labels assets missing from the price table.
const OtherAsset = "other"

// AssetLabel keeps the asset label set finite: unpriced symbols, such as
// airdropped spam tokens, share one series.
func AssetLabel(asset string, priced bool) string {
	if !priced {
		return OtherAsset
	}
	return asset
}
