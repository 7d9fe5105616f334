// Package writer persists one run's accepted and discarded transactions.
package writer

import (
	"context"
	"log/slog"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/storage"
	"github.com/vietddude/txsync/internal/ingest/metrics"
)

// Batch is everything a run hands to the ledger.
type Batch struct {
	// Transactions must already be in ledger order.
	Transactions []domain.Transaction
	Discarded    []domain.Discarded
	Statuses     []domain.SourceStatus
	// Unavailable marks partitions whose existing ids could not be read.
	// Their transactions are withheld and the error is reported.
	Unavailable map[domain.Partition]error
}

// Writer appends batches to a ledger.
type Writer struct {
	ledger storage.Ledger
	log    *slog.Logger
}

func New(ledger storage.Ledger) *Writer {
	return &Writer{ledger: ledger, log: slog.Default().With("component", "writer")}
}

// Write appends each transaction partition, the recycle bin and the status
// table independently. A failure in one never stops the others.
func (w *Writer) Write(ctx context.Context, b Batch) domain.WriteReport {
	report := domain.WriteReport{Partitions: make(map[domain.Partition]domain.PartitionResult)}

	byPartition := make(map[domain.Partition][]domain.LedgerRow, len(domain.TxPartitions))
	for _, tx := range b.Transactions {
		p, err := domain.PartitionFor(tx.Type)
		if err != nil {
			w.log.Warn("dropping transaction without partition", "tx_id", tx.TxID, "error", err)
			continue
		}
		byPartition[p] = append(byPartition[p], tx.Row())
	}

	for _, p := range domain.TxPartitions {
		if err, ok := b.Unavailable[p]; ok && err != nil {
			report.Partitions[p] = domain.PartitionResult{Error: err.Error()}
			metrics.LedgerWriteErrors.WithLabelValues(string(p)).Inc()
			continue
		}
		rows := byPartition[p]
		if len(rows) == 0 {
			report.Partitions[p] = domain.PartitionResult{}
			continue
		}
		n, err := w.ledger.Append(ctx, p, rows)
		if err != nil {
			w.log.Error("failed to append partition", "partition", p, "rows", len(rows), "error", err)
			metrics.LedgerWriteErrors.WithLabelValues(string(p)).Inc()
			report.Partitions[p] = domain.PartitionResult{Added: n, Error: err.Error()}
			continue
		}
		metrics.LedgerRowsWritten.WithLabelValues(string(p)).Add(float64(n))
		w.log.Info("appended transactions", "partition", p, "rows", n)
		report.Partitions[p] = domain.PartitionResult{Added: n}
	}

	report.RecycleSaved, report.RecycleError = w.writeRecycleBin(ctx, b.Discarded)

	if err := w.ledger.ReplaceStatus(ctx, b.Statuses); err != nil {
		w.log.Error("failed to update status table", "error", err)
		metrics.LedgerWriteErrors.WithLabelValues(string(domain.PartitionStatus)).Inc()
		report.StatusError = err.Error()
	} else {
		report.StatusUpdated = true
	}
	return report
}

// writeRecycleBin appends discarded transactions not already in the bin.
// Entries without a tx id cannot be matched and are always appended.
func (w *Writer) writeRecycleBin(ctx context.Context, discarded []domain.Discarded) (int, string) {
	if len(discarded) == 0 {
		return 0, ""
	}
	ids, err := w.ledger.RecycleBinIDs(ctx)
	if err != nil {
		w.log.Error("failed to read recycle bin", "error", err)
		metrics.LedgerWriteErrors.WithLabelValues(string(domain.PartitionRecycleBin)).Inc()
		return 0, err.Error()
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}

	rows := make([]domain.RecycleRow, 0, len(discarded))
	for _, d := range discarded {
		if d.TxID != "" {
			if seen[d.TxID] {
				continue
			}
			seen[d.TxID] = true
		}
		rows = append(rows, d.Row())
	}
	if len(rows) == 0 {
		return 0, ""
	}

	n, err := w.ledger.AppendRecycleBin(ctx, rows)
	if err != nil {
		w.log.Error("failed to append recycle bin", "rows", len(rows), "error", err)
		metrics.LedgerWriteErrors.WithLabelValues(string(domain.PartitionRecycleBin)).Inc()
		return n, err.Error()
	}
	metrics.LedgerRowsWritten.WithLabelValues(string(domain.PartitionRecycleBin)).Add(float64(n))
	return n, ""
}
