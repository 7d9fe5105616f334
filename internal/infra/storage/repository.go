package storage

import (
	"context"
	"errors"

	"github.com/vietddude/txsync/internal/core/domain"
)

var (
	// ErrPartitionNotFound is returned for partitions a backend cannot hold.
	ErrPartitionNotFound = errors.New("partition not found")
)

// Ledger is the shared store the pipeline appends to. Transaction
// partitions are append-only; the status partition is replaced wholesale.
type Ledger interface {
	// ExistingIDs returns the non-empty tx ids already in a transaction partition
	ExistingIDs(ctx context.Context, p domain.Partition) ([]string, error)

	// Append adds rows after the last row of a transaction partition and
	// returns how many were written
	Append(ctx context.Context, p domain.Partition, rows []domain.LedgerRow) (int, error)

	// RecycleBinIDs returns the tx ids already in the recycle bin
	RecycleBinIDs(ctx context.Context) ([]string, error)

	// AppendRecycleBin adds audit rows, creating the partition if needed
	AppendRecycleBin(ctx context.Context, rows []domain.RecycleRow) (int, error)

	// ReplaceStatus overwrites the status table
	ReplaceStatus(ctx context.Context, statuses []domain.SourceStatus) error

	// Rows reads a transaction partition in append order
	Rows(ctx context.Context, p domain.Partition) ([]domain.LedgerRow, error)

	// RecycleBin reads the audit partition in append order
	RecycleBin(ctx context.Context) ([]domain.RecycleRow, error)

	// Statuses reads the status table
	Statuses(ctx context.Context) ([]domain.SourceStatus, error)

	Close() error
}

// IsTxPartition reports whether p holds accepted transactions.
func IsTxPartition(p domain.Partition) bool {
	return p == domain.PartitionDeposits || p == domain.PartitionWithdrawals
}
