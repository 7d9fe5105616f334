package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/storage"
)

// MemoryStorage is a process-local ledger. It backs tests and dry runs.
type MemoryStorage struct {
	rows     map[domain.Partition][]domain.LedgerRow
	recycle  []domain.RecycleRow
	statuses []domain.SourceStatus
	failures map[string]error
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		rows:     make(map[domain.Partition][]domain.LedgerRow),
		failures: make(map[string]error),
	}
}

// FailOn makes the named operation ("append:Deposits", "ids:Withdrawals",
// "recycle", "status", "read:status") return err until cleared with a nil err.
func (s *MemoryStorage) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *MemoryStorage) failure(op string) error {
	return s.failures[op]
}

func (s *MemoryStorage) ExistingIDs(ctx context.Context, p domain.Partition) ([]string, error) {
	if !storage.IsTxPartition(p) {
		return nil, fmt.Errorf("%w: %s", storage.ErrPartitionNotFound, p)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("ids:" + string(p)); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(s.rows[p]))
	for _, r := range s.rows[p] {
		if r.TxID != "" {
			ids = append(ids, r.TxID)
		}
	}
	return ids, nil
}

func (s *MemoryStorage) Append(ctx context.Context, p domain.Partition, rows []domain.LedgerRow) (int, error) {
	if !storage.IsTxPartition(p) {
		return 0, fmt.Errorf("%w: %s", storage.ErrPartitionNotFound, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("append:" + string(p)); err != nil {
		return 0, err
	}
	s.rows[p] = append(s.rows[p], rows...)
	return len(rows), nil
}

func (s *MemoryStorage) RecycleBinIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("recycle"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(s.recycle))
	for _, r := range s.recycle {
		if r.TxID != "" {
			ids = append(ids, r.TxID)
		}
	}
	return ids, nil
}

func (s *MemoryStorage) AppendRecycleBin(ctx context.Context, rows []domain.RecycleRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("recycle"); err != nil {
		return 0, err
	}
	s.recycle = append(s.recycle, rows...)
	return len(rows), nil
}

func (s *MemoryStorage) ReplaceStatus(ctx context.Context, statuses []domain.SourceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("status"); err != nil {
		return err
	}
	s.statuses = append([]domain.SourceStatus(nil), statuses...)
	return nil
}

func (s *MemoryStorage) Rows(ctx context.Context, p domain.Partition) ([]domain.LedgerRow, error) {
	if !storage.IsTxPartition(p) {
		return nil, fmt.Errorf("%w: %s", storage.ErrPartitionNotFound, p)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.LedgerRow(nil), s.rows[p]...), nil
}

func (s *MemoryStorage) RecycleBin(ctx context.Context) ([]domain.RecycleRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.RecycleRow(nil), s.recycle...), nil
}

func (s *MemoryStorage) Statuses(ctx context.Context) ([]domain.SourceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("read:status"); err != nil {
		return nil, err
	}
	return append([]domain.SourceStatus(nil), s.statuses...), nil
}

func (s *MemoryStorage) Close() error { return nil }

var _ storage.Ledger = (*MemoryStorage)(nil)
