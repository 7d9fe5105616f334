package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/storage"
)

// LedgerRepo implements storage.Ledger on PostgreSQL.
type LedgerRepo struct {
	db *DB
}

// NewLedgerRepo creates a new PostgreSQL ledger.
func NewLedgerRepo(db *DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

var _ storage.Ledger = (*LedgerRepo)(nil)

func checkPartition(p domain.Partition) error {
	if !storage.IsTxPartition(p) {
		return fmt.Errorf("%w: %s", storage.ErrPartitionNotFound, p)
	}
	return nil
}

func (r *LedgerRepo) ExistingIDs(ctx context.Context, p domain.Partition) ([]string, error) {
	if err := checkPartition(p); err != nil {
		return nil, err
	}
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT tx_id FROM ledger_rows WHERE partition = $1 AND tx_id <> ''`, string(p))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s ids: %w", p, err)
	}
	return ids, nil
}

// Append writes all rows in one database transaction, so a partition
// either gets the whole batch or nothing.
func (r *LedgerRepo) Append(ctx context.Context, p domain.Partition, rows []domain.LedgerRow) (int, error) {
	if err := checkPartition(p); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO ledger_rows (
				partition, platform, asset, amount, occurred_at, from_address, to_address, tx_id
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, string(p),
				row.Platform, row.Asset, row.Amount, row.Timestamp, row.From, row.To, row.TxID,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to append to %s: %w", p, err)
	}
	return len(rows), nil
}

func (r *LedgerRepo) RecycleBinIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT tx_id FROM recycle_bin WHERE tx_id <> ''`); err != nil {
		return nil, fmt.Errorf("failed to read recycle bin ids: %w", err)
	}
	return ids, nil
}

func (r *LedgerRepo) AppendRecycleBin(ctx context.Context, rows []domain.RecycleRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, row := range rows {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO recycle_bin (
					occurred_at, platform, tx_type, asset, amount, calculated_value, used_default_rate,
					filter_reason, from_address, to_address, tx_id, status, network
				) VALUES (
					:occurred_at, :platform, :tx_type, :asset, :amount, :calculated_value, :used_default_rate,
					:filter_reason, :from_address, :to_address, :tx_id, :status, :network
				)`, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to append to recycle bin: %w", err)
	}
	return len(rows), nil
}

// ReplaceStatus deletes and rewrites the status table atomically.
func (r *LedgerRepo) ReplaceStatus(ctx context.Context, statuses []domain.SourceStatus) error {
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM source_status`); err != nil {
			return err
		}
		for i, s := range statuses {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO source_status (position, platform, kind, state, last_sync, cadence, notes, tx_count)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				i, s.Platform, string(s.Kind), string(s.State), s.LastSync, s.Cadence, s.Notes, s.Count,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace status: %w", err)
	}
	return nil
}

func (r *LedgerRepo) Rows(ctx context.Context, p domain.Partition) ([]domain.LedgerRow, error) {
	if err := checkPartition(p); err != nil {
		return nil, err
	}
	var rows []domain.LedgerRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT platform, asset, amount, occurred_at, from_address, to_address, tx_id
		FROM ledger_rows WHERE partition = $1 ORDER BY id`, string(p))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return rows, nil
}

func (r *LedgerRepo) RecycleBin(ctx context.Context) ([]domain.RecycleRow, error) {
	var rows []domain.RecycleRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT occurred_at, platform, tx_type, asset, amount, calculated_value, used_default_rate,
		       filter_reason, from_address, to_address, tx_id, status, network
		FROM recycle_bin ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read recycle bin: %w", err)
	}
	return rows, nil
}

func (r *LedgerRepo) Statuses(ctx context.Context) ([]domain.SourceStatus, error) {
	var rows []domain.SourceStatus
	err := r.db.SelectContext(ctx, &rows, `
		SELECT platform, kind, state, last_sync, cadence, notes, tx_count
		FROM source_status ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	return rows, nil
}

func (r *LedgerRepo) Close() error {
	return r.db.Close()
}

func (r *LedgerRepo) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
