// Package sheets stores the ledger in a Google spreadsheet laid out for
// people: transactions in columns F:L below six header rows, the status
// table at the top of the settings tab, and an audit tab for the recycle bin.
package sheets

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/storage"
)

const (
	// headerRows are reserved above the first transaction row.
	headerRows = 6
	// txIDColumn is the index of TX ID within F:L.
	txIDColumn = 6

	defaultStatusSheet = "SETTINGS"
	statusLastRow      = 50
)

var statusHeader = []string{"Platform", "API Status", "Last Sync", "Auto-Update", "Notes"}

// Ledger implements storage.Ledger on a spreadsheet.
type Ledger struct {
	values      values
	statusSheet string
}

var _ storage.Ledger = (*Ledger)(nil)

// New connects to the spreadsheet named in cfg.
func New(ctx context.Context, cfg Config) (*Ledger, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet_id is required")
	}
	v, err := newAPIValues(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newLedger(v, cfg.StatusSheet), nil
}

func newLedger(v values, statusSheet string) *Ledger {
	if statusSheet == "" {
		statusSheet = defaultStatusSheet
	}
	return &Ledger{values: v, statusSheet: statusSheet}
}

func sheetFor(p domain.Partition) (string, error) {
	if !storage.IsTxPartition(p) {
		return "", fmt.Errorf("%w: %s", storage.ErrPartitionNotFound, p)
	}
	return string(p), nil
}

func (l *Ledger) ExistingIDs(ctx context.Context, p domain.Partition) ([]string, error) {
	rows, err := l.Rows(ctx, p)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.TxID != "" {
			ids = append(ids, r.TxID)
		}
	}
	return ids, nil
}

// Append writes below the last used row of column F.
func (l *Ledger) Append(ctx context.Context, p domain.Partition, rows []domain.LedgerRow) (int, error) {
	sheet, err := sheetFor(p)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	used, err := l.values.Get(ctx, sheet+"!F:F")
	if err != nil {
		return 0, fmt.Errorf("failed to find last row of %s: %w", sheet, err)
	}
	start := max(len(used), headerRows) + 1
	end := start + len(rows) - 1

	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = r.Values()
	}
	rng := fmt.Sprintf("%s!F%d:L%d", sheet, start, end)
	if err := l.values.Update(ctx, rng, cells); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", rng, err)
	}
	return len(rows), nil
}

func (l *Ledger) Rows(ctx context.Context, p domain.Partition) ([]domain.LedgerRow, error) {
	sheet, err := sheetFor(p)
	if err != nil {
		return nil, err
	}
	cells, err := l.values.Get(ctx, fmt.Sprintf("%s!F%d:L", sheet, headerRows+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	rows := make([]domain.LedgerRow, 0, len(cells))
	for _, c := range cells {
		if len(c) == 0 {
			continue
		}
		c = pad(c, txIDColumn+1)
		rows = append(rows, domain.LedgerRow{
			Platform: c[0], Asset: c[1], Amount: c[2], Timestamp: c[3], From: c[4], To: c[5], TxID: strings.TrimSpace(c[6]),
		})
	}
	return rows, nil
}

func (l *Ledger) RecycleBinIDs(ctx context.Context) ([]string, error) {
	rows, err := l.RecycleBin(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.TxID != "" {
			ids = append(ids, r.TxID)
		}
	}
	return ids, nil
}

func (l *Ledger) ensureRecycleBin(ctx context.Context) (bool, error) {
	titles, err := l.values.SheetTitles(ctx)
	if err != nil {
		return false, err
	}
	sheet := string(domain.PartitionRecycleBin)
	if slices.Contains(titles, sheet) {
		return false, nil
	}
	if err := l.values.AddSheet(ctx, sheet); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", sheet, err)
	}
	if err := l.values.Update(ctx, sheet+"!A1:M1", [][]string{domain.RecycleHeader}); err != nil {
		return false, fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	return true, nil
}

func (l *Ledger) AppendRecycleBin(ctx context.Context, rows []domain.RecycleRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if _, err := l.ensureRecycleBin(ctx); err != nil {
		return 0, err
	}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = r.Values()
	}
	if err := l.values.Append(ctx, string(domain.PartitionRecycleBin)+"!A:M", cells); err != nil {
		return 0, fmt.Errorf("failed to append to recycle bin: %w", err)
	}
	return len(rows), nil
}

func (l *Ledger) RecycleBin(ctx context.Context) ([]domain.RecycleRow, error) {
	created, err := l.ensureRecycleBin(ctx)
	if err != nil {
		return nil, err
	}
	if created {
		return nil, nil
	}
	cells, err := l.values.Get(ctx, string(domain.PartitionRecycleBin)+"!A2:M")
	if err != nil {
		return nil, fmt.Errorf("failed to read recycle bin: %w", err)
	}
	rows := make([]domain.RecycleRow, 0, len(cells))
	for _, c := range cells {
		if len(c) == 0 {
			continue
		}
		c = pad(c, len(domain.RecycleHeader))
		rows = append(rows, domain.RecycleRow{
			Timestamp: c[0], Platform: c[1], Type: c[2], Asset: c[3], Amount: c[4],
			CalculatedValue: c[5], UsedDefaultRate: c[6] == "Yes", FilterReason: c[7],
			From: c[8], To: c[9], TxID: strings.TrimSpace(c[10]), Status: c[11], Network: c[12],
		})
	}
	return rows, nil
}

// ReplaceStatus clears the status region, then writes header and rows.
func (l *Ledger) ReplaceStatus(ctx context.Context, statuses []domain.SourceStatus) error {
	if err := l.values.Clear(ctx, fmt.Sprintf("%s!A3:E%d", l.statusSheet, statusLastRow)); err != nil {
		return fmt.Errorf("failed to clear status: %w", err)
	}
	if err := l.values.Update(ctx, l.statusSheet+"!A2:E2", [][]string{statusHeader}); err != nil {
		return fmt.Errorf("failed to write status header: %w", err)
	}
	if len(statuses) == 0 {
		return nil
	}
	cells := make([][]string, len(statuses))
	for i, s := range statuses {
		cells[i] = []string{
			s.Platform,
			string(s.State),
			s.LastSync.UTC().Format(domain.LedgerTimeLayout),
			s.Cadence,
			s.Notes,
		}
	}
	rng := fmt.Sprintf("%s!A3:E%d", l.statusSheet, 2+len(cells))
	if err := l.values.Update(ctx, rng, cells); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return nil
}

func (l *Ledger) Statuses(ctx context.Context) ([]domain.SourceStatus, error) {
	cells, err := l.values.Get(ctx, fmt.Sprintf("%s!A3:E%d", l.statusSheet, statusLastRow))
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	out := make([]domain.SourceStatus, 0, len(cells))
	for _, c := range cells {
		if len(c) == 0 || c[0] == "" {
			continue
		}
		c = pad(c, len(statusHeader))
		s := domain.SourceStatus{
			Platform: c[0],
			State:    domain.SourceState(c[1]),
			Cadence:  c[3],
			Notes:    c[4],
		}
		if t, err := time.Parse(domain.LedgerTimeLayout, c[2]); err == nil {
			s.LastSync = t
		}
		switch s.State {
		case domain.SourceWorking, domain.SourceNotWorking:
			s.Kind = domain.SourceKindWallet
		default:
			s.Kind = domain.SourceKindExchange
		}
		s.Count = countFromNotes(s.Notes)
		out = append(out, s)
	}
	return out, nil
}

func (l *Ledger) Close() error { return nil }

func pad(row []string, n int) []string {
	for len(row) < n {
		row = append(row, "")
	}
	return row
}

// countFromNotes recovers the count from "... = N total" or "N transactions".
func countFromNotes(notes string) int {
	var n int
	if _, err := fmt.Sscanf(notes, "%d transactions", &n); err == nil {
		return n
	}
	for i := len(notes) - 1; i >= 0; i-- {
		if notes[i] == '=' {
			var total int
			if _, err := fmt.Sscanf(notes[i+1:], " %d total", &total); err == nil {
				return total
			}
			break
		}
	}
	return 0
}
