package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerTimeLayout is how timestamps are rendered in ledger rows.
const LedgerTimeLayout = "2006-01-02 15:04"

// Placeholder counterparties used when a source does not disclose one.
const (
	CounterpartyExternal = "External"
	CounterpartyInternal = "Internal"
)

// Transaction is the canonical unit produced by every source adapter.
type Transaction struct {
	Platform  string          `json:"platform"`
	Type      TxType          `json:"type"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
	From      string          `json:"from_address"`
	To        string          `json:"to_address"`
	TxID      string          `json:"tx_id"`
	Status    TxStatus        `json:"status"`
	Network   string          `json:"network"`
	APISource string          `json:"api_source"`
}

type TxType string

const (
	TxTypeDeposit    TxType = "deposit"
	TxTypeWithdrawal TxType = "withdrawal"
)

// ParseTxType accepts the canonical names and a few common synonyms.
func ParseTxType(s string) (TxType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit", "in", "credit":
		return TxTypeDeposit, nil
	case "withdrawal", "withdraw", "out", "debit":
		return TxTypeWithdrawal, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

func (t TxType) Valid() bool {
	return t == TxTypeDeposit || t == TxTypeWithdrawal
}

type TxStatus string

const (
	TxStatusCompleted TxStatus = "Completed"
	TxStatusPending   TxStatus = "Pending"
	TxStatusFailed    TxStatus = "Failed"
)

// FormatAmount renders d with every fractional digit it was parsed with,
// so "1.50" stays "1.50".
func FormatAmount(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// Row projects the transaction onto the seven ledger columns.
func (t Transaction) Row() LedgerRow {
	return LedgerRow{
		Platform:  t.Platform,
		Asset:     t.Asset,
		Amount:    FormatAmount(t.Amount),
		Timestamp: t.Timestamp.UTC().Format(LedgerTimeLayout),
		From:      t.From,
		To:        t.To,
		TxID:      t.TxID,
	}
}

// LedgerRow is exactly what gets appended to a ledger partition.
type LedgerRow struct {
	Platform  string `json:"platform"  db:"platform"`
	Asset     string `json:"asset"     db:"asset"`
	Amount    string `json:"amount"    db:"amount"`
	Timestamp string `json:"timestamp" db:"occurred_at"`
	From      string `json:"from"      db:"from_address"`
	To        string `json:"to"        db:"to_address"`
	TxID      string `json:"tx_id"     db:"tx_id"`
}

// Values returns the row in column order.
func (r LedgerRow) Values() []string {
	return []string{r.Platform, r.Asset, r.Amount, r.Timestamp, r.From, r.To, r.TxID}
}
