package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Partition names a region of the ledger.
type Partition string

const (
	PartitionDeposits    Partition = "Deposits"
	PartitionWithdrawals Partition = "Withdrawals"
	PartitionRecycleBin  Partition = "RecycleBin"
	PartitionStatus      Partition = "Settings"
)

// TxPartitions lists the partitions that hold accepted transactions, in write order.
var TxPartitions = []Partition{PartitionDeposits, PartitionWithdrawals}

// PartitionFor maps a transaction type to its ledger partition.
func PartitionFor(t TxType) (Partition, error) {
	switch t {
	case TxTypeDeposit:
		return PartitionDeposits, nil
	case TxTypeWithdrawal:
		return PartitionWithdrawals, nil
	}
	return "", fmt.Errorf("no partition for transaction type %q", t)
}

// ParsePartition resolves a user supplied partition name.
func ParsePartition(s string) (Partition, error) {
	switch s {
	case "deposits", "Deposits":
		return PartitionDeposits, nil
	case "withdrawals", "Withdrawals":
		return PartitionWithdrawals, nil
	case "recycle-bin", "recyclebin", "RecycleBin":
		return PartitionRecycleBin, nil
	case "status", "settings", "Settings":
		return PartitionStatus, nil
	}
	return "", fmt.Errorf("unknown partition %q", s)
}

// Discarded is a transaction rejected by the value filter, kept for audit.
type Discarded struct {
	Transaction
	CalculatedValue decimal.Decimal `json:"calculated_value"`
	UsedDefaultRate bool            `json:"used_default_rate"`
	FilterReason    string          `json:"filter_reason"`
}

// RecycleRow is the flat audit row stored in the recycle bin.
type RecycleRow struct {
	Timestamp       string `json:"timestamp"         db:"occurred_at"`
	Platform        string `json:"platform"          db:"platform"`
	Type            string `json:"type"              db:"tx_type"`
	Asset           string `json:"asset"             db:"asset"`
	Amount          string `json:"amount"            db:"amount"`
	CalculatedValue string `json:"calculated_value"  db:"calculated_value"`
	UsedDefaultRate bool   `json:"used_default_rate" db:"used_default_rate"`
	FilterReason    string `json:"filter_reason"     db:"filter_reason"`
	From            string `json:"from"              db:"from_address"`
	To              string `json:"to"                db:"to_address"`
	TxID            string `json:"tx_id"             db:"tx_id"`
	Status          string `json:"status"            db:"status"`
	Network         string `json:"network"           db:"network"`
}

// RecycleHeader is the fixed header row of the recycle bin partition.
var RecycleHeader = []string{
	"Date & Time", "Platform", "Type", "Asset", "Amount", "Calculated Value",
	"Used Default Rate", "Filter Reason", "From Address", "To Address", "TX ID", "Status", "Network",
}

// Row flattens the discarded transaction for storage.
func (d Discarded) Row() RecycleRow {
	return RecycleRow{
		Timestamp:       d.Timestamp.UTC().Format(LedgerTimeLayout),
		Platform:        d.Platform,
		Type:            string(d.Type),
		Asset:           d.Asset,
		Amount:          FormatAmount(d.Amount),
		CalculatedValue: d.CalculatedValue.StringFixed(2),
		UsedDefaultRate: d.UsedDefaultRate,
		FilterReason:    d.FilterReason,
		From:            d.From,
		To:              d.To,
		TxID:            d.TxID,
		Status:          string(d.Status),
		Network:         d.Network,
	}
}

// Values returns the row in header order.
func (r RecycleRow) Values() []string {
	used := "No"
	if r.UsedDefaultRate {
		used = "Yes"
	}
	return []string{
		r.Timestamp, r.Platform, r.Type, r.Asset, r.Amount, r.CalculatedValue,
		used, r.FilterReason, r.From, r.To, r.TxID, r.Status, r.Network,
	}
}
