package domain

import "time"

// DefaultCadence labels how often sources are synced.
const DefaultCadence = "Every Hour"

type SourceKind string

const (
	SourceKindExchange SourceKind = "exchange"
	SourceKindWallet   SourceKind = "wallet"
)

// SourceState is the outcome shown in the status table.
type SourceState string

const (
	SourceActive     SourceState = "Active"
	SourceError      SourceState = "Error"
	SourceWorking    SourceState = "Working"
	SourceNotWorking SourceState = "Not Working"
)

// SourceStatus is one row of the status partition.
type SourceStatus struct {
	Platform string      `json:"platform"  db:"platform"`
	Kind     SourceKind  `json:"kind"      db:"kind"`
	State    SourceState `json:"status"    db:"state"`
	LastSync time.Time   `json:"last_sync" db:"last_sync"`
	Cadence  string      `json:"cadence"   db:"cadence"`
	Notes    string      `json:"notes"     db:"notes"`
	Count    int         `json:"count"     db:"tx_count"`
}

// OK reports whether the source produced a usable answer.
func (s SourceStatus) OK() bool {
	return s.State == SourceActive || s.State == SourceWorking
}
