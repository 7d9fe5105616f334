package domain

import "time"

// FilterStats summarizes what the dedupe and value stages did to a batch.
type FilterStats struct {
	RawTransactions    int      `json:"raw_transactions"`
	Withheld           int      `json:"withheld"`
	AfterDeduplication int      `json:"after_deduplication"`
	AfterValueFilter   int      `json:"after_value_filter"`
	DuplicatesRemoved  int      `json:"duplicates_removed"`
	ValueFiltered      int      `json:"value_filtered"`
	RecycleBinSaved    int      `json:"recycle_bin_saved"`
	UnknownCurrencies  []string `json:"unknown_currencies"`
	FinalAdded         int      `json:"final_added"`
}

// PartitionResult is the outcome of writing one partition.
type PartitionResult struct {
	Added int    `json:"added"`
	Error string `json:"error,omitempty"`
}

// WriteReport is returned by the ledger writer.
type WriteReport struct {
	Partitions    map[Partition]PartitionResult `json:"partitions"`
	RecycleSaved  int                           `json:"recycle_saved"`
	RecycleError  string                        `json:"recycle_error,omitempty"`
	StatusUpdated bool                          `json:"status_updated"`
	StatusError   string                        `json:"status_error,omitempty"`
}

// Added sums the rows appended across transaction partitions.
func (w WriteReport) Added() int {
	n := 0
	for _, p := range w.Partitions {
		n += p.Added
	}
	return n
}

// AllFailed reports whether every transaction partition that had work failed.
func (w WriteReport) AllFailed() bool {
	if len(w.Partitions) == 0 {
		return false
	}
	for _, p := range w.Partitions {
		if p.Error == "" {
			return false
		}
	}
	return true
}

// RunReport is the structured result of one pipeline invocation.
type RunReport struct {
	RunID      string                  `json:"run_id"`
	Success    bool                    `json:"success"`
	Error      string                  `json:"error,omitempty"`
	Skipped    bool                    `json:"skipped,omitempty"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Since      time.Time               `json:"since"`
	TotalFound int                     `json:"total_found"`
	Sources    map[string]SourceStatus `json:"sources"`
	Stats      FilterStats             `json:"stats"`
	Write      WriteReport             `json:"write"`
	DebugLog   []string                `json:"debug_log"`
}
