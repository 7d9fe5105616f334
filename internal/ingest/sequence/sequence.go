// Package sequence orders transactions for appending to the ledger.
package sequence

import (
	"sort"

	"github.com/vietddude/txsync/internal/core/domain"
)

// Sort returns txs ordered by ascending timestamp. Equal timestamps keep
// their input order. The input slice is not modified.
func Sort(txs []domain.Transaction) []domain.Transaction {
	out := append([]domain.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
