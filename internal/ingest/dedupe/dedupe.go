// Package dedupe drops candidates already recorded in the ledger.
package dedupe

import (
	"strings"

	"github.com/vietddude/txsync/internal/core/domain"
)

// IDSet is a set of ledger transaction ids.
type IDSet map[string]struct{}

// NewIDSet builds a set of trimmed ids, ignoring empty ones.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[strings.TrimSpace(id)]
	return ok
}

// Stats counts what Dedupe did.
type Stats struct {
	In         int
	Out        int
	Duplicates int
}

// Dedupe removes candidates whose tx id exists in the ledger partition of
// their own type, and repeats of the same (type, id) within the batch.
// Candidates without an id always pass.
func Dedupe(candidates []domain.Transaction, deposits, withdrawals IDSet) ([]domain.Transaction, Stats) {
	stats := Stats{In: len(candidates)}
	batch := map[domain.TxType]IDSet{
		domain.TxTypeDeposit:    {},
		domain.TxTypeWithdrawal: {},
	}

	out := make([]domain.Transaction, 0, len(candidates))
	for _, tx := range candidates {
		id := strings.TrimSpace(tx.TxID)
		if id == "" {
			out = append(out, tx)
			continue
		}
		var existing IDSet
		switch tx.Type {
		case domain.TxTypeDeposit:
			existing = deposits
		case domain.TxTypeWithdrawal:
			existing = withdrawals
		}
		seen := batch[tx.Type]
		if existing.Has(id) || seen.Has(id) {
			stats.Duplicates++
			continue
		}
		if seen != nil {
			seen[id] = struct{}{}
		}
		out = append(out, tx)
	}
	stats.Out = len(out)
	return out, stats
}
