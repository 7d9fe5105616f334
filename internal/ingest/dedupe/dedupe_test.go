package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vietddude/txsync/internal/core/domain"
)

func dep(id string) domain.Transaction {
	return domain.Transaction{Type: domain.TxTypeDeposit, TxID: id, Asset: "USDT"}
}

func wd(id string) domain.Transaction {
	return domain.Transaction{Type: domain.TxTypeWithdrawal, TxID: id, Asset: "USDT"}
}

func TestTypeScoped(t *testing.T) {
	out, stats := Dedupe([]domain.Transaction{dep("X"), wd("X")}, NewIDSet("X"), NewIDSet())

	assert.Equal(t, []domain.Transaction{wd("X")}, out)
	assert.Equal(t, Stats{In: 2, Out: 1, Duplicates: 1}, stats)
}

func TestEmptyIDPassesThrough(t *testing.T) {
	out, stats := Dedupe([]domain.Transaction{dep(""), dep("")}, NewIDSet("", "A"), NewIDSet())

	assert.Len(t, out, 2)
	assert.Zero(t, stats.Duplicates)
}

func TestWhitespaceInsensitive(t *testing.T) {
	out, stats := Dedupe([]domain.Transaction{dep("A1"), dep(" B2"), dep("B2 ")}, NewIDSet("A1 ", "\t"), NewIDSet())

	assert.Equal(t, []domain.Transaction{dep(" B2")}, out)
	assert.Equal(t, Stats{In: 3, Out: 1, Duplicates: 2}, stats)
	assert.True(t, NewIDSet(" X\n").Has("X"))
	assert.Len(t, NewIDSet("\t"), 0)
}

func TestInBatchRepeats(t *testing.T) {
	out, stats := Dedupe([]domain.Transaction{dep("A"), dep("A"), wd("A")}, NewIDSet(), NewIDSet())

	assert.Equal(t, []domain.Transaction{dep("A"), wd("A")}, out)
	assert.Equal(t, 1, stats.Duplicates)
}

func TestIdempotentSecondRun(t *testing.T) {
	batch := []domain.Transaction{dep("A"), wd("B"), dep("C")}
	first, _ := Dedupe(batch, NewIDSet(), NewIDSet())

	deposits, withdrawals := NewIDSet(), NewIDSet()
	for _, tx := range first {
		if tx.Type == domain.TxTypeDeposit {
			deposits[tx.TxID] = struct{}{}
		} else {
			withdrawals[tx.TxID] = struct{}{}
		}
	}

	second, stats := Dedupe(batch, deposits, withdrawals)
	assert.Empty(t, second)
	assert.Equal(t, 3, stats.Duplicates)
}

func TestNilSets(t *testing.T) {
	out, _ := Dedupe([]domain.Transaction{dep("A")}, nil, nil)
	assert.Len(t, out, 1)
}
