package runlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogKeepsOrder(t *testing.T) {
	l := New(nil)
	l.Addf("starting %d sources", 3)
	l.Append("binance: 2 transactions", "bybit: 0 transactions")
	l.Addf("done")

	lines := l.Lines()
	assert.Equal(t, []string{
		"starting 3 sources",
		"binance: 2 transactions",
		"bybit: 0 transactions",
		"done",
	}, lines)

	lines[0] = "mutated"
	assert.Equal(t, "starting 3 sources", l.Lines()[0])
}
