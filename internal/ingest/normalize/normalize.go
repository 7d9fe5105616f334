// Package normalize relabels transaction platforms with wallet friendly names.
package normalize

import (
	"strings"
	"sync"

	"github.com/vietddude/txsync/internal/core/domain"
)

// prefixLen is how much of an address the loose match compares.
const prefixLen = 10

// AddressMap resolves raw addresses to friendly names.
type AddressMap struct {
	mu          sync.RWMutex
	names       map[string]string
	prefixMatch bool
}

// NewAddressMap creates a map from address -> name. With prefixMatch the
// first ten characters are compared when exact lookups miss.
func NewAddressMap(names map[string]string, prefixMatch bool) *AddressMap {
	m := &AddressMap{names: make(map[string]string, len(names)*2), prefixMatch: prefixMatch}
	for addr, name := range names {
		m.Add(addr, name)
	}
	return m
}

// Add registers an address.
func (m *AddressMap) Add(address, name string) {
	address = strings.TrimSpace(address)
	if address == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[address] = name
	m.names[strings.ToLower(address)] = name
}

// Size returns the number of lookup keys.
func (m *AddressMap) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.names)
}

// Lookup returns the friendly name for address.
func (m *AddressMap) Lookup(address string) (string, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name, ok := m.names[address]; ok {
		return name, true
	}
	if name, ok := m.names[strings.ToLower(address)]; ok {
		return name, true
	}
	if !m.prefixMatch || len(address) <= prefixLen {
		return "", false
	}
	// Map iteration order is random; pick the lexically smallest key so a
	// collision resolves the same way every run.
	var best, bestKey string
	for key, name := range m.names {
		if len(key) < prefixLen || !strings.EqualFold(key[:prefixLen], address[:prefixLen]) {
			continue
		}
		if bestKey == "" || key < bestKey {
			best, bestKey = name, key
		}
	}
	return best, bestKey != ""
}

// Normalize rewrites Platform for transactions whose platform is a known
// address. Only Platform changes; From and To stay raw.
func Normalize(txs []domain.Transaction, m *AddressMap) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		if m != nil {
			if name, ok := m.Lookup(tx.Platform); ok {
				tx.Platform = name
			}
		}
		out[i] = tx
	}
	return out
}
