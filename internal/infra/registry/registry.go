// Package registry assembles the tracked wallet list from configuration and
// an optional CSV export (a spreadsheet range published as CSV, or a file).
package registry

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/vietddude/txsync/internal/core/config"
	"github.com/vietddude/txsync/internal/core/domain"
)

// CSV columns, in order. The header row is optional.
const (
	colName = iota
	colAddress
	colType
	colAPIKey
	colStatus
)

// Loader reads wallets from every configured place.
type Loader struct {
	cfg    config.RegistryConfig
	inline []domain.Wallet
	client *http.Client
	log    *slog.Logger
}

// NewLoader creates a loader. Inline wallets come first; CSV rows with a
// name already seen are ignored.
func NewLoader(cfg config.RegistryConfig, inline []domain.Wallet) *Loader {
	return &Loader{
		cfg:    cfg,
		inline: inline,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    slog.Default().With("component", "registry"),
	}
}

// Load returns the active, resolvable wallets.
func (l *Loader) Load(ctx context.Context) ([]domain.Wallet, error) {
	candidates := append([]domain.Wallet(nil), l.inline...)

	var r io.ReadCloser
	switch {
	case l.cfg.Path != "":
		f, err := os.Open(l.cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open wallet registry: %w", err)
		}
		r = f
	case l.cfg.URL != "":
		body, err := l.download(ctx)
		if err != nil {
			return nil, err
		}
		r = body
	}
	if r != nil {
		defer r.Close()
		rows, err := ParseCSV(r)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, rows...)
	}

	return l.resolve(candidates), nil
}

func (l *Loader) download(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("wallet registry request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch wallet registry: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch wallet registry: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// resolve fills in missing chain types and drops what cannot be monitored.
func (l *Loader) resolve(candidates []domain.Wallet) []domain.Wallet {
	seen := make(map[string]bool, len(candidates))
	out := make([]domain.Wallet, 0, len(candidates))
	for _, w := range candidates {
		w.Name = strings.TrimSpace(w.Name)
		w.Address = strings.TrimSpace(w.Address)
		if w.Address == "" {
			continue
		}
		if seen[w.Name] {
			l.log.Warn("duplicate wallet name, keeping the first", "wallet", w.Name)
			continue
		}
		if !w.Active() {
			l.log.Info("skipping inactive wallet", "wallet", w.Name, "status", w.Status)
			continue
		}

		chain := domain.ParseChainType(string(w.Chain))
		if chain == "" {
			chain = domain.InferChainType(w.Name)
			if chain == "" {
				l.log.Warn("skipping wallet, cannot infer chain type", "wallet", w.Name, "type", w.Chain)
				continue
			}
			l.log.Debug("inferred chain type", "wallet", w.Name, "chain", chain)
		}
		w.Chain = chain
		seen[w.Name] = true
		out = append(out, w)
	}
	return out
}

// ParseCSV reads name,address,type,api_key,status rows. Short rows are
// padded; rows without an address are skipped later.
func ParseCSV(r io.Reader) ([]domain.Wallet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var wallets []domain.Wallet
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("wallet registry line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "name") {
			continue
		}
		for len(rec) <= colStatus {
			rec = append(rec, "")
		}
		wallets = append(wallets, domain.Wallet{
			Name:    rec[colName],
			Address: rec[colAddress],
			Chain:   domain.ChainType(rec[colType]),
			APIKey:  strings.TrimSpace(rec[colAPIKey]),
			Status:  rec[colStatus],
		})
	}
	return wallets, nil
}

// BuildAddressMap indexes wallets by address for friendly-name lookup.
func BuildAddressMap(wallets []domain.Wallet) map[string]string {
	m := make(map[string]string, len(wallets)*2)
	for _, w := range wallets {
		if w.Address == "" {
			continue
		}
		m[w.Address] = w.Name
		m[strings.ToLower(w.Address)] = w.Name
	}
	return m
}
