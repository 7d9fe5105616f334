// Package bitget maps Bitget v2 wallet records and futures account bills.
package bitget

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/exchange"
	"github.com/vietddude/txsync/internal/infra/rpc"
	"github.com/vietddude/txsync/internal/infra/source"
)

const (
	DefaultBaseURL = "https://api.bitget.com"
	successCode    = "00000"
	keyPrefix      = "bg_"
)

// Signer implements base64(HMAC_SHA256(timestamp + METHOD + path[?query] + body)).
type Signer struct {
	mu         sync.RWMutex
	key        string
	Secret     string
	Passphrase string
	Now        func() time.Time
}

func NewSigner(key, secret, passphrase string) *Signer {
	return &Signer{key: key, Secret: secret, Passphrase: passphrase}
}

// Key returns the API key currently in use.
func (s *Signer) Key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// StripKeyPrefix drops the "bg_" prefix some key exports carry.
// It reports whether the key changed.
func (s *Signer) StripKeyPrefix() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !strings.HasPrefix(s.key, keyPrefix) {
		return false
	}
	s.key = strings.TrimPrefix(s.key, keyPrefix)
	return true
}

func (s *Signer) Sign(req *http.Request, body []byte) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ts := source.Millis(now())

	path := req.URL.Path
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}

	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write([]byte(ts + strings.ToUpper(req.Method) + path + string(body)))

	req.Header.Set("ACCESS-KEY", s.Key())
	req.Header.Set("ACCESS-SIGN", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	req.Header.Set("ACCESS-TIMESTAMP", ts)
	req.Header.Set("ACCESS-PASSPHRASE", s.Passphrase)
	req.Header.Set("locale", "en-US")
	return nil
}

// Venue returns the Bitget feed definitions.
func Venue() exchange.Venue {
	return exchange.Venue{
		Kind:  "bitget",
		Probe: probe,
		Feeds: []exchange.Feed{
			{Name: "deposits", Label: "D", Fetch: fetchDeposits},
			{Name: "withdrawals", Label: "W", Fetch: fetchWithdrawals},
			{Name: "bills", Label: "Bill", Fetch: fetchBills},
		},
	}
}

// New builds the adapter for one Bitget account.
func New(cfg exchange.Config, opts exchange.ClientOptions) *exchange.Adapter {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	signer := NewSigner(cfg.Key, cfg.Secret, cfg.Passphrase)
	client := exchange.NewClient("bitget", base, signer, opts)
	hasCredentials := cfg.Key != "" && cfg.Secret != "" && cfg.Passphrase != ""

	venue := Venue().SelectFeeds(cfg.Feeds)
	venue.Probe = probeWithKeyFallback(signer)
	return exchange.NewAdapter(venue, exchange.Account{Name: cfg.Name, UID: cfg.UID}, client, hasCredentials)
}

// probeWithKeyFallback retries the connection test once without the "bg_"
// key prefix.
func probeWithKeyFallback(signer *Signer) exchange.ProbeFunc {
	return func(ctx context.Context, c rpc.Executor, acct *exchange.Account) error {
		err := probe(ctx, c, acct)
		if err == nil || !signer.StripKeyPrefix() {
			return err
		}
		slog.Info("retrying bitget connection without key prefix", "account", acct.Name)
		return probe(ctx, c, acct)
	}
}

// call executes op and unwraps {"code":"00000","data":...}.
func call(ctx context.Context, c rpc.Executor, op rpc.Operation) (any, error) {
	result, err := c.Execute(ctx, op)
	if err != nil {
		return nil, err
	}
	body, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid %s response %T", op.Name, result)
	}
	if code := source.String(body, "code"); code != successCode {
		return nil, fmt.Errorf("%s: code %s: %s", op.Name, code, source.String(body, "msg"))
	}
	return body["data"], nil
}

func probe(ctx context.Context, c rpc.Executor, _ *exchange.Account) error {
	_, err := call(ctx, c, rpc.NewRESTOperation("assets", "/api/v2/spot/account/assets", nil))
	return err
}

func windowQuery(w exchange.Window) url.Values {
	return url.Values{
		"startTime": {source.Millis(w.Since)},
		"endTime":   {source.Millis(w.Until)},
		"limit":     {"100"},
	}
}

func recordStatus(s string) domain.TxStatus {
	switch strings.ToLower(s) {
	case "success":
		return domain.TxStatusCompleted
	case "fail", "failed", "reject", "cancel":
		return domain.TxStatusFailed
	}
	return domain.TxStatusPending
}

func fetchDeposits(ctx context.Context, c rpc.Executor, acct exchange.Account, w exchange.Window) ([]domain.Transaction, error) {
	data, err := call(ctx, c, rpc.NewRESTOperation("deposits", "/api/v2/spot/wallet/deposit-records", windowQuery(w)))
	if err != nil {
		return nil, err
	}
	return mapRecords(data, acct, domain.TxTypeDeposit), nil
}

func fetchWithdrawals(ctx context.Context, c rpc.Executor, acct exchange.Account, w exchange.Window) ([]domain.Transaction, error) {
	data, err := call(ctx, c, rpc.NewRESTOperation("withdrawals", "/api/v2/spot/wallet/withdrawal-records", windowQuery(w)))
	if err != nil {
		return nil, err
	}
	return mapRecords(data, acct, domain.TxTypeWithdrawal), nil
}

func mapRecords(data any, acct exchange.Account, txType domain.TxType) []domain.Transaction {
	items, _ := data.([]any)
	txs := make([]domain.Transaction, 0, len(items))
	for i, item := range items {
		r, ok := item.(map[string]any)
		if !ok {
			continue
		}
		amount, err := source.Decimal(r, "size", "amount")
		if err != nil {
			slog.Warn("skipping invalid record", "venue", "bitget", "type", txType, "index", i, "error", err)
			continue
		}
		tx := domain.Transaction{
			Type:      txType,
			Asset:     strings.ToUpper(source.String(r, "coin")),
			Amount:    amount,
			Timestamp: source.Time(r, "uTime", "cTime"),
			TxID:      source.String(r, "tradeId", "orderId"),
			Status:    recordStatus(source.String(r, "status")),
			Network:   source.String(r, "chain"),
		}
		if txType == domain.TxTypeDeposit {
			tx.From = orDefault(source.String(r, "fromAddress"), domain.CounterpartyExternal)
			tx.To = acct.Name
		} else {
			tx.From = acct.Name
			tx.To = orDefault(source.String(r, "toAddress"), domain.CounterpartyExternal)
		}
		txs = append(txs, tx)
	}
	return txs
}

func fetchBills(ctx context.Context, c rpc.Executor, acct exchange.Account, w exchange.Window) ([]domain.Transaction, error) {
	q := windowQuery(w)
	q.Set("productType", "USDT-FUTURES")
	data, err := call(ctx, c, rpc.NewRESTOperation("bills", "/api/v2/mix/account/bill", q))
	if err != nil {
		return nil, err
	}

	bills := source.List(data, "bills")
	txs := make([]domain.Transaction, 0, len(bills))
	for _, item := range bills {
		b, ok := item.(map[string]any)
		if !ok {
			continue
		}
		signed, err := source.Decimal(b, "amount")
		if err != nil {
			continue
		}
		txType, ok := billDirection(source.String(b, "businessType"), signed.IsNegative())
		if !ok {
			continue
		}
		tx := domain.Transaction{
			Type:      txType,
			Asset:     strings.ToUpper(orDefault(source.String(b, "coin", "marginCoin"), "USDT")),
			Amount:    signed.Abs(),
			Timestamp: source.Time(b, "cTime"),
			TxID:      source.String(b, "billId"),
			Status:    domain.TxStatusCompleted,
			Network:   "Bitget Futures",
		}
		if txType == domain.TxTypeDeposit {
			tx.From, tx.To = "Bitget Spot", acct.Name
		} else {
			tx.From, tx.To = acct.Name, "Bitget Spot"
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// billDirection classifies futures account bills. Only transfers in and out
// of the account are ledger events; trading fees and PnL entries are skipped.
func billDirection(businessType string, negative bool) (domain.TxType, bool) {
	bt := strings.ToLower(businessType)
	switch {
	case strings.Contains(bt, "trans_from") || strings.Contains(bt, "transfer_in"):
		return domain.TxTypeDeposit, true
	case strings.Contains(bt, "trans_to") || strings.Contains(bt, "transfer_out") || strings.Contains(bt, "withdraw"):
		return domain.TxTypeWithdrawal, true
	case strings.Contains(bt, "transfer"):
		if negative {
			return domain.TxTypeWithdrawal, true
		}
		return domain.TxTypeDeposit, true
	}
	return "", false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
