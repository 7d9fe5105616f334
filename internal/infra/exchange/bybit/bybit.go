// Package bybit maps ByBit V5 asset history.
package bybit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/exchange"
	"github.com/vietddude/txsync/internal/infra/rpc"
	"github.com/vietddude/txsync/internal/infra/source"
)

const (
	DefaultBaseURL = "https://api.bybit.com"
	recvWindow     = "5000"

	// ByBit rejects history queries spanning more than 30 days.
	maxQueryWindow = 30 * 24 * time.Hour

	unifiedAccount = "UNIFIED"
)

// Signer implements the V5 HMAC scheme:
// hex(HMAC_SHA256(timestamp + key + recvWindow + query|body)).
type Signer struct {
	Key    string
	Secret string
	Now    func() time.Time
}

func (s Signer) Sign(req *http.Request, body []byte) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ts := source.Millis(now())

	payload := req.URL.RawQuery
	if req.Method != http.MethodGet {
		payload = string(body)
	}

	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write([]byte(ts + s.Key + recvWindow + payload))

	req.Header.Set("X-BAPI-API-KEY", s.Key)
	req.Header.Set("X-BAPI-SIGN", hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("X-BAPI-SIGN-TYPE", "2")
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
	return nil
}

// Venue returns the ByBit feed definitions.
func Venue() exchange.Venue {
	return exchange.Venue{
		Kind:  "bybit",
		Probe: probe,
		Feeds: []exchange.Feed{
			{Name: "deposits", Label: "D", Fetch: fetchDeposits},
			{Name: "internal_deposits", Label: "ID", Fetch: fetchInternalDeposits},
			{Name: "withdrawals", Label: "W", Fetch: fetchWithdrawals},
			{Name: "transfers", Label: "T", Fetch: fetchTransfers},
		},
	}
}

// New builds the adapter for one ByBit account.
func New(cfg exchange.Config, opts exchange.ClientOptions) *exchange.Adapter {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	client := exchange.NewClient("bybit", base, Signer{Key: cfg.Key, Secret: cfg.Secret}, opts)
	hasCredentials := cfg.Key != "" && cfg.Secret != ""
	return exchange.NewAdapter(Venue().SelectFeeds(cfg.Feeds), exchange.Account{Name: cfg.Name, UID: cfg.UID}, client, hasCredentials)
}

// call executes op and unwraps {"retCode":0,"result":{...}}.
func call(ctx context.Context, c rpc.Executor, op rpc.Operation) (map[string]any, error) {
	result, err := c.Execute(ctx, op)
	if err != nil {
		return nil, err
	}
	body, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid %s response %T", op.Name, result)
	}
	if code := source.String(body, "retCode"); code != "0" {
		return nil, fmt.Errorf("%s: retCode %s: %s", op.Name, code, source.String(body, "retMsg"))
	}
	return source.Object(body, "result"), nil
}

func probe(ctx context.Context, c rpc.Executor, _ *exchange.Account) error {
	_, err := call(ctx, c, rpc.NewRESTOperation("wallet-balance", "/v5/account/wallet-balance", url.Values{"accountType": {unifiedAccount}}))
	return err
}

func windowQuery(w exchange.Window) url.Values {
	start := w.Since
	if w.Until.Sub(start) > maxQueryWindow {
		start = w.Until.Add(-maxQueryWindow)
	}
	return url.Values{
		"startTime": {source.Millis(start)},
		"endTime":   {source.Millis(w.Until)},
		"limit":     {"50"},
	}
}

type rowMapper func(row map[string]any, acct exchange.Account) (domain.Transaction, bool)

func fetchRows(ctx context.Context, c rpc.Executor, acct exchange.Account, op rpc.Operation, listKey string, mapRow rowMapper) ([]domain.Transaction, error) {
	result, err := call(ctx, c, op)
	if err != nil {
		return nil, err
	}
	rows := source.List(result, listKey)
	txs := make([]domain.Transaction, 0, len(rows))
	for i, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		tx, ok := mapRow(row, acct)
		if !ok {
			slog.Warn("skipping invalid record", "venue", "bybit", "feed", op.Name, "index", i)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func fetchDeposits(ctx context.Context, c rpc.Executor, acct exchange.Account, w exchange.Window) ([]domain.Transaction, error) {
	op := rpc.NewRESTOperation("deposits", "/v5/asset/deposit/query-record", windowQuery(w))
	return fetchRows(ctx, c, acct, op, "rows", func(r map[string]any, acct exchange.Account) (domain.Transaction, bool) {
		amount, err := source.Decimal(r, "amount")
		if err != nil {
			return domain.Transaction{}, false
		}
		status, _ := source.Int(r, "status")
		return domain.Transaction{
			Type:      domain.TxTypeDeposit,
			Asset:     strings.ToUpper(source.String(r, "coin")),
			Amount:    amount,
			Timestamp: source.Time(r, "successAt"),
			From:      orDefault(source.String(r, "fromAddress"), domain.CounterpartyExternal),
			To:        acct.Name,
			TxID:      source.String(r, "txID", "id"),
			Status:    statusFromCode(status, 3),
			Network:   source.String(r, "chain"),
		}, true
	})
}

func fetchInternalDeposits(ctx context.Context, c rpc.Executor, acct exchange.Account, w exchange.Window) ([]domain.Transaction, error) {
	op := rpc.NewRESTOperation("internal_deposits", "/v5/asset/deposit/query-internal-record", windowQuery(w))
	return fetchRows(ctx, c, acct, op, "rows", func(r map[string]any, acct exchange.Account) (domain.Transaction, bool) {
		amount, err := source.Decimal(r, "amount")
		if err != nil {
			return domain.Transaction{}, false
		}
		status, _ := source.Int(r, "status")
		return domain.Transaction{
			Type:      domain.TxTypeDeposit,
			Asset:     strings.ToUpper(source.String(r, "coin")),
			Amount:    amount,
			Timestamp: source.Time(r, "createdTime"),
			From:      orDefault(source.String(r, "address"), domain.CounterpartyInternal),
			To:        acct.Name,
			TxID:      source.String(r, "txID", "id"),
			Status:    statusFromCode(status, 2),
			Network:   domain.CounterpartyInternal,
		}, true
	})
}

func fetchWithdrawals(ctx context.Context, c rpc.Executor, acct exchange.Account, w exchange.Window) ([]domain.Transaction, error) {
	op := rpc.NewRESTOperation("withdrawals", "/v5/asset/withdraw/query-record", windowQuery(w))
	return fetchRows(ctx, c, acct, op, "rows", func(r map[string]any, acct exchange.Account) (domain.Transaction, bool) {
		amount, err := source.Decimal(r, "amount")
		if err != nil {
			return domain.Transaction{}, false
		}
		status := domain.TxStatusPending
		switch strings.ToLower(source.String(r, "status")) {
		case "success":
			status = domain.TxStatusCompleted
		case "fail", "failed", "reject", "cancelbyuser":
			status = domain.TxStatusFailed
		}
		return domain.Transaction{
			Type:      domain.TxTypeWithdrawal,
			Asset:     strings.ToUpper(source.String(r, "coin")),
			Amount:    amount,
			Timestamp: source.Time(r, "updateTime", "createTime"),
			From:      acct.Name,
			To:        orDefault(source.String(r, "toAddress"), domain.CounterpartyExternal),
			TxID:      source.String(r, "txID", "withdrawId"),
			Status:    status,
			Network:   source.String(r, "chain"),
		}, true
	})
}

func fetchTransfers(ctx context.Context, c rpc.Executor, acct exchange.Account, w exchange.Window) ([]domain.Transaction, error) {
	op := rpc.NewRESTOperation("transfers", "/v5/asset/transfer/query-inter-transfer-list", windowQuery(w))
	return fetchRows(ctx, c, acct, op, "list", func(r map[string]any, acct exchange.Account) (domain.Transaction, bool) {
		amount, err := source.Decimal(r, "amount")
		if err != nil {
			return domain.Transaction{}, false
		}
		fromType, toType := source.String(r, "fromAccountType"), source.String(r, "toAccountType")

		tx := domain.Transaction{
			Type:      transferDirection(fromType, toType),
			Asset:     strings.ToUpper(orDefault(source.String(r, "coin"), "USDT")),
			Amount:    amount,
			Timestamp: source.Time(r, "timestamp"),
			From:      "ByBit " + orDefault(fromType, domain.CounterpartyInternal),
			To:        "ByBit " + orDefault(toType, domain.CounterpartyInternal),
			TxID:      source.String(r, "transferId"),
			Status:    domain.TxStatusPending,
			Network:   domain.CounterpartyInternal,
		}
		if strings.EqualFold(source.String(r, "status"), "SUCCESS") {
			tx.Status = domain.TxStatusCompleted
		}
		return tx, true
	})
}

// transferDirection treats money moving into the unified trading account as
// a deposit and money leaving it as a withdrawal. Moves between other
// account types count as deposits.
func transferDirection(fromType, toType string) domain.TxType {
	switch {
	case strings.EqualFold(toType, unifiedAccount):
		return domain.TxTypeDeposit
	case strings.EqualFold(fromType, unifiedAccount):
		return domain.TxTypeWithdrawal
	}
	return domain.TxTypeDeposit
}

func statusFromCode(code, success int64) domain.TxStatus {
	if code == success {
		return domain.TxStatusCompleted
	}
	return domain.TxStatusPending
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
