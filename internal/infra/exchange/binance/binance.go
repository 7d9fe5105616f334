// Package binance maps Binance spot wallet, P2P and Pay history.
package binance

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
	DefaultBaseURL = "https://api.binance.com"
	recvWindow     = "60000"

	depositSuccess    = 1
	withdrawCompleted = 6
)

// Signer signs requests with HMAC-SHA256 over the encoded query string.
type Signer struct {
	Key    string
	Secret string
	Now    func() time.Time
}

func (s Signer) Sign(req *http.Request, _ []byte) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	q := req.URL.Query()
	q.Set("timestamp", source.Millis(now()))
	q.Set("recvWindow", recvWindow)
	raw := q.Encode()

	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write([]byte(raw))
	req.URL.RawQuery = raw + "&signature=" + hex.EncodeToString(mac.Sum(nil))
	req.Header.Set("X-MBX-APIKEY", s.Key)
	return nil
}

// Venue returns the Binance feed definitions.
func Venue() exchange.Venue {
	return exchange.Venue{
		Kind:  "binance",
		Probe: probe,
		Feeds: []exchange.Feed{
			{Name: "deposits", Label: "D", Fetch: fetchDeposits},
			{Name: "withdrawals", Label: "W", Fetch: fetchWithdrawals},
			{Name: "p2p", Label: "P2P", Fetch: fetchP2P},
			{Name: "pay", Label: "Pay", Fetch: fetchPay},
		},
	}
}

func probe(ctx context.Context, c rpc.Executor, acct *exchange.Account) error {
	result, err := c.Execute(ctx, rpc.NewRESTOperation("account", "/api/v3/account", url.Values{"omitZeroBalances": {"true"}}))
	if err != nil {
		return err
	}
	account, ok := result.(map[string]any)
	if !ok {
		return fmt.Errorf("invalid account response %T", result)
	}
	if acct.UID == "" {
		acct.UID = source.String(account, "uid")
	}
	return nil
}

func windowQuery(w exchange.Window) url.Values {
	return url.Values{
		"startTime": {source.Millis(w.Since)},
		"endTime":   {source.Millis(w.Until)},
	}
}

func fetchDeposits(ctx context.Context, c rpc.Executor, acct exchange.Account, w exchange.Window) ([]domain.Transaction, error) {
	result, err := c.Execute(ctx, rpc.NewRESTOperation("deposits", "/sapi/v1/capital/deposit/hisrec", windowQuery(w)))
	if err != nil {
		return nil, err
	}
	items, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid deposit history response %T", result)
	}

	txs := make([]domain.Transaction, 0, len(items))
	for i, item := range items {
		d, ok := item.(map[string]any)
		if !ok {
			slog.Warn("skipping invalid deposit", "account", acct.Name, "index", i)
			continue
		}
		amount, err := source.Decimal(d, "amount")
		if err != nil {
			slog.Warn("skipping deposit without amount", "account", acct.Name, "index", i, "error", err)
			continue
		}
		status, _ := source.Int(d, "status")
		txs = append(txs, domain.Transaction{
			Type:      domain.TxTypeDeposit,
			Asset:     strings.ToUpper(source.String(d, "coin")),
			Amount:    amount,
			Timestamp: source.Time(d, "completeTime", "insertTime"),
			From:      orDefault(source.String(d, "address"), domain.CounterpartyExternal),
			To:        acct.Name,
			TxID:      source.String(d, "txId", "id"),
			Status:    depositStatus(status),
			Network:   source.String(d, "network"),
		})
	}
	return txs, nil
}

func depositStatus(code int64) domain.TxStatus {
	switch code {
	case depositSuccess:
		return domain.TxStatusCompleted
	case 0, 6, 7, 8:
		return domain.TxStatusPending
	}
	return domain.TxStatusFailed
}

func fetchWithdrawals(ctx context.Context, c rpc.Executor, acct exchange.Account, w exchange.Window) ([]domain.Transaction, error) {
	result, err := c.Execute(ctx, rpc.NewRESTOperation("withdrawals", "/sapi/v1/capital/withdraw/history", windowQuery(w)))
	if err != nil {
		return nil, err
	}
	items, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid withdraw history response %T", result)
	}

	txs := make([]domain.Transaction, 0, len(items))
	for i, item := range items {
		d, ok := item.(map[string]any)
		if !ok {
			slog.Warn("skipping invalid withdrawal", "account", acct.Name, "index", i)
			continue
		}
		amount, err := source.Decimal(d, "amount")
		if err != nil {
			slog.Warn("skipping withdrawal without amount", "account", acct.Name, "index", i, "error", err)
			continue
		}
		status, _ := source.Int(d, "status")
		txStatus := domain.TxStatusPending
		switch {
		case status == withdrawCompleted:
			txStatus = domain.TxStatusCompleted
		case status == 1 || status == 3 || status == 5:
			txStatus = domain.TxStatusFailed
		}
		txs = append(txs, domain.Transaction{
			Type:      domain.TxTypeWithdrawal,
			Asset:     strings.ToUpper(source.String(d, "coin")),
			Amount:    amount,
			Timestamp: withdrawTime(d),
			From:      acct.Name,
			To:        orDefault(source.String(d, "address"), domain.CounterpartyExternal),
			TxID:      source.String(d, "txId", "id"),
			Status:    txStatus,
			Network:   source.String(d, "network"),
		})
	}
	return txs, nil
}

// withdrawTime prefers the completion time. Binance reports both as
// "2006-01-02 15:04:05" strings in UTC.
func withdrawTime(d map[string]any) time.Time {
	for _, k := range []string{"completeTime", "applyTime"} {
		if t, err := time.Parse(time.DateTime, source.String(d, k)); err == nil {
			return t.UTC()
		}
	}
	return source.Time(d, "completeTime", "applyTime")
}

func fetchP2P(ctx context.Context, c rpc.Executor, acct exchange.Account, w exchange.Window) ([]domain.Transaction, error) {
	q := url.Values{
		"startTimestamp": {source.Millis(w.Since)},
		"endTimestamp":   {source.Millis(w.Until)},
		"rows":           {"100"},
	}
	result, err := c.Execute(ctx, rpc.NewRESTOperation("p2p", "/sapi/v1/c2c/orderMatch/listUserOrderHistory", q))
	if err != nil {
		return nil, err
	}
	items, err := envelopeData(result)
	if err != nil {
		return nil, fmt.Errorf("p2p history: %w", err)
	}

	txs := make([]domain.Transaction, 0, len(items))
	for i, item := range items {
		o, ok := item.(map[string]any)
		if !ok {
			continue
		}
		amount, err := source.Decimal(o, "amount")
		if err != nil {
			slog.Warn("skipping p2p order without amount", "account", acct.Name, "index", i, "error", err)
			continue
		}
		counterparty := orDefault(source.String(o, "counterPartNickName"), "P2P User")

		tx := domain.Transaction{
			Asset:     strings.ToUpper(source.String(o, "asset")),
			Amount:    amount,
			Timestamp: source.Time(o, "createTime"),
			TxID:      "P2P_" + source.String(o, "orderNumber"),
			Status:    domain.TxStatusPending,
			Network:   "P2P",
		}
		if strings.EqualFold(source.String(o, "orderStatus"), "COMPLETED") {
			tx.Status = domain.TxStatusCompleted
		}
		switch strings.ToUpper(source.String(o, "tradeType")) {
		case "BUY":
			tx.Type, tx.From, tx.To = domain.TxTypeDeposit, counterparty, acct.Name
		case "SELL":
			tx.Type, tx.From, tx.To = domain.TxTypeWithdrawal, acct.Name, counterparty
		default:
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func fetchPay(ctx context.Context, c rpc.Executor, acct exchange.Account, w exchange.Window) ([]domain.Transaction, error) {
	q := windowQuery(w)
	q.Set("limit", "100")
	result, err := c.Execute(ctx, rpc.NewRESTOperation("pay", "/sapi/v1/pay/transactions", q))
	if err != nil {
		return nil, err
	}
	items, err := envelopeData(result)
	if err != nil {
		return nil, fmt.Errorf("pay history: %w", err)
	}

	txs := make([]domain.Transaction, 0, len(items))
	for i, item := range items {
		p, ok := item.(map[string]any)
		if !ok {
			continue
		}
		signed, err := source.Decimal(p, "amount")
		if err != nil {
			slog.Warn("skipping pay transaction without amount", "account", acct.Name, "index", i, "error", err)
			continue
		}

		payer := source.Object(p, "payerInfo")
		receiver := source.Object(p, "receiverInfo")
		txType := payDirection(acct.UID, payer, receiver, signed.IsNegative())

		tx := domain.Transaction{
			Type:      txType,
			Asset:     strings.ToUpper(source.String(p, "currency")),
			Amount:    signed.Abs(),
			Timestamp: source.Time(p, "transactionTime"),
			TxID:      "PAY_" + source.String(p, "transactionId"),
			Status:    domain.TxStatusCompleted,
			Network:   "Binance Pay",
		}
		if txType == domain.TxTypeWithdrawal {
			tx.From, tx.To = acct.Name, counterpartyName(receiver)
		} else {
			tx.From, tx.To = counterpartyName(payer), acct.Name
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// payDirection compares the account's own id with the payer and receiver
// ids. When exactly one side matches, that side wins. Otherwise the sign
// of the amount decides.
func payDirection(uid string, payer, receiver map[string]any, negative bool) domain.TxType {
	isPayer := uid != "" && source.String(payer, "binanceId", "accountId") == uid
	isReceiver := uid != "" && source.String(receiver, "binanceId", "accountId") == uid

	switch {
	case isPayer && !isReceiver:
		return domain.TxTypeWithdrawal
	case isReceiver && !isPayer:
		return domain.TxTypeDeposit
	case negative:
		return domain.TxTypeWithdrawal
	}
	return domain.TxTypeDeposit
}

func counterpartyName(info map[string]any) string {
	return orDefault(source.String(info, "name", "binanceId", "email"), "Binance Pay User")
}

// envelopeData unwraps {"code":"000000","data":[...]} answers.
func envelopeData(result any) ([]any, error) {
	body, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid response %T", result)
	}
	if code := source.String(body, "code"); code != "" && code != "000000" {
		return nil, fmt.Errorf("api code %s: %s", code, source.String(body, "message", "msg"))
	}
	return source.List(body, "data"), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// New builds the adapter for one Binance account.
func New(cfg exchange.Config, opts exchange.ClientOptions) *exchange.Adapter {
	base := orDefault(cfg.BaseURL, DefaultBaseURL)
	client := exchange.NewClient("binance", base, Signer{Key: cfg.Key, Secret: cfg.Secret}, opts)
	hasCredentials := cfg.Key != "" && cfg.Secret != ""
	return exchange.NewAdapter(Venue().SelectFeeds(cfg.Feeds), exchange.Account{Name: cfg.Name, UID: cfg.UID}, client, hasCredentials)
}
