package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// nanoShift converts between on-chain integer nano-units and decimal token
// amounts.
const nanoShift = -9

// Client implements ports.ChainClient against a toncenter-style HTTP API.
// The API is treated as unreliable; every error is classified so callers
// can retry transient failures through the retry combinator.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a chain API client with an explicit request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type apiEnvelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// GetBalance fetches the confirmed balance of an address.
func (c *Client) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	q := url.Values{"address": {address}}
	raw, err := c.get(ctx, "/getAddressBalance", q)
	if err != nil {
		return decimal.Zero, err
	}

	var nano string
	if err := json.Unmarshal(raw, &nano); err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("decode balance: %w", err))
	}
	units, err := decimal.NewFromString(nano)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("parse balance %q: %w", nano, err))
	}
	return units.Shift(nanoShift), nil
}

type apiTransaction struct {
	TransactionID struct {
		Hash string `json:"hash"`
	} `json:"transaction_id"`
	UTime int64 `json:"utime"`
	InMsg struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
		Value       string `json:"value"`
		Message     string `json:"message"`
	} `json:"in_msg"`
}

// GetTransactions fetches recent inbound transfers for an address.
func (c *Client) GetTransactions(ctx context.Context, address string, limit int) ([]ports.ChainTransfer, error) {
	q := url.Values{
		"address": {address},
		"limit":   {strconv.Itoa(limit)},
	}
	raw, err := c.get(ctx, "/getTransactions", q)
	if err != nil {
		return nil, err
	}

	var txs []apiTransaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decode transactions: %w", err))
	}

	transfers := make([]ports.ChainTransfer, 0, len(txs))
	for _, tx := range txs {
		value, err := decimal.NewFromString(tx.InMsg.Value)
		if err != nil {
			c.log.Warn().Str("hash", tx.TransactionID.Hash).Str("value", tx.InMsg.Value).Msg("skipping transfer with unparseable value")
			continue
		}
		transfers = append(transfers, ports.ChainTransfer{
			Hash:        tx.TransactionID.Hash,
			FromAddress: tx.InMsg.Source,
			ToAddress:   tx.InMsg.Destination,
			Amount:      value.Shift(nanoShift),
			Memo:        tx.InMsg.Message,
			Timestamp:   time.Unix(tx.UTime, 0).UTC(),
		})
	}
	return transfers, nil
}

type submitRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    string `json:"amount"` // nano units
	DedupeKey string `json:"dedupe_key"`
}

type submitResult struct {
	Hash string `json:"hash"`
}

// SubmitTransfer submits an outgoing transfer and returns the chain hash.
// The dedupe key travels with the request so the gateway can drop
// duplicate submissions of the same withdrawal.
func (c *Client) SubmitTransfer(ctx context.Context, sub ports.TransferSubmission) (string, error) {
	body, err := json.Marshal(submitRequest{
		From:      sub.FromAddress,
		To:        sub.ToAddress,
		Amount:    sub.Amount.Shift(-nanoShift).String(),
		DedupeKey: sub.DedupeKey,
	})
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("marshal transfer: %w", err))
	}

	raw, err := c.post(ctx, "/sendTransfer", body)
	if err != nil {
		return "", err
	}

	var result submitResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", apperror.InternalError(fmt.Errorf("decode transfer result: %w", err))
	}
	if result.Hash == "" {
		return "", apperror.ErrNetwork(fmt.Errorf("transfer accepted without hash"))
	}
	return result.Hash, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build request: %w", err))
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, apperror.ErrTimeout(err)
		}
		return nil, apperror.ErrNetwork(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, apperror.ErrNetwork(fmt.Errorf("chain api status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.InternalError(fmt.Errorf("chain api status %d", resp.StatusCode))
	}

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, apperror.ErrNetwork(fmt.Errorf("decode chain response: %w", err))
	}
	if !env.OK {
		return nil, apperror.ErrNetwork(fmt.Errorf("chain api error: %s", env.Error))
	}
	return env.Result, nil
}
