package verifier

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dustchain/crypto"
)

var (
	// ErrTxNotFound is returned while the TRON node has no events for a hash.
	// The swap is retried on the next poll.
	ErrTxNotFound = errors.New("verifier: transaction not found")
	// ErrNoMatchingTransfer is returned when the transaction exists but moves
	// no USDT to the expected address for the expected amount.
	ErrNoMatchingTransfer = errors.New("verifier: no matching transfer")
)

// TransferChecker confirms a TRC20 USDT transfer.
type TransferChecker interface {
	Confirm(ctx context.Context, txHash string, to crypto.TronAddress, amount *big.Int) error
}

// TronClient implements TransferChecker against the TronGrid event API.
type TronClient struct {
	endpoint      string
	apiKey        string
	contract      crypto.TronAddress
	onlyConfirmed bool
	http          *http.Client
}

// NewTronClient constructs a client for cfg.
func NewTronClient(cfg TronConfig, client *http.Client) (*TronClient, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("tron endpoint required")
	}
	contract, err := crypto.ParseTronAddress(cfg.USDTContract)
	if err != nil {
		return nil, fmt.Errorf("usdt contract: %w", err)
	}
	if client == nil {
		timeout := cfg.Timeout.Duration
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &TronClient{
		endpoint:      endpoint,
		apiKey:        cfg.Key(),
		contract:      contract,
		onlyConfirmed: cfg.OnlyConfirmed,
		http:          client,
	}, nil
}

type tronEvent struct {
	ContractAddress string            `json:"contract_address"`
	EventName       string            `json:"event_name"`
	BlockNumber     uint64            `json:"block_number"`
	TransactionID   string            `json:"transaction_id"`
	Result          map[string]string `json:"result"`
}

type tronEventsResponse struct {
	Data    []tronEvent `json:"data"`
	Success bool        `json:"success"`
	Error   string      `json:"error"`
}

// Confirm checks that txHash emitted a USDT Transfer of exactly amount to to.
func (c *TronClient) Confirm(ctx context.Context, txHash string, to crypto.TronAddress, amount *big.Int) error {
	if c == nil || c.http == nil {
		return fmt.Errorf("tron client not initialised")
	}
	id := normaliseTxID(txHash)
	if id == "" {
		return fmt.Errorf("%w: empty tx hash", ErrNoMatchingTransfer)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	evts, err := c.events(ctx, id)
	if err != nil {
		return err
	}
	if len(evts) == 0 {
		return ErrTxNotFound
	}
	for _, evt := range evts {
		if evt.EventName != "Transfer" {
			continue
		}
		contract, err := parseTronAny(evt.ContractAddress)
		if err != nil || contract != c.contract {
			continue
		}
		recipient, err := parseTronAny(evt.Result["to"])
		if err != nil || recipient != to {
			continue
		}
		value, ok := new(big.Int).SetString(strings.TrimSpace(evt.Result["value"]), 10)
		if ok && value.Cmp(amount) == 0 {
			return nil
		}
	}
	return fmt.Errorf("%w for %s", ErrNoMatchingTransfer, id)
}

func (c *TronClient) events(ctx context.Context, id string) ([]tronEvent, error) {
	u := fmt.Sprintf("%s/v1/transactions/%s/events", c.endpoint, url.PathEscape(id))
	if c.onlyConfirmed {
		u += "?only_confirmed=true"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("TRON-PRO-API-KEY", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrTxNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch events: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var decoded tronEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if !decoded.Success && decoded.Error != "" {
		return nil, fmt.Errorf("fetch events: %s", decoded.Error)
	}
	return decoded.Data, nil
}

func normaliseTxID(txHash string) string {
	trimmed := strings.ToLower(strings.TrimSpace(txHash))
	return strings.TrimPrefix(trimmed, "0x")
}

// parseTronAny accepts base58check, 0x-prefixed 20-byte hex and 41-prefixed
// 21-byte hex address encodings.
func parseTronAny(value string) (crypto.TronAddress, error) {
	var out crypto.TronAddress
	trimmed := strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(trimmed, "T"):
		return crypto.ParseTronAddress(trimmed)
	case strings.HasPrefix(trimmed, "0x"), strings.HasPrefix(trimmed, "0X"):
		trimmed = trimmed[2:]
	case len(trimmed) == 42 && strings.HasPrefix(trimmed, "41"):
		trimmed = trimmed[2:]
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) != len(out) {
		return out, crypto.ErrInvalidTronAddress
	}
	copy(out[:], decoded)
	return out, nil
}
