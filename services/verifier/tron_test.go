package verifier

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dustchain/crypto"
)

const usdtContract = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"

func recipient(t *testing.T) crypto.TronAddress {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return crypto.TronAddress(key.PubKey().Address().Raw())
}

func tronServer(t *testing.T, apiKey string, events map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey != "" && r.Header.Get("TRON-PRO-API-KEY") != apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/transactions/"), "/events")
		body, ok := events[id]
		if !ok {
			body = `{"data":[],"success":true}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func transferBody(contract, to string, value string) string {
	return fmt.Sprintf(`{"success":true,"data":[{"contract_address":%q,"event_name":"Transfer","block_number":10,"transaction_id":"abc","result":{"from":"0x0000000000000000000000000000000000000001","to":%q,"value":%q}}]}`,
		contract, to, value)
}

func TestTronClientConfirm(t *testing.T) {
	to := recipient(t)
	toHex := "0x" + hex.EncodeToString(to[:])
	other := recipient(t)
	srv := tronServer(t, "key-1", map[string]string{
		"aa01": transferBody(usdtContract, toHex, "10000000"),
		"aa02": transferBody(usdtContract, toHex, "9999999"),
		"aa03": transferBody(other.String(), toHex, "10000000"),
		"aa04": transferBody(usdtContract, "41"+hex.EncodeToString(to[:]), "10000000"),
		"aa05": transferBody(usdtContract, to.String(), "10000000"),
	})
	client, err := NewTronClient(TronConfig{Endpoint: srv.URL, APIKey: "key-1", USDTContract: usdtContract}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	amount := big.NewInt(10_000_000)
	ctx := context.Background()

	for _, id := range []string{"0xAA01", "aa04", "aa05"} {
		if err := client.Confirm(ctx, id, to, amount); err != nil {
			t.Fatalf("confirm %s: %v", id, err)
		}
	}
	for _, id := range []string{"aa02", "aa03"} {
		if err := client.Confirm(ctx, id, to, amount); !errors.Is(err, ErrNoMatchingTransfer) {
			t.Fatalf("confirm %s: expected no matching transfer, got %v", id, err)
		}
	}
	if err := client.Confirm(ctx, "aa01", other, amount); !errors.Is(err, ErrNoMatchingTransfer) {
		t.Fatalf("expected recipient mismatch, got %v", err)
	}
	if err := client.Confirm(ctx, "ffff", to, amount); !errors.Is(err, ErrTxNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTronClientSurfacesHTTPErrors(t *testing.T) {
	srv := tronServer(t, "expected-key", nil)
	client, err := NewTronClient(TronConfig{Endpoint: srv.URL, APIKey: "wrong", USDTContract: usdtContract}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	err = client.Confirm(context.Background(), "aa01", recipient(t), big.NewInt(1))
	if err == nil || errors.Is(err, ErrNoMatchingTransfer) || errors.Is(err, ErrTxNotFound) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
