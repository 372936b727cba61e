package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"dustchain/core/types"
	"dustchain/crypto"
)

type stubNode struct {
	t       *testing.T
	methods []string
	auth    []string
	call    *types.Call
}

func (n *stubNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		n.t.Errorf("decode request: %v", err)
		return
	}
	n.methods = append(n.methods, req.Method)
	n.auth = append(n.auth, r.Header.Get("Authorization"))
	var result interface{}
	switch req.Method {
	case "dust_getBalance":
		result = map[string]interface{}{
			"address": "dust1test",
			"free":    map[string]string{"raw": "1500000000000", "decimal": "1.5"},
			"held":    map[string]string{"raw": "0", "decimal": "0"},
			"nonce":   4,
		}
	case "dust_submitCall":
		var call types.Call
		if err := json.Unmarshal(req.Params[0], &call); err != nil {
			n.t.Errorf("decode call: %v", err)
		}
		n.call = &call
		result = map[string]string{"key": "0xabc"}
	case "swap_get":
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"error":   map[string]interface{}{"code": -32004, "message": "swap not found"},
		})
		return
	default:
		result = map[string]string{"method": req.Method}
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": result})
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestBalancePrintsDecimals(t *testing.T) {
	node := &stubNode{t: t}
	srv := httptest.NewServer(node)
	defer srv.Close()

	code, out, errOut := runCLI(t, "--rpc", srv.URL, "balance", "dust1test")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Free:    1.5 DUST") || !strings.Contains(out, "Nonce:   4") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSwapGetReportsRPCError(t *testing.T) {
	node := &stubNode{t: t}
	srv := httptest.NewServer(node)
	defer srv.Close()

	code, _, errOut := runCLI(t, "--rpc", srv.URL, "swap", "get", "9")
	if code != 1 || !strings.Contains(errOut, "swap not found (code -32004)") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if code, _, _ := runCLI(t, "--rpc", srv.URL, "swap", "get", "x"); code != 1 {
		t.Fatalf("expected bad id to fail")
	}
}

func TestQueryForwardsToken(t *testing.T) {
	node := &stubNode{t: t}
	srv := httptest.NewServer(node)
	defer srv.Close()

	code, out, errOut := runCLI(t, "--rpc", srv.URL, "--token", "jwt", "query", "gov_proposal", `{"id":1}`)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, `"method": "gov_proposal"`) {
		t.Fatalf("unexpected output %q", out)
	}
	if node.auth[0] != "Bearer jwt" {
		t.Fatalf("token not forwarded: %q", node.auth[0])
	}
	if code, _, _ := runCLI(t, "--rpc", srv.URL, "query", "gov_proposal", "{"); code != 1 {
		t.Fatalf("expected invalid JSON to fail")
	}
}

func TestCallSignsWithNextNonce(t *testing.T) {
	t.Setenv(walletPassEnv, "correct horse")
	node := &stubNode{t: t}
	srv := httptest.NewServer(node)
	defer srv.Close()

	keystore := filepath.Join(t.TempDir(), "wallet.json")
	code, out, errOut := runCLI(t, "generate-key", keystore)
	if code != 0 {
		t.Fatalf("generate-key exit %d: %s", code, errOut)
	}
	addr := strings.TrimSpace(out)

	code, _, errOut = runCLI(t, "--rpc", srv.URL, "call", keystore, "swap.maker_swap", `{"makerId":1}`)
	if code != 0 {
		t.Fatalf("call exit %d: %s", code, errOut)
	}
	if len(node.methods) != 2 || node.methods[0] != "dust_getBalance" || node.methods[1] != "dust_submitCall" {
		t.Fatalf("unexpected rpc sequence %v", node.methods)
	}
	if node.call == nil || node.call.Name != "swap.maker_swap" || node.call.Nonce != 4 {
		t.Fatalf("unexpected call %+v", node.call)
	}
	from, err := node.call.From()
	if err != nil {
		t.Fatalf("recover signer: %v", err)
	}
	if crypto.AccountAddress(from).String() != addr {
		t.Fatalf("signed by %s, want %s", crypto.AccountAddress(from).String(), addr)
	}

	if code, _, _ := runCLI(t, "generate-key", keystore); code != 1 {
		t.Fatalf("expected existing keystore to be refused")
	}
}
