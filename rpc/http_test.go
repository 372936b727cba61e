package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dustchain/config"
	"dustchain/core/chain"
	"dustchain/core/runtime"
	"dustchain/core/state"
	"dustchain/core/types"
	"dustchain/crypto"
	"dustchain/storage"
)

const (
	testSecret = "rpc-test-secret"
	tronTarget = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

var oneDust = big.NewInt(1_000_000_000_000)

type testEnv struct {
	rt     *runtime.Runtime
	pool   *chain.Pool
	srv    *httptest.Server
	auth   config.RPCAuth
	maker  *crypto.PrivateKey
	user   *crypto.PrivateKey
	oracle *crypto.PrivateKey
}

func newKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

func addr(key *crypto.PrivateKey) [20]byte { return key.PubKey().Address().Raw() }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		auth:   config.RPCAuth{HMACSecret: testSecret},
		maker:  newKey(t),
		user:   newKey(t),
		oracle: newKey(t),
	}
	rt, err := runtime.New(state.NewManager(storage.NewMemDB()), runtime.Options{
		Global:                    config.DefaultGlobal(),
		Oracles:                   [][20]byte{addr(env.oracle)},
		AllowUnsignedVerification: true,
	})
	require.NoError(t, err)
	hundred := new(big.Int).Mul(big.NewInt(100), oneDust)
	require.NoError(t, rt.Genesis(runtime.BlockContext{Height: 1, Timestamp: 1_700_000_000}, map[[20]byte]*big.Int{
		addr(env.maker): hundred,
		addr(env.user):  new(big.Int).Set(hundred),
	}, config.Pauses{}, big.NewInt(1_000_000)))
	rt.OnInitialize(runtime.BlockContext{Height: 2, Timestamp: 1_700_000_006})
	env.rt = rt
	env.pool = chain.NewPool(rt, 16)
	server := NewServer(rt, env.pool, ServerOptions{
		Auth:      env.auth,
		RateLimit: config.RateLimit{PerSecond: 100, Burst: 100},
	})
	env.srv = httptest.NewServer(server.Router())
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) token(t *testing.T, subject string, scopes ...string) string {
	t.Helper()
	token, err := IssueToken(e.auth, subject, scopes, time.Minute)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, token, method string, params interface{}) (int, RPCResponse) {
	t.Helper()
	req := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)
	httpReq, err := http.NewRequest(http.MethodPost, e.srv.URL+"/", bytes.NewReader(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NotEmpty(t, resp.Header.Get(requestIDHeader))
	var out RPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (e *testEnv) apply(t *testing.T, key *crypto.PrivateKey, name string, args interface{}) {
	t.Helper()
	raw, err := runtime.EncodeArgs(args)
	require.NoError(t, err)
	nonce, err := e.rt.Bank().Nonce(addr(key))
	require.NoError(t, err)
	call := &types.Call{Name: name, Nonce: nonce, Args: raw}
	require.NoError(t, call.Sign(key.PrivateKey))
	require.NoError(t, e.rt.Apply(call))
}

func decodeResult(t *testing.T, resp RPCResponse, out interface{}) {
	t.Helper()
	require.Nil(t, resp.Error)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestUnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	status, resp := env.do(t, "", "dust_nope", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetBalance(t *testing.T) {
	env := newTestEnv(t)
	owner := crypto.AccountAddress(addr(env.user)).String()
	status, resp := env.do(t, "", "dust_getBalance", map[string]string{"address": owner})
	require.Equal(t, http.StatusOK, status)
	var balance BalanceResult
	decodeResult(t, resp, &balance)
	require.Equal(t, owner, balance.Address)
	require.Equal(t, "100000000000000", balance.Free.Raw)
	require.Equal(t, "100", balance.Free.Decimal)
	require.Equal(t, "0", balance.Held.Raw)
	require.Zero(t, balance.Nonce)

	status, resp = env.do(t, "", "dust_getBalance", map[string]string{"address": "not-an-account"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestSubmitCallRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	args, err := runtime.EncodeArgs(map[string]interface{}{"tronAddress": tronTarget, "deposit": "0"})
	require.NoError(t, err)
	call := &types.Call{Name: "maker.register", Nonce: 0, Args: args}
	require.NoError(t, call.Sign(env.maker.PrivateKey))

	status, resp := env.do(t, "", "dust_submitCall", call)
	require.Equal(t, http.StatusOK, status)
	var submitted SubmitResult
	decodeResult(t, resp, &submitted)
	hash, err := call.Hash()
	require.NoError(t, err)
	require.Equal(t, "0x"+hex.EncodeToString(hash), submitted.Key)
	require.NotEmpty(t, submitted.RequestID)
	require.Equal(t, 1, env.pool.Len())

	status, resp = env.do(t, "", "dust_submitCall", call)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, codeDuplicateCall, resp.Error.Code)
	require.Equal(t, 1, env.pool.Len())
}

func TestSubmitCallRequiresSignature(t *testing.T) {
	env := newTestEnv(t)
	status, resp := env.do(t, "", "dust_submitCall", map[string]interface{}{"name": "maker.register"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestOracleMethodsRequireScope(t *testing.T) {
	env := newTestEnv(t)
	params := map[string]interface{}{"swapId": 0, "verified": true}

	status, resp := env.do(t, "", "oracle_submitVerification", params)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	status, resp = env.do(t, "garbage", "oracle_submitVerification", params)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	status, resp = env.do(t, env.token(t, "reader", "read"), "oracle_submitVerification", params)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, codeForbidden, resp.Error.Code)

	other, err := IssueToken(config.RPCAuth{HMACSecret: "another-secret"}, "oracle", []string{ScopeOracle}, time.Minute)
	require.NoError(t, err)
	status, _ = env.do(t, other, "oracle_submitVerification", params)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestOracleSubmitVerification(t *testing.T) {
	env := newTestEnv(t)
	env.apply(t, env.maker, "maker.register", map[string]interface{}{"tronAddress": tronTarget, "deposit": "0"})
	env.apply(t, env.user, "swap.maker_swap", map[string]interface{}{
		"makerId":     1,
		"amount":      new(big.Int).Mul(big.NewInt(10), oneDust).String(),
		"tronAddress": tronTarget,
	})
	token := env.token(t, "verifier", ScopeOracle)
	params := map[string]interface{}{"swapId": 0, "verified": true}

	status, resp := env.do(t, token, "oracle_submitVerification", params)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeCallFailed, resp.Error.Code)
	require.Zero(t, env.pool.Len())

	env.apply(t, env.maker, "swap.mark_swap_complete", map[string]interface{}{"swapId": 0, "txHash": "0xABC123"})

	status, resp = env.do(t, "", "swap_pendingVerifications", nil)
	require.Equal(t, http.StatusOK, status)
	var pending []VerificationResult
	decodeResult(t, resp, &pending)
	require.Len(t, pending, 1)
	require.Equal(t, uint64(0), pending[0].SwapID)
	require.Equal(t, tronTarget, pending[0].TronAddress)

	status, resp = env.do(t, token, "oracle_submitVerification", params)
	require.Equal(t, http.StatusOK, status)
	var submitted SubmitResult
	decodeResult(t, resp, &submitted)
	require.Equal(t, runtime.UnsignedTag(0), submitted.Key)
	require.Equal(t, 1, env.pool.Len())

	status, _ = env.do(t, token, "oracle_submitVerification", params)
	require.Equal(t, http.StatusConflict, status)
}

func TestSwapGet(t *testing.T) {
	env := newTestEnv(t)
	status, resp := env.do(t, "", "swap_get", map[string]interface{}{"id": 0})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeNotFound, resp.Error.Code)

	env.apply(t, env.maker, "maker.register", map[string]interface{}{"tronAddress": tronTarget, "deposit": "0"})
	env.apply(t, env.user, "swap.maker_swap", map[string]interface{}{
		"makerId":     1,
		"amount":      new(big.Int).Mul(big.NewInt(10), oneDust).String(),
		"tronAddress": tronTarget,
	})
	status, resp = env.do(t, "", "swap_get", map[string]interface{}{"id": 0})
	require.Equal(t, http.StatusOK, status)
	var result SwapResult
	decodeResult(t, resp, &result)
	require.Equal(t, uint64(1), result.MakerID)
	require.Equal(t, "10", result.Dust.Decimal)
	require.False(t, result.Archived)
}

func TestOracleSetPrice(t *testing.T) {
	env := newTestEnv(t)
	stranger := crypto.AccountAddress(addr(env.user)).String()
	status, resp := env.do(t, env.token(t, stranger, ScopeOracle), "oracle_setPrice", map[string]string{"price": "2000000"})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, codeCallFailed, resp.Error.Code)

	oracle := crypto.AccountAddress(addr(env.oracle)).String()
	status, resp = env.do(t, env.token(t, oracle, ScopeOracle), "oracle_setPrice", map[string]string{"price": "2000000"})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	require.NoError(t, env.rt.View(func() error {
		st, err := env.rt.Prices().Status()
		require.NoError(t, err)
		require.Equal(t, int64(2_000_000), st.Price.Int64())
		return nil
	}))
}

func TestAdminCallUsesCommitteeThreshold(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "ops", ScopeAdmin)
	params := map[string]interface{}{
		"call":      "system.set_pause",
		"args":      map[string]interface{}{"module": "swap", "paused": true},
		"approvals": 1,
	}

	status, _ := env.do(t, env.token(t, "oracle", ScopeOracle), "admin_call", params)
	require.Equal(t, http.StatusForbidden, status)

	status, resp := env.do(t, token, "admin_call", params)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, codeCallFailed, resp.Error.Code)
	require.False(t, env.rt.Pauses().IsPaused("swap"))

	params["approvals"] = 2
	status, resp = env.do(t, token, "admin_call", params)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
	require.True(t, env.rt.Pauses().IsPaused("swap"))
}

func TestSubmitCallRateLimited(t *testing.T) {
	env := newTestEnv(t)
	server := NewServer(env.rt, env.pool, ServerOptions{RateLimit: config.RateLimit{PerSecond: 0.001, Burst: 1}})
	now := time.Now()
	require.True(t, server.allowSource("10.0.0.1", now))
	require.False(t, server.allowSource("10.0.0.1", now))
	require.True(t, server.allowSource("10.0.0.2", now))
	require.True(t, server.allowSource("10.0.0.1", now.Add(limiterIdleTTL+time.Second)))
}
