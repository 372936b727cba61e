package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const codeDuplicateCall = -32010

// ErrAlreadyQueued is returned when the node already holds a verdict for the
// swap in its pool.
var ErrAlreadyQueued = errors.New("verifier: verdict already queued")

// Pending is one swap awaiting an off-chain verdict.
type Pending struct {
	SwapID      uint64 `json:"swapId"`
	TronAddress string `json:"tronAddress"`
	Expected    struct {
		Raw     string `json:"raw"`
		Decimal string `json:"decimal"`
	} `json:"expected"`
	TxHash    string `json:"txHash"`
	Deadline  uint64 `json:"deadline"`
	CreatedAt uint64 `json:"createdAt"`
}

// Verdict is the outcome submitted for a swap.
type Verdict struct {
	SwapID   uint64 `json:"swapId"`
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}

// Node is the subset of the node RPC used by the worker.
type Node interface {
	PendingVerifications(ctx context.Context, limit int) ([]Pending, error)
	SubmitVerification(ctx context.Context, jobID string, v Verdict) error
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// NodeClient talks JSON-RPC to dustd and authenticates oracle calls with a
// short lived HS256 token it signs itself.
type NodeClient struct {
	url    string
	auth   AuthConfig
	secret []byte
	http   *http.Client
	nextID atomic.Uint64
	nowFn  func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewNodeClient constructs a client for the node at url.
func NewNodeClient(url string, auth AuthConfig, client *http.Client) (*NodeClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(url), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("node url required")
	}
	secret := auth.Secret()
	if secret == "" {
		return nil, fmt.Errorf("auth secret required")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &NodeClient{
		url:    trimmed,
		auth:   auth,
		secret: []byte(secret),
		http:   client,
		nowFn:  time.Now,
	}, nil
}

// PendingVerifications lists swaps awaiting a verdict, oldest first.
func (c *NodeClient) PendingVerifications(ctx context.Context, limit int) ([]Pending, error) {
	var out []Pending
	if err := c.call(ctx, "", "swap_pendingVerifications", map[string]int{"limit": limit}, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitVerification queues v on the node.
func (c *NodeClient) SubmitVerification(ctx context.Context, jobID string, v Verdict) error {
	err := c.call(ctx, jobID, "oracle_submitVerification", v, true, nil)
	var rpcErr *rpcError
	if errors.As(err, &rpcErr) && rpcErr.Code == codeDuplicateCall {
		return ErrAlreadyQueued
	}
	return err
}

func (c *NodeClient) call(ctx context.Context, requestID, method string, params interface{}, authed bool, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  []interface{}{params},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	if authed {
		token, err := c.bearer()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	var decoded rpcResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("%s: status %d: decode response: %w", method, resp.StatusCode, err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// bearer returns a cached token, minting a new one a minute before expiry.
func (c *NodeClient) bearer() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFn()
	if c.token != "" && now.Add(time.Minute).Before(c.expires) {
		return c.token, nil
	}
	ttl := c.auth.TokenTTL.Duration
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	expires := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":   c.auth.Subject,
		"iat":   now.Unix(),
		"exp":   expires.Unix(),
		"jti":   uuid.NewString(),
		"scope": "oracle",
	}
	if iss := strings.TrimSpace(c.auth.Issuer); iss != "" {
		claims["iss"] = iss
	}
	if aud := strings.TrimSpace(c.auth.Audience); aud != "" {
		claims["aud"] = aud
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	c.token, c.expires = signed, expires
	return signed, nil
}
