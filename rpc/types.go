package rpc

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"dustchain/crypto"
)

const (
	jsonRPCVersion = "2.0"
	dustDecimals   = 12
	usdtDecimals   = 6
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeForbidden      = -32003
	codeServerError    = -32000
	codeNotFound       = -32004
	codeDuplicateCall  = -32010
	codeRateLimited    = -32020
	codeCallFailed     = -32030
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`

	status int
}

func (e *RPCError) Error() string { return e.Message }

func newError(status, code int, message string, data interface{}) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data, status: status}
}

func invalidParams(message string, err error) *RPCError {
	var data interface{}
	if err != nil {
		data = err.Error()
	}
	return newError(http.StatusBadRequest, codeInvalidParams, message, data)
}

func serverError(message string, err error) *RPCError {
	return newError(http.StatusInternalServerError, codeServerError, message, err.Error())
}

func notFound(message string) *RPCError {
	return newError(http.StatusNotFound, codeNotFound, message, nil)
}

// Amount renders a base-unit value both raw and as a decimal token amount.
type Amount struct {
	Raw     string `json:"raw"`
	Decimal string `json:"decimal"`
}

func newAmount(v *big.Int, decimals int32) Amount {
	if v == nil {
		v = big.NewInt(0)
	}
	return Amount{Raw: v.String(), Decimal: decimal.NewFromBigInt(v, -decimals).String()}
}

func dustAmount(v *big.Int) Amount { return newAmount(v, dustDecimals) }
func usdtAmount(v *big.Int) Amount { return newAmount(v, usdtDecimals) }

func accountString(addr [20]byte) string { return crypto.AccountAddress(addr).String() }

func tronString(addr [20]byte) string { return crypto.TronAddress(addr).String() }

type BalanceResult struct {
	Address string `json:"address"`
	Free    Amount `json:"free"`
	Held    Amount `json:"held"`
	Nonce   uint64 `json:"nonce"`
}

type SwapResult struct {
	ID                   uint64 `json:"id"`
	MakerID              uint64 `json:"makerId"`
	Maker                string `json:"maker,omitempty"`
	User                 string `json:"user"`
	Dust                 Amount `json:"dust"`
	Usdt                 Amount `json:"usdt"`
	TronAddress          string `json:"tronAddress,omitempty"`
	Price                string `json:"price,omitempty"`
	Status               string `json:"status"`
	TxHash               string `json:"txHash,omitempty"`
	CreatedAt            uint64 `json:"createdAt"`
	TimeoutAt            uint64 `json:"timeoutAt,omitempty"`
	VerificationDeadline uint64 `json:"verificationDeadline,omitempty"`
	ClosedAt             uint64 `json:"closedAt,omitempty"`
	FailureReason        string `json:"failureReason,omitempty"`
	Archived             bool   `json:"archived,omitempty"`
}

type VerificationResult struct {
	SwapID      uint64 `json:"swapId"`
	TronAddress string `json:"tronAddress"`
	Expected    Amount `json:"expected"`
	TxHash      string `json:"txHash"`
	Deadline    uint64 `json:"deadline"`
	CreatedAt   uint64 `json:"createdAt"`
}

type EvidenceResult struct {
	ID          uint64 `json:"id"`
	Owner       string `json:"owner"`
	Domain      string `json:"domain"`
	TargetID    uint64 `json:"targetId"`
	CID         string `json:"cid,omitempty"`
	ContentType uint8  `json:"contentType"`
	Encrypted   bool   `json:"encrypted"`
	CommitHash  string `json:"commitHash,omitempty"`
	Namespace   string `json:"namespace,omitempty"`
	Status      string `json:"status"`
	Revision    uint32 `json:"revision"`
	Parent      uint64 `json:"parent,omitempty"`
	CreatedAt   uint64 `json:"createdAt"`
}

type AffiliateChainResult struct {
	Address  string   `json:"address"`
	Code     string   `json:"code,omitempty"`
	Sponsors []string `json:"sponsors"`
	Active   bool     `json:"active"`
}

type ProposalResult struct {
	ID             uint64   `json:"id"`
	Kind           string   `json:"kind"`
	Proposer       string   `json:"proposer"`
	Status         string   `json:"status"`
	Percents       []uint8  `json:"percents,omitempty"`
	Prices         []Amount `json:"prices,omitempty"`
	Major          bool     `json:"major"`
	VotingStart    uint64   `json:"votingStart"`
	VotingEnd      uint64   `json:"votingEnd"`
	EffectiveBlock uint64   `json:"effectiveBlock,omitempty"`
	Deposit        Amount   `json:"deposit"`
	Aye            Amount   `json:"aye"`
	Nay            Amount   `json:"nay"`
	Abstain        Amount   `json:"abstain"`
	Voters         uint64   `json:"voters"`
}

type SubmitResult struct {
	Key       string `json:"key"`
	RequestID string `json:"requestId"`
}

func trimDomain(s string) string { return strings.TrimRight(s, "_\x00") }
