package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"dustchain/core/chain"
	"dustchain/core/runtime"
	"dustchain/core/types"
	"dustchain/crypto"
	"dustchain/native/common"
)

func poolError(err error) *RPCError {
	switch {
	case errors.Is(err, chain.ErrDuplicate):
		return newError(http.StatusConflict, codeDuplicateCall, "call has already been submitted", nil)
	case errors.Is(err, chain.ErrPoolFull):
		return newError(http.StatusServiceUnavailable, codeServerError, "call pool full", nil)
	default:
		return callError(err)
	}
}

// handleSubmitCall queues a secp256k1-signed call envelope.
func (s *Server) handleSubmitCall(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var call types.Call
	if rpcErr := param(req, &call); rpcErr != nil {
		return nil, rpcErr
	}
	if strings.TrimSpace(call.Name) == "" {
		return nil, invalidParams("call name required", nil)
	}
	if !call.Signed() {
		return nil, invalidParams("call must be signed", nil)
	}
	from, err := call.From()
	if err != nil {
		return nil, invalidParams("invalid call signature", err)
	}
	var nonce uint64
	if err := s.rt.View(func() error {
		var viewErr error
		nonce, viewErr = s.rt.Bank().Nonce(from)
		return viewErr
	}); err != nil {
		return nil, serverError("failed to load sender nonce", err)
	}
	if call.Nonce < nonce {
		return nil, invalidParams("nonce has already been used", nil)
	}
	key, err := s.pool.Add(&call)
	if err != nil {
		return nil, poolError(err)
	}
	return SubmitResult{Key: key, RequestID: uuid.NewString()}, nil
}

// handleOracleSubmitVerification queues an off-chain verification verdict as
// an unsigned call.
func (s *Server) handleOracleSubmitVerification(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params struct {
		SwapID   uint64 `json:"swapId"`
		Verified bool   `json:"verified"`
		Reason   string `json:"reason"`
	}
	if rpcErr := param(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	args, err := runtime.EncodeArgs(params)
	if err != nil {
		return nil, serverError("failed to encode verification", err)
	}
	key, err := s.pool.Add(&types.Call{Name: "swap.ocw_submit_verification", Args: args})
	if err != nil {
		return nil, poolError(err)
	}
	return SubmitResult{Key: key, RequestID: uuid.NewString()}, nil
}

// handleOracleSetPrice applies a price update on behalf of the oracle account
// named by the token subject.
func (s *Server) handleOracleSetPrice(r *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	claims, authErr := s.auth.authorize(r, ScopeOracle)
	if authErr != nil {
		return nil, authErr
	}
	oracle, err := crypto.ParseAccount(claims.Subject)
	if err != nil {
		return nil, newError(http.StatusForbidden, codeForbidden, "token subject is not an oracle account", claims.Subject)
	}
	var params struct {
		Price runtime.Amount `json:"price"`
	}
	if rpcErr := param(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if params.Price.Int == nil || params.Price.Sign() <= 0 {
		return nil, invalidParams("price must be positive", nil)
	}
	args, err := runtime.EncodeArgs(params)
	if err != nil {
		return nil, serverError("failed to encode price", err)
	}
	if err := s.rt.Dispatch(common.Signed(oracle), "pricing.set_rate", args); err != nil {
		return nil, callError(err)
	}
	return map[string]string{"price": params.Price.String()}, nil
}

// handleAdminCall executes a privileged call with the committee origin for
// the supplied number of approvals.
func (s *Server) handleAdminCall(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params struct {
		Call      string          `json:"call"`
		Args      json.RawMessage `json:"args"`
		Approvals uint32          `json:"approvals"`
	}
	if rpcErr := param(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if strings.TrimSpace(params.Call) == "" {
		return nil, invalidParams("call required", nil)
	}
	if params.Approvals == 0 {
		return nil, invalidParams("approvals required", nil)
	}
	if err := s.rt.Dispatch(s.rt.CommitteeOrigin(params.Approvals), params.Call, params.Args); err != nil {
		return nil, callError(err)
	}
	return map[string]interface{}{"call": params.Call, "applied": true}, nil
}
