package rpc

import (
	"errors"
	"net/http"

	"dustchain/native/swap"
)

const maxPendingPage = 100

func swapResult(s *swap.Swap) SwapResult {
	return SwapResult{
		ID:                   s.ID,
		MakerID:              s.MakerID,
		Maker:                accountString(s.Maker),
		User:                 accountString(s.User),
		Dust:                 dustAmount(s.DustAmount),
		Usdt:                 usdtAmount(s.UsdtAmount),
		TronAddress:          tronString(s.TronAddress),
		Price:                s.PriceSnapshot.String(),
		Status:               swap.Status(s.Status).String(),
		TxHash:               string(s.TxHash),
		CreatedAt:            s.CreatedAt,
		TimeoutAt:            s.TimeoutAt,
		VerificationDeadline: s.VerificationDeadline,
		ClosedAt:             s.ClosedAt,
		FailureReason:        string(s.FailureReason),
	}
}

func archivedSwapResult(a *swap.ArchiveL1) SwapResult {
	return SwapResult{
		ID:        a.ID,
		MakerID:   a.MakerID,
		User:      accountString(a.User),
		Dust:      dustAmount(a.DustAmount),
		Usdt:      usdtAmount(a.UsdtAmount),
		Status:    swap.Status(a.Status).String(),
		CreatedAt: a.CreatedAt,
		ClosedAt:  a.ClosedAt,
		Archived:  true,
	}
}

// handleSwapGet returns a live swap, falling back to its first-level archive.
func (s *Server) handleSwapGet(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params struct {
		ID uint64 `json:"id"`
	}
	if rpcErr := param(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	var (
		result SwapResult
		found  bool
	)
	err := s.rt.View(func() error {
		live, err := s.rt.Swap().Swap(params.ID)
		if err == nil {
			result, found = swapResult(live), true
			return nil
		}
		if !errors.Is(err, swap.ErrSwapNotFound) {
			return err
		}
		archived, ok, err := s.rt.Swap().ArchivedL1(params.ID)
		if err != nil || !ok {
			return err
		}
		result, found = archivedSwapResult(archived), true
		return nil
	})
	if err != nil {
		return nil, serverError("failed to load swap", err)
	}
	if !found {
		return nil, notFound("swap not found")
	}
	return result, nil
}

// handlePendingVerifications lists swaps awaiting an off-chain verdict, oldest
// first.
func (s *Server) handlePendingVerifications(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	params := struct {
		Limit int `json:"limit"`
	}{Limit: maxPendingPage}
	if len(req.Params) > 0 {
		if rpcErr := param(req, &params); rpcErr != nil {
			return nil, rpcErr
		}
	}
	if params.Limit <= 0 || params.Limit > maxPendingPage {
		params.Limit = maxPendingPage
	}
	var pending []*swap.VerificationRequest
	if err := s.rt.View(func() error {
		var err error
		pending, err = s.rt.Swap().PendingVerifications(params.Limit)
		return err
	}); err != nil {
		return nil, serverError("failed to list verifications", err)
	}
	out := make([]VerificationResult, 0, len(pending))
	for _, v := range pending {
		out = append(out, VerificationResult{
			SwapID:      v.SwapID,
			TronAddress: tronString(v.TronAddress),
			Expected:    usdtAmount(v.ExpectedAmount),
			TxHash:      string(v.TxHash),
			Deadline:    v.Deadline,
			CreatedAt:   v.CreatedAt,
		})
	}
	return out, nil
}
