package rpc

import (
	"encoding/hex"
	"net/http"

	"dustchain/core/runtime"
	"dustchain/native/evidence"
	"dustchain/native/governance"
)

type accountParam struct {
	Address runtime.Account `json:"address"`
}

func (s *Server) handleGetBalance(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params accountParam
	if rpcErr := param(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr := [20]byte(params.Address)
	result := BalanceResult{Address: accountString(addr)}
	err := s.rt.View(func() error {
		acc, err := s.rt.Bank().Account(addr)
		if err != nil {
			return err
		}
		held, err := s.rt.Bank().TotalHeld(addr)
		if err != nil {
			return err
		}
		result.Free = dustAmount(acc.Free)
		result.Held = dustAmount(held)
		result.Nonce = acc.Nonce
		return nil
	})
	if err != nil {
		return nil, serverError("failed to load account", err)
	}
	return result, nil
}

func evidenceResult(rec *evidence.Record) EvidenceResult {
	out := EvidenceResult{
		ID:          rec.ID,
		Owner:       accountString(rec.Owner),
		Domain:      trimDomain(rec.Domain.String()),
		TargetID:    rec.TargetID,
		CID:         string(rec.ContentCID),
		ContentType: rec.ContentType,
		Encrypted:   rec.Encrypted,
		Status:      evidence.Status(rec.Status).String(),
		Revision:    rec.Revision,
		CreatedAt:   rec.CreatedAt,
	}
	if rec.HasCommit {
		out.CommitHash = "0x" + hex.EncodeToString(rec.CommitHash[:])
	}
	if rec.HasNamespace {
		out.Namespace = trimDomain(rec.Namespace.String())
	}
	if rec.HasParent {
		out.Parent = rec.Parent
	}
	return out
}

func (s *Server) handleEvidenceGet(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params struct {
		ID uint64 `json:"id"`
	}
	if rpcErr := param(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	var (
		rec *evidence.Record
		ok  bool
	)
	if err := s.rt.View(func() error {
		var err error
		rec, ok, err = s.rt.Evidence().Record(params.ID)
		return err
	}); err != nil {
		return nil, serverError("failed to load evidence", err)
	}
	if !ok {
		return nil, notFound("evidence not found")
	}
	return evidenceResult(rec), nil
}

// handleAffiliateChain returns the sponsor chain of an account, nearest
// sponsor first.
func (s *Server) handleAffiliateChain(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params accountParam
	if rpcErr := param(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr := [20]byte(params.Address)
	result := AffiliateChainResult{Address: accountString(addr), Sponsors: []string{}}
	err := s.rt.View(func() error {
		code, _, err := s.rt.Affiliate().CodeOf(addr)
		if err != nil {
			return err
		}
		result.Code = code
		sponsors, err := s.rt.Affiliate().Chain(addr)
		if err != nil {
			return err
		}
		for _, sponsor := range sponsors {
			result.Sponsors = append(result.Sponsors, accountString(sponsor))
		}
		result.Active, err = s.rt.Affiliate().IsActive(addr)
		return err
	})
	if err != nil {
		return nil, serverError("failed to load referral chain", err)
	}
	return result, nil
}

func proposalResult(p *governance.Proposal) ProposalResult {
	out := ProposalResult{
		ID:             p.ID,
		Kind:           p.Kind.String(),
		Proposer:       accountString(p.Proposer),
		Status:         p.Status.StatusString(),
		Major:          p.Major,
		VotingStart:    p.VotingStart,
		VotingEnd:      p.VotingEnd,
		EffectiveBlock: p.EffectiveBlock,
		Deposit:        dustAmount(p.Deposit),
		Aye:            dustAmount(p.Aye),
		Nay:            dustAmount(p.Nay),
		Abstain:        dustAmount(p.Abstain),
		Voters:         p.Voters,
	}
	if p.Kind == governance.KindMembershipPrices {
		for _, price := range p.Prices {
			out.Prices = append(out.Prices, usdtAmount(price))
		}
	} else {
		out.Percents = append([]uint8(nil), p.Percents[:]...)
	}
	return out
}

func (s *Server) handleGovProposal(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params struct {
		ID uint64 `json:"id"`
	}
	if rpcErr := param(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	var (
		p  *governance.Proposal
		ok bool
	)
	if err := s.rt.View(func() error {
		var err error
		p, ok, err = s.rt.Governance().Proposal(params.ID)
		return err
	}); err != nil {
		return nil, serverError("failed to load proposal", err)
	}
	if !ok {
		return nil, notFound("proposal not found")
	}
	return proposalResult(p), nil
}
