package runtime

import (
	"encoding/json"
	"fmt"
	"math/big"

	"dustchain/crypto"
	"dustchain/native/affiliate"
	"dustchain/native/arbitration"
	"dustchain/native/common"
	"dustchain/native/evidence"
	"dustchain/native/governance"
	"dustchain/native/maker"
)

type callKind uint8

const (
	// callSigned requires a signed origin; the signer is the acting account.
	callSigned callKind = iota
	// callPrivileged accepts any origin and leaves authorization to the engine.
	callPrivileged
	// callUnsigned is only accepted from the unsigned origin.
	callUnsigned
)

type applyFn func(r *Runtime, origin common.Origin, args json.RawMessage) error

type handler struct {
	kind  callKind
	apply applyFn
}

func signed(fn func(r *Runtime, who [20]byte, args json.RawMessage) error) handler {
	return handler{kind: callSigned, apply: func(r *Runtime, origin common.Origin, args json.RawMessage) error {
		who, err := origin.EnsureSigned()
		if err != nil {
			return err
		}
		return fn(r, who, args)
	}}
}

func privileged(fn applyFn) handler { return handler{kind: callPrivileged, apply: fn} }

// Call names are stable identifiers shared with clients.
func buildHandlers() map[string]handler {
	h := map[string]handler{}

	// swap
	h["swap.maker_swap"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			MakerID     uint64 `json:"makerId"`
			Amount      Amount `json:"amount"`
			TronAddress string `json:"tronAddress"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		_, err := r.swap.MakerSwap(who, args.MakerID, args.Amount.Big(), args.TronAddress)
		return err
	})
	h["swap.mark_swap_complete"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			SwapID uint64 `json:"swapId"`
			TxHash string `json:"txHash"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.swap.MarkSwapComplete(who, args.SwapID, args.TxHash)
	})
	h["swap.report_swap"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			SwapID uint64 `json:"swapId"`
			Reason string `json:"reason"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.swap.ReportSwap(who, args.SwapID, args.Reason)
	})
	h["swap.confirm_verification"] = privileged(func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		args, err := decodeVerification(raw)
		if err != nil {
			return err
		}
		return r.swap.ConfirmVerification(origin, args.SwapID, args.Verified, args.Reason)
	})
	h["swap.handle_verification_timeout"] = signed(func(r *Runtime, _ [20]byte, raw json.RawMessage) error {
		var args struct {
			SwapID uint64 `json:"swapId"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.swap.HandleVerificationTimeout(args.SwapID)
	})
	h["swap.ocw_submit_verification"] = handler{kind: callUnsigned, apply: func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		args, err := decodeVerification(raw)
		if err != nil {
			return err
		}
		return r.swap.OcwSubmitVerification(origin, args.SwapID, args.Verified, args.Reason)
	}}

	// makers
	h["maker.register"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			TronAddress string `json:"tronAddress"`
			Deposit     Amount `json:"deposit"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		tron, err := crypto.ParseTronAddress(args.TronAddress)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
		_, err = r.makers.Register(who, tron, args.Deposit.Big())
		return err
	})
	h["maker.set_status"] = privileged(func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		var args struct {
			MakerID uint64 `json:"makerId"`
			Status  uint8  `json:"status"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.makers.SetStatus(origin, args.MakerID, maker.Status(args.Status))
	})
	h["maker.retire"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		return r.makers.Retire(who)
	})

	// pricing
	h["pricing.set_rate"] = privileged(func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		var args struct {
			Price Amount `json:"price"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.prices.SetRate(origin, args.Price.Big())
	})

	// evidence
	h["evidence.commit"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			Domain      Domain `json:"domain"`
			TargetID    uint64 `json:"targetId"`
			ContentCID  string `json:"cid"`
			ContentType uint8  `json:"contentType"`
			Encrypted   bool   `json:"encrypted"`
			Editable    bool   `json:"editable"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		_, err := r.evidence.Commit(evidence.CommitRequest{
			Owner:       who,
			Domain:      args.Domain.Tag(),
			TargetID:    args.TargetID,
			ContentCID:  args.ContentCID,
			ContentType: evidence.ContentType(args.ContentType),
			Encrypted:   args.Encrypted,
			Editable:    args.Editable,
		})
		return err
	})
	h["evidence.commit_hash"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			Namespace  Domain   `json:"ns"`
			SubjectID  uint64   `json:"subjectId"`
			CommitHash Hash32   `json:"commitHash"`
			Memo       HexBytes `json:"memo"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		_, err := r.evidence.CommitHash(who, args.Namespace.Tag(), args.SubjectID, args.CommitHash, args.Memo)
		return err
	})
	h["evidence.link"] = privileged(linkCall(false, false))
	h["evidence.unlink"] = privileged(linkCall(true, false))
	h["evidence.link_by_ns"] = privileged(linkCall(false, true))
	h["evidence.unlink_by_ns"] = privileged(linkCall(true, true))
	h["evidence.append_evidence"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			ParentID    uint64 `json:"parentId"`
			ContentCID  string `json:"cid"`
			ContentType uint8  `json:"contentType"`
			Encrypted   bool   `json:"encrypted"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		_, err := r.evidence.AppendEvidence(who, args.ParentID, args.ContentCID, evidence.ContentType(args.ContentType), args.Encrypted)
		return err
	})
	h["evidence.update_evidence_manifest"] = privileged(func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		var args struct {
			ID         uint64 `json:"id"`
			ContentCID string `json:"cid"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.evidence.UpdateManifest(origin, args.ID, args.ContentCID)
	})
	h["evidence.register_public_key"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			KeyType uint8    `json:"keyType"`
			Key     HexBytes `json:"key"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.evidence.RegisterPublicKey(who, args.KeyType, args.Key)
	})
	h["evidence.store_private_content"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			Namespace   Domain       `json:"ns"`
			SubjectID   uint64       `json:"subjectId"`
			ContentCID  string       `json:"cid"`
			ContentHash Hash32       `json:"contentHash"`
			Method      uint8        `json:"method"`
			Keys        []granteeArg `json:"keys"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		_, err := r.evidence.StorePrivateContent(who, args.Namespace.Tag(), args.SubjectID, args.ContentCID, args.ContentHash, args.Method, grantees(args.Keys))
		return err
	})
	h["evidence.grant_access"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			ID    uint64     `json:"id"`
			Grant granteeArg `json:"grant"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.evidence.GrantAccess(who, args.ID, args.Grant.key())
	})
	h["evidence.revoke_access"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			ID      uint64  `json:"id"`
			Grantee Account `json:"grantee"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.evidence.RevokeAccess(who, args.ID, args.Grantee)
	})
	h["evidence.rotate_content_keys"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			ID          uint64       `json:"id"`
			ContentHash Hash32       `json:"contentHash"`
			Keys        []granteeArg `json:"keys"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.evidence.RotateContentKeys(who, args.ID, args.ContentHash, grantees(args.Keys))
	})

	// arbitration
	h["arbitration.dispute"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			Domain Domain   `json:"domain"`
			ID     uint64   `json:"id"`
			CIDs   []string `json:"cids"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.arbitration.RaiseDispute(who, args.Domain.Tag(), args.ID, args.CIDs)
	})
	h["arbitration.dispute_with_evidence_id"] = signed(evidenceDisputeCall(func(r *Runtime, who [20]byte, a disputeArgs) error {
		return r.arbitration.DisputeWithEvidenceID(who, a.Domain.Tag(), a.ID, a.EvidenceID)
	}))
	h["arbitration.append_evidence_id"] = signed(evidenceDisputeCall(func(r *Runtime, who [20]byte, a disputeArgs) error {
		return r.arbitration.AppendEvidenceID(who, a.Domain.Tag(), a.ID, a.EvidenceID)
	}))
	h["arbitration.dispute_with_two_way_deposit"] = signed(evidenceDisputeCall(func(r *Runtime, who [20]byte, a disputeArgs) error {
		return r.arbitration.DisputeWithTwoWayDeposit(who, a.Domain.Tag(), a.ID, a.EvidenceID)
	}))
	h["arbitration.respond_to_dispute"] = signed(evidenceDisputeCall(func(r *Runtime, who [20]byte, a disputeArgs) error {
		return r.arbitration.RespondToDispute(who, a.Domain.Tag(), a.ID, a.EvidenceID)
	}))
	h["arbitration.arbitrate"] = privileged(func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		var args struct {
			Domain   Domain `json:"domain"`
			ID       uint64 `json:"id"`
			Decision string `json:"decision"`
			Bps      uint32 `json:"bps"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		decision, err := parseDecision(args.Decision, args.Bps)
		if err != nil {
			return err
		}
		return r.arbitration.Arbitrate(origin, args.Domain.Tag(), args.ID, decision)
	})
	h["arbitration.file_complaint"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			Domain     Domain `json:"domain"`
			ObjectID   uint64 `json:"objectId"`
			Type       uint8  `json:"type"`
			DetailsCID string `json:"detailsCid"`
			Amount     Amount `json:"amount"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		_, err := r.arbitration.FileComplaint(who, arbitration.ComplaintRequest{
			Domain:     args.Domain.Tag(),
			ObjectID:   args.ObjectID,
			Type:       arbitration.ComplaintType(args.Type),
			DetailsCID: args.DetailsCID,
			Amount:     args.Amount.Big(),
		})
		return err
	})
	h["arbitration.respond_to_complaint"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			ID          uint64 `json:"id"`
			ResponseCID string `json:"responseCid"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.arbitration.RespondToComplaint(who, args.ID, args.ResponseCID)
	})
	h["arbitration.withdraw_complaint"] = signed(complaintCall(func(r *Runtime, who [20]byte, id uint64) error {
		return r.arbitration.WithdrawComplaint(who, id)
	}))
	h["arbitration.settle_complaint"] = signed(complaintCall(func(r *Runtime, who [20]byte, id uint64) error {
		return r.arbitration.SettleComplaint(who, id)
	}))
	h["arbitration.escalate_to_arbitration"] = signed(complaintCall(func(r *Runtime, who [20]byte, id uint64) error {
		return r.arbitration.EscalateToArbitration(who, id)
	}))
	h["arbitration.resolve_complaint"] = privileged(func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		var args struct {
			ID             uint64 `json:"id"`
			ForComplainant bool   `json:"forComplainant"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.arbitration.ResolveComplaint(origin, args.ID, args.ForComplainant)
	})

	// affiliate
	h["affiliate.claim_code"] = signed(codeCall(func(r *Runtime, who [20]byte, code string) error {
		return r.affiliate.ClaimCode(who, code)
	}))
	h["affiliate.bind_sponsor"] = signed(codeCall(func(r *Runtime, who [20]byte, code string) error {
		return r.affiliate.BindSponsor(who, code)
	}))
	h["affiliate.purchase_membership"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			Tier uint8 `json:"tier"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		_, err := r.affiliate.PurchaseMembership(who, args.Tier)
		return err
	})
	h["affiliate.settle_cycle"] = signed(func(r *Runtime, _ [20]byte, raw json.RawMessage) error {
		var args struct {
			Cycle       uint32 `json:"cycle"`
			MaxAccounts int    `json:"maxAccounts"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		_, _, err := r.affiliate.SettleCycle(args.Cycle, args.MaxAccounts)
		return err
	})
	h["affiliate.set_settlement_mode"] = privileged(func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		var args struct {
			Mode          string `json:"mode"`
			InstantLevels uint8  `json:"instantLevels"`
			WeeklyLevels  uint8  `json:"weeklyLevels"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		var mode affiliate.SettlementMode
		switch args.Mode {
		case "weekly":
			mode = affiliate.Weekly()
		case "instant":
			mode = affiliate.Instant()
		case "hybrid":
			mode = affiliate.Hybrid(args.InstantLevels, args.WeeklyLevels)
		default:
			return fmt.Errorf("%w: unknown settlement mode %q", ErrInvalidArgs, args.Mode)
		}
		return r.affiliate.SetSettlementMode(origin, mode)
	})
	h["affiliate.set_weekly_percents"] = privileged(percentsCall(func(r *Runtime, origin common.Origin, p affiliate.Percents) error {
		return r.affiliate.SetWeeklyPercents(origin, p)
	}))
	h["affiliate.set_instant_percents"] = privileged(percentsCall(func(r *Runtime, origin common.Origin, p affiliate.Percents) error {
		return r.affiliate.SetInstantPercents(origin, p)
	}))
	h["affiliate.set_blocks_per_week"] = privileged(func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		var args struct {
			Blocks uint64 `json:"blocks"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.affiliate.SetBlocksPerWeek(origin, args.Blocks)
	})

	// governance, exposed under the affiliate call names
	h["affiliate.propose_percentage_adjustment"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			Percents []uint8 `json:"percents"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		p, err := toPercents(args.Percents)
		if err != nil {
			return err
		}
		_, err = r.governance.ProposePercentageAdjustment(who, p)
		return err
	})
	h["affiliate.propose_membership_price_adjustment"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			Prices []Amount `json:"prices"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		prices := make([]*big.Int, len(args.Prices))
		for i, p := range args.Prices {
			prices[i] = p.Big()
		}
		_, err := r.governance.ProposeMembershipPriceAdjustment(who, prices)
		return err
	})
	h["affiliate.vote_on_percentage_proposal"] = signed(voteCall(governance.KindInstantPercents))
	h["affiliate.vote_on_membership_price_proposal"] = signed(voteCall(governance.KindMembershipPrices))
	h["affiliate.cancel_proposal"] = signed(cancelCall(governance.KindInstantPercents))
	h["affiliate.cancel_membership_price_proposal"] = signed(cancelCall(governance.KindMembershipPrices))
	h["affiliate.emergency_pause_governance"] = privileged(func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		var args struct {
			ReasonCID string `json:"reasonCid"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.governance.EmergencyPause(origin, args.ReasonCID)
	})
	h["affiliate.resume_governance"] = privileged(func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		return r.governance.Resume(origin)
	})
	h["affiliate.unlock_vote"] = signed(func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			ProposalID uint64 `json:"proposalId"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return r.governance.UnlockVote(who, args.ProposalID)
	})

	// system
	h["system.set_pause"] = privileged(func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		var args struct {
			Module string `json:"module"`
			Paused bool   `json:"paused"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		if err := (common.RootOrCommittee{Num: 2, Den: 3}).EnsureOrigin(origin); err != nil {
			return err
		}
		return r.pauses.SetPaused(args.Module, args.Paused)
	})
	return h
}

type verificationArgs struct {
	SwapID   uint64 `json:"swapId"`
	Verified bool   `json:"verified"`
	Reason   string `json:"reason"`
}

func decodeVerification(raw json.RawMessage) (verificationArgs, error) {
	var args verificationArgs
	err := decodeArgs(raw, &args)
	return args, err
}

type granteeArg struct {
	Account      Account  `json:"account"`
	EncryptedKey HexBytes `json:"encryptedKey"`
}

func (g granteeArg) key() evidence.GranteeKey {
	return evidence.GranteeKey{Account: g.Account, EncryptedKey: g.EncryptedKey}
}

func grantees(in []granteeArg) []evidence.GranteeKey {
	out := make([]evidence.GranteeKey, len(in))
	for i, g := range in {
		out[i] = g.key()
	}
	return out
}

func linkCall(unlink, byNamespace bool) applyFn {
	return func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		var args struct {
			Domain     Domain `json:"domain"`
			Target     uint64 `json:"target"`
			EvidenceID uint64 `json:"evidenceId"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		tag := args.Domain.Tag()
		switch {
		case unlink && byNamespace:
			return r.evidence.UnlinkByNs(origin, tag, args.Target, args.EvidenceID)
		case unlink:
			return r.evidence.Unlink(origin, tag, args.Target, args.EvidenceID)
		case byNamespace:
			return r.evidence.LinkByNs(origin, tag, args.Target, args.EvidenceID)
		default:
			return r.evidence.Link(origin, tag, args.Target, args.EvidenceID)
		}
	}
}

type disputeArgs struct {
	Domain     Domain `json:"domain"`
	ID         uint64 `json:"id"`
	EvidenceID uint64 `json:"evidenceId"`
}

func evidenceDisputeCall(fn func(r *Runtime, who [20]byte, a disputeArgs) error) func(*Runtime, [20]byte, json.RawMessage) error {
	return func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args disputeArgs
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return fn(r, who, args)
	}
}

func complaintCall(fn func(r *Runtime, who [20]byte, id uint64) error) func(*Runtime, [20]byte, json.RawMessage) error {
	return func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			ID uint64 `json:"id"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return fn(r, who, args.ID)
	}
}

func codeCall(fn func(r *Runtime, who [20]byte, code string) error) func(*Runtime, [20]byte, json.RawMessage) error {
	return func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			Code string `json:"code"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		return fn(r, who, args.Code)
	}
}

func percentsCall(fn func(r *Runtime, origin common.Origin, p affiliate.Percents) error) applyFn {
	return func(r *Runtime, origin common.Origin, raw json.RawMessage) error {
		var args struct {
			Percents []uint8 `json:"percents"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		p, err := toPercents(args.Percents)
		if err != nil {
			return err
		}
		return fn(r, origin, p)
	}
}

func toPercents(in []uint8) (affiliate.Percents, error) {
	var p affiliate.Percents
	if len(in) != len(p) {
		return p, fmt.Errorf("%w: expected %d levels, got %d", ErrInvalidArgs, len(p), len(in))
	}
	copy(p[:], in)
	return p, nil
}

func voteCall(kind governance.ProposalKind) func(*Runtime, [20]byte, json.RawMessage) error {
	return func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			ProposalID uint64 `json:"proposalId"`
			Choice     string `json:"choice"`
			Conviction uint8  `json:"conviction"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		if err := ensureKind(r, args.ProposalID, kind); err != nil {
			return err
		}
		choice, err := parseChoice(args.Choice)
		if err != nil {
			return err
		}
		return r.governance.Vote(who, args.ProposalID, choice, args.Conviction)
	}
}

func cancelCall(kind governance.ProposalKind) func(*Runtime, [20]byte, json.RawMessage) error {
	return func(r *Runtime, who [20]byte, raw json.RawMessage) error {
		var args struct {
			ProposalID uint64 `json:"proposalId"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return err
		}
		if err := ensureKind(r, args.ProposalID, kind); err != nil {
			return err
		}
		return r.governance.CancelProposal(who, args.ProposalID)
	}
}

func ensureKind(r *Runtime, id uint64, kind governance.ProposalKind) error {
	p, ok, err := r.governance.Proposal(id)
	if err != nil {
		return err
	}
	if !ok {
		return governance.ErrProposalNotFound
	}
	if p.Kind != kind {
		return governance.ErrUnknownKind
	}
	return nil
}

func parseChoice(s string) (governance.VoteChoice, error) {
	switch s {
	case "aye":
		return governance.ChoiceAye, nil
	case "nay":
		return governance.ChoiceNay, nil
	case "abstain":
		return governance.ChoiceAbstain, nil
	}
	return 0, governance.ErrInvalidChoice
}

func parseDecision(kind string, bps uint32) (arbitration.Decision, error) {
	switch kind {
	case "release":
		return arbitration.Release(), nil
	case "refund":
		return arbitration.Refund(), nil
	case "partial":
		return arbitration.Partial(bps), nil
	}
	return arbitration.Decision{}, arbitration.ErrInvalidDecision
}
