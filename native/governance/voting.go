package governance

import (
	"math/big"

	"dustchain/core/pricing"
	"dustchain/core/types"
	"dustchain/native/bank"
	"dustchain/native/common"
)

var dustUnit = big.NewInt(pricing.DustPrecision)

// VotingPower returns the quadratic base power of who: the integer square
// root of its free balance in whole DUST.
func (e *Engine) VotingPower(who [20]byte) (*big.Int, error) {
	if e == nil || e.currency == nil {
		return nil, errNilState
	}
	free, err := e.currency.FreeBalance(who)
	if err != nil {
		return nil, err
	}
	whole := new(big.Int).Quo(cloneBig(free), dustUnit)
	return common.ISqrt(whole), nil
}

// TotalPower is the denominator for participation. It never drops below
// MinTotalPower.
func (e *Engine) TotalPower() (*big.Int, error) {
	issuance, err := e.currency.TotalIssuance()
	if err != nil {
		return nil, err
	}
	power := common.ISqrt(new(big.Int).Quo(cloneBig(issuance), dustUnit))
	floor := new(big.Int).SetUint64(e.params.MinTotalPower)
	if power.Cmp(floor) < 0 {
		return floor, nil
	}
	return power, nil
}

// Vote casts who's ballot on a proposal in its voting period. A non-zero
// conviction multiplies the weight and locks LockBps of the voter's free
// balance for the conviction's lock period, counted from the vote's block.
func (e *Engine) Vote(who [20]byte, id uint64, choice VoteChoice, conviction uint8) error {
	if err := e.guard(); err != nil {
		return err
	}
	if !choice.Valid() {
		return ErrInvalidChoice
	}
	mult, ok := ConvictionMultiplier(conviction)
	if !ok {
		return ErrInvalidConviction
	}
	p, err := e.mustProposal(id)
	if err != nil {
		return err
	}
	height := e.blockFn()
	if p.Status != StatusVoting || height >= p.VotingEnd {
		return ErrNotVoting
	}
	if _, voted, err := e.VoteOf(id, who); err != nil {
		return err
	} else if voted {
		return ErrAlreadyVoted
	}
	base, err := e.VotingPower(who)
	if err != nil {
		return err
	}
	if base.Sign() == 0 {
		return ErrNoVotingPower
	}
	weight := new(big.Int).Mul(base, new(big.Int).SetUint64(mult))
	weight.Quo(weight, big.NewInt(10))
	v := &Vote{
		ProposalID: id,
		Voter:      who,
		Choice:     choice,
		Conviction: conviction,
		Weight:     weight,
		Locked:     big.NewInt(0),
		CastAt:     height,
	}
	if conviction > 0 {
		free, err := e.currency.FreeBalance(who)
		if err != nil {
			return err
		}
		locked := common.MulBps(free, e.params.LockBps)
		if locked.Sign() > 0 {
			if err := e.currency.Hold(bank.HoldConvictionLock, who, locked); err != nil {
				return err
			}
			weeks, _ := ConvictionLockWeeks(conviction)
			v.Locked = locked
			v.UnlockBlock = height + weeks*e.params.BlocksPerWeek
			if err := e.store.KVAppend(unlockKey(v.UnlockBlock), encodeUnlock(id, who)); err != nil {
				return err
			}
			p.ActiveLocks++
		}
	}
	switch choice {
	case ChoiceAye:
		p.Aye.Add(p.Aye, weight)
	case ChoiceNay:
		p.Nay.Add(p.Nay, weight)
	default:
		p.Abstain.Add(p.Abstain, weight)
	}
	p.Voters++
	if err := e.store.KVPut(voteKey(id, who), v); err != nil {
		return err
	}
	if err := e.store.KVAppend(votersKey(id), who[:]); err != nil {
		return err
	}
	if err := e.putProposal(p); err != nil {
		return err
	}
	e.emit(newVoteEvent(v))
	return nil
}

// UnlockVote releases a conviction lock whose unlock block has passed. It is
// open to anyone and complements the automatic release in OnFinalize.
func (e *Engine) UnlockVote(who [20]byte, id uint64) error {
	if e == nil || e.store == nil || e.currency == nil {
		return errNilState
	}
	v, ok, err := e.VoteOf(id, who)
	if err != nil {
		return err
	}
	if !ok {
		return ErrVoteNotFound
	}
	if v.Released || v.Locked.Sign() == 0 {
		return ErrNothingLocked
	}
	if e.blockFn() < v.UnlockBlock {
		return ErrVoteLocked
	}
	if err := e.release(v); err != nil {
		return err
	}
	_, err = e.store.KVRemove(unlockKey(v.UnlockBlock), encodeUnlock(id, who))
	return err
}

func (e *Engine) release(v *Vote) error {
	if err := e.currency.Release(bank.HoldConvictionLock, v.Voter, v.Locked); err != nil {
		return err
	}
	v.Released = true
	if err := e.store.KVPut(voteKey(v.ProposalID, v.Voter), v); err != nil {
		return err
	}
	if p, ok, err := e.Proposal(v.ProposalID); err != nil {
		return err
	} else if ok && p.ActiveLocks > 0 {
		p.ActiveLocks--
		if err := e.putProposal(p); err != nil {
			return err
		}
	}
	e.emit(types.NewEvent(EventTypeVoteUnlocked).
		WithUint("id", v.ProposalID).
		WithHex("voter", v.Voter[:]).
		WithAmount("amount", v.Locked))
	return nil
}

// releaseLocks processes the unlock bucket scheduled for height.
func (e *Engine) releaseLocks(height uint64, report *FinalizeReport) error {
	var entries [][]byte
	if err := e.store.KVGetList(unlockKey(height), &entries); err != nil {
		return err
	}
	for _, raw := range entries {
		id, voter, ok := decodeUnlock(raw)
		if !ok {
			continue
		}
		v, found, err := e.VoteOf(id, voter)
		if err != nil {
			report.fail(id, err)
			continue
		}
		if !found || v.Released || v.Locked.Sign() == 0 {
			continue
		}
		if err := e.release(v); err != nil {
			report.fail(id, err)
			continue
		}
		report.Unlocked++
	}
	return e.store.KVDelete(unlockKey(height))
}
