package arbitration

import (
	"math/big"

	"dustchain/core/pricing"
	"dustchain/core/types"
	"dustchain/native/bank"
	"dustchain/native/common"
	"dustchain/native/evidence"
)

// ComplaintRequest describes a new complaint.
type ComplaintRequest struct {
	Domain     types.DomainTag
	ObjectID   uint64
	Type       ComplaintType
	DetailsCID string
	Amount     *big.Int
}

// Complaint returns the stored complaint.
func (e *Engine) Complaint(id uint64) (*Complaint, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	var c Complaint
	ok, err := e.store.KVGet(complaintKey(id), &c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrComplaintNotFound
	}
	c.Deposit = common.Clone(c.Deposit)
	if c.HasAmount {
		c.Amount = common.Clone(c.Amount)
	}
	return &c, nil
}

func (e *Engine) putComplaint(c *Complaint) error {
	c.UpdatedAt = e.blockFn()
	return e.store.KVPut(complaintKey(c.ID), c)
}

// ComplaintDeposit prices ComplaintDepositUsd in DUST at the current rate,
// floored at ComplaintMinDeposit. Without a servable rate the floor applies.
func (e *Engine) ComplaintDeposit() (*big.Int, error) {
	floor := common.Clone(e.params.ComplaintMinDeposit)
	if e.prices == nil {
		return floor, nil
	}
	rate, ok := e.prices.DustToUSDRate()
	if !ok || rate == nil || rate.Sign() <= 0 {
		return floor, nil
	}
	amount, err := pricing.USDToDust(common.Clone(e.params.ComplaintDepositUsd), rate)
	if err != nil {
		return nil, ErrInsufficientDepositSource
	}
	if amount.Cmp(floor) < 0 {
		return floor, nil
	}
	return amount, nil
}

func (e *Engine) nextComplaintID() (uint64, error) {
	var next uint64
	if _, err := e.store.KVGet(nextComplaintIDKey, &next); err != nil {
		return 0, err
	}
	if next == 0 {
		next = 1
	}
	if err := e.store.KVPut(nextComplaintIDKey, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

// FileComplaint records a grievance against the counterparty of an object and
// holds the priced complaint deposit from the complainant.
func (e *Engine) FileComplaint(who [20]byte, req ComplaintRequest) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	if req.Type < ComplaintTypeNonDelivery || req.Type > ComplaintTypeOther {
		return 0, ErrInvalidComplaintType
	}
	if err := evidence.ValidateCID(req.DetailsCID, 0); err != nil {
		return 0, err
	}
	h, err := e.handler(req.Domain)
	if err != nil {
		return 0, err
	}
	respondent, err := h.Counterparty(who, req.ObjectID)
	if err != nil {
		return 0, err
	}
	if respondent == who {
		return 0, ErrSelfComplaint
	}
	deposit, err := e.ComplaintDeposit()
	if err != nil {
		return 0, err
	}
	id, err := e.nextComplaintID()
	if err != nil {
		return 0, err
	}
	if err := e.holds.Hold(bank.HoldComplaintDeposit, who, deposit); err != nil {
		return 0, err
	}
	now := e.blockFn()
	c := &Complaint{
		ID:               id,
		Domain:           req.Domain,
		ObjectID:         req.ObjectID,
		Type:             uint8(req.Type),
		Complainant:      who,
		Respondent:       respondent,
		DetailsCID:       []byte(req.DetailsCID),
		Deposit:          deposit,
		Status:           uint8(ComplaintSubmitted),
		CreatedAt:        now,
		ResponseDeadline: now + e.params.ResponseDeadline,
	}
	if req.Amount != nil {
		c.HasAmount = true
		c.Amount = common.Clone(req.Amount)
	}
	if err := e.putComplaint(c); err != nil {
		return 0, err
	}
	if err := e.store.KVAppend(complaintQueueKey, encodeID(id)); err != nil {
		return 0, err
	}
	e.emit(complaintEvent(EventTypeComplaintFiled, c).WithUint("type", uint64(c.Type)))
	return id, nil
}

// RespondToComplaint records the respondent's answer before the deadline.
func (e *Engine) RespondToComplaint(who [20]byte, id uint64, responseCID string) error {
	if err := e.guard(); err != nil {
		return err
	}
	c, err := e.Complaint(id)
	if err != nil {
		return err
	}
	if who != c.Respondent {
		return ErrNotAuthorized
	}
	if ComplaintStatus(c.Status) != ComplaintSubmitted {
		return ErrInvalidStatus
	}
	if e.blockFn() > c.ResponseDeadline {
		return ErrResponseDeadlinePassed
	}
	if err := evidence.ValidateCID(responseCID, 0); err != nil {
		return err
	}
	c.Status = uint8(ComplaintResponded)
	c.RespondedAt = e.blockFn()
	c.ResponseCID = []byte(responseCID)
	if err := e.putComplaint(c); err != nil {
		return err
	}
	e.emit(complaintEvent(EventTypeComplaintResponded, c))
	return nil
}

// WithdrawComplaint lets the complainant drop an unanswered complaint and
// recover the deposit.
func (e *Engine) WithdrawComplaint(who [20]byte, id uint64) error {
	return e.closeByComplainant(who, id, ComplaintSubmitted, ComplaintWithdrawn)
}

// SettleComplaint lets the complainant accept the respondent's answer.
func (e *Engine) SettleComplaint(who [20]byte, id uint64) error {
	return e.closeByComplainant(who, id, ComplaintResponded, ComplaintSettled)
}

func (e *Engine) closeByComplainant(who [20]byte, id uint64, from, to ComplaintStatus) error {
	if err := e.guard(); err != nil {
		return err
	}
	c, err := e.Complaint(id)
	if err != nil {
		return err
	}
	if who != c.Complainant {
		return ErrNotAuthorized
	}
	if ComplaintStatus(c.Status) != from {
		return ErrInvalidStatus
	}
	return e.finishComplaint(c, to, 0)
}

// EscalateToArbitration turns an answered complaint into a dispute on the
// underlying object. It must happen within AppealWindowBlocks of the
// response.
func (e *Engine) EscalateToArbitration(who [20]byte, id uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	c, err := e.Complaint(id)
	if err != nil {
		return err
	}
	if who != c.Complainant {
		return ErrNotAuthorized
	}
	if ComplaintStatus(c.Status) != ComplaintResponded {
		return ErrInvalidStatus
	}
	if e.blockFn() > c.RespondedAt+e.params.AppealWindowBlocks {
		return ErrAppealDeadlineExpired
	}
	h, d, err := e.open(who, c.Domain, c.ObjectID)
	if err != nil {
		return err
	}
	d.Respondent = c.Respondent
	d.HasComplaint = true
	d.ComplaintID = c.ID
	c.Status = uint8(ComplaintEscalated)
	if err := e.putComplaint(c); err != nil {
		return err
	}
	e.emit(complaintEvent(EventTypeComplaintEscalated, c))
	return e.opened(h, d)
}

// ResolveComplaint lets the decision origin rule on a complaint that was not
// escalated. Dismissed complaints forfeit ComplaintSlashBps of the deposit to
// the respondent.
func (e *Engine) ResolveComplaint(origin common.Origin, id uint64, forComplainant bool) error {
	if err := e.guard(); err != nil {
		return err
	}
	if err := e.decision.EnsureOrigin(origin); err != nil {
		return ErrNotAuthorized
	}
	c, err := e.Complaint(id)
	if err != nil {
		return err
	}
	switch ComplaintStatus(c.Status) {
	case ComplaintSubmitted, ComplaintResponded:
	default:
		return ErrInvalidStatus
	}
	if forComplainant {
		return e.finishComplaint(c, ComplaintUpheld, 0)
	}
	return e.finishComplaint(c, ComplaintDismissed, e.params.ComplaintSlashBps)
}

// ExpiryFailure is a complaint the expiry sweep could not close. It stays
// queued and is retried on the next sweep.
type ExpiryFailure struct {
	ComplaintID uint64
	Err         error
}

// ExpiryReport summarises one ExpireComplaints run.
type ExpiryReport struct {
	Closed   []uint64
	Failures []ExpiryFailure
}

// ExpireComplaints closes up to limit complaints whose response or appeal
// window has lapsed. Per-item failures are reported, not returned.
func (e *Engine) ExpireComplaints(limit int) (ExpiryReport, error) {
	var report ExpiryReport
	if e == nil || e.store == nil {
		return report, errNilState
	}
	var queue [][]byte
	if err := e.store.KVGetList(complaintQueueKey, &queue); err != nil {
		return report, err
	}
	now := e.blockFn()
	for _, raw := range queue {
		if limit > 0 && len(report.Closed) >= limit {
			break
		}
		id, ok := decodeID(raw)
		if !ok {
			continue
		}
		c, err := e.Complaint(id)
		if err == ErrComplaintNotFound {
			if _, err := e.store.KVRemove(complaintQueueKey, raw); err != nil {
				report.Failures = append(report.Failures, ExpiryFailure{ComplaintID: id, Err: err})
			}
			continue
		}
		if err != nil {
			report.Failures = append(report.Failures, ExpiryFailure{ComplaintID: id, Err: err})
			continue
		}
		var status ComplaintStatus
		switch ComplaintStatus(c.Status) {
		case ComplaintSubmitted:
			if now <= c.ResponseDeadline {
				continue
			}
			status = ComplaintExpired
		case ComplaintResponded:
			if now <= c.RespondedAt+e.params.AppealWindowBlocks {
				continue
			}
			status = ComplaintSettled
		default:
			continue
		}
		if err := e.finishComplaint(c, status, 0); err != nil {
			report.Failures = append(report.Failures, ExpiryFailure{ComplaintID: id, Err: err})
			continue
		}
		report.Closed = append(report.Closed, id)
	}
	return report, nil
}

// finishComplaint moves c into a terminal status, forfeiting slashBps of the
// deposit to the respondent and releasing the rest.
func (e *Engine) finishComplaint(c *Complaint, status ComplaintStatus, slashBps uint32) error {
	cut := common.MulBps(c.Deposit, slashBps)
	if cut.Sign() > 0 {
		if err := e.holds.TransferOnHold(bank.HoldComplaintDeposit, c.Complainant, c.Respondent, cut); err != nil {
			return err
		}
		e.emit(types.NewEvent(EventTypeDepositSlashed).
			With("reason", string(bank.HoldComplaintDeposit)).
			WithHex("account", c.Complainant[:]).
			WithAmount("amount", cut))
	}
	rest := new(big.Int).Sub(common.Clone(c.Deposit), cut)
	if rest.Sign() > 0 {
		if err := e.holds.Release(bank.HoldComplaintDeposit, c.Complainant, rest); err != nil {
			return err
		}
	}
	c.Status = uint8(status)
	if err := e.putComplaint(c); err != nil {
		return err
	}
	if _, err := e.store.KVRemove(complaintQueueKey, encodeID(c.ID)); err != nil {
		return err
	}
	e.emit(complaintEvent(EventTypeComplaintClosed, c))
	return nil
}

// closeEscalated resolves the complaint behind an arbitrated dispute. A
// release ruling favours the respondent and dismisses the complaint.
func (e *Engine) closeEscalated(d *Dispute, decision Decision) error {
	c, err := e.Complaint(d.ComplaintID)
	if err != nil {
		return err
	}
	if ComplaintStatus(c.Status) != ComplaintEscalated {
		return nil
	}
	if decision.Kind == DecisionRelease {
		return e.finishComplaint(c, ComplaintDismissed, e.params.ComplaintSlashBps)
	}
	return e.finishComplaint(c, ComplaintUpheld, 0)
}
