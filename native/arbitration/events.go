package arbitration

import (
	"strconv"

	"dustchain/core/types"
)

const (
	EventTypeDisputed           = "arbitration.disputed"
	EventTypeEvidenceAppended   = "arbitration.evidence_appended"
	EventTypeDisputeResponded   = "arbitration.responded"
	EventTypeArbitrated         = "arbitration.arbitrated"
	EventTypeDepositSlashed     = "arbitration.deposit_slashed"
	EventTypeComplaintFiled     = "arbitration.complaint_filed"
	EventTypeComplaintResponded = "arbitration.complaint_responded"
	EventTypeComplaintClosed    = "arbitration.complaint_closed"
	EventTypeComplaintEscalated = "arbitration.complaint_escalated"
)

type arbitrationEvent struct {
	evt *types.Event
}

func (e arbitrationEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e arbitrationEvent) Event() *types.Event { return e.evt }

func disputeEvent(kind string, d *Dispute) *types.Event {
	evt := types.NewEvent(kind).
		With("domain", d.Domain.String()).
		With("objectId", strconv.FormatUint(d.ObjectID, 10)).
		WithHex("initiator", d.Initiator[:]).
		WithUint("evidence", uint64(len(d.EvidenceIDs)))
	if d.TwoWay {
		evt.WithHex("respondent", d.Respondent[:]).
			WithAmount("initiatorDeposit", d.InitiatorDeposit).
			WithAmount("respondentDeposit", d.RespondentDeposit).
			WithUint("responseDeadline", d.ResponseDeadline)
	}
	return evt
}

func complaintEvent(kind string, c *Complaint) *types.Event {
	return types.NewEvent(kind).
		With("complaintId", strconv.FormatUint(c.ID, 10)).
		With("domain", c.Domain.String()).
		WithUint("objectId", c.ObjectID).
		WithHex("complainant", c.Complainant[:]).
		WithHex("respondent", c.Respondent[:]).
		With("status", ComplaintStatus(c.Status).String()).
		WithAmount("deposit", c.Deposit)
}
