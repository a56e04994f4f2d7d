package loan

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"loanledger/core/events"
	"loanledger/core/types"
)

const (
	EventTypeLoanStarted    = "loan.started"
	EventTypeLoanRepaid     = "loan.repaid"
	EventTypeLoanForceRepay = "loan.force_repaid"
	EventTypeLoanClaimed    = "loan.claimed"
	EventTypeLoanRolledOver = "loan.rolled_over"
	EventTypeNoteRedeemed   = "loan.note_redeemed"
	EventTypeFeesWithdrawn  = "loan.fees_withdrawn"
)

type loanEvent struct {
	evt *types.Event
}

func (e loanEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e loanEvent) Event() *types.Event { return e.evt }

// NewStartedEvent returns the canonical payload for a newly originated loan.
func NewStartedEvent(l *LoanRecord, lender, borrower [20]byte, fee *big.Int) events.Event {
	attrs := loanAttrs(l)
	attrs["lender"] = hex.EncodeToString(lender[:])
	attrs["borrower"] = hex.EncodeToString(borrower[:])
	attrs["originationFee"] = bigString(fee)
	return loanEvent{evt: &types.Event{Type: EventTypeLoanStarted, Attributes: attrs}}
}

// NewRepaidEvent returns the payload for a repayment. Deferred marks whether
// the lender payout was routed into a note receipt rather than delivered.
func NewRepaidEvent(eventType string, l *LoanRecord, payer [20]byte, total, fee *big.Int, deferred bool) events.Event {
	attrs := loanAttrs(l)
	attrs["payer"] = hex.EncodeToString(payer[:])
	attrs["amount"] = bigString(total)
	attrs["fee"] = bigString(fee)
	attrs["deferred"] = strconv.FormatBool(deferred)
	return loanEvent{evt: &types.Event{Type: eventType, Attributes: attrs}}
}

// NewClaimedEvent returns the payload emitted when defaulted collateral is
// claimed by the lender.
func NewClaimedEvent(l *LoanRecord, claimant [20]byte, fee *big.Int) events.Event {
	attrs := loanAttrs(l)
	attrs["claimant"] = hex.EncodeToString(claimant[:])
	attrs["claimFee"] = bigString(fee)
	return loanEvent{evt: &types.Event{Type: EventTypeLoanClaimed, Attributes: attrs}}
}

// NewRolledOverEvent returns the payload for an atomic rollover.
func NewRolledOverEvent(oldLoan, newLoan *LoanRecord, settlement *big.Int) events.Event {
	attrs := loanAttrs(newLoan)
	if oldLoan != nil {
		attrs["previousLoanId"] = strconv.FormatUint(oldLoan.ID, 10)
	}
	attrs["settlement"] = bigString(settlement)
	return loanEvent{evt: &types.Event{Type: EventTypeLoanRolledOver, Attributes: attrs}}
}

// NewNoteRedeemedEvent returns the payload for a note receipt redemption.
func NewNoteRedeemedEvent(loanID uint64, redeemer, to [20]byte, payout, fee *big.Int) events.Event {
	attrs := map[string]string{
		"loanId":   strconv.FormatUint(loanID, 10),
		"redeemer": hex.EncodeToString(redeemer[:]),
		"to":       hex.EncodeToString(to[:]),
		"payout":   bigString(payout),
		"fee":      bigString(fee),
	}
	return loanEvent{evt: &types.Event{Type: EventTypeNoteRedeemed, Attributes: attrs}}
}

// NewFeesWithdrawnEvent returns the payload for a withdrawable-balance drain.
func NewFeesWithdrawnEvent(currency string, account, to [20]byte, amount *big.Int) events.Event {
	attrs := map[string]string{
		"currency": currency,
		"account":  hex.EncodeToString(account[:]),
		"to":       hex.EncodeToString(to[:]),
		"amount":   bigString(amount),
	}
	return loanEvent{evt: &types.Event{Type: EventTypeFeesWithdrawn, Attributes: attrs}}
}

func loanAttrs(l *LoanRecord) map[string]string {
	attrs := make(map[string]string)
	if l == nil {
		return attrs
	}
	attrs["loanId"] = strconv.FormatUint(l.ID, 10)
	attrs["state"] = l.State.String()
	attrs["currency"] = l.Terms.PayableCurrency
	attrs["principal"] = bigString(l.Terms.Principal)
	attrs["balance"] = bigString(l.Balance)
	attrs["collateral"] = hex.EncodeToString(l.Terms.Collateral.Address[:]) + ":" + strconv.FormatUint(l.Terms.Collateral.ID, 10)
	if l.Terms.AffiliateCode != ([32]byte{}) {
		attrs["affiliateCode"] = hex.EncodeToString(l.Terms.AffiliateCode[:])
	}
	return attrs
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
