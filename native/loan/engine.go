package loan

import (
	"math/big"
	"time"

	"loanledger/core/events"
	"loanledger/core/types"
	nativecommon "loanledger/native/common"
	"loanledger/native/feeschedule"
)

const moduleName = "loan"

// FeeOracle exposes the current basis-point rate per fee kind. Rates are read
// live at the moment of each settlement action, never frozen at origination,
// so the protocol can adjust economics for in-flight loans.
type FeeOracle interface {
	FeeRate(kind feeschedule.FeeKind) uint64
}

// NoteMinter manages the transferable ownership tokens representing borrower
// and lender claim rights. The engine treats lender-note ownership as the
// sole authorisation for lender-side actions.
type NoteMinter interface {
	Mint(to [20]byte) (uint64, error)
	Burn(noteID uint64) error
	OwnerOf(noteID uint64) ([20]byte, bool)
}

// CollateralVault is the custody collaborator. Callers pre-position
// collateral into ledger custody before origination; the engine verifies
// ownership at StartLoan and releases collateral only at Claim.
type CollateralVault interface {
	Owner(key CollateralKey) ([20]byte, bool)
	Transfer(key CollateralKey, from, to [20]byte) error
}

// AffiliateBook receives every protocol fee the engine retains and tracks the
// per-recipient withdrawable balances fed by affiliate splits.
type AffiliateBook interface {
	CreditFee(currency string, code [32]byte, fee *big.Int) error
	Withdrawable(currency string, account [20]byte) *big.Int
	Debit(currency string, account [20]byte, amount *big.Int) error
}

type engineState interface {
	LoanPut(record *LoanRecord) error
	LoanGet(id uint64) (*LoanRecord, bool)
	NextLoanID() (uint64, error)
	CollateralLoan(key [32]byte) (uint64, bool)
	SetCollateralLoan(key [32]byte, loanID uint64) error
	ClearCollateralLoan(key [32]byte) error
	ReceiptPut(loanID uint64, receipt *NoteReceipt) error
	ReceiptGet(loanID uint64) (*NoteReceipt, bool)
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	HasRole(role string, addr [20]byte) bool
}

// settlementOutcome is the two-branch result of routing a lender payout:
// either the funds were delivered directly, or they were deferred into a note
// receipt the lender redeems later. Catching the failed-delivery case here is
// what prevents an incapacitated lender from blocking loan closure.
type settlementOutcome struct {
	delivered bool
	amount    *big.Int
}

// Engine owns the loan records and orchestrates every mutating entry point:
// state machine transitions, conservation checks, fee and affiliate
// accounting, and the deferred-settlement path. All entry points run to
// completion atomically under the ledger's single-call execution model.
type Engine struct {
	state         engineState
	emitter       events.Emitter
	pauses        nativecommon.PauseView
	feeOracle     FeeOracle
	notes         NoteMinter
	custody       CollateralVault
	affiliates    AffiliateBook
	moduleAddress [20]byte
	gracePeriod   uint64
	nowFn         func() int64
}

// NewEngine constructs a loan engine holding escrowed funds under the module
// address.
func NewEngine(moduleAddr [20]byte) *Engine {
	return &Engine{
		emitter:       events.NoopEmitter{},
		moduleAddress: moduleAddr,
		nowFn:         func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetFeeOracle wires the fee schedule consulted on every settlement action.
func (e *Engine) SetFeeOracle(oracle FeeOracle) {
	if e == nil {
		return
	}
	e.feeOracle = oracle
}

// SetNotes wires the ownership-token collaborator.
func (e *Engine) SetNotes(notes NoteMinter) {
	if e == nil {
		return
	}
	e.notes = notes
}

// SetCustody wires the collateral vault collaborator.
func (e *Engine) SetCustody(vault CollateralVault) {
	if e == nil {
		return
	}
	e.custody = vault
}

// SetAffiliates wires the affiliate account book receiving protocol fees.
func (e *Engine) SetAffiliates(book AffiliateBook) {
	if e == nil {
		return
	}
	e.affiliates = book
}

// SetGracePeriod configures the seconds past the due date before collateral
// becomes claimable.
func (e *Engine) SetGracePeriod(secs uint64) {
	if e == nil {
		return
	}
	e.gracePeriod = secs
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// ModuleAddress returns the account under which the engine escrows funds.
func (e *Engine) ModuleAddress() [20]byte { return e.moduleAddress }

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) feeRate(kind feeschedule.FeeKind) uint64 {
	if e == nil || e.feeOracle == nil {
		return 0
	}
	return e.feeOracle.FeeRate(kind)
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(event)
}

// StartLoan escrows a new loan: it pulls the principal from the lender in a
// single transfer, pays the borrower principal minus the live origination
// fee, retains the fee as withdrawable protocol balance, mints the borrower
// and lender notes, and persists an Active record. The caller (the
// originator) has already validated the signed offer and pre-positioned the
// collateral into ledger custody; the engine verifies custody, it does not
// initiate the deposit.
func (e *Engine) StartLoan(caller, lender, borrower [20]byte, terms LoanTerms) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if e.notes == nil {
		return 0, errNilNotes
	}
	if e.custody == nil {
		return 0, errNilCustody
	}
	if e.affiliates == nil {
		return 0, errNilAffiliates
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if !e.state.HasRole(nativecommon.RoleLoanOriginator, caller) {
		return 0, ErrUnauthorized
	}
	if lender == ([20]byte{}) || borrower == ([20]byte{}) {
		return 0, ErrZeroAddress
	}
	terms = terms.Clone()
	terms.PayableCurrency = types.NormalizeCurrency(terms.PayableCurrency)
	if terms.Principal.Sign() <= 0 || terms.DurationSecs == 0 || terms.PayableCurrency == "" {
		return 0, ErrInvalidTerms
	}

	indexKey := terms.Collateral.IndexKey()
	if _, inUse := e.state.CollateralLoan(indexKey); inUse {
		return 0, ErrCollateralInUse
	}
	holder, held := e.custody.Owner(terms.Collateral)
	if !held || holder != e.moduleAddress {
		return 0, ErrCollateralCustody
	}
	// The principal pull and the borrower payout are separate transfers;
	// reject a frozen borrower before the first one moves funds.
	recipient, err := e.state.GetAccount(borrower)
	if err != nil {
		return 0, err
	}
	if recipient.Frozen {
		return 0, ErrRecipientFrozen
	}

	fee := feeAmount(terms.Principal, e.feeRate(feeschedule.FeeOrigination))
	payout := new(big.Int).Sub(terms.Principal, fee)
	if new(big.Int).Add(payout, fee).Cmp(terms.Principal) != 0 || payout.Sign() < 0 {
		return 0, ErrCannotSettle
	}

	if err := e.transferToken(lender, e.moduleAddress, terms.PayableCurrency, terms.Principal); err != nil {
		return 0, err
	}
	if err := e.transferToken(e.moduleAddress, borrower, terms.PayableCurrency, payout); err != nil {
		return 0, err
	}
	if err := e.affiliates.CreditFee(terms.PayableCurrency, terms.AffiliateCode, fee); err != nil {
		return 0, err
	}

	borrowerNote, err := e.notes.Mint(borrower)
	if err != nil {
		return 0, err
	}
	lenderNote, err := e.notes.Mint(lender)
	if err != nil {
		return 0, err
	}

	loanID, err := e.state.NextLoanID()
	if err != nil {
		return 0, err
	}
	record := &LoanRecord{
		ID:                 loanID,
		State:              LoanActive,
		StartDate:          e.now(),
		Terms:              terms,
		Balance:            new(big.Int).Set(terms.Principal),
		InterestAmountPaid: big.NewInt(0),
		BalancePaid:        big.NewInt(0),
		BorrowerNoteID:     borrowerNote,
		LenderNoteID:       lenderNote,
	}
	if err := e.state.LoanPut(record); err != nil {
		return 0, err
	}
	if err := e.state.SetCollateralLoan(indexKey, loanID); err != nil {
		return 0, err
	}
	e.emit(NewStartedEvent(record, lender, borrower, fee))
	return loanID, nil
}

// Repay settles part or all of an Active loan. Any address may pay. The
// interest portion must equal the interest the ledger computes as owed on the
// principal portion, and the total must equal their sum; live interest-share
// and principal-share fees are deducted before the lender is credited. A full
// payoff transitions the loan to Repaid. If direct delivery to the lender
// fails, the payout is deferred into a note receipt instead of aborting the
// repayment.
func (e *Engine) Repay(loanID uint64, payer [20]byte, total, interestPortion, principalPortion *big.Int) error {
	return e.settle(loanID, payer, total, interestPortion, principalPortion, false)
}

// ForceRepay behaves exactly like Repay but always defers the lender payout
// into a note receipt, giving callers an unconditional two-phase settlement.
func (e *Engine) ForceRepay(loanID uint64, payer [20]byte, total, interestPortion, principalPortion *big.Int) error {
	return e.settle(loanID, payer, total, interestPortion, principalPortion, true)
}

func (e *Engine) settle(loanID uint64, payer [20]byte, total, interestPortion, principalPortion *big.Int, force bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.notes == nil {
		return errNilNotes
	}
	if e.affiliates == nil {
		return errNilAffiliates
	}
	record, ok := e.state.LoanGet(loanID)
	if !ok || record.State != LoanActive {
		return ErrInvalidState
	}
	total = cloneBigInt(total)
	interestPortion = cloneBigInt(interestPortion)
	principalPortion = cloneBigInt(principalPortion)
	if total.Sign() <= 0 {
		return ErrZeroAmount
	}
	if interestPortion.Sign() < 0 || principalPortion.Sign() < 0 {
		return ErrCannotSettle
	}
	if principalPortion.Cmp(record.Balance) > 0 {
		return ErrExceedsBalance
	}
	if new(big.Int).Add(interestPortion, principalPortion).Cmp(total) != 0 {
		return ErrCannotSettle
	}
	if interestOwed(principalPortion, record.Terms.InterestRateBps).Cmp(interestPortion) != 0 {
		return ErrCannotSettle
	}

	currency := record.Terms.PayableCurrency
	if err := e.transferToken(payer, e.moduleAddress, currency, total); err != nil {
		return err
	}

	interestFee := feeAmount(interestPortion, e.feeRate(feeschedule.FeeInterestShare))
	principalFee := feeAmount(principalPortion, e.feeRate(feeschedule.FeePrincipalShare))
	fee := new(big.Int).Add(interestFee, principalFee)
	lenderNet := new(big.Int).Sub(total, fee)

	lender, ok := e.notes.OwnerOf(record.LenderNoteID)
	if !ok {
		return ErrInvalidState
	}
	outcome, err := e.settleLender(loanID, lender, currency, lenderNet, force)
	if err != nil {
		return err
	}
	if err := e.affiliates.CreditFee(currency, record.Terms.AffiliateCode, fee); err != nil {
		return err
	}

	record.Balance = new(big.Int).Sub(record.Balance, principalPortion)
	record.InterestAmountPaid = new(big.Int).Add(record.InterestAmountPaid, interestPortion)
	record.BalancePaid = new(big.Int).Add(record.BalancePaid, principalPortion)

	if record.Balance.Sign() == 0 {
		record.State = LoanRepaid
		if err := e.state.ClearCollateralLoan(record.Terms.Collateral.IndexKey()); err != nil {
			return err
		}
		if err := e.notes.Burn(record.BorrowerNoteID); err != nil {
			return err
		}
		// The lender note must survive while a receipt is outstanding: it is
		// the redemption credential.
		if !e.receiptOutstanding(loanID) {
			if err := e.notes.Burn(record.LenderNoteID); err != nil {
				return err
			}
		}
	}
	if err := e.state.LoanPut(record); err != nil {
		return err
	}

	eventType := EventTypeLoanRepaid
	if force {
		eventType = EventTypeLoanForceRepay
	}
	e.emit(NewRepaidEvent(eventType, record, payer, total, fee, !outcome.delivered))
	return nil
}

// settleLender routes a lender payout. Direct delivery is attempted unless
// force is set; a recipient that cannot receive funds trips the deferred
// branch, accumulating the amount into the loan's note receipt.
func (e *Engine) settleLender(loanID uint64, lender [20]byte, currency string, amount *big.Int, force bool) (settlementOutcome, error) {
	if amount.Sign() == 0 {
		return settlementOutcome{delivered: true, amount: amount}, nil
	}
	if !force {
		err := e.transferToken(e.moduleAddress, lender, currency, amount)
		if err == nil {
			return settlementOutcome{delivered: true, amount: amount}, nil
		}
		if err != ErrRecipientFrozen {
			return settlementOutcome{}, err
		}
	}
	receipt, ok := e.state.ReceiptGet(loanID)
	if !ok || receipt == nil {
		receipt = &NoteReceipt{Token: currency, Amount: big.NewInt(0)}
	}
	receipt.Token = currency
	receipt.Amount = new(big.Int).Add(cloneBigInt(receipt.Amount), amount)
	if err := e.state.ReceiptPut(loanID, receipt); err != nil {
		return settlementOutcome{}, err
	}
	return settlementOutcome{delivered: false, amount: amount}, nil
}

func (e *Engine) receiptOutstanding(loanID uint64) bool {
	receipt, ok := e.state.ReceiptGet(loanID)
	return ok && receipt != nil && receipt.Amount != nil && receipt.Amount.Sign() > 0
}

// Claim transfers the collateral to the lender once the loan has run past its
// duration plus the grace period. The caller must hold the current lender
// note; the live claim fee is charged to the caller.
func (e *Engine) Claim(loanID uint64, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.notes == nil {
		return errNilNotes
	}
	if e.custody == nil {
		return errNilCustody
	}
	if e.affiliates == nil {
		return errNilAffiliates
	}
	record, ok := e.state.LoanGet(loanID)
	if !ok || record.State != LoanActive {
		return ErrInvalidState
	}
	owner, ok := e.notes.OwnerOf(record.LenderNoteID)
	if !ok || owner != caller {
		return ErrOnlyLender
	}
	dueDate := record.StartDate + int64(record.Terms.DurationSecs) + int64(e.gracePeriod)
	if e.now() < dueDate {
		return ErrNotExpired
	}
	// Verify custody before the fee moves; a vault rejection after the fee
	// pull would leave a partial state change.
	if holder, held := e.custody.Owner(record.Terms.Collateral); !held || holder != e.moduleAddress {
		return ErrCollateralCustody
	}

	currency := record.Terms.PayableCurrency
	fee := feeAmount(record.Balance, e.feeRate(feeschedule.FeeClaim))
	if fee.Sign() > 0 {
		if err := e.transferToken(caller, e.moduleAddress, currency, fee); err != nil {
			return err
		}
		if err := e.affiliates.CreditFee(currency, record.Terms.AffiliateCode, fee); err != nil {
			return err
		}
	}
	if err := e.custody.Transfer(record.Terms.Collateral, e.moduleAddress, caller); err != nil {
		return err
	}

	record.State = LoanClaimed
	if err := e.state.ClearCollateralLoan(record.Terms.Collateral.IndexKey()); err != nil {
		return err
	}
	if err := e.notes.Burn(record.BorrowerNoteID); err != nil {
		return err
	}
	if !e.receiptOutstanding(loanID) {
		if err := e.notes.Burn(record.LenderNoteID); err != nil {
			return err
		}
	}
	if err := e.state.LoanPut(record); err != nil {
		return err
	}
	e.emit(NewClaimedEvent(record, caller, fee))
	return nil
}

// RedeemNote pays out a deferred settlement. The live redeem fee is deducted
// from the receipt and retained as protocol balance; the remainder goes to
// the destination chosen by the note holder, which may differ from the caller
// to support delegated redemption. The receipt is zeroed atomically with the
// payout, so a second redemption fails.
//
// Redemption waits until the loan leaves Active: a partial deferred
// settlement accumulates into the receipt while the lender note must stay
// live, because burning it early would strand the remaining balance with no
// payable lender and no claimant.
func (e *Engine) RedeemNote(loanID uint64, caller, to [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.notes == nil {
		return errNilNotes
	}
	if e.affiliates == nil {
		return errNilAffiliates
	}
	if to == ([20]byte{}) {
		return ErrZeroAddress
	}
	receipt, ok := e.state.ReceiptGet(loanID)
	if !ok || receipt == nil || receipt.Amount == nil || receipt.Amount.Sign() == 0 {
		return ErrNoReceipt
	}
	record, ok := e.state.LoanGet(loanID)
	if !ok || record.State == LoanActive {
		return ErrInvalidState
	}
	owner, ok := e.notes.OwnerOf(record.LenderNoteID)
	if !ok || owner != caller {
		return ErrOnlyLender
	}

	fee := feeAmount(receipt.Amount, e.feeRate(feeschedule.FeeRedeem))
	payout := new(big.Int).Sub(receipt.Amount, fee)
	if payout.Sign() > 0 {
		if err := e.transferToken(e.moduleAddress, to, receipt.Token, payout); err != nil {
			return err
		}
	}
	if err := e.affiliates.CreditFee(receipt.Token, record.Terms.AffiliateCode, fee); err != nil {
		return err
	}
	if err := e.notes.Burn(record.LenderNoteID); err != nil {
		return err
	}
	receipt.Amount = big.NewInt(0)
	if err := e.state.ReceiptPut(loanID, receipt); err != nil {
		return err
	}
	e.emit(NewNoteRedeemedEvent(loanID, caller, to, payout, fee))
	return nil
}

// Rollover atomically settles an Active loan and originates a replacement on
// the same collateral, netting the borrower-side cash flows so only the
// differential moves. The caller-specified settlement amount must equal that
// differential exactly.
func (e *Engine) Rollover(loanID uint64, caller, newLender [20]byte, newTerms LoanTerms, settlement *big.Int) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if e.notes == nil {
		return 0, errNilNotes
	}
	if e.affiliates == nil {
		return 0, errNilAffiliates
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if !e.state.HasRole(nativecommon.RoleLoanOriginator, caller) {
		return 0, ErrUnauthorized
	}
	if newLender == ([20]byte{}) {
		return 0, ErrZeroAddress
	}
	record, ok := e.state.LoanGet(loanID)
	if !ok || record.State != LoanActive {
		return 0, ErrInvalidState
	}
	newTerms = newTerms.Clone()
	newTerms.PayableCurrency = types.NormalizeCurrency(newTerms.PayableCurrency)
	if newTerms.Principal.Sign() <= 0 || newTerms.DurationSecs == 0 {
		return 0, ErrInvalidTerms
	}
	// The replacement loan reuses the escrowed collateral and must settle in
	// the same currency for the flows to net.
	if newTerms.Collateral != record.Terms.Collateral || newTerms.PayableCurrency != record.Terms.PayableCurrency {
		return 0, ErrInvalidTerms
	}

	borrower, ok := e.notes.OwnerOf(record.BorrowerNoteID)
	if !ok {
		return 0, ErrInvalidState
	}
	oldLender, ok := e.notes.OwnerOf(record.LenderNoteID)
	if !ok {
		return 0, ErrInvalidState
	}

	currency := record.Terms.PayableCurrency
	interestDue := interestOwed(record.Balance, record.Terms.InterestRateBps)
	owed := new(big.Int).Add(record.Balance, interestDue)
	interestFee := feeAmount(interestDue, e.feeRate(feeschedule.FeeInterestShare))
	principalFee := feeAmount(record.Balance, e.feeRate(feeschedule.FeePrincipalShare))
	oldFee := new(big.Int).Add(interestFee, principalFee)
	lenderNet := new(big.Int).Sub(owed, oldFee)

	newFee := feeAmount(newTerms.Principal, e.feeRate(feeschedule.FeeOrigination))
	borrowerNet := new(big.Int).Sub(newTerms.Principal, newFee)

	// Net borrower flow: positive means the borrower receives the surplus of
	// the new payout over the old obligation, negative means they top up.
	diff := new(big.Int).Sub(borrowerNet, owed)
	if cloneBigInt(settlement).CmpAbs(diff) != 0 {
		return 0, ErrCannotSettle
	}

	if err := e.transferToken(newLender, e.moduleAddress, currency, newTerms.Principal); err != nil {
		return 0, err
	}
	if diff.Sign() < 0 {
		if err := e.transferToken(borrower, e.moduleAddress, currency, new(big.Int).Neg(diff)); err != nil {
			return 0, err
		}
	} else if diff.Sign() > 0 {
		if err := e.transferToken(e.moduleAddress, borrower, currency, diff); err != nil {
			return 0, err
		}
	}
	if _, err := e.settleLender(loanID, oldLender, currency, lenderNet, false); err != nil {
		return 0, err
	}
	if err := e.affiliates.CreditFee(currency, record.Terms.AffiliateCode, oldFee); err != nil {
		return 0, err
	}
	if err := e.affiliates.CreditFee(currency, newTerms.AffiliateCode, newFee); err != nil {
		return 0, err
	}

	record.InterestAmountPaid = new(big.Int).Add(record.InterestAmountPaid, interestDue)
	record.BalancePaid = new(big.Int).Add(record.BalancePaid, record.Balance)
	record.Balance = big.NewInt(0)
	record.State = LoanRepaid
	if err := e.notes.Burn(record.BorrowerNoteID); err != nil {
		return 0, err
	}
	if !e.receiptOutstanding(loanID) {
		if err := e.notes.Burn(record.LenderNoteID); err != nil {
			return 0, err
		}
	}
	if err := e.state.LoanPut(record); err != nil {
		return 0, err
	}

	borrowerNote, err := e.notes.Mint(borrower)
	if err != nil {
		return 0, err
	}
	lenderNote, err := e.notes.Mint(newLender)
	if err != nil {
		return 0, err
	}
	newID, err := e.state.NextLoanID()
	if err != nil {
		return 0, err
	}
	replacement := &LoanRecord{
		ID:                 newID,
		State:              LoanActive,
		StartDate:          e.now(),
		Terms:              newTerms,
		Balance:            new(big.Int).Set(newTerms.Principal),
		InterestAmountPaid: big.NewInt(0),
		BalancePaid:        big.NewInt(0),
		BorrowerNoteID:     borrowerNote,
		LenderNoteID:       lenderNote,
	}
	if err := e.state.LoanPut(replacement); err != nil {
		return 0, err
	}
	if err := e.state.SetCollateralLoan(newTerms.Collateral.IndexKey(), newID); err != nil {
		return 0, err
	}
	e.emit(NewRolledOverEvent(record, replacement, settlement))
	return newID, nil
}

// Withdraw drains part of an account's withdrawable fee balance to the chosen
// destination. The protocol treasury withdraws through the same path as any
// affiliate.
func (e *Engine) Withdraw(currency string, caller [20]byte, amount *big.Int, to [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.affiliates == nil {
		return errNilAffiliates
	}
	currency = types.NormalizeCurrency(currency)
	if currency == "" || to == ([20]byte{}) || caller == ([20]byte{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	available := e.affiliates.Withdrawable(currency, caller)
	if available.Cmp(amount) < 0 {
		return ErrCannotWithdraw
	}
	if err := e.transferToken(e.moduleAddress, to, currency, amount); err != nil {
		return err
	}
	if err := e.affiliates.Debit(currency, caller, amount); err != nil {
		return err
	}
	e.emit(NewFeesWithdrawnEvent(currency, caller, to, amount))
	return nil
}

// GetLoan returns a copy of the loan record.
func (e *Engine) GetLoan(loanID uint64) (*LoanRecord, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	record, ok := e.state.LoanGet(loanID)
	if !ok {
		return nil, false
	}
	return record.Clone(), true
}

// GetNoteReceipt returns a copy of the loan's note receipt, if one was ever
// recorded. Drained receipts persist at zero.
func (e *Engine) GetNoteReceipt(loanID uint64) (*NoteReceipt, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	receipt, ok := e.state.ReceiptGet(loanID)
	if !ok || receipt == nil {
		return nil, false
	}
	return receipt.Clone(), true
}

// FeesWithdrawable returns the account's withdrawable fee balance.
func (e *Engine) FeesWithdrawable(currency string, account [20]byte) *big.Int {
	if e == nil || e.affiliates == nil {
		return big.NewInt(0)
	}
	return e.affiliates.Withdrawable(types.NormalizeCurrency(currency), account)
}

// CanCallOn reports whether the account is a party (current borrower-note or
// lender-note holder) to the Active loan backed by the collateral.
func (e *Engine) CanCallOn(account [20]byte, key CollateralKey) bool {
	if e == nil || e.state == nil || e.notes == nil {
		return false
	}
	loanID, ok := e.state.CollateralLoan(key.IndexKey())
	if !ok {
		return false
	}
	record, ok := e.state.LoanGet(loanID)
	if !ok || record.State != LoanActive {
		return false
	}
	if owner, ok := e.notes.OwnerOf(record.BorrowerNoteID); ok && owner == account {
		return true
	}
	if owner, ok := e.notes.OwnerOf(record.LenderNoteID); ok && owner == account {
		return true
	}
	return false
}

// transferToken moves funds between accounts, validating before the first
// mutation so a failed transfer leaves no partial writes. A frozen recipient
// yields ErrRecipientFrozen, which the lender-payout path converts into a
// deferred settlement.
func (e *Engine) transferToken(from, to [20]byte, currency string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return ErrZeroAmount
	}
	if from == to {
		acc, err := e.state.GetAccount(from)
		if err != nil {
			return err
		}
		if acc.Balance(currency).Cmp(amt) < 0 {
			return ErrInsufficientFunds
		}
		return nil
	}
	fromAcc, err := e.state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to)
	if err != nil {
		return err
	}
	if toAcc.Frozen {
		return ErrRecipientFrozen
	}
	fromBal := fromAcc.Balance(currency)
	if fromBal.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	fromAcc.SetBalance(currency, new(big.Int).Sub(fromBal, amt))
	toAcc.SetBalance(currency, new(big.Int).Add(toAcc.Balance(currency), amt))
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}
