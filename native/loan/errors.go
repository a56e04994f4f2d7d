package loan

import "errors"

// Every error below maps to a rejected call with no partial state change.
// Callers branch on cause with errors.Is; identifiers are stable.
var (
	// ErrInvalidState is returned for operations against a missing loan or a
	// loan outside the state the operation requires.
	ErrInvalidState = errors.New("loan engine: loan not in required state")
	// ErrCollateralInUse is returned when the collateral already backs an
	// Active loan.
	ErrCollateralInUse = errors.New("loan engine: collateral already backs an active loan")
	// ErrCollateralCustody is returned when the collateral has not been
	// pre-positioned into ledger custody before origination.
	ErrCollateralCustody = errors.New("loan engine: collateral not held by the ledger")
	// ErrCannotSettle is returned when the caller-specified amounts do not
	// reconcile with what the ledger independently computes as owed.
	ErrCannotSettle = errors.New("loan engine: settlement amounts do not reconcile")
	// ErrExceedsBalance is returned when a payment exceeds the recorded
	// outstanding balance.
	ErrExceedsBalance = errors.New("loan engine: payment exceeds outstanding balance")
	// ErrNotExpired is returned when a claim is attempted before the due date
	// plus grace period.
	ErrNotExpired = errors.New("loan engine: loan has not passed its due date")
	// ErrNoReceipt is returned when no outstanding note receipt exists for
	// the loan.
	ErrNoReceipt = errors.New("loan engine: no outstanding note receipt")
	// ErrOnlyLender is returned when the caller does not hold the current
	// lender note.
	ErrOnlyLender = errors.New("loan engine: caller does not hold the lender note")
	// ErrUnauthorized is returned when the caller lacks the role an entry
	// point requires.
	ErrUnauthorized = errors.New("loan engine: caller missing required role")
	// ErrInsufficientFunds is surfaced when a currency transfer cannot be
	// covered by the paying account.
	ErrInsufficientFunds = errors.New("loan engine: insufficient balance")
	// ErrZeroAmount rejects zero-amount withdrawals.
	ErrZeroAmount = errors.New("loan engine: amount must be positive")
	// ErrZeroAddress rejects zero addresses where a recipient is required.
	ErrZeroAddress = errors.New("loan engine: zero address")
	// ErrCannotWithdraw is returned when a withdrawal exceeds the account's
	// withdrawable balance.
	ErrCannotWithdraw = errors.New("loan engine: withdrawal exceeds available balance")
	// ErrInvalidTerms rejects malformed loan terms at origination.
	ErrInvalidTerms = errors.New("loan engine: invalid loan terms")
	// ErrRecipientFrozen is returned when a transfer targets an account that
	// cannot receive funds. Lender payouts intercept it and defer into a note
	// receipt instead; every other transfer surfaces it to the caller.
	ErrRecipientFrozen = errors.New("loan engine: recipient cannot receive funds")
)

var (
	errNilState      = errors.New("loan engine: state not configured")
	errNilNotes      = errors.New("loan engine: note minter not configured")
	errNilCustody    = errors.New("loan engine: collateral vault not configured")
	errNilAffiliates = errors.New("loan engine: affiliate book not configured")
)
