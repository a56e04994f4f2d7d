package loan

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// LoanState represents the lifecycle states of a loan record. Records are
// created Active and transition exactly once into one of the terminal states.
type LoanState uint8

const (
	LoanActive LoanState = iota + 1
	LoanRepaid
	LoanClaimed
)

// Valid reports whether the state value is within the supported range.
func (s LoanState) Valid() bool {
	switch s {
	case LoanActive, LoanRepaid, LoanClaimed:
		return true
	default:
		return false
	}
}

func (s LoanState) String() string {
	switch s {
	case LoanActive:
		return "active"
	case LoanRepaid:
		return "repaid"
	case LoanClaimed:
		return "claimed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state admits no further transitions.
func (s LoanState) Terminal() bool {
	return s == LoanRepaid || s == LoanClaimed
}

// CollateralKey identifies the escrowed asset backing a loan. At most one
// Active loan may reference a given key at any time.
type CollateralKey struct {
	Address [20]byte `json:"address"`
	ID      uint64   `json:"id"`
}

// IndexKey returns the canonical hash under which the active-collateral index
// stores this key.
func (k CollateralKey) IndexKey() [32]byte {
	var id [8]byte
	for i := 0; i < 8; i++ {
		id[i] = byte(k.ID >> (56 - 8*i))
	}
	return ethcrypto.Keccak256Hash(k.Address[:], id[:])
}

// LoanTerms is the immutable agreement supplied by the originator. Signature
// and offer-expiry validation happen upstream; the ledger copies the terms
// verbatim into the loan record at creation.
type LoanTerms struct {
	// DurationSecs is the agreed term length in seconds.
	DurationSecs uint64 `json:"durationSecs"`
	// Principal is the loaned amount in the smallest currency unit.
	Principal *big.Int `json:"principal"`
	// InterestRateBps is the interest owed over the full term, expressed in
	// basis points of the outstanding principal.
	InterestRateBps uint64 `json:"interestRateBps"`
	// Collateral references the asset escrowed for the loan.
	Collateral CollateralKey `json:"collateral"`
	// PayableCurrency is the settlement currency symbol.
	PayableCurrency string `json:"payableCurrency"`
	// Deadline is the offer expiry validated upstream, retained for audit.
	Deadline int64 `json:"deadline"`
	// AffiliateCode entitles a registered affiliate to a share of protocol
	// fees collected for this loan. Zero means none.
	AffiliateCode [32]byte `json:"affiliateCode"`
}

// Clone returns a deep copy of the terms.
func (t LoanTerms) Clone() LoanTerms {
	clone := t
	if t.Principal != nil {
		clone.Principal = new(big.Int).Set(t.Principal)
	} else {
		clone.Principal = big.NewInt(0)
	}
	return clone
}

// LoanRecord is the mutable per-loan state owned exclusively by the ledger.
// Records are never deleted; terminal states are retained for audit.
type LoanRecord struct {
	ID        uint64    `json:"id"`
	State     LoanState `json:"state"`
	StartDate int64     `json:"startDate"`
	Terms     LoanTerms `json:"terms"`
	// Balance is the outstanding principal. It decreases on partial
	// repayment and reaches zero at full payoff.
	Balance *big.Int `json:"balance"`
	// InterestAmountPaid and BalancePaid are cumulative and monotonically
	// non-decreasing across partial repayments.
	InterestAmountPaid *big.Int `json:"interestAmountPaid"`
	BalancePaid        *big.Int `json:"balancePaid"`
	BorrowerNoteID     uint64   `json:"borrowerNoteId"`
	LenderNoteID       uint64   `json:"lenderNoteId"`
}

// Clone returns a deep copy of the record so callers can safely mutate the
// copy without affecting the stored instance.
func (l *LoanRecord) Clone() *LoanRecord {
	if l == nil {
		return nil
	}
	clone := *l
	clone.Terms = l.Terms.Clone()
	clone.Balance = cloneBigInt(l.Balance)
	clone.InterestAmountPaid = cloneBigInt(l.InterestAmountPaid)
	clone.BalancePaid = cloneBigInt(l.BalancePaid)
	return &clone
}

// NoteReceipt holds a claimable-but-undelivered lender payout. The amount is
// non-zero only while a deferred settlement remains unredeemed and is zeroed
// exactly once on redemption.
type NoteReceipt struct {
	Token  string   `json:"token"`
	Amount *big.Int `json:"amount"`
}

// Clone returns a deep copy of the receipt.
func (r *NoteReceipt) Clone() *NoteReceipt {
	if r == nil {
		return nil
	}
	return &NoteReceipt{Token: r.Token, Amount: cloneBigInt(r.Amount)}
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
