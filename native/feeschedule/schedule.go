package feeschedule

import (
	"errors"
	"fmt"
	"sync"

	nativecommon "loanledger/native/common"
)

// FeeKind identifies a named rate in the schedule. The loan engine reads each
// kind live at the moment of the settlement action it prices.
type FeeKind uint8

const (
	// FeeOrigination is charged against the principal when a loan starts.
	FeeOrigination FeeKind = iota
	// FeeInterestShare is the protocol share of the interest portion of a
	// repayment.
	FeeInterestShare
	// FeePrincipalShare is the protocol share of the principal portion of a
	// repayment.
	FeePrincipalShare
	// FeeClaim is charged to the lender when defaulted collateral is claimed.
	FeeClaim
	// FeeRedeem is deducted from a note receipt when it is redeemed.
	FeeRedeem
)

func (k FeeKind) Valid() bool {
	switch k {
	case FeeOrigination, FeeInterestShare, FeePrincipalShare, FeeClaim, FeeRedeem:
		return true
	default:
		return false
	}
}

func (k FeeKind) String() string {
	switch k {
	case FeeOrigination:
		return "origination"
	case FeeInterestShare:
		return "interest_share"
	case FeePrincipalShare:
		return "principal_share"
	case FeeClaim:
		return "claim"
	case FeeRedeem:
		return "redeem"
	default:
		return "unknown"
	}
}

const maxRateBps uint64 = 10_000

var (
	ErrUnknownFeeKind = errors.New("fee schedule: unknown fee kind")
	ErrUnauthorized   = errors.New("fee schedule: caller missing fee admin role")
)

// Schedule is the administrator-mutable source of basis-point fee rates. Rates
// may change at any time; in-flight loans see the new rate at their next
// settlement action. The schedule is read-only to the loan engine.
type Schedule struct {
	mu    sync.RWMutex
	rates map[FeeKind]uint64
	roles nativecommon.RoleView
}

// New returns an empty schedule; every rate defaults to zero basis points.
func New() *Schedule {
	return &Schedule{rates: make(map[FeeKind]uint64)}
}

// SetRoles wires the role registry consulted by SetRate.
func (s *Schedule) SetRoles(roles nativecommon.RoleView) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.roles = roles
	s.mu.Unlock()
}

// FeeRate returns the current basis-point rate for the fee kind. Unknown or
// unset kinds read as zero.
func (s *Schedule) FeeRate(kind FeeKind) uint64 {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rates[kind]
}

// SetRate updates a rate. Only callers holding the fee admin role may mutate
// the schedule when a role registry is wired.
func (s *Schedule) SetRate(caller [20]byte, kind FeeKind, bps uint64) error {
	if s == nil {
		return errors.New("fee schedule: not initialised")
	}
	if !kind.Valid() {
		return ErrUnknownFeeKind
	}
	if bps > maxRateBps {
		return fmt.Errorf("fee schedule: rate %d exceeds %d bps", bps, maxRateBps)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roles != nil && !s.roles.HasRole(nativecommon.RoleFeeAdmin, caller) {
		return ErrUnauthorized
	}
	s.rates[kind] = bps
	return nil
}
