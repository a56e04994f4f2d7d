package custody

import (
	"errors"
	"sync"

	"loanledger/native/loan"
)

var (
	// ErrUnknownCollateral is returned for collateral the vault has never seen.
	ErrUnknownCollateral = errors.New("custody vault: unknown collateral")
)

// Vault is the reference collateral-custody collaborator. The loan ledger
// never initiates the deposit; callers pre-position collateral into ledger
// custody before origination and the ledger only verifies ownership and, at
// claim time, releases it to the lender.
type Vault struct {
	mu     sync.RWMutex
	owners map[loan.CollateralKey][20]byte
}

// NewVault creates an empty vault.
func NewVault() *Vault {
	return &Vault{owners: make(map[loan.CollateralKey][20]byte)}
}

// Deposit records collateral held on behalf of an owner. Used by originator
// collaborators (and tests) to pre-position collateral before StartLoan.
func (v *Vault) Deposit(key loan.CollateralKey, owner [20]byte) {
	v.mu.Lock()
	v.owners[key] = owner
	v.mu.Unlock()
}

// Owner returns the address currently holding the collateral.
func (v *Vault) Owner(key loan.CollateralKey) ([20]byte, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	owner, ok := v.owners[key]
	return owner, ok
}

// Transfer moves the collateral between holders. Only the current holder may
// release it.
func (v *Vault) Transfer(key loan.CollateralKey, from, to [20]byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	owner, ok := v.owners[key]
	if !ok {
		return ErrUnknownCollateral
	}
	if owner != from {
		return errors.New("custody vault: transfer from non-holder")
	}
	v.owners[key] = to
	return nil
}
