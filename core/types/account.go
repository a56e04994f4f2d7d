package types

import (
	"math/big"
	"strings"
)

// Account holds the fungible balances the ledger tracks for a single address,
// keyed by normalised currency symbol. Balances are denominated in the
// smallest unit of each currency and expressed as big integers so settlement
// math never loses precision.
type Account struct {
	Balances map[string]*big.Int `json:"balances"`
	// Frozen marks an account that cannot receive transfers. Settlement
	// toward a frozen lender is deferred into a note receipt instead of
	// failing the whole repayment.
	Frozen bool `json:"frozen,omitempty"`
}

// NewAccount returns an account with an initialised balance map.
func NewAccount() *Account {
	return &Account{Balances: make(map[string]*big.Int)}
}

// NormalizeCurrency canonicalises currency symbols for consistent lookups.
func NormalizeCurrency(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Balance returns the stored balance entry for the currency, creating a zero
// entry when absent. The returned value aliases the account state; callers
// replace it rather than mutating in place.
func (a *Account) Balance(currency string) *big.Int {
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	key := NormalizeCurrency(currency)
	bal, ok := a.Balances[key]
	if !ok || bal == nil {
		bal = big.NewInt(0)
		a.Balances[key] = bal
	}
	return bal
}

// SetBalance replaces the stored balance for the currency.
func (a *Account) SetBalance(currency string, amount *big.Int) {
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.Balances[NormalizeCurrency(currency)] = amount
}

// Clone returns a deep copy of the account so callers can safely mutate the
// copy without affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return NewAccount()
	}
	clone := &Account{Frozen: a.Frozen, Balances: make(map[string]*big.Int, len(a.Balances))}
	for currency, bal := range a.Balances {
		if bal == nil {
			clone.Balances[currency] = big.NewInt(0)
			continue
		}
		clone.Balances[currency] = new(big.Int).Set(bal)
	}
	return clone
}
