package custody

import (
	"errors"
	"testing"

	"loanledger/native/loan"
)

func TestVault(t *testing.T) {
	module := [20]byte{0xEE}
	lender := [20]byte{0x02}
	key := loan.CollateralKey{Address: [20]byte{0xC0}, ID: 7}

	v := NewVault()
	if _, ok := v.Owner(key); ok {
		t.Fatal("empty vault reported an owner")
	}
	if err := v.Transfer(key, module, lender); !errors.Is(err, ErrUnknownCollateral) {
		t.Fatalf("expected unknown-collateral error, got %v", err)
	}

	v.Deposit(key, module)
	owner, ok := v.Owner(key)
	if !ok || owner != module {
		t.Fatalf("owner = %x, want module", owner)
	}

	if err := v.Transfer(key, lender, lender); err == nil {
		t.Fatal("expected non-holder transfer to fail")
	}
	if err := v.Transfer(key, module, lender); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	owner, _ = v.Owner(key)
	if owner != lender {
		t.Fatalf("owner after transfer = %x, want lender", owner)
	}
}
