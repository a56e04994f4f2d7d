package feeschedule

import (
	"errors"
	"testing"

	nativecommon "loanledger/native/common"
)

type stubRoles struct {
	admins map[[20]byte]bool
}

func (s stubRoles) HasRole(role string, addr [20]byte) bool {
	return role == nativecommon.RoleFeeAdmin && s.admins[addr]
}

func TestScheduleDefaultsToZero(t *testing.T) {
	s := New()
	for _, kind := range []FeeKind{FeeOrigination, FeeInterestShare, FeePrincipalShare, FeeClaim, FeeRedeem} {
		if got := s.FeeRate(kind); got != 0 {
			t.Fatalf("%s: default rate = %d, want 0", kind, got)
		}
	}
}

func TestScheduleSetRate(t *testing.T) {
	s := New()
	if err := s.SetRate([20]byte{}, FeeOrigination, 250); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	if got := s.FeeRate(FeeOrigination); got != 250 {
		t.Fatalf("rate = %d, want 250", got)
	}
	// The full range up to 100% is accepted, anything above is not.
	if err := s.SetRate([20]byte{}, FeeClaim, 10_000); err != nil {
		t.Fatalf("set 10000 bps: %v", err)
	}
	if err := s.SetRate([20]byte{}, FeeClaim, 10_001); err == nil {
		t.Fatal("expected error above 10000 bps")
	}
	if err := s.SetRate([20]byte{}, FeeKind(99), 1); !errors.Is(err, ErrUnknownFeeKind) {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestScheduleRoleCheck(t *testing.T) {
	admin := [20]byte{0x01}
	outsider := [20]byte{0x02}
	s := New()
	s.SetRoles(stubRoles{admins: map[[20]byte]bool{admin: true}})

	if err := s.SetRate(outsider, FeeRedeem, 100); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := s.SetRate(admin, FeeRedeem, 100); err != nil {
		t.Fatalf("admin set rate: %v", err)
	}
	if got := s.FeeRate(FeeRedeem); got != 100 {
		t.Fatalf("rate = %d, want 100", got)
	}
}
