package notes

import (
	"errors"
	"testing"
)

var (
	alice = [20]byte{0x01}
	bob   = [20]byte{0x02}
)

func TestMintMonotoneIDs(t *testing.T) {
	r := NewRegistry()
	first, err := r.Mint(alice)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	second, err := r.Mint(alice)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if second <= first {
		t.Fatalf("ids not monotone: %d then %d", first, second)
	}
	if _, err := r.Mint([20]byte{}); err == nil {
		t.Fatal("expected mint to zero address to fail")
	}
}

func TestBurn(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Mint(alice)
	if err := r.Burn(id); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if _, ok := r.OwnerOf(id); ok {
		t.Fatal("burned note still has an owner")
	}
	if err := r.Burn(id); !errors.Is(err, ErrUnknownNote) {
		t.Fatalf("expected unknown-note error, got %v", err)
	}
	// Burned IDs are never reissued.
	next, _ := r.Mint(bob)
	if next == id {
		t.Fatal("burned id was reused")
	}
}

func TestTransfer(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Mint(alice)
	if err := r.Transfer(id, bob, bob); err == nil {
		t.Fatal("expected non-owner transfer to fail")
	}
	if err := r.Transfer(id, alice, bob); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	owner, ok := r.OwnerOf(id)
	if !ok || owner != bob {
		t.Fatalf("owner = %x, want bob", owner)
	}
	if err := r.Transfer(id, bob, [20]byte{}); err == nil {
		t.Fatal("expected transfer to zero address to fail")
	}
	if err := r.Transfer(99, alice, bob); !errors.Is(err, ErrUnknownNote) {
		t.Fatalf("expected unknown-note error, got %v", err)
	}
}
