package nonce

import (
	"errors"
	"testing"

	nativecommon "loanledger/native/common"
)

type mockRegistryState struct {
	records map[[20]byte]map[uint64]*Record
	roles   map[[20]byte]bool
}

func newMockRegistryState() *mockRegistryState {
	return &mockRegistryState{
		records: make(map[[20]byte]map[uint64]*Record),
		roles:   make(map[[20]byte]bool),
	}
}

func (m *mockRegistryState) NonceGet(signer [20]byte, nonce uint64) (*Record, bool) {
	record, ok := m.records[signer][nonce]
	return record, ok
}

func (m *mockRegistryState) NoncePut(signer [20]byte, nonce uint64, record *Record) error {
	if m.records[signer] == nil {
		m.records[signer] = make(map[uint64]*Record)
	}
	m.records[signer][nonce] = record
	return nil
}

func (m *mockRegistryState) HasRole(role string, addr [20]byte) bool {
	return role == nativecommon.RoleLoanOriginator && m.roles[addr]
}

type stubPauses struct{ paused bool }

func (s stubPauses) IsPaused(string) bool { return s.paused }

var (
	nonceOriginator = [20]byte{0x01}
	nonceSigner     = [20]byte{0x02}
)

func newTestRegistry() (*Registry, *mockRegistryState) {
	st := newMockRegistryState()
	st.roles[nonceOriginator] = true
	return NewRegistry(st), st
}

func TestConsumeBoundedUses(t *testing.T) {
	registry, _ := newTestRegistry()
	const maxUses = 3
	for i := 0; i < maxUses; i++ {
		if err := registry.Consume(nonceOriginator, nonceSigner, 7, maxUses); err != nil {
			t.Fatalf("use %d: %v", i+1, err)
		}
	}
	if !registry.IsUsed(nonceSigner, 7) {
		t.Fatal("nonce should be exhausted")
	}
	if err := registry.Consume(nonceOriginator, nonceSigner, 7, maxUses); !errors.Is(err, ErrNonceUsed) {
		t.Fatalf("expected used error, got %v", err)
	}
}

func TestConsumeSingleUse(t *testing.T) {
	registry, _ := newTestRegistry()
	if err := registry.Consume(nonceOriginator, nonceSigner, 1, 1); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := registry.Consume(nonceOriginator, nonceSigner, 1, 1); !errors.Is(err, ErrNonceUsed) {
		t.Fatalf("expected used error, got %v", err)
	}
	// A different nonce for the same signer is independent.
	if err := registry.Consume(nonceOriginator, nonceSigner, 2, 1); err != nil {
		t.Fatalf("independent nonce: %v", err)
	}
	if err := registry.Consume(nonceOriginator, nonceSigner, 3, 0); !errors.Is(err, ErrNonceUsed) {
		t.Fatalf("maxUses zero should never consume, got %v", err)
	}
}

func TestConsumeRequiresOriginatorRole(t *testing.T) {
	registry, _ := newTestRegistry()
	if err := registry.Consume(nonceSigner, nonceSigner, 1, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	registry, _ := newTestRegistry()
	if err := registry.Consume(nonceOriginator, nonceSigner, 5, 10); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := registry.Cancel(nonceSigner, 5); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !registry.IsUsed(nonceSigner, 5) {
		t.Fatal("cancelled nonce should read as used")
	}
	// Cancellation wins over the remaining use count permanently.
	if err := registry.Consume(nonceOriginator, nonceSigner, 5, 10); !errors.Is(err, ErrNonceUsed) {
		t.Fatalf("expected used error after cancel, got %v", err)
	}
	// Cancelling a never-consumed nonce pre-invalidates it.
	if err := registry.Cancel(nonceSigner, 6); err != nil {
		t.Fatalf("cancel fresh: %v", err)
	}
	if err := registry.Consume(nonceOriginator, nonceSigner, 6, 1); !errors.Is(err, ErrNonceUsed) {
		t.Fatalf("expected used error, got %v", err)
	}
}

func TestNonceOpsBlockedWhilePaused(t *testing.T) {
	registry, _ := newTestRegistry()
	registry.SetPauses(stubPauses{paused: true})
	if err := registry.Consume(nonceOriginator, nonceSigner, 1, 1); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if err := registry.Cancel(nonceSigner, 1); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
}

func TestIsUsedUnknownNonce(t *testing.T) {
	registry, _ := newTestRegistry()
	if registry.IsUsed(nonceSigner, 42) {
		t.Fatal("unknown nonce should not read as used")
	}
}
