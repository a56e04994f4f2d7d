package notes

import (
	"errors"
	"sync"
)

var (
	// ErrUnknownNote is returned for operations against a note that was never
	// minted or has been burned.
	ErrUnknownNote = errors.New("note registry: unknown note")
)

// Registry is the reference ownership-token collaborator. Each minted note is
// a transferable claim right on a loan; the ledger treats note ownership as
// the sole authorisation for lender-side actions. Note IDs are monotone and
// never reused, so a burned note stays distinguishable from an unminted one.
type Registry struct {
	mu     sync.RWMutex
	next   uint64
	owners map[uint64][20]byte
	burned map[uint64]struct{}
}

// NewRegistry creates an empty note registry.
func NewRegistry() *Registry {
	return &Registry{
		next:   1,
		owners: make(map[uint64][20]byte),
		burned: make(map[uint64]struct{}),
	}
}

// Mint issues a fresh note to the recipient and returns its identifier.
func (r *Registry) Mint(to [20]byte) (uint64, error) {
	if to == ([20]byte{}) {
		return 0, errors.New("note registry: mint to the zero address")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.owners[id] = to
	return id, nil
}

// Burn retires the note. Burning an unknown or already-burned note fails.
func (r *Registry) Burn(noteID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[noteID]; !ok {
		return ErrUnknownNote
	}
	delete(r.owners, noteID)
	r.burned[noteID] = struct{}{}
	return nil
}

// Transfer moves the note to a new owner. Only the current owner may move it.
func (r *Registry) Transfer(noteID uint64, from, to [20]byte) error {
	if to == ([20]byte{}) {
		return errors.New("note registry: transfer to the zero address")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[noteID]
	if !ok {
		return ErrUnknownNote
	}
	if owner != from {
		return errors.New("note registry: transfer from non-owner")
	}
	r.owners[noteID] = to
	return nil
}

// OwnerOf returns the current owner of a live note.
func (r *Registry) OwnerOf(noteID uint64) ([20]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[noteID]
	return owner, ok
}
