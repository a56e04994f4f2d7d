package nonce

import (
	"encoding/hex"
	"errors"
	"strconv"

	"loanledger/core/events"
	"loanledger/core/types"
	nativecommon "loanledger/native/common"
)

const moduleName = "loan"

var (
	// ErrNonceUsed is returned when a nonce has exhausted its permitted uses
	// or was explicitly cancelled by its signer.
	ErrNonceUsed = errors.New("nonce registry: nonce already used")
	// ErrUnauthorized is returned when the caller lacks the originator role
	// required to consume a nonce on behalf of a signer.
	ErrUnauthorized = errors.New("nonce registry: caller missing originator role")

	errNilState = errors.New("nonce registry: state not configured")
)

// Record tracks the remaining uses of a (signer, nonce) pair. Cancellation is
// a permanently-exhausted sentinel regardless of the prior use count.
type Record struct {
	UsesRemaining uint64 `json:"usesRemaining"`
	Cancelled     bool   `json:"cancelled,omitempty"`
}

func (r *Record) exhausted() bool {
	return r == nil || r.Cancelled || r.UsesRemaining == 0
}

type registryState interface {
	NonceGet(signer [20]byte, nonce uint64) (*Record, bool)
	NoncePut(signer [20]byte, nonce uint64, record *Record) error
	HasRole(role string, addr [20]byte) bool
}

// Registry tracks per-signer replay-protection counters. Origination consumes
// a nonce once the upstream signature check has passed; signers cancel their
// own nonces to invalidate outstanding signed offers.
type Registry struct {
	state   registryState
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewRegistry creates a registry backed by the provided state manager.
func NewRegistry(state registryState) *Registry {
	return &Registry{state: state, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets to no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// Consume spends one use of the signer's nonce. The first consumption
// initialises the record with maxUses-1 remaining; once remaining uses reach
// zero, or after cancellation, every further attempt fails. Consumption is
// blocked while the ledger is shut down.
func (r *Registry) Consume(caller, signer [20]byte, nonce uint64, maxUses uint64) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if !r.state.HasRole(nativecommon.RoleLoanOriginator, caller) {
		return ErrUnauthorized
	}
	if maxUses == 0 {
		return ErrNonceUsed
	}
	record, ok := r.state.NonceGet(signer, nonce)
	if !ok {
		record = &Record{UsesRemaining: maxUses - 1}
		if err := r.state.NoncePut(signer, nonce, record); err != nil {
			return err
		}
		r.emit(newNonceEvent(EventTypeNonceConsumed, signer, nonce, record))
		return nil
	}
	if record.exhausted() {
		return ErrNonceUsed
	}
	record.UsesRemaining--
	if err := r.state.NoncePut(signer, nonce, record); err != nil {
		return err
	}
	r.emit(newNonceEvent(EventTypeNonceConsumed, signer, nonce, record))
	return nil
}

// Cancel irrevocably marks the caller's own nonce as used regardless of the
// prior count. Cancellation is self-service but, like consumption, blocked
// while the ledger is shut down.
func (r *Registry) Cancel(caller [20]byte, nonce uint64) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	record, _ := r.state.NonceGet(caller, nonce)
	if record == nil {
		record = &Record{}
	}
	record.UsesRemaining = 0
	record.Cancelled = true
	if err := r.state.NoncePut(caller, nonce, record); err != nil {
		return err
	}
	r.emit(newNonceEvent(EventTypeNonceCancelled, caller, nonce, record))
	return nil
}

// IsUsed reports whether the nonce can no longer be consumed.
func (r *Registry) IsUsed(signer [20]byte, nonce uint64) bool {
	if r == nil || r.state == nil {
		return false
	}
	record, ok := r.state.NonceGet(signer, nonce)
	if !ok {
		return false
	}
	return record.exhausted()
}

const (
	EventTypeNonceConsumed  = "loan.nonce.consumed"
	EventTypeNonceCancelled = "loan.nonce.cancelled"
)

type nonceEvent struct {
	evt *types.Event
}

func (e nonceEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e nonceEvent) Event() *types.Event { return e.evt }

func newNonceEvent(eventType string, signer [20]byte, nonce uint64, record *Record) events.Event {
	attrs := map[string]string{
		"signer": hex.EncodeToString(signer[:]),
		"nonce":  strconv.FormatUint(nonce, 10),
	}
	if record != nil {
		attrs["usesRemaining"] = strconv.FormatUint(record.UsesRemaining, 10)
	}
	return nonceEvent{evt: &types.Event{Type: eventType, Attributes: attrs}}
}

func (r *Registry) emit(event events.Event) {
	if r == nil || r.emitter == nil || event == nil {
		return
	}
	r.emitter.Emit(event)
}
