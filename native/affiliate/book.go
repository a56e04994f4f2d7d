package affiliate

import (
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"loanledger/core/events"
	nativecommon "loanledger/native/common"
)

var (
	ErrArrayLengthMismatch = errors.New("affiliate book: codes and splits length mismatch")
	ErrOverMaxSplit        = errors.New("affiliate book: split exceeds configured maximum")
	ErrCodeAlreadySet      = errors.New("affiliate book: code already registered")
	ErrZeroRecipient       = errors.New("affiliate book: split recipient is the zero address")
	ErrUnauthorized        = errors.New("affiliate book: caller missing affiliate admin role")

	errNilState = errors.New("affiliate book: state not configured")
)

var basisPoints = big.NewInt(10_000)

// Split is the write-once revenue share registered for an affiliate code. Once
// stored, neither field can ever change, including revocation to zero.
type Split struct {
	Recipient [20]byte `json:"recipient"`
	SplitBps  uint64   `json:"splitBps"`
}

type bookState interface {
	AffiliateSplitGet(code [32]byte) (*Split, bool)
	AffiliateSplitPut(code [32]byte, split *Split) error
	WithdrawableGet(currency string, account [20]byte) (*big.Int, error)
	WithdrawablePut(currency string, account [20]byte, amount *big.Int) error
	HasRole(role string, addr [20]byte) bool
}

// Book tracks affiliate revenue splits and the withdrawable fee balances they
// feed. Balances only ever grow through CreditFee and shrink through Debit;
// entries persist at zero after being drained.
type Book struct {
	state       bookState
	emitter     events.Emitter
	treasury    [20]byte
	maxSplitBps uint64
}

// NewBook creates an affiliate book routing the non-affiliate share of every
// fee to the protocol treasury account.
func NewBook(treasury [20]byte, maxSplitBps uint64) *Book {
	return &Book{
		emitter:     events.NoopEmitter{},
		treasury:    treasury,
		maxSplitBps: maxSplitBps,
	}
}

// SetState wires the book to the external persistence layer.
func (b *Book) SetState(state bookState) { b.state = state }

// SetEmitter configures the event emitter used by the book. Passing nil resets
// the emitter to a no-op implementation.
func (b *Book) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		b.emitter = events.NoopEmitter{}
		return
	}
	b.emitter = emitter
}

// Treasury returns the protocol fee account.
func (b *Book) Treasury() [20]byte { return b.treasury }

// DeriveCode returns the canonical affiliate code for a recipient and salt.
// Callers hand the code to borrowers out of band; the ledger only ever sees
// the opaque 32 bytes.
func DeriveCode(recipient [20]byte, salt [32]byte) [32]byte {
	return ethcrypto.Keccak256Hash(recipient[:], salt[:])
}

// SetSplits registers a batch of affiliate codes. Each code is write-once:
// any subsequent call for the same code fails, even to change the split to
// zero.
func (b *Book) SetSplits(caller [20]byte, codes [][32]byte, splits []Split) error {
	if b == nil || b.state == nil {
		return errNilState
	}
	if len(codes) != len(splits) {
		return ErrArrayLengthMismatch
	}
	if !b.state.HasRole(nativecommon.RoleAffiliateAdmin, caller) {
		return ErrUnauthorized
	}
	for i := range codes {
		if splits[i].SplitBps > b.maxSplitBps {
			return ErrOverMaxSplit
		}
		if splits[i].Recipient == ([20]byte{}) {
			return ErrZeroRecipient
		}
		if _, ok := b.state.AffiliateSplitGet(codes[i]); ok {
			return ErrCodeAlreadySet
		}
	}
	for i := range codes {
		split := splits[i]
		if err := b.state.AffiliateSplitPut(codes[i], &split); err != nil {
			return err
		}
		b.emit(NewSplitSetEvent(codes[i], &split))
	}
	return nil
}

// SplitFor returns the registered split for the code, if any.
func (b *Book) SplitFor(code [32]byte) (*Split, bool) {
	if b == nil || b.state == nil {
		return nil, false
	}
	return b.state.AffiliateSplitGet(code)
}

// CreditFee records a collected protocol fee, routing the affiliate share to
// the code's recipient and the remainder to the treasury. A zero code or an
// unregistered code credits the treasury in full. The remainder always
// absorbs rounding so the two credits sum to the fee exactly.
func (b *Book) CreditFee(currency string, code [32]byte, fee *big.Int) error {
	if b == nil || b.state == nil {
		return errNilState
	}
	if fee == nil || fee.Sign() <= 0 {
		return nil
	}
	affiliateShare := big.NewInt(0)
	var recipient [20]byte
	if code != ([32]byte{}) {
		if split, ok := b.state.AffiliateSplitGet(code); ok {
			recipient = split.Recipient
			affiliateShare = new(big.Int).Mul(fee, new(big.Int).SetUint64(split.SplitBps))
			affiliateShare.Quo(affiliateShare, basisPoints)
		}
	}
	treasuryShare := new(big.Int).Sub(fee, affiliateShare)
	if affiliateShare.Sign() > 0 {
		if err := b.credit(currency, recipient, affiliateShare); err != nil {
			return err
		}
	}
	if treasuryShare.Sign() > 0 {
		if err := b.credit(currency, b.treasury, treasuryShare); err != nil {
			return err
		}
	}
	return nil
}

// Withdrawable returns the balance the account may withdraw in the currency.
func (b *Book) Withdrawable(currency string, account [20]byte) *big.Int {
	if b == nil || b.state == nil {
		return big.NewInt(0)
	}
	bal, err := b.state.WithdrawableGet(currency, account)
	if err != nil || bal == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bal)
}

// Debit reduces the account's withdrawable balance after a successful payout.
// The caller is responsible for moving the underlying funds first.
func (b *Book) Debit(currency string, account [20]byte, amount *big.Int) error {
	if b == nil || b.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errors.New("affiliate book: debit amount must be positive")
	}
	bal, err := b.state.WithdrawableGet(currency, account)
	if err != nil {
		return err
	}
	if bal == nil {
		bal = big.NewInt(0)
	}
	if bal.Cmp(amount) < 0 {
		return errors.New("affiliate book: debit exceeds balance")
	}
	return b.state.WithdrawablePut(currency, account, new(big.Int).Sub(bal, amount))
}

func (b *Book) credit(currency string, account [20]byte, amount *big.Int) error {
	bal, err := b.state.WithdrawableGet(currency, account)
	if err != nil {
		return err
	}
	if bal == nil {
		bal = big.NewInt(0)
	}
	return b.state.WithdrawablePut(currency, account, new(big.Int).Add(bal, amount))
}

func (b *Book) emit(event events.Event) {
	if b == nil || b.emitter == nil || event == nil {
		return
	}
	b.emitter.Emit(event)
}
