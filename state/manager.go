package state

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"loanledger/core/types"
	"loanledger/native/affiliate"
	"loanledger/native/loan"
	"loanledger/native/nonce"
	"loanledger/storage"
)

// Manager persists every piece of ledger state behind a flat JSON-encoded
// keyspace. It implements the narrow state interfaces each native engine
// declares: loan records, the active-collateral index, note receipts,
// accounts, affiliate splits, withdrawable balances, nonce records, role
// membership, and the lifecycle switch.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager wraps the database in a state manager.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

const (
	loanSeqKey             = "loan/seq"
	loanRecordPrefix       = "loan/record/"
	collateralIndexPrefix  = "loan/collateral/"
	receiptPrefix          = "loan/receipt/"
	accountPrefix          = "account/"
	affiliateSplitPrefix   = "affiliate/split/"
	affiliateBalancePrefix = "affiliate/balance/"
	noncePrefix            = "nonce/"
	rolePrefix             = "role/"
	pausePrefix            = "pause/"
)

func (m *Manager) getJSON(key string, out interface{}) (bool, error) {
	ok, err := m.db.Has([]byte(key))
	if err != nil || !ok {
		return false, err
	}
	raw, err := m.db.Get([]byte(key))
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return m.db.Put([]byte(key), raw)
}

// --- loan records ---

func loanRecordKey(id uint64) string {
	return loanRecordPrefix + strconv.FormatUint(id, 10)
}

func (m *Manager) LoanPut(record *loan.LoanRecord) error {
	if record == nil {
		return fmt.Errorf("state: nil loan record")
	}
	return m.putJSON(loanRecordKey(record.ID), record)
}

func (m *Manager) LoanGet(id uint64) (*loan.LoanRecord, bool) {
	record := &loan.LoanRecord{}
	ok, err := m.getJSON(loanRecordKey(id), record)
	if err != nil || !ok {
		return nil, false
	}
	return record, true
}

// NextLoanID assigns loan identifiers monotonically starting at 1.
func (m *Manager) NextLoanID() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var seq uint64
	if _, err := m.getJSON(loanSeqKey, &seq); err != nil {
		return 0, err
	}
	seq++
	if err := m.putJSON(loanSeqKey, seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// --- active-collateral index ---

func collateralKey(key [32]byte) string {
	return collateralIndexPrefix + hex.EncodeToString(key[:])
}

func (m *Manager) CollateralLoan(key [32]byte) (uint64, bool) {
	var id uint64
	ok, err := m.getJSON(collateralKey(key), &id)
	if err != nil || !ok {
		return 0, false
	}
	return id, true
}

func (m *Manager) SetCollateralLoan(key [32]byte, loanID uint64) error {
	return m.putJSON(collateralKey(key), loanID)
}

func (m *Manager) ClearCollateralLoan(key [32]byte) error {
	return m.db.Delete([]byte(collateralKey(key)))
}

// --- note receipts ---

func receiptKey(loanID uint64) string {
	return receiptPrefix + strconv.FormatUint(loanID, 10)
}

func (m *Manager) ReceiptPut(loanID uint64, receipt *loan.NoteReceipt) error {
	if receipt == nil {
		return fmt.Errorf("state: nil note receipt")
	}
	return m.putJSON(receiptKey(loanID), receipt)
}

func (m *Manager) ReceiptGet(loanID uint64) (*loan.NoteReceipt, bool) {
	receipt := &loan.NoteReceipt{}
	ok, err := m.getJSON(receiptKey(loanID), receipt)
	if err != nil || !ok {
		return nil, false
	}
	if receipt.Amount == nil {
		receipt.Amount = big.NewInt(0)
	}
	return receipt, true
}

// --- accounts ---

func accountKey(addr [20]byte) string {
	return accountPrefix + hex.EncodeToString(addr[:])
}

// GetAccount returns the stored account, or a fresh zero-balance account when
// the address has never been seen.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	account := types.NewAccount()
	if _, err := m.getJSON(accountKey(addr), account); err != nil {
		return nil, err
	}
	if account.Balances == nil {
		account.Balances = make(map[string]*big.Int)
	}
	return account, nil
}

func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	return m.putJSON(accountKey(addr), account)
}

// --- affiliate splits and withdrawable balances ---

func splitKey(code [32]byte) string {
	return affiliateSplitPrefix + hex.EncodeToString(code[:])
}

func balanceKey(currency string, account [20]byte) string {
	return affiliateBalancePrefix + types.NormalizeCurrency(currency) + "/" + hex.EncodeToString(account[:])
}

func (m *Manager) AffiliateSplitGet(code [32]byte) (*affiliate.Split, bool) {
	split := &affiliate.Split{}
	ok, err := m.getJSON(splitKey(code), split)
	if err != nil || !ok {
		return nil, false
	}
	return split, true
}

func (m *Manager) AffiliateSplitPut(code [32]byte, split *affiliate.Split) error {
	if split == nil {
		return fmt.Errorf("state: nil affiliate split")
	}
	return m.putJSON(splitKey(code), split)
}

type balanceRecord struct {
	Amount *big.Int `json:"amount"`
}

func (m *Manager) WithdrawableGet(currency string, account [20]byte) (*big.Int, error) {
	record := &balanceRecord{}
	ok, err := m.getJSON(balanceKey(currency, account), record)
	if err != nil {
		return nil, err
	}
	if !ok || record.Amount == nil {
		return big.NewInt(0), nil
	}
	return record.Amount, nil
}

func (m *Manager) WithdrawablePut(currency string, account [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return m.putJSON(balanceKey(currency, account), &balanceRecord{Amount: amount})
}

// --- nonce records ---

func nonceKey(signer [20]byte, n uint64) string {
	return noncePrefix + hex.EncodeToString(signer[:]) + "/" + strconv.FormatUint(n, 10)
}

func (m *Manager) NonceGet(signer [20]byte, n uint64) (*nonce.Record, bool) {
	record := &nonce.Record{}
	ok, err := m.getJSON(nonceKey(signer, n), record)
	if err != nil || !ok {
		return nil, false
	}
	return record, true
}

func (m *Manager) NoncePut(signer [20]byte, n uint64, record *nonce.Record) error {
	if record == nil {
		return fmt.Errorf("state: nil nonce record")
	}
	return m.putJSON(nonceKey(signer, n), record)
}

// --- roles ---

func roleKey(role string, addr [20]byte) string {
	return rolePrefix + role + "/" + hex.EncodeToString(addr[:])
}

func (m *Manager) HasRole(role string, addr [20]byte) bool {
	ok, err := m.db.Has([]byte(roleKey(role, addr)))
	return err == nil && ok
}

// GrantRole adds the address to the role's membership set.
func (m *Manager) GrantRole(role string, addr [20]byte) error {
	return m.db.Put([]byte(roleKey(role, addr)), []byte{1})
}

// RevokeRole removes the address from the role's membership set.
func (m *Manager) RevokeRole(role string, addr [20]byte) error {
	return m.db.Delete([]byte(roleKey(role, addr)))
}

// --- lifecycle switch ---

func pauseKey(module string) string {
	return pausePrefix + module
}

func (m *Manager) IsPaused(module string) bool {
	var paused bool
	ok, err := m.getJSON(pauseKey(module), &paused)
	return err == nil && ok && paused
}

// SetPaused engages or releases the lifecycle switch for a module. Guarded
// entry points (origination, nonce consumption) reject calls while engaged;
// exit paths stay available.
func (m *Manager) SetPaused(module string, paused bool) error {
	return m.putJSON(pauseKey(module), paused)
}
