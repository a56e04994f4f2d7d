package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"loanledger/native/affiliate"
	"loanledger/native/loan"
	"loanledger/native/nonce"
	"loanledger/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db)
}

func TestLoanRoundTrip(t *testing.T) {
	m := newTestManager(t)

	_, ok := m.LoanGet(1)
	require.False(t, ok)

	record := &loan.LoanRecord{
		ID:        1,
		State:     loan.LoanActive,
		StartDate: 1_700_000_000,
		Terms: loan.LoanTerms{
			DurationSecs:    86_400,
			Principal:       big.NewInt(1_000),
			InterestRateBps: 1_000,
			Collateral:      loan.CollateralKey{Address: [20]byte{0xC0}, ID: 7},
			PayableCurrency: "USDX",
		},
		Balance:            big.NewInt(1_000),
		InterestAmountPaid: big.NewInt(0),
		BalancePaid:        big.NewInt(0),
		BorrowerNoteID:     1,
		LenderNoteID:       2,
	}
	require.NoError(t, m.LoanPut(record))

	got, ok := m.LoanGet(1)
	require.True(t, ok)
	require.Equal(t, record.State, got.State)
	require.Equal(t, record.Terms.Collateral, got.Terms.Collateral)
	require.Zero(t, record.Balance.Cmp(got.Balance))
	require.Equal(t, record.LenderNoteID, got.LenderNoteID)
}

func TestNextLoanIDMonotone(t *testing.T) {
	m := newTestManager(t)
	first, err := m.NextLoanID()
	require.NoError(t, err)
	require.Equal(t, uint64(1), first)
	second, err := m.NextLoanID()
	require.NoError(t, err)
	require.Equal(t, uint64(2), second)
}

func TestCollateralIndex(t *testing.T) {
	m := newTestManager(t)
	key := (loan.CollateralKey{Address: [20]byte{0xC0}, ID: 7}).IndexKey()

	_, ok := m.CollateralLoan(key)
	require.False(t, ok)

	require.NoError(t, m.SetCollateralLoan(key, 3))
	id, ok := m.CollateralLoan(key)
	require.True(t, ok)
	require.Equal(t, uint64(3), id)

	require.NoError(t, m.ClearCollateralLoan(key))
	_, ok = m.CollateralLoan(key)
	require.False(t, ok)
}

func TestReceiptRoundTrip(t *testing.T) {
	m := newTestManager(t)

	_, ok := m.ReceiptGet(9)
	require.False(t, ok)

	require.NoError(t, m.ReceiptPut(9, &loan.NoteReceipt{Token: "USDX", Amount: big.NewInt(106)}))
	receipt, ok := m.ReceiptGet(9)
	require.True(t, ok)
	require.Equal(t, "USDX", receipt.Token)
	require.Zero(t, receipt.Amount.Cmp(big.NewInt(106)))

	// Drained receipts persist at zero rather than disappearing.
	require.NoError(t, m.ReceiptPut(9, &loan.NoteReceipt{Token: "USDX", Amount: big.NewInt(0)}))
	receipt, ok = m.ReceiptGet(9)
	require.True(t, ok)
	require.Zero(t, receipt.Amount.Sign())
}

func TestAccountRoundTrip(t *testing.T) {
	m := newTestManager(t)
	addr := [20]byte{0x01}

	// Unknown addresses read as fresh zero-balance accounts.
	account, err := m.GetAccount(addr)
	require.NoError(t, err)
	require.Zero(t, account.Balance("USDX").Sign())
	require.False(t, account.Frozen)

	account.SetBalance("USDX", big.NewInt(1_000))
	account.Frozen = true
	require.NoError(t, m.PutAccount(addr, account))

	got, err := m.GetAccount(addr)
	require.NoError(t, err)
	require.Zero(t, got.Balance("USDX").Cmp(big.NewInt(1_000)))
	require.True(t, got.Frozen)
}

func TestAffiliateStateRoundTrip(t *testing.T) {
	m := newTestManager(t)
	recipient := [20]byte{0x0B}
	code := affiliate.DeriveCode(recipient, [32]byte{0x01})

	_, ok := m.AffiliateSplitGet(code)
	require.False(t, ok)
	require.NoError(t, m.AffiliateSplitPut(code, &affiliate.Split{Recipient: recipient, SplitBps: 5_000}))
	split, ok := m.AffiliateSplitGet(code)
	require.True(t, ok)
	require.Equal(t, recipient, split.Recipient)
	require.Equal(t, uint64(5_000), split.SplitBps)

	bal, err := m.WithdrawableGet("USDX", recipient)
	require.NoError(t, err)
	require.Zero(t, bal.Sign())
	require.NoError(t, m.WithdrawablePut("USDX", recipient, big.NewInt(500)))
	bal, err = m.WithdrawableGet("USDX", recipient)
	require.NoError(t, err)
	require.Zero(t, bal.Cmp(big.NewInt(500)))

	// Balances are per-currency.
	bal, err = m.WithdrawableGet("EURX", recipient)
	require.NoError(t, err)
	require.Zero(t, bal.Sign())
}

func TestNonceRoundTrip(t *testing.T) {
	m := newTestManager(t)
	signer := [20]byte{0x02}

	_, ok := m.NonceGet(signer, 7)
	require.False(t, ok)
	require.NoError(t, m.NoncePut(signer, 7, &nonce.Record{UsesRemaining: 2}))
	record, ok := m.NonceGet(signer, 7)
	require.True(t, ok)
	require.Equal(t, uint64(2), record.UsesRemaining)
	require.False(t, record.Cancelled)

	require.NoError(t, m.NoncePut(signer, 7, &nonce.Record{Cancelled: true}))
	record, _ = m.NonceGet(signer, 7)
	require.True(t, record.Cancelled)
}

func TestRoles(t *testing.T) {
	m := newTestManager(t)
	addr := [20]byte{0x03}

	require.False(t, m.HasRole("ROLE_LOAN_ORIGINATOR", addr))
	require.NoError(t, m.GrantRole("ROLE_LOAN_ORIGINATOR", addr))
	require.True(t, m.HasRole("ROLE_LOAN_ORIGINATOR", addr))
	require.False(t, m.HasRole("ROLE_FEE_ADMIN", addr))
	require.NoError(t, m.RevokeRole("ROLE_LOAN_ORIGINATOR", addr))
	require.False(t, m.HasRole("ROLE_LOAN_ORIGINATOR", addr))
}

func TestPauseSwitch(t *testing.T) {
	m := newTestManager(t)
	require.False(t, m.IsPaused("loan"))
	require.NoError(t, m.SetPaused("loan", true))
	require.True(t, m.IsPaused("loan"))
	require.False(t, m.IsPaused("other"))
	require.NoError(t, m.SetPaused("loan", false))
	require.False(t, m.IsPaused("loan"))
}
