package routes

import (
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"loanledger/native/loan"
)

type stubLedger struct {
	loans    map[uint64]*loan.LoanRecord
	receipts map[uint64]*loan.NoteReceipt
	fees     map[string]*big.Int
	parties  map[[20]byte]bool
}

func (s *stubLedger) GetLoan(loanID uint64) (*loan.LoanRecord, bool) {
	record, ok := s.loans[loanID]
	return record, ok
}

func (s *stubLedger) GetNoteReceipt(loanID uint64) (*loan.NoteReceipt, bool) {
	receipt, ok := s.receipts[loanID]
	return receipt, ok
}

func (s *stubLedger) FeesWithdrawable(currency string, account [20]byte) *big.Int {
	if amount, ok := s.fees[currency]; ok {
		return amount
	}
	return big.NewInt(0)
}

func (s *stubLedger) CanCallOn(account [20]byte, key loan.CollateralKey) bool {
	return s.parties[account]
}

type stubNonces struct {
	used map[uint64]bool
}

func (s *stubNonces) IsUsed(signer [20]byte, nonce uint64) bool { return s.used[nonce] }

const (
	testAccountHex    = "0x0101010101010101010101010101010101010101"
	testCollateralHex = "0xc0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0"
)

func newTestServer(t *testing.T) (*httptest.Server, *stubLedger, *stubNonces) {
	t.Helper()
	var party [20]byte
	for i := range party {
		party[i] = 0x01
	}
	ledger := &stubLedger{
		loans: map[uint64]*loan.LoanRecord{
			1: {
				ID:        1,
				State:     loan.LoanActive,
				StartDate: 1_700_000_000,
				Terms: loan.LoanTerms{
					DurationSecs:    86_400,
					Principal:       big.NewInt(1_000),
					InterestRateBps: 1_000,
					Collateral:      loan.CollateralKey{Address: [20]byte{0xC0, 0xC0}, ID: 7},
					PayableCurrency: "USDX",
				},
				Balance:            big.NewInt(600),
				InterestAmountPaid: big.NewInt(40),
				BalancePaid:        big.NewInt(400),
				BorrowerNoteID:     1,
				LenderNoteID:       2,
			},
		},
		receipts: map[uint64]*loan.NoteReceipt{
			1: {Token: "USDX", Amount: big.NewInt(106)},
		},
		fees:    map[string]*big.Int{"USDX": big.NewInt(500)},
		parties: map[[20]byte]bool{party: true},
	}
	nonces := &stubNonces{used: map[uint64]bool{7: true}}

	handler := NewRouter(Deps{
		Ledger: ledger,
		Nonces: nonces,
		Logger: slog.New(slog.NewTextHandler(testWriter{t}, nil)),
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, ledger, nonces
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestGetLoan(t *testing.T) {
	server, _, _ := newTestServer(t)

	var body loanResponse
	status := getJSON(t, server.URL+"/v1/loans/1", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, uint64(1), body.ID)
	require.Equal(t, "active", body.State)
	require.Equal(t, "600", body.Balance)
	require.Equal(t, "USDX", body.Currency)
	require.Equal(t, uint64(7), body.Collateral.ID)

	status = getJSON(t, server.URL+"/v1/loans/2", nil)
	require.Equal(t, http.StatusNotFound, status)
	status = getJSON(t, server.URL+"/v1/loans/abc", nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestGetReceipt(t *testing.T) {
	server, ledger, _ := newTestServer(t)

	var body receiptResponse
	status := getJSON(t, server.URL+"/v1/loans/1/receipt", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "USDX", body.Token)
	require.Equal(t, "106", body.Amount)

	delete(ledger.receipts, 1)
	status = getJSON(t, server.URL+"/v1/loans/1/receipt", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestGetWithdrawable(t *testing.T) {
	server, _, _ := newTestServer(t)

	var body withdrawableResponse
	status := getJSON(t, server.URL+"/v1/fees/USDX/"+testAccountHex, &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "500", body.Amount)

	status = getJSON(t, server.URL+"/v1/fees/USDX/nothex", nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestGetNonce(t *testing.T) {
	server, _, _ := newTestServer(t)

	var body nonceResponse
	status := getJSON(t, server.URL+"/v1/nonces/"+testAccountHex+"/7", &body)
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Used)

	status = getJSON(t, server.URL+"/v1/nonces/"+testAccountHex+"/8", &body)
	require.Equal(t, http.StatusOK, status)
	require.False(t, body.Used)

	status = getJSON(t, server.URL+"/v1/nonces/bad/7", nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestGetParty(t *testing.T) {
	server, _, _ := newTestServer(t)

	var body partyResponse
	status := getJSON(t, server.URL+"/v1/collateral/"+testCollateralHex+"/7/parties/"+testAccountHex, &body)
	require.Equal(t, http.StatusOK, status)
	require.True(t, body.CanCall)

	outsider := "0x0202020202020202020202020202020202020202"
	status = getJSON(t, server.URL+"/v1/collateral/"+testCollateralHex+"/7/parties/"+outsider, &body)
	require.Equal(t, http.StatusOK, status)
	require.False(t, body.CanCall)
}

func TestHealthz(t *testing.T) {
	server, _, _ := newTestServer(t)
	var body map[string]string
	status := getJSON(t, server.URL+"/healthz", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])
}
