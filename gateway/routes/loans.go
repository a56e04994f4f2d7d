package routes

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"loanledger/native/loan"
)

type ledgerRoutes struct {
	deps Deps
}

func (lr *ledgerRoutes) mount(r chi.Router) {
	r.Get("/loans/{loanID}", lr.getLoan)
	r.Get("/loans/{loanID}/receipt", lr.getReceipt)
	r.Get("/fees/{currency}/{account}", lr.getWithdrawable)
	r.Get("/nonces/{signer}/{nonce}", lr.getNonce)
	r.Get("/collateral/{address}/{id}/parties/{account}", lr.getParty)
}

type collateralResponse struct {
	Address string `json:"address"`
	ID      uint64 `json:"id"`
}

type loanResponse struct {
	ID                 uint64             `json:"id"`
	State              string             `json:"state"`
	StartDate          int64              `json:"startDate"`
	DurationSecs       uint64             `json:"durationSecs"`
	Principal          string             `json:"principal"`
	InterestRateBps    uint64             `json:"interestRateBps"`
	Currency           string             `json:"currency"`
	Balance            string             `json:"balance"`
	InterestAmountPaid string             `json:"interestAmountPaid"`
	BalancePaid        string             `json:"balancePaid"`
	BorrowerNoteID     uint64             `json:"borrowerNoteId"`
	LenderNoteID       uint64             `json:"lenderNoteId"`
	Collateral         collateralResponse `json:"collateral"`
}

func (lr *ledgerRoutes) getLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := strconv.ParseUint(chi.URLParam(r, "loanID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	record, ok := lr.deps.Ledger.GetLoan(loanID)
	if !ok {
		writeError(w, http.StatusNotFound, "loan not found")
		return
	}
	writeJSON(w, http.StatusOK, loanResponse{
		ID:                 record.ID,
		State:              record.State.String(),
		StartDate:          record.StartDate,
		DurationSecs:       record.Terms.DurationSecs,
		Principal:          record.Terms.Principal.String(),
		InterestRateBps:    record.Terms.InterestRateBps,
		Currency:           record.Terms.PayableCurrency,
		Balance:            record.Balance.String(),
		InterestAmountPaid: record.InterestAmountPaid.String(),
		BalancePaid:        record.BalancePaid.String(),
		BorrowerNoteID:     record.BorrowerNoteID,
		LenderNoteID:       record.LenderNoteID,
		Collateral: collateralResponse{
			Address: "0x" + hex.EncodeToString(record.Terms.Collateral.Address[:]),
			ID:      record.Terms.Collateral.ID,
		},
	})
}

type receiptResponse struct {
	LoanID uint64 `json:"loanId"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

func (lr *ledgerRoutes) getReceipt(w http.ResponseWriter, r *http.Request) {
	loanID, err := strconv.ParseUint(chi.URLParam(r, "loanID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	receipt, ok := lr.deps.Ledger.GetNoteReceipt(loanID)
	if !ok {
		writeError(w, http.StatusNotFound, "no receipt recorded")
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{
		LoanID: loanID,
		Token:  receipt.Token,
		Amount: receipt.Amount.String(),
	})
}

type withdrawableResponse struct {
	Currency string `json:"currency"`
	Account  string `json:"account"`
	Amount   string `json:"amount"`
}

func (lr *ledgerRoutes) getWithdrawable(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(chi.URLParam(r, "account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	currency := chi.URLParam(r, "currency")
	amount := lr.deps.Ledger.FeesWithdrawable(currency, account)
	writeJSON(w, http.StatusOK, withdrawableResponse{
		Currency: currency,
		Account:  "0x" + hex.EncodeToString(account[:]),
		Amount:   amount.String(),
	})
}

type nonceResponse struct {
	Signer string `json:"signer"`
	Nonce  uint64 `json:"nonce"`
	Used   bool   `json:"used"`
}

func (lr *ledgerRoutes) getNonce(w http.ResponseWriter, r *http.Request) {
	signer, ok := parseAddress(chi.URLParam(r, "signer"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid signer address")
		return
	}
	nonceValue, err := strconv.ParseUint(chi.URLParam(r, "nonce"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid nonce")
		return
	}
	writeJSON(w, http.StatusOK, nonceResponse{
		Signer: "0x" + hex.EncodeToString(signer[:]),
		Nonce:  nonceValue,
		Used:   lr.deps.Nonces.IsUsed(signer, nonceValue),
	})
}

type partyResponse struct {
	Account string `json:"account"`
	CanCall bool   `json:"canCall"`
}

func (lr *ledgerRoutes) getParty(w http.ResponseWriter, r *http.Request) {
	collateralAddr, ok := parseAddress(chi.URLParam(r, "address"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid collateral address")
		return
	}
	collateralID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid collateral id")
		return
	}
	account, ok := parseAddress(chi.URLParam(r, "account"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	key := loan.CollateralKey{Address: collateralAddr, ID: collateralID}
	writeJSON(w, http.StatusOK, partyResponse{
		Account: "0x" + hex.EncodeToString(account[:]),
		CanCall: lr.deps.Ledger.CanCallOn(account, key),
	})
}
