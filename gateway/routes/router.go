package routes

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loanledger/gateway/middleware"
	"loanledger/native/loan"
)

// Ledger is the read-view surface the gateway exposes. Mutating entry points
// stay in-process; the core defines no wire protocol for them.
type Ledger interface {
	GetLoan(loanID uint64) (*loan.LoanRecord, bool)
	GetNoteReceipt(loanID uint64) (*loan.NoteReceipt, bool)
	FeesWithdrawable(currency string, account [20]byte) *big.Int
	CanCallOn(account [20]byte, key loan.CollateralKey) bool
}

// Nonces exposes replay-protection lookups.
type Nonces interface {
	IsUsed(signer [20]byte, nonce uint64) bool
}

// Deps bundles the collaborators the router serves.
type Deps struct {
	Ledger Ledger
	Nonces Nonces
	Logger *slog.Logger
}

// NewRouter mounts the read views, health check, and metrics exposition.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Observe(deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	lr := &ledgerRoutes{deps: deps}
	r.Route("/v1", lr.mount)
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func parseAddress(value string) ([20]byte, bool) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != 20 {
		return addr, false
	}
	copy(addr[:], raw)
	return addr, true
}
