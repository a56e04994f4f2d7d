package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"loanledger/config"
	"loanledger/gateway/routes"
	"loanledger/native/affiliate"
	"loanledger/native/custody"
	"loanledger/native/feeschedule"
	"loanledger/native/loan"
	"loanledger/native/nonce"
	"loanledger/native/notes"
	"loanledger/observability"
	"loanledger/observability/logging"
	"loanledger/state"
	"loanledger/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "loanledger.toml", "path to ledger configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LOANLEDGER_ENV"))
	logger := logging.Setup("loanledgerd", env)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	moduleAddr, err := cfg.ModuleAddressBytes()
	if err != nil {
		logger.Error("parse module address", "error", err)
		os.Exit(1)
	}
	treasury, err := cfg.TreasuryBytes()
	if err != nil {
		logger.Error("parse treasury address", "error", err)
		os.Exit(1)
	}

	var db storage.Database
	persistent := strings.TrimSpace(cfg.DataDir) != ""
	if !persistent {
		db = storage.NewMemDB()
		logger.Warn("no data directory configured; running on in-memory state")
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("open database", "error", err, "dir", cfg.DataDir)
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	manager := state.NewManager(db)
	metrics := observability.LedgerMetrics().Emitter()

	schedule := feeschedule.New()
	// Seed configured defaults before the role registry is wired; runtime
	// changes then require the fee admin role.
	seedRates(schedule, cfg)
	schedule.SetRoles(manager)

	book := affiliate.NewBook(treasury, cfg.MaxAffiliateSplitBps)
	book.SetState(manager)
	book.SetEmitter(metrics)

	registry := nonce.NewRegistry(manager)
	registry.SetEmitter(metrics)
	registry.SetPauses(manager)

	engine := loan.NewEngine(moduleAddr)
	engine.SetState(manager)
	engine.SetEmitter(metrics)
	engine.SetPauses(manager)
	engine.SetFeeOracle(schedule)
	engine.SetNotes(notes.NewRegistry())
	engine.SetCustody(custody.NewVault())
	engine.SetAffiliates(book)
	engine.SetGracePeriod(cfg.GracePeriodSecs)
	if persistent {
		logger.Warn("note and custody registries are in-memory; loans persisted across a restart reference notes and collateral that must be re-established by the external collaborators")
	}

	router := routes.NewRouter(routes.Deps{
		Ledger: engine,
		Nonces: registry,
		Logger: logger,
	})
	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	logger.Info("ledger gateway listening", "addr", cfg.ListenAddress)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve", "error", err)
		os.Exit(1)
	}
	<-done
}

func seedRates(schedule *feeschedule.Schedule, cfg *config.Config) {
	for kind, bps := range map[feeschedule.FeeKind]uint64{
		feeschedule.FeeOrigination:    cfg.Fees.OriginationBps,
		feeschedule.FeeInterestShare:  cfg.Fees.InterestShareBps,
		feeschedule.FeePrincipalShare: cfg.Fees.PrincipalShareBps,
		feeschedule.FeeClaim:          cfg.Fees.ClaimBps,
		feeschedule.FeeRedeem:         cfg.Fees.RedeemBps,
	} {
		// Rates were already validated against the cap during config load.
		_ = schedule.SetRate([20]byte{}, kind, bps)
	}
}
