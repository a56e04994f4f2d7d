package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"loanledger/core/events"
	"loanledger/native/loan"
)

type ledgerMetrics struct {
	loansStarted  prometheus.Counter
	loansRepaid   prometheus.Counter
	forceRepaid   prometheus.Counter
	loansClaimed  prometheus.Counter
	rollovers     prometheus.Counter
	notesRedeemed prometheus.Counter
	feesWithdrawn prometheus.Counter
}

type httpMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *ledgerMetrics

	httpMetricsOnce sync.Once
	httpRegistry    *httpMetrics
)

// LedgerMetrics returns the lazily-initialised counters tracking loan
// lifecycle transitions. The counters are fed through the event emitter so
// the engine itself stays metrics-free.
func LedgerMetrics() *ledgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &ledgerMetrics{
			loansStarted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loanledger",
				Subsystem: "loan",
				Name:      "started_total",
				Help:      "Total loans originated.",
			}),
			loansRepaid: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loanledger",
				Subsystem: "loan",
				Name:      "repaid_total",
				Help:      "Total repayment settlements, partial and full.",
			}),
			forceRepaid: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loanledger",
				Subsystem: "loan",
				Name:      "force_repaid_total",
				Help:      "Total settlements routed through the deferred path.",
			}),
			loansClaimed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loanledger",
				Subsystem: "loan",
				Name:      "claimed_total",
				Help:      "Total collateral claims after default.",
			}),
			rollovers: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loanledger",
				Subsystem: "loan",
				Name:      "rollovers_total",
				Help:      "Total atomic loan rollovers.",
			}),
			notesRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loanledger",
				Subsystem: "loan",
				Name:      "notes_redeemed_total",
				Help:      "Total note receipt redemptions.",
			}),
			feesWithdrawn: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loanledger",
				Subsystem: "loan",
				Name:      "fee_withdrawals_total",
				Help:      "Total withdrawable-balance drains.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.loansStarted,
			ledgerRegistry.loansRepaid,
			ledgerRegistry.forceRepaid,
			ledgerRegistry.loansClaimed,
			ledgerRegistry.rollovers,
			ledgerRegistry.notesRedeemed,
			ledgerRegistry.feesWithdrawn,
		)
	})
	return ledgerRegistry
}

// Emitter adapts the metrics registry into an events.Emitter so it can be
// wired to the engines alongside any other subscriber.
func (m *ledgerMetrics) Emitter() events.Emitter {
	return metricsEmitter{metrics: m}
}

type metricsEmitter struct {
	metrics *ledgerMetrics
}

func (e metricsEmitter) Emit(event events.Event) {
	if e.metrics == nil || event == nil {
		return
	}
	switch event.EventType() {
	case loan.EventTypeLoanStarted:
		e.metrics.loansStarted.Inc()
	case loan.EventTypeLoanRepaid:
		e.metrics.loansRepaid.Inc()
	case loan.EventTypeLoanForceRepay:
		e.metrics.forceRepaid.Inc()
	case loan.EventTypeLoanClaimed:
		e.metrics.loansClaimed.Inc()
	case loan.EventTypeLoanRolledOver:
		e.metrics.rollovers.Inc()
	case loan.EventTypeNoteRedeemed:
		e.metrics.notesRedeemed.Inc()
	case loan.EventTypeFeesWithdrawn:
		e.metrics.feesWithdrawn.Inc()
	}
}

// HTTPMetrics returns the request counters and latency histogram used by the
// gateway middleware.
func HTTPMetrics() (requests *prometheus.CounterVec, latency *prometheus.HistogramVec) {
	httpMetricsOnce.Do(func() {
		httpRegistry = &httpMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "loanledger",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total gateway requests segmented by route and status code.",
			}, []string{"route", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "loanledger",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for gateway handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
		}
		prometheus.MustRegister(httpRegistry.requests, httpRegistry.latency)
	})
	return httpRegistry.requests, httpRegistry.latency
}

// ObserveRequest records one gateway request.
func ObserveRequest(route string, code string, elapsed time.Duration) {
	requests, latency := HTTPMetrics()
	requests.WithLabelValues(route, code).Inc()
	latency.WithLabelValues(route).Observe(elapsed.Seconds())
}
