package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the streaming backend.
type Metrics struct {
	registry            *prometheus.Registry
	webhookEventsTotal  *prometheus.CounterVec
	sessionsEndedTotal  prometheus.Counter
	reconcileSyncsTotal prometheus.Counter
	ledgerDebitsTotal   prometheus.Counter
	liveSessions        prometheus.Gauge
}

// New creates and registers Prometheus metrics for the streaming backend.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	webhookEventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "artport_webhook_events_total",
		Help: "Total number of provider webhook events received, by event type",
	}, []string{"type"})
	sessionsEndedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artport_sessions_ended_total",
		Help: "Total number of stream sessions that reached a terminal end",
	})
	reconcileSyncsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artport_reconcile_syncs_total",
		Help: "Total number of reconciliation calls that corrected stored status",
	})
	ledgerDebitsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artport_ledger_debits_total",
		Help: "Total number of minute-balance debits applied",
	})
	liveSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "artport_live_sessions",
		Help: "Number of sessions currently marked live",
	})

	registry.MustRegister(
		webhookEventsTotal,
		sessionsEndedTotal,
		reconcileSyncsTotal,
		ledgerDebitsTotal,
		liveSessions,
	)

	return &Metrics{
		registry:            registry,
		webhookEventsTotal:  webhookEventsTotal,
		sessionsEndedTotal:  sessionsEndedTotal,
		reconcileSyncsTotal: reconcileSyncsTotal,
		ledgerDebitsTotal:   ledgerDebitsTotal,
		liveSessions:        liveSessions,
	}
}

// IncWebhookEvent increments the webhook event counter for an event type.
func (m *Metrics) IncWebhookEvent(eventType string) {
	m.webhookEventsTotal.WithLabelValues(eventType).Inc()
}

// IncSessionsEnded increments the ended sessions counter.
func (m *Metrics) IncSessionsEnded() {
	m.sessionsEndedTotal.Inc()
}

// IncReconcileSyncs increments the reconciliation corrections counter.
func (m *Metrics) IncReconcileSyncs() {
	m.reconcileSyncsTotal.Inc()
}

// IncLedgerDebits increments the minute debit counter.
func (m *Metrics) IncLedgerDebits() {
	m.ledgerDebitsTotal.Inc()
}

// SetLiveSessions sets the live sessions gauge.
func (m *Metrics) SetLiveSessions(n int) {
	m.liveSessions.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
