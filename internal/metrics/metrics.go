// Package metrics provides the centralized Prometheus metrics registry for the backtester.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "edge_backtester"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	EventsProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_processed_total",
		Help:      "Total number of events replayed by the engine",
	})
	EventsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_skipped_total",
		Help:      "Total number of events the model declined to price",
	})
	ModelUpdateFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_update_failures_total",
		Help:      "Total number of failed model updates",
	})
	WagersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wagers_placed_total",
		Help:      "Total number of wagers accepted by the ledger by bet label",
	}, []string{"bet"})
	WagersRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wagers_rejected_total",
		Help:      "Total number of opportunities that did not become wagers by reason code",
	}, []string{"reason"})
	WagersSettledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wagers_settled_total",
		Help:      "Total number of settled wagers by result",
	}, []string{"result"})
)

// Gauge metrics
var (
	CurrentBankroll = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_bankroll",
		Help:      "Bankroll of the most recent backtest run",
	})
	CurrentDrawdown = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_drawdown",
		Help:      "Peak-to-current drawdown fraction of the most recent run",
	})
)

// RegisterAll registers every metric of the package on reg
func RegisterAll(reg *prometheus.Registry) {
	reg.MustRegister(EventsProcessedTotal)
	reg.MustRegister(EventsSkippedTotal)
	reg.MustRegister(ModelUpdateFailuresTotal)
	reg.MustRegister(WagersPlacedTotal)
	reg.MustRegister(WagersRejectedTotal)
	reg.MustRegister(WagersSettledTotal)

	reg.MustRegister(CurrentBankroll)
	reg.MustRegister(CurrentDrawdown)

	reg.MustRegister(BacktestDuration)
	reg.MustRegister(MonteCarloDuration)
	reg.MustRegister(BacktestRunsTotal)
	reg.MustRegister(BacktestCompositeScore)
	reg.MustRegister(BacktestROI)
}

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		RegisterAll(registry)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordEventProcessed counts a replayed event.
func RecordEventProcessed() {
	EventsProcessedTotal.Inc()
}

// RecordEventSkipped counts an event the model skipped.
func RecordEventSkipped() {
	EventsSkippedTotal.Inc()
}

// RecordUpdateFailure counts a failed model update.
func RecordUpdateFailure() {
	ModelUpdateFailuresTotal.Inc()
}

// RecordWagerPlaced counts an accepted wager.
func RecordWagerPlaced(bet string) {
	WagersPlacedTotal.WithLabelValues(bet).Inc()
}

// RecordWagerRejected counts a refused opportunity.
func RecordWagerRejected(reason string) {
	WagersRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordWagerSettled counts a settlement.
func RecordWagerSettled(result string) {
	WagersSettledTotal.WithLabelValues(result).Inc()
}

// UpdateBankroll updates the bankroll and drawdown gauges.
func UpdateBankroll(amount, drawdown float64) {
	CurrentBankroll.Set(amount)
	CurrentDrawdown.Set(drawdown)
}
