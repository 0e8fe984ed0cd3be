// Package metrics defines run-level backtesting metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Run methods shared by every package that reports a run
const (
	MethodHistorical  = "historical_replay"
	MethodWalkForward = "walk_forward"
	MethodMonteCarlo  = "monte_carlo"
)

// Run outcomes
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by method and status",
	}, []string{"method", "status"})
)

// Backtest histograms
var (
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	MonteCarloDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "monte_carlo_duration_seconds",
		Help:      "Duration of Monte Carlo simulations in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	BacktestCompositeScore = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backtest_composite_score",
		Help:      "Composite scores from aggregated backtest evaluations by model",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	}, []string{"model"})
)

// Backtest gauge vectors
var (
	BacktestROI = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_roi",
		Help:      "ROI of the latest run for each model and method",
	}, []string{"model", "method"})
)

// RecordBacktestRun records a backtest run event. method is one of the Method constants and
// status is StatusSuccess or StatusFailure. Monte Carlo runs feed their own duration histogram.
func RecordBacktestRun(method, status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(method, status).Inc()
	if method == MethodMonteCarlo {
		MonteCarloDuration.Observe(durationSeconds)
		return
	}
	BacktestDuration.Observe(durationSeconds)
}

// RecordCompositeScore records the composite score of an aggregated evaluation.
func RecordCompositeScore(model string, score float64) {
	BacktestCompositeScore.WithLabelValues(model).Observe(score)
}

// UpdateROI updates the latest ROI for a model and method.
func UpdateROI(model, method string, roi float64) {
	BacktestROI.WithLabelValues(model, method).Set(roi)
}
