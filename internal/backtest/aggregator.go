package backtest

import (
	"encoding/json"
	"math"

	"github.com/yourusername/edge-backtester/internal/metrics"
	"github.com/yourusername/edge-backtester/internal/variance"
)

// Recommendations produced by GenerateRecommendation
const (
	RecommendAccept      = "ACCEPT"
	RecommendReject      = "REJECT"
	RecommendNeedsReview = "NEEDS_REVIEW"
)

// AggregatedResult represents combined backtest outcomes
type AggregatedResult struct {
	Model                   string                `json:"model"`
	HistoricalReplayMetrics Metrics               `json:"historical_replay_metrics"`
	MonteCarlo              variance.Distribution `json:"monte_carlo"`
	WalkForwardResult       WalkForwardResult     `json:"walk_forward_result"`
	HistoricalScore         float64               `json:"historical_score"`
	MonteCarloScore         float64               `json:"monte_carlo_score"`
	WalkForwardScore        float64               `json:"walk_forward_score"`
	CompositeScore          float64               `json:"composite_score"`
	Weights                 AggregationWeights    `json:"weights"`
	Recommendation          string                `json:"recommendation"`
	Features                map[string]float64    `json:"features"`
}

// AggregationWeights define weighting per method
type AggregationWeights struct {
	HistoricalReplay float64 `json:"historical_replay"`
	MonteCarlo       float64 `json:"monte_carlo"`
	WalkForward      float64 `json:"walk_forward"`
}

// DefaultAggregationWeights favours out-of-sample evidence over the in-sample replay
func DefaultAggregationWeights() AggregationWeights {
	return AggregationWeights{HistoricalReplay: 0.4, MonteCarlo: 0.2, WalkForward: 0.4}
}

func (w AggregationWeights) normalized() AggregationWeights {
	total := w.HistoricalReplay + w.MonteCarlo + w.WalkForward
	if total <= 0 {
		return DefaultAggregationWeights()
	}
	return AggregationWeights{
		HistoricalReplay: w.HistoricalReplay / total,
		MonteCarlo:       w.MonteCarlo / total,
		WalkForward:      w.WalkForward / total,
	}
}

// AggregateResults combines the three validation methods into one weighted score. The
// Monte Carlo component is the simulated probability of finishing in profit.
func AggregateResults(model string, historical Metrics, monteCarlo variance.Distribution, walkForward WalkForwardResult, weights AggregationWeights) AggregatedResult {
	weights = weights.normalized()
	historicalScore := CalculateCompositeScore(historical)
	monteCarloScore := monteCarlo.ProbProfit
	walkForwardScore := CalculateCompositeScore(walkForward.AggregatedMetrics)
	composite := historicalScore*weights.HistoricalReplay +
		monteCarloScore*weights.MonteCarlo +
		walkForwardScore*weights.WalkForward

	recommendation := GenerateRecommendation(composite, walkForward.ConsistencyScore,
		historical.TotalReturn, walkForward.AggregatedMetrics.TotalReturn)

	metrics.RecordCompositeScore(model, composite)
	return AggregatedResult{
		Model:                   model,
		HistoricalReplayMetrics: historical,
		MonteCarlo:              monteCarlo,
		WalkForwardResult:       walkForward,
		HistoricalScore:         historicalScore,
		MonteCarloScore:         monteCarloScore,
		WalkForwardScore:        walkForwardScore,
		CompositeScore:          composite,
		Weights:                 weights,
		Recommendation:          recommendation,
		Features:                extractFeatures(historical, monteCarlo, walkForward),
	}
}

// CalculateCompositeScore scores a metric set in [0,1]
func CalculateCompositeScore(m Metrics) float64 {
	sharpeScore := normalize(m.SharpeRatio, -2, 3)
	roiScore := normalize(m.TotalReturn, -0.5, 1.0)
	profitFactorScore := normalize(m.ProfitFactor, 0, 3)
	drawdownPenalty := 1.0 - normalize(m.MaxDrawdown, 0, 0.5)
	winRateScore := normalize(m.WinRate, 0, 1)

	weighted := 0.0
	weighted += sharpeScore * 0.30
	weighted += roiScore * 0.20
	weighted += profitFactorScore * 0.20
	weighted += drawdownPenalty * 0.15
	weighted += winRateScore * 0.15
	return weighted
}

// GenerateRecommendation determines if a model and strategy pairing is acceptable
func GenerateRecommendation(score float64, consistency float64, historicalReturn float64, walkForwardReturn float64) string {
	if score > 0.7 && historicalReturn > 0 && walkForwardReturn > 0 && consistency > 0.6 {
		return RecommendAccept
	}
	if score < 0.4 || historicalReturn < 0 || walkForwardReturn < 0 || consistency < 0.4 {
		return RecommendReject
	}
	return RecommendNeedsReview
}

// ToJSON exports the aggregated result to JSON
func (a AggregatedResult) ToJSON() string {
	data, _ := json.Marshal(a)
	return string(data)
}

func extractFeatures(h Metrics, mc variance.Distribution, wf WalkForwardResult) map[string]float64 {
	return map[string]float64{
		"total_return":         h.TotalReturn,
		"roi":                  h.ROI,
		"sharpe_ratio":         h.SharpeRatio,
		"max_drawdown":         h.MaxDrawdown,
		"profit_factor":        h.ProfitFactor,
		"win_rate":             h.WinRate,
		"calibration_error":    h.CalibrationError,
		"monte_carlo_p5":       mc.P5,
		"monte_carlo_p95":      mc.P95,
		"monte_carlo_prob_win": mc.ProbProfit,
		"consistency_score":    wf.ConsistencyScore,
		"overfit_score":        wf.OverfitScore,
	}
}

func normalize(value, min, max float64) float64 {
	if max-min == 0 {
		return 0
	}
	v := (value - min) / (max - min)
	return math.Max(0, math.Min(1, v))
}
