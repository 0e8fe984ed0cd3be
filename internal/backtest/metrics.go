package backtest

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/yourusername/edge-backtester/internal/bankroll"
	"github.com/yourusername/edge-backtester/internal/models"
	"github.com/yourusername/edge-backtester/internal/odds"
)

const (
	// periodsPerYear annualizes per-wager Sharpe and Sortino ratios
	periodsPerYear = 250
	// unboundedRatio stands in for an infinite ratio, matching the profit factor convention
	unboundedRatio     = 999.0
	calibrationBins    = 10
	valueAtRiskLevel95 = 0.95
)

// BetTypeStats summarises settled wagers of one bet label
type BetTypeStats struct {
	Count   int     `json:"count"`
	Wins    int     `json:"wins"`
	Staked  float64 `json:"staked"`
	Profit  float64 `json:"profit"`
	WinRate float64 `json:"win_rate"`
	ROI     float64 `json:"roi"`
}

// CalibrationBin compares predicted and realised win rates for one probability bucket
type CalibrationBin struct {
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Count         int     `json:"count"`
	Predicted     float64 `json:"predicted"`
	ActualWinRate float64 `json:"actual_win_rate"`
	Error         float64 `json:"error"`
}

// Metrics represents backtest performance metrics
type Metrics struct {
	TotalWagers  int     `json:"total_wagers"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Pushes       int     `json:"pushes"`
	WinRate      float64 `json:"win_rate"`
	TotalStaked  float64 `json:"total_staked"`
	TotalProfit  float64 `json:"total_profit"`
	ROI          float64 `json:"roi"`
	TotalReturn  float64 `json:"total_return"`
	ProfitFactor float64 `json:"profit_factor"`
	MaxDrawdown  float64 `json:"max_drawdown"`

	SharpeRatio          float64 `json:"sharpe_ratio"`
	SortinoRatio         float64 `json:"sortino_ratio"`
	CalmarRatio          float64 `json:"calmar_ratio"`
	ValueAtRisk95        float64 `json:"var_95"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`

	AverageWin   float64 `json:"average_win"`
	AverageLoss  float64 `json:"average_loss"`
	LargestWin   float64 `json:"largest_win"`
	LargestLoss  float64 `json:"largest_loss"`
	Expectancy   float64 `json:"expectancy"`
	AverageStake float64 `json:"average_stake"`
	AverageOdds  float64 `json:"average_odds"`
	AverageEdge  float64 `json:"average_edge"`

	// ActualVariance is the variance of realised profits; ExpectedVariance is what the
	// model probabilities imply for the same wagers.
	ActualVariance   float64 `json:"actual_variance"`
	ExpectedVariance float64 `json:"expected_variance"`

	BetTypeBreakdown map[string]BetTypeStats `json:"bet_type_breakdown"`
	Calibration      []CalibrationBin        `json:"calibration"`
	CalibrationError float64                 `json:"calibration_error"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Days      int       `json:"days"`
}

// CalculateMetrics derives run metrics from the settled wager history and the ledger state
func CalculateMetrics(wagers []models.Wager, stats bankroll.Stats, state bankroll.State, start, end time.Time) Metrics {
	m := Metrics{
		TotalWagers:      stats.TotalWagers,
		Wins:             stats.Wins,
		Losses:           stats.Losses,
		Pushes:           stats.Pushes,
		WinRate:          stats.WinRate,
		TotalStaked:      stats.TotalStaked,
		TotalProfit:      stats.TotalProfit,
		ROI:              stats.ROI,
		TotalReturn:      state.TotalReturn,
		ProfitFactor:     stats.ProfitFactor,
		MaxDrawdown:      state.MaxDrawdown,
		BetTypeBreakdown: make(map[string]BetTypeStats),
		StartDate:        start,
		EndDate:          end,
	}
	if !start.IsZero() && !end.IsZero() {
		m.Days = int(dayStart(end).Sub(dayStart(start)).Hours()/24) + 1
	}

	settled := settledWagers(wagers)
	if len(settled) == 0 {
		return m
	}

	returns := make([]float64, len(settled))
	for i, w := range settled {
		returns[i] = w.Return()
	}
	m.SharpeRatio = sharpeRatio(returns)
	m.SortinoRatio = sortinoRatio(returns)
	m.CalmarRatio = calmarRatio(m.TotalReturn, m.MaxDrawdown)
	m.ValueAtRisk95 = valueAtRisk(returns, valueAtRiskLevel95)
	m.MaxConsecutiveLosses = maxConsecutiveLosses(settled)

	m.AverageWin, m.AverageLoss, m.LargestWin, m.LargestLoss = winLossStats(settled)
	m.Expectancy = m.TotalProfit / float64(len(settled))
	m.AverageStake = m.TotalStaked / float64(len(settled))
	var oddsSum, edgeSum float64
	for _, w := range settled {
		oddsSum += w.Odds
		edgeSum += w.Edge
	}
	m.AverageOdds = oddsSum / float64(len(settled))
	m.AverageEdge = edgeSum / float64(len(settled))
	m.ActualVariance, m.ExpectedVariance = profitVariance(settled)

	m.BetTypeBreakdown = betTypeBreakdown(settled)
	m.Calibration, m.CalibrationError = calibration(settled, calibrationBins)
	return m
}

// ToJSON exports metrics to JSON
func (m Metrics) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

func settledWagers(wagers []models.Wager) []models.Wager {
	out := make([]models.Wager, 0, len(wagers))
	for _, w := range wagers {
		switch w.Status {
		case models.WagerStatusWon, models.WagerStatusLost, models.WagerStatusPush:
			out = append(out, w)
		}
	}
	return out
}

func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	std := sampleStddev(returns)
	if std == 0 {
		return 0
	}
	return average(returns) / std * math.Sqrt(periodsPerYear)
}

// sortinoRatio uses the sample deviation of negative returns only. With no negative
// returns a positive mean is reported as unboundedRatio.
func sortinoRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := average(returns)
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		if mean > 0 {
			return unboundedRatio
		}
		return 0
	}
	std := sampleStddev(downside)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

func calmarRatio(totalReturn, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		if totalReturn > 0 {
			return unboundedRatio
		}
		return 0
	}
	return totalReturn / maxDrawdown
}

func valueAtRisk(returns []float64, level float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := append([]float64{}, returns...)
	sort.Float64s(sorted)
	index := int(math.Floor((1.0 - level) * float64(len(sorted))))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// maxConsecutiveLosses counts the longest LOST run; a win or a push ends a run
func maxConsecutiveLosses(settled []models.Wager) int {
	longest, current := 0, 0
	for _, w := range settled {
		if w.Status == models.WagerStatusLost {
			current++
			if current > longest {
				longest = current
			}
			continue
		}
		current = 0
	}
	return longest
}

func winLossStats(settled []models.Wager) (avgWin, avgLoss, largestWin, largestLoss float64) {
	wins, losses := 0, 0
	var winSum, lossSum float64
	for _, w := range settled {
		pl := w.ProfitLoss()
		switch {
		case pl > 0:
			wins++
			winSum += pl
			largestWin = math.Max(largestWin, pl)
		case pl < 0:
			losses++
			lossSum += pl
			largestLoss = math.Min(largestLoss, pl)
		}
	}
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}
	return avgWin, avgLoss, largestWin, largestLoss
}

func profitVariance(settled []models.Wager) (actual, expected float64) {
	profits := make([]float64, len(settled))
	var expectedSum float64
	for i, w := range settled {
		profits[i] = w.ProfitLoss()
		p := w.ModelProbability
		win := odds.Profit(w.Stake, w.Odds)
		loss := -w.Stake
		ev := p*win + (1-p)*loss
		expectedSum += p*(win-ev)*(win-ev) + (1-p)*(loss-ev)*(loss-ev)
	}
	mean := average(profits)
	for _, pl := range profits {
		actual += (pl - mean) * (pl - mean)
	}
	return actual / float64(len(profits)), expectedSum / float64(len(settled))
}

func betTypeBreakdown(settled []models.Wager) map[string]BetTypeStats {
	out := make(map[string]BetTypeStats)
	for i := range settled {
		w := &settled[i]
		s := out[w.Label()]
		s.Count++
		if w.Status == models.WagerStatusWon {
			s.Wins++
		}
		s.Staked += w.Stake
		s.Profit += w.ProfitLoss()
		out[w.Label()] = s
	}
	for label, s := range out {
		s.Staked = odds.RoundCents(s.Staked)
		s.Profit = odds.RoundCents(s.Profit)
		s.WinRate = float64(s.Wins) / float64(s.Count)
		if s.Staked > 0 {
			s.ROI = s.Profit / s.Staked
		}
		out[label] = s
	}
	return out
}

// calibration buckets decided wagers by model probability over [min, max) bins. Pushes and
// empty bins are left out; the error is the mean absolute gap across populated bins.
func calibration(settled []models.Wager, bins int) ([]CalibrationBin, float64) {
	width := 1.0 / float64(bins)
	out := make([]CalibrationBin, 0, bins)
	var errSum float64
	for i := 0; i < bins; i++ {
		lo, hi := float64(i)*width, float64(i+1)*width
		var count, wins int
		var predicted float64
		for _, w := range settled {
			if w.Status == models.WagerStatusPush {
				continue
			}
			p := w.ModelProbability
			if p < lo || p >= hi {
				continue
			}
			count++
			predicted += p
			if w.Status == models.WagerStatusWon {
				wins++
			}
		}
		if count == 0 {
			continue
		}
		bin := CalibrationBin{
			Min:           lo,
			Max:           hi,
			Count:         count,
			Predicted:     predicted / float64(count),
			ActualWinRate: float64(wins) / float64(count),
		}
		bin.Error = math.Abs(bin.Predicted - bin.ActualWinRate)
		errSum += bin.Error
		out = append(out, bin)
	}
	if len(out) == 0 {
		return out, 0
	}
	return out, errSum / float64(len(out))
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStddev is the standard deviation with one degree of freedom removed
func sampleStddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := average(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)-1))
}
