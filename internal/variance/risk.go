package variance

import (
	"context"
	"math"

	"github.com/yourusername/edge-backtester/internal/models"
	"github.com/yourusername/edge-backtester/internal/odds"
)

// Risk levels reported by RiskOfRuin
const (
	RiskHigh     = "HIGH"
	RiskModerate = "MODERATE"
	RiskLow      = "LOW"
)

const (
	// largeEdge is where the gambler's-ruin approximation stops being trusted
	largeEdge = 0.2
	// largeEdgeRuin is reported in place of the approximation for large edges
	largeEdgeRuin     = 0.01
	safeKellyMultiple = 0.25
)

// StreakLengths are the losing-streak lengths reported by LosingStreaks
var StreakLengths = []int{3, 5, 7, 10, 15, 20}

// RuinAnalysis estimates the chance of exhausting a bankroll
type RuinAnalysis struct {
	RiskOfRuin    float64 `json:"risk_of_ruin"`
	BankrollUnits float64 `json:"bankroll_units"`
	EdgePerBet    float64 `json:"edge_per_bet"`
	KellyFraction float64 `json:"kelly_fraction"`
	SafeBetSize   float64 `json:"safe_bet_size"`
	// MedianBetsToRuin is only meaningful when RuinLikely is set.
	MedianBetsToRuin float64 `json:"median_bets_to_ruin"`
	RuinLikely       bool    `json:"ruin_likely"`
	RiskLevel        string  `json:"risk_level"`
}

// RiskOfRuin applies the gambler's-ruin approximation to a flat bet at avgOdds
func RiskOfRuin(bankroll, avgBet, winRate, avgOdds float64) RuinAnalysis {
	return RiskOfRuinPayoffs(bankroll, avgBet, winRate, odds.Profit(avgBet, avgOdds), avgBet)
}

// RiskOfRuinPayoffs is RiskOfRuin with explicit average win and loss amounts.
// Edge is expected profit per unit of average bet; u is the bankroll in average-bet units.
func RiskOfRuinPayoffs(bankroll, avgBet, winRate, avgWin, avgLoss float64) RuinAnalysis {
	var r RuinAnalysis
	if avgBet <= 0 {
		r.RiskOfRuin = 1
		r.RiskLevel = RiskHigh
		return r
	}
	expected := winRate*avgWin - (1-winRate)*avgLoss
	r.EdgePerBet = expected / avgBet
	r.BankrollUnits = bankroll / avgBet
	if avgWin > 0 {
		r.KellyFraction = math.Max(0, expected/avgWin)
	}

	switch {
	case r.EdgePerBet <= 0:
		r.RiskOfRuin = 1
	case r.EdgePerBet < largeEdge:
		r.RiskOfRuin = math.Pow((1-r.EdgePerBet)/(1+r.EdgePerBet), r.BankrollUnits)
	default:
		r.RiskOfRuin = largeEdgeRuin
	}

	if r.RiskOfRuin > 0.5 {
		r.RuinLikely = true
		r.MedianBetsToRuin = r.BankrollUnits
		if r.EdgePerBet != 0 {
			r.MedianBetsToRuin = r.BankrollUnits / (2 * math.Abs(r.EdgePerBet))
		}
	}
	r.SafeBetSize = bankroll * r.KellyFraction * safeKellyMultiple

	switch {
	case r.RiskOfRuin > 0.05:
		r.RiskLevel = RiskHigh
	case r.RiskOfRuin > 0.01:
		r.RiskLevel = RiskModerate
	default:
		r.RiskLevel = RiskLow
	}
	return r
}

// StreakProbability describes one losing-streak length
type StreakProbability struct {
	Length int `json:"length"`
	// ProbStreak is the chance of losing Length wagers in a row from a given start.
	ProbStreak float64 `json:"prob_streak"`
	// ProbOccurs is the chance at least one such streak appears in the sample.
	ProbOccurs float64 `json:"prob_occurs"`
}

// StreakAnalysis sets expectations for cold runs
type StreakAnalysis struct {
	WinRate           float64             `json:"win_rate"`
	LossRate          float64             `json:"loss_rate"`
	Bets              int                 `json:"bets"`
	ExpectedMaxStreak float64             `json:"expected_max_streak"`
	Streaks           []StreakProbability `json:"streaks"`
}

// LosingStreaks estimates the longest expected losing run over n wagers
func LosingStreaks(winRate float64, n int) StreakAnalysis {
	loss := 1 - winRate
	a := StreakAnalysis{WinRate: winRate, LossRate: loss, Bets: n}

	switch {
	case loss <= 0 || n <= 1:
		a.ExpectedMaxStreak = 0
	case loss >= 1:
		a.ExpectedMaxStreak = float64(n)
	default:
		a.ExpectedMaxStreak = math.Log(float64(n)) / math.Log(1/loss)
	}

	for _, length := range StreakLengths {
		p := math.Pow(loss, float64(length))
		occurs := 0.0
		if starts := n - length + 1; starts > 0 {
			occurs = 1 - math.Pow(1-p, float64(starts))
		}
		a.Streaks = append(a.Streaks, StreakProbability{Length: length, ProbStreak: p, ProbOccurs: occurs})
	}
	return a
}

// VarianceDrag is the gap between arithmetic and geometric growth for a flat bet at
// avgOdds: variance / (2 * (1 + mean)^2)
func VarianceDrag(winRate, avgOdds float64) float64 {
	win := odds.ToDecimal(avgOdds) - 1
	loss := -1.0
	mean := winRate*win + (1-winRate)*loss
	if mean <= -1 {
		return 0
	}
	variance := winRate*(win-mean)*(win-mean) + (1-winRate)*(loss-mean)*(loss-mean)
	return variance / (2 * (1 + mean) * (1 + mean))
}

// Report bundles every variance view of a wager set
type Report struct {
	Bankroll     float64        `json:"bankroll"`
	Distribution Distribution   `json:"distribution"`
	Ruin         RuinAnalysis   `json:"ruin"`
	Streaks      StreakAnalysis `json:"streaks"`
	VarianceDrag float64        `json:"variance_drag"`
	AverageStake float64        `json:"average_stake"`
	AverageProb  float64        `json:"average_probability"`
	AverageOdds  float64        `json:"average_odds"`
}

// Report simulates the wagers and derives ruin, streak and drag estimates from their
// averages. streakBets of zero uses the number of wagers.
func (a *Analyzer) Report(ctx context.Context, wagers []WagerSpec, bankroll float64, streakBets int) (Report, error) {
	dist, err := a.Simulate(ctx, wagers)
	if err != nil {
		return Report{}, err
	}

	var stake, prob, win, decimalOdds float64
	for _, w := range wagers {
		stake += w.Stake
		prob += w.Probability
		win += odds.Profit(w.Stake, w.Odds)
		decimalOdds += odds.ToDecimal(w.Odds)
	}
	n := float64(len(wagers))
	r := Report{
		Bankroll:     bankroll,
		Distribution: dist,
		AverageStake: stake / n,
		AverageProb:  prob / n,
	}
	avgOdds, err := odds.DecimalToAmerican(decimalOdds / n)
	if err != nil {
		return Report{}, models.NewValidationError("odds", "average", "average price is not a valid market")
	}
	r.AverageOdds = avgOdds

	r.Ruin = RiskOfRuinPayoffs(bankroll, r.AverageStake, r.AverageProb, win/n, r.AverageStake)
	if streakBets <= 0 {
		streakBets = len(wagers)
	}
	r.Streaks = LosingStreaks(r.AverageProb, streakBets)
	r.VarianceDrag = VarianceDrag(r.AverageProb, avgOdds)
	return r, nil
}
