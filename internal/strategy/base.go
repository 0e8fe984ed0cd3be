package strategy

import (
	"math"

	"github.com/yourusername/edge-backtester/internal/odds"
)

const (
	// points of expected margin per unit of probability above a coin flip
	marginPerProbability = 20.0
	// standard deviation of the final margin around expectation
	marginStdDev = 12.0
)

// ExpectedValue calculates expected profit for a stake at American odds
func ExpectedValue(probability, american, stake float64) float64 {
	if stake <= 0 || odds.Validate(american) != nil {
		return 0
	}
	return probability*odds.Profit(stake, american) - (1-probability)*stake
}

// EVPercent is the expected value of a 100-unit stake expressed per unit staked
func EVPercent(probability, american float64) float64 {
	return ExpectedValue(probability, american, 100) / 100
}

// Edge is the gap between model and fair probability
func Edge(model, fair float64) float64 {
	return model - fair
}

// KellyFraction returns the full Kelly fraction f* = (b*p - q)/b, floored at zero
func KellyFraction(probability, american float64) float64 {
	if odds.Validate(american) != nil || math.IsNaN(probability) || probability <= 0 || probability > 1 {
		return 0
	}
	b := odds.ToDecimal(american) - 1
	if b <= 0 {
		return 0
	}
	f := (b*probability - (1 - probability)) / b
	if f <= 0 {
		return 0
	}
	return f
}

// KellyStake applies the full Kelly fraction to a bankroll with no caps
func KellyStake(probability, american, bankroll float64) float64 {
	if bankroll <= 0 {
		return 0
	}
	return bankroll * KellyFraction(probability, american)
}

// NormalizeProbability ensures probability in [0,1]
func NormalizeProbability(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// ExpectedMargin maps a home win probability to an expected home margin
func ExpectedMargin(homeWinProbability float64) float64 {
	return (homeWinProbability - 0.5) * marginPerProbability
}

// CoverProbability is the chance the home side covers its line under a normal margin model.
// Home covers when margin > -line, matching settlement.
func CoverProbability(homeWinProbability, homeLine float64) float64 {
	z := (-homeLine - ExpectedMargin(homeWinProbability)) / marginStdDev
	return NormalizeProbability(1 - normalCDF(z))
}

func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
