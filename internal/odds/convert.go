// Package odds converts American odds to probabilities and payouts and removes bookmaker margin.
package odds

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/yourusername/edge-backtester/internal/models"
)

const (
	// MaxAbsOdds bounds the sane American odds range
	MaxAbsOdds = models.MaxAbsAmericanOdds
)

// Validate rejects zero, non-finite and out-of-range American odds
func Validate(american float64) error {
	if math.IsNaN(american) || math.IsInf(american, 0) {
		return models.NewValidationError("odds", formatOdds(american), models.ErrInvalidOdds.Error())
	}
	if american == 0 {
		return models.NewValidationError("odds", "0", "odds cannot be zero")
	}
	if math.Abs(american) > MaxAbsOdds {
		return models.NewValidationError("odds", formatOdds(american), "outside [-10000, 10000]")
	}
	return nil
}

// ValidateProbability rejects probabilities outside [0,1]
func ValidateProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return models.NewValidationError("probability", strconv.FormatFloat(p, 'f', -1, 64), models.ErrInvalidProbability.Error())
	}
	return nil
}

// ToProbability converts American odds to implied (vig-included) probability
func ToProbability(american float64) float64 {
	if american < 0 {
		return math.Abs(american) / (math.Abs(american) + 100)
	}
	return 100 / (american + 100)
}

// ProbabilityToAmerican converts a probability strictly inside (0,1) to American odds
func ProbabilityToAmerican(p float64) (float64, error) {
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return 0, models.NewValidationError("probability", strconv.FormatFloat(p, 'f', -1, 64), "must be strictly between 0 and 1")
	}
	if p > 0.5 {
		return -100 * p / (1 - p), nil
	}
	return 100 * (1 - p) / p, nil
}

// ToDecimal converts American odds to a decimal payout multiple (stake included)
func ToDecimal(american float64) float64 {
	if american < 0 {
		return 1 + 100/math.Abs(american)
	}
	return 1 + american/100
}

// DecimalToAmerican converts a decimal multiple back to American odds
func DecimalToAmerican(dec float64) (float64, error) {
	if dec <= 1 {
		return 0, models.NewValidationError("decimal_odds", strconv.FormatFloat(dec, 'f', -1, 64), "must exceed 1.0")
	}
	if dec >= 2 {
		return (dec - 1) * 100, nil
	}
	return -100 / (dec - 1), nil
}

// Payout returns the total returned on a winning stake
func Payout(stake, american float64) float64 {
	return stake * ToDecimal(american)
}

// Profit returns the net winnings on a winning stake
func Profit(stake, american float64) float64 {
	return Payout(stake, american) - stake
}

// MarketVig returns the overround of a two-sided market
func MarketVig(americanA, americanB float64) float64 {
	return ToProbability(americanA) + ToProbability(americanB) - 1
}

// RoundCents rounds a currency amount half away from zero to two decimal places
func RoundCents(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// FloorCents truncates a currency amount toward zero to two decimal places.
// Float noise below a millionth is rounded away first, so 13.7499999999 stays 13.75.
func FloorCents(amount float64) float64 {
	return floorCents(decimal.NewFromFloat(amount)).InexactFloat64()
}

// FloorCentsDecimal is FloorCents for amounts already held as decimals
func FloorCentsDecimal(amount decimal.Decimal) decimal.Decimal {
	return floorCents(amount)
}

func floorCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(6).Truncate(2)
}

func formatOdds(american float64) string {
	return strconv.FormatFloat(american, 'f', -1, 64)
}
