package strategy

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/yourusername/edge-backtester/internal/models"
	"github.com/yourusername/edge-backtester/internal/odds"
)

// SizingMethod selects how stakes are computed
type SizingMethod string

const (
	SizingKelly           SizingMethod = "kelly"
	SizingFractionalKelly SizingMethod = "fractional_kelly"
	SizingFlat            SizingMethod = "flat"
)

// Sizing defaults
const (
	DefaultKellyFraction    = 0.25
	DefaultFlatPercentage   = 0.01
	DefaultMaxBetPercentage = 0.05
	DefaultMinBetAmount     = 10.0
)

// KellyFractionGrid is the set of fractions searched by OptimalKellyFraction
var KellyFractionGrid = []float64{0.1, 0.15, 0.2, 0.25, 0.3, 0.35, 0.4, 0.5}

// SizerConfig holds the sizing method and its caps
type SizerConfig struct {
	Method           SizingMethod
	KellyFraction    float64
	FlatPercentage   float64
	MaxBetPercentage float64
	MinBetAmount     float64
	// MaxBetAmount of zero means no absolute cap.
	MaxBetAmount float64
}

// DefaultSizerConfig returns quarter-Kelly sizing with standard caps
func DefaultSizerConfig() SizerConfig {
	return SizerConfig{
		Method:           SizingFractionalKelly,
		KellyFraction:    DefaultKellyFraction,
		FlatPercentage:   DefaultFlatPercentage,
		MaxBetPercentage: DefaultMaxBetPercentage,
		MinBetAmount:     DefaultMinBetAmount,
	}
}

// ParseSizingMethod maps a configuration string to a SizingMethod
func ParseSizingMethod(name string) (SizingMethod, error) {
	switch SizingMethod(name) {
	case SizingKelly, SizingFractionalKelly, SizingFlat:
		return SizingMethod(name), nil
	case "":
		return SizingFractionalKelly, nil
	default:
		return "", fmt.Errorf("%w: %s", models.ErrUnknownSizingMethod, name)
	}
}

// Sizer computes capped stakes
type Sizer struct {
	cfg SizerConfig
}

// NewSizer validates the method and creates a sizer
func NewSizer(cfg SizerConfig) (*Sizer, error) {
	method, err := ParseSizingMethod(string(cfg.Method))
	if err != nil {
		return nil, err
	}
	cfg.Method = method
	if cfg.KellyFraction <= 0 {
		cfg.KellyFraction = DefaultKellyFraction
	}
	if cfg.FlatPercentage <= 0 {
		cfg.FlatPercentage = DefaultFlatPercentage
	}
	if cfg.MaxBetPercentage <= 0 {
		cfg.MaxBetPercentage = DefaultMaxBetPercentage
	}
	return &Sizer{cfg: cfg}, nil
}

// Config returns the effective configuration
func (s *Sizer) Config() SizerConfig {
	return s.cfg
}

// Stake returns a finite, non-negative stake floored to whole cents. Invalid inputs and stakes
// below the minimum yield 0.
func (s *Sizer) Stake(probability, american, bankroll float64) float64 {
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		return 0
	}
	if odds.Validate(american) != nil || math.IsNaN(bankroll) || math.IsInf(bankroll, 0) || bankroll <= 0 {
		return 0
	}

	var stake float64
	switch s.cfg.Method {
	case SizingFlat:
		stake = bankroll * s.cfg.FlatPercentage
	case SizingKelly:
		stake = KellyStake(probability, american, bankroll)
	default:
		stake = KellyStake(probability, american, bankroll) * s.cfg.KellyFraction
	}

	stake = math.Min(stake, bankroll*s.cfg.MaxBetPercentage)
	if s.cfg.MaxBetAmount > 0 {
		stake = math.Min(stake, s.cfg.MaxBetAmount)
	}
	stake = odds.FloorCents(stake)
	if stake < s.cfg.MinBetAmount || stake <= 0 {
		return 0
	}
	return stake
}

// SimulateKellyGrowth plays numBets independent bets at a fixed win rate and price, staking
// fraction x full Kelly of the running bankroll. The path stops early at bankruptcy.
func SimulateKellyGrowth(rng *rand.Rand, initial, winRate, american float64, numBets int, fraction float64) []float64 {
	path := make([]float64, 0, numBets+1)
	path = append(path, initial)
	bankroll := initial
	f := KellyFraction(winRate, american) * fraction
	for i := 0; i < numBets; i++ {
		stake := bankroll * f
		if rng.Float64() < winRate {
			bankroll += odds.Profit(stake, american)
		} else {
			bankroll -= stake
		}
		if bankroll <= 0 {
			path = append(path, 0)
			break
		}
		path = append(path, bankroll)
	}
	return path
}

// PathMaxDrawdown returns the largest peak-to-trough fraction of a bankroll path
func PathMaxDrawdown(path []float64) float64 {
	if len(path) == 0 {
		return 0
	}
	peak, maxDD := path[0], 0.0
	for _, b := range path {
		if b > peak {
			peak = b
		}
		if peak > 0 {
			maxDD = math.Max(maxDD, (peak-b)/peak)
		}
	}
	return maxDD
}

// OptimalKellyFraction walks KellyFractionGrid and returns the fraction before the first one
// whose mean max drawdown over 200-bet paths exceeds tolerance. When none exceeds it the
// largest fraction is returned.
func OptimalKellyFraction(rng *rand.Rand, winRate, american, tolerance float64, simulations int) float64 {
	const betsPerPath = 200
	if simulations <= 0 {
		simulations = 1000
	}
	for i, fraction := range KellyFractionGrid {
		total := 0.0
		for n := 0; n < simulations; n++ {
			total += PathMaxDrawdown(SimulateKellyGrowth(rng, 1000, winRate, american, betsPerPath, fraction))
		}
		if total/float64(simulations) > tolerance {
			if i == 0 {
				return KellyFractionGrid[0]
			}
			return KellyFractionGrid[i-1]
		}
	}
	return KellyFractionGrid[len(KellyFractionGrid)-1]
}
