package strategy

import (
	"fmt"
	"math"

	"github.com/yourusername/edge-backtester/internal/models"
)

// FilterConfig holds the market-efficiency thresholds and confidence multipliers
type FilterConfig struct {
	CriticalEdge       float64
	CriticalMultiplier float64
	HighEdge           float64
	HighMultiplier     float64
	ModerateEdge       float64
	ModerateMultiplier float64

	ExtremeHigh       float64
	ExtremeLow        float64
	ExtremeMultiplier float64

	FavouriteEV         float64
	FavouriteOdds       float64
	FavouriteMultiplier float64
	UnderdogEV          float64
	UnderdogOdds        float64
	UnderdogMultiplier  float64

	PublicPercentage float64
	PublicMultiplier float64
}

// DefaultFilterConfig returns the standard efficiency rules
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		CriticalEdge:        0.15,
		CriticalMultiplier:  0.3,
		HighEdge:            0.10,
		HighMultiplier:      0.5,
		ModerateEdge:        0.05,
		ModerateMultiplier:  0.75,
		ExtremeHigh:         0.90,
		ExtremeLow:          0.10,
		ExtremeMultiplier:   0.6,
		FavouriteEV:         0.10,
		FavouriteOdds:       -150,
		FavouriteMultiplier: 0.7,
		UnderdogEV:          0.15,
		UnderdogOdds:        150,
		UnderdogMultiplier:  0.75,
		PublicPercentage:    75,
		PublicMultiplier:    0.9,
	}
}

// Filter discounts opportunities whose edge looks too good for an efficient market
type Filter struct {
	cfg FilterConfig
}

// NewFilter creates a market-efficiency filter
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Evaluate grades an opportunity. publicPercentage is the share of public tickets on the
// opportunity's side, nil when unknown.
func (f *Filter) Evaluate(o models.Opportunity, publicPercentage *float64) models.Opportunity {
	c := f.cfg
	var flags []models.Flag
	multiplier := 1.0
	raise := func(sev models.Severity, rule string, mult float64, format string, args ...any) {
		flags = append(flags, models.Flag{
			Severity:   sev,
			Rule:       rule,
			Message:    fmt.Sprintf(format, args...),
			Multiplier: mult,
		})
		multiplier *= mult
	}

	edge := math.Abs(o.Edge)
	switch {
	case edge > c.CriticalEdge:
		raise(models.SeverityCritical, "edge_unrealistic", c.CriticalMultiplier, "edge of %.1f%% is unrealistic", edge*100)
	case edge > c.HighEdge:
		raise(models.SeverityHigh, "edge_very_large", c.HighMultiplier, "edge of %.1f%% is very large", edge*100)
	case edge > c.ModerateEdge:
		raise(models.SeverityModerate, "edge_significant", c.ModerateMultiplier, "edge of %.1f%% is significant", edge*100)
	}

	if o.ModelProbability > c.ExtremeHigh || o.ModelProbability < c.ExtremeLow {
		raise(models.SeverityHigh, "probability_extreme", c.ExtremeMultiplier,
			"model probability %.1f%% is extreme", o.ModelProbability*100)
	}
	if o.ExpectedValue > c.FavouriteEV && o.Odds < c.FavouriteOdds {
		raise(models.SeverityModerate, "favourite_high_ev", c.FavouriteMultiplier,
			"EV of %.1f%% on a %+.0f favourite", o.ExpectedValue*100, o.Odds)
	}
	if o.ExpectedValue > c.UnderdogEV && o.Odds > c.UnderdogOdds {
		raise(models.SeverityModerate, "underdog_high_ev", c.UnderdogMultiplier,
			"EV of %.1f%% on a %+.0f underdog", o.ExpectedValue*100, o.Odds)
	}
	if publicPercentage != nil && *publicPercentage > c.PublicPercentage {
		raise(models.SeverityLow, "public_side", c.PublicMultiplier,
			"%.0f%% of public tickets on this side", *publicPercentage)
	}

	o.Flags = flags
	o.ConfidenceMultiplier = multiplier
	o.AdjustedEdge = o.Edge * multiplier
	o.AdjustedEV = o.ExpectedValue * multiplier
	o.Recommendation = recommend(flags)
	return o
}

// SidePublicPercentage converts the home ticket share into the share on the given side
func SidePublicPercentage(homeShare *float64, side models.Side) *float64 {
	if homeShare == nil {
		return nil
	}
	v := *homeShare
	if side == models.SideAway {
		v = 100 - v
	}
	return &v
}

func recommend(flags []models.Flag) models.Recommendation {
	if len(flags) == 0 {
		return models.RecommendProceed
	}
	high := false
	for _, fl := range flags {
		switch fl.Severity {
		case models.SeverityCritical:
			return models.RecommendDoNotBet
		case models.SeverityHigh:
			high = true
		}
	}
	if high {
		return models.RecommendCaution
	}
	return models.RecommendReduced
}

// Limit severities for EstimateViability
const (
	LimitImmediate = "IMMEDIATE LIMITS"
	LimitFast      = "FAST LIMITS"
	LimitEventual  = "EVENTUAL LIMITS"
	LimitSlow      = "SLOW LIMITS"
	LimitSafe      = "PROBABLY SAFE"
)

// Viability estimates whether a realised ROI can be sustained before the book limits the account.
// ExpectedProfitBeforeLimits assumes a 100-unit average stake.
type Viability struct {
	Sustainable                bool    `json:"sustainable"`
	CILower                    float64 `json:"ci_95_lower"`
	CIUpper                    float64 `json:"ci_95_upper"`
	DaysUntilLimited           int     `json:"days_until_limited"`
	LimitSeverity              string  `json:"limit_severity"`
	BetsBeforeLimited          float64 `json:"bets_before_limited"`
	ExpectedProfitBeforeLimits float64 `json:"expected_profit_before_limits"`
}

// EstimateViability classifies a track record. The confidence interval uses the binomial
// standard error of the win rate.
func EstimateViability(roi float64, sampleSize int, winRate, betsPerDay float64) Viability {
	stdErr := 0.0
	if sampleSize > 0 {
		stdErr = math.Sqrt(winRate * (1 - winRate) / float64(sampleSize))
	}
	v := Viability{
		CILower: roi - 1.96*stdErr,
		CIUpper: roi + 1.96*stdErr,
	}
	switch {
	case roi > 0.15 && sampleSize > 100:
		v.DaysUntilLimited, v.LimitSeverity = 30, LimitImmediate
	case roi > 0.10 && sampleSize > 200:
		v.DaysUntilLimited, v.LimitSeverity = 60, LimitFast
	case roi > 0.05 && sampleSize > 500:
		v.DaysUntilLimited, v.LimitSeverity = 120, LimitEventual
	case roi > 0.03:
		v.DaysUntilLimited, v.LimitSeverity = 240, LimitSlow
	default:
		v.DaysUntilLimited, v.LimitSeverity = 999, LimitSafe
	}
	v.BetsBeforeLimited = float64(v.DaysUntilLimited) * betsPerDay
	v.ExpectedProfitBeforeLimits = v.BetsBeforeLimited * roi * 100
	v.Sustainable = roi > 0.03 && v.CILower > 0
	return v
}
