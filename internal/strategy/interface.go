// Package strategy turns model probabilities into filtered, sized wagering opportunities.
package strategy

import (
	"sort"

	"github.com/yourusername/edge-backtester/internal/models"
	"github.com/yourusername/edge-backtester/internal/rating"
)

// Strategy defines the interface for opportunity finders used by the backtest engine
type Strategy interface {
	Name() string
	Find(m models.Matchup, pred rating.Prediction) []models.Opportunity
	GetParameters() map[string]interface{}
}

// Screen grades opportunities before sizing
type Screen interface {
	Evaluate(o models.Opportunity, publicPercentage *float64) models.Opportunity
}

// StakeSizer converts a probability and price into a stake
type StakeSizer interface {
	Stake(probability, american, bankroll float64) float64
}

// SortByEV orders opportunities by expected value, highest first. Ties keep input order.
func SortByEV(opps []models.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].ExpectedValue > opps[j].ExpectedValue
	})
}
