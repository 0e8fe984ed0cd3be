package strategy

import (
	"github.com/yourusername/edge-backtester/internal/models"
	"github.com/yourusername/edge-backtester/internal/odds"
	"github.com/yourusername/edge-backtester/internal/rating"
)

// Finder defaults
const (
	DefaultMinEV   = 0.02
	DefaultMinEdge = 0.01
)

// FinderConfig controls which opportunities are emitted
type FinderConfig struct {
	MinEV     float64
	MinEdge   float64
	VigMethod odds.Method
	BetTypes  []models.BetType
}

// DefaultFinderConfig returns the standard thresholds on both markets
func DefaultFinderConfig() FinderConfig {
	return FinderConfig{
		MinEV:     DefaultMinEV,
		MinEdge:   DefaultMinEdge,
		VigMethod: odds.MethodProportional,
		BetTypes:  []models.BetType{models.BetTypeMoneyline, models.BetTypeSpread},
	}
}

// Finder emits positive expected value opportunities on moneyline and spread markets
type Finder struct {
	cfg       FinderConfig
	moneyline bool
	spread    bool
}

// NewFinder creates an EV finder
func NewFinder(cfg FinderConfig) *Finder {
	f := &Finder{cfg: cfg}
	if len(cfg.BetTypes) == 0 {
		f.moneyline, f.spread = true, true
	}
	for _, bt := range cfg.BetTypes {
		switch bt {
		case models.BetTypeMoneyline:
			f.moneyline = true
		case models.BetTypeSpread:
			f.spread = true
		}
	}
	return f
}

// Name returns strategy name
func (f *Finder) Name() string {
	return "ev_finder"
}

// GetParameters returns strategy parameters for export
func (f *Finder) GetParameters() map[string]interface{} {
	return map[string]interface{}{
		"min_ev":             f.cfg.MinEV,
		"min_edge":           f.cfg.MinEdge,
		"vig_removal_method": string(f.cfg.VigMethod),
		"moneyline":          f.moneyline,
		"spread":             f.spread,
	}
}

// Find evaluates all sides of the matchup's markets and returns qualifying opportunities
// sorted by expected value
func (f *Finder) Find(m models.Matchup, pred rating.Prediction) []models.Opportunity {
	if pred.Skipped {
		return nil
	}
	p := NormalizeProbability(pred.HomeWinProbability)
	q := m.Market
	var opps []models.Opportunity

	if f.moneyline && q.HasMoneyline() {
		opps = f.appendPair(opps, m.EventID, models.BetTypeMoneyline,
			q.MoneylineHome, q.MoneylineAway, 0, p)
	}
	if f.spread && q.HasSpread() {
		opps = f.appendPair(opps, m.EventID, models.BetTypeSpread,
			q.SpreadHomeOdds, q.SpreadAwayOdds, q.SpreadLine, CoverProbability(p, q.SpreadLine))
	}

	SortByEV(opps)
	return opps
}

// appendPair evaluates both sides of one two-way market. homeLine is the line quoted for
// the home side; the away side carries its negation.
func (f *Finder) appendPair(opps []models.Opportunity, eventID string, betType models.BetType,
	homeOdds, awayOdds, homeLine, homeProbability float64) []models.Opportunity {
	fairHome, fairAway, err := odds.FairPair(f.cfg.VigMethod, homeOdds, awayOdds)
	if err != nil {
		return opps
	}
	awayLine := 0.0
	if homeLine != 0 {
		awayLine = -homeLine
	}
	sides := []struct {
		side  models.Side
		price float64
		line  float64
		model float64
		fair  float64
	}{
		{models.SideHome, homeOdds, homeLine, homeProbability, fairHome},
		{models.SideAway, awayOdds, awayLine, 1 - homeProbability, fairAway},
	}
	for _, s := range sides {
		ev := EVPercent(s.model, s.price)
		edge := Edge(s.model, s.fair)
		if ev < f.cfg.MinEV || edge < f.cfg.MinEdge {
			continue
		}
		opps = append(opps, models.Opportunity{
			EventID:            eventID,
			BetType:            betType,
			Side:               s.side,
			Odds:               s.price,
			Line:               s.line,
			ModelProbability:   s.model,
			FairProbability:    s.fair,
			ImpliedProbability: odds.ToProbability(s.price),
			Edge:               edge,
			ExpectedValue:      ev,
		})
	}
	return opps
}
