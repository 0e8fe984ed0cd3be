package strategy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/edge-backtester/internal/models"
	"github.com/yourusername/edge-backtester/internal/odds"
	"github.com/yourusername/edge-backtester/internal/rating"
)

func TestExpectedValue(t *testing.T) {
	assert.InDelta(t, 5.00, ExpectedValue(0.55, -110, 100), 1e-9)
	assert.InDelta(t, 12.50, ExpectedValue(0.45, 150, 100), 1e-9)
	assert.InDelta(t, 0.05, EVPercent(0.55, -110), 1e-9)
	assert.Equal(t, 0.0, ExpectedValue(0.55, 0, 100))
	assert.Equal(t, 0.0, ExpectedValue(0.55, -110, 0))
	assert.InDelta(t, 0.1, Edge(0.6, 0.5), 1e-12)
}

func TestKellyStake(t *testing.T) {
	assert.InDelta(t, 55.0, KellyStake(0.55, -110, 1000), 1e-9)
	assert.InDelta(t, 0.055, KellyFraction(0.55, -110), 1e-12)
	assert.Equal(t, 0.0, KellyFraction(0.45, -110))
	assert.Equal(t, 0.0, KellyFraction(math.NaN(), -110))
	assert.Equal(t, 0.0, KellyStake(0.55, -110, 0))
}

func TestCoverProbability(t *testing.T) {
	assert.InDelta(t, 0.5, CoverProbability(0.5, 0), 1e-12)

	// expected margin 2.8 against a 4.5 point home line
	want := 1 - normalCDF((4.5-2.8)/12)
	assert.InDelta(t, want, CoverProbability(0.64, -4.5), 1e-12)
	assert.Less(t, CoverProbability(0.64, -4.5), 0.5)

	// more points given to the home side means a higher cover chance
	assert.Greater(t, CoverProbability(0.5, 3.5), CoverProbability(0.5, -3.5))
	assert.InDelta(t, 1.0, CoverProbability(0.6, -2.5)+(1-CoverProbability(0.6, -2.5)), 1e-12)
}

func TestFinderMoneyline(t *testing.T) {
	f := NewFinder(DefaultFinderConfig())
	m := models.Matchup{
		EventID:  "e1",
		HomeTeam: "BOS",
		AwayTeam: "NYK",
		Market:   models.MarketQuotes{MoneylineHome: -110, MoneylineAway: -110},
	}

	opps := f.Find(m, rating.Ok(0.6))
	require.Len(t, opps, 1)
	o := opps[0]
	assert.Equal(t, "e1", o.EventID)
	assert.Equal(t, models.BetTypeMoneyline, o.BetType)
	assert.Equal(t, models.SideHome, o.Side)
	assert.InDelta(t, 0.5, o.FairProbability, 1e-12)
	assert.InDelta(t, odds.ToProbability(-110), o.ImpliedProbability, 1e-12)
	assert.InDelta(t, 0.1, o.Edge, 1e-12)
	assert.InDelta(t, 0.6*(100.0/110)-0.4, o.ExpectedValue, 1e-12)

	assert.Nil(t, f.Find(m, rating.Skip("cold start")))
}

func TestFinderSpreadAndBetTypes(t *testing.T) {
	m := models.Matchup{
		EventID: "e2",
		Market: models.MarketQuotes{
			MoneylineHome:  -200,
			MoneylineAway:  170,
			SpreadLine:     -4.5,
			SpreadHomeOdds: -110,
			SpreadAwayOdds: -110,
		},
	}

	spreadOnly := NewFinder(FinderConfig{MinEV: 0.02, MinEdge: 0.01, BetTypes: []models.BetType{models.BetTypeSpread}})
	// a weak home model makes the away spread attractive
	opps := spreadOnly.Find(m, rating.Ok(0.35))
	require.Len(t, opps, 1)
	assert.Equal(t, models.BetTypeSpread, opps[0].BetType)
	assert.Equal(t, models.SideAway, opps[0].Side)
	assert.Equal(t, 4.5, opps[0].Line)
	assert.InDelta(t, 1-CoverProbability(0.35, -4.5), opps[0].ModelProbability, 1e-12)

	both := NewFinder(DefaultFinderConfig())
	opps = both.Find(m, rating.Ok(0.35))
	require.Len(t, opps, 2)
	assert.GreaterOrEqual(t, opps[0].ExpectedValue, opps[1].ExpectedValue)
	for _, o := range opps {
		assert.Equal(t, models.SideAway, o.Side)
		assert.GreaterOrEqual(t, o.ExpectedValue, DefaultMinEV)
		assert.GreaterOrEqual(t, o.Edge, DefaultMinEdge)
	}
}

func TestFinderRejectsInvalidMarket(t *testing.T) {
	f := NewFinder(DefaultFinderConfig())
	m := models.Matchup{Market: models.MarketQuotes{MoneylineHome: 20000, MoneylineAway: -110}}
	assert.Empty(t, f.Find(m, rating.Ok(0.9)))
}

func TestSortByEVIsStable(t *testing.T) {
	opps := []models.Opportunity{
		{EventID: "a", ExpectedValue: 0.03},
		{EventID: "b", ExpectedValue: 0.08},
		{EventID: "c", ExpectedValue: 0.03},
	}
	SortByEV(opps)
	assert.Equal(t, []string{"b", "a", "c"}, []string{opps[0].EventID, opps[1].EventID, opps[2].EventID})
}

func TestFilterRules(t *testing.T) {
	f := NewFilter(DefaultFilterConfig())
	tests := []struct {
		name       string
		opp        models.Opportunity
		public     *float64
		multiplier float64
		rec        models.Recommendation
		rules      []string
	}{
		{
			name:       "clean",
			opp:        models.Opportunity{Edge: 0.03, ModelProbability: 0.55, ExpectedValue: 0.05, Odds: -110},
			multiplier: 1,
			rec:        models.RecommendProceed,
		},
		{
			name:       "critical edge",
			opp:        models.Opportunity{Edge: 0.2, ModelProbability: 0.7, ExpectedValue: 0.05, Odds: -110},
			multiplier: 0.3,
			rec:        models.RecommendDoNotBet,
			rules:      []string{"edge_unrealistic"},
		},
		{
			name:       "high edge",
			opp:        models.Opportunity{Edge: 0.12, ModelProbability: 0.6, ExpectedValue: 0.05, Odds: 110},
			multiplier: 0.5,
			rec:        models.RecommendCaution,
			rules:      []string{"edge_very_large"},
		},
		{
			name:       "moderate edge",
			opp:        models.Opportunity{Edge: 0.06, ModelProbability: 0.56, ExpectedValue: 0.05, Odds: -110},
			multiplier: 0.75,
			rec:        models.RecommendReduced,
			rules:      []string{"edge_significant"},
		},
		{
			name:       "extreme probability",
			opp:        models.Opportunity{Edge: 0.02, ModelProbability: 0.95, ExpectedValue: 0.03, Odds: -1500},
			multiplier: 0.6,
			rec:        models.RecommendCaution,
			rules:      []string{"probability_extreme"},
		},
		{
			name:       "favourite with high ev",
			opp:        models.Opportunity{Edge: 0.03, ModelProbability: 0.7, ExpectedValue: 0.12, Odds: -200},
			multiplier: 0.7,
			rec:        models.RecommendReduced,
			rules:      []string{"favourite_high_ev"},
		},
		{
			name:       "underdog with high ev",
			opp:        models.Opportunity{Edge: 0.04, ModelProbability: 0.4, ExpectedValue: 0.2, Odds: 200},
			multiplier: 0.75,
			rec:        models.RecommendReduced,
			rules:      []string{"underdog_high_ev"},
		},
		{
			name:       "public side",
			opp:        models.Opportunity{Edge: 0.03, ModelProbability: 0.55, ExpectedValue: 0.05, Odds: -110},
			public:     floatPtr(80),
			multiplier: 0.9,
			rec:        models.RecommendReduced,
			rules:      []string{"public_side"},
		},
		{
			name:       "stacked",
			opp:        models.Opportunity{Edge: 0.12, ModelProbability: 0.92, ExpectedValue: 0.05, Odds: -110},
			multiplier: 0.3,
			rec:        models.RecommendCaution,
			rules:      []string{"edge_very_large", "probability_extreme"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Evaluate(tt.opp, tt.public)
			assert.InDelta(t, tt.multiplier, got.ConfidenceMultiplier, 1e-12)
			assert.Equal(t, tt.rec, got.Recommendation)
			assert.InDelta(t, tt.opp.Edge*tt.multiplier, got.AdjustedEdge, 1e-12)
			assert.InDelta(t, tt.opp.ExpectedValue*tt.multiplier, got.AdjustedEV, 1e-12)
			var rules []string
			for _, fl := range got.Flags {
				rules = append(rules, fl.Rule)
			}
			assert.Equal(t, tt.rules, rules)
		})
	}
}

func TestFilteredSizingProbability(t *testing.T) {
	f := NewFilter(DefaultFilterConfig())
	o := f.Evaluate(models.Opportunity{FairProbability: 0.5, ModelProbability: 0.62, Edge: 0.12, Odds: 110, ExpectedValue: 0.05}, nil)
	assert.InDelta(t, 0.56, o.SizingProbability(), 1e-12)
}

func TestSidePublicPercentage(t *testing.T) {
	assert.Nil(t, SidePublicPercentage(nil, models.SideHome))
	assert.Equal(t, 80.0, *SidePublicPercentage(floatPtr(80), models.SideHome))
	assert.Equal(t, 20.0, *SidePublicPercentage(floatPtr(80), models.SideAway))
}

func TestEstimateViability(t *testing.T) {
	v := EstimateViability(0.2, 150, 0.6, 5)
	assert.Equal(t, LimitImmediate, v.LimitSeverity)
	assert.Equal(t, 30, v.DaysUntilLimited)
	assert.InDelta(t, 150, v.BetsBeforeLimited, 1e-9)
	assert.InDelta(t, 3000, v.ExpectedProfitBeforeLimits, 1e-9)
	assert.InDelta(t, 0.2-1.96*0.04, v.CILower, 1e-9)
	assert.True(t, v.Sustainable)

	v = EstimateViability(0.12, 150, 0.55, 5)
	assert.Equal(t, LimitSlow, v.LimitSeverity)
	assert.Equal(t, 240, v.DaysUntilLimited)

	v = EstimateViability(0.11, 250, 0.55, 5)
	assert.Equal(t, LimitFast, v.LimitSeverity)

	v = EstimateViability(0.06, 600, 0.55, 5)
	assert.Equal(t, LimitEventual, v.LimitSeverity)

	v = EstimateViability(0.02, 1000, 0.52, 5)
	assert.Equal(t, LimitSafe, v.LimitSeverity)
	assert.Equal(t, 999, v.DaysUntilLimited)
	assert.False(t, v.Sustainable)
}

func floatPtr(v float64) *float64 {
	return &v
}

func newSizer(t *testing.T, mutate func(*SizerConfig)) *Sizer {
	t.Helper()
	cfg := DefaultSizerConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewSizer(cfg)
	require.NoError(t, err)
	return s
}

func TestSizerMethods(t *testing.T) {
	assert.InDelta(t, 13.75, newSizer(t, nil).Stake(0.55, -110, 1000), 1e-9)

	// full Kelly of 55 is capped at 5% of bankroll
	kelly := newSizer(t, func(c *SizerConfig) { c.Method = SizingKelly })
	assert.InDelta(t, 50.0, kelly.Stake(0.55, -110, 1000), 1e-9)

	flat := newSizer(t, func(c *SizerConfig) { c.Method = SizingFlat })
	assert.InDelta(t, 10.0, flat.Stake(0.30, -110, 1000), 1e-9)

	capped := newSizer(t, func(c *SizerConfig) { c.MaxBetAmount = 12 })
	assert.InDelta(t, 12.0, capped.Stake(0.55, -110, 1000), 1e-9)

	// 5% of 10333.33 is 516.6665, floored so the ledger sees a whole-cent stake at the cap
	assert.Equal(t, 516.66, newSizer(t, nil).Stake(0.6, 300, 10333.33))

	// 6.875 is under the minimum
	assert.Equal(t, 0.0, newSizer(t, nil).Stake(0.55, -110, 500))
	assert.Equal(t, 0.0, newSizer(t, nil).Stake(0.45, -110, 1000))
}

func TestSizerIsTotal(t *testing.T) {
	s := newSizer(t, func(c *SizerConfig) { c.Method = SizingKelly })
	prices := []float64{-10000, -500, -110, 100, 150, 900, 10000}
	for p := 0.0; p <= 1.0; p += 0.05 {
		for _, price := range prices {
			stake := s.Stake(p, price, 1000)
			assert.False(t, math.IsNaN(stake) || math.IsInf(stake, 0))
			assert.GreaterOrEqual(t, stake, 0.0)
			assert.LessOrEqual(t, stake, 50.0)
		}
	}
	assert.Equal(t, 0.0, s.Stake(1.2, -110, 1000))
	assert.Equal(t, 0.0, s.Stake(math.NaN(), -110, 1000))
	assert.Equal(t, 0.0, s.Stake(0.6, 0, 1000))
	assert.Equal(t, 0.0, s.Stake(0.6, -110, -5))
	assert.Equal(t, 0.0, s.Stake(0.6, -110, math.Inf(1)))
}

func TestNewSizerRejectsUnknownMethod(t *testing.T) {
	_, err := NewSizer(SizerConfig{Method: "martingale"})
	assert.ErrorIs(t, err, models.ErrUnknownSizingMethod)

	m, err := ParseSizingMethod("")
	require.NoError(t, err)
	assert.Equal(t, SizingFractionalKelly, m)
}

func TestSimulateKellyGrowthDeterministic(t *testing.T) {
	a := SimulateKellyGrowth(rand.New(rand.NewSource(42)), 1000, 0.55, -110, 100, 0.25)
	b := SimulateKellyGrowth(rand.New(rand.NewSource(42)), 1000, 0.55, -110, 100, 0.25)
	assert.Equal(t, a, b)
	assert.Len(t, a, 101)
	assert.Equal(t, 1000.0, a[0])

	sure := SimulateKellyGrowth(rand.New(rand.NewSource(1)), 1000, 1.0, 100, 5, 0.1)
	for i := 1; i < len(sure); i++ {
		assert.Greater(t, sure[i], sure[i-1])
	}
}

func TestPathMaxDrawdown(t *testing.T) {
	assert.InDelta(t, 0.25, PathMaxDrawdown([]float64{100, 120, 90, 130}), 1e-12)
	assert.Equal(t, 0.0, PathMaxDrawdown(nil))
	assert.Equal(t, 1.0, PathMaxDrawdown([]float64{100, 0}))
}

func TestOptimalKellyFraction(t *testing.T) {
	assert.Equal(t, 0.5, OptimalKellyFraction(rand.New(rand.NewSource(7)), 0.55, -110, 1.0, 20))
	assert.Equal(t, 0.1, OptimalKellyFraction(rand.New(rand.NewSource(7)), 0.55, -110, 0, 20))
}
