package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/edge-backtester/internal/models"
)

func newEnhanced(provider ContextProvider, elite ...string) *EnhancedElo {
	cfg := DefaultEnhancedConfig()
	cfg.EliteVenues = elite
	return NewEnhancedElo(DefaultEloConfig(), cfg, provider)
}

func TestInjuryAdjustment(t *testing.T) {
	m := newEnhanced(nil)
	assert.Equal(t, 0.0, m.InjuryAdjustment(nil))
	assert.Equal(t, -67.0, m.InjuryAdjustment([]Injury{
		{Player: "A", Severity: InjuryStar},
		{Player: "B", Severity: InjuryBench},
	}))
	assert.Equal(t, -40.0, m.InjuryAdjustment([]Injury{
		{Player: "C", Severity: InjuryStarter},
		{Player: "D", Severity: InjuryRotation},
	}))
}

func TestRestAdjustment(t *testing.T) {
	m := newEnhanced(nil)
	tests := []struct {
		name       string
		rest       int
		backToBack bool
		miles      float64
		want       float64
	}{
		{"normal rest", 2, false, 0, 0},
		{"no rest", 0, false, 0, -30},
		{"one day", 1, false, 0, -15},
		{"rested", 3, false, 0, 7},
		{"back to back stacks", 0, true, 0, -70},
		{"long travel", 2, false, 2500, -10},
		{"medium travel", 3, false, 1500, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.RestAdjustment(tt.rest, tt.backToBack, tt.miles))
		})
	}
}

func TestHomeAdvantageContext(t *testing.T) {
	m := newEnhanced(nil, "DEN")
	assert.Equal(t, 100.0, m.HomeAdvantage("BOS", false))
	assert.InDelta(t, 120.0, m.HomeAdvantage("BOS", true), 1e-9)
	assert.Equal(t, 115.0, m.HomeAdvantage("DEN", false))
	assert.InDelta(t, 135.0, m.HomeAdvantage("DEN", true), 1e-9)
}

func TestCurrentStreak(t *testing.T) {
	w, l := gameResult{won: true}, gameResult{won: false}
	assert.Equal(t, 0, currentStreak(nil))
	assert.Equal(t, 1, currentStreak([]gameResult{w, w, l, w}))
	assert.Equal(t, -2, currentStreak([]gameResult{w, l, l}))
	assert.Equal(t, 3, currentStreak([]gameResult{w, w, w}))
}

func TestFormAdjustment(t *testing.T) {
	m := newEnhanced(nil)
	var events []models.Event
	for i := 1; i <= 4; i++ {
		events = append(events, game(i, 2024, "BOS", "NYK", 112, 100))
	}
	require.NoError(t, m.Fit(events))
	for _, ev := range events {
		require.NoError(t, m.Update(ev))
	}

	// four-game streak: min(40, 32) = 32; avg diff 12 -> 24
	want := (0.6*32 + 0.4*24) * 0.15
	assert.InDelta(t, want, m.FormAdjustment("BOS"), 1e-9)
	assert.InDelta(t, -want, m.FormAdjustment("NYK"), 1e-9)
	assert.Equal(t, 0.0, m.FormAdjustment("MIA"))
}

func TestFormShortStreakSmallMargin(t *testing.T) {
	m := newEnhanced(nil)
	events := []models.Event{
		game(1, 2024, "BOS", "NYK", 100, 90),
		game(2, 2024, "BOS", "NYK", 100, 95),
	}
	require.NoError(t, m.Fit(events))
	for _, ev := range events {
		require.NoError(t, m.Update(ev))
	}
	// streak 2 -> 10, avg diff 7.5 is under the threshold
	assert.InDelta(t, 0.6*10*0.15, m.FormAdjustment("BOS"), 1e-9)
}

func TestEnhancedBreakdown(t *testing.T) {
	provider := StaticContext{
		"BOS": {Injuries: []Injury{{Player: "X", Severity: InjuryStar}}},
		"NYK": {BackToBack: true, TravelMiles: 2100},
	}
	m := newEnhanced(provider)
	require.NoError(t, m.Fit([]models.Event{game(1, 2024, "BOS", "NYK", 100, 90)}))

	mu := models.Matchup{Season: 2024, HomeTeam: "BOS", AwayTeam: "NYK", HomeRestDays: 3, AwayRestDays: 0, IsPlayoff: true}
	b, ok := m.Breakdown(mu)
	require.True(t, ok)

	assert.Equal(t, -65.0, b.HomeInjury)
	assert.Equal(t, 0.0, b.AwayInjury)
	assert.Equal(t, 7.0, b.HomeRest)
	assert.Equal(t, -80.0, b.AwayRest)
	assert.InDelta(t, 120.0, b.HomeAdvantage, 1e-9)
	assert.InDelta(t, 1500-65+7, b.HomeEffective, 1e-9)
	assert.InDelta(t, 1500-80, b.AwayEffective, 1e-9)
	assert.InDelta(t, WinProbability(b.HomeEffective-b.AwayEffective+b.HomeAdvantage, 400), b.Probability, 1e-12)

	p := m.Predict(mu)
	require.False(t, p.Skipped)
	assert.Equal(t, b.Probability, p.HomeWinProbability)
}

func TestEnhancedNeverWritesAdjustmentsIntoRatings(t *testing.T) {
	provider := StaticContext{"BOS": {Injuries: []Injury{{Severity: InjuryStar}}}}
	enhanced := newEnhanced(provider)
	plain := NewElo(DefaultEloConfig())

	events := []models.Event{
		game(1, 2024, "BOS", "NYK", 100, 90),
		game(2, 2024, "NYK", "BOS", 110, 108),
		game(3, 2024, "BOS", "NYK", 97, 99),
	}
	require.NoError(t, enhanced.Fit(events))
	require.NoError(t, plain.Fit(events))
	for _, ev := range events {
		enhanced.Predict(ev.Matchup())
		require.NoError(t, enhanced.Update(ev))
		require.NoError(t, plain.Update(ev))
	}
	assert.Equal(t, plain.Ratings(), enhanced.Base().Ratings())
}

func TestEnhancedStrictSkips(t *testing.T) {
	eloCfg := DefaultEloConfig()
	eloCfg.Strict = true
	m := NewEnhancedElo(eloCfg, DefaultEnhancedConfig(), nil)
	require.NoError(t, m.Fit([]models.Event{game(1, 2024, "BOS", "NYK", 100, 90)}))

	p := m.Predict(models.Matchup{Season: 2024, HomeTeam: "BOS", AwayTeam: "LAL"})
	assert.True(t, p.Skipped)
	_, ok := m.Breakdown(models.Matchup{Season: 2024, HomeTeam: "BOS", AwayTeam: "LAL"})
	assert.False(t, ok)
}
