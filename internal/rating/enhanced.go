package rating

import (
	"math"

	"github.com/yourusername/edge-backtester/internal/models"
)

// InjurySeverity classifies how much a missing player matters
type InjurySeverity string

const (
	InjuryStar     InjurySeverity = "star"
	InjuryStarter  InjurySeverity = "starter"
	InjuryRotation InjurySeverity = "rotation"
	InjuryBench    InjurySeverity = "bench"
)

// Injury is one unavailable player
type Injury struct {
	Player   string         `json:"player"`
	Severity InjurySeverity `json:"severity"`
}

// TeamContext is the pre-game situational input for one side
type TeamContext struct {
	Injuries    []Injury `json:"injuries,omitempty"`
	TravelMiles float64  `json:"travel_miles"`
	BackToBack  bool     `json:"back_to_back"`
}

// ContextProvider supplies situational context known before tip-off
type ContextProvider interface {
	TeamContext(team string, m models.Matchup) TeamContext
}

// StaticContext is a ContextProvider backed by a fixed map
type StaticContext map[string]TeamContext

// TeamContext returns the stored context for a team
func (s StaticContext) TeamContext(team string, _ models.Matchup) TeamContext {
	return s[team]
}

// InjuryPoints are rating deductions per unavailable player
type InjuryPoints struct {
	Star     float64
	Starter  float64
	Rotation float64
	Bench    float64
}

// EnhancedConfig holds every situational constant. The values are heuristics.
type EnhancedConfig struct {
	InjuryWeight float64
	InjuryPoints InjuryPoints

	FormWeight          float64
	FormWindow          int
	PointDiffWindow     int
	LongStreakLength    int
	LongStreakPerGame   float64
	LongStreakCap       float64
	ShortStreakLength   int
	ShortStreakPerGame  float64
	ShortStreakCap      float64
	PointDiffThreshold  float64
	PointDiffMultiplier float64
	PointDiffCap        float64
	StreakBlend         float64
	PointDiffBlend      float64
	BackToBackPenalty   float64
	NoRestPenalty       float64
	OneDayRestPenalty   float64
	RestedBonus         float64
	RestedDays          int
	LongTravelMiles     float64
	LongTravelPenalty   float64
	MediumTravelMiles   float64
	MediumTravelPenalty float64
	PlayoffHomeFactor   float64
	EliteVenueBonus     float64
	EliteVenues         []string
}

// DefaultEnhancedConfig returns the standard situational constants
func DefaultEnhancedConfig() EnhancedConfig {
	return EnhancedConfig{
		InjuryWeight:        1.0,
		InjuryPoints:        InjuryPoints{Star: 65, Starter: 30, Rotation: 10, Bench: 2},
		FormWeight:          0.15,
		FormWindow:          10,
		PointDiffWindow:     5,
		LongStreakLength:    4,
		LongStreakPerGame:   8,
		LongStreakCap:       40,
		ShortStreakLength:   2,
		ShortStreakPerGame:  5,
		ShortStreakCap:      20,
		PointDiffThreshold:  10,
		PointDiffMultiplier: 2,
		PointDiffCap:        30,
		StreakBlend:         0.6,
		PointDiffBlend:      0.4,
		BackToBackPenalty:   -40,
		NoRestPenalty:       -30,
		OneDayRestPenalty:   -15,
		RestedBonus:         7,
		RestedDays:          3,
		LongTravelMiles:     2000,
		LongTravelPenalty:   -10,
		MediumTravelMiles:   1000,
		MediumTravelPenalty: -5,
		PlayoffHomeFactor:   1.2,
		EliteVenueBonus:     15,
	}
}

// Breakdown exposes every additive term of an enhanced prediction
type Breakdown struct {
	HomeBase      float64 `json:"home_base"`
	AwayBase      float64 `json:"away_base"`
	HomeInjury    float64 `json:"home_injury"`
	AwayInjury    float64 `json:"away_injury"`
	HomeForm      float64 `json:"home_form"`
	AwayForm      float64 `json:"away_form"`
	HomeRest      float64 `json:"home_rest"`
	AwayRest      float64 `json:"away_rest"`
	HomeAdvantage float64 `json:"home_advantage"`
	HomeEffective float64 `json:"home_effective"`
	AwayEffective float64 `json:"away_effective"`
	Probability   float64 `json:"probability"`
}

type gameResult struct {
	won       bool
	pointDiff float64
}

// EnhancedElo layers injury, form, rest and venue adjustments over a base Elo at prediction
// time only. Stored ratings are never adjusted.
type EnhancedElo struct {
	base    *Elo
	cfg     EnhancedConfig
	context ContextProvider
	elite   map[string]bool
	results map[string][]gameResult
}

// NewEnhancedElo creates the enhanced model. provider may be nil.
func NewEnhancedElo(eloCfg EloConfig, cfg EnhancedConfig, provider ContextProvider) *EnhancedElo {
	elite := make(map[string]bool, len(cfg.EliteVenues))
	for _, team := range cfg.EliteVenues {
		elite[team] = true
	}
	return &EnhancedElo{
		base:    NewElo(eloCfg),
		cfg:     cfg,
		context: provider,
		elite:   elite,
		results: make(map[string][]gameResult),
	}
}

// Name returns the model name
func (m *EnhancedElo) Name() string {
	return "enhanced_elo"
}

// Base exposes the wrapped base model
func (m *EnhancedElo) Base() *Elo {
	return m.base
}

// Fit resets the base model and form history
func (m *EnhancedElo) Fit(history []models.Event) error {
	if err := m.base.Fit(history); err != nil {
		if ide, ok := err.(*models.InsufficientDataError); ok {
			ide.Model = m.Name()
		}
		return err
	}
	m.results = make(map[string][]gameResult)
	return nil
}

// Predict returns the adjusted home win probability
func (m *EnhancedElo) Predict(mu models.Matchup) Prediction {
	b, skip := m.breakdown(mu)
	if skip.Skipped {
		return skip
	}
	return Ok(b.Probability)
}

// Breakdown returns the individual adjustment terms for a matchup
func (m *EnhancedElo) Breakdown(mu models.Matchup) (Breakdown, bool) {
	b, skip := m.breakdown(mu)
	return b, !skip.Skipped
}

// Update applies the base rating update and records form
func (m *EnhancedElo) Update(ev models.Event) error {
	if err := m.base.Update(ev); err != nil {
		return err
	}
	margin := float64(ev.Margin())
	m.record(ev.HomeTeam, gameResult{won: ev.HomeWon(), pointDiff: margin})
	m.record(ev.AwayTeam, gameResult{won: !ev.HomeWon(), pointDiff: -margin})
	return nil
}

func (m *EnhancedElo) record(team string, r gameResult) {
	games := append(m.results[team], r)
	if keep := m.cfg.FormWindow; keep > 0 && len(games) > keep {
		games = games[len(games)-keep:]
	}
	m.results[team] = games
}

func (m *EnhancedElo) breakdown(mu models.Matchup) (Breakdown, Prediction) {
	m.base.advanceSeason(mu.Season)
	home, ok := m.base.lookup(mu.HomeTeam)
	if !ok {
		return Breakdown{}, Skip("no rating for %s", mu.HomeTeam)
	}
	away, ok := m.base.lookup(mu.AwayTeam)
	if !ok {
		return Breakdown{}, Skip("no rating for %s", mu.AwayTeam)
	}

	homeCtx, awayCtx := m.contextFor(mu.HomeTeam, mu), m.contextFor(mu.AwayTeam, mu)
	b := Breakdown{
		HomeBase:      home,
		AwayBase:      away,
		HomeInjury:    m.InjuryAdjustment(homeCtx.Injuries),
		AwayInjury:    m.InjuryAdjustment(awayCtx.Injuries),
		HomeForm:      m.FormAdjustment(mu.HomeTeam),
		AwayForm:      m.FormAdjustment(mu.AwayTeam),
		HomeRest:      m.RestAdjustment(mu.HomeRestDays, homeCtx.BackToBack, homeCtx.TravelMiles),
		AwayRest:      m.RestAdjustment(mu.AwayRestDays, awayCtx.BackToBack, awayCtx.TravelMiles),
		HomeAdvantage: m.HomeAdvantage(mu.HomeTeam, mu.IsPlayoff),
	}
	b.HomeEffective = b.HomeBase + b.HomeInjury + b.HomeForm + b.HomeRest
	b.AwayEffective = b.AwayBase + b.AwayInjury + b.AwayForm + b.AwayRest
	b.Probability = WinProbability(b.HomeEffective-b.AwayEffective+b.HomeAdvantage, m.base.cfg.Scale)
	return b, Prediction{}
}

func (m *EnhancedElo) contextFor(team string, mu models.Matchup) TeamContext {
	if m.context == nil {
		return TeamContext{}
	}
	return m.context.TeamContext(team, mu)
}

// InjuryAdjustment returns the (non-positive) rating deduction for a list of injuries
func (m *EnhancedElo) InjuryAdjustment(injuries []Injury) float64 {
	total := 0.0
	for _, inj := range injuries {
		switch inj.Severity {
		case InjuryStar:
			total += m.cfg.InjuryPoints.Star
		case InjuryStarter:
			total += m.cfg.InjuryPoints.Starter
		case InjuryRotation:
			total += m.cfg.InjuryPoints.Rotation
		case InjuryBench:
			total += m.cfg.InjuryPoints.Bench
		}
	}
	return -total * m.cfg.InjuryWeight
}

// FormAdjustment blends streak and recent point differential for a team
func (m *EnhancedElo) FormAdjustment(team string) float64 {
	games := m.results[team]
	if len(games) == 0 {
		return 0
	}
	streak := m.streakComponent(currentStreak(games))
	diff := m.pointDiffComponent(recentPointDiff(games, m.cfg.PointDiffWindow))
	return (streak*m.cfg.StreakBlend + diff*m.cfg.PointDiffBlend) * m.cfg.FormWeight
}

func (m *EnhancedElo) streakComponent(streak int) float64 {
	length := int(math.Abs(float64(streak)))
	sign := 1.0
	if streak < 0 {
		sign = -1.0
	}
	switch {
	case length >= m.cfg.LongStreakLength:
		return sign * math.Min(m.cfg.LongStreakCap, float64(length)*m.cfg.LongStreakPerGame)
	case length >= m.cfg.ShortStreakLength:
		return sign * math.Min(m.cfg.ShortStreakCap, float64(length)*m.cfg.ShortStreakPerGame)
	default:
		return 0
	}
}

func (m *EnhancedElo) pointDiffComponent(avg float64) float64 {
	if math.Abs(avg) <= m.cfg.PointDiffThreshold {
		return 0
	}
	return math.Max(-m.cfg.PointDiffCap, math.Min(m.cfg.PointDiffCap, avg*m.cfg.PointDiffMultiplier))
}

// RestAdjustment returns the fatigue or freshness term for one side. The back-to-back flag
// stacks with the rest-day term.
func (m *EnhancedElo) RestAdjustment(restDays int, backToBack bool, travelMiles float64) float64 {
	adj := 0.0
	if backToBack {
		adj += m.cfg.BackToBackPenalty
	}
	switch {
	case restDays == 0:
		adj += m.cfg.NoRestPenalty
	case restDays == 1:
		adj += m.cfg.OneDayRestPenalty
	case restDays >= m.cfg.RestedDays:
		adj += m.cfg.RestedBonus
	}
	switch {
	case travelMiles > m.cfg.LongTravelMiles:
		adj += m.cfg.LongTravelPenalty
	case travelMiles > m.cfg.MediumTravelMiles:
		adj += m.cfg.MediumTravelPenalty
	}
	return adj
}

// HomeAdvantage returns the contextual home advantage for a venue
func (m *EnhancedElo) HomeAdvantage(homeTeam string, playoff bool) float64 {
	adv := m.base.cfg.HomeAdvantage
	if playoff {
		adv *= m.cfg.PlayoffHomeFactor
	}
	if m.elite[homeTeam] {
		adv += m.cfg.EliteVenueBonus
	}
	return adv
}

// currentStreak counts consecutive identical results from the most recent game backward.
// Wins are positive, losses negative.
func currentStreak(games []gameResult) int {
	if len(games) == 0 {
		return 0
	}
	last := games[len(games)-1].won
	n := 0
	for i := len(games) - 1; i >= 0 && games[i].won == last; i-- {
		n++
	}
	if !last {
		return -n
	}
	return n
}

func recentPointDiff(games []gameResult, window int) float64 {
	if window <= 0 || window > len(games) {
		window = len(games)
	}
	sum := 0.0
	for _, g := range games[len(games)-window:] {
		sum += g.pointDiff
	}
	return sum / float64(window)
}
