package rating

import (
	"math"
	"sort"

	"github.com/yourusername/edge-backtester/internal/models"
)

// Elo defaults
const (
	DefaultKFactor          = 20.0
	DefaultHomeAdvantage    = 100.0
	DefaultRating           = 1500.0
	DefaultScale            = 400.0
	DefaultSeasonRegression = 0.25
	DefaultMOVDampening     = 0.8
)

// EloConfig holds base model constants
type EloConfig struct {
	KFactor       float64
	HomeAdvantage float64
	DefaultRating float64
	Scale         float64
	// SeasonRegression is the fraction of the gap to DefaultRating closed at each new season.
	SeasonRegression float64
	// MOVDampening scales the margin multiplier when the pre-game favourite won.
	MOVDampening float64
	// Strict disables auto-initialisation of unseen competitors.
	Strict bool
}

// DefaultEloConfig returns the standard constants
func DefaultEloConfig() EloConfig {
	return EloConfig{
		KFactor:          DefaultKFactor,
		HomeAdvantage:    DefaultHomeAdvantage,
		DefaultRating:    DefaultRating,
		Scale:            DefaultScale,
		SeasonRegression: DefaultSeasonRegression,
		MOVDampening:     DefaultMOVDampening,
	}
}

func (c EloConfig) withDefaults() EloConfig {
	if c.KFactor <= 0 {
		c.KFactor = DefaultKFactor
	}
	if c.DefaultRating <= 0 {
		c.DefaultRating = DefaultRating
	}
	if c.Scale <= 0 {
		c.Scale = DefaultScale
	}
	if c.SeasonRegression < 0 || c.SeasonRegression > 1 {
		c.SeasonRegression = DefaultSeasonRegression
	}
	if c.MOVDampening <= 0 {
		c.MOVDampening = DefaultMOVDampening
	}
	return c
}

// RatingChange records one applied update
type RatingChange struct {
	EventID    string  `json:"event_id"`
	Season     int     `json:"season"`
	HomeTeam   string  `json:"home_team"`
	AwayTeam   string  `json:"away_team"`
	HomeBefore float64 `json:"home_before"`
	AwayBefore float64 `json:"away_before"`
	Expected   float64 `json:"expected"`
	Multiplier float64 `json:"multiplier"`
	Delta      float64 `json:"delta"`
}

// Elo is the base sequential rating model. Its rating map is owned by the instance.
type Elo struct {
	cfg       EloConfig
	ratings   map[string]float64
	season    int
	seasonSet bool
	history   []RatingChange
}

// NewElo creates a base rating model
func NewElo(cfg EloConfig) *Elo {
	return &Elo{
		cfg:     cfg.withDefaults(),
		ratings: make(map[string]float64),
	}
}

// Name returns the model name
func (e *Elo) Name() string {
	return "elo"
}

// Config returns the effective constants
func (e *Elo) Config() EloConfig {
	return e.cfg
}

// Fit resets state and registers every competitor in history at the default rating.
// Outcomes in history are not consumed.
func (e *Elo) Fit(history []models.Event) error {
	if len(history) == 0 {
		return &models.InsufficientDataError{Model: e.Name(), Required: 1, Got: 0}
	}
	e.ratings = make(map[string]float64)
	e.history = nil
	e.seasonSet = false
	for _, ev := range history {
		e.ratings[ev.HomeTeam] = e.cfg.DefaultRating
		e.ratings[ev.AwayTeam] = e.cfg.DefaultRating
	}
	return nil
}

// Predict returns the home win probability from current ratings
func (e *Elo) Predict(m models.Matchup) Prediction {
	e.advanceSeason(m.Season)
	home, ok := e.lookup(m.HomeTeam)
	if !ok {
		return Skip("no rating for %s", m.HomeTeam)
	}
	away, ok := e.lookup(m.AwayTeam)
	if !ok {
		return Skip("no rating for %s", m.AwayTeam)
	}
	return Ok(e.expected(home, away))
}

// Update applies the zero-sum rating change for a completed event
func (e *Elo) Update(ev models.Event) error {
	e.advanceSeason(ev.Season)
	home, ok := e.lookup(ev.HomeTeam)
	if !ok {
		return &models.PredictionFailure{EventID: ev.ID, Stage: "update", Err: models.ErrUnknownCompetitor}
	}
	away, ok := e.lookup(ev.AwayTeam)
	if !ok {
		return &models.PredictionFailure{EventID: ev.ID, Stage: "update", Err: models.ErrUnknownCompetitor}
	}

	expected := e.expected(home, away)
	actual := 0.0
	if ev.HomeWon() {
		actual = 1.0
	}
	multiplier := e.movMultiplier(ev.Margin(), home-away+e.cfg.HomeAdvantage)
	delta := e.cfg.KFactor * multiplier * (actual - expected)

	e.ratings[ev.HomeTeam] = home + delta
	e.ratings[ev.AwayTeam] = away - delta
	e.history = append(e.history, RatingChange{
		EventID:    ev.ID,
		Season:     ev.Season,
		HomeTeam:   ev.HomeTeam,
		AwayTeam:   ev.AwayTeam,
		HomeBefore: home,
		AwayBefore: away,
		Expected:   expected,
		Multiplier: multiplier,
		Delta:      delta,
	})
	return nil
}

// Rating returns a competitor's rating and whether it is known
func (e *Elo) Rating(team string) (float64, bool) {
	r, ok := e.ratings[team]
	return r, ok
}

// Ratings returns a copy of the rating map
func (e *Elo) Ratings() map[string]float64 {
	out := make(map[string]float64, len(e.ratings))
	for team, r := range e.ratings {
		out[team] = r
	}
	return out
}

// Rankings returns teams ordered by rating, best first
func (e *Elo) Rankings() []string {
	teams := make([]string, 0, len(e.ratings))
	for team := range e.ratings {
		teams = append(teams, team)
	}
	sort.Slice(teams, func(i, j int) bool {
		if e.ratings[teams[i]] == e.ratings[teams[j]] {
			return teams[i] < teams[j]
		}
		return e.ratings[teams[i]] > e.ratings[teams[j]]
	})
	return teams
}

// History returns applied rating changes in order
func (e *Elo) History() []RatingChange {
	return append([]RatingChange(nil), e.history...)
}

// ExpectedSpread returns the home point spread implied by current ratings
func (e *Elo) ExpectedSpread(homeTeam, awayTeam string) float64 {
	home, _ := e.lookup(homeTeam)
	away, _ := e.lookup(awayTeam)
	return RatingToSpread(home - away + e.cfg.HomeAdvantage)
}

func (e *Elo) expected(home, away float64) float64 {
	return WinProbability(home-away+e.cfg.HomeAdvantage, e.cfg.Scale)
}

// movMultiplier grows with the log of the margin and is damped when the favourite won
func (e *Elo) movMultiplier(margin int, ratingDiff float64) float64 {
	abs := math.Abs(float64(margin))
	multiplier := math.Log(math.Max(abs, 1) + 1)
	if (margin > 0 && ratingDiff > 0) || (margin < 0 && ratingDiff < 0) {
		multiplier *= e.cfg.MOVDampening
	}
	return multiplier
}

func (e *Elo) lookup(team string) (float64, bool) {
	if r, ok := e.ratings[team]; ok {
		return r, true
	}
	if e.cfg.Strict {
		return 0, false
	}
	e.ratings[team] = e.cfg.DefaultRating
	return e.cfg.DefaultRating, true
}

// advanceSeason regresses all ratings toward the default on the first event of a new season.
// It reads only the season label.
func (e *Elo) advanceSeason(season int) {
	if !e.seasonSet {
		e.season = season
		e.seasonSet = true
		return
	}
	if season <= e.season {
		return
	}
	for team, r := range e.ratings {
		e.ratings[team] = r + e.cfg.SeasonRegression*(e.cfg.DefaultRating-r)
	}
	e.season = season
}
