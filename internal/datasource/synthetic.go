package datasource

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/edge-backtester/internal/config"
	"github.com/yourusername/edge-backtester/internal/logger"
	"github.com/yourusername/edge-backtester/internal/models"
)

// Team abbreviations used by the generator, in league order
var leagueTeams = []string{
	"ATL", "BOS", "BKN", "CHA", "CHI", "CLE", "DAL", "DEN",
	"DET", "GSW", "HOU", "IND", "LAC", "LAL", "MEM", "MIA",
	"MIL", "MIN", "NOP", "NYK", "OKC", "ORL", "PHI", "PHX",
	"POR", "SAC", "SAS", "TOR", "UTA", "WAS",
}

const (
	defaultSyntheticSeason = 2024
	// season strengths carry over with this weight
	strengthCarryOver = 0.6
	strengthSpread    = 4.0
	homeAdvantage     = 3.0
	maxRestDays       = 3
)

// SyntheticSource generates plausible seasons of games with closing quotes.
// The same config and seed always produce the same events.
type SyntheticSource struct {
	cfg    config.SyntheticConfig
	logger *logrus.Entry
}

// NewSyntheticSource creates a seeded generator
func NewSyntheticSource(cfg config.SyntheticConfig, log *logrus.Logger) (*SyntheticSource, error) {
	if cfg.Teams == 0 {
		cfg.Teams = len(leagueTeams)
	}
	if cfg.Teams < 2 || cfg.Teams > len(leagueTeams) {
		return nil, fmt.Errorf("synthetic teams must be between 2 and %d, got %d", len(leagueTeams), cfg.Teams)
	}
	if cfg.GamesPerTeam <= 0 {
		return nil, fmt.Errorf("synthetic games_per_team must be positive, got %d", cfg.GamesPerTeam)
	}
	if len(cfg.Seasons) == 0 {
		cfg.Seasons = []int{defaultSyntheticSeason}
	}
	return &SyntheticSource{
		cfg:    cfg,
		logger: logger.OrDiscard(log).WithFields(logrus.Fields{"component": "datasource", "source": "synthetic"}),
	}, nil
}

// Name returns the name of the data source
func (s *SyntheticSource) Name() string {
	return "synthetic"
}

// Load generates every configured season
func (s *SyntheticSource) Load(ctx context.Context) ([]models.Event, error) {
	rng := rand.New(rand.NewSource(s.cfg.Seed))
	teams := leagueTeams[:s.cfg.Teams]

	strength := make([]float64, len(teams))
	for i := range strength {
		strength[i] = rng.NormFloat64() * strengthSpread
	}

	var events []models.Event
	for _, season := range s.cfg.Seasons {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range strength {
			strength[i] = strength[i]*strengthCarryOver + rng.NormFloat64()*strengthSpread*(1-strengthCarryOver)
		}
		events = append(events, s.season(rng, season, teams, strength)...)
	}

	events, err := finalize(s.Name(), events)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"seasons": s.cfg.Seasons,
		"seed":    s.cfg.Seed,
		"events":  len(events),
	}).Info("Generated synthetic events")
	return events, nil
}

// season schedules teams*games_per_team/2 games from late October onward
func (s *SyntheticSource) season(rng *rand.Rand, season int, teams []string, strength []float64) []models.Event {
	remaining := len(teams) * s.cfg.GamesPerTeam / 2
	maxPerDay := int(math.Max(1, float64(len(teams)/4)))
	day := time.Date(season-1, time.October, 22, 19, 0, 0, 0, time.UTC)
	lastPlayed := make(map[int]time.Time, len(teams))

	events := make([]models.Event, 0, remaining)
	for n := 0; remaining > 0; day = day.AddDate(0, 0, 1) {
		slate := 1 + rng.Intn(maxPerDay)
		if slate > remaining {
			slate = remaining
		}
		order := rng.Perm(len(teams))
		for g := 0; g < slate; g++ {
			home, away := order[2*g], order[2*g+1]
			events = append(events, s.game(rng, fmt.Sprintf("%d%05d", season, n), day, season,
				teams, strength, home, away, lastPlayed))
			lastPlayed[home], lastPlayed[away] = day, day
			n++
		}
		remaining -= slate
	}
	return events
}

func (s *SyntheticSource) game(rng *rand.Rand, id string, day time.Time, season int,
	teams []string, strength []float64, home, away int, lastPlayed map[int]time.Time) models.Event {
	diff := strength[home] - strength[away]

	base := 110 + rng.NormFloat64()*10
	edge := homeAdvantage + rng.NormFloat64()*5
	homeScore := int(math.Max(80, base+edge+diff/2))
	awayScore := int(math.Max(80, base-edge-diff/2+rng.NormFloat64()*10))
	if homeScore == awayScore {
		// overtime
		if rng.Intn(2) == 0 {
			homeScore += 1 + rng.Intn(10)
		} else {
			awayScore += 1 + rng.Intn(10)
		}
	}

	return models.Event{
		ID:           id,
		Date:         day,
		Season:       season,
		HomeTeam:     teams[home],
		AwayTeam:     teams[away],
		HomeScore:    homeScore,
		AwayScore:    awayScore,
		HomeRestDays: restDays(day, lastPlayed, home),
		AwayRestDays: restDays(day, lastPlayed, away),
		Market:       quotes(rng, homeAdvantage+diff),
	}
}

func restDays(day time.Time, lastPlayed map[int]time.Time, team int) int {
	last, ok := lastPlayed[team]
	if !ok {
		return maxRestDays
	}
	rest := int(day.Sub(last).Hours()/24) - 1
	if rest > maxRestDays {
		return maxRestDays
	}
	return rest
}

// quotes prices a game whose expected home margin is known to the market up to noise
func quotes(rng *rand.Rand, expectedMargin float64) models.MarketQuotes {
	spread := roundHalf(-expectedMargin + rng.NormFloat64()*3)

	var mlHome, mlAway float64
	switch {
	case spread < -7:
		mlHome, mlAway = -uniform(rng, 200, 300), uniform(rng, 200, 300)
	case spread < -3:
		mlHome, mlAway = -uniform(rng, 120, 180), uniform(rng, 120, 180)
	case spread <= 3:
		fav := uniform(rng, 105, 120)
		dog := math.Max(100, fav-10)
		if spread <= 0 {
			mlHome, mlAway = -fav, dog
		} else {
			mlHome, mlAway = dog, -fav
		}
	case spread <= 7:
		mlHome, mlAway = uniform(rng, 120, 180), -uniform(rng, 120, 180)
	default:
		mlHome, mlAway = uniform(rng, 200, 300), -uniform(rng, 200, 300)
	}

	juice := spreadJuice(rng)
	total := roundHalf(220 + rng.NormFloat64()*8)
	over, under := -110.0, -110.0
	public := math.Round(math.Max(5, math.Min(95, 50-spread*2+rng.NormFloat64()*10))*10) / 10

	return models.MarketQuotes{
		MoneylineHome:       math.Round(mlHome),
		MoneylineAway:       math.Round(mlAway),
		SpreadLine:          spread,
		SpreadHomeOdds:      juice,
		SpreadAwayOdds:      juice,
		TotalLine:           &total,
		OverOdds:            &over,
		UnderOdds:           &under,
		PublicBetPercentage: &public,
	}
}

// spreadJuice is usually -110 and sometimes -108 or -112
func spreadJuice(rng *rand.Rand) float64 {
	switch p := rng.Float64(); {
	case p < 0.8:
		return -110
	case p < 0.9:
		return -108
	default:
		return -112
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}
