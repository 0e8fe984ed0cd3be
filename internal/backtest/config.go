package backtest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/edge-backtester/internal/bankroll"
	"github.com/yourusername/edge-backtester/internal/config"
	"github.com/yourusername/edge-backtester/internal/models"
	"github.com/yourusername/edge-backtester/internal/odds"
	"github.com/yourusername/edge-backtester/internal/rating"
	"github.com/yourusername/edge-backtester/internal/strategy"
)

const dateLayout = "2006-01-02"

// Config holds everything a single engine run needs
type Config struct {
	// StartDate and EndDate bound the replay window by calendar day, both inclusive.
	// A zero value leaves that side open.
	StartDate time.Time
	EndDate   time.Time
	Seasons   []int

	// WarmUp replays events dated before the window through the model without wagering.
	WarmUp      bool
	ApplyFilter bool

	Model    rating.ModelConfig
	Finder   strategy.FinderConfig
	Filter   strategy.FilterConfig
	Sizer    strategy.SizerConfig
	Bankroll bankroll.Config
}

// DefaultConfig returns the documented defaults with the filter enabled
func DefaultConfig() Config {
	return Config{
		ApplyFilter: true,
		Model:       rating.DefaultModelConfig(),
		Finder:      strategy.DefaultFinderConfig(),
		Filter:      strategy.DefaultFilterConfig(),
		Sizer:       strategy.DefaultSizerConfig(),
		Bankroll:    bankroll.DefaultConfig(),
	}
}

// FromConfig converts the flat application option set into an engine configuration
func FromConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config is required")
	}
	b := cfg.Backtest
	out := DefaultConfig()

	var err error
	if b.StartDate != "" {
		if out.StartDate, err = time.Parse(dateLayout, b.StartDate); err != nil {
			return Config{}, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if b.EndDate != "" {
		if out.EndDate, err = time.Parse(dateLayout, b.EndDate); err != nil {
			return Config{}, fmt.Errorf("invalid end date: %w", err)
		}
	}
	out.Seasons = append([]int(nil), b.Seasons...)
	out.WarmUp = b.WarmUp
	out.ApplyFilter = b.ApplyFilter

	out.Bankroll = bankroll.Config{
		InitialBankroll:  b.InitialBankroll,
		MaxBetPercentage: b.MaxBetPercentage,
		MaxDailyBets:     b.MaxDailyBets,
		MaxGameExposure:  b.MaxGameExposure,
		MinBankroll:      b.MinBankroll,
	}

	method, err := odds.ParseMethod(b.VigRemovalMethod)
	if err != nil {
		return Config{}, err
	}
	out.Finder.MinEV = b.MinEV
	out.Finder.MinEdge = b.MinEdge
	out.Finder.VigMethod = method
	if len(b.BetTypes) > 0 {
		out.Finder.BetTypes = nil
		for _, bt := range b.BetTypes {
			switch bt {
			case "moneyline":
				out.Finder.BetTypes = append(out.Finder.BetTypes, models.BetTypeMoneyline)
			case "spread":
				out.Finder.BetTypes = append(out.Finder.BetTypes, models.BetTypeSpread)
			default:
				return Config{}, models.NewValidationError("bet_types", bt, "must be moneyline or spread")
			}
		}
	}

	sizing, err := strategy.ParseSizingMethod(b.BetSizingMethod)
	if err != nil {
		return Config{}, err
	}
	out.Sizer = strategy.SizerConfig{
		Method:           sizing,
		KellyFraction:    b.KellyFraction,
		FlatPercentage:   b.FlatPercentage,
		MaxBetPercentage: b.MaxBetPercentage,
		MinBetAmount:     b.MinBetAmount,
		MaxBetAmount:     b.MaxBetAmount,
	}

	out.Model = ModelConfigFrom(b.ModelType, cfg.Model)
	return out, out.Validate()
}

// ModelConfigFrom maps the model section of the application config onto rating constants.
// Zero values fall back to the model defaults.
func ModelConfigFrom(modelType string, m config.ModelConfig) rating.ModelConfig {
	mc := rating.DefaultModelConfig()
	mc.Type = modelType
	mc.Elo = rating.EloConfig{
		KFactor:          m.KFactor,
		HomeAdvantage:    m.HomeAdvantage,
		DefaultRating:    m.DefaultRating,
		Scale:            m.Scale,
		SeasonRegression: m.SeasonRegression,
		MOVDampening:     m.MOVDampening,
		Strict:           m.Strict,
	}
	if m.HomeAdvantage == 0 {
		mc.Elo.HomeAdvantage = rating.DefaultHomeAdvantage
	}
	if m.InjuryWeight > 0 {
		mc.Enhanced.InjuryWeight = m.InjuryWeight
	}
	if m.FormWeight > 0 {
		mc.Enhanced.FormWeight = m.FormWeight
	}
	if m.EliteVenueBonus > 0 {
		mc.Enhanced.EliteVenueBonus = m.EliteVenueBonus
	}
	mc.Enhanced.EliteVenues = append([]string(nil), m.EliteVenues...)
	mc.Logistic = rating.LogisticConfig{
		LearningRate: m.LearningRate,
		Iterations:   m.Iterations,
		L2:           m.L2,
		MinTraining:  m.MinTraining,
		RetrainEvery: m.RetrainEvery,
	}
	for _, member := range m.Ensemble {
		mc.Members = append(mc.Members, rating.EnsembleMember{Type: member.Type, Weight: member.Weight})
	}
	return mc
}

// Validate checks the engine configuration
func (c Config) Validate() error {
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.StartDate.After(c.EndDate) {
		return fmt.Errorf("start date must not be after end date")
	}
	if c.Bankroll.InitialBankroll <= 0 {
		return models.NewValidationError("initial_bankroll", fmt.Sprint(c.Bankroll.InitialBankroll), "must be positive")
	}
	if c.Bankroll.MaxBetPercentage <= 0 || c.Bankroll.MaxBetPercentage > 1 {
		return models.NewValidationError("max_bet_percentage", fmt.Sprint(c.Bankroll.MaxBetPercentage), "must be in (0, 1]")
	}
	if c.Bankroll.MaxGameExposure <= 0 || c.Bankroll.MaxGameExposure > 1 {
		return models.NewValidationError("max_game_exposure", fmt.Sprint(c.Bankroll.MaxGameExposure), "must be in (0, 1]")
	}
	if c.Bankroll.MaxDailyBets <= 0 {
		return models.NewValidationError("max_daily_bets", fmt.Sprint(c.Bankroll.MaxDailyBets), "must be positive")
	}
	if c.Finder.MinEV < 0 || c.Finder.MinEdge < 0 {
		return models.NewValidationError("min_ev", fmt.Sprint(c.Finder.MinEV), "thresholds cannot be negative")
	}
	return nil
}

// InWindow reports whether an event falls inside the date range and season list
func (c Config) InWindow(e models.Event) bool {
	if !c.StartDate.IsZero() && e.Date.Before(dayStart(c.StartDate)) {
		return false
	}
	if !c.EndDate.IsZero() && !e.Date.Before(dayStart(c.EndDate).AddDate(0, 0, 1)) {
		return false
	}
	if len(c.Seasons) == 0 {
		return true
	}
	for _, s := range c.Seasons {
		if e.Season == s {
			return true
		}
	}
	return false
}

// Hash returns a stable fingerprint of the parameters that shape a run
func (c Config) Hash() string {
	params := map[string]interface{}{
		"start":        c.StartDate.Format(dateLayout),
		"end":          c.EndDate.Format(dateLayout),
		"seasons":      c.Seasons,
		"warm_up":      c.WarmUp,
		"apply_filter": c.ApplyFilter,
		"model":        c.Model.Type,
		"elo":          c.Model.Elo,
		"finder":       c.Finder,
		"sizer":        c.Sizer,
		"bankroll":     c.Bankroll,
	}
	data, _ := json.Marshal(params)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
