package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

// MarketQuotes holds the closing two-sided quotes attached to an event.
// SpreadLine is quoted from the home side: -4.5 means home is favoured by 4.5.
type MarketQuotes struct {
	MoneylineHome  float64  `json:"moneyline_home" db:"moneyline_home" validate:"omitempty,american"`
	MoneylineAway  float64  `json:"moneyline_away" db:"moneyline_away" validate:"omitempty,american"`
	SpreadLine     float64  `json:"spread_line" db:"spread_line"`
	SpreadHomeOdds float64  `json:"spread_home_odds" db:"spread_home_odds" validate:"omitempty,american"`
	SpreadAwayOdds float64  `json:"spread_away_odds" db:"spread_away_odds" validate:"omitempty,american"`
	TotalLine      *float64 `json:"total_line,omitempty" db:"total_line"`
	OverOdds       *float64 `json:"over_odds,omitempty" db:"over_odds" validate:"omitempty,american"`
	UnderOdds      *float64 `json:"under_odds,omitempty" db:"under_odds" validate:"omitempty,american"`
	// PublicBetPercentage is the share of tickets on the home side when the feed carries it.
	PublicBetPercentage *float64 `json:"public_bet_percentage,omitempty" db:"public_bet_percentage" validate:"omitempty,gte=0,lte=100"`
}

// MaxAbsAmericanOdds bounds the sane American odds range
const MaxAbsAmericanOdds = 10000.0

// ValidAmericanOdds reports whether a price is a finite, non-zero quote within ±MaxAbsAmericanOdds
func ValidAmericanOdds(american float64) bool {
	if math.IsNaN(american) || math.IsInf(american, 0) || american == 0 {
		return false
	}
	return math.Abs(american) <= MaxAbsAmericanOdds
}

// HasSpread reports whether a complete spread market is present
func (q MarketQuotes) HasSpread() bool {
	return q.SpreadHomeOdds != 0 && q.SpreadAwayOdds != 0
}

// HasMoneyline reports whether a complete moneyline market is present
func (q MarketQuotes) HasMoneyline() bool {
	return q.MoneylineHome != 0 && q.MoneylineAway != 0
}

// Matchup is the pre-game view of an event handed to predictors.
// It carries no result fields.
type Matchup struct {
	EventID      string       `json:"event_id"`
	Date         time.Time    `json:"date"`
	Season       int          `json:"season"`
	HomeTeam     string       `json:"home_team"`
	AwayTeam     string       `json:"away_team"`
	HomeRestDays int          `json:"home_rest_days"`
	AwayRestDays int          `json:"away_rest_days"`
	IsPlayoff    bool         `json:"is_playoff"`
	Market       MarketQuotes `json:"market"`
}

// Event is one completed historical game with its closing market
type Event struct {
	ID           string       `json:"event_id" db:"event_id" validate:"required"`
	Date         time.Time    `json:"date" db:"date" validate:"required"`
	Season       int          `json:"season" db:"season" validate:"required,gt=0"`
	HomeTeam     string       `json:"home_team" db:"home_team" validate:"required"`
	AwayTeam     string       `json:"away_team" db:"away_team" validate:"required,nefield=HomeTeam"`
	HomeScore    int          `json:"home_score" db:"home_score" validate:"gte=0"`
	AwayScore    int          `json:"away_score" db:"away_score" validate:"gte=0"`
	HomeRestDays int          `json:"home_rest_days" db:"home_rest_days" validate:"gte=0"`
	AwayRestDays int          `json:"away_rest_days" db:"away_rest_days" validate:"gte=0"`
	IsPlayoff    bool         `json:"is_playoff" db:"is_playoff"`
	Market       MarketQuotes `json:"market" db:"-"`
}

// HomeWon reports whether the home side won
func (e Event) HomeWon() bool {
	return e.HomeScore > e.AwayScore
}

// Margin returns home score minus away score
func (e Event) Margin() int {
	return e.HomeScore - e.AwayScore
}

// Matchup strips the result from the event
func (e Event) Matchup() Matchup {
	return Matchup{
		EventID:      e.ID,
		Date:         e.Date,
		Season:       e.Season,
		HomeTeam:     e.HomeTeam,
		AwayTeam:     e.AwayTeam,
		HomeRestDays: e.HomeRestDays,
		AwayRestDays: e.AwayRestDays,
		IsPlayoff:    e.IsPlayoff,
		Market:       e.Market,
	}
}

var eventValidator = newEventValidator()

func newEventValidator() *validator.Validate {
	v := validator.New()
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("american", func(fl validator.FieldLevel) bool {
		return ValidAmericanOdds(fl.Field().Float())
	})
	return v
}

// Validate checks structural invariants of a loaded event and rejects malformed prices.
// Absent quotes (zero or nil) are allowed.
func (e Event) Validate() error {
	err := eventValidator.Struct(e)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return NewValidationError(fe.Field(), fmt.Sprint(fe.Value()), "failed "+fe.Tag()+" check")
	}
	return fmt.Errorf("event %s: %w", e.ID, err)
}

// DateKey returns the calendar day used for daily limits
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
