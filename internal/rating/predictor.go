// Package rating provides win-probability models that learn sequentially from completed events.
package rating

import (
	"fmt"
	"math"

	"github.com/yourusername/edge-backtester/internal/models"
)

// Predictor is the capability shared by every rating model.
// Predict only sees the pre-game matchup; Update receives the completed event and must be
// called strictly after any wagers on that event are settled.
type Predictor interface {
	Name() string
	Fit(history []models.Event) error
	Predict(m models.Matchup) Prediction
	Update(e models.Event) error
}

// Prediction is either a home win probability or a reason the event should be skipped
type Prediction struct {
	HomeWinProbability float64 `json:"home_win_probability"`
	Skipped            bool    `json:"skipped"`
	Reason             string  `json:"reason,omitempty"`
}

// Ok wraps a probability
func Ok(p float64) Prediction {
	return Prediction{HomeWinProbability: p}
}

// Skip builds a skipped prediction
func Skip(format string, args ...any) Prediction {
	return Prediction{Skipped: true, Reason: fmt.Sprintf(format, args...)}
}

// AwayWinProbability returns the complement of the home probability
func (p Prediction) AwayWinProbability() float64 {
	return 1 - p.HomeWinProbability
}

// WinProbability is the logistic rating curve: 1/(1+10^(-diff/scale))
func WinProbability(diff, scale float64) float64 {
	if scale <= 0 {
		scale = DefaultScale
	}
	return 1 / (1 + math.Pow(10, -diff/scale))
}

// RatingToSpread converts a rating gap to an approximate point spread (25 rating points per point)
func RatingToSpread(diff float64) float64 {
	return diff / 25
}

// SpreadToRating converts a point spread to the equivalent rating gap
func SpreadToRating(spread float64) float64 {
	return spread * 25
}
