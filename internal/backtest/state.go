package backtest

import (
	"time"

	"github.com/yourusername/edge-backtester/internal/models"
)

// State is the engine lifecycle
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateRunning    State = "RUNNING"
	StateComplete   State = "COMPLETE"
	StateAborted    State = "ABORTED"
)

// Rejection codes raised by the engine itself. Ledger refusals use bankroll.Code values.
const (
	RejectMarketFilter      = "DO_NOT_BET"
	RejectStakeBelowMinimum = "STAKE_BELOW_MINIMUM"
)

// Counts tallies what happened to every event and opportunity of a run.
// Attempted always equals Placed plus Rejected.
type Counts struct {
	EventsTotal     int            `json:"events_total"`
	EventsProcessed int            `json:"events_processed"`
	EventsSkipped   int            `json:"events_skipped"`
	Attempted       int            `json:"attempted"`
	Placed          int            `json:"placed"`
	Rejected        int            `json:"rejected"`
	UpdateFailures  int            `json:"update_failures"`
	Rejections      map[string]int `json:"rejections"`
}

// runState tracks in-flight progress of a single run
type runState struct {
	counts   Counts
	curve    EquityCurve
	peak     float64
	dailyPnL map[string]float64
}

func newRunState(initialBankroll float64, start time.Time) *runState {
	s := &runState{
		counts:   Counts{Rejections: make(map[string]int)},
		peak:     initialBankroll,
		dailyPnL: make(map[string]float64),
	}
	s.curve = append(s.curve, EquityPoint{Time: start, Value: initialBankroll})
	return s
}

func (s *runState) reject(code string) {
	s.counts.Attempted++
	s.counts.Rejected++
	s.counts.Rejections[code]++
}

func (s *runState) place() {
	s.counts.Attempted++
	s.counts.Placed++
}

// settled books the profit of one settled wager against its event day
func (s *runState) settled(w *models.Wager) {
	s.dailyPnL[models.DateKey(w.EventDate)] += w.ProfitLoss()
}

// RecordEquityPoint adds an equity point to the curve
func (s *runState) RecordEquityPoint(t time.Time, value float64) {
	if value > s.peak {
		s.peak = value
	}
	drawdown := 0.0
	if value < s.peak && s.peak > 0 {
		drawdown = (s.peak - value) / s.peak
	}

	s.curve = append(s.curve, EquityPoint{
		Time:     t,
		Value:    value,
		Drawdown: drawdown,
		DailyPnL: s.dailyPnL[models.DateKey(t)],
	})
}
