package models

import (
	"time"

	"github.com/google/uuid"
)

// BetType represents the market a wager is placed on
type BetType string

const (
	BetTypeMoneyline BetType = "MONEYLINE"
	BetTypeSpread    BetType = "SPREAD"
)

// Side represents which competitor a wager backs
type Side string

const (
	SideHome Side = "HOME"
	SideAway Side = "AWAY"
)

// WagerStatus represents the lifecycle state of a wager
type WagerStatus string

const (
	WagerStatusPending   WagerStatus = "PENDING"
	WagerStatusWon       WagerStatus = "WON"
	WagerStatusLost      WagerStatus = "LOST"
	WagerStatusPush      WagerStatus = "PUSH"
	WagerStatusCancelled WagerStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed
func (s WagerStatus) IsTerminal() bool {
	return s != WagerStatusPending
}

// Wager is a single stake placed against an event
type Wager struct {
	ID               uuid.UUID   `db:"id" json:"id"`
	Seq              int         `db:"seq" json:"seq"`
	EventID          string      `db:"event_id" json:"event_id"`
	EventDate        time.Time   `db:"event_date" json:"event_date"`
	BetType          BetType     `db:"bet_type" json:"bet_type"`
	Side             Side        `db:"side" json:"side"`
	Odds             float64     `db:"odds" json:"odds"`
	Line             float64     `db:"line" json:"line"`
	Stake            float64     `db:"stake" json:"stake"`
	ModelProbability float64     `db:"model_probability" json:"model_probability"`
	Edge             float64     `db:"edge" json:"edge"`
	ExpectedValue    float64     `db:"expected_value" json:"expected_value"`
	BankrollBefore   float64     `db:"bankroll_before" json:"bankroll_before"`
	Status           WagerStatus `db:"status" json:"status"`
	Payout           *float64    `db:"payout" json:"payout,omitempty"`
	Profit           *float64    `db:"profit" json:"profit,omitempty"`
	BankrollAfter    *float64    `db:"bankroll_after" json:"bankroll_after,omitempty"`
	SettledAt        *time.Time  `db:"settled_at" json:"settled_at,omitempty"`
}

// Label returns the bet type and side in the form used for breakdowns, e.g. "spread_home"
func (w *Wager) Label() string {
	return BetLabel(w.BetType, w.Side)
}

// IsSettled checks if the wager has left the pending state
func (w *Wager) IsSettled() bool {
	return w.Status.IsTerminal()
}

// ProfitLoss returns realised profit, zero while pending
func (w *Wager) ProfitLoss() float64 {
	if w.Profit == nil {
		return 0
	}
	return *w.Profit
}

// Return returns profit per unit staked
func (w *Wager) Return() float64 {
	if w.Stake == 0 {
		return 0
	}
	return w.ProfitLoss() / w.Stake
}

// BetLabel formats a bet type and side as a lower-case key
func BetLabel(betType BetType, side Side) string {
	label := "moneyline"
	if betType == BetTypeSpread {
		label = "spread"
	}
	if side == SideHome {
		return label + "_home"
	}
	return label + "_away"
}
