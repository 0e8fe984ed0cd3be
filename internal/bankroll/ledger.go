// Package bankroll tracks the simulated bankroll and enforces placement limits.
package bankroll

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/edge-backtester/internal/logger"
	"github.com/yourusername/edge-backtester/internal/models"
	"github.com/yourusername/edge-backtester/internal/odds"
)

// Ledger defaults
const (
	DefaultInitialBankroll  = 10000.0
	DefaultMaxBetPercentage = 0.05
	DefaultMaxDailyBets     = 10
	DefaultMaxGameExposure  = 0.10

	// profitFactorNoLosses is reported when there are winning wagers and no losing ones
	profitFactorNoLosses = 999.0
)

// Config holds bankroll limits
type Config struct {
	InitialBankroll  float64
	MaxBetPercentage float64
	MaxDailyBets     int
	MaxGameExposure  float64
	MinBankroll      float64
}

// DefaultConfig returns the standard limits
func DefaultConfig() Config {
	return Config{
		InitialBankroll:  DefaultInitialBankroll,
		MaxBetPercentage: DefaultMaxBetPercentage,
		MaxDailyBets:     DefaultMaxDailyBets,
		MaxGameExposure:  DefaultMaxGameExposure,
	}
}

// Code identifies why a placement was refused
type Code string

const (
	CodeAccepted          Code = "ACCEPTED"
	CodeInvalidStake      Code = "INVALID_STAKE"
	CodeBankrollFloor     Code = "BANKROLL_FLOOR"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeMaxBetPercentage  Code = "MAX_BET_PERCENTAGE"
	CodeDailyLimit        Code = "DAILY_LIMIT"
	CodeGameExposure      Code = "GAME_EXPOSURE"
)

// Decision is the outcome of a placement check. A refusal is a normal outcome, not an error.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Code    Code   `json:"code"`
	Reason  string `json:"reason,omitempty"`
}

func accept() Decision {
	return Decision{Allowed: true, Code: CodeAccepted}
}

func reject(code Code, format string, args ...any) Decision {
	return Decision{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// PlaceRequest describes a wager to open
type PlaceRequest struct {
	EventID          string
	EventDate        time.Time
	BetType          models.BetType
	Side             models.Side
	Odds             float64
	Line             float64
	Stake            float64
	ModelProbability float64
	Edge             float64
	ExpectedValue    float64
}

// State is a point-in-time view of the bankroll
type State struct {
	Initial       float64 `json:"initial"`
	Current       float64 `json:"current"`
	Peak          float64 `json:"peak"`
	Drawdown      float64 `json:"drawdown"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	OpenExposure  float64 `json:"open_exposure"`
	PendingWagers int     `json:"pending_wagers"`
	TotalReturn   float64 `json:"total_return"`
}

// Stats summarises settled wagers
type Stats struct {
	TotalWagers  int     `json:"total_wagers"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Pushes       int     `json:"pushes"`
	Cancelled    int     `json:"cancelled"`
	TotalStaked  float64 `json:"total_staked"`
	TotalProfit  float64 `json:"total_profit"`
	GrossWins    float64 `json:"gross_wins"`
	GrossLosses  float64 `json:"gross_losses"`
	ROI          float64 `json:"roi"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	MaxDrawdown  float64 `json:"max_drawdown"`
}

// Ledger owns the bankroll, the wager history and the per-day and per-event counters.
// Every method is atomic with respect to the others.
type Ledger struct {
	cfg    Config
	logger *logrus.Logger
	audit  *logger.AuditLogger

	mu            sync.Mutex
	current       decimal.Decimal
	peak          decimal.Decimal
	drawdown      float64
	maxDrawdown   float64
	openExposure  decimal.Decimal
	dailyCounts   map[string]int
	eventExposure map[string]decimal.Decimal
	wagers        []*models.Wager
	index         map[uuid.UUID]*models.Wager
	seq           int
}

// NewLedger creates a ledger funded with the initial bankroll
func NewLedger(cfg Config, log *logrus.Logger) *Ledger {
	log = logger.OrDiscard(log)
	l := &Ledger{cfg: cfg, logger: log, audit: logger.NewAuditLogger(log)}
	l.reset()
	return l
}

// Config returns the ledger limits
func (l *Ledger) Config() Config {
	return l.cfg
}

func (l *Ledger) reset() {
	initial := cents(l.cfg.InitialBankroll)
	l.current = initial
	l.peak = initial
	l.drawdown = 0
	l.maxDrawdown = 0
	l.openExposure = decimal.Zero
	l.dailyCounts = make(map[string]int)
	l.eventExposure = make(map[string]decimal.Decimal)
	l.wagers = nil
	l.index = make(map[uuid.UUID]*models.Wager)
	l.seq = 0
}

// Reset restores the initial bankroll and clears all history
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset()
}

// CanPlace checks a proposed stake against every limit in a fixed order
func (l *Ledger) CanPlace(stake float64, eventID string, date time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(stake, eventID, date)
}

func (l *Ledger) check(stake float64, eventID string, date time.Time) Decision {
	if math.IsNaN(stake) || math.IsInf(stake, 0) || stake <= 0 {
		return reject(CodeInvalidStake, "stake %.2f is not positive", stake)
	}
	amount := stakeCents(stake)
	if !amount.IsPositive() {
		return reject(CodeInvalidStake, "stake %.4f rounds to zero", stake)
	}
	floor := cents(l.cfg.MinBankroll)

	if l.current.LessThanOrEqual(floor) {
		return reject(CodeBankrollFloor, "bankroll %s at or below floor %s", l.current.StringFixed(2), floor.StringFixed(2))
	}
	available := l.current.Sub(l.openExposure)
	if amount.GreaterThan(available) {
		return reject(CodeInsufficientFunds, "stake %s exceeds available bankroll %s", amount.StringFixed(2), available.StringFixed(2))
	}
	maxBet := odds.FloorCentsDecimal(l.current.Mul(decimal.NewFromFloat(l.cfg.MaxBetPercentage)))
	if amount.GreaterThan(maxBet) {
		return reject(CodeMaxBetPercentage, "stake %s exceeds %.1f%% of bankroll (%s)",
			amount.StringFixed(2), l.cfg.MaxBetPercentage*100, maxBet.StringFixed(2))
	}
	day := models.DateKey(date)
	if l.dailyCounts[day] >= l.cfg.MaxDailyBets {
		return reject(CodeDailyLimit, "daily limit of %d bets reached for %s", l.cfg.MaxDailyBets, day)
	}
	exposure := l.eventExposure[eventID].Add(amount)
	maxGame := odds.FloorCentsDecimal(l.current.Mul(decimal.NewFromFloat(l.cfg.MaxGameExposure)))
	if exposure.GreaterThan(maxGame) {
		return reject(CodeGameExposure, "event exposure %s would exceed %.1f%% of bankroll (%s)",
			exposure.StringFixed(2), l.cfg.MaxGameExposure*100, maxGame.StringFixed(2))
	}
	return accept()
}

// Place opens a PENDING wager if every limit allows it
func (l *Ledger) Place(req PlaceRequest) (*models.Wager, Decision) {
	l.mu.Lock()
	defer l.mu.Unlock()

	decision := l.check(req.Stake, req.EventID, req.EventDate)
	if !decision.Allowed {
		l.logger.WithFields(logrus.Fields{
			"event_id": req.EventID,
			"stake":    req.Stake,
			"code":     decision.Code,
		}).Debug("Wager refused")
		return nil, decision
	}

	amount := stakeCents(req.Stake)
	l.seq++
	w := &models.Wager{
		ID:               uuid.New(),
		Seq:              l.seq,
		EventID:          req.EventID,
		EventDate:        req.EventDate,
		BetType:          req.BetType,
		Side:             req.Side,
		Odds:             req.Odds,
		Line:             req.Line,
		Stake:            amount.InexactFloat64(),
		ModelProbability: req.ModelProbability,
		Edge:             req.Edge,
		ExpectedValue:    req.ExpectedValue,
		BankrollBefore:   l.current.InexactFloat64(),
		Status:           models.WagerStatusPending,
	}
	l.wagers = append(l.wagers, w)
	l.index[w.ID] = w
	l.openExposure = l.openExposure.Add(amount)
	l.eventExposure[req.EventID] = l.eventExposure[req.EventID].Add(amount)
	l.dailyCounts[models.DateKey(req.EventDate)]++

	l.audit.LogWagerPlaced(w.ID.String(), w.Seq, w.EventID, string(w.BetType), string(w.Side),
		w.Stake, w.Odds, w.BankrollBefore, w.EventDate)
	return w, decision
}

// Settle closes a PENDING wager as WON, LOST or PUSH. Any violation leaves the ledger unchanged.
func (l *Ledger) Settle(w *models.Wager, result models.WagerStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		return l.violation("<nil>", "settling a nil wager")
	}
	id := w.ID.String()
	stored, ok := l.index[w.ID]
	if !ok {
		return l.violation(id, "wager is not in this ledger")
	}
	if stored.Status != models.WagerStatusPending {
		return l.violation(id, "already %s", stored.Status)
	}
	stake := decimal.NewFromFloat(stored.Stake)
	if stake.GreaterThan(decimal.NewFromFloat(stored.BankrollBefore)) {
		return l.violation(id, "stake exceeds bankroll at placement")
	}

	var payout decimal.Decimal
	switch result {
	case models.WagerStatusWon:
		payout = cents(odds.Payout(stored.Stake, stored.Odds))
	case models.WagerStatusLost:
		payout = decimal.Zero
	case models.WagerStatusPush:
		payout = stake
	default:
		return l.violation(id, "%s is not a settlement result", result)
	}
	profit := payout.Sub(stake)
	after := l.current.Add(profit)
	if after.IsNegative() {
		return l.violation(id, "settlement would leave a negative bankroll")
	}

	l.current = after
	l.openExposure = l.openExposure.Sub(stake)
	if l.current.GreaterThan(l.peak) {
		l.peak = l.current
	}
	l.drawdown = 0
	if l.peak.IsPositive() {
		l.drawdown = l.peak.Sub(l.current).Div(l.peak).InexactFloat64()
	}
	if l.drawdown > l.maxDrawdown {
		l.maxDrawdown = l.drawdown
	}

	payoutF, profitF, afterF := payout.InexactFloat64(), profit.InexactFloat64(), after.InexactFloat64()
	settledAt := stored.EventDate
	stored.Status = result
	stored.Payout = &payoutF
	stored.Profit = &profitF
	stored.BankrollAfter = &afterF
	stored.SettledAt = &settledAt
	if stored != w {
		*w = *stored
	}

	l.audit.LogWagerSettled(id, string(result), payoutF, profitF, afterF)
	return nil
}

func (l *Ledger) violation(wagerID, format string, args ...any) error {
	v := &models.InvariantViolation{WagerID: wagerID, Reason: fmt.Sprintf(format, args...)}
	l.audit.LogInvariantViolation(v.WagerID, v.Reason)
	return v
}

// Cancel voids a PENDING wager and releases its exposure and daily slot
func (l *Ledger) Cancel(w *models.Wager) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		return models.ErrWagerNotFound
	}
	stored, ok := l.index[w.ID]
	if !ok {
		return fmt.Errorf("cancel %s: %w", w.ID, models.ErrWagerNotFound)
	}
	if stored.Status != models.WagerStatusPending {
		return fmt.Errorf("cancel %s: %w", w.ID, models.ErrWagerSettled)
	}
	stake := decimal.NewFromFloat(stored.Stake)
	l.openExposure = l.openExposure.Sub(stake)
	l.eventExposure[stored.EventID] = l.eventExposure[stored.EventID].Sub(stake)
	day := models.DateKey(stored.EventDate)
	if l.dailyCounts[day] > 0 {
		l.dailyCounts[day]--
	}
	stored.Status = models.WagerStatusCancelled
	if stored != w {
		*w = *stored
	}
	return nil
}

// Current returns the current bankroll
func (l *Ledger) Current() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.InexactFloat64()
}

// Snapshot returns the current bankroll state
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := 0
	for _, w := range l.wagers {
		if w.Status == models.WagerStatusPending {
			pending++
		}
	}
	initial := cents(l.cfg.InitialBankroll)
	totalReturn := 0.0
	if initial.IsPositive() {
		totalReturn = l.current.Sub(initial).Div(initial).InexactFloat64()
	}
	return State{
		Initial:       initial.InexactFloat64(),
		Current:       l.current.InexactFloat64(),
		Peak:          l.peak.InexactFloat64(),
		Drawdown:      l.drawdown,
		MaxDrawdown:   l.maxDrawdown,
		OpenExposure:  l.openExposure.InexactFloat64(),
		PendingWagers: pending,
		TotalReturn:   totalReturn,
	}
}

// History returns copies of every wager in placement order
func (l *Ledger) History() []models.Wager {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Wager, len(l.wagers))
	for i, w := range l.wagers {
		out[i] = *w
	}
	return out
}

// Stats aggregates settled wagers. Win rate counts pushes in neither wins nor losses.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Stats
	staked, profit, grossWins, grossLosses := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, w := range l.wagers {
		switch w.Status {
		case models.WagerStatusPending:
			continue
		case models.WagerStatusCancelled:
			s.Cancelled++
			continue
		case models.WagerStatusWon:
			s.Wins++
		case models.WagerStatusLost:
			s.Losses++
		case models.WagerStatusPush:
			s.Pushes++
		}
		s.TotalWagers++
		pl := decimal.NewFromFloat(w.ProfitLoss())
		staked = staked.Add(decimal.NewFromFloat(w.Stake))
		profit = profit.Add(pl)
		if pl.IsPositive() {
			grossWins = grossWins.Add(pl)
		} else if pl.IsNegative() {
			grossLosses = grossLosses.Add(pl.Neg())
		}
	}

	s.TotalStaked = staked.InexactFloat64()
	s.TotalProfit = profit.InexactFloat64()
	s.GrossWins = grossWins.InexactFloat64()
	s.GrossLosses = grossLosses.InexactFloat64()
	if staked.IsPositive() {
		s.ROI = profit.Div(staked).InexactFloat64()
	}
	if decided := s.Wins + s.Losses; decided > 0 {
		s.WinRate = float64(s.Wins) / float64(decided)
	}
	switch {
	case grossLosses.IsPositive():
		s.ProfitFactor = grossWins.Div(grossLosses).InexactFloat64()
	case grossWins.IsPositive():
		s.ProfitFactor = profitFactorNoLosses
	}
	s.MaxDrawdown = l.maxDrawdown
	return s
}

// stakeCents truncates a proposed stake to whole cents so a stake sized at a cap never rounds past it
func stakeCents(stake float64) decimal.Decimal {
	return decimal.NewFromFloat(odds.FloorCents(stake))
}

func cents(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(odds.RoundCents(amount))
}
