// Package backtest replays historical events through a rating model, an opportunity finder
// and a bankroll ledger in strict chronological order.
package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/edge-backtester/internal/bankroll"
	"github.com/yourusername/edge-backtester/internal/logger"
	"github.com/yourusername/edge-backtester/internal/metrics"
	"github.com/yourusername/edge-backtester/internal/models"
	"github.com/yourusername/edge-backtester/internal/rating"
	"github.com/yourusername/edge-backtester/internal/strategy"
)

// Run methods, as labelled in metrics and persisted run records
const (
	MethodHistorical  = metrics.MethodHistorical
	MethodWalkForward = metrics.MethodWalkForward
	MethodMonteCarlo  = metrics.MethodMonteCarlo
)

const progressEvery = 250

// Result is the full outcome of one engine run
type Result struct {
	RunID        uuid.UUID              `json:"run_id"`
	Model        string                 `json:"model"`
	Strategy     string                 `json:"strategy"`
	Parameters   map[string]interface{} `json:"parameters"`
	ConfigHash   string                 `json:"config_hash"`
	StartDate    time.Time              `json:"start_date"`
	EndDate      time.Time              `json:"end_date"`
	WarmUpEvents int                    `json:"warm_up_events"`
	Counts       Counts                 `json:"counts"`
	Wagers       []models.Wager         `json:"wagers"`
	Stats        bankroll.Stats         `json:"stats"`
	Bankroll     bankroll.State         `json:"bankroll"`
	EquityCurve  EquityCurve            `json:"equity_curve"`
	Metrics      Metrics                `json:"metrics"`
	Duration     time.Duration          `json:"duration"`
}

// Engine orchestrates a single backtest run. It owns its model and ledger and cannot be
// run twice.
type Engine struct {
	config   Config
	model    rating.Predictor
	strategy strategy.Strategy
	screen   strategy.Screen
	sizer    strategy.StakeSizer
	ledger   *bankroll.Ledger
	logger   *logrus.Logger

	mu    sync.Mutex
	state State
}

// NewEngine creates a backtesting engine. A nil model or strategy is built from cfg.
func NewEngine(cfg Config, model rating.Predictor, strat strategy.Strategy, log *logrus.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	log = logger.OrDiscard(log)

	if model == nil {
		var err error
		model, err = rating.New(cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to build model: %w", err)
		}
	}
	if strat == nil {
		strat = strategy.NewFinder(cfg.Finder)
	}
	sizer, err := strategy.NewSizer(cfg.Sizer)
	if err != nil {
		return nil, fmt.Errorf("failed to build sizer: %w", err)
	}

	return &Engine{
		config:   cfg,
		model:    model,
		strategy: strat,
		screen:   strategy.NewFilter(cfg.Filter),
		sizer:    sizer,
		ledger:   bankroll.NewLedger(cfg.Bankroll, log),
		logger:   log,
		state:    StateNotStarted,
	}, nil
}

// Config returns the backtest configuration
func (e *Engine) Config() Config {
	return e.config
}

// Model returns the predictor owned by this engine
func (e *Engine) Model() rating.Predictor {
	return e.model
}

// Ledger returns the ledger owned by this engine
func (e *Engine) Ledger() *bankroll.Ledger {
	return e.ledger
}

// State returns the lifecycle state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Run replays the events inside the configured window. Any returned error leaves the engine
// ABORTED.
func (e *Engine) Run(ctx context.Context, events []models.Event) (*Result, error) {
	e.mu.Lock()
	if e.state != StateNotStarted {
		e.mu.Unlock()
		return nil, models.ErrEngineAlreadyRun
	}
	e.state = StateRunning
	e.mu.Unlock()

	started := time.Now()
	result, err := e.replay(ctx, events)
	elapsed := time.Since(started)
	if err != nil {
		e.setState(StateAborted)
		metrics.RecordBacktestRun(MethodHistorical, metrics.StatusFailure, elapsed.Seconds())
		e.logger.WithError(err).WithField("model", e.model.Name()).Error("Backtest aborted")
		return nil, err
	}

	result.Duration = elapsed
	e.setState(StateComplete)
	metrics.RecordBacktestRun(MethodHistorical, metrics.StatusSuccess, elapsed.Seconds())
	metrics.UpdateROI(result.Model, MethodHistorical, result.Stats.ROI)
	return result, nil
}

func (e *Engine) replay(ctx context.Context, events []models.Event) (*Result, error) {
	ordered := sortByDate(events)
	window := make([]models.Event, 0, len(ordered))
	for _, ev := range ordered {
		if e.config.InWindow(ev) {
			window = append(window, ev)
		}
	}
	if len(window) == 0 {
		return nil, models.ErrNoEvents
	}
	start := window[0].Date

	var warm []models.Event
	if e.config.WarmUp {
		for _, ev := range ordered {
			if !ev.Date.Before(start) {
				break
			}
			warm = append(warm, ev)
		}
	}

	history := make([]models.Event, 0, len(warm)+len(window))
	history = append(history, warm...)
	history = append(history, window...)
	if err := e.model.Fit(history); err != nil {
		return nil, fmt.Errorf("failed to fit %s: %w", e.model.Name(), err)
	}
	warmed, err := rating.Warm(e.model, warm, start)
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	bl := logger.NewBacktestLogger(e.logger).WithRun(runID.String(), e.model.Name())
	bl.WithFields(logrus.Fields{
		"events":   len(window),
		"warm_up":  warmed,
		"start":    models.DateKey(start),
		"end":      models.DateKey(window[len(window)-1].Date),
		"strategy": e.strategy.Name(),
	}).Info("Starting backtest run")

	rs := newRunState(e.config.Bankroll.InitialBankroll, start)
	rs.counts.EventsTotal = len(window)
	for i, ev := range window {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest cancelled after %d events: %w", i, err)
		}
		if err := e.processEvent(ev, rs, bl); err != nil {
			return nil, err
		}
		if (i+1)%progressEvery == 0 {
			bl.LogProgress(i+1, len(window), rs.counts.Placed, e.ledger.Current())
		}
	}

	wagers := e.ledger.History()
	stats := e.ledger.Stats()
	snap := e.ledger.Snapshot()
	end := window[len(window)-1].Date

	result := &Result{
		RunID:        runID,
		Model:        e.model.Name(),
		Strategy:     e.strategy.Name(),
		Parameters:   e.strategy.GetParameters(),
		ConfigHash:   e.config.Hash(),
		StartDate:    start,
		EndDate:      end,
		WarmUpEvents: warmed,
		Counts:       rs.counts,
		Wagers:       wagers,
		Stats:        stats,
		Bankroll:     snap,
		EquityCurve:  rs.curve,
		Metrics:      CalculateMetrics(wagers, stats, snap, start, end),
	}
	bl.LogRunSummary(rs.counts.EventsProcessed, rs.counts.Placed, rs.counts.Rejected,
		snap.Current, stats.ROI, snap.MaxDrawdown)
	return result, nil
}

// processEvent runs the predict, place, settle and update steps for one event
func (e *Engine) processEvent(ev models.Event, rs *runState, bl *logger.BacktestLogger) error {
	rs.counts.EventsProcessed++
	metrics.RecordEventProcessed()

	matchup := ev.Matchup()
	pred := e.model.Predict(matchup)
	if pred.Skipped {
		rs.counts.EventsSkipped++
		metrics.RecordEventSkipped()
		bl.LogEventSkipped(ev.ID, pred.Reason)
	} else {
		placed := e.placeWagers(ev, matchup, pred, rs, bl)
		if err := e.settleWagers(ev, placed, rs); err != nil {
			return err
		}
	}

	if err := e.model.Update(ev); err != nil {
		rs.counts.UpdateFailures++
		metrics.RecordUpdateFailure()
		bl.LogUpdateFailure(ev.ID, &models.PredictionFailure{EventID: ev.ID, Stage: "update", Err: err})
	}
	return nil
}

// placeWagers turns opportunities into PENDING wagers. Every opportunity of the event is
// placed before any is settled, so sizing never sees this event's outcome.
func (e *Engine) placeWagers(ev models.Event, m models.Matchup, pred rating.Prediction,
	rs *runState, bl *logger.BacktestLogger) []*models.Wager {
	var placed []*models.Wager
	for _, o := range e.strategy.Find(m, pred) {
		if e.config.ApplyFilter {
			o = e.screen.Evaluate(o, strategy.SidePublicPercentage(m.Market.PublicBetPercentage, o.Side))
			if o.Recommendation == models.RecommendDoNotBet {
				e.reject(rs, bl, o, RejectMarketFilter, "market-efficiency filter", 0)
				continue
			}
		}

		stake := e.sizer.Stake(o.SizingProbability(), o.Odds, e.ledger.Current())
		if stake <= 0 {
			e.reject(rs, bl, o, RejectStakeBelowMinimum, "stake below minimum", stake)
			continue
		}

		w, decision := e.ledger.Place(bankroll.PlaceRequest{
			EventID:          ev.ID,
			EventDate:        ev.Date,
			BetType:          o.BetType,
			Side:             o.Side,
			Odds:             o.Odds,
			Line:             o.Line,
			Stake:            stake,
			ModelProbability: o.ModelProbability,
			Edge:             o.Edge,
			ExpectedValue:    o.ExpectedValue,
		})
		if !decision.Allowed {
			e.reject(rs, bl, o, string(decision.Code), decision.Reason, stake)
			continue
		}

		rs.place()
		metrics.RecordWagerPlaced(o.Label())
		bl.LogWagerPlaced(ev.ID, o.Label(), w.Odds, w.Stake, o.Edge, o.ExpectedValue)
		placed = append(placed, w)
	}
	return placed
}

func (e *Engine) reject(rs *runState, bl *logger.BacktestLogger, o models.Opportunity, code, reason string, stake float64) {
	rs.reject(code)
	metrics.RecordWagerRejected(code)
	bl.LogWagerRejected(o.EventID, o.Label(), code, reason, stake)
}

// settleWagers closes the event's wagers from the recorded score. A ledger invariant
// violation aborts the run.
func (e *Engine) settleWagers(ev models.Event, placed []*models.Wager, rs *runState) error {
	if len(placed) == 0 {
		return nil
	}
	for _, w := range placed {
		result := Outcome(ev, w.BetType, w.Side, w.Line)
		if err := e.ledger.Settle(w, result); err != nil {
			return fmt.Errorf("failed to settle wager %d on %s: %w", w.Seq, ev.ID, err)
		}
		rs.settled(w)
		metrics.RecordWagerSettled(string(result))
	}

	snap := e.ledger.Snapshot()
	rs.RecordEquityPoint(ev.Date, snap.Current)
	metrics.UpdateBankroll(snap.Current, snap.Drawdown)
	return nil
}

// Outcome grades one side of a market against the final score. line is the line quoted
// for that side; the side covers when its margin plus its line is positive and pushes on
// exact equality. A drawn moneyline pushes.
func Outcome(ev models.Event, betType models.BetType, side models.Side, line float64) models.WagerStatus {
	margin := ev.Margin()
	if side == models.SideAway {
		margin = -margin
	}
	if betType == models.BetTypeMoneyline {
		line = 0
	}

	covered := float64(margin) + line
	switch {
	case covered > 0:
		return models.WagerStatusWon
	case covered == 0:
		return models.WagerStatusPush
	default:
		return models.WagerStatusLost
	}
}

// sortByDate returns a copy of events in ascending date order, ties keeping input order
func sortByDate(events []models.Event) []models.Event {
	out := make([]models.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
