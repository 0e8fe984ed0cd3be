package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/edge-backtester/internal/logger"
	"github.com/yourusername/edge-backtester/internal/metrics"
	"github.com/yourusername/edge-backtester/internal/models"
)

// WalkForwardConfig configures season-by-season walk-forward validation
type WalkForwardConfig struct {
	// TrainSeasons is the number of seasons immediately before each test season that form
	// its in-sample window.
	TrainSeasons       int
	MinWagersPerWindow int
}

// DefaultWalkForwardConfig trains on the single preceding season
func DefaultWalkForwardConfig() WalkForwardConfig {
	return WalkForwardConfig{TrainSeasons: 1}
}

// WalkForwardWindow represents one walk-forward window
type WalkForwardWindow struct {
	WindowID     int       `json:"window_id"`
	Season       int       `json:"season"`
	TrainSeasons []int     `json:"train_seasons"`
	TestStart    time.Time `json:"test_start"`
	TestEnd      time.Time `json:"test_end"`
	WarmUpEvents int       `json:"warm_up_events"`
	TrainMetrics Metrics   `json:"train_metrics"`
	TestMetrics  Metrics   `json:"test_metrics"`
	Counts       Counts    `json:"counts"`
}

// WalkForwardResult represents walk-forward validation result
type WalkForwardResult struct {
	Windows           []WalkForwardWindow `json:"windows"`
	AggregatedMetrics Metrics             `json:"aggregated_metrics"`
	ConsistencyScore  float64             `json:"consistency_score"`
	OverfitScore      float64             `json:"overfit_score"`
}

// RunWalkForward treats every season after the first TrainSeasons as an out-of-sample test.
// Each window gets a fresh engine, model and ledger; the model is warmed on every earlier
// season and never sees the test season before wagering on it. cfg.Seasons, when set,
// limits which seasons are tested.
func RunWalkForward(ctx context.Context, cfg Config, wf WalkForwardConfig, events []models.Event, log *logrus.Logger) (WalkForwardResult, error) {
	log = logger.OrDiscard(log)
	if wf.TrainSeasons <= 0 {
		wf.TrainSeasons = 1
	}

	seasons := distinctSeasons(events)
	if len(seasons) <= wf.TrainSeasons {
		return WalkForwardResult{}, &models.InsufficientDataError{
			Model:    MethodWalkForward,
			Required: wf.TrainSeasons + 1,
			Got:      len(seasons),
		}
	}

	started := time.Now()
	var windows []WalkForwardWindow
	for i := wf.TrainSeasons; i < len(seasons); i++ {
		if err := ctx.Err(); err != nil {
			metrics.RecordBacktestRun(MethodWalkForward, metrics.StatusFailure, time.Since(started).Seconds())
			return WalkForwardResult{}, fmt.Errorf("walk-forward cancelled: %w", err)
		}
		season := seasons[i]
		if len(cfg.Seasons) > 0 && !containsSeason(cfg.Seasons, season) {
			continue
		}
		train := append([]int(nil), seasons[i-wf.TrainSeasons:i]...)

		window, err := runWindow(ctx, cfg, events, season, train, log)
		if err != nil {
			metrics.RecordBacktestRun(MethodWalkForward, metrics.StatusFailure, time.Since(started).Seconds())
			return WalkForwardResult{}, fmt.Errorf("walk-forward season %d: %w", season, err)
		}
		if window.TestMetrics.TotalWagers < wf.MinWagersPerWindow {
			log.WithFields(logrus.Fields{
				"season": season,
				"wagers": window.TestMetrics.TotalWagers,
				"min":    wf.MinWagersPerWindow,
			}).Debug("Walk-forward window below wager threshold")
			continue
		}
		window.WindowID = len(windows) + 1
		windows = append(windows, window)
	}

	result := WalkForwardResult{
		Windows:           windows,
		AggregatedMetrics: aggregateWalkForward(windows),
		ConsistencyScore:  CalculateConsistency(windows),
		OverfitScore:      calculateOverfitScore(windows),
	}
	metrics.RecordBacktestRun(MethodWalkForward, metrics.StatusSuccess, time.Since(started).Seconds())
	log.WithFields(logrus.Fields{
		"windows":     len(windows),
		"consistency": result.ConsistencyScore,
		"overfit":     result.OverfitScore,
	}).Info("Walk-forward validation complete")
	return result, nil
}

func runWindow(ctx context.Context, cfg Config, events []models.Event, season int, train []int, log *logrus.Logger) (WalkForwardWindow, error) {
	trainRun, err := runSeasons(ctx, cfg, train, seasonsBefore(events, season), log)
	if err != nil {
		return WalkForwardWindow{}, fmt.Errorf("train run: %w", err)
	}
	testRun, err := runSeasons(ctx, cfg, []int{season}, seasonsBefore(events, season+1), log)
	if err != nil {
		return WalkForwardWindow{}, fmt.Errorf("test run: %w", err)
	}
	return WalkForwardWindow{
		Season:       season,
		TrainSeasons: train,
		TestStart:    testRun.StartDate,
		TestEnd:      testRun.EndDate,
		WarmUpEvents: testRun.WarmUpEvents,
		TrainMetrics: trainRun.Metrics,
		TestMetrics:  testRun.Metrics,
		Counts:       testRun.Counts,
	}, nil
}

// runSeasons replays the given seasons on a fresh engine, warmed on whatever earlier events
// are supplied
func runSeasons(ctx context.Context, cfg Config, seasons []int, events []models.Event, log *logrus.Logger) (*Result, error) {
	windowCfg := cfg
	windowCfg.StartDate = time.Time{}
	windowCfg.EndDate = time.Time{}
	windowCfg.Seasons = seasons
	windowCfg.WarmUp = true

	engine, err := NewEngine(windowCfg, nil, nil, log)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, events)
}

func distinctSeasons(events []models.Event) []int {
	seen := make(map[int]bool)
	var out []int
	for _, ev := range events {
		if !seen[ev.Season] {
			seen[ev.Season] = true
			out = append(out, ev.Season)
		}
	}
	sort.Ints(out)
	return out
}

func seasonsBefore(events []models.Event, season int) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if ev.Season < season {
			out = append(out, ev)
		}
	}
	return out
}

func containsSeason(seasons []int, season int) bool {
	for _, s := range seasons {
		if s == season {
			return true
		}
	}
	return false
}

// CalculateConsistency calculates percentage of profitable windows
func CalculateConsistency(windows []WalkForwardWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	profitable := 0
	for _, w := range windows {
		if w.TestMetrics.TotalReturn > 0 {
			profitable++
		}
	}
	return float64(profitable) / float64(len(windows))
}

func calculateOverfitScore(windows []WalkForwardWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	trainReturn := 0.0
	testReturn := 0.0
	for _, w := range windows {
		trainReturn += w.TrainMetrics.TotalReturn
		testReturn += w.TestMetrics.TotalReturn
	}
	if trainReturn == 0 {
		return 0
	}
	return (trainReturn - testReturn) / trainReturn
}

// aggregateWalkForward sums counts across test windows and averages the ratios
func aggregateWalkForward(windows []WalkForwardWindow) Metrics {
	m := Metrics{BetTypeBreakdown: make(map[string]BetTypeStats)}
	if len(windows) == 0 {
		return m
	}
	for _, w := range windows {
		t := w.TestMetrics
		m.TotalWagers += t.TotalWagers
		m.Wins += t.Wins
		m.Losses += t.Losses
		m.Pushes += t.Pushes
		m.TotalStaked += t.TotalStaked
		m.TotalProfit += t.TotalProfit
		m.TotalReturn += t.TotalReturn
		m.SharpeRatio += t.SharpeRatio
		m.MaxDrawdown += t.MaxDrawdown
		m.ProfitFactor += t.ProfitFactor
		m.WinRate += t.WinRate
	}
	n := float64(len(windows))
	m.TotalReturn /= n
	m.SharpeRatio /= n
	m.MaxDrawdown /= n
	m.ProfitFactor /= n
	m.WinRate /= n
	if m.TotalStaked > 0 {
		m.ROI = m.TotalProfit / m.TotalStaked
	}
	m.StartDate = windows[0].TestStart
	m.EndDate = windows[len(windows)-1].TestEnd
	return m
}

// ToJSON exports the walk-forward result to JSON
func (w WalkForwardResult) ToJSON() string {
	data, _ := json.Marshal(w)
	return string(data)
}
