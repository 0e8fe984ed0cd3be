// Package service wires event loading, the backtest engine, variance analysis and persistence
// into the workflows exposed by the CLI and the scheduler.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/edge-backtester/internal/backtest"
	"github.com/yourusername/edge-backtester/internal/config"
	"github.com/yourusername/edge-backtester/internal/datasource"
	"github.com/yourusername/edge-backtester/internal/logger"
	"github.com/yourusername/edge-backtester/internal/models"
	"github.com/yourusername/edge-backtester/internal/repository"
	"github.com/yourusername/edge-backtester/internal/variance"
)

// BacktestService runs the configured backtest workflows against one event source
type BacktestService struct {
	cfg    *config.Config
	source datasource.EventSource
	sink   repository.WagerSink
	logger *logrus.Logger
}

// NewBacktestService creates a service. A nil sink disables persistence.
func NewBacktestService(cfg *config.Config, source datasource.EventSource, sink repository.WagerSink, log *logrus.Logger) (*BacktestService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if source == nil {
		return nil, fmt.Errorf("event source is required")
	}
	return &BacktestService{
		cfg:    cfg,
		source: source,
		sink:   sink,
		logger: logger.OrDiscard(log),
	}, nil
}

// LoadEvents fetches every event from the configured source
func (s *BacktestService) LoadEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load events from %s: %w", s.source.Name(), err)
	}
	if len(events) == 0 {
		return nil, models.ErrNoEvents
	}
	return events, nil
}

// RunHistorical replays the configured window once and persists the result when a sink is set
func (s *BacktestService) RunHistorical(ctx context.Context) (*backtest.Result, error) {
	events, err := s.LoadEvents(ctx)
	if err != nil {
		return nil, err
	}
	return s.historical(ctx, events)
}

// RunVariance replays the window and simulates the resulting wagers
func (s *BacktestService) RunVariance(ctx context.Context) (*backtest.Result, variance.Report, error) {
	result, err := s.RunHistorical(ctx)
	if err != nil {
		return nil, variance.Report{}, err
	}
	report, err := s.variance(ctx, result)
	if err != nil {
		return result, variance.Report{}, err
	}
	return result, report, nil
}

// RunWalkForward evaluates each season out of sample
func (s *BacktestService) RunWalkForward(ctx context.Context, wf backtest.WalkForwardConfig) (backtest.WalkForwardResult, error) {
	events, err := s.LoadEvents(ctx)
	if err != nil {
		return backtest.WalkForwardResult{}, err
	}
	cfg, err := backtest.FromConfig(s.cfg)
	if err != nil {
		return backtest.WalkForwardResult{}, err
	}
	return backtest.RunWalkForward(ctx, cfg, wf, events, s.logger)
}

// RunAll performs the historical replay, the Monte Carlo analysis and the walk-forward
// evaluation on one load of events, aggregates them and writes the export when an output
// path is configured. A method that cannot run on the data is logged and weighted out.
func (s *BacktestService) RunAll(ctx context.Context, wf backtest.WalkForwardConfig) (*backtest.Export, error) {
	events, err := s.LoadEvents(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.historical(ctx, events)
	if err != nil {
		return nil, err
	}
	weights := backtest.DefaultAggregationWeights()

	var dist variance.Distribution
	report, err := s.variance(ctx, result)
	switch {
	case err == nil:
		dist = report.Distribution
	case isValidationError(err):
		s.logger.WithError(err).Warn("Skipping Monte Carlo analysis")
		weights.MonteCarlo = 0
	default:
		return nil, err
	}

	cfg, err := backtest.FromConfig(s.cfg)
	if err != nil {
		return nil, err
	}
	walkForward, err := backtest.RunWalkForward(ctx, cfg, wf, events, s.logger)
	var insufficient *models.InsufficientDataError
	switch {
	case err == nil:
	case errors.As(err, &insufficient):
		s.logger.WithError(err).Warn("Skipping walk-forward evaluation")
		weights.WalkForward = 0
	default:
		return nil, err
	}

	aggregated := backtest.AggregateResults(result.Model, result.Metrics, dist, walkForward, weights)
	export := backtest.NewExport(result)
	export.WalkForward = &walkForward
	export.Aggregated = &aggregated

	if err := s.write(export); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"run_id":         result.RunID,
		"composite":      aggregated.CompositeScore,
		"recommendation": aggregated.Recommendation,
	}).Info("Backtest evaluation complete")
	return &export, nil
}

func (s *BacktestService) historical(ctx context.Context, events []models.Event) (*backtest.Result, error) {
	cfg, err := backtest.FromConfig(s.cfg)
	if err != nil {
		return nil, err
	}
	engine, err := backtest.NewEngine(cfg, nil, nil, s.logger)
	if err != nil {
		return nil, err
	}

	result, err := engine.Run(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("backtest run failed: %w", err)
	}

	if s.sink != nil {
		if err := backtest.SaveResult(ctx, s.sink, result); err != nil {
			return nil, err
		}
		s.logger.WithField("run_id", result.RunID).Info("Backtest run persisted")
	}
	return result, nil
}

func (s *BacktestService) variance(ctx context.Context, result *backtest.Result) (variance.Report, error) {
	analyzer := variance.NewAnalyzer(variance.FromConfig(s.cfg.Variance), s.logger)
	return analyzer.Report(ctx, variance.SpecsFromWagers(result.Wagers), result.Bankroll.Initial, s.cfg.Variance.StreakBets)
}

func (s *BacktestService) write(export backtest.Export) error {
	path := s.cfg.Backtest.OutputPath
	if path == "" {
		return nil
	}
	if err := backtest.ExportToJSON(export, path); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	s.logger.WithField("path", path).Info("Results written")
	return nil
}

func isValidationError(err error) bool {
	var validation *models.ValidationError
	return errors.As(err, &validation)
}
