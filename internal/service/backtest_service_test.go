package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/edge-backtester/internal/backtest"
	"github.com/yourusername/edge-backtester/internal/config"
	"github.com/yourusername/edge-backtester/internal/datasource"
	"github.com/yourusername/edge-backtester/internal/models"
)

// MockEventSource mocks an event source
type MockEventSource struct {
	mock.Mock
}

func (m *MockEventSource) Load(ctx context.Context) ([]models.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Event), args.Error(1)
}

func (m *MockEventSource) Name() string {
	return "mock"
}

// MockWagerSink mocks run persistence
type MockWagerSink struct {
	mock.Mock
}

func (m *MockWagerSink) SaveRun(ctx context.Context, run models.RunRecord, wagers []models.Wager) error {
	args := m.Called(ctx, run, wagers)
	return args.Error(0)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Variance.Simulations = 200
	cfg.Variance.StreakBets = 50
	return cfg
}

func syntheticEvents(t *testing.T, seasons ...int) []models.Event {
	t.Helper()
	src, err := datasource.NewSyntheticSource(config.SyntheticConfig{
		Seasons: seasons, Teams: 8, GamesPerTeam: 20, Seed: 11,
	}, nil)
	require.NoError(t, err)
	events, err := src.Load(context.Background())
	require.NoError(t, err)
	return events
}

func TestNewBacktestServiceRequiresCollaborators(t *testing.T) {
	_, err := NewBacktestService(nil, new(MockEventSource), nil, nil)
	assert.Error(t, err)
	_, err = NewBacktestService(testConfig(t), nil, nil, nil)
	assert.Error(t, err)
}

func TestLoadEventsErrors(t *testing.T) {
	t.Run("source failure", func(t *testing.T) {
		src := new(MockEventSource)
		src.On("Load", mock.Anything).Return(nil, errors.New("disk on fire"))
		svc, err := NewBacktestService(testConfig(t), src, nil, nil)
		require.NoError(t, err)

		_, err = svc.RunHistorical(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk on fire")
	})

	t.Run("empty source", func(t *testing.T) {
		src := new(MockEventSource)
		src.On("Load", mock.Anything).Return([]models.Event{}, nil)
		svc, err := NewBacktestService(testConfig(t), src, nil, nil)
		require.NoError(t, err)

		_, err = svc.LoadEvents(context.Background())
		assert.ErrorIs(t, err, models.ErrNoEvents)
	})
}

func TestRunHistoricalPersists(t *testing.T) {
	src := new(MockEventSource)
	src.On("Load", mock.Anything).Return(syntheticEvents(t, 2024), nil)
	sink := new(MockWagerSink)
	sink.On("SaveRun", mock.Anything, mock.AnythingOfType("models.RunRecord"), mock.Anything).Return(nil)

	svc, err := NewBacktestService(testConfig(t), src, sink, nil)
	require.NoError(t, err)

	result, err := svc.RunHistorical(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 80, result.Counts.EventsTotal)
	sink.AssertNumberOfCalls(t, "SaveRun", 1)
}

func TestRunHistoricalSinkFailure(t *testing.T) {
	src := new(MockEventSource)
	src.On("Load", mock.Anything).Return(syntheticEvents(t, 2024), nil)
	sink := new(MockWagerSink)
	sink.On("SaveRun", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	svc, err := NewBacktestService(testConfig(t), src, sink, nil)
	require.NoError(t, err)

	_, err = svc.RunHistorical(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestRunAllWritesExport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backtest.OutputPath = filepath.Join(t.TempDir(), "results", "run.json")
	src := new(MockEventSource)
	src.On("Load", mock.Anything).Return(syntheticEvents(t, 2023, 2024), nil)

	svc, err := NewBacktestService(cfg, src, nil, nil)
	require.NoError(t, err)

	export, err := svc.RunAll(context.Background(), backtest.DefaultWalkForwardConfig())
	require.NoError(t, err)
	require.NotNil(t, export.Aggregated)
	require.NotNil(t, export.WalkForward)
	assert.Len(t, export.WalkForward.Windows, 1)
	assert.Greater(t, export.Aggregated.Weights.WalkForward, 0.0)
	assert.Contains(t, []string{backtest.RecommendAccept, backtest.RecommendReject, backtest.RecommendNeedsReview},
		export.Aggregated.Recommendation)

	_, err = os.Stat(cfg.Backtest.OutputPath)
	assert.NoError(t, err)
	src.AssertNumberOfCalls(t, "Load", 1)
}

func TestRunAllWeightsOutWalkForwardOnSingleSeason(t *testing.T) {
	src := new(MockEventSource)
	src.On("Load", mock.Anything).Return(syntheticEvents(t, 2024), nil)

	svc, err := NewBacktestService(testConfig(t), src, nil, nil)
	require.NoError(t, err)

	export, err := svc.RunAll(context.Background(), backtest.DefaultWalkForwardConfig())
	require.NoError(t, err)
	assert.Zero(t, export.Aggregated.Weights.WalkForward)
	assert.Empty(t, export.WalkForward.Windows)
}

func TestRunWalkForwardNeedsTwoSeasons(t *testing.T) {
	src := new(MockEventSource)
	src.On("Load", mock.Anything).Return(syntheticEvents(t, 2024), nil)

	svc, err := NewBacktestService(testConfig(t), src, nil, nil)
	require.NoError(t, err)

	_, err = svc.RunWalkForward(context.Background(), backtest.DefaultWalkForwardConfig())
	var insufficient *models.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}
