package backtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/edge-backtester/internal/models"
)

// seasonGames builds n home wins for each season, dated inside that season's calendar year
func seasonGames(seasons []int, n int) []models.Event {
	var events []models.Event
	for _, season := range seasons {
		for i := 0; i < n; i++ {
			events = append(events, models.Event{
				ID:        fmt.Sprintf("%d-%d", season, i),
				Date:      time.Date(season, 1, 1+i, 19, 0, 0, 0, time.UTC),
				Season:    season,
				HomeTeam:  "BOS",
				AwayTeam:  "NYK",
				HomeScore: 110,
				AwayScore: 100,
				Market:    models.MarketQuotes{MoneylineHome: -110, MoneylineAway: -110},
			})
		}
	}
	return events
}

func TestRunWalkForward(t *testing.T) {
	events := seasonGames([]int{2022, 2023, 2024}, 4)

	result, err := RunWalkForward(context.Background(), testConfig(), DefaultWalkForwardConfig(), events, nil)
	require.NoError(t, err)

	require.Len(t, result.Windows, 2)
	first, second := result.Windows[0], result.Windows[1]
	assert.Equal(t, 1, first.WindowID)
	assert.Equal(t, 2023, first.Season)
	assert.Equal(t, []int{2022}, first.TrainSeasons)
	assert.Equal(t, 4, first.WarmUpEvents)
	assert.Equal(t, 2024, second.Season)
	assert.Equal(t, []int{2023}, second.TrainSeasons)
	assert.Equal(t, 8, second.WarmUpEvents)
	assert.Equal(t, 2024, second.TestStart.Year())

	for _, w := range result.Windows {
		assert.Equal(t, 4, w.Counts.EventsTotal)
		assert.Greater(t, w.TestMetrics.TotalWagers, 0)
		assert.Greater(t, w.TestMetrics.TotalReturn, 0.0)
	}
	assert.Equal(t, 1.0, result.ConsistencyScore)
	assert.Equal(t, first.TestMetrics.TotalWagers+second.TestMetrics.TotalWagers, result.AggregatedMetrics.TotalWagers)
	assert.InDelta(t, (first.TestMetrics.TotalReturn+second.TestMetrics.TotalReturn)/2,
		result.AggregatedMetrics.TotalReturn, 1e-9)
	assert.NotEmpty(t, result.ToJSON())
}

func TestRunWalkForwardSeasonFilter(t *testing.T) {
	cfg := testConfig()
	cfg.Seasons = []int{2024}

	result, err := RunWalkForward(context.Background(), cfg, WalkForwardConfig{TrainSeasons: 2},
		seasonGames([]int{2022, 2023, 2024}, 3), nil)
	require.NoError(t, err)

	require.Len(t, result.Windows, 1)
	assert.Equal(t, []int{2022, 2023}, result.Windows[0].TrainSeasons)
}

func TestRunWalkForwardMinimumWagers(t *testing.T) {
	result, err := RunWalkForward(context.Background(), testConfig(),
		WalkForwardConfig{TrainSeasons: 1, MinWagersPerWindow: 1000},
		seasonGames([]int{2022, 2023}, 3), nil)
	require.NoError(t, err)

	assert.Empty(t, result.Windows)
	assert.Zero(t, result.ConsistencyScore)
	assert.Zero(t, result.OverfitScore)
}

func TestRunWalkForwardNeedsMoreSeasonsThanTraining(t *testing.T) {
	_, err := RunWalkForward(context.Background(), testConfig(), DefaultWalkForwardConfig(),
		seasonGames([]int{2024}, 3), nil)

	var insufficient *models.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 2, insufficient.Required)
	assert.Equal(t, 1, insufficient.Got)
}

func TestRunWalkForwardCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunWalkForward(ctx, testConfig(), DefaultWalkForwardConfig(), seasonGames([]int{2023, 2024}, 2), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsistencyAndOverfit(t *testing.T) {
	windows := []WalkForwardWindow{
		{TrainMetrics: Metrics{TotalReturn: 0.2}, TestMetrics: Metrics{TotalReturn: 0.1}},
		{TrainMetrics: Metrics{TotalReturn: 0.2}, TestMetrics: Metrics{TotalReturn: -0.05}},
	}

	assert.Equal(t, 0.5, CalculateConsistency(windows))
	assert.InDelta(t, (0.4-0.05)/0.4, calculateOverfitScore(windows), 1e-9)
	assert.Zero(t, CalculateConsistency(nil))
}
