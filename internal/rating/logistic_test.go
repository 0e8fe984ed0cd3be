package rating

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/edge-backtester/internal/models"
)

func homeDominated(n int) []models.Event {
	teams := []string{"BOS", "NYK", "MIA", "PHI"}
	events := make([]models.Event, 0, n)
	for i := 0; i < n; i++ {
		home := teams[i%len(teams)]
		away := teams[(i+1)%len(teams)]
		events = append(events, game(i+1, 2024, home, away, 110, 100))
	}
	return events
}

func TestLogisticFitNeedsMinimumHistory(t *testing.T) {
	cfg := DefaultLogisticConfig()
	cfg.MinTraining = 20
	l := NewLogistic(DefaultEloConfig(), cfg)

	err := l.Fit(homeDominated(5))
	var ide *models.InsufficientDataError
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, 20, ide.Required)
	assert.Equal(t, 5, ide.Got)
}

func TestLogisticWarmsUpThenTrains(t *testing.T) {
	cfg := DefaultLogisticConfig()
	cfg.MinTraining = 20
	cfg.RetrainEvery = 10
	l := NewLogistic(DefaultEloConfig(), cfg)

	events := homeDominated(40)
	require.NoError(t, l.Fit(events))

	for i, ev := range events[:19] {
		p := l.Predict(ev.Matchup())
		require.True(t, p.Skipped, "event %d", i)
		assert.Contains(t, p.Reason, "warming up")
		require.NoError(t, l.Update(ev))
	}
	assert.False(t, l.Trained())

	require.NoError(t, l.Update(events[19]))
	require.True(t, l.Trained())

	p := l.Predict(events[20].Matchup())
	require.False(t, p.Skipped)
	assert.Greater(t, p.HomeWinProbability, 0.5)
	assert.Less(t, p.HomeWinProbability, 1.0)

	_, biasBefore := l.Weights()
	for _, ev := range events[20:30] {
		require.NoError(t, l.Update(ev))
	}
	_, biasAfter := l.Weights()
	assert.NotEqual(t, biasBefore, biasAfter)
}

func TestLogisticFitResetsTraining(t *testing.T) {
	cfg := DefaultLogisticConfig()
	cfg.MinTraining = 10
	l := NewLogistic(DefaultEloConfig(), cfg)
	events := homeDominated(10)
	require.NoError(t, l.Fit(events))
	for _, ev := range events {
		require.NoError(t, l.Update(ev))
	}
	require.True(t, l.Trained())

	require.NoError(t, l.Fit(events))
	assert.False(t, l.Trained())
	assert.True(t, l.Predict(events[0].Matchup()).Skipped)
}
