package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/edge-backtester/internal/models"
)

// MockWagerSink mocks the run persistence collaborator
type MockWagerSink struct {
	mock.Mock
}

func (m *MockWagerSink) SaveRun(ctx context.Context, run models.RunRecord, wagers []models.Wager) error {
	args := m.Called(ctx, run, wagers)
	return args.Error(0)
}

func completedRun(t *testing.T) *Result {
	t.Helper()
	engine := newTestEngine(t, testConfig(), &scriptedModel{prob: 0.65})
	result, err := engine.Run(context.Background(), threeGames())
	require.NoError(t, err)
	require.NotEmpty(t, result.Wagers)
	return result
}

func TestSaveResult(t *testing.T) {
	result := completedRun(t)
	// a pending straggler must not be persisted
	result.Wagers = append(result.Wagers, models.Wager{Seq: 99, Status: models.WagerStatusPending})

	sink := new(MockWagerSink)
	sink.On("SaveRun", mock.Anything,
		mock.MatchedBy(func(r models.RunRecord) bool {
			return r.ID == result.RunID && r.Method == MethodHistorical && r.TotalWagers == result.Metrics.TotalWagers
		}),
		mock.MatchedBy(func(ws []models.Wager) bool {
			for _, w := range ws {
				if !w.IsSettled() {
					return false
				}
			}
			return len(ws) == len(result.Wagers)-1
		}),
	).Return(nil)

	require.NoError(t, SaveResult(context.Background(), sink, result))
	sink.AssertExpectations(t)
}

func TestSaveResultWrapsSinkError(t *testing.T) {
	result := completedRun(t)
	sink := new(MockWagerSink)
	sink.On("SaveRun", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	err := SaveResult(context.Background(), sink, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), result.RunID.String())
}

func TestNewRunRecord(t *testing.T) {
	result := completedRun(t)

	record, err := NewRunRecord(result, MethodWalkForward)
	require.NoError(t, err)
	assert.Equal(t, MethodWalkForward, record.Method)
	assert.Equal(t, result.Bankroll.Current, record.FinalBankroll)
	assert.Equal(t, result.Model, record.Model)
	assert.JSONEq(t, string(mustJSON(t, result.Metrics)), string(record.Metrics))
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
