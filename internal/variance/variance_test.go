package variance

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/edge-backtester/internal/models"
)

func repeat(spec WagerSpec, n int) []WagerSpec {
	out := make([]WagerSpec, n)
	for i := range out {
		out[i] = spec
	}
	return out
}

func TestSimulateIdenticalAcrossWorkerCounts(t *testing.T) {
	wagers := repeat(WagerSpec{Probability: 0.55, Odds: -110, Stake: 100}, 25)

	sequential, err := NewAnalyzer(Config{Simulations: 5500, Seed: 42, Workers: 1}, nil).Simulate(context.Background(), wagers)
	require.NoError(t, err)
	parallel, err := NewAnalyzer(Config{Simulations: 5500, Seed: 42, Workers: 4}, nil).Simulate(context.Background(), wagers)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
}

func TestSimulateSeedChangesResult(t *testing.T) {
	wagers := repeat(WagerSpec{Probability: 0.5, Odds: 100, Stake: 100}, 10)

	a, err := NewAnalyzer(Config{Simulations: 2000, Seed: 1}, nil).Simulate(context.Background(), wagers)
	require.NoError(t, err)
	b, err := NewAnalyzer(Config{Simulations: 2000, Seed: 2}, nil).Simulate(context.Background(), wagers)
	require.NoError(t, err)

	assert.NotEqual(t, a.Mean, b.Mean)
}

func TestSimulateConvergesToAnalyticEV(t *testing.T) {
	wagers := repeat(WagerSpec{Probability: 0.6, Odds: 100, Stake: 100}, 50)

	dist, err := NewAnalyzer(Config{Simulations: 10000, Seed: 42}, nil).Simulate(context.Background(), wagers)
	require.NoError(t, err)

	assert.InDelta(t, 1000.0, dist.AnalyticEV, 1e-9)
	assert.InEpsilon(t, dist.AnalyticEV, dist.Mean, 0.03)
	assert.Equal(t, 10000, dist.Simulations)
	assert.Equal(t, 50, dist.Wagers)
	assert.Equal(t, 5000.0, dist.TotalStake)
}

func TestSimulateDistributionShape(t *testing.T) {
	wagers := []WagerSpec{
		{Probability: 0.613, Odds: 116, Stake: 500},
		{Probability: 0.760, Odds: -114, Stake: 500},
		{Probability: 0.785, Odds: -110, Stake: 500},
		{Probability: 0.851, Odds: -110, Stake: 500},
		{Probability: 0.685, Odds: 172, Stake: 500},
	}

	d, err := NewAnalyzer(Config{Simulations: 10000, Seed: 7}, nil).Simulate(context.Background(), wagers)
	require.NoError(t, err)

	assert.LessOrEqual(t, d.Worst, d.P5)
	assert.LessOrEqual(t, d.P5, d.P25)
	assert.LessOrEqual(t, d.P25, d.Median)
	assert.LessOrEqual(t, d.Median, d.P75)
	assert.LessOrEqual(t, d.P75, d.P95)
	assert.LessOrEqual(t, d.P95, d.Best)
	assert.InDelta(t, 1.0, d.ProbProfit+d.ProbLoss+d.ProbBreakEven, 1e-9)
	assert.Greater(t, d.StdDev, 0.0)
	assert.Greater(t, d.ProbProfit, d.ProbLoss)
}

func TestSimulateCertainWager(t *testing.T) {
	d, err := NewAnalyzer(Config{Simulations: 100, Seed: 3}, nil).Simulate(context.Background(),
		[]WagerSpec{{Probability: 1, Odds: 100, Stake: 100}})
	require.NoError(t, err)

	assert.InDelta(t, 100.0, d.Mean, 1e-9)
	assert.InDelta(t, 0.0, d.StdDev, 1e-9)
	assert.Equal(t, 1.0, d.ProbProfit)
	assert.Equal(t, 0.0, d.CoefficientOfVariation)
}

func TestSimulateZeroMeanReportsUnboundedCV(t *testing.T) {
	d, err := NewAnalyzer(Config{Simulations: 10, Seed: 3}, nil).Simulate(context.Background(),
		[]WagerSpec{{Probability: 0.5, Odds: 100, Stake: 0}})
	require.NoError(t, err)

	assert.Equal(t, 1.0, d.ProbBreakEven)
	assert.Equal(t, unbounded, d.CoefficientOfVariation)
}

func TestSimulateValidation(t *testing.T) {
	a := NewAnalyzer(Config{Simulations: 10, Seed: 1}, nil)
	tests := []struct {
		name   string
		wagers []WagerSpec
	}{
		{"empty", nil},
		{"probability above one", []WagerSpec{{Probability: 1.5, Odds: -110, Stake: 10}}},
		{"zero odds", []WagerSpec{{Probability: 0.5, Odds: 0, Stake: 10}}},
		{"negative stake", []WagerSpec{{Probability: 0.5, Odds: -110, Stake: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Simulate(context.Background(), tt.wagers)
			require.Error(t, err)
			var ve *models.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestSimulateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 3} {
		_, err := NewAnalyzer(Config{Simulations: 3000, Seed: 1, Workers: workers}, nil).
			Simulate(ctx, []WagerSpec{{Probability: 0.5, Odds: 100, Stake: 10}})
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestNewAnalyzerDefaults(t *testing.T) {
	assert.Equal(t, DefaultSimulations, NewAnalyzer(Config{Seed: 9}, nil).Config().Simulations)
}

func TestRiskOfRuin(t *testing.T) {
	t.Run("no edge is certain ruin", func(t *testing.T) {
		r := RiskOfRuin(1000, 100, 0.5, -110)
		assert.Equal(t, 1.0, r.RiskOfRuin)
		assert.Equal(t, RiskHigh, r.RiskLevel)
		assert.True(t, r.RuinLikely)
		assert.Equal(t, 0.0, r.KellyFraction)
	})

	t.Run("small edge uses gamblers ruin", func(t *testing.T) {
		r := RiskOfRuin(1000, 100, 0.55, -110)
		assert.InDelta(t, 0.05, r.EdgePerBet, 1e-9)
		assert.InDelta(t, 10.0, r.BankrollUnits, 1e-9)
		assert.InDelta(t, math.Pow(0.95/1.05, 10), r.RiskOfRuin, 1e-9)
		assert.InDelta(t, 0.055, r.KellyFraction, 1e-9)
		assert.InDelta(t, 1000*0.055*0.25, r.SafeBetSize, 1e-9)
		assert.False(t, r.RuinLikely)
		assert.Equal(t, RiskHigh, r.RiskLevel)
	})

	t.Run("large edge falls back to constant", func(t *testing.T) {
		r := RiskOfRuin(1000, 100, 0.7, 100)
		assert.InDelta(t, 0.4, r.EdgePerBet, 1e-9)
		assert.Equal(t, largeEdgeRuin, r.RiskOfRuin)
		assert.Equal(t, RiskLow, r.RiskLevel)
	})

	t.Run("deep bankroll is low risk", func(t *testing.T) {
		r := RiskOfRuin(100000, 100, 0.55, -110)
		assert.Less(t, r.RiskOfRuin, 0.01)
		assert.Equal(t, RiskLow, r.RiskLevel)
	})

	t.Run("zero bet", func(t *testing.T) {
		assert.Equal(t, 1.0, RiskOfRuin(1000, 0, 0.6, 100).RiskOfRuin)
	})
}

func TestRiskOfRuinMedianBetsToRuin(t *testing.T) {
	r := RiskOfRuinPayoffs(1000, 100, 0.4, 100, 100)
	require.True(t, r.RuinLikely)
	assert.InDelta(t, -0.2, r.EdgePerBet, 1e-9)
	assert.InDelta(t, 10/(2*0.2), r.MedianBetsToRuin, 1e-9)
}

func TestLosingStreaks(t *testing.T) {
	a := LosingStreaks(0.5, 100)

	assert.InDelta(t, math.Log(100)/math.Log(2), a.ExpectedMaxStreak, 1e-9)
	require.Len(t, a.Streaks, len(StreakLengths))

	three := a.Streaks[0]
	assert.Equal(t, 3, three.Length)
	assert.InDelta(t, 0.125, three.ProbStreak, 1e-12)
	assert.InDelta(t, 1-math.Pow(0.875, 98), three.ProbOccurs, 1e-12)

	for i := 1; i < len(a.Streaks); i++ {
		assert.Less(t, a.Streaks[i].ProbOccurs, a.Streaks[i-1].ProbOccurs)
	}
}

func TestLosingStreaksEdgeCases(t *testing.T) {
	assert.Equal(t, 0.0, LosingStreaks(1, 100).ExpectedMaxStreak)
	assert.Equal(t, 50.0, LosingStreaks(0, 50).ExpectedMaxStreak)

	short := LosingStreaks(0.5, 4)
	for _, s := range short.Streaks {
		if s.Length > 4 {
			assert.Equal(t, 0.0, s.ProbOccurs)
		}
	}
}

func TestVarianceDrag(t *testing.T) {
	assert.InDelta(t, 0.5, VarianceDrag(0.5, 100), 1e-9)
	assert.Equal(t, 0.0, VarianceDrag(0, 100))
	assert.Greater(t, VarianceDrag(0.55, -110), 0.0)
}

func TestReport(t *testing.T) {
	wagers := repeat(WagerSpec{Probability: 0.55, Odds: -110, Stake: 100}, 20)

	r, err := NewAnalyzer(Config{Simulations: 1000, Seed: 11}, nil).Report(context.Background(), wagers, 1000, 0)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, r.Bankroll)
	assert.InDelta(t, 100.0, r.AverageStake, 1e-9)
	assert.InDelta(t, 0.55, r.AverageProb, 1e-9)
	assert.InDelta(t, -110.0, r.AverageOdds, 1e-6)
	assert.Equal(t, 20, r.Streaks.Bets)
	assert.InDelta(t, RiskOfRuin(1000, 100, 0.55, -110).RiskOfRuin, r.Ruin.RiskOfRuin, 1e-6)
	assert.InDelta(t, 100.0, r.Distribution.AnalyticEV, 1e-6)
}

func TestSpecsFromWagers(t *testing.T) {
	wagers := []models.Wager{
		{ModelProbability: 0.6, Odds: 120, Stake: 50, Status: models.WagerStatusWon},
		{ModelProbability: 0.5, Odds: -110, Stake: 20, Status: models.WagerStatusCancelled},
		{ModelProbability: 0.55, Odds: -105, Stake: 30, Status: models.WagerStatusPending},
	}

	specs := SpecsFromWagers(wagers)
	require.Len(t, specs, 2)
	assert.Equal(t, WagerSpec{Probability: 0.6, Odds: 120, Stake: 50}, specs[0])
	assert.Equal(t, 30.0, specs[1].Stake)
}
