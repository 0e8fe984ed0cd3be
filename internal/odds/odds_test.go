package odds

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/edge-backtester/internal/models"
)

func TestToProbability(t *testing.T) {
	tests := []struct {
		odds float64
		want float64
	}{
		{odds: -110, want: 0.5238095},
		{odds: 100, want: 0.5},
		{odds: -100, want: 0.5},
		{odds: 150, want: 0.4},
		{odds: -300, want: 0.75},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ToProbability(tt.odds), 1e-6, "odds %v", tt.odds)
	}
}

func TestPayoutAndProfit(t *testing.T) {
	assert.InDelta(t, 190.91, Payout(100, -110), 0.005)
	assert.InDelta(t, 90.91, Profit(100, -110), 0.005)
	assert.InDelta(t, 250.0, Payout(100, 150), 1e-9)
	assert.InDelta(t, 150.0, Profit(100, 150), 1e-9)
}

func TestOddsProbabilityRoundTrip(t *testing.T) {
	for _, american := range []float64{-10000, -450, -110, -101, 100, 101, 120, 350, 2500, 10000} {
		p := ToProbability(american)
		back, err := ProbabilityToAmerican(p)
		require.NoError(t, err)
		if american == 100 {
			// +100 and -100 are the same price
			assert.InDelta(t, 100, math.Abs(back), 1)
			continue
		}
		assert.InDelta(t, american, back, 1, "odds %v", american)
		assert.InDelta(t, p, ToProbability(back), 1e-6)
	}
}

func TestProbabilityToAmericanRejectsBounds(t *testing.T) {
	for _, p := range []float64{0, 1, -0.1, 1.2, math.NaN()} {
		_, err := ProbabilityToAmerican(p)
		assert.Error(t, err, "p=%v", p)
	}
}

func TestDecimalConversions(t *testing.T) {
	assert.InDelta(t, 1.909091, ToDecimal(-110), 1e-6)
	assert.InDelta(t, 2.5, ToDecimal(150), 1e-9)

	american, err := DecimalToAmerican(2.5)
	require.NoError(t, err)
	assert.InDelta(t, 150, american, 1e-9)

	american, err = DecimalToAmerican(1.5)
	require.NoError(t, err)
	assert.InDelta(t, -200, american, 1e-9)

	_, err = DecimalToAmerican(1.0)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(-110))
	assert.NoError(t, Validate(10000))

	for _, bad := range []float64{0, 10001, -20000, math.Inf(1), math.NaN()} {
		err := Validate(bad)
		require.Error(t, err, "odds %v", bad)
		var verr *models.ValidationError
		assert.True(t, errors.As(err, &verr))
	}
}

func TestValidateProbability(t *testing.T) {
	assert.NoError(t, ValidateProbability(0))
	assert.NoError(t, ValidateProbability(1))
	assert.Error(t, ValidateProbability(1.01))
	assert.Error(t, ValidateProbability(-0.01))
}

func TestMarketVig(t *testing.T) {
	assert.InDelta(t, 0.047619, MarketVig(-110, -110), 1e-6)
}

func TestFloorCents(t *testing.T) {
	assert.Equal(t, 516.66, FloorCents(516.6665))
	assert.Equal(t, 13.75, FloorCents(55.00000000000001*0.25))
	assert.Equal(t, 13.75, FloorCents(13.749999999999998))
	assert.Equal(t, 50.0, FloorCents(50.004))
	assert.Equal(t, 0.0, FloorCents(0.009))
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 90.91, RoundCents(90.909090))
	assert.Equal(t, 13.75, RoundCents(13.75))
	assert.Equal(t, -45.0, RoundCents(-45.0))
}
