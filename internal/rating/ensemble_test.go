package rating

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/edge-backtester/internal/models"
)

type fixedPredictor struct {
	name    string
	p       float64
	skip    bool
	fitErr  error
	updates int
}

func (f *fixedPredictor) Name() string { return f.name }

func (f *fixedPredictor) Fit([]models.Event) error { return f.fitErr }

func (f *fixedPredictor) Predict(models.Matchup) Prediction {
	if f.skip {
		return Skip("not ready")
	}
	return Ok(f.p)
}

func (f *fixedPredictor) Update(models.Event) error {
	f.updates++
	return nil
}

func TestEnsembleWeightedMean(t *testing.T) {
	a := &fixedPredictor{name: "a", p: 0.6}
	b := &fixedPredictor{name: "b", p: 0.4}
	ens, err := NewEnsemble(Member{Predictor: a, Weight: 3}, Member{Predictor: b, Weight: 1})
	require.NoError(t, err)

	assert.Equal(t, "ensemble(a,b)", ens.Name())
	members := ens.Members()
	assert.InDelta(t, 0.75, members[0].Weight, 1e-12)
	assert.InDelta(t, 0.25, members[1].Weight, 1e-12)

	p := ens.Predict(models.Matchup{})
	require.False(t, p.Skipped)
	assert.InDelta(t, 0.55, p.HomeWinProbability, 1e-12)

	require.NoError(t, ens.Update(models.Event{}))
	assert.Equal(t, 1, a.updates)
	assert.Equal(t, 1, b.updates)
}

func TestEnsembleRejectsZeroWeights(t *testing.T) {
	_, err := NewEnsemble(Member{Predictor: &fixedPredictor{name: "a"}, Weight: 0})
	var ve *models.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = NewEnsemble(Member{Predictor: &fixedPredictor{name: "a"}, Weight: -1}, Member{Predictor: &fixedPredictor{name: "b"}, Weight: 2})
	assert.True(t, errors.As(err, &ve))

	_, err = NewEnsemble()
	assert.Error(t, err)
}

func TestEnsembleSkipsWhenAnyMemberSkips(t *testing.T) {
	ens, err := NewEnsemble(
		Member{Predictor: &fixedPredictor{name: "a", p: 0.6}, Weight: 1},
		Member{Predictor: &fixedPredictor{name: "b", skip: true}, Weight: 1},
	)
	require.NoError(t, err)
	p := ens.Predict(models.Matchup{})
	assert.True(t, p.Skipped)
	assert.Contains(t, p.Reason, "b")
}

func TestEnsembleFitWrapsMemberError(t *testing.T) {
	ide := &models.InsufficientDataError{Model: "b", Required: 10, Got: 1}
	ens, err := NewEnsemble(
		Member{Predictor: &fixedPredictor{name: "a"}, Weight: 1},
		Member{Predictor: &fixedPredictor{name: "b", fitErr: ide}, Weight: 1},
	)
	require.NoError(t, err)

	err = ens.Fit(nil)
	var got *models.InsufficientDataError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 10, got.Required)
}

func TestNewModelTypes(t *testing.T) {
	cfg := DefaultModelConfig()
	for _, typ := range []string{TypeElo, TypeEnhancedElo, TypeLogistic} {
		cfg.Type = typ
		p, err := New(cfg)
		require.NoError(t, err, typ)
		assert.Equal(t, typ, p.Name())
	}

	cfg.Type = TypeEnsemble
	cfg.Members = []EnsembleMember{{Type: TypeElo, Weight: 0.7}, {Type: TypeEnhancedElo, Weight: 0.3}}
	p, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "ensemble(elo,enhanced_elo)", p.Name())

	cfg.Members = []EnsembleMember{{Type: TypeEnsemble, Weight: 1}}
	_, err = New(cfg)
	assert.ErrorIs(t, err, models.ErrUnknownModelType)

	cfg.Type = "neural"
	_, err = New(cfg)
	assert.ErrorIs(t, err, models.ErrUnknownModelType)
}

func TestWarmAppliesOnlyEarlierEvents(t *testing.T) {
	elo := NewElo(DefaultEloConfig())
	events := []models.Event{
		game(1, 2024, "BOS", "NYK", 100, 90),
		game(2, 2024, "BOS", "NYK", 100, 90),
		game(3, 2024, "BOS", "NYK", 100, 90),
	}
	cutoff := baseDate.AddDate(0, 0, 3)
	n, err := Warm(elo, events, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, elo.History(), 2)

	n, err = Warm(NewElo(DefaultEloConfig()), events, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
