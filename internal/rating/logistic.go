package rating

import (
	"math"

	"github.com/yourusername/edge-backtester/internal/models"
)

// Logistic defaults
const (
	DefaultLearningRate = 0.1
	DefaultIterations   = 500
	DefaultL2           = 0.01
	DefaultMinTraining  = 200
	DefaultRetrainEvery = 100
)

// LogisticFeatures lists the model inputs in weight order
var LogisticFeatures = []string{"elo_diff", "rest_diff", "playoff"}

// LogisticConfig holds training parameters
type LogisticConfig struct {
	LearningRate float64
	Iterations   int
	L2           float64
	MinTraining  int
	RetrainEvery int
}

// DefaultLogisticConfig returns the standard training parameters
func DefaultLogisticConfig() LogisticConfig {
	return LogisticConfig{
		LearningRate: DefaultLearningRate,
		Iterations:   DefaultIterations,
		L2:           DefaultL2,
		MinTraining:  DefaultMinTraining,
		RetrainEvery: DefaultRetrainEvery,
	}
}

func (c LogisticConfig) withDefaults() LogisticConfig {
	if c.LearningRate <= 0 {
		c.LearningRate = DefaultLearningRate
	}
	if c.Iterations <= 0 {
		c.Iterations = DefaultIterations
	}
	if c.L2 < 0 {
		c.L2 = DefaultL2
	}
	if c.MinTraining <= 0 {
		c.MinTraining = DefaultMinTraining
	}
	if c.RetrainEvery <= 0 {
		c.RetrainEvery = DefaultRetrainEvery
	}
	return c
}

type sample struct {
	x [3]float64
	y float64
}

// Logistic is a regularized logistic regression over rating-derived features.
// It only learns from events it has already been updated with.
type Logistic struct {
	cfg     LogisticConfig
	elo     *Elo
	samples []sample

	trained    bool
	sinceTrain int
	weights    [3]float64
	bias       float64
	mean       [3]float64
	std        [3]float64
}

// NewLogistic creates a logistic model backed by its own base Elo
func NewLogistic(eloCfg EloConfig, cfg LogisticConfig) *Logistic {
	return &Logistic{
		cfg: cfg.withDefaults(),
		elo: NewElo(eloCfg),
	}
}

// Name returns the model name
func (l *Logistic) Name() string {
	return "logistic"
}

// Trained reports whether the model has fitted weights
func (l *Logistic) Trained() bool {
	return l.trained
}

// Weights returns the fitted coefficients on standardized features and the intercept
func (l *Logistic) Weights() ([]float64, float64) {
	return []float64{l.weights[0], l.weights[1], l.weights[2]}, l.bias
}

// Fit resets the model. History must be at least MinTraining long.
func (l *Logistic) Fit(history []models.Event) error {
	if len(history) < l.cfg.MinTraining {
		return &models.InsufficientDataError{Model: l.Name(), Required: l.cfg.MinTraining, Got: len(history)}
	}
	if err := l.elo.Fit(history); err != nil {
		return err
	}
	l.samples = nil
	l.trained = false
	l.sinceTrain = 0
	l.weights = [3]float64{}
	l.bias = 0
	return nil
}

// Predict returns the fitted probability, or skips while warming up
func (l *Logistic) Predict(mu models.Matchup) Prediction {
	if !l.trained {
		return Skip("warming up (%d/%d samples)", len(l.samples), l.cfg.MinTraining)
	}
	x, ok := l.features(mu)
	if !ok {
		return Skip("no rating for %s or %s", mu.HomeTeam, mu.AwayTeam)
	}
	return Ok(sigmoid(l.score(l.standardize(x))))
}

// Update records pre-update features for the event, updates the base ratings and retrains
// on schedule
func (l *Logistic) Update(ev models.Event) error {
	x, ok := l.features(ev.Matchup())
	if err := l.elo.Update(ev); err != nil {
		return err
	}
	if !ok {
		return nil
	}
	y := 0.0
	if ev.HomeWon() {
		y = 1.0
	}
	l.samples = append(l.samples, sample{x: x, y: y})
	l.sinceTrain++

	switch {
	case !l.trained && len(l.samples) >= l.cfg.MinTraining:
		l.train()
	case l.trained && l.sinceTrain >= l.cfg.RetrainEvery:
		l.train()
	}
	return nil
}

func (l *Logistic) features(mu models.Matchup) ([3]float64, bool) {
	l.elo.advanceSeason(mu.Season)
	home, ok := l.elo.lookup(mu.HomeTeam)
	if !ok {
		return [3]float64{}, false
	}
	away, ok := l.elo.lookup(mu.AwayTeam)
	if !ok {
		return [3]float64{}, false
	}
	playoff := 0.0
	if mu.IsPlayoff {
		playoff = 1.0
	}
	return [3]float64{
		home - away + l.elo.cfg.HomeAdvantage,
		float64(mu.HomeRestDays - mu.AwayRestDays),
		playoff,
	}, true
}

// train runs batch gradient descent over the full sample buffer
func (l *Logistic) train() {
	n := float64(len(l.samples))
	for j := 0; j < 3; j++ {
		sum, sq := 0.0, 0.0
		for _, s := range l.samples {
			sum += s.x[j]
		}
		l.mean[j] = sum / n
		for _, s := range l.samples {
			d := s.x[j] - l.mean[j]
			sq += d * d
		}
		l.std[j] = math.Sqrt(sq / n)
		if l.std[j] == 0 {
			l.std[j] = 1
		}
	}

	xs := make([][3]float64, len(l.samples))
	for i, s := range l.samples {
		xs[i] = l.standardize(s.x)
	}

	for iter := 0; iter < l.cfg.Iterations; iter++ {
		var grad [3]float64
		gradBias := 0.0
		for i, s := range l.samples {
			diff := sigmoid(l.score(xs[i])) - s.y
			for j := 0; j < 3; j++ {
				grad[j] += diff * xs[i][j]
			}
			gradBias += diff
		}
		for j := 0; j < 3; j++ {
			l.weights[j] -= l.cfg.LearningRate * (grad[j]/n + l.cfg.L2*l.weights[j])
		}
		l.bias -= l.cfg.LearningRate * gradBias / n
	}
	l.trained = true
	l.sinceTrain = 0
}

func (l *Logistic) standardize(x [3]float64) [3]float64 {
	var out [3]float64
	for j := range x {
		out[j] = (x[j] - l.mean[j]) / l.std[j]
	}
	return out
}

func (l *Logistic) score(x [3]float64) float64 {
	z := l.bias
	for j := range x {
		z += l.weights[j] * x[j]
	}
	return z
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
