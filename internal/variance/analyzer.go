// Package variance quantifies the spread of outcomes a wager set can produce: Monte Carlo
// profit distributions, risk of ruin and losing-streak expectations.
package variance

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/edge-backtester/internal/config"
	"github.com/yourusername/edge-backtester/internal/logger"
	"github.com/yourusername/edge-backtester/internal/metrics"
	"github.com/yourusername/edge-backtester/internal/models"
	"github.com/yourusername/edge-backtester/internal/odds"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSimulations = 10000
	// chunkSize is the number of trials sharing one seeded generator. Changing it changes
	// every seeded result.
	chunkSize = 1000
	// unbounded stands in for an infinite coefficient of variation
	unbounded = 999.0
)

// Config holds Monte Carlo parameters
type Config struct {
	Simulations int
	Seed        int64
	// Workers above 1 runs chunks concurrently; results are identical either way.
	Workers int
}

// FromConfig maps the application variance section
func FromConfig(cfg config.VarianceConfig) Config {
	return Config{Simulations: cfg.Simulations, Seed: cfg.Seed, Workers: cfg.Workers}
}

// WagerSpec is one independent wager to simulate
type WagerSpec struct {
	Probability float64 `json:"probability"`
	Odds        float64 `json:"odds"`
	Stake       float64 `json:"stake"`
}

// Validate rejects probabilities outside [0,1], invalid odds and negative stakes
func (w WagerSpec) Validate() error {
	if err := odds.ValidateProbability(w.Probability); err != nil {
		return err
	}
	if err := odds.Validate(w.Odds); err != nil {
		return err
	}
	if math.IsNaN(w.Stake) || w.Stake < 0 {
		return models.NewValidationError("stake", fmt.Sprint(w.Stake), "must be non-negative")
	}
	return nil
}

// ExpectedProfit is the analytic expected profit of the wager
func (w WagerSpec) ExpectedProfit() float64 {
	return w.Probability*odds.Profit(w.Stake, w.Odds) - (1-w.Probability)*w.Stake
}

// SpecsFromWagers converts a wager history into simulation inputs. Cancelled wagers are dropped.
func SpecsFromWagers(wagers []models.Wager) []WagerSpec {
	specs := make([]WagerSpec, 0, len(wagers))
	for _, w := range wagers {
		if w.Status == models.WagerStatusCancelled {
			continue
		}
		specs = append(specs, WagerSpec{Probability: w.ModelProbability, Odds: w.Odds, Stake: w.Stake})
	}
	return specs
}

// Distribution summarises the simulated total profit across trials
type Distribution struct {
	Simulations            int     `json:"simulations"`
	Wagers                 int     `json:"wagers"`
	Mean                   float64 `json:"mean"`
	Median                 float64 `json:"median"`
	StdDev                 float64 `json:"std_dev"`
	P5                     float64 `json:"p5"`
	P25                    float64 `json:"p25"`
	P75                    float64 `json:"p75"`
	P95                    float64 `json:"p95"`
	ProbProfit             float64 `json:"prob_profit"`
	ProbLoss               float64 `json:"prob_loss"`
	ProbBreakEven          float64 `json:"prob_break_even"`
	Worst                  float64 `json:"worst"`
	Best                   float64 `json:"best"`
	AnalyticEV             float64 `json:"analytic_ev"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
	TotalStake             float64 `json:"total_stake"`
}

// Analyzer runs seeded Monte Carlo simulations
type Analyzer struct {
	cfg    Config
	logger *logrus.Logger
}

// NewAnalyzer creates an analyzer. The seed is always taken from cfg.
func NewAnalyzer(cfg Config, log *logrus.Logger) *Analyzer {
	if cfg.Simulations <= 0 {
		cfg.Simulations = DefaultSimulations
	}
	return &Analyzer{cfg: cfg, logger: logger.OrDiscard(log)}
}

// Config returns the effective configuration
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Simulate draws one Bernoulli outcome per wager per trial and summarises the trial totals
func (a *Analyzer) Simulate(ctx context.Context, wagers []WagerSpec) (Distribution, error) {
	if len(wagers) == 0 {
		return Distribution{}, models.NewValidationError("wagers", "0", "at least one wager is required")
	}
	for i, w := range wagers {
		if err := w.Validate(); err != nil {
			return Distribution{}, fmt.Errorf("wager %d: %w", i, err)
		}
	}

	started := time.Now()
	totals, err := a.run(ctx, wagers)
	if err != nil {
		metrics.RecordBacktestRun(metrics.MethodMonteCarlo, metrics.StatusFailure, time.Since(started).Seconds())
		return Distribution{}, err
	}
	dist := summarise(totals, wagers)
	metrics.RecordBacktestRun(metrics.MethodMonteCarlo, metrics.StatusSuccess, time.Since(started).Seconds())

	a.logger.WithFields(logrus.Fields{
		"simulations": dist.Simulations,
		"wagers":      dist.Wagers,
		"seed":        a.cfg.Seed,
		"mean":        dist.Mean,
		"prob_profit": dist.ProbProfit,
	}).Debug("Monte Carlo simulation complete")
	return dist, nil
}

// run fills one total per trial. Chunk k always uses the generator seeded seed+k.
func (a *Analyzer) run(ctx context.Context, wagers []WagerSpec) ([]float64, error) {
	n := a.cfg.Simulations
	totals := make([]float64, n)
	chunks := (n + chunkSize - 1) / chunkSize

	profits := make([]float64, len(wagers))
	for i, w := range wagers {
		profits[i] = odds.Profit(w.Stake, w.Odds)
	}

	simulateChunk := func(ctx context.Context, k int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rng := rand.New(rand.NewSource(a.cfg.Seed + int64(k)))
		lo := k * chunkSize
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}
		for t := lo; t < hi; t++ {
			total := 0.0
			for i, w := range wagers {
				if rng.Float64() < w.Probability {
					total += profits[i]
				} else {
					total -= w.Stake
				}
			}
			totals[t] = total
		}
		return nil
	}

	if a.cfg.Workers <= 1 {
		for k := 0; k < chunks; k++ {
			if err := simulateChunk(ctx, k); err != nil {
				return nil, err
			}
		}
		return totals, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for k := 0; k < chunks; k++ {
		k := k
		g.Go(func() error {
			return simulateChunk(gctx, k)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return totals, nil
}

func summarise(totals []float64, wagers []WagerSpec) Distribution {
	sorted := append([]float64{}, totals...)
	sort.Float64s(sorted)

	d := Distribution{
		Simulations: len(totals),
		Wagers:      len(wagers),
		Median:      percentile(sorted, 0.50),
		P5:          percentile(sorted, 0.05),
		P25:         percentile(sorted, 0.25),
		P75:         percentile(sorted, 0.75),
		P95:         percentile(sorted, 0.95),
		Worst:       sorted[0],
		Best:        sorted[len(sorted)-1],
	}
	d.Mean, d.StdDev = meanStd(totals)

	var profit, loss, even int
	for _, v := range totals {
		switch {
		case v > 0:
			profit++
		case v < 0:
			loss++
		default:
			even++
		}
	}
	n := float64(len(totals))
	d.ProbProfit = float64(profit) / n
	d.ProbLoss = float64(loss) / n
	d.ProbBreakEven = float64(even) / n

	for _, w := range wagers {
		d.AnalyticEV += w.ExpectedProfit()
		d.TotalStake += w.Stake
	}
	if d.Mean != 0 {
		d.CoefficientOfVariation = math.Abs(d.StdDev / d.Mean)
	} else {
		d.CoefficientOfVariation = unbounded
	}
	return d
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// percentile interpolates linearly between the closest ranks of sorted values
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
