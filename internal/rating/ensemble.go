package rating

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yourusername/edge-backtester/internal/models"
)

// Member is one weighted model inside an Ensemble
type Member struct {
	Predictor Predictor
	Weight    float64
}

// Ensemble averages member probabilities with normalized weights
type Ensemble struct {
	members []Member
}

// NewEnsemble validates and normalizes member weights
func NewEnsemble(members ...Member) (*Ensemble, error) {
	if len(members) == 0 {
		return nil, errors.New("ensemble needs at least one member")
	}
	total := 0.0
	for _, m := range members {
		if m.Weight < 0 {
			return nil, models.NewValidationError("weight", fmt.Sprint(m.Weight), "must be non-negative")
		}
		total += m.Weight
	}
	if total == 0 {
		return nil, models.NewValidationError("weight", "0", "ensemble weights sum to zero")
	}
	normalized := make([]Member, len(members))
	for i, m := range members {
		normalized[i] = Member{Predictor: m.Predictor, Weight: m.Weight / total}
	}
	return &Ensemble{members: normalized}, nil
}

// Name lists the members
func (e *Ensemble) Name() string {
	names := make([]string, len(e.members))
	for i, m := range e.members {
		names[i] = m.Predictor.Name()
	}
	return "ensemble(" + strings.Join(names, ",") + ")"
}

// Members returns the normalized members
func (e *Ensemble) Members() []Member {
	return append([]Member(nil), e.members...)
}

// Fit fits every member in order and stops at the first failure
func (e *Ensemble) Fit(history []models.Event) error {
	for _, m := range e.members {
		if err := m.Predictor.Fit(history); err != nil {
			return fmt.Errorf("fit %s: %w", m.Predictor.Name(), err)
		}
	}
	return nil
}

// Predict returns the weighted mean of member probabilities. Any skipping member skips the ensemble.
func (e *Ensemble) Predict(mu models.Matchup) Prediction {
	sum := 0.0
	for _, m := range e.members {
		p := m.Predictor.Predict(mu)
		if p.Skipped {
			return Skip("%s: %s", m.Predictor.Name(), p.Reason)
		}
		sum += p.HomeWinProbability * m.Weight
	}
	return Ok(sum)
}

// Update forwards the completed event to every member. Every member is updated even when an
// earlier one fails; the first failure is returned.
func (e *Ensemble) Update(ev models.Event) error {
	var first error
	for _, m := range e.members {
		if err := m.Predictor.Update(ev); err != nil && first == nil {
			first = fmt.Errorf("update %s: %w", m.Predictor.Name(), err)
		}
	}
	return first
}
