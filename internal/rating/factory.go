package rating

import (
	"fmt"
	"time"

	"github.com/yourusername/edge-backtester/internal/models"
)

// Model type names accepted by New
const (
	TypeElo         = "elo"
	TypeEnhancedElo = "enhanced_elo"
	TypeLogistic    = "logistic"
	TypeEnsemble    = "ensemble"
)

// EnsembleMember names a member model and its weight
type EnsembleMember struct {
	Type   string  `mapstructure:"type" json:"type"`
	Weight float64 `mapstructure:"weight" json:"weight"`
}

// ModelConfig selects and parameterizes a predictor
type ModelConfig struct {
	Type     string
	Elo      EloConfig
	Enhanced EnhancedConfig
	Logistic LogisticConfig
	Members  []EnsembleMember
	// Context feeds the enhanced model; nil means no injury or travel information.
	Context ContextProvider
}

// DefaultModelConfig returns a base Elo configuration
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Type:     TypeElo,
		Elo:      DefaultEloConfig(),
		Enhanced: DefaultEnhancedConfig(),
		Logistic: DefaultLogisticConfig(),
	}
}

// New builds a fresh predictor from configuration
func New(cfg ModelConfig) (Predictor, error) {
	switch cfg.Type {
	case TypeElo, "":
		return NewElo(cfg.Elo), nil
	case TypeEnhancedElo:
		return NewEnhancedElo(cfg.Elo, cfg.Enhanced, cfg.Context), nil
	case TypeLogistic:
		return NewLogistic(cfg.Elo, cfg.Logistic), nil
	case TypeEnsemble:
		if len(cfg.Members) == 0 {
			return nil, fmt.Errorf("ensemble has no members: %w", models.ErrUnknownModelType)
		}
		members := make([]Member, 0, len(cfg.Members))
		for _, spec := range cfg.Members {
			if spec.Type == TypeEnsemble {
				return nil, fmt.Errorf("nested ensemble: %w", models.ErrUnknownModelType)
			}
			sub := cfg
			sub.Type = spec.Type
			p, err := New(sub)
			if err != nil {
				return nil, err
			}
			members = append(members, Member{Predictor: p, Weight: spec.Weight})
		}
		return NewEnsemble(members...)
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownModelType, cfg.Type)
	}
}

// Warm replays events dated strictly before cutoff through Update, in the given order.
// It returns how many events were applied.
func Warm(p Predictor, events []models.Event, cutoff time.Time) (int, error) {
	applied := 0
	for _, ev := range events {
		if !ev.Date.Before(cutoff) {
			continue
		}
		if err := p.Update(ev); err != nil {
			return applied, fmt.Errorf("warm-up %s: %w", ev.ID, err)
		}
		applied++
	}
	return applied, nil
}
