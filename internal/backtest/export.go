package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/edge-backtester/internal/models"
)

// Export is the JSON document written for a completed run
type Export struct {
	RunID       uuid.UUID              `json:"run_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Model       string                 `json:"model"`
	Strategy    string                 `json:"strategy"`
	Parameters  map[string]interface{} `json:"parameters"`
	ConfigHash  string                 `json:"config_hash"`
	Summary     RunSummary             `json:"summary"`
	Counts      Counts                 `json:"counts"`
	Metrics     Metrics                `json:"metrics"`
	Wagers      []models.Wager         `json:"wagers"`
	EquityCurve EquityCurve            `json:"equity_curve"`
	WalkForward *WalkForwardResult     `json:"walk_forward,omitempty"`
	Aggregated  *AggregatedResult      `json:"aggregated,omitempty"`
}

// RunSummary summarizes a backtest run
type RunSummary struct {
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	InitialBankroll float64   `json:"initial_bankroll"`
	FinalBankroll   float64   `json:"final_bankroll"`
	PeakBankroll    float64   `json:"peak_bankroll"`
	TotalWagers     int       `json:"total_wagers"`
	WarmUpEvents    int       `json:"warm_up_events"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// NewExport builds the export document for a run result
func NewExport(r *Result) Export {
	return Export{
		RunID:       r.RunID,
		GeneratedAt: time.Now().UTC(),
		Model:       r.Model,
		Strategy:    r.Strategy,
		Parameters:  r.Parameters,
		ConfigHash:  r.ConfigHash,
		Summary:     summarize(r),
		Counts:      r.Counts,
		Metrics:     r.Metrics,
		Wagers:      r.Wagers,
		EquityCurve: r.EquityCurve,
	}
}

func summarize(r *Result) RunSummary {
	state := r.Bankroll
	return RunSummary{
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		InitialBankroll: state.Initial,
		FinalBankroll:   state.Current,
		PeakBankroll:    state.Peak,
		TotalWagers:     len(r.Wagers),
		WarmUpEvents:    r.WarmUpEvents,
		DurationSeconds: r.Duration.Seconds(),
	}
}

// ExportToJSON writes export data to a JSON file, creating the directory if needed
func ExportToJSON(export Export, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}
