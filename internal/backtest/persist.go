package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/edge-backtester/internal/models"
	"github.com/yourusername/edge-backtester/internal/repository"
)

// NewRunRecord flattens a result into the row stored by a wager sink
func NewRunRecord(r *Result, method string) (models.RunRecord, error) {
	params, err := json.Marshal(r.Parameters)
	if err != nil {
		return models.RunRecord{}, fmt.Errorf("failed to marshal parameters: %w", err)
	}
	metricsJSON, err := json.Marshal(r.Metrics)
	if err != nil {
		return models.RunRecord{}, fmt.Errorf("failed to marshal metrics: %w", err)
	}

	m := r.Metrics
	return models.RunRecord{
		ID:              r.RunID,
		Model:           r.Model,
		Strategy:        r.Strategy,
		Method:          method,
		ConfigHash:      r.ConfigHash,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		InitialBankroll: r.Bankroll.Initial,
		FinalBankroll:   r.Bankroll.Current,
		TotalReturn:     m.TotalReturn,
		ROI:             m.ROI,
		SharpeRatio:     m.SharpeRatio,
		MaxDrawdown:     m.MaxDrawdown,
		TotalWagers:     m.TotalWagers,
		WinRate:         m.WinRate,
		ProfitFactor:    m.ProfitFactor,
		Parameters:      params,
		Metrics:         metricsJSON,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// SaveResult hands a completed historical run and its settled wagers to the sink
func SaveResult(ctx context.Context, sink repository.WagerSink, r *Result) error {
	record, err := NewRunRecord(r, MethodHistorical)
	if err != nil {
		return err
	}

	settled := make([]models.Wager, 0, len(r.Wagers))
	for _, w := range r.Wagers {
		if w.IsSettled() {
			settled = append(settled, w)
		}
	}
	if err := sink.SaveRun(ctx, record, settled); err != nil {
		return fmt.Errorf("failed to persist run %s: %w", r.RunID, err)
	}
	return nil
}
