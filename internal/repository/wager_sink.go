package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/edge-backtester/internal/models"
)

const insertRun = `
	INSERT INTO backtest_runs (
		id, model, strategy, method, config_hash, start_date, end_date,
		initial_bankroll, final_bankroll, total_return, roi, sharpe_ratio, max_drawdown,
		total_wagers, win_rate, profit_factor, parameters, metrics, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
`

const insertWager = `
	INSERT INTO backtest_wagers (
		id, run_id, seq, event_id, event_date, bet_type, side, odds, line, stake,
		model_probability, edge, expected_value, bankroll_before, status,
		payout, profit, bankroll_after, settled_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
`

// PostgresWagerSink implements WagerSink for PostgreSQL
type PostgresWagerSink struct {
	db Transactor
}

// NewPostgresWagerSink creates a new wager sink
func NewPostgresWagerSink(db Transactor) (*PostgresWagerSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &PostgresWagerSink{db: db}, nil
}

// SaveRun writes the run row and every wager in a single batched transaction
func (s *PostgresWagerSink) SaveRun(ctx context.Context, run models.RunRecord, wagers []models.Wager) error {
	batch := buildBatch(run, wagers)

	return s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				if i == 0 {
					return fmt.Errorf("failed to save backtest run %s: %w", run.ID, err)
				}
				return fmt.Errorf("failed to save wager %d of run %s: %w", wagers[i-1].Seq, run.ID, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close batch: %w", err)
		}
		return nil
	})
}

// buildBatch queues the run insert followed by one insert per wager
func buildBatch(run models.RunRecord, wagers []models.Wager) *pgx.Batch {
	batch := &pgx.Batch{}
	batch.Queue(insertRun,
		run.ID, run.Model, run.Strategy, run.Method, run.ConfigHash, run.StartDate, run.EndDate,
		run.InitialBankroll, run.FinalBankroll, run.TotalReturn, run.ROI, run.SharpeRatio, run.MaxDrawdown,
		run.TotalWagers, run.WinRate, run.ProfitFactor, run.Parameters, run.Metrics, run.CreatedAt,
	)
	for _, w := range wagers {
		batch.Queue(insertWager,
			w.ID, run.ID, w.Seq, w.EventID, w.EventDate, string(w.BetType), string(w.Side), w.Odds, w.Line, w.Stake,
			w.ModelProbability, w.Edge, w.ExpectedValue, w.BankrollBefore, string(w.Status),
			w.Payout, w.Profit, w.BankrollAfter, w.SettledAt,
		)
	}
	return batch
}
