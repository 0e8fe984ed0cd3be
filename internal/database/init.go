package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/edge-backtester/internal/config"
)

// Schema creates the tables the wager sink writes to
const Schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id               UUID PRIMARY KEY,
	model            TEXT NOT NULL,
	strategy         TEXT NOT NULL,
	method           TEXT NOT NULL,
	config_hash      TEXT NOT NULL,
	start_date       TIMESTAMPTZ,
	end_date         TIMESTAMPTZ,
	initial_bankroll NUMERIC(14,2) NOT NULL,
	final_bankroll   NUMERIC(14,2) NOT NULL,
	total_return     DOUBLE PRECISION NOT NULL,
	roi              DOUBLE PRECISION NOT NULL,
	sharpe_ratio     DOUBLE PRECISION NOT NULL,
	max_drawdown     DOUBLE PRECISION NOT NULL,
	total_wagers     INTEGER NOT NULL,
	win_rate         DOUBLE PRECISION NOT NULL,
	profit_factor    DOUBLE PRECISION NOT NULL,
	parameters       JSONB,
	metrics          JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS backtest_wagers (
	id                UUID PRIMARY KEY,
	run_id            UUID NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
	seq               INTEGER NOT NULL,
	event_id          TEXT NOT NULL,
	event_date        TIMESTAMPTZ NOT NULL,
	bet_type          TEXT NOT NULL,
	side              TEXT NOT NULL,
	odds              DOUBLE PRECISION NOT NULL,
	line              DOUBLE PRECISION NOT NULL,
	stake             NUMERIC(14,2) NOT NULL,
	model_probability DOUBLE PRECISION NOT NULL,
	edge              DOUBLE PRECISION NOT NULL,
	expected_value    DOUBLE PRECISION NOT NULL,
	bankroll_before   NUMERIC(14,2) NOT NULL,
	status            TEXT NOT NULL,
	payout            NUMERIC(14,2),
	profit            NUMERIC(14,2),
	bankroll_after    NUMERIC(14,2),
	settled_at        TIMESTAMPTZ,
	UNIQUE (run_id, seq)
);
`

// Initialize creates a connection pool and makes sure the sink tables exist
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if log != nil {
		log.WithFields(logrus.Fields{
			"host":     cfg.Database.Host,
			"database": cfg.Database.Name,
		}).Info("Database initialized")
	}
	return db, nil
}
