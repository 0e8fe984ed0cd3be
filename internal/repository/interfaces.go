// Package repository persists completed backtest runs.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/edge-backtester/internal/models"
)

// WagerSink stores a run summary together with its settled wagers
type WagerSink interface {
	SaveRun(ctx context.Context, run models.RunRecord, wagers []models.Wager) error
}

// Transactor runs a function inside a database transaction
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error
}
