package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunRecord is the persisted summary of one completed backtest run
type RunRecord struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	Model           string          `db:"model" json:"model"`
	Strategy        string          `db:"strategy" json:"strategy"`
	Method          string          `db:"method" json:"method"`
	ConfigHash      string          `db:"config_hash" json:"config_hash"`
	StartDate       time.Time       `db:"start_date" json:"start_date"`
	EndDate         time.Time       `db:"end_date" json:"end_date"`
	InitialBankroll float64         `db:"initial_bankroll" json:"initial_bankroll"`
	FinalBankroll   float64         `db:"final_bankroll" json:"final_bankroll"`
	TotalReturn     float64         `db:"total_return" json:"total_return"`
	ROI             float64         `db:"roi" json:"roi"`
	SharpeRatio     float64         `db:"sharpe_ratio" json:"sharpe_ratio"`
	MaxDrawdown     float64         `db:"max_drawdown" json:"max_drawdown"`
	TotalWagers     int             `db:"total_wagers" json:"total_wagers"`
	WinRate         float64         `db:"win_rate" json:"win_rate"`
	ProfitFactor    float64         `db:"profit_factor" json:"profit_factor"`
	Parameters      json.RawMessage `db:"parameters" json:"parameters"`
	Metrics         json.RawMessage `db:"metrics" json:"metrics"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}
