// Package logger provides backtest-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// BacktestLogger provides dedicated logging for backtest runs.
type BacktestLogger struct {
	*logrus.Entry
}

// NewBacktestLogger creates a new backtest logger.
func NewBacktestLogger(baseLogger *logrus.Logger) *BacktestLogger {
	return &BacktestLogger{
		Entry: baseLogger.WithField("component", "backtest"),
	}
}

// WithRun tags every subsequent entry with the run id and model name.
func (bl *BacktestLogger) WithRun(runID, model string) *BacktestLogger {
	return &BacktestLogger{Entry: bl.WithFields(logrus.Fields{"run_id": runID, "model": model})}
}

// LogEventSkipped logs an event the model declined to price.
func (bl *BacktestLogger) LogEventSkipped(eventID, reason string) {
	bl.WithFields(logrus.Fields{
		"event_id": eventID,
		"reason":   reason,
	}).Debug("Event skipped by model")
}

// LogWagerRejected logs an opportunity that did not become a wager.
func (bl *BacktestLogger) LogWagerRejected(eventID, label, code, reason string, stake float64) {
	bl.WithFields(logrus.Fields{
		"event_id": eventID,
		"bet":      label,
		"code":     code,
		"reason":   reason,
		"stake":    stake,
	}).Debug("Wager rejected")
}

// LogWagerPlaced logs an accepted wager.
func (bl *BacktestLogger) LogWagerPlaced(eventID, label string, odds, stake, edge, ev float64) {
	bl.WithFields(logrus.Fields{
		"event_id": eventID,
		"bet":      label,
		"odds":     odds,
		"stake":    stake,
		"edge":     edge,
		"ev":       ev,
	}).Debug("Wager placed")
}

// LogUpdateFailure logs a model update that failed; the run continues.
func (bl *BacktestLogger) LogUpdateFailure(eventID string, err error) {
	bl.WithFields(logrus.Fields{
		"event_id": eventID,
	}).WithError(err).Warn("Model update failed")
}

// LogProgress logs periodic progress through the event list.
func (bl *BacktestLogger) LogProgress(processed, total, placed int, bankroll float64) {
	bl.WithFields(logrus.Fields{
		"processed": processed,
		"total":     total,
		"placed":    placed,
		"bankroll":  bankroll,
	}).Info("Backtest progress")
}

// LogRunSummary logs the one-line result of a finished run.
func (bl *BacktestLogger) LogRunSummary(events, placed, rejected int, finalBankroll, roi, maxDrawdown float64) {
	bl.WithFields(logrus.Fields{
		"events":          events,
		"wagers_placed":   placed,
		"wagers_rejected": rejected,
		"final_bankroll":  finalBankroll,
		"roi":             roi,
		"max_drawdown":    maxDrawdown,
	}).Info("Backtest complete")
}
