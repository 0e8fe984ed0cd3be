// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogWagerPlaced records a wager entering the ledger.
func (al *AuditLogger) LogWagerPlaced(wagerID string, seq int, eventID, betType, side string, stake, odds, bankrollBefore float64, eventDate time.Time) {
	al.WithFields(logrus.Fields{
		"wager_id":        wagerID,
		"seq":             seq,
		"event_id":        eventID,
		"bet_type":        betType,
		"side":            side,
		"stake":           stake,
		"odds":            odds,
		"bankroll_before": bankrollBefore,
		"event_date":      eventDate.Format("2006-01-02"),
	}).Info("Wager placement recorded")
}

// LogWagerSettled records a wager leaving the pending state.
func (al *AuditLogger) LogWagerSettled(wagerID, status string, payout, profit, bankrollAfter float64) {
	al.WithFields(logrus.Fields{
		"wager_id":       wagerID,
		"status":         status,
		"payout":         payout,
		"profit":         profit,
		"bankroll_after": bankrollAfter,
	}).Info("Wager settlement recorded")
}

// LogInvariantViolation records a ledger discipline failure that aborts the run.
func (al *AuditLogger) LogInvariantViolation(wagerID, reason string) {
	al.WithFields(logrus.Fields{
		"wager_id": wagerID,
		"reason":   reason,
	}).Error("Ledger invariant violated")
}
