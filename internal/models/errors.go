package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrInvalidOdds         = errors.New("invalid american odds")
	ErrInvalidProbability  = errors.New("probability outside [0,1]")
	ErrUnknownCompetitor   = errors.New("competitor has no rating")
	ErrNoEvents            = errors.New("no events in backtest window")
	ErrEngineAlreadyRun    = errors.New("engine has already been run")
	ErrWagerSettled        = errors.New("wager already settled")
	ErrWagerNotFound       = errors.New("wager not found in ledger")
	ErrNotFound            = errors.New("record not found")
	ErrUnknownModelType    = errors.New("unknown model type")
	ErrUnknownSizingMethod = errors.New("unknown bet sizing method")
)

// ValidationError reports a malformed input value
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

// NewValidationError creates a validation error
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// InsufficientDataError is returned by Fit when history is shorter than a model needs
type InsufficientDataError struct {
	Model    string
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s needs at least %d events, got %d", e.Model, e.Required, e.Got)
}

// PredictionFailure wraps a predict or update failure for a single event
type PredictionFailure struct {
	EventID string
	Stage   string
	Err     error
}

func (e *PredictionFailure) Error() string {
	return fmt.Sprintf("%s failed for event %s: %v", e.Stage, e.EventID, e.Err)
}

func (e *PredictionFailure) Unwrap() error {
	return e.Err
}

// InvariantViolation signals a ledger-discipline bug. Runs must abort on it.
type InvariantViolation struct {
	WagerID string
	Reason  string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("ledger invariant violated for wager %s: %s", e.WagerID, e.Reason)
}

// IsInvariantViolation reports whether err is or wraps an InvariantViolation
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}
