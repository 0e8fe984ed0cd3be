// Package datasource loads historical events for the backtester.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/yourusername/edge-backtester/internal/models"
)

// EventSource yields a chronologically ordered, validated event slice
type EventSource interface {
	// Load retrieves every event the source knows about
	Load(ctx context.Context) ([]models.Event, error)

	// Name returns the name of the data source
	Name() string
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "invalid_data")
	Message string // Error message
	Err     error  // Underlying error
}

func (e *DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
)

var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("data not found")
	ErrInvalidData          = errors.New("invalid data format")
	ErrServerError          = errors.New("server error")
	ErrCircuitOpen          = errors.New("circuit breaker open")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) *DataSourceError {
	return &DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// finalize validates every event, rejects duplicate ids and sorts by date.
// Events sharing a timestamp keep their input order.
func finalize(source string, events []models.Event) ([]models.Event, error) {
	seen := make(map[string]struct{}, len(events))
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return nil, NewDataSourceError(source, ErrCodeInvalidData,
				fmt.Sprintf("record %d (%s) failed validation", i+1, e.ID), err)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, NewDataSourceError(source, ErrCodeInvalidData,
				fmt.Sprintf("duplicate event id %s", e.ID), ErrInvalidData)
		}
		seen[e.ID] = struct{}{}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}
