package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/edge-backtester/internal/logger"
	"github.com/yourusername/edge-backtester/internal/models"
)

// HTTPSource fetches a merged event JSON document from a remote URL.
// Decoded events are memoized per URL for the configured TTL.
type HTTPSource struct {
	url    string
	apiKey string
	client *RateLimitedHTTPClient
	cache  *cache.Cache
	ttl    time.Duration
	logger *logrus.Entry
}

// NewHTTPSource creates a remote event source. A zero ttl disables memoization.
func NewHTTPSource(url, apiKey string, client *RateLimitedHTTPClient, ttl time.Duration, log *logrus.Logger) *HTTPSource {
	return &HTTPSource{
		url:    url,
		apiKey: apiKey,
		client: client,
		cache:  cache.New(ttl, 2*ttl),
		ttl:    ttl,
		logger: logger.OrDiscard(log).WithFields(logrus.Fields{"component": "datasource", "source": "http"}),
	}
}

// Name returns the name of the data source
func (s *HTTPSource) Name() string {
	return "http"
}

// Load fetches, decodes and validates the remote event document
func (s *HTTPSource) Load(ctx context.Context) ([]models.Event, error) {
	if s.ttl > 0 {
		if cached, found := s.cache.Get(s.url); found {
			s.logger.WithField("url", s.url).Debug("Serving events from cache")
			return copyEvents(cached.([]models.Event)), nil
		}
	}

	headers := map[string]string{"Accept": "application/json"}
	if s.apiKey != "" {
		headers["X-API-Key"] = s.apiKey
	}
	resp, err := s.client.Get(ctx, s.url, headers)
	if err != nil {
		return nil, NewDataSourceError(s.Name(), ErrCodeNetworkError, "request failed", err)
	}
	defer drain(resp.Body)

	if err := statusError(s.Name(), resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewDataSourceError(s.Name(), ErrCodeNetworkError, "failed to read response body", err)
	}
	events, err := DecodeJSON(body)
	if err != nil {
		return nil, NewDataSourceError(s.Name(), ErrCodeInvalidData, "failed to decode response", err)
	}
	events, err = finalize(s.Name(), events)
	if err != nil {
		return nil, err
	}

	if s.ttl > 0 {
		s.cache.Set(s.url, copyEvents(events), s.ttl)
	}
	s.logger.WithFields(logrus.Fields{"url": s.url, "events": len(events)}).Info("Fetched events")
	return events, nil
}

// statusError maps non-2xx responses to data source errors
func statusError(source string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewDataSourceError(source, ErrCodeAuthenticationFailed, resp.Status, ErrAuthenticationFailed)
	case resp.StatusCode == http.StatusNotFound:
		return NewDataSourceError(source, ErrCodeNotFound, resp.Status, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewDataSourceError(source, ErrCodeRateLimitExceeded, resp.Status, ErrRateLimitExceeded)
	case resp.StatusCode >= 500:
		return NewDataSourceError(source, ErrCodeServerError, resp.Status, ErrServerError)
	default:
		return NewDataSourceError(source, ErrCodeInvalidData, fmt.Sprintf("unexpected status %s", resp.Status), ErrInvalidData)
	}
}

// copyEvents keeps callers from mutating the cached slice
func copyEvents(events []models.Event) []models.Event {
	out := make([]models.Event, len(events))
	copy(out, events)
	return out
}
