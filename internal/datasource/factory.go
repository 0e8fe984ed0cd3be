package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/edge-backtester/internal/config"
)

// SourceType represents the type of data source
type SourceType string

const (
	// FileSourceType reads a merged CSV or JSON file
	FileSourceType SourceType = "file"
	// HTTPSourceType fetches a merged JSON document
	HTTPSourceType SourceType = "http"
	// SyntheticSourceType generates seeded seasons
	SyntheticSourceType SourceType = "synthetic"
)

// NewEventSource creates the EventSource selected by configuration
func NewEventSource(cfg config.DataSourceConfig, log *logrus.Logger) (EventSource, error) {
	switch SourceType(cfg.Type) {
	case FileSourceType:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file data source requires a path")
		}
		return NewFileSource(cfg.Path, log), nil

	case HTTPSourceType:
		if cfg.URL == "" {
			return nil, fmt.Errorf("http data source requires a url")
		}
		return NewHTTPSource(cfg.URL, cfg.APIKey, NewRateLimitedHTTPClient(httpClientConfig(cfg), log),
			time.Duration(cfg.CacheTTLSeconds)*time.Second, log), nil

	case SyntheticSourceType:
		return NewSyntheticSource(cfg.Synthetic, log)

	default:
		return nil, fmt.Errorf("unknown data source type: %s", cfg.Type)
	}
}

func httpClientConfig(cfg config.DataSourceConfig) HTTPClientConfig {
	c := DefaultHTTPClientConfig()
	if cfg.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c.MaxRetries = cfg.RetryMax
	c.RateLimit = cfg.RateLimitPerSecond
	return c
}
