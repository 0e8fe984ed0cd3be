// Package config provides configuration management for the edge backtester.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Backtest   BacktestConfig   `mapstructure:"backtest" validate:"required"`
	Model      ModelConfig      `mapstructure:"model"`
	Variance   VarianceConfig   `mapstructure:"variance"`
	DataSource DataSourceConfig `mapstructure:"data_source"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// BacktestConfig is the flat option set of a single backtest run
type BacktestConfig struct {
	ModelType        string   `mapstructure:"model_type" validate:"required,modeltype"`
	InitialBankroll  float64  `mapstructure:"initial_bankroll" validate:"gt=0"`
	MaxBetPercentage float64  `mapstructure:"max_bet_percentage" validate:"gt=0,lte=1"`
	MaxDailyBets     int      `mapstructure:"max_daily_bets" validate:"gt=0"`
	MaxGameExposure  float64  `mapstructure:"max_game_exposure" validate:"gt=0,lte=1"`
	MinBankroll      float64  `mapstructure:"min_bankroll" validate:"gte=0"`
	MinEV            float64  `mapstructure:"min_ev" validate:"gte=0"`
	MinEdge          float64  `mapstructure:"min_edge" validate:"gte=0"`
	BetSizingMethod  string   `mapstructure:"bet_sizing_method" validate:"required,sizingmethod"`
	KellyFraction    float64  `mapstructure:"kelly_fraction" validate:"gt=0,lte=1"`
	FlatPercentage   float64  `mapstructure:"flat_percentage" validate:"gt=0,lte=1"`
	MinBetAmount     float64  `mapstructure:"min_bet_amount" validate:"gte=0"`
	MaxBetAmount     float64  `mapstructure:"max_bet_amount" validate:"gte=0"`
	VigRemovalMethod string   `mapstructure:"vig_removal_method" validate:"required,vigmethod"`
	StartDate        string   `mapstructure:"start_date" validate:"omitempty,isodate"`
	EndDate          string   `mapstructure:"end_date" validate:"omitempty,isodate"`
	Seasons          []int    `mapstructure:"seasons" validate:"omitempty,dive,gt=0"`
	BetTypes         []string `mapstructure:"bet_types" validate:"omitempty,dive,oneof=moneyline spread"`
	ApplyFilter      bool     `mapstructure:"apply_filter"`
	WarmUp           bool     `mapstructure:"warm_up"`
	OutputPath       string   `mapstructure:"output_path"`
}

// ModelConfig carries the rating model constants
type ModelConfig struct {
	KFactor          float64 `mapstructure:"k_factor" validate:"gte=0"`
	HomeAdvantage    float64 `mapstructure:"home_advantage" validate:"gte=0"`
	DefaultRating    float64 `mapstructure:"default_rating" validate:"gte=0"`
	Scale            float64 `mapstructure:"scale" validate:"gte=0"`
	SeasonRegression float64 `mapstructure:"season_regression" validate:"gte=0,lte=1"`
	MOVDampening     float64 `mapstructure:"mov_dampening" validate:"gte=0"`
	Strict           bool    `mapstructure:"strict"`

	InjuryWeight    float64  `mapstructure:"injury_weight" validate:"gte=0"`
	FormWeight      float64  `mapstructure:"form_weight" validate:"gte=0"`
	EliteVenues     []string `mapstructure:"elite_venues"`
	EliteVenueBonus float64  `mapstructure:"elite_venue_bonus" validate:"gte=0"`

	LearningRate float64 `mapstructure:"learning_rate" validate:"gte=0"`
	Iterations   int     `mapstructure:"iterations" validate:"gte=0"`
	L2           float64 `mapstructure:"l2" validate:"gte=0"`
	MinTraining  int     `mapstructure:"min_training" validate:"gte=0"`
	RetrainEvery int     `mapstructure:"retrain_every" validate:"gte=0"`

	Ensemble []EnsembleMemberConfig `mapstructure:"ensemble" validate:"omitempty,dive"`
}

// EnsembleMemberConfig names one weighted ensemble member
type EnsembleMemberConfig struct {
	Type   string  `mapstructure:"type" validate:"required,modeltype,ne=ensemble"`
	Weight float64 `mapstructure:"weight" validate:"gte=0"`
}

// VarianceConfig configures the Monte Carlo analyzer
type VarianceConfig struct {
	Simulations int   `mapstructure:"simulations" validate:"gt=0"`
	Seed        int64 `mapstructure:"seed"`
	Workers     int   `mapstructure:"workers" validate:"gte=0"`
	StreakBets  int   `mapstructure:"streak_bets" validate:"gte=0"`
}

// DataSourceConfig selects where events are loaded from
type DataSourceConfig struct {
	Type               string          `mapstructure:"type" validate:"required,oneof=file http synthetic"`
	Path               string          `mapstructure:"path"`
	URL                string          `mapstructure:"url" validate:"omitempty,url"`
	APIKey             string          `mapstructure:"api_key"`
	RateLimitPerSecond float64         `mapstructure:"rate_limit_per_second" validate:"gte=0"`
	RetryMax           int             `mapstructure:"retry_max" validate:"gte=0"`
	TimeoutSeconds     int             `mapstructure:"timeout_seconds" validate:"gte=0"`
	CacheTTLSeconds    int             `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	Synthetic          SyntheticConfig `mapstructure:"synthetic"`
}

// SyntheticConfig parameterizes the generated season source
type SyntheticConfig struct {
	Seasons      []int `mapstructure:"seasons" validate:"omitempty,dive,gt=0"`
	Teams        int   `mapstructure:"teams" validate:"gte=0"`
	GamesPerTeam int   `mapstructure:"games_per_team" validate:"gte=0"`
	Seed         int64 `mapstructure:"seed"`
}

// DatabaseConfig represents the wager sink connection
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// SchedulerConfig configures recurring backtest runs
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// SecretsConfig points at an optional AWS Secrets Manager overlay
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
