package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. EDGE_BACKTESTER_BACKTEST_MIN_EV
const EnvPrefix = "EDGE_BACKTESTER"

const defaultConfigPath = "config/config.yaml"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads and parses the configuration from file and environment variables.
// ${VAR} placeholders in the YAML file are expanded before parsing.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithDefaults seeds every option with its documented default, then layers the file
// (if present) and the environment on top
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	SetDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// SetDefaults registers the default for every known option
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "edge-backtester")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("backtest.model_type", "elo")
	v.SetDefault("backtest.initial_bankroll", 10000.0)
	v.SetDefault("backtest.max_bet_percentage", 0.05)
	v.SetDefault("backtest.max_daily_bets", 10)
	v.SetDefault("backtest.max_game_exposure", 0.10)
	v.SetDefault("backtest.min_bankroll", 0.0)
	v.SetDefault("backtest.min_ev", 0.02)
	v.SetDefault("backtest.min_edge", 0.01)
	v.SetDefault("backtest.bet_sizing_method", "fractional_kelly")
	v.SetDefault("backtest.kelly_fraction", 0.25)
	v.SetDefault("backtest.flat_percentage", 0.01)
	v.SetDefault("backtest.min_bet_amount", 10.0)
	v.SetDefault("backtest.max_bet_amount", 0.0)
	v.SetDefault("backtest.vig_removal_method", "proportional")
	v.SetDefault("backtest.start_date", "")
	v.SetDefault("backtest.end_date", "")
	v.SetDefault("backtest.bet_types", []string{"moneyline", "spread"})
	v.SetDefault("backtest.apply_filter", true)
	v.SetDefault("backtest.warm_up", false)
	v.SetDefault("backtest.output_path", "")

	v.SetDefault("model.k_factor", 20.0)
	v.SetDefault("model.home_advantage", 100.0)
	v.SetDefault("model.default_rating", 1500.0)
	v.SetDefault("model.scale", 400.0)
	v.SetDefault("model.season_regression", 0.25)
	v.SetDefault("model.mov_dampening", 0.8)
	v.SetDefault("model.strict", false)
	v.SetDefault("model.injury_weight", 1.0)
	v.SetDefault("model.form_weight", 0.15)
	v.SetDefault("model.elite_venue_bonus", 15.0)
	v.SetDefault("model.learning_rate", 0.1)
	v.SetDefault("model.iterations", 500)
	v.SetDefault("model.l2", 0.01)
	v.SetDefault("model.min_training", 200)
	v.SetDefault("model.retrain_every", 100)

	v.SetDefault("variance.simulations", 10000)
	v.SetDefault("variance.seed", 42)
	v.SetDefault("variance.workers", 1)
	v.SetDefault("variance.streak_bets", 1000)

	v.SetDefault("data_source.type", "file")
	v.SetDefault("data_source.path", "data/events.csv")
	v.SetDefault("data_source.rate_limit_per_second", 2.0)
	v.SetDefault("data_source.retry_max", 3)
	v.SetDefault("data_source.timeout_seconds", 30)
	v.SetDefault("data_source.cache_ttl_seconds", 600)
	v.SetDefault("data_source.synthetic.teams", 30)
	v.SetDefault("data_source.synthetic.games_per_team", 82)
	v.SetDefault("data_source.synthetic.seed", 42)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "edge_backtester")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 5)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.cron", "0 6 * * *")

	v.SetDefault("secrets.enabled", false)
	v.SetDefault("secrets.region", "us-east-1")
	v.SetDefault("secrets.secret_name", "")
}
