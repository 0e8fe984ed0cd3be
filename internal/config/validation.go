package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", oneOfFunc("development", "staging", "production"))
	_ = v.RegisterValidation("loglevel", oneOfFunc("debug", "info", "warn", "error"))
	_ = v.RegisterValidation("modeltype", oneOfFunc("elo", "enhanced_elo", "logistic", "ensemble"))
	_ = v.RegisterValidation("vigmethod", oneOfFunc("proportional", "additive", "power", "shin"))
	_ = v.RegisterValidation("sizingmethod", oneOfFunc("kelly", "fractional_kelly", "flat"))
	_ = v.RegisterValidation("isodate", validateISODate)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return validateCrossField(cfg)
}

func oneOfFunc(allowed ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if value == a {
				return true
			}
		}
		return false
	}
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(dateLayout, fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	bt := cfg.Backtest

	if bt.StartDate != "" && bt.EndDate != "" {
		start, err := time.Parse(dateLayout, bt.StartDate)
		if err != nil {
			return fmt.Errorf("invalid backtest start_date format: %w", err)
		}
		end, err := time.Parse(dateLayout, bt.EndDate)
		if err != nil {
			return fmt.Errorf("invalid backtest end_date format: %w", err)
		}
		if start.After(end) {
			return fmt.Errorf("backtest start_date must not be after end_date")
		}
	}

	if bt.MaxBetPercentage > bt.MaxGameExposure {
		return fmt.Errorf("max_bet_percentage cannot exceed max_game_exposure")
	}
	if bt.BetSizingMethod == "flat" && bt.FlatPercentage > bt.MaxBetPercentage {
		return fmt.Errorf("flat_percentage cannot exceed max_bet_percentage")
	}
	if bt.MaxBetAmount > 0 && bt.MaxBetAmount < bt.MinBetAmount {
		return fmt.Errorf("max_bet_amount cannot be below min_bet_amount")
	}
	if bt.MinBankroll >= bt.InitialBankroll {
		return fmt.Errorf("min_bankroll must be below initial_bankroll")
	}

	if bt.ModelType == "ensemble" {
		if len(cfg.Model.Ensemble) == 0 {
			return fmt.Errorf("model_type ensemble requires model.ensemble members")
		}
		total := 0.0
		for _, m := range cfg.Model.Ensemble {
			total += m.Weight
		}
		if total <= 0 {
			return fmt.Errorf("ensemble weights must sum to a positive value")
		}
	}

	switch cfg.DataSource.Type {
	case "file":
		if cfg.DataSource.Path == "" {
			return fmt.Errorf("data_source.path is required for file sources")
		}
	case "http":
		if cfg.DataSource.URL == "" {
			return fmt.Errorf("data_source.url is required for http sources")
		}
	}

	if cfg.Database.Enabled {
		if cfg.Database.Host == "" || cfg.Database.Name == "" || cfg.Database.User == "" {
			return fmt.Errorf("database host, name and user are required when the database is enabled")
		}
		if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
	}

	if cfg.Scheduler.Enabled && strings.TrimSpace(cfg.Scheduler.Cron) == "" {
		return fmt.Errorf("scheduler.cron is required when the scheduler is enabled")
	}
	if cfg.Secrets.Enabled && cfg.Secrets.SecretName == "" {
		return fmt.Errorf("secrets.secret_name is required when secrets are enabled")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "gt", "gte", "lt", "lte", "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s=%s violated\n", field, tag, fieldError.Param())
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "modeltype":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: elo, enhanced_elo, logistic, ensemble; got '%v'\n", field, value)
		case "vigmethod":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: proportional, additive, power, shin; got '%v'\n", field, value)
		case "sizingmethod":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: kelly, fractional_kelly, flat; got '%v'\n", field, value)
		case "isodate":
			errMsg += fmt.Sprintf("- Field '%s' must be a YYYY-MM-DD date, got '%v'\n", field, value)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
