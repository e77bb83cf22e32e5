package config

import (
	stderrors "errors"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"

	"gorecast/internal"
	"gorecast/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	CLs   CLsConfig
	Paths PathConfig
	Log   LogConfig
}

// CLsConfig holds the toy Monte Carlo and limit solver settings
type CLsConfig struct {
	NumOfExps       int    `validate:"gt=0"` // toy experiments per CLs evaluation
	Seed            uint64 // 0 derives a seed from the clock
	MaxBracketSteps int    `validate:"gt=0"`
}

// PathConfig holds file system paths
type PathConfig struct {
	CardPath    string `validate:"omitempty,file"` // user recasting card; empty means the default card
	CatalogPath string // analysis catalog override; empty means the shipped one
}

// LogConfig holds logging settings
type LogConfig struct {
	Level internal.LogLevel `validate:"gte=0,lte=4"`
}

// Defaults
const (
	DefaultNumOfExps       = 100000
	DefaultMaxBracketSteps = 50
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		CLs:   *loadCLsConfig(),
		Paths: *loadPathConfig(),
		Log:   LogConfig{Level: internal.ParseLogLevel(os.Getenv("LOG_LEVEL"))},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadCLsConfig() *CLsConfig {
	return &CLsConfig{
		NumOfExps:       getEnvIntOrDefault("RECAST_CLS_NUMOFEXPS", DefaultNumOfExps),
		Seed:            getEnvUintOrDefault("RECAST_SEED", 0),
		MaxBracketSteps: getEnvIntOrDefault("RECAST_MAX_BRACKET_STEPS", DefaultMaxBracketSteps),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		CardPath:    getEnvOrDefault("RECAST_CARD_PATH", ""),
		CatalogPath: getEnvOrDefault("RECAST_CATALOG_PATH", ""),
	}
}

var validate = validator.New()

func validateConfig(config *Config) error {
	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Wrap(err, "invalid configuration")
	}
	return errors.ConfigInvalid(describe(fieldErrs[0]))
}

// describe names the environment variable behind a failed field
func describe(fe validator.FieldError) string {
	name := fe.Field()
	if key, ok := envKeys[fe.StructNamespace()]; ok {
		name = key
	}
	switch fe.Tag() {
	case "gt":
		return name + " must be a positive integer"
	case "file":
		return "invalid path to a recasting card: " + name + "=" + fe.Value().(string)
	default:
		return name + " is invalid (" + fe.Tag() + ")"
	}
}

var envKeys = map[string]string{
	"Config.CLs.NumOfExps":       "RECAST_CLS_NUMOFEXPS",
	"Config.CLs.MaxBracketSteps": "RECAST_MAX_BRACKET_STEPS",
	"Config.Paths.CardPath":      "RECAST_CARD_PATH",
	"Config.Log.Level":           "LOG_LEVEL",
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUintOrDefault(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
	}
	return defaultValue
}
