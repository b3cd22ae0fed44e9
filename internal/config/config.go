package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when the scaling policy fails validation.
// A run must not start when it is returned.
var ErrInvalidConfig = errors.New("invalid settings")

// Config represents the application configuration
type Config struct {
	TableName string          `yaml:"tableName" json:"tableName"`
	Reads     DimensionConfig `yaml:"reads" json:"reads"`
	Writes    DimensionConfig `yaml:"writes" json:"writes"`

	NumChecksBeforeScaleDown        int  `yaml:"numChecksBeforeScaleDown" json:"numChecksBeforeScaleDown"`
	MinWaitMinutesBetweenScaleDowns int  `yaml:"minWaitMinutesBetweenScaleDowns" json:"minWaitMinutesBetweenScaleDowns"`
	CheckIntervalMinutes            int  `yaml:"checkIntervalMinutes" json:"checkIntervalMinutes"`
	MaxDecreasesPerDay              int  `yaml:"maxDecreasesPerDay" json:"maxDecreasesPerDay"`
	DryRun                          bool `yaml:"dryRun" json:"dryRun"`
	Debug                           bool `yaml:"debug" json:"debug"`

	AWS   AWSConfig   `yaml:"aws" json:"aws"`
	API   APIConfig   `yaml:"api" json:"-"`
	State StateConfig `yaml:"state" json:"state"`
	Log   LogConfig   `yaml:"log" json:"log"`
}

// DimensionConfig holds the scaling policy for one capacity dimension (reads or writes)
type DimensionConfig struct {
	Threshold                 Threshold   `yaml:"threshold" json:"threshold"`
	Rate                      Rate        `yaml:"rate" json:"rate"`
	NumChecksBeforeScaleUp    int         `yaml:"numChecksBeforeScaleUp" json:"numChecksBeforeScaleUp"`
	NumThrottledBeforeScaleUp int         `yaml:"numThrottledBeforeScaleUp" json:"numThrottledBeforeScaleUp"`
	Provisioned               Provisioned `yaml:"provisioned" json:"provisioned"`
}

// Threshold holds utilization fractions of provisioned capacity
type Threshold struct {
	Lower float64 `yaml:"lower" json:"lower"`
	Upper float64 `yaml:"upper" json:"upper"`
}

// Rate holds fractional growth and shrink rates
type Rate struct {
	Increase float64 `yaml:"increase" json:"increase"`
	Decrease float64 `yaml:"decrease" json:"decrease"`
}

// Provisioned holds the capacity floor and ceiling
type Provisioned struct {
	Min int64 `yaml:"min" json:"min"`
	Max int64 `yaml:"max" json:"max"`
}

// AWSConfig holds AWS connection settings
type AWSConfig struct {
	Region   string `yaml:"region" json:"region"`
	Endpoint string `yaml:"endpoint" json:"endpoint,omitempty"`
}

// APIConfig holds API server configuration
type APIConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Port           int     `yaml:"port"`
	RateLimit      float64 `yaml:"rateLimitPerSecond"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
	Authentication struct {
		Enabled bool   `yaml:"enabled"`
		JWTKey  string `yaml:"jwtKey"`
	} `yaml:"authentication"`
}

// StateConfig selects where run statistics are persisted
type StateConfig struct {
	Backend   string `yaml:"backend" json:"backend"`
	TableName string `yaml:"tableName" json:"tableName,omitempty"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Period returns the metric sampling period.
func (c Config) Period() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

// LookbackWindow returns how far back utilization samples are collected.
func (c Config) LookbackWindow() time.Duration {
	return time.Duration(c.CheckIntervalMinutes*c.NumChecksBeforeScaleDown) * time.Minute
}

// MinWaitBetweenScaleDowns returns the minimum spacing between two decreases.
func (c Config) MinWaitBetweenScaleDowns() time.Duration {
	return time.Duration(c.MinWaitMinutesBetweenScaleDowns) * time.Minute
}

// setDefaults initializes configuration with default values
func setDefaults(config *Config) {
	config.Reads = DimensionConfig{
		Threshold:                 Threshold{Lower: 0.5, Upper: 0.75},
		Rate:                      Rate{Decrease: 0.75, Increase: 0.5},
		NumChecksBeforeScaleUp:    2,
		NumThrottledBeforeScaleUp: 1,
		Provisioned:               Provisioned{Min: 10, Max: 200},
	}
	config.Writes = DimensionConfig{
		Threshold:                 Threshold{Lower: 0.4, Upper: 0.7},
		Rate:                      Rate{Decrease: 0.6, Increase: 0.5},
		NumChecksBeforeScaleUp:    1,
		NumThrottledBeforeScaleUp: 1,
		Provisioned:               Provisioned{Min: 3, Max: 100},
	}
	config.NumChecksBeforeScaleDown = 5
	config.MinWaitMinutesBetweenScaleDowns = 60
	config.CheckIntervalMinutes = 5
	config.MaxDecreasesPerDay = 4

	config.AWS.Region = "us-east-1"
	config.API.Port = 8080
	config.API.RateLimit = 5
	config.API.RateLimitBurst = 10
	config.State.Backend = "memory"
	config.Log.Level = "info"
	config.Log.Format = "text"
}

// Default returns a configuration populated with the default policy
func Default() *Config {
	config := &Config{}
	setDefaults(config)
	return config
}

// Load reads configuration from file and environment
func Load(configPath string) (*Config, error) {
	var data []byte
	if configPath != "" {
		var err error
		data, err = os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse builds a configuration from a YAML document layered over the defaults.
// Environment overrides are applied last.
func Parse(data []byte) (*Config, error) {
	config := Default()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvironment(config); err != nil {
		return nil, err
	}

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvironment overrides selected settings from TABLESCALER_* variables
func applyEnvironment(config *Config) error {
	if v, ok := os.LookupEnv("TABLESCALER_TABLE_NAME"); ok {
		config.TableName = v
	}
	if v, ok := os.LookupEnv("TABLESCALER_REGION"); ok {
		config.AWS.Region = v
	}
	if v, ok := os.LookupEnv("TABLESCALER_LOG_LEVEL"); ok {
		config.Log.Level = strings.ToLower(v)
	}
	for name, target := range map[string]*bool{
		"TABLESCALER_DRY_RUN": &config.DryRun,
		"TABLESCALER_DEBUG":   &config.Debug,
	} {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}
		*target = b
	}
	return nil
}

// Validate checks the scaling policy. Any failure is fatal for the run.
func Validate(config *Config) error {
	if config.TableName == "" {
		return fmt.Errorf("%w: table name is required", ErrInvalidConfig)
	}
	if err := validateDimension("reads", config.Reads); err != nil {
		return err
	}
	if err := validateDimension("writes", config.Writes); err != nil {
		return err
	}
	if config.NumChecksBeforeScaleDown < 1 {
		return fmt.Errorf("%w: numChecksBeforeScaleDown must be at least 1", ErrInvalidConfig)
	}
	if config.MinWaitMinutesBetweenScaleDowns < 0 {
		return fmt.Errorf("%w: minWaitMinutesBetweenScaleDowns must not be negative", ErrInvalidConfig)
	}
	if config.MaxDecreasesPerDay < 1 {
		return fmt.Errorf("%w: maxDecreasesPerDay must be at least 1", ErrInvalidConfig)
	}
	if config.CheckIntervalMinutes < 1 {
		return fmt.Errorf("%w: checkIntervalMinutes must be at least 1", ErrInvalidConfig)
	}
	if config.API.Authentication.Enabled && config.API.Authentication.JWTKey == "" {
		return fmt.Errorf("%w: api.authentication.jwtKey is required when authentication is enabled", ErrInvalidConfig)
	}
	switch config.State.Backend {
	case "", "memory":
	case "dynamodb":
		if config.State.TableName == "" {
			return fmt.Errorf("%w: state.tableName is required for the dynamodb backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown state backend %q", ErrInvalidConfig, config.State.Backend)
	}
	return nil
}

func validateDimension(name string, d DimensionConfig) error {
	if d.Threshold.Upper <= 0 || d.Threshold.Upper >= 1 {
		return fmt.Errorf("%w: %s upper threshold must be between 0 and 1", ErrInvalidConfig, name)
	}
	if d.Threshold.Lower >= d.Threshold.Upper {
		return fmt.Errorf("%w: %s lower threshold must be below the upper threshold", ErrInvalidConfig, name)
	}
	if d.NumChecksBeforeScaleUp < 1 {
		return fmt.Errorf("%w: %s numChecksBeforeScaleUp must be at least 1", ErrInvalidConfig, name)
	}
	if d.NumThrottledBeforeScaleUp < 0 {
		return fmt.Errorf("%w: %s numThrottledBeforeScaleUp must not be negative", ErrInvalidConfig, name)
	}
	if d.Provisioned.Min < 1 {
		return fmt.Errorf("%w: %s provisioned minimum must be at least 1", ErrInvalidConfig, name)
	}
	if d.Provisioned.Min > d.Provisioned.Max {
		return fmt.Errorf("%w: %s provisioned minimum exceeds maximum", ErrInvalidConfig, name)
	}
	return nil
}
