package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.TableName = "orders"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, Threshold{Lower: 0.5, Upper: 0.75}, cfg.Reads.Threshold)
	assert.Equal(t, Provisioned{Min: 10, Max: 200}, cfg.Reads.Provisioned)
	assert.Equal(t, Threshold{Lower: 0.4, Upper: 0.7}, cfg.Writes.Threshold)
	assert.Equal(t, Provisioned{Min: 3, Max: 100}, cfg.Writes.Provisioned)
	assert.Equal(t, 5, cfg.NumChecksBeforeScaleDown)
	assert.Equal(t, 4, cfg.MaxDecreasesPerDay)
	assert.Equal(t, "memory", cfg.State.Backend)

	assert.Equal(t, 5*time.Minute, cfg.Period())
	assert.Equal(t, 25*time.Minute, cfg.LookbackWindow())
	assert.Equal(t, time.Hour, cfg.MinWaitBetweenScaleDowns())
}

func TestParse_LayersOverDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
tableName: orders
dryRun: true
reads:
  threshold:
    lower: 0.3
    upper: 0.9
  provisioned:
    min: 5
    max: 50
maxDecreasesPerDay: 9
state:
  backend: dynamodb
  tableName: tablescaler-state
`))
	require.NoError(t, err)

	assert.Equal(t, "orders", cfg.TableName)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, Threshold{Lower: 0.3, Upper: 0.9}, cfg.Reads.Threshold)
	assert.Equal(t, Provisioned{Min: 5, Max: 50}, cfg.Reads.Provisioned)
	assert.Equal(t, 0.5, cfg.Reads.Rate.Increase, "unset fields keep their defaults")
	assert.Equal(t, 9, cfg.MaxDecreasesPerDay)
	assert.Equal(t, Threshold{Lower: 0.4, Upper: 0.7}, cfg.Writes.Threshold)
	assert.Equal(t, "tablescaler-state", cfg.State.TableName)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("tableName: [orders"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tableName: orders\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "orders", cfg.TableName)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("TABLESCALER_TABLE_NAME", "invoices")
	t.Setenv("TABLESCALER_REGION", "eu-west-1")
	t.Setenv("TABLESCALER_DRY_RUN", "true")
	t.Setenv("TABLESCALER_DEBUG", "1")
	t.Setenv("TABLESCALER_LOG_LEVEL", "DEBUG")

	cfg, err := Parse([]byte("tableName: orders\n"))
	require.NoError(t, err)

	assert.Equal(t, "invoices", cfg.TableName)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvironmentOverrides_BadBool(t *testing.T) {
	t.Setenv("TABLESCALER_DRY_RUN", "maybe")

	_, err := Parse([]byte("tableName: orders\n"))
	assert.ErrorContains(t, err, "TABLESCALER_DRY_RUN")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing table name", func(c *Config) { c.TableName = "" }},
		{"read upper at one", func(c *Config) { c.Reads.Threshold.Upper = 1 }},
		{"write upper at zero", func(c *Config) { c.Writes.Threshold.Upper = 0 }},
		{"read upper negative", func(c *Config) { c.Reads.Threshold.Upper = -0.2 }},
		{"read lower equals upper", func(c *Config) { c.Reads.Threshold.Lower = c.Reads.Threshold.Upper }},
		{"write lower above upper", func(c *Config) { c.Writes.Threshold.Lower = 0.9 }},
		{"read min below one", func(c *Config) { c.Reads.Provisioned.Min = 0 }},
		{"write min above max", func(c *Config) { c.Writes.Provisioned.Min = 101 }},
		{"no decreases per day", func(c *Config) { c.MaxDecreasesPerDay = 0 }},
		{"no check interval", func(c *Config) { c.CheckIntervalMinutes = 0 }},
		{"no scale down checks", func(c *Config) { c.NumChecksBeforeScaleDown = 0 }},
		{"no scale up checks", func(c *Config) { c.Writes.NumChecksBeforeScaleUp = 0 }},
		{"negative throttle count", func(c *Config) { c.Reads.NumThrottledBeforeScaleUp = -1 }},
		{"negative wait", func(c *Config) { c.MinWaitMinutesBetweenScaleDowns = -5 }},
		{"unknown state backend", func(c *Config) { c.State.Backend = "redis" }},
		{"dynamodb backend without table", func(c *Config) { c.State.Backend = "dynamodb" }},
		{"authentication without key", func(c *Config) { c.API.Authentication.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Validate(cfg))

	cfg.Reads.Provisioned = Provisioned{Min: 1, Max: 1}
	cfg.MaxDecreasesPerDay = 1
	cfg.CheckIntervalMinutes = 1
	assert.NoError(t, Validate(cfg), "boundary values are allowed")

	cfg.API.Authentication.Enabled = true
	cfg.API.Authentication.JWTKey = "secret"
	assert.NoError(t, Validate(cfg))
}
