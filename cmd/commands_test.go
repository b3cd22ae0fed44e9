package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochestra-tech/tablescaler/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, "tableName: orders\nlog:\n  level: warn\n")

	out, err := execute(t, "validate", "--config", path)

	require.NoError(t, err)
	assert.Equal(t, "configuration valid for table orders\n", out)
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
}

func TestValidateCommand_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "tableName: orders\nreads:\n  threshold:\n    lower: 0.9\n    upper: 0.5\n")

	_, err := execute(t, "validate", "--config", path)

	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestValidateCommand_LogLevelFlagOverrides(t *testing.T) {
	path := writeConfig(t, "tableName: orders\n")

	_, err := execute(t, "validate", "--config", path, "--log-level", "debug")

	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestConfigMapRequiresNamespace(t *testing.T) {
	_, err := execute(t, "validate", "--configmap-name", "tablescaler")

	assert.ErrorContains(t, err, "--configmap-namespace is required")
}

func TestSetupLogging(t *testing.T) {
	require.NoError(t, setupLogging(config.LogConfig{Level: "info", Format: "json"}))
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	require.NoError(t, setupLogging(config.LogConfig{Level: "info", Format: "text"}))
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)

	assert.Error(t, setupLogging(config.LogConfig{Level: "loud"}))
}
