package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.Equal(t, "f64", cfg.Engine.Precision)
	assert.Equal(t, 4096, cfg.Engine.MaxExprLen)
	assert.Equal(t, 8, cfg.Engine.MaxOrder)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                  "9000",
		"HOST":                  "127.0.0.1",
		"LOG_LEVEL":             "debug",
		"LOG_DEV":               "true",
		"RATE_LIMIT_RPS":        "5",
		"RATE_LIMIT_BURST":      "10",
		"RATE_LIMIT_ENABLED":    "false",
		"FLATEX_PRECISION":      "f32",
		"FLATEX_MAX_EXPR_LEN":   "256",
		"FLATEX_MAX_ORDER":      "3",
		"FLATEX_FD_STEP":        "0.001",
		"CORS_ORIGINS":          "http://a.example,http://b.example",
		"RATE_LIMIT_GLOBAL_RPS": "50",
	}
	for k, v := range envVars {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 50, cfg.RateLimit.GlobalRequestsPerSecond)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "f32", cfg.Engine.Precision)
	assert.Equal(t, 256, cfg.Engine.MaxExprLen)
	assert.Equal(t, 3, cfg.Engine.MaxOrder)
	assert.InDelta(t, 0.001, cfg.Engine.FDStep, 1e-12)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"precision", "FLATEX_PRECISION", "f16"},
		{"order", "FLATEX_MAX_ORDER", "0"},
		{"length", "FLATEX_MAX_EXPR_LEN", "-1"},
		{"step", "FLATEX_FD_STEP", "-0.5"},
		{"not a number", "RATE_LIMIT_RPS", "fast"},
		{"body limit", "MAX_BODY_BYTES", "0"},
		{"rps", "RATE_LIMIT_RPS", "0"},
		{"burst", "RATE_LIMIT_BURST", "-1"},
		{"global rps", "RATE_LIMIT_GLOBAL_RPS", "-5"},
		{"global burst", "RATE_LIMIT_GLOBAL_BURST", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
			assert.Equal(t, Default(), LoadOrDefault())
		})
	}
}

func TestLoadIgnoresLimiterSettingsWhenDisabled(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_RPS", "0")
	t.Setenv("RATE_LIMIT_BURST", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv("FLATEX_MAX_ORDER", "2")
	assert.Equal(t, 2, LoadOrDefault().Engine.MaxOrder)

	t.Setenv("FLATEX_PRECISION", "f16")
	assert.Equal(t, Default(), LoadOrDefault())
}
