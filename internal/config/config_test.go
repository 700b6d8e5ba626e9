package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "HTTP_TIMEOUT_SECONDS", "LOG_LEVEL", "MMM_API_URL", "GUARDRAIL_THRESHOLD_PCT", "CHART_STEPS"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 15*time.Second, c.HTTPTimeout)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
	assert.Equal(t, 50.0, c.GuardrailPct)
	assert.Equal(t, 800000.0, c.ChartMaxSpend)
	assert.Equal(t, 100, c.ChartSteps)
	assert.Equal(t, 0.08, c.VolumeRate)
	assert.Equal(t, 2.4, c.ValueRate)
	assert.Empty(t, c.MMMAPIURL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GUARDRAIL_THRESHOLD_PCT", "25")
	t.Setenv("CHART_STEPS", "bogus")
	c := FromEnv()
	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, 3*time.Second, c.HTTPTimeout)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
	assert.Equal(t, 25.0, c.GuardrailPct)
	assert.Equal(t, 100, c.ChartSteps)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	assert.NoError(t, os.WriteFile(path, []byte("MMM_API_URL=http://mmm.local/api\n"), 0o600))
	t.Setenv("MMM_API_URL", "")
	os.Unsetenv("MMM_API_URL")
	c := Load(path)
	assert.Equal(t, "http://mmm.local/api", c.MMMAPIURL)
	os.Unsetenv("MMM_API_URL")
}
