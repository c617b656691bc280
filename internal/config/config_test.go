package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CONFIG_FILE", "PORT", "APP_ENV", "LOG_LEVEL", "DATABASE_URL", "REDIS_URL",
		"ORS_API_KEY", "ORS_BASE_URL", "DB_MIGRATE", "ALLOW_ORIGINS", "RATE_RPS", "ORS_RATE_RPS",
		"AVG_SPEED_KMH", "TRAFFIC_FACTOR", "RATE_BURST", "TIME_LIMIT_SECONDS"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 25.0, cfg.Solver.AvgSpeedKmh)
	assert.Equal(t, 30*time.Second, cfg.Solver.DefaultTimeLimit)
	assert.Equal(t, 1.25, cfg.Server.TrafficFactor)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowOrigins)
	assert.Equal(t, "driving-car", cfg.ORS.Profile)
	assert.Empty(t, cfg.ORS.APIKey)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: "9000"
  appEnv: production
  rateBurst: 3
solver:
  avgSpeedKmh: 30
  defaultTimeLimit: 45s
ors:
  profile: driving-hgv
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TIME_LIMIT_SECONDS", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Server.Port, "env wins over file")
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3, cfg.Server.RateBurst)
	assert.Equal(t, 30.0, cfg.Solver.AvgSpeedKmh)
	assert.Equal(t, 12*time.Second, cfg.Solver.DefaultTimeLimit)
	assert.Equal(t, 3.0, cfg.Solver.BaseServiceMinutes, "untouched fields keep defaults")
	assert.Equal(t, "driving-hgv", cfg.ORS.Profile)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("AVG_SPEED_KMH", "fast")
	_, err := Load()
	assert.ErrorContains(t, err, "AVG_SPEED_KMH")

	clearEnv(t)
	t.Setenv("AVG_SPEED_KMH", "-3")
	_, err = Load()
	assert.ErrorContains(t, err, "solver config")

	clearEnv(t)
	t.Setenv("TIME_LIMIT_SECONDS", "0")
	_, err = Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	assert.ErrorContains(t, err, "read config file")
}
