package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DEBUG", "SIMULATION_INTERVAL", "SIMULATION_AUTOSTART", "SIMULATION_SEED",
		"FILTER_SETTLE_DELAY", "FILTER_SYNC_DELAY", "INITIAL_QUERY", "ALERT_RETENTION", "ALERT_THRESHOLDS_FILE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.ServerPort)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 3*time.Second, cfg.SimulationInterval)
	assert.Equal(t, uint64(0), cfg.SimulationSeed)
	assert.Equal(t, 150*time.Millisecond, cfg.FilterSettleDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.FilterSyncDelay)
	assert.Equal(t, 24*time.Hour, cfg.AlertRetention)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DEBUG", "true")
	t.Setenv("SIMULATION_INTERVAL", "1500ms")
	t.Setenv("SIMULATION_AUTOSTART", "1")
	t.Setenv("SIMULATION_SEED", "42")
	t.Setenv("INITIAL_QUERY", "status=active")
	t.Setenv("ALERT_RETENTION", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 1500*time.Millisecond, cfg.SimulationInterval)
	assert.True(t, cfg.SimulationAutostart)
	assert.Equal(t, uint64(42), cfg.SimulationSeed)
	assert.Equal(t, "status=active", cfg.InitialQuery)
	assert.Equal(t, time.Hour, cfg.AlertRetention)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DEBUG", "maybe")
	t.Setenv("SIMULATION_SEED", "-1")
	t.Setenv("FILTER_SYNC_DELAY", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Debug)
	assert.Equal(t, uint64(0), cfg.SimulationSeed)
	assert.Equal(t, 300*time.Millisecond, cfg.FilterSyncDelay)
}

func TestValidate(t *testing.T) {
	t.Setenv("ALERT_RETENTION", "-1h")
	_, err := Load()
	assert.Error(t, err)
}
