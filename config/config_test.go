package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarwatch/pv-compare/config"
	"github.com/solarwatch/pv-compare/recon"
)

func writeOptions(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "options.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.json"))

	require.NoError(t, err)
	assert.Equal(t, "http://supervisor/core", cfg.HAURL)
	assert.Equal(t, "sensor.pv_production_forecast", cfg.ForecastEntities[0])
	assert.Equal(t, "11pm", cfg.TerminalSlot)
	assert.Len(t, cfg.CollectionTimes, 4)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := writeOptions(t, `{
		"ha_url": "http://ha.local:8123",
		"ha_token": "secret",
		"forecast_entities": ["sensor.my_forecast"],
		"collection_times": {"noon": "12:00:00"},
		"terminal_slot": "noon"
	}`)

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "http://ha.local:8123", cfg.HAURL)
	assert.Equal(t, []string{"sensor.my_forecast"}, cfg.ForecastEntities)
	// Untouched sections keep their defaults.
	assert.Equal(t, "sensor.pv_power", cfg.ProductionEntities[0])
	assert.Equal(t, []recon.Slot{"noon"}, cfg.Slots())
}

func TestLoad_CollectionTimesReplacedNotMerged(t *testing.T) {
	// A file-supplied schedule must drop the default slots entirely,
	// or removed slots would keep firing.
	path := writeOptions(t, `{
		"collection_times": {"sunrise": "06:30:00", "sunset": "20:15:00"},
		"terminal_slot": "sunset"
	}`)

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, []recon.Slot{"sunrise", "sunset"}, cfg.Slots())
	assert.NotContains(t, cfg.CollectionTimes, "4am")
	assert.NotContains(t, cfg.CollectionTimes, "11pm")
}

func TestLoad_AbsentCollectionTimesKeepsDefaults(t *testing.T) {
	path := writeOptions(t, `{"ha_token": "secret"}`)

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, []recon.Slot{"4am", "11am", "3pm", "11pm"}, cfg.Slots())
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeOptions(t, `{"ha_url": "http://from-file", "ha_token": "from-file"}`)
	t.Setenv("HA_URL", "http://from-env")
	t.Setenv("SUPERVISOR_TOKEN", "env-token")

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "http://from-env", cfg.HAURL)
	assert.Equal(t, "env-token", cfg.HAToken)
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := writeOptions(t, `{not json`)

	_, err := config.Load(path)

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("bad collection time", func(t *testing.T) {
		cfg := config.Default()
		cfg.CollectionTimes["4am"] = "4 in the morning"
		assert.Error(t, cfg.Validate())
	})

	t.Run("terminal slot not scheduled", func(t *testing.T) {
		cfg := config.Default()
		cfg.TerminalSlot = "midnight"
		assert.ErrorIs(t, cfg.Validate(), config.ErrBadTerminalSlot)
	})

	t.Run("no slots", func(t *testing.T) {
		cfg := config.Default()
		cfg.CollectionTimes = nil
		assert.ErrorIs(t, cfg.Validate(), config.ErrNoSlots)
	})

	t.Run("no forecast entities", func(t *testing.T) {
		cfg := config.Default()
		cfg.ForecastEntities = nil
		assert.Error(t, cfg.Validate())
	})
}

func TestSlots_OrderedByTimeOfDay(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, []recon.Slot{"4am", "11am", "3pm", "11pm"}, cfg.Slots())
}

func TestTimes(t *testing.T) {
	cfg := config.Default()

	times := cfg.Times()

	assert.Equal(t, recon.TimeOfDay{Hour: 15}, times["3pm"])
	assert.Equal(t, recon.TimeOfDay{Hour: 23}, times["11pm"])
}

func TestRedacted(t *testing.T) {
	cfg := config.Default()
	cfg.HAToken = "very-secret"

	red := cfg.Redacted()

	assert.Equal(t, "***", red.HAToken)
	assert.Equal(t, "very-secret", cfg.HAToken, "original untouched")

	assert.Empty(t, config.Config{}.Redacted().HAToken)
}
