/*
Package config loads the add-on options file.

PURPOSE: the supervisor writes options as a flat JSON document to a
well-known path. Loading overlays that document onto the built-in
defaults, applies environment overrides for the HA connection, and
validates the result, so the rest of the process never sees a
half-formed configuration.
*/
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/solarwatch/pv-compare/recon"
)

const DefaultPath = "/data/options.json"

var (
	ErrNoSlots         = errors.New("config: no collection times defined")
	ErrBadTerminalSlot = errors.New("config: terminal slot is not a configured collection time")
)

// Config is the add-on options document.
type Config struct {
	HAURL              string            `json:"ha_url"`
	HAToken            string            `json:"ha_token"`
	ForecastEntities   []string          `json:"forecast_entities"`
	ProductionEntities []string          `json:"production_entities"`
	DailyEntities      []string          `json:"daily_entities"`
	CollectionTimes    map[string]string `json:"collection_times"`
	TerminalSlot       string            `json:"terminal_slot"`
	LogLevel           string            `json:"log_level"`
}

// Default returns the configuration used when no options file exists.
// The entity lists are ordered fallback chains, most-preferred first.
func Default() Config {
	return Config{
		HAURL: "http://supervisor/core",
		ForecastEntities: []string{
			"sensor.pv_production_forecast",
			"sensor.solar_forecast",
			"sensor.pv_forecast",
			"sensor.solar_production_forecast",
		},
		ProductionEntities: []string{
			"sensor.pv_power",
			"sensor.solar_power",
			"sensor.pv_production",
			"sensor.solar_production",
		},
		DailyEntities: []string{
			"sensor.pv_daily_energy",
			"sensor.solar_daily_energy",
			"sensor.pv_today_energy",
			"sensor.solar_today_energy",
		},
		CollectionTimes: map[string]string{
			"4am":  "04:00:00",
			"11am": "11:00:00",
			"3pm":  "15:00:00",
			"11pm": "23:00:00",
		},
		TerminalSlot: "11pm",
		LogLevel:     "INFO",
	}
}

// Load reads the options file at path, overlaying it onto the
// defaults. A missing file is not an error: the defaults apply.
// HA_URL and SUPERVISOR_TOKEN environment variables override the
// file, matching how the supervisor injects credentials.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults apply
	case err != nil:
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	default:
		// json.Unmarshal merges into a non-nil map, which would keep
		// default slots the user removed. A file-supplied schedule
		// replaces the defaults wholesale.
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keys); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		if _, ok := keys["collection_times"]; ok {
			cfg.CollectionTimes = nil
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if v := os.Getenv("HA_URL"); v != "" {
		cfg.HAURL = v
	}
	if v := os.Getenv("SUPERVISOR_TOKEN"); v != "" {
		cfg.HAToken = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the parts that would otherwise fail at first use.
func (c Config) Validate() error {
	if len(c.CollectionTimes) == 0 {
		return ErrNoSlots
	}
	for slot, raw := range c.CollectionTimes {
		if _, err := recon.ParseTimeOfDay(raw); err != nil {
			return fmt.Errorf("config: collection time for %q: %w", slot, err)
		}
	}
	if _, ok := c.CollectionTimes[c.TerminalSlot]; !ok {
		return fmt.Errorf("%w: %q", ErrBadTerminalSlot, c.TerminalSlot)
	}
	if len(c.ForecastEntities) == 0 {
		return errors.New("config: no forecast entities configured")
	}
	if len(c.ProductionEntities) == 0 {
		return errors.New("config: no production entities configured")
	}
	if len(c.DailyEntities) == 0 {
		return errors.New("config: no daily energy entities configured")
	}
	return nil
}

// Times parses the collection schedule. Validate must have passed.
func (c Config) Times() map[recon.Slot]recon.TimeOfDay {
	out := make(map[recon.Slot]recon.TimeOfDay, len(c.CollectionTimes))
	for slot, raw := range c.CollectionTimes {
		at, _ := recon.ParseTimeOfDay(raw)
		out[recon.Slot(slot)] = at
	}
	return out
}

// Slots returns the configured slots ordered by time-of-day.
func (c Config) Slots() []recon.Slot {
	times := c.Times()
	slots := make([]recon.Slot, 0, len(times))
	for slot := range times {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		a, b := times[slots[i]], times[slots[j]]
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		if a.Minute != b.Minute {
			return a.Minute < b.Minute
		}
		return a.Second < b.Second
	})
	return slots
}

// Quantities bundles the entity fallback chains for the collector.
func (c Config) Quantities() recon.Quantities {
	return recon.Quantities{
		ForecastEntities:   c.ForecastEntities,
		ProductionEntities: c.ProductionEntities,
		DailyEntities:      c.DailyEntities,
		TerminalSlot:       recon.Slot(c.TerminalSlot),
	}
}

// Redacted returns a copy safe to expose over the API.
func (c Config) Redacted() Config {
	if c.HAToken != "" {
		c.HAToken = "***"
	}
	return c
}
