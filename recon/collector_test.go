package recon_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarwatch/pv-compare/recon"
	"github.com/solarwatch/pv-compare/sensor"
	"github.com/solarwatch/pv-compare/store/sqlite"
)

var testSlots = []recon.Slot{"4am", "11am", "3pm", "11pm"}

var testQuantities = recon.Quantities{
	ForecastEntities:   []string{"sensor.pv_forecast", "sensor.solar_forecast"},
	ProductionEntities: []string{"sensor.pv_power"},
	DailyEntities:      []string{"sensor.pv_daily_energy"},
	TerminalSlot:       "11pm",
}

// stubResolver answers by the first candidate of each chain, mimicking
// one resolved value per logical quantity.
type stubResolver struct {
	values map[string]float64 // keyed by first candidate; absent = NotFound
}

func (s *stubResolver) Resolve(_ context.Context, candidates []string) (sensor.Resolution, error) {
	if len(candidates) > 0 {
		if v, ok := s.values[candidates[0]]; ok {
			return sensor.Resolution{EntityID: candidates[0], Value: v}, nil
		}
	}
	return sensor.Resolution{}, sensor.ErrNotFound
}

func newTestCollector(t *testing.T, resolver recon.Resolver) (*recon.Collector, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return recon.NewCollector(resolver, store, testQuantities), store
}

func TestCollect_NonTerminal_ProductionUnresolvable_WritesZeroActual(t *testing.T) {
	// GIVEN: forecast resolvable to 100, production unresolvable
	// WHEN: collecting the non-terminal "11am" slot
	// THEN: slot record {forecast:100, actual:0} is written, no daily record

	resolver := &stubResolver{values: map[string]float64{"sensor.pv_forecast": 100}}
	collector, store := newTestCollector(t, resolver)
	ctx := context.Background()

	out := collector.Collect(ctx, "11am")

	assert.Equal(t, recon.StatusPartial, out.Status)
	assert.True(t, out.ActualMissing)
	assert.False(t, out.DailyWritten)
	assert.NoError(t, out.Err)

	values, err := store.Today(ctx, recon.Today(), testSlots)
	require.NoError(t, err)
	assert.Equal(t, recon.SlotValues{Forecast: 100, Actual: 0}, values["11am"])
	assert.Equal(t, recon.SlotValues{}, values[recon.DailyKey], "no daily record for non-terminal slots")
}

func TestCollect_Success_BothValuesWritten(t *testing.T) {
	resolver := &stubResolver{values: map[string]float64{
		"sensor.pv_forecast": 250.5,
		"sensor.pv_power":    198.2,
	}}
	collector, store := newTestCollector(t, resolver)
	ctx := context.Background()

	out := collector.Collect(ctx, "3pm")

	assert.Equal(t, recon.StatusSuccess, out.Status)
	assert.Equal(t, 250.5, out.ForecastWh)
	assert.Equal(t, 198.2, out.ActualWh)

	values, err := store.Today(ctx, recon.Today(), testSlots)
	require.NoError(t, err)
	assert.Equal(t, recon.SlotValues{Forecast: 250.5, Actual: 198.2}, values["3pm"])
}

func TestCollect_ForecastUnresolvable_CycleFailsEntirely(t *testing.T) {
	// Forecast is mandatory: nothing may be written.
	resolver := &stubResolver{values: map[string]float64{"sensor.pv_power": 50}}
	collector, store := newTestCollector(t, resolver)
	ctx := context.Background()

	out := collector.Collect(ctx, "11am")

	assert.Equal(t, recon.StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, recon.ErrForecastUnavailable)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRecords, "a failed cycle writes nothing")
}

func TestCollect_TerminalSlot_WritesDailyRecord(t *testing.T) {
	// GIVEN: forecast 100 and daily total resolvable to 95
	// WHEN: collecting the terminal slot
	// THEN: both the slot record and the daily record {100, 95} exist

	resolver := &stubResolver{values: map[string]float64{
		"sensor.pv_forecast":     100,
		"sensor.pv_daily_energy": 95,
	}}
	collector, store := newTestCollector(t, resolver)
	ctx := context.Background()

	out := collector.Collect(ctx, "11pm")

	assert.True(t, out.DailyWritten)
	assert.Equal(t, 95.0, out.DailyActualWh)

	values, err := store.Today(ctx, recon.Today(), testSlots)
	require.NoError(t, err)
	assert.Equal(t, recon.SlotValues{Forecast: 100, Actual: 0}, values["11pm"], "instantaneous actual degraded to zero")
	assert.Equal(t, recon.SlotValues{Forecast: 100, Actual: 95}, values[recon.DailyKey])
}

func TestCollect_TerminalSlot_DailyUnresolvable_SkippedNotZeroFilled(t *testing.T) {
	resolver := &stubResolver{values: map[string]float64{
		"sensor.pv_forecast": 100,
		"sensor.pv_power":    90,
	}}
	collector, store := newTestCollector(t, resolver)
	ctx := context.Background()

	out := collector.Collect(ctx, "11pm")

	assert.Equal(t, recon.StatusSuccess, out.Status, "a skipped daily record is not an error")
	assert.False(t, out.DailyWritten)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SlotRecords)
	assert.Zero(t, stats.DailyRecords, "daily totals are only recorded when the signal resolves")
}

func TestCollect_ForecastFallbackChain(t *testing.T) {
	// The second forecast candidate serves when the first is absent; the
	// resolver contract covers ordering, here we only confirm the wiring.
	resolver := &chainResolver{values: map[string]float64{
		"sensor.solar_forecast": 77,
		"sensor.pv_power":       70,
	}}
	collector, store := newTestCollector(t, resolver)
	ctx := context.Background()

	out := collector.Collect(ctx, "4am")
	require.Equal(t, recon.StatusSuccess, out.Status)

	values, err := store.Today(ctx, recon.Today(), testSlots)
	require.NoError(t, err)
	assert.Equal(t, 77.0, values["4am"].Forecast)
}

// chainResolver walks the whole candidate list, unlike stubResolver.
type chainResolver struct {
	values map[string]float64
}

func (c *chainResolver) Resolve(_ context.Context, candidates []string) (sensor.Resolution, error) {
	for _, id := range candidates {
		if v, ok := c.values[id]; ok {
			return sensor.Resolution{EntityID: id, Value: v}, nil
		}
	}
	return sensor.Resolution{}, sensor.ErrNotFound
}

func TestCollect_StorageFailure_ReportedNotThrown(t *testing.T) {
	resolver := &stubResolver{values: map[string]float64{"sensor.pv_forecast": 100}}
	store := &failingStore{err: &recon.StorageError{Op: "upsert slot", Err: errors.New("disk full")}}
	collector := recon.NewCollector(resolver, store, testQuantities)

	out := collector.Collect(context.Background(), "11am")

	assert.Equal(t, recon.StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, recon.ErrStorage)
}

// failingStore rejects every write.
type failingStore struct {
	err error
}

func (f *failingStore) UpsertSlot(context.Context, recon.Date, recon.Slot, float64, float64) error {
	return f.err
}
func (f *failingStore) UpsertDaily(context.Context, recon.Date, float64, float64) error {
	return f.err
}
func (f *failingStore) Today(context.Context, recon.Date, []recon.Slot) (map[string]recon.SlotValues, error) {
	return nil, f.err
}
func (f *failingStore) Range(context.Context, recon.Date, recon.Date) ([]recon.DayTotals, error) {
	return nil, f.err
}
func (f *failingStore) Stats(context.Context) (recon.Stats, error) {
	return recon.Stats{}, f.err
}

func TestCollect_ManualThenScheduled_LastWriteWins(t *testing.T) {
	// GIVEN: a manual trigger followed by a scheduled fire for the same
	//        (date, slot)
	// THEN: exactly one record remains, reflecting the later write

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	manual := recon.NewCollector(&stubResolver{values: map[string]float64{
		"sensor.pv_forecast": 100,
		"sensor.pv_power":    40,
	}}, store, testQuantities)
	scheduled := recon.NewCollector(&stubResolver{values: map[string]float64{
		"sensor.pv_forecast": 105,
		"sensor.pv_power":    60,
	}}, store, testQuantities)

	require.Equal(t, recon.StatusSuccess, manual.Collect(ctx, "3pm").Status)
	require.Equal(t, recon.StatusSuccess, scheduled.Collect(ctx, "3pm").Status)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SlotRecords, "never a duplicate")

	values, err := store.Today(ctx, recon.Today(), testSlots)
	require.NoError(t, err)
	assert.Equal(t, recon.SlotValues{Forecast: 105, Actual: 60}, values["3pm"])
}

func TestOutcome_Message(t *testing.T) {
	ok := recon.Outcome{Slot: "4am", Status: recon.StatusSuccess}
	assert.Equal(t, "data collected for 4am", ok.Message())

	degraded := recon.Outcome{Slot: "11am", Status: recon.StatusPartial, ActualMissing: true}
	assert.Contains(t, degraded.Message(), "production unavailable")

	failed := recon.Outcome{Slot: "3pm", Status: recon.StatusFailed, Err: recon.ErrForecastUnavailable}
	assert.Contains(t, failed.Message(), "failed")
}

func TestDate_Arithmetic(t *testing.T) {
	// Month and year boundaries roll over correctly.
	assert.Equal(t, "2025-02-01", recon.Date{Year: 2025, Month: time.January, Day: 31}.AddDays(1).String())
	assert.Equal(t, "2026-01-01", recon.Date{Year: 2025, Month: time.December, Day: 31}.AddDays(1).String())
	assert.Equal(t, "2024-02-29", recon.Date{Year: 2024, Month: time.February, Day: 28}.AddDays(1).String())

	d, err := recon.ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, recon.Date{Year: 2025, Month: time.March, Day: 10}, d)

	_, err = recon.ParseDate("10/03/2025")
	assert.Error(t, err)
}
