package recon

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// SLOT - A named time-of-day at which a sample is taken
// =============================================================================

// Slot identifies one of the configured collection times of day.
type Slot string

// DailyKey is the synthetic key under which Today reports the daily aggregate
// alongside the per-slot values.
const DailyKey = "daily"

// =============================================================================
// DATE - Calendar-day reconciliation key (local time)
// =============================================================================

// Date is a calendar day in local time. It is the key for all reconciled
// records: one row per (Date, Slot) and one daily row per Date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day containing t, in t's location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Today returns the current calendar day in local time.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight local time on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.Local)
}

// AddDays returns the date n days after d. Uses calendar arithmetic, so
// month and year boundaries roll over correctly.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool  { return d.Time().After(other.Time()) }
func (d Date) Equal(other Date) bool  { return d == other }
func (d Date) IsZero() bool           { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// =============================================================================
// RECORDS
// =============================================================================

// SlotValues is one reconciled forecast/actual pair, in watt-hours.
// The read path always returns a zero-valued pair where nothing has been
// collected, so callers never need null checks.
type SlotValues struct {
	Forecast float64 `json:"forecast"`
	Actual   float64 `json:"actual"`
}

// SlotRecord is one row per (calendar date, time slot). Re-collection for
// the same key overwrites the row rather than duplicating it.
type SlotRecord struct {
	Date       Date
	Slot       Slot
	ForecastWh float64
	ActualWh   float64
	UpdatedAt  time.Time
}

// DailyRecord is one row per calendar date, produced only as a side effect
// of collecting the terminal slot. It is fed by the upstream running
// daily-total signal, not by summing slot records.
type DailyRecord struct {
	Date       Date
	ForecastWh float64
	ActualWh   float64
	UpdatedAt  time.Time
}

// DayTotals is one entry of a gap-filled historical series.
type DayTotals struct {
	Date     Date
	Forecast float64
	Actual   float64
}

// Stats is a liveness snapshot of the store.
type Stats struct {
	SlotRecords  int
	DailyRecords int
	TotalRecords int
	LatestWrite  time.Time // zero when the store is empty
}

// =============================================================================
// STORE CONTRACT
// =============================================================================

// Store is the durable reconciliation store. Each upsert is a single atomic
// unit covering exactly one key; concurrent writers to the same key resolve
// by last-write-wins.
type Store interface {
	// UpsertSlot inserts or replaces the record keyed on (date, slot).
	UpsertSlot(ctx context.Context, date Date, slot Slot, forecastWh, actualWh float64) error

	// UpsertDaily inserts or replaces the record keyed on date.
	UpsertDaily(ctx context.Context, date Date, forecastWh, actualWh float64) error

	// Today returns a value for every given slot plus DailyKey, defaulting
	// absent entries to {0, 0}.
	Today(ctx context.Context, date Date, slots []Slot) (map[string]SlotValues, error)

	// Range returns one entry per calendar day from start to end inclusive,
	// zero-filling days with no daily record.
	Range(ctx context.Context, start, end Date) ([]DayTotals, error)

	// Stats reports record counts and the latest write timestamp.
	Stats(ctx context.Context) (Stats, error)
}
