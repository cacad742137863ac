/*
Package sqlite provides the SQLite-backed reconciliation store.

PURPOSE:
  Implements recon.Store. Two keyed record sets, durable across restarts:

  slot_records:  one row per (date, time_slot), forecast/actual pair
  daily_records: one row per date, daily totals

IDEMPOTENT UPSERTS:
  Both tables carry a UNIQUE key and every write is a single
  INSERT ... ON CONFLICT DO UPDATE statement. Repeating a write for the
  same key replaces the row; two near-simultaneous writers for the same
  key resolve to last-write-wins with no extra locking.

GAP FILLING:
  Read paths never omit keys. Today() returns a zero pair for every
  configured slot with no row, and Range() returns one entry per calendar
  day in the requested window, zero-filled where no daily record exists.
  Callers never need null checks.

CONCURRENCY:
  sync.RWMutex on top of database/sql, plus WAL mode so readers don't
  block the writer.

FAILURE SEMANTICS:
  Every fault is wrapped as a recon.StorageError at this boundary; no
  driver error escapes unclassified.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/solarwatch/pv-compare/recon"
)

// Store implements recon.Store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, &recon.StorageError{Op: "open", Err: err}
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, &recon.StorageError{Op: "migrate", Err: err}
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS slot_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		time_slot TEXT NOT NULL,
		forecast_wh REAL,
		actual_wh REAL,
		updated_at TEXT NOT NULL,
		UNIQUE(date, time_slot)
	);

	CREATE INDEX IF NOT EXISTS idx_slot_records_date
		ON slot_records(date);

	CREATE TABLE IF NOT EXISTS daily_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL UNIQUE,
		total_forecast_wh REAL,
		total_actual_wh REAL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_daily_records_date
		ON daily_records(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WRITE PATH
// =============================================================================

// UpsertSlot inserts or replaces the record keyed on (date, slot).
func (s *Store) UpsertSlot(ctx context.Context, date recon.Date, slot recon.Slot, forecastWh, actualWh float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO slot_records (date, time_slot, forecast_wh, actual_wh, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date, time_slot) DO UPDATE SET
			forecast_wh = excluded.forecast_wh,
			actual_wh = excluded.actual_wh,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		date.String(), string(slot), forecastWh, actualWh,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &recon.StorageError{Op: fmt.Sprintf("upsert slot %s/%s", date, slot), Err: err}
	}
	return nil
}

// UpsertDaily inserts or replaces the record keyed on date.
func (s *Store) UpsertDaily(ctx context.Context, date recon.Date, forecastWh, actualWh float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO daily_records (date, total_forecast_wh, total_actual_wh, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_forecast_wh = excluded.total_forecast_wh,
			total_actual_wh = excluded.total_actual_wh,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		date.String(), forecastWh, actualWh,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &recon.StorageError{Op: fmt.Sprintf("upsert daily %s", date), Err: err}
	}
	return nil
}

// =============================================================================
// READ PATH
// =============================================================================

// Today returns a value for every given slot plus recon.DailyKey,
// defaulting absent entries to {0, 0}.
func (s *Store) Today(ctx context.Context, date recon.Date, slots []recon.Slot) (map[string]recon.SlotValues, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]recon.SlotValues, len(slots)+1)
	for _, slot := range slots {
		result[string(slot)] = recon.SlotValues{}
	}
	result[recon.DailyKey] = recon.SlotValues{}

	rows, err := s.db.QueryContext(ctx,
		"SELECT time_slot, forecast_wh, actual_wh FROM slot_records WHERE date = ?",
		date.String(),
	)
	if err != nil {
		return nil, &recon.StorageError{Op: "query today slots", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var slot string
		var forecast, actual sql.NullFloat64
		if err := rows.Scan(&slot, &forecast, &actual); err != nil {
			return nil, &recon.StorageError{Op: "scan slot record", Err: err}
		}
		if _, known := result[slot]; !known {
			// Row from a slot no longer configured; not reported.
			continue
		}
		result[slot] = recon.SlotValues{Forecast: forecast.Float64, Actual: actual.Float64}
	}
	if err := rows.Err(); err != nil {
		return nil, &recon.StorageError{Op: "iterate slot records", Err: err}
	}

	var forecast, actual sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		"SELECT total_forecast_wh, total_actual_wh FROM daily_records WHERE date = ?",
		date.String(),
	).Scan(&forecast, &actual)
	switch {
	case err == sql.ErrNoRows:
		// Keep the zero pair.
	case err != nil:
		return nil, &recon.StorageError{Op: "query today daily", Err: err}
	default:
		result[recon.DailyKey] = recon.SlotValues{Forecast: forecast.Float64, Actual: actual.Float64}
	}

	return result, nil
}

// Range returns one entry per calendar day from start to end inclusive,
// zero-filling days with no daily record.
func (s *Store) Range(ctx context.Context, start, end recon.Date) ([]recon.DayTotals, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s before %s", recon.ErrInvalidRange, end, start)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, total_forecast_wh, total_actual_wh
		 FROM daily_records
		 WHERE date >= ? AND date <= ?
		 ORDER BY date ASC`,
		start.String(), end.String(),
	)
	if err != nil {
		return nil, &recon.StorageError{Op: "query range", Err: err}
	}
	defer rows.Close()

	stored := make(map[string]recon.SlotValues)
	for rows.Next() {
		var dateStr string
		var forecast, actual sql.NullFloat64
		if err := rows.Scan(&dateStr, &forecast, &actual); err != nil {
			return nil, &recon.StorageError{Op: "scan daily record", Err: err}
		}
		stored[dateStr] = recon.SlotValues{Forecast: forecast.Float64, Actual: actual.Float64}
	}
	if err := rows.Err(); err != nil {
		return nil, &recon.StorageError{Op: "iterate daily records", Err: err}
	}

	var series []recon.DayTotals
	for d := start; !d.After(end); d = d.AddDays(1) {
		entry := recon.DayTotals{Date: d}
		if v, ok := stored[d.String()]; ok {
			entry.Forecast = v.Forecast
			entry.Actual = v.Actual
		}
		series = append(series, entry)
	}

	return series, nil
}

// Stats reports record counts and the latest write timestamp across both
// tables. Used for liveness reporting only.
func (s *Store) Stats(ctx context.Context) (recon.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats recon.Stats

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM slot_records").Scan(&stats.SlotRecords); err != nil {
		return recon.Stats{}, &recon.StorageError{Op: "count slot records", Err: err}
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM daily_records").Scan(&stats.DailyRecords); err != nil {
		return recon.Stats{}, &recon.StorageError{Op: "count daily records", Err: err}
	}
	stats.TotalRecords = stats.SlotRecords + stats.DailyRecords

	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(updated_at) FROM (
			SELECT updated_at FROM slot_records
			UNION ALL
			SELECT updated_at FROM daily_records
		)`,
	).Scan(&latest)
	if err != nil {
		return recon.Stats{}, &recon.StorageError{Op: "latest write", Err: err}
	}
	if latest.Valid {
		if t, err := time.Parse(time.RFC3339, latest.String); err == nil {
			stats.LatestWrite = t
		}
	}

	return stats, nil
}
