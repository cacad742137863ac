/*
dto.go - Request/response shapes for the dashboard API

PURPOSE:
  JSON structures exchanged with the dashboard. Kept separate from the
  domain types so the wire format can evolve without touching the
  collector or store.
*/
package api

import (
	"github.com/solarwatch/pv-compare/compare"
	"github.com/solarwatch/pv-compare/recon"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StatusResponse answers GET /api/status.
type StatusResponse struct {
	Online     bool         `json:"online"`
	LastUpdate string       `json:"last_update"`
	DBRecords  int          `json:"db_records"`
	Slots      []SlotTimer  `json:"slots"`
}

// SlotTimer is one scheduler slot's liveness view.
type SlotTimer struct {
	Slot       string `json:"time_slot"`
	At         string `json:"at"`
	State      string `json:"state"`
	NextFire   string `json:"next_fire,omitempty"`
	LastFire   string `json:"last_fire,omitempty"`
	LastStatus string `json:"last_status,omitempty"`
}

// DataResponse answers GET /api/data: today's values keyed by slot,
// plus the scored view the dashboard renders.
type DataResponse struct {
	Date   string                      `json:"date"`
	Values map[string]recon.SlotValues `json:"values"`
	Scores []compare.SlotScore         `json:"scores"`
}

// HistoricalResponse answers GET /api/historical. The parallel arrays
// feed the chart directly; Scores carries the per-day grading.
type HistoricalResponse struct {
	Dates    []string           `json:"dates"`
	Forecast []float64          `json:"forecast"`
	Actual   []float64          `json:"actual"`
	Scores   []compare.DayScore `json:"scores"`
}

// CollectRequest is the POST /api/collect body.
type CollectRequest struct {
	TimeSlot string `json:"time_slot"`
}

// CollectResponse reports a manual collection.
type CollectResponse struct {
	Success  bool    `json:"success"`
	Message  string  `json:"message"`
	TimeSlot string  `json:"time_slot"`
	Forecast float64 `json:"forecast"`
	Actual   float64 `json:"actual"`
}
