/*
handlers.go - HTTP API handlers for the PV comparison dashboard

PURPOSE:
  Exposes today's readings, historical comparisons, scheduler liveness,
  and a manual collection trigger. Handles HTTP request/response and
  JSON serialization, delegating to the collector and store.

ENDPOINTS:
  GET  /health              Liveness probe
  GET  /api/status          Store stats + scheduler slot timers
  GET  /api/data            Today's per-slot forecast/actual values
  GET  /api/historical      Daily totals for the last N days (?days=N)
  POST /api/collect         Manual collection for one slot
  GET  /api/config          Active configuration, token redacted
  GET  /ws                  Live collection events (websocket)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Unknown slot, bad request body, bad query parameters
  - 500: Storage faults, failed collections
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/solarwatch/pv-compare/compare"
	"github.com/solarwatch/pv-compare/config"
	"github.com/solarwatch/pv-compare/recon"
)

const defaultHistoricalDays = 7

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     recon.Store
	Collector *recon.Collector
	Scheduler *recon.Scheduler
	Config    config.Config
	Hub       *Hub

	// Slots in collection order, for rendering and validation.
	Slots []recon.Slot
}

// NewHandler wires the handler. Scheduler and Hub may be nil: status
// then omits slot timers, and collections are not broadcast.
func NewHandler(store recon.Store, collector *recon.Collector, cfg config.Config) *Handler {
	return &Handler{
		Store:     store,
		Collector: collector,
		Config:    cfg,
		Slots:     cfg.Slots(),
	}
}

// =============================================================================
// STATUS
// =============================================================================

// Health is a bare liveness probe.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStatus reports store stats and scheduler slot timers.
// GET /api/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read store stats", err)
		return
	}

	resp := StatusResponse{
		Online:     true,
		LastUpdate: "Never",
		DBRecords:  stats.TotalRecords,
		Slots:      []SlotTimer{},
	}
	if !stats.LatestWrite.IsZero() {
		resp.LastUpdate = stats.LatestWrite.Format(time.RFC3339)
	}
	if h.Scheduler != nil {
		for _, st := range h.Scheduler.Snapshot() {
			timer := SlotTimer{
				Slot:       string(st.Slot),
				At:         st.At.String(),
				State:      string(st.State),
				LastStatus: string(st.LastStatus),
			}
			if !st.NextFire.IsZero() {
				timer.NextFire = st.NextFire.Format(time.RFC3339)
			}
			if !st.LastFire.IsZero() {
				timer.LastFire = st.LastFire.Format(time.RFC3339)
			}
			resp.Slots = append(resp.Slots, timer)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// DATA
// =============================================================================

// GetData returns today's per-slot values, zero-filled for slots not
// yet collected.
// GET /api/data
func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	today := recon.Today()
	values, err := h.Store.Today(r.Context(), today, h.Slots)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read today's data", err)
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{
		Date:   today.String(),
		Values: values,
		Scores: compare.ForSlots(values, h.Slots),
	})
}

// GetHistorical returns daily totals for the trailing N days
// including today, gap-filled for days with no record.
// GET /api/historical?days=N
func (h *Handler) GetHistorical(w http.ResponseWriter, r *http.Request) {
	days := defaultHistoricalDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			writeError(w, http.StatusBadRequest, "days must be a number between 1 and 365", nil)
			return
		}
		days = n
	}

	end := recon.Today()
	start := end.AddDays(-(days - 1))
	totals, err := h.Store.Range(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read historical data", err)
		return
	}

	resp := HistoricalResponse{
		Dates:    make([]string, len(totals)),
		Forecast: make([]float64, len(totals)),
		Actual:   make([]float64, len(totals)),
		Scores:   compare.ForSeries(totals),
	}
	for i, d := range totals {
		resp.Dates[i] = d.Date.String()
		resp.Forecast[i] = d.Forecast
		resp.Actual[i] = d.Actual
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// COLLECTION
// =============================================================================

// TriggerCollect runs a collection for one slot right now, bypassing
// the schedule. The result overwrites any earlier record for the same
// (date, slot) key.
// POST /api/collect
func (h *Handler) TriggerCollect(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	slot := recon.Slot(req.TimeSlot)
	if !h.knownSlot(slot) {
		writeError(w, http.StatusBadRequest, "Invalid time slot", recon.ErrUnknownSlot)
		return
	}

	out := h.Collector.Collect(r.Context(), slot)
	if h.Hub != nil {
		h.Hub.BroadcastOutcome(out)
	}
	if out.Status == recon.StatusFailed {
		writeError(w, http.StatusInternalServerError, out.Message(), out.Err)
		return
	}

	writeJSON(w, http.StatusOK, CollectResponse{
		Success:  true,
		Message:  out.Message(),
		TimeSlot: string(slot),
		Forecast: out.ForecastWh,
		Actual:   out.ActualWh,
	})
}

func (h *Handler) knownSlot(slot recon.Slot) bool {
	for _, s := range h.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// =============================================================================
// CONFIG
// =============================================================================

// GetConfig exposes the active configuration with the token redacted.
// GET /api/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Config.Redacted())
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
