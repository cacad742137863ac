/*
Package compare scores how close actual PV production landed to the
forecast.

PURPOSE: turn raw forecast/actual watt-hour pairs into accuracy
percentages and coarse grades for the dashboard. Percentages are
computed with exact decimal arithmetic and rounded once, so the same
pair always renders the same figure.
*/
package compare

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/solarwatch/pv-compare/recon"
)

// =============================================================================
// GRADES
// =============================================================================

type Grade string

const (
	GradeGood    Grade = "good"    // within 10% of forecast
	GradeWarning Grade = "warning" // within 30%
	GradePoor    Grade = "poor"
	GradeNone    Grade = "none" // no usable forecast
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// SCORING
// =============================================================================

// Accuracy returns actual/forecast as a percentage, rounded to one
// decimal place. A zero or negative forecast yields 0: there is
// nothing meaningful to compare against.
func Accuracy(forecastWh, actualWh float64) float64 {
	if forecastWh <= 0 {
		return 0
	}
	pct := decimal.NewFromFloat(actualWh).
		Div(decimal.NewFromFloat(forecastWh)).
		Mul(hundred).
		Round(1)
	f, _ := pct.Float64()
	return f
}

// GradeOf buckets an accuracy percentage. Overproduction is graded by
// its distance from 100% just like underproduction: 115% is as far
// off forecast as 85%.
func GradeOf(forecastWh, actualWh float64) Grade {
	if forecastWh <= 0 {
		return GradeNone
	}
	acc := Accuracy(forecastWh, actualWh)
	dist := acc - 100
	if dist < 0 {
		dist = -dist
	}
	switch {
	case dist <= 10:
		return GradeGood
	case dist <= 30:
		return GradeWarning
	default:
		return GradePoor
	}
}

// =============================================================================
// VIEWS
// =============================================================================

// SlotScore is one slot's comparison, ready for rendering.
type SlotScore struct {
	Slot     string  `json:"time_slot"`
	Forecast float64 `json:"forecast"`
	Actual   float64 `json:"actual"`
	Accuracy float64 `json:"accuracy"`
	Grade    Grade   `json:"grade"`
}

// DayScore is one day's aggregate comparison.
type DayScore struct {
	Date     string  `json:"date"`
	Forecast float64 `json:"forecast"`
	Actual   float64 `json:"actual"`
	Accuracy float64 `json:"accuracy"`
	Grade    Grade   `json:"grade"`
}

// ForSlots scores a single day's slot map, ordered by the given slot
// list so the dashboard renders slots in collection order.
func ForSlots(values map[string]recon.SlotValues, order []recon.Slot) []SlotScore {
	out := make([]SlotScore, 0, len(values))
	seen := make(map[string]bool, len(order))
	for _, slot := range order {
		key := string(slot)
		v, ok := values[key]
		if !ok {
			continue
		}
		seen[key] = true
		out = append(out, score(key, v.Forecast, v.Actual))
	}
	// Anything not in the order list (the daily aggregate) goes last.
	var rest []SlotScore
	for key, v := range values {
		if !seen[key] {
			rest = append(rest, score(key, v.Forecast, v.Actual))
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Slot < rest[j].Slot })
	return append(out, rest...)
}

// ForSeries scores a historical range day by day.
func ForSeries(days []recon.DayTotals) []DayScore {
	out := make([]DayScore, 0, len(days))
	for _, d := range days {
		out = append(out, DayScore{
			Date:     d.Date.String(),
			Forecast: d.Forecast,
			Actual:   d.Actual,
			Accuracy: Accuracy(d.Forecast, d.Actual),
			Grade:    GradeOf(d.Forecast, d.Actual),
		})
	}
	return out
}

func score(slot string, forecast, actual float64) SlotScore {
	return SlotScore{
		Slot:     slot,
		Forecast: forecast,
		Actual:   actual,
		Accuracy: Accuracy(forecast, actual),
		Grade:    GradeOf(forecast, actual),
	}
}
