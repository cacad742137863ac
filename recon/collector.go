/*
collector.go - One collection cycle

PURPOSE:
  Orchestrates a single collection for one time slot: resolve the
  forecast and actual values through their fallback chains, write the
  slot record, and on the terminal slot record the daily aggregate.

DEGRADED-MODE POLICY (intentional, not bugs):
  - Forecast is mandatory. Unresolvable forecast fails the cycle and
    writes nothing.
  - Actual production is best-effort. Unresolvable actual is recorded
    as zero and the cycle continues.
  - The daily aggregate is only written when the upstream daily-total
    signal resolves; otherwise it is silently skipped. No zero fill -
    daily totals are recorded only when the signal is trustworthy.

FAILURE CONTAINMENT:
  Collect never panics and never returns a Go error; it returns an
  Outcome whose status the caller logs or reports. A failed cycle must
  not crash the process or block subsequent cycles.
*/
package recon

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/solarwatch/pv-compare/sensor"
)

// Resolver resolves one logical quantity through an ordered candidate
// chain. Satisfied by *sensor.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, candidates []string) (sensor.Resolution, error)
}

// Quantities holds the ordered candidate entity lists for the three
// logical quantities, and which slot closes the day.
type Quantities struct {
	ForecastEntities   []string
	ProductionEntities []string
	DailyEntities      []string
	TerminalSlot       Slot
}

// Status classifies a collection outcome.
type Status string

const (
	// StatusSuccess: slot record written with both resolved values.
	StatusSuccess Status = "success"
	// StatusPartial: slot record written but degraded (actual substituted
	// with zero, or a secondary write failed).
	StatusPartial Status = "partial"
	// StatusFailed: nothing written.
	StatusFailed Status = "failed"
)

// Outcome reports what one collection cycle did. It is log-worthy data,
// not an error value; Err is populated only alongside StatusFailed or a
// degraded StatusPartial.
type Outcome struct {
	Slot          Slot
	Date          Date
	Status        Status
	ForecastWh    float64
	ActualWh      float64
	ActualMissing bool
	DailyWritten  bool
	DailyActualWh float64
	Err           error
}

// Message renders the outcome for humans (manual-trigger responses and
// logs).
func (o Outcome) Message() string {
	switch o.Status {
	case StatusFailed:
		return fmt.Sprintf("collection for %s failed: %v", o.Slot, o.Err)
	case StatusPartial:
		if o.Err != nil {
			return fmt.Sprintf("data collected for %s with errors: %v", o.Slot, o.Err)
		}
		return fmt.Sprintf("data collected for %s (production unavailable, recorded as 0)", o.Slot)
	default:
		return fmt.Sprintf("data collected for %s", o.Slot)
	}
}

// Collector runs collection cycles. Safe for concurrent use: a scheduled
// fire and a manual trigger for the same (date, slot) resolve to
// last-write-wins through the store's atomic upserts.
type Collector struct {
	resolver   Resolver
	store      Store
	quantities Quantities

	// now is the clock used to stamp the reconciliation date. Overridden
	// in tests.
	now func() time.Time
}

// NewCollector creates a collector over the given resolver and store.
func NewCollector(resolver Resolver, store Store, quantities Quantities) *Collector {
	return &Collector{
		resolver:   resolver,
		store:      store,
		quantities: quantities,
		now:        time.Now,
	}
}

// Collect runs one cycle for the given slot against today's date.
func (c *Collector) Collect(ctx context.Context, slot Slot) Outcome {
	date := DateOf(c.now())
	out := Outcome{Slot: slot, Date: date, Status: StatusSuccess}

	log.Printf("[Collector] collecting %s for %s", slot, date)

	// Forecast is mandatory: no forecast, no record.
	forecast, err := c.resolver.Resolve(ctx, c.quantities.ForecastEntities)
	if err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("%w: %v", ErrForecastUnavailable, err)
		return out
	}
	out.ForecastWh = forecast.Value
	log.Printf("[Collector] forecast %.1fWh from %s", forecast.Value, forecast.EntityID)

	// Actual production is best-effort: unresolvable degrades to zero.
	actual, err := c.resolver.Resolve(ctx, c.quantities.ProductionEntities)
	if err != nil {
		out.ActualMissing = true
		out.Status = StatusPartial
		log.Printf("[Collector] production unresolvable, recording 0: %v", err)
	} else {
		out.ActualWh = actual.Value
		log.Printf("[Collector] production %.1fWh from %s", actual.Value, actual.EntityID)
	}

	if err := c.store.UpsertSlot(ctx, date, slot, out.ForecastWh, out.ActualWh); err != nil {
		out.Status = StatusFailed
		out.Err = err
		return out
	}

	if slot == c.quantities.TerminalSlot {
		c.collectDaily(ctx, date, &out)
	}

	return out
}

// collectDaily records the daily aggregate from the independent
// daily-total signal. The slot record from this cycle's forecast stands
// in as the daily forecast.
func (c *Collector) collectDaily(ctx context.Context, date Date, out *Outcome) {
	daily, err := c.resolver.Resolve(ctx, c.quantities.DailyEntities)
	if err != nil {
		// Skipped, not zero-filled: an absent daily total is better than
		// a wrong one.
		log.Printf("[Collector] daily total unresolvable, skipping daily record: %v", err)
		return
	}

	if err := c.store.UpsertDaily(ctx, date, out.ForecastWh, daily.Value); err != nil {
		// The slot record is already committed; report the cycle as
		// degraded rather than failed.
		out.Status = StatusPartial
		out.Err = err
		return
	}

	out.DailyWritten = true
	out.DailyActualWh = daily.Value
	log.Printf("[Collector] daily total %.1fWh from %s", daily.Value, daily.EntityID)
}
