/*
scheduler.go - Drift-safe daily collection scheduler

PURPOSE:
  Maintains one long-lived goroutine per configured time slot. Each runs
  the state machine Idle -> Armed(next_fire) -> Firing -> Armed(next'),
  for the process lifetime.

DEADLINE COMPUTATION:
  The next fire is an absolute wall-clock instant recomputed fresh on
  every iteration: today at the slot's time-of-day, or tomorrow if that
  instant has already passed. The wait is the difference to "now", so
  the schedule self-corrects after clock changes and never accumulates
  drift from sleep overhead. Tomorrow is computed with calendar
  arithmetic, so month and year boundaries roll over correctly.

FAILURE CONTAINMENT:
  A fire that fails (or panics) is logged and the slot re-arms for the
  following day. Scheduling never stops because one cycle failed.

SHUTDOWN:
  Stop() signals every slot goroutine and waits for them; an in-flight
  collection finishes rather than being aborted mid-write.
*/
package recon

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// =============================================================================
// TIME-OF-DAY TARGETS
// =============================================================================

// TimeOfDay is a wall-clock target within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses an HH:MM:SS string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q (use HH:MM:SS): %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// NextFire returns the next absolute instant at which a slot targeting
// the given time-of-day should fire: today at that time in now's
// location, or tomorrow if that instant is not strictly after now. The
// "not after" case covers both starting up past the slot's daily time
// and re-arming immediately after a fire.
func NextFire(now time.Time, at TimeOfDay) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(),
		at.Hour, at.Minute, at.Second, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// =============================================================================
// CLOCK - injectable for tests
// =============================================================================

// Clock abstracts the scheduler's time source.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// =============================================================================
// SCHEDULER
// =============================================================================

// CollectFunc runs one collection cycle for a slot.
type CollectFunc func(ctx context.Context, slot Slot) Outcome

// SlotState is one state of a slot's schedule machine.
type SlotState string

const (
	SlotIdle   SlotState = "idle"
	SlotArmed  SlotState = "armed"
	SlotFiring SlotState = "firing"
)

// SlotStatus is a point-in-time view of one slot's schedule, for
// liveness reporting.
type SlotStatus struct {
	Slot       Slot
	At         TimeOfDay
	State      SlotState
	NextFire   time.Time
	LastFire   time.Time
	LastStatus Status
}

// Scheduler drives the per-slot collection timers. Slots are fully
// independent: no cross-slot ordering exists or is needed.
type Scheduler struct {
	// Clock may be replaced before Start for tests.
	Clock Clock

	collect CollectFunc
	times   map[Slot]TimeOfDay

	mu     sync.Mutex
	status map[Slot]*SlotStatus

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
	stopped bool
}

// NewScheduler creates a scheduler firing collect at each slot's
// time-of-day.
func NewScheduler(collect CollectFunc, times map[Slot]TimeOfDay) *Scheduler {
	status := make(map[Slot]*SlotStatus, len(times))
	for slot, at := range times {
		status[slot] = &SlotStatus{Slot: slot, At: at, State: SlotIdle}
	}
	return &Scheduler{
		Clock:   systemClock{},
		collect: collect,
		times:   times,
		status:  status,
		stop:    make(chan struct{}),
	}
}

// Start launches one goroutine per slot. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	for slot, at := range s.times {
		s.wg.Add(1)
		go s.runSlot(slot, at)
	}

	log.Printf("[Scheduler] started %d slot timers", len(s.times))
}

// Stop signals every slot goroutine and waits for in-flight collections
// to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
	log.Println("[Scheduler] stopped")
}

// Snapshot returns the current state of every slot, ordered by
// time-of-day.
func (s *Scheduler) Snapshot() []SlotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SlotStatus, 0, len(s.status))
	for _, st := range s.status {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].At, out[j].At
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		if a.Minute != b.Minute {
			return a.Minute < b.Minute
		}
		return a.Second < b.Second
	})
	return out
}

func (s *Scheduler) runSlot(slot Slot, at TimeOfDay) {
	defer s.wg.Done()

	for {
		now := s.Clock.Now()
		next := NextFire(now, at)
		s.transition(slot, SlotArmed, next)
		log.Printf("[Scheduler] %s armed for %s", slot, next.Format(time.RFC3339))

		select {
		case <-s.Clock.After(next.Sub(now)):
			s.transition(slot, SlotFiring, next)
			s.fire(slot)
		case <-s.stop:
			return
		}
	}
}

// fire runs one collection, containing any failure to this cycle.
func (s *Scheduler) fire(slot Slot) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Scheduler] panic in %s collection: %v", slot, r)
			s.recordFire(slot, StatusFailed)
		}
	}()

	out := s.collect(context.Background(), slot)
	log.Printf("[Scheduler] %s: %s", slot, out.Message())
	s.recordFire(slot, out.Status)
}

func (s *Scheduler) transition(slot Slot, state SlotState, next time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.status[slot]; ok {
		st.State = state
		st.NextFire = next
	}
}

func (s *Scheduler) recordFire(slot Slot, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.status[slot]; ok {
		st.LastFire = s.Clock.Now()
		st.LastStatus = status
	}
}
