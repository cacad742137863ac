/*
errors.go - Error taxonomy for the reconciliation core

PURPOSE:
  All core error classes in one place. Sentinels are matched with
  errors.Is(); structured errors carry context and unwrap to a sentinel.

CATEGORIES:
  1. Resolution errors - no candidate entity yielded a valid reading
  2. Storage errors    - the store could not complete an atomic operation
  3. Input errors      - unknown slot labels, malformed ranges

CONTAINMENT:
  Nothing here is fatal. A resolution failure on the mandatory forecast
  quantity aborts one collection cycle; a storage failure is reported to
  the caller of the affected operation. The scheduler re-arms regardless.
*/
package recon

import (
	"errors"
	"fmt"
)

var (
	// ErrForecastUnavailable is returned in a failed Outcome when no
	// forecast entity yielded a valid reading. Forecast is mandatory, so
	// the cycle writes nothing.
	ErrForecastUnavailable = errors.New("forecast unavailable from all configured entities")

	// ErrStorage classifies any fault crossing the store boundary.
	ErrStorage = errors.New("storage failure")

	// ErrUnknownSlot is returned when a slot label is not configured.
	ErrUnknownSlot = errors.New("unknown time slot")

	// ErrInvalidRange is returned when a range query ends before it starts.
	ErrInvalidRange = errors.New("invalid range: end before start")
)

// StorageError wraps an underlying storage fault with the operation that
// failed. It unwraps to ErrStorage so callers can classify without
// depending on the driver.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return ErrStorage
}

// IsStorage returns true if the error originated at the store boundary.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}
