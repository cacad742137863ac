package sensor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Reading is the raw state of one sensor entity as reported upstream.
type Reading struct {
	EntityID string
	State    string
}

// Reader fetches the current state of one sensor entity.
type Reader interface {
	Read(ctx context.Context, entityID string) (Reading, error)
}

var (
	// ErrNotFound is returned by Resolve when every candidate entity was
	// exhausted without a valid numeric reading.
	ErrNotFound = errors.New("no candidate entity yielded a valid reading")

	// ErrUnavailable marks a reading whose state is the upstream
	// unavailable/unknown sentinel or otherwise not numeric.
	ErrUnavailable = errors.New("entity state not available")

	// ErrTransport classifies request failures against the upstream API,
	// including timeouts. The resolver treats these the same as an
	// unavailable reading and moves on to the next candidate.
	ErrTransport = errors.New("sensor transport failure")
)

// Value parses the reading's state as a number. The upstream API reports
// "unavailable" or "unknown" for sensors that exist but have no usable
// state; both map to ErrUnavailable, as does any non-numeric state.
func (r Reading) Value() (float64, error) {
	state := strings.TrimSpace(r.State)
	switch state {
	case "", "unavailable", "unknown":
		return 0, fmt.Errorf("%s: %w", r.EntityID, ErrUnavailable)
	}
	v, err := strconv.ParseFloat(state, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: non-numeric state %q: %w", r.EntityID, r.State, ErrUnavailable)
	}
	return v, nil
}
