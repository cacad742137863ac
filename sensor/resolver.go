package sensor

import (
	"context"
	"fmt"
	"log"
)

// Resolution is a successful resolve: the value and the candidate that
// produced it.
type Resolution struct {
	EntityID string
	Value    float64
}

// Resolver implements the fallback chain over candidate entity IDs for a
// logical quantity. First valid reading wins; order is significant and
// caller-configured. No candidate is retried within one pass, and no
// quality heuristic or averaging is applied.
type Resolver struct {
	reader Reader
}

func NewResolver(reader Reader) *Resolver {
	return &Resolver{reader: reader}
}

// Resolve tries each candidate in order and returns the first valid
// numeric reading. Transport failures and unavailable states both advance
// the chain. Returns an ErrNotFound-classed error only when every
// candidate is exhausted.
func (r *Resolver) Resolve(ctx context.Context, candidates []string) (Resolution, error) {
	for _, entityID := range candidates {
		reading, err := r.reader.Read(ctx, entityID)
		if err != nil {
			log.Printf("[Resolver] %s: %v", entityID, err)
			continue
		}

		value, err := reading.Value()
		if err != nil {
			log.Printf("[Resolver] %s: %v", entityID, err)
			continue
		}

		return Resolution{EntityID: entityID, Value: value}, nil
	}

	return Resolution{}, fmt.Errorf("%w (tried %d candidates)", ErrNotFound, len(candidates))
}
