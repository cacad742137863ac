/*
client.go - Home Assistant state API client

PURPOSE:
  Implements Reader against the Home Assistant REST API. One authenticated
  GET per entity with a short fixed timeout; no retries - the entity
  resolver's fallback chain is the recovery mechanism.

ENDPOINT:
  GET {base}/api/states/{entity_id}
  Authorization: Bearer {token}

  The response carries the state as a JSON string for regular sensors, but
  some integrations report bare numbers; both are accepted.

FAILURE MAPPING:
  Timeouts, connection errors and non-200 responses all surface as
  ErrTransport-classed errors. The caller treats them like an unavailable
  reading and continues down its candidate list.
*/
package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single state read. Kept short so one dead
// candidate cannot stall a collection cycle.
const DefaultTimeout = 10 * time.Second

// Client reads entity states from a Home Assistant instance.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given base URL (e.g.
// "http://supervisor/core") and long-lived access token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

// APIError is a non-200 response from the state API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrTransport
}

// Read fetches the current state of one entity.
func (c *Client) Read(ctx context.Context, entityID string) (Reading, error) {
	url := c.baseURL + "/api/states/" + entityID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Reading{}, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return Reading{}, &APIError{StatusCode: resp.StatusCode, Message: "authentication failed, check the access token"}
	}
	if resp.StatusCode != http.StatusOK {
		return Reading{}, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var payload struct {
		State any `json:"state"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Reading{}, fmt.Errorf("%w: parsing response for %s: %v", ErrTransport, entityID, err)
	}

	return Reading{EntityID: entityID, State: stateString(payload.State)}, nil
}

// stateString normalizes the wire state, which is a string for most
// sensors but a bare number for a few integrations.
func stateString(state any) string {
	switch s := state.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
