package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarwatch/pv-compare/recon"
)

// dialHub starts a test server around the hub and dials it.
func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		server.Close()
	})
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients", n)
}

func TestHub_BroadcastOutcomeReachesAllClients(t *testing.T) {
	hub := NewHub()
	a := dialHub(t, hub)
	b := dialHub(t, hub)
	waitForClients(t, hub, 2)

	hub.BroadcastOutcome(recon.Outcome{
		Slot:       "4am",
		Date:       recon.Date{Year: 2025, Month: 3, Day: 10},
		Status:     recon.StatusSuccess,
		ForecastWh: 5000,
		ActualWh:   4200,
	})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev CollectionEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, "collection", ev.Type)
		assert.Equal(t, "4am", ev.TimeSlot)
		assert.Equal(t, "2025-03-10", ev.Date)
		assert.Equal(t, "success", ev.Status)
		assert.Equal(t, 5000.0, ev.Forecast)
		assert.Equal(t, 4200.0, ev.Actual)
	}
}

func TestHub_ClientCloseUnregisters(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Broadcasting to an empty hub is a no-op.
	hub.BroadcastOutcome(recon.Outcome{Slot: "4am", Status: recon.StatusFailed})
	assert.Equal(t, 0, hub.ClientCount())
}
