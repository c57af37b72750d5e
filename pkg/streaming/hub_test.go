package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/matchradar/pkg/alerts"
	"github.com/phenomenon0/matchradar/pkg/match"
)

func startHub(t *testing.T, cfg HubConfig) (*Hub, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(cfg)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return hub, conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestAlertNotifierBroadcasts(t *testing.T) {
	var clients int32
	hub, conn := startHub(t, HubConfig{OnClientsChange: func(n int) { atomic.StoreInt32(&clients, int32(n)) }})
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&clients) == 1 }, time.Second, 5*time.Millisecond)

	n := AlertNotifier{Hub: hub}
	n.Notify(context.Background(), alerts.Alert{
		ID:       "a-1",
		MatchID:  "7",
		Kind:     alerts.KindCritical,
		Snapshot: match.Snapshot{ID: "7", Clock: match.Running(60)},
	})

	ev := readEvent(t, conn)
	assert.Equal(t, EventTypeAlert, ev.Type)
	data, ok := ev.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "7", data["match_id"])
	assert.Equal(t, "critical", data["kind"])

	n.Armed(context.Background(), 2, alerts.OpportunityTone())
	ev = readEvent(t, conn)
	assert.Equal(t, EventTypeRadar, ev.Type)
}

func TestUnsubscribe(t *testing.T) {
	hub, conn := startHub(t, HubConfig{})

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   "unsubscribe",
		"events": []string{"alert"},
	}))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		subscribed := 0
		for c := range hub.clients {
			if c.isSubscribed(EventTypeAlert) {
				subscribed++
			}
		}
		return len(hub.clients) == 1 && subscribed == 0
	}, time.Second, 5*time.Millisecond)

	hub.Publish(EventTypeAlert, "ignored")
	hub.Publish(EventTypeStatus, map[string]string{"mode": "demo"})

	ev := readEvent(t, conn)
	assert.Equal(t, EventTypeStatus, ev.Type)
}

func TestHeartbeat(t *testing.T) {
	_, conn := startHub(t, HubConfig{Heartbeat: 20 * time.Millisecond})

	ev := readEvent(t, conn)
	assert.Equal(t, EventTypeHeartbeat, ev.Type)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, conn := startHub(t, HubConfig{})
	conn.Close()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSlowClientDropReportsCount(t *testing.T) {
	var clients int32 = -1
	hub := NewHub(HubConfig{OnClientsChange: func(n int) { atomic.StoreInt32(&clients, int32(n)) }})

	slow := &Client{hub: hub, send: make(chan []byte), subscriptions: map[EventType]bool{EventTypeAlert: true}}
	idle := &Client{hub: hub, send: make(chan []byte, 1), subscriptions: map[EventType]bool{}}
	hub.clients[slow] = true
	hub.clients[idle] = true

	hub.broadcastEvent(Event{Type: EventTypeAlert, Timestamp: time.Now()})

	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, int32(1), atomic.LoadInt32(&clients))
	_, open := <-slow.send
	assert.False(t, open, "slow client's queue is closed")
}
