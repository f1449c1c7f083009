package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twsarcade/lotto/internal/game"
)

func setupServer(t *testing.T) (*httptest.Server, *game.Manager) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	manager := game.NewManager(game.NewDirectory(1000, 50), game.NewHistory(100), game.Options{
		DrawInterval: time.Hour,
		Logger:       log,
	})
	gw := New(manager, log)

	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	t.Cleanup(srv.Close)
	return srv, manager
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, payload map[string]interface{}) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(map[string]interface{}{"type": msgType, "payload": payload})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

// waitForEvent reads frames until one of the wanted type arrives, skipping
// unrelated broadcasts.
func waitForEvent(t *testing.T, conn *websocket.Conn, want game.EventType) game.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "timed out waiting for %s", want)

		var ev game.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Type == want {
			return ev
		}
	}
}

func TestConnectGreeting(t *testing.T) {
	srv, _ := setupServer(t)
	conn := dial(t, srv)

	ev := waitForEvent(t, conn, game.EventConnected)
	assert.Equal(t, "Welcome to TWS Lotto", ev.Payload["message"])
	assert.NotEmpty(t, ev.Payload["playerId"])

	online := waitForEvent(t, conn, game.EventPlayersOnline)
	assert.Equal(t, float64(1), online.Payload["count"])
}

func TestRegisterFlow(t *testing.T) {
	srv, _ := setupServer(t)
	conn := dial(t, srv)
	waitForEvent(t, conn, game.EventConnected)

	sendMsg(t, conn, "register", map[string]interface{}{
		"username": "alice01", "displayName": "Alice",
	})
	ev := waitForEvent(t, conn, game.EventRegistered)
	player, ok := ev.Payload["player"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Alice", player["displayName"])
	assert.Equal(t, float64(1000), player["balance"])

	// A second connection taking the same name case-insensitively fails.
	conn2 := dial(t, srv)
	waitForEvent(t, conn2, game.EventConnected)
	sendMsg(t, conn2, "register", map[string]interface{}{
		"username": "impostor", "displayName": "alice",
	})
	errEv := waitForEvent(t, conn2, game.EventError)
	assert.Equal(t, "DuplicateName", errEv.Payload["kind"])
}

func TestBuyRequiresRegistration(t *testing.T) {
	srv, _ := setupServer(t)
	conn := dial(t, srv)
	waitForEvent(t, conn, game.EventConnected)

	sendMsg(t, conn, "buy-tickets", map[string]interface{}{"tier": 1, "quantity": 1})
	ev := waitForEvent(t, conn, game.EventError)
	assert.Equal(t, "NotRegistered", ev.Payload["kind"])
}

func TestBuyTicketsFlow(t *testing.T) {
	srv, _ := setupServer(t)
	conn := dial(t, srv)
	waitForEvent(t, conn, game.EventConnected)

	sendMsg(t, conn, "register", map[string]interface{}{
		"username": "alice01", "displayName": "Alice",
	})
	waitForEvent(t, conn, game.EventRegistered)

	sendMsg(t, conn, "buy-tickets", map[string]interface{}{"tier": 1, "quantity": 2})

	balance := waitForEvent(t, conn, game.EventBalanceUpdated)
	assert.Equal(t, float64(900), balance.Payload["balance"])

	tickets := waitForEvent(t, conn, game.EventTicketsUpdated)
	assert.Equal(t, float64(2), tickets.Payload["total"])

	purchased := waitForEvent(t, conn, game.EventTicketPurchased)
	assert.Equal(t, float64(1), purchased.Payload["tier"])
	assert.Equal(t, "Alice", purchased.Payload["playerName"])

	update := waitForEvent(t, conn, game.EventTierUpdate)
	assert.NotNil(t, update.Payload["status"])

	// Rejections come back on the same connection.
	sendMsg(t, conn, "buy-tickets", map[string]interface{}{"tier": 9, "quantity": 1})
	errEv := waitForEvent(t, conn, game.EventError)
	assert.Equal(t, "InvalidTier", errEv.Payload["kind"])
}

func TestTierInfoDefaultsToTierOne(t *testing.T) {
	srv, _ := setupServer(t)
	conn := dial(t, srv)
	waitForEvent(t, conn, game.EventConnected)

	sendMsg(t, conn, "get-tier-info", map[string]interface{}{})
	ev := waitForEvent(t, conn, game.EventTierInfo)
	assert.Equal(t, float64(1), ev.Payload["tier"])
	assert.Equal(t, float64(50), ev.Payload["price"])
	assert.Equal(t, float64(100), ev.Payload["available"])
	assert.Equal(t, "waiting", ev.Payload["status"])
}

func TestDisconnectReleasesTickets(t *testing.T) {
	srv, manager := setupServer(t)

	conn := dial(t, srv)
	waitForEvent(t, conn, game.EventConnected)
	sendMsg(t, conn, "register", map[string]interface{}{
		"username": "alice01", "displayName": "Alice",
	})
	waitForEvent(t, conn, game.EventRegistered)
	sendMsg(t, conn, "buy-tickets", map[string]interface{}{"tier": 1, "quantity": 1})
	waitForEvent(t, conn, game.EventBalanceUpdated)

	// A second observer connection stays up to see the fan-out.
	observer := dial(t, srv)
	waitForEvent(t, observer, game.EventConnected)

	conn.Close(websocket.StatusNormalClosure, "")

	released := waitForEvent(t, observer, game.EventTicketReleased)
	assert.Equal(t, float64(1), released.Payload["tier"])
	assert.Equal(t, float64(1), released.Payload["ticketId"])

	online := waitForEvent(t, observer, game.EventPlayersOnline)
	assert.Equal(t, float64(1), online.Payload["count"])

	require.Eventually(t, func() bool {
		info, err := manager.TierInfo(1)
		return err == nil && info.Sold == 0
	}, 2*time.Second, 10*time.Millisecond)
}
