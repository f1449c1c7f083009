// Package gateway routes inbound player actions from persistent websocket
// connections into the game core and fans resulting events back out.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/twsarcade/lotto/internal/game"
)

// writeTimeout bounds a single outbound frame; a stalled client must not
// hold up a broadcast.
const writeTimeout = 5 * time.Second

// client is one live websocket connection. playerID stays Nil until the
// connection registers.
type client struct {
	sessionID uuid.UUID
	conn      *websocket.Conn

	mu       sync.Mutex // serializes writes and guards playerID
	playerID uuid.UUID
}

func (c *client) player() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

func (c *client) send(log *logrus.Logger, ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).WithField("event", ev.Type).Error("failed marshalling event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		log.WithError(err).WithField("session", c.sessionID).Debug("failed writing event")
	}
}

// Gateway tracks live connections and implements the manager's broadcast
// callbacks.
type Gateway struct {
	log     *logrus.Logger
	manager *game.Manager

	mu      sync.RWMutex
	clients map[*client]struct{}
	players map[uuid.UUID]*client
}

// New creates a gateway and wires itself into the manager's broadcast
// callbacks.
func New(manager *game.Manager, log *logrus.Logger) *Gateway {
	g := &Gateway{
		log:     log,
		manager: manager,
		clients: make(map[*client]struct{}),
		players: make(map[uuid.UUID]*client),
	}
	manager.BroadcastFn = g.Broadcast
	manager.BroadcastToPlayerFn = g.SendToPlayer
	return g
}

// Online returns the number of live connections, registered or not.
func (g *Gateway) Online() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// Broadcast sends an event to every live connection.
func (g *Gateway) Broadcast(ev game.Event) {
	g.mu.RLock()
	targets := make([]*client, 0, len(g.clients))
	for c := range g.clients {
		targets = append(targets, c)
	}
	g.mu.RUnlock()

	for _, c := range targets {
		c.send(g.log, ev)
	}
}

// SendToPlayer sends an event to one registered player, if connected.
func (g *Gateway) SendToPlayer(playerID uuid.UUID, ev game.Event) {
	g.mu.RLock()
	c, ok := g.players[playerID]
	g.mu.RUnlock()
	if ok {
		c.send(g.log, ev)
	}
}

// HandleWS upgrades an HTTP request to a websocket connection and serves it
// until the peer disconnects.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		g.log.WithError(err).Warn("websocket accept failed")
		return
	}

	c := &client{sessionID: uuid.New(), conn: conn}
	g.addClient(c)
	g.log.WithField("session", c.sessionID).Info("connection opened")

	c.send(g.log, game.Event{Type: game.EventConnected, Payload: map[string]interface{}{
		"message":   "Welcome to TWS Lotto",
		"playerId":  c.sessionID,
		"timestamp": time.Now().UnixMilli(),
	}})
	g.broadcastPlayersOnline()

	g.readLoop(r.Context(), c)

	g.removeClient(c)
	if playerID := c.player(); playerID != uuid.Nil {
		g.manager.DisconnectPlayer(playerID)
	}
	g.broadcastPlayersOnline()
	g.log.WithField("session", c.sessionID).Info("connection closed")
	conn.Close(websocket.StatusNormalClosure, "")
}

func (g *Gateway) addClient(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[c] = struct{}{}
}

func (g *Gateway) removeClient(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.clients, c)
	if c.playerID != uuid.Nil {
		delete(g.players, c.playerID)
	}
}

func (g *Gateway) broadcastPlayersOnline() {
	g.Broadcast(game.Event{Type: game.EventPlayersOnline, Payload: map[string]interface{}{
		"count": g.Online(),
	}})
}

// inbound is the wire shape of a client request.
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (g *Gateway) readLoop(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			g.sendError(c, "ValidationError", "malformed message")
			continue
		}
		g.route(c, msg)
	}
}

func (g *Gateway) route(c *client, msg inbound) {
	switch msg.Type {
	case "register":
		g.handleRegister(c, msg.Payload)
	case "get-tier-info":
		g.handleTierInfo(c, msg.Payload)
	case "buy-tickets":
		g.handleBuyTickets(c, msg.Payload)
	default:
		g.sendError(c, "ValidationError", "unknown message type: "+msg.Type)
	}
}

func (g *Gateway) handleRegister(c *client, payload json.RawMessage) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.DisplayName == "" {
		g.sendError(c, "ValidationError", "displayName is required")
		return
	}
	if c.player() != uuid.Nil {
		g.sendError(c, "AlreadyRegistered", "this connection is already registered")
		return
	}

	player, err := g.manager.RegisterPlayer(req.Username, req.DisplayName)
	if err != nil {
		g.sendError(c, game.ErrorKind(err), `name "`+req.DisplayName+`" already taken`)
		return
	}

	c.mu.Lock()
	c.playerID = player.ID
	c.mu.Unlock()
	g.mu.Lock()
	g.players[player.ID] = c
	g.mu.Unlock()

	c.send(g.log, game.Event{Type: game.EventRegistered, Payload: map[string]interface{}{
		"player": player,
	}})
}

func (g *Gateway) handleTierInfo(c *client, payload json.RawMessage) {
	req := struct {
		Tier int `json:"tier"`
	}{Tier: 1}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			g.sendError(c, "ValidationError", "malformed tier")
			return
		}
	}
	if req.Tier == 0 {
		req.Tier = 1
	}

	info, err := g.manager.TierInfo(req.Tier)
	if err != nil {
		g.sendError(c, game.ErrorKind(err), err.Error())
		return
	}
	c.send(g.log, game.Event{Type: game.EventTierInfo, Payload: map[string]interface{}{
		"tier":          info.Tier,
		"price":         info.Price,
		"sold":          info.Sold,
		"available":     info.Available,
		"uniquePlayers": info.UniquePlayers,
		"status":        info.Status,
		"pot":           info.Pot,
		"game":          info.Game,
	}})
}

func (g *Gateway) handleBuyTickets(c *client, payload json.RawMessage) {
	playerID := c.player()
	if playerID == uuid.Nil {
		g.sendError(c, "NotRegistered", "register before buying tickets")
		return
	}

	req := struct {
		Tier     int `json:"tier"`
		Quantity int `json:"quantity"`
	}{Quantity: 1}
	if err := json.Unmarshal(payload, &req); err != nil {
		g.sendError(c, "ValidationError", "malformed buy-tickets payload")
		return
	}

	if err := g.manager.BuyTickets(playerID, req.Tier, req.Quantity); err != nil {
		g.sendError(c, game.ErrorKind(err), err.Error())
	}
}

// sendError returns a rejection to the originating connection only. Other
// players never observe another connection's failures.
func (g *Gateway) sendError(c *client, kind, message string) {
	c.send(g.log, game.Event{Type: game.EventError, Payload: map[string]interface{}{
		"kind":    kind,
		"message": message,
	}})
}
