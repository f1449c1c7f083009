package game

import "github.com/google/uuid"

// EventType represents the type of a lotto event broadcast via WebSockets.
type EventType string

// Constants defining the various Event types used for WebSocket communication.
const (
	EventConnected       EventType = "connected"        // Private: connection greeting, pre-registration.
	EventRegistered      EventType = "registered"       // Private: registration succeeded.
	EventError           EventType = "error"            // Private: request rejected.
	EventTierInfo        EventType = "tier-info"        // Private: snapshot of one tier.
	EventBalanceUpdated  EventType = "balance-updated"  // Private: balance changed after a purchase.
	EventTicketsUpdated  EventType = "tickets-updated"  // Private: ticket counts changed.
	EventTicketPurchased EventType = "ticket-purchased" // Public: one slot was assigned.
	EventTierUpdate      EventType = "tier-update"      // Public: tier snapshot changed.
	EventGameStarted     EventType = "game-started"     // Public: a round activated.
	EventCountdownUpdate EventType = "countdown-update" // Public: seconds left until the draw.
	EventGameFinished    EventType = "game-finished"    // Public: round settled.
	EventGameWon         EventType = "game-won"         // Private: the receiver won the round.
	EventGameLost        EventType = "game-lost"        // Private: the receiver lost the round.
	EventGameCancelled   EventType = "game-cancelled"   // Public: round cancelled (nothing sold at fire time).
	EventTicketReleased  EventType = "ticket-released"  // Public: a slot was freed on disconnect.
	EventPlayersOnline   EventType = "players-online"   // Public: connection count changed.
)

// Event is the standard structure for broadcasting state changes to clients.
type Event struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// BroadcastFunc sends an event to every connected client.
type BroadcastFunc func(ev Event)

// BroadcastToPlayerFunc sends an event to a single registered player.
type BroadcastToPlayerFunc func(playerID uuid.UUID, ev Event)
