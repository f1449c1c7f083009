package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/twsarcade/lotto/internal/cache"
	"github.com/twsarcade/lotto/internal/models"
)

// historyBroadcastLen bounds the history slice embedded in game-finished
// events; the full log stays queryable over the status API.
const historyBroadcastLen = 10

// Options configures a Manager. Zero values fall back to production
// defaults.
type Options struct {
	DrawInterval  time.Duration // delay between activation and draw (default 30m)
	CountdownTick time.Duration // cadence of countdown-update broadcasts (default 1s)
	Rand          RandSource    // winner selection randomness (default crypto-seeded)
	Logger        *logrus.Logger
}

// Manager drives the four tier lotteries: purchase arbitration, the
// per-tier lifecycle state machine, scheduled draws and settlement. Each
// tier is serialized independently; the manager itself holds no lock.
type Manager struct {
	log       *logrus.Logger
	directory *Directory
	history   *History
	tiers     map[int]*Tier
	rng       RandSource

	drawInterval  time.Duration
	countdownTick time.Duration

	// Communication callbacks, wired by the gateway after construction.
	BroadcastFn         BroadcastFunc
	BroadcastToPlayerFn BroadcastToPlayerFunc
}

// NewManager creates a manager over the given directory and history.
func NewManager(directory *Directory, history *History, opts Options) *Manager {
	if opts.DrawInterval <= 0 {
		opts.DrawInterval = 30 * time.Minute
	}
	if opts.CountdownTick <= 0 {
		opts.CountdownTick = time.Second
	}
	if opts.Rand == nil {
		opts.Rand = newLockedRand()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	m := &Manager{
		log:           opts.Logger,
		directory:     directory,
		history:       history,
		tiers:         make(map[int]*Tier, len(tierPrices)),
		rng:           opts.Rand,
		drawInterval:  opts.DrawInterval,
		countdownTick: opts.CountdownTick,
	}
	for id, price := range tierPrices {
		m.tiers[id] = newTier(id, price)
	}
	return m
}

// Directory exposes the player directory.
func (m *Manager) Directory() *Directory { return m.directory }

// History exposes the settled-round log.
func (m *Manager) History() *History { return m.history }

// RegisterPlayer creates a new player record.
func (m *Manager) RegisterPlayer(username, displayName string) (models.Player, error) {
	p, err := m.directory.Register(username, displayName)
	if err != nil {
		return models.Player{}, err
	}
	m.log.WithFields(logrus.Fields{"player": p.ID, "displayName": p.DisplayName}).Info("player registered")
	return p, nil
}

// Player returns a snapshot of a player record.
func (m *Manager) Player(id uuid.UUID) (models.Player, bool) {
	return m.directory.Get(id)
}

// TierInfo returns the public snapshot of one tier.
func (m *Manager) TierInfo(tierID int) (models.TierInfo, error) {
	t, ok := m.tiers[tierID]
	if !ok {
		return models.TierInfo{}, ErrInvalidTier
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.infoLocked(), nil
}

// AllTierInfo returns the snapshots of all four tiers in tier order.
func (m *Manager) AllTierInfo() []models.TierInfo {
	out := make([]models.TierInfo, 0, len(m.tiers))
	for id := 1; id <= len(m.tiers); id++ {
		t := m.tiers[id]
		t.mu.Lock()
		out = append(out, t.infoLocked())
		t.mu.Unlock()
	}
	return out
}

// BuyTickets purchases quantity tickets in a tier for a player. Validation,
// slot selection, balance debit, counter updates and possible round
// activation all run under the tier lock, so no two concurrent purchases can
// claim overlapping slots. On success the
// resulting events are emitted after the ledger mutation completes; on
// failure nothing is mutated and no event is emitted.
func (m *Manager) BuyTickets(playerID uuid.UUID, tierID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	t, ok := m.tiers[tierID]
	if !ok {
		return ErrInvalidTier
	}

	t.mu.Lock()
	free := t.freeSlotsLocked()

	// Atomic against concurrent purchases by the same player on other
	// tiers: cap check, balance check and debit happen in one directory
	// critical section.
	player, err := m.directory.reserveTickets(playerID, tierID, quantity, quantity*t.price, len(free))
	if err != nil {
		t.mu.Unlock()
		return err
	}

	assigned := free[:quantity]
	for _, slot := range assigned {
		t.slots[slot] = playerID
	}

	var started *models.RoundInfo
	if t.round == nil && t.distinctOwnersLocked() >= 2 {
		ri := m.startRoundLocked(t)
		started = &ri
	}
	t.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"player": playerID, "tier": tierID, "quantity": quantity, "slots": assigned,
	}).Info("tickets purchased")

	m.sendToPlayer(playerID, Event{Type: EventBalanceUpdated, Payload: map[string]interface{}{
		"balance": player.Balance,
	}})
	m.sendToPlayer(playerID, Event{Type: EventTicketsUpdated, Payload: map[string]interface{}{
		"total":   player.Tickets.Total,
		"perTier": player.Tickets.PerTier,
	}})
	for _, slot := range assigned {
		m.broadcast(Event{Type: EventTicketPurchased, Payload: map[string]interface{}{
			"tier":       tierID,
			"ticketId":   slot,
			"playerName": player.DisplayName,
		}})
	}
	m.broadcastTierUpdate()

	if started != nil {
		m.log.WithFields(logrus.Fields{"tier": tierID, "round": started.ID}).Info("round activated")
		m.broadcast(Event{Type: EventGameStarted, Payload: map[string]interface{}{
			"tier":    tierID,
			"game":    started,
			"message": fmt.Sprintf("Tier %d game started! Draw in %s.", tierID, m.drawInterval),
		}})
	}
	return nil
}

// startRoundLocked activates a round on t and schedules its single draw.
// Fires at most once per round: the caller checks t.round == nil under the
// tier lock. The timer closure carries the round epoch so a leftover timer
// can never touch a newer round.
func (m *Manager) startRoundLocked(t *Tier) models.RoundInfo {
	t.epoch++
	epoch := t.epoch
	now := time.Now()
	r := &round{
		id:           uuid.New(),
		epoch:        epoch,
		startTime:    now,
		drawDeadline: now.Add(m.drawInterval),
		status:       StatusActive,
	}
	r.timer = time.AfterFunc(m.drawInterval, func() {
		m.drawTimerFired(t.id, epoch)
	})
	t.round = r
	go m.runCountdown(t, epoch, r.drawDeadline)
	return t.roundInfoLocked()
}

// runCountdown broadcasts countdown-update once per tick while the round it
// was started for is still live.
func (m *Manager) runCountdown(t *Tier, epoch uint64, deadline time.Time) {
	ticker := time.NewTicker(m.countdownTick)
	defer ticker.Stop()

	for range ticker.C {
		t.mu.Lock()
		live := t.round != nil && t.round.epoch == epoch
		t.mu.Unlock()
		if !live {
			return
		}

		left := int(time.Until(deadline).Round(time.Second) / time.Second)
		if left < 0 {
			left = 0
		}
		m.broadcast(Event{Type: EventCountdownUpdate, Payload: map[string]interface{}{
			"tier":            t.id,
			"timeLeftSeconds": left,
		}})
		if left == 0 {
			return
		}
	}
}

// drawTimerFired handles the scheduled draw for a tier. It is the only
// source of the active -> drawing transition. The ownership snapshot is
// re-read here, not frozen at activation, so tickets bought after the round
// started are eligible to win.
func (m *Manager) drawTimerFired(tierID int, epoch uint64) {
	t := m.tiers[tierID]

	t.mu.Lock()
	if t.round == nil || t.round.epoch != epoch {
		t.mu.Unlock()
		m.log.WithFields(logrus.Fields{"tier": tierID, "epoch": epoch}).Warn("stale draw timer ignored")
		return
	}
	r := t.round

	// Defensive path: everything sold was released before the draw.
	if len(t.slots) == 0 {
		t.round = nil
		t.mu.Unlock()
		m.log.WithField("tier", tierID).Info("round cancelled, no tickets sold at draw time")
		m.broadcast(Event{Type: EventGameCancelled, Payload: map[string]interface{}{
			"tier":    tierID,
			"message": fmt.Sprintf("Tier %d game cancelled: no tickets in play.", tierID),
		}})
		m.broadcastTierUpdate()
		m.archiveRound(cache.RoundRecord{
			RoundID: r.id, Tier: tierID, Status: roundCancelled, Timestamp: time.Now().UnixMilli(),
		})
		return
	}

	r.status = StatusDrawing
	tickets := soldTickets(t.snapshotLocked())

	// Draw, excluding any owner whose player record is missing. That state
	// should be structurally impossible (disconnect releases tickets before
	// removing the player) so it is logged loudly and redrawn.
	var winner ticket
	var winnerRec models.Player
	for {
		w, ok := selectWinner(tickets, m.rng)
		if !ok {
			// Every sold ticket belonged to a missing player. Clear the
			// board and cancel instead of settling against nobody.
			m.log.WithField("tier", tierID).Error("engine inconsistency: no drawable owner remains, cancelling round")
			t.slots = make(map[int]uuid.UUID)
			t.round = nil
			m.directory.resetTierCounts(tierID)
			t.mu.Unlock()
			m.broadcast(Event{Type: EventGameCancelled, Payload: map[string]interface{}{
				"tier":    tierID,
				"message": fmt.Sprintf("Tier %d game cancelled.", tierID),
			}})
			m.broadcastTierUpdate()
			m.archiveRound(cache.RoundRecord{
				RoundID: r.id, Tier: tierID, Status: roundCancelled, Timestamp: time.Now().UnixMilli(),
			})
			return
		}
		rec, exists := m.directory.Get(w.Owner)
		if exists {
			winner, winnerRec = w, rec
			break
		}
		m.log.WithFields(logrus.Fields{"tier": tierID, "owner": w.Owner}).Error("engine inconsistency: drawn owner has no player record, redrawing")
		tickets = excludeOwner(tickets, w.Owner)
	}

	settlement := computeSettlement(r.id, t.id, t.price, tickets, winner)
	m.directory.applySettlement(settlement)

	entry := models.HistoryEntry{
		Tier:          t.id,
		Timestamp:     time.Now(),
		WinnerName:    winnerRec.DisplayName,
		WinningTicket: settlement.WinningTicket,
		Pot:           settlement.Pot,
		Participants:  settlement.Participants,
		TicketsSold:   settlement.TicketsSold,
	}
	m.history.Append(entry)

	// Reset the ledger for the next round. The counter reset happens while
	// the tier lock is still held so no purchase can observe cleared slots
	// with stale per-tier counters.
	t.slots = make(map[int]uuid.UUID)
	t.round = nil
	m.directory.resetTierCounts(tierID)
	t.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"tier": tierID, "round": r.id, "winner": settlement.WinnerID,
		"ticket": settlement.WinningTicket, "pot": settlement.Pot,
	}).Info("round settled")

	m.broadcast(Event{Type: EventGameFinished, Payload: map[string]interface{}{
		"tier":          t.id,
		"winner":        winnerRec.DisplayName,
		"winningTicket": settlement.WinningTicket,
		"pot":           settlement.Pot,
		"netWinnings":   settlement.WinnerNet,
		"history":       m.history.Recent(historyBroadcastLen),
	}})
	m.sendToPlayer(settlement.WinnerID, Event{Type: EventGameWon, Payload: map[string]interface{}{
		"tier":        t.id,
		"amount":      settlement.Pot,
		"netWinnings": settlement.WinnerNet,
		"ticket":      settlement.WinningTicket,
	}})
	for _, l := range settlement.Losers {
		m.sendToPlayer(l.PlayerID, Event{Type: EventGameLost, Payload: map[string]interface{}{
			"tier":          t.id,
			"amount":        l.Contribution,
			"winner":        winnerRec.DisplayName,
			"winningTicket": settlement.WinningTicket,
		}})
	}
	m.broadcastTierUpdate()

	m.archiveRound(cache.RoundRecord{
		RoundID:       r.id,
		Tier:          t.id,
		Status:        roundSettled,
		WinnerID:      settlement.WinnerID,
		WinnerName:    winnerRec.DisplayName,
		WinningTicket: settlement.WinningTicket,
		Pot:           settlement.Pot,
		TicketsSold:   settlement.TicketsSold,
		Participants:  settlement.Participants,
		Timestamp:     time.Now().UnixMilli(),
	})
}

// DisconnectPlayer releases the player's tickets in every tier without
// refund, then removes the player record. A live round is never cancelled
// here; if the release empties the board the scheduled timer takes the
// defensive cancellation path when it fires.
func (m *Manager) DisconnectPlayer(playerID uuid.UUID) {
	type freedSlot struct{ tier, slot int }
	var freed []freedSlot

	for id := 1; id <= len(m.tiers); id++ {
		t := m.tiers[id]
		t.mu.Lock()
		owned := t.ownedSlotsLocked(playerID)
		for _, slot := range owned {
			delete(t.slots, slot)
			freed = append(freed, freedSlot{tier: id, slot: slot})
		}
		if len(owned) > 0 {
			m.directory.forfeitTickets(playerID, id, len(owned))
		}
		t.mu.Unlock()
	}
	m.directory.Remove(playerID)

	if len(freed) == 0 {
		return
	}
	m.log.WithFields(logrus.Fields{"player": playerID, "released": len(freed)}).Info("tickets released on disconnect")
	for _, f := range freed {
		m.broadcast(Event{Type: EventTicketReleased, Payload: map[string]interface{}{
			"tier":     f.tier,
			"ticketId": f.slot,
		}})
	}
	m.broadcastTierUpdate()
}

// broadcastTierUpdate emits one tier-update per tier with a fresh snapshot.
func (m *Manager) broadcastTierUpdate() {
	for _, info := range m.AllTierInfo() {
		m.broadcast(Event{Type: EventTierUpdate, Payload: map[string]interface{}{
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
}

// broadcast sends an event to all connected players via the BroadcastFn
// callback.
func (m *Manager) broadcast(ev Event) {
	if m.BroadcastFn != nil {
		m.BroadcastFn(ev)
	}
}

// sendToPlayer sends an event to a single player via the
// BroadcastToPlayerFn callback.
func (m *Manager) sendToPlayer(playerID uuid.UUID, ev Event) {
	if m.BroadcastToPlayerFn != nil {
		m.BroadcastToPlayerFn(playerID, ev)
	}
}

// archiveRound asynchronously publishes a round record to the archive.
// Failures are logged, never surfaced to players.
func (m *Manager) archiveRound(rec cache.RoundRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishRoundRecord(ctx, rec); err != nil {
			m.log.WithError(err).WithField("round", rec.RoundID).Error("failed publishing round record")
		}
	}()
}
