package game

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/twsarcade/lotto/internal/models"
)

// Directory owns every player record: identity, balance and lifetime stats.
// Nothing outside the directory mutates a player. All state is in-memory;
// removal on disconnect forfeits balance and stats.
type Directory struct {
	mu      sync.RWMutex
	players map[uuid.UUID]*models.Player
	names   map[string]uuid.UUID // lowercased displayName -> player

	startingBalance int
	ticketCap       int
}

// NewDirectory creates an empty directory. startingBalance is granted to
// every new player; ticketCap bounds a player's total held tickets across
// all tiers.
func NewDirectory(startingBalance, ticketCap int) *Directory {
	return &Directory{
		players:         make(map[uuid.UUID]*models.Player),
		names:           make(map[string]uuid.UUID),
		startingBalance: startingBalance,
		ticketCap:       ticketCap,
	}
}

// Register creates a new player. Display names are unique case-insensitively;
// a clash fails with ErrDuplicateName and leaves no partial state.
func (d *Directory) Register(username, displayName string) (models.Player, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := strings.ToLower(displayName)
	if _, taken := d.names[key]; taken {
		return models.Player{}, ErrDuplicateName
	}

	p := &models.Player{
		ID:          uuid.New(),
		Username:    username,
		DisplayName: displayName,
		Balance:     d.startingBalance,
		Joined:      time.Now(),
		Tickets:     models.TicketCounts{PerTier: make(map[int]int)},
	}
	d.players[p.ID] = p
	d.names[key] = p.ID
	return snapshotPlayer(p), nil
}

// Remove deletes a player record. The caller must have already released the
// player's tickets in every tier.
func (d *Directory) Remove(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.players[id]
	if !ok {
		return
	}
	delete(d.names, strings.ToLower(p.DisplayName))
	delete(d.players, id)
}

// Get returns a copy of a player record.
func (d *Directory) Get(id uuid.UUID) (models.Player, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.players[id]
	if !ok {
		return models.Player{}, false
	}
	return snapshotPlayer(p), true
}

// Count returns the number of registered players.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.players)
}

// Debit subtracts amount from a player's balance, failing with
// ErrInsufficientBalance without mutation if the balance is too low.
func (d *Directory) Debit(id uuid.UUID, amount int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.players[id]
	if !ok {
		return 0, ErrUnknownPlayer
	}
	if p.Balance < amount {
		return p.Balance, ErrInsufficientBalance
	}
	p.Balance -= amount
	return p.Balance, nil
}

// Credit adds amount to a player's balance. Payouts can push the balance
// past the starting grant, so there is no upper bound.
func (d *Directory) Credit(id uuid.UUID, amount int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.players[id]
	if !ok {
		return 0, ErrUnknownPlayer
	}
	p.Balance += amount
	return p.Balance, nil
}

// reserveTickets atomically checks the ticket cap, balance and slot
// availability in that order, then debits cost and bumps the player's
// counters for tier. Failures leave the record untouched. Called with the
// tier lock held, which keeps the debit atomic with the slot assignment
// that follows; available is the tier's free-slot count read under that
// lock.
func (d *Directory) reserveTickets(id uuid.UUID, tier, quantity, cost, available int) (models.Player, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.players[id]
	if !ok {
		return models.Player{}, ErrNotRegistered
	}
	if p.Tickets.Total+quantity > d.ticketCap {
		return models.Player{}, ErrMaxTicketsExceeded
	}
	if p.Balance < cost {
		return models.Player{}, ErrInsufficientBalance
	}
	if quantity > available {
		return models.Player{}, ErrNotEnoughTickets
	}

	p.Balance -= cost
	p.Tickets.Total += quantity
	p.Tickets.PerTier[tier] += quantity
	return snapshotPlayer(p), nil
}

// forfeitTickets drops quantity tickets from a player's counters for tier.
// The stake is not refunded; it was spent at purchase time.
func (d *Directory) forfeitTickets(id uuid.UUID, tier, quantity int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.players[id]
	if !ok {
		return
	}
	p.Tickets.Total -= quantity
	p.Tickets.PerTier[tier] -= quantity
	if p.Tickets.PerTier[tier] <= 0 {
		delete(p.Tickets.PerTier, tier)
	}
}

// resetTierCounts zeroes every player's counter for tier after a settlement
// cleared the tier's ledger.
func (d *Directory) resetTierCounts(tier int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.players {
		if n := p.Tickets.PerTier[tier]; n > 0 {
			p.Tickets.Total -= n
			delete(p.Tickets.PerTier, tier)
		}
	}
}

// applySettlement updates the winner's and every loser's balance and stats
// in one critical section, so no reader observes a half-settled round.
func (d *Directory) applySettlement(s *Settlement) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if w, ok := d.players[s.WinnerID]; ok {
		w.Balance += s.Pot
		w.TotalWinnings += s.Pot
		w.TotalLosses += s.WinnerStake
		w.NetWinnings += s.WinnerNet
		w.GamesPlayed++
		w.GamesWon++
	}
	for _, l := range s.Losers {
		p, ok := d.players[l.PlayerID]
		if !ok {
			continue
		}
		p.GamesPlayed++
		p.TotalLosses += l.Contribution
		p.NetWinnings -= l.Contribution
	}
}

func snapshotPlayer(p *models.Player) models.Player {
	out := *p
	out.Tickets.PerTier = make(map[int]int, len(p.Tickets.PerTier))
	for tier, n := range p.Tickets.PerTier {
		out.Tickets.PerTier[tier] = n
	}
	return out
}
