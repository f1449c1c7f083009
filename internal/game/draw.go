package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// RandSource supplies the uniform randomness for winner selection. It is
// injected so tests can substitute deterministic sequences.
type RandSource interface {
	Intn(n int) int
}

// lockedRand wraps math/rand for use from concurrent tier draws.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// newLockedRand seeds a shared source from crypto/rand.
func newLockedRand() *lockedRand {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("game: reading random seed: " + err.Error())
	}
	seed := int64(binary.LittleEndian.Uint64(b[:]))
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// ticket is one (slot, owner) pair from a ledger snapshot.
type ticket struct {
	Slot  int
	Owner uuid.UUID
}

// soldTickets enumerates the filled slots of a snapshot in ascending slot
// order, so selection by index is deterministic given a random sequence.
func soldTickets(snapshot map[int]uuid.UUID) []ticket {
	out := make([]ticket, 0, len(snapshot))
	for slot, owner := range snapshot {
		out = append(out, ticket{Slot: slot, Owner: owner})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// selectWinner draws one ticket uniformly at random. A player holding k of
// the N sold tickets wins with probability k/N.
func selectWinner(tickets []ticket, rng RandSource) (ticket, bool) {
	if len(tickets) == 0 {
		return ticket{}, false
	}
	return tickets[rng.Intn(len(tickets))], true
}

// excludeOwner filters out every ticket held by owner. Used for the
// defensive redraw when a drawn owner's player record is missing.
func excludeOwner(tickets []ticket, owner uuid.UUID) []ticket {
	out := tickets[:0]
	for _, t := range tickets {
		if t.Owner != owner {
			out = append(out, t)
		}
	}
	return out
}

// LoserResult is one losing participant's share of a settlement.
type LoserResult struct {
	PlayerID     uuid.UUID
	Contribution int // stake spent on this round, already debited at purchase
}

// Settlement is the zero-sum outcome of one draw: the winner receives the
// full pot (own stake refunded inside it) and every other participant's net
// loss is exactly their contribution.
type Settlement struct {
	RoundID       uuid.UUID
	Tier          int
	Price         int
	Pot           int
	TicketsSold   int
	Participants  int
	WinnerID      uuid.UUID
	WinningTicket int
	WinnerStake   int
	WinnerNet     int
	Losers        []LoserResult
}

// computeSettlement derives the payout breakdown for a winning ticket over a
// ledger snapshot. The pot is soldSlots x price.
func computeSettlement(roundID uuid.UUID, tier, price int, tickets []ticket, winner ticket) *Settlement {
	counts := make(map[uuid.UUID]int)
	for _, t := range tickets {
		counts[t.Owner]++
	}

	s := &Settlement{
		RoundID:       roundID,
		Tier:          tier,
		Price:         price,
		Pot:           len(tickets) * price,
		TicketsSold:   len(tickets),
		Participants:  len(counts),
		WinnerID:      winner.Owner,
		WinningTicket: winner.Slot,
		WinnerStake:   counts[winner.Owner] * price,
	}
	s.WinnerNet = s.Pot - s.WinnerStake

	for owner, n := range counts {
		if owner == winner.Owner {
			continue
		}
		s.Losers = append(s.Losers, LoserResult{PlayerID: owner, Contribution: n * price})
	}
	sort.Slice(s.Losers, func(i, j int) bool {
		return s.Losers[i].PlayerID.String() < s.Losers[j].PlayerID.String()
	})
	return s
}
