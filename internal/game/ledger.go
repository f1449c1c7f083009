package game

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/twsarcade/lotto/internal/models"
)

// Tier and round wire status values.
const (
	StatusWaiting = "waiting" // no live round; tickets may already be on the board
	StatusActive  = "active"  // round live, draw scheduled
	StatusDrawing = "drawing" // draw in progress

	roundSettled   = "settled"
	roundCancelled = "cancelled"
)

const slotsPerTier = 100

// tierPrices fixes the ticket price of each tier.
var tierPrices = map[int]int{1: 50, 2: 150, 3: 300, 4: 500}

// round is the single live game of a tier. At most one exists per tier, and
// its timer is the only source of the active -> drawing transition. The
// epoch tags the scheduled draw so a stale timer firing against a newer
// round is a safe no-op.
type round struct {
	id           uuid.UUID
	epoch        uint64
	startTime    time.Time
	drawDeadline time.Time
	status       string
	timer        *time.Timer
}

// Tier is one fixed-price pool of 100 numbered slots plus its lifecycle
// state. The mutex serializes the whole tier: a purchase, release or draw
// runs to completion without interleaving with any other operation on the
// same tier, while other tiers proceed independently.
type Tier struct {
	id    int
	price int

	mu    sync.Mutex
	slots map[int]uuid.UUID // slot number (1..100) -> owner
	round *round
	epoch uint64
}

func newTier(id, price int) *Tier {
	return &Tier{id: id, price: price, slots: make(map[int]uuid.UUID)}
}

// freeSlotsLocked returns the empty slot numbers in ascending order.
func (t *Tier) freeSlotsLocked() []int {
	free := make([]int, 0, slotsPerTier-len(t.slots))
	for n := 1; n <= slotsPerTier; n++ {
		if _, taken := t.slots[n]; !taken {
			free = append(free, n)
		}
	}
	return free
}

// ownedSlotsLocked returns the slot numbers held by owner, ascending.
func (t *Tier) ownedSlotsLocked(owner uuid.UUID) []int {
	var out []int
	for n, o := range t.slots {
		if o == owner {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

// distinctOwnersLocked counts the unique players holding slots.
func (t *Tier) distinctOwnersLocked() int {
	seen := make(map[uuid.UUID]struct{}, len(t.slots))
	for _, o := range t.slots {
		seen[o] = struct{}{}
	}
	return len(seen)
}

// snapshotLocked copies the full ownership map.
func (t *Tier) snapshotLocked() map[int]uuid.UUID {
	out := make(map[int]uuid.UUID, len(t.slots))
	for n, o := range t.slots {
		out[n] = o
	}
	return out
}

func (t *Tier) statusLocked() string {
	if t.round == nil {
		return StatusWaiting
	}
	return t.round.status
}

// infoLocked builds the public snapshot of the tier. Sold counts and the pot
// are read live, so a round's reported pot always matches the money
// actually collected so far.
func (t *Tier) infoLocked() models.TierInfo {
	sold := len(t.slots)
	info := models.TierInfo{
		Tier:          t.id,
		Price:         t.price,
		Sold:          sold,
		Available:     slotsPerTier - sold,
		UniquePlayers: t.distinctOwnersLocked(),
		Status:        t.statusLocked(),
		Pot:           sold * t.price,
	}
	if t.round != nil {
		ri := t.roundInfoLocked()
		info.Game = &ri
	}
	return info
}

func (t *Tier) roundInfoLocked() models.RoundInfo {
	return models.RoundInfo{
		ID:            t.round.id,
		Tier:          t.id,
		StartTime:     t.round.startTime,
		DrawDeadline:  t.round.drawDeadline,
		Pot:           len(t.slots) * t.price,
		TicketsSold:   len(t.slots),
		UniquePlayers: t.distinctOwnersLocked(),
		Status:        t.round.status,
	}
}
