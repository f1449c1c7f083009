package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndDuplicateName(t *testing.T) {
	d := NewDirectory(1000, 50)

	p, err := d.Register("bob99", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1000, p.Balance)
	assert.Equal(t, "bob", p.DisplayName)
	assert.Zero(t, p.GamesPlayed)
	assert.Zero(t, p.Tickets.Total)

	// Case-insensitive clash, no partial state.
	_, err = d.Register("bob2", "Bob")
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Equal(t, 1, d.Count())

	// The name frees up after removal.
	d.Remove(p.ID)
	assert.Equal(t, 0, d.Count())
	_, err = d.Register("bob2", "Bob")
	assert.NoError(t, err)
}

func TestDebitCredit(t *testing.T) {
	d := NewDirectory(1000, 50)
	p, err := d.Register("alice", "Alice")
	require.NoError(t, err)

	balance, err := d.Debit(p.ID, 400)
	require.NoError(t, err)
	assert.Equal(t, 600, balance)

	// Overdraft fails without mutation.
	balance, err = d.Debit(p.ID, 601)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 600, balance)

	// Credits are unbounded; pot payouts can exceed the starting grant.
	balance, err = d.Credit(p.ID, 5000)
	require.NoError(t, err)
	assert.Equal(t, 5600, balance)

	_, err = d.Debit(uuid.New(), 1)
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestReserveTickets(t *testing.T) {
	d := NewDirectory(1000, 5)
	p, err := d.Register("alice", "Alice")
	require.NoError(t, err)

	after, err := d.reserveTickets(p.ID, 1, 3, 150, 100)
	require.NoError(t, err)
	assert.Equal(t, 850, after.Balance)
	assert.Equal(t, 3, after.Tickets.Total)
	assert.Equal(t, 3, after.Tickets.PerTier[1])

	// Cap check counts all tiers.
	_, err = d.reserveTickets(p.ID, 2, 3, 450, 100)
	assert.ErrorIs(t, err, ErrMaxTicketsExceeded)

	// Balance check after the cap passes.
	_, err = d.reserveTickets(p.ID, 4, 2, 1000, 100)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Availability is checked last.
	_, err = d.reserveTickets(p.ID, 1, 2, 100, 1)
	assert.ErrorIs(t, err, ErrNotEnoughTickets)

	// Failed reservations leave the record untouched.
	got, _ := d.Get(p.ID)
	assert.Equal(t, 850, got.Balance)
	assert.Equal(t, 3, got.Tickets.Total)
}

func TestResetTierCounts(t *testing.T) {
	d := NewDirectory(10000, 50)
	a, _ := d.Register("a", "A")
	b, _ := d.Register("b", "B")

	_, err := d.reserveTickets(a.ID, 1, 4, 200, 100)
	require.NoError(t, err)
	_, err = d.reserveTickets(a.ID, 2, 2, 300, 100)
	require.NoError(t, err)
	_, err = d.reserveTickets(b.ID, 1, 1, 50, 100)
	require.NoError(t, err)

	d.resetTierCounts(1)

	got, _ := d.Get(a.ID)
	assert.Zero(t, got.Tickets.PerTier[1])
	assert.Equal(t, 2, got.Tickets.Total, "other tiers keep their counts")
	got, _ = d.Get(b.ID)
	assert.Zero(t, got.Tickets.Total)
}

func TestSnapshotIsolation(t *testing.T) {
	d := NewDirectory(1000, 50)
	p, _ := d.Register("alice", "Alice")
	_, err := d.reserveTickets(p.ID, 1, 1, 50, 100)
	require.NoError(t, err)

	snap, _ := d.Get(p.ID)
	snap.Tickets.PerTier[1] = 99

	got, _ := d.Get(p.ID)
	assert.Equal(t, 1, got.Tickets.PerTier[1], "returned snapshots must not alias internal state")
}
