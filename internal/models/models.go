// Package models defines the shared data shapes of the lotto service.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TicketCounts tracks how many tickets a player currently holds,
// in total and broken down by tier.
type TicketCounts struct {
	Total   int         `json:"total"`
	PerTier map[int]int `json:"perTier"`
}

// Player is a registered participant. Identity is transient: the record is
// created on registration and discarded on disconnect, forfeiting balance
// and stats.
type Player struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Balance     int       `json:"balance"`
	Joined      time.Time `json:"joined"`

	GamesPlayed   int `json:"gamesPlayed"`
	GamesWon      int `json:"gamesWon"`
	TotalWinnings int `json:"totalWinnings"`
	TotalLosses   int `json:"totalLosses"`
	NetWinnings   int `json:"netWinnings"`

	Tickets TicketCounts `json:"tickets"`
}

// RoundInfo describes the live round of a tier, if one exists.
type RoundInfo struct {
	ID            uuid.UUID `json:"id"`
	Tier          int       `json:"tier"`
	StartTime     time.Time `json:"startTime"`
	DrawDeadline  time.Time `json:"drawDeadline"`
	Pot           int       `json:"pot"`
	TicketsSold   int       `json:"ticketsSold"`
	UniquePlayers int       `json:"uniquePlayers"`
	Status        string    `json:"status"`
}

// TierInfo is the public snapshot of a single tier, served both over the
// websocket protocol and the HTTP status API.
type TierInfo struct {
	Tier          int        `json:"tier"`
	Price         int        `json:"price"`
	Sold          int        `json:"sold"`
	Available     int        `json:"available"`
	UniquePlayers int        `json:"uniquePlayers"`
	Status        string     `json:"status"`
	Pot           int        `json:"pot"`
	Game          *RoundInfo `json:"game,omitempty"`
}

// HistoryEntry records one settled round. Entries are immutable once
// appended.
type HistoryEntry struct {
	Tier          int       `json:"tier"`
	Timestamp     time.Time `json:"timestamp"`
	WinnerName    string    `json:"winnerName"`
	WinningTicket int       `json:"winningTicket"`
	Pot           int       `json:"pot"`
	Participants  int       `json:"participantCount"`
	TicketsSold   int       `json:"ticketsSold"`
}
