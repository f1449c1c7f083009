// Package cache publishes settled round records to Redis for external
// consumers. Publishing is optional: when no client is configured every
// call is a no-op, and a publish failure never affects a settlement.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the shared Redis client. Nil when archiving is disabled.
var Rdb *redis.Client

// roundArchiveKey is the list that receives one record per finished round.
const roundArchiveKey = "lotto:rounds"

// InitRedis connects the shared client and verifies the connection.
func InitRedis(addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return err
	}
	Rdb = client
	return nil
}

// RoundRecord is the archived outcome of one round, settled or cancelled.
type RoundRecord struct {
	RoundID       uuid.UUID `json:"roundId"`
	Tier          int       `json:"tier"`
	Status        string    `json:"status"`
	WinnerID      uuid.UUID `json:"winnerId,omitempty"`
	WinnerName    string    `json:"winnerName,omitempty"`
	WinningTicket int       `json:"winningTicket,omitempty"`
	Pot           int       `json:"pot"`
	TicketsSold   int       `json:"ticketsSold"`
	Participants  int       `json:"participants"`
	Timestamp     int64     `json:"timestamp"`
}

// PublishRoundRecord pushes a record onto the round archive list.
func PublishRoundRecord(ctx context.Context, rec RoundRecord) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return Rdb.LPush(ctx, roundArchiveKey, data).Err()
}
